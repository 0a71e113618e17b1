// SPDX-License-Identifier: MPL-2.0

package vars

// InProgress is the immutable set of names currently being expanded along
// one expansion path. The zero value is empty. With returns a new set and
// leaves the receiver untouched, so sibling expansions never observe each
// other's names.
type InProgress struct {
	head *inProgressNode
}

type inProgressNode struct {
	name string
	next *inProgressNode
}

// With returns the set extended by name.
func (p InProgress) With(name string) InProgress {
	return InProgress{head: &inProgressNode{name: name, next: p.head}}
}

// Contains reports whether name is in the set.
func (p InProgress) Contains(name string) bool {
	for n := p.head; n != nil; n = n.next {
		if n.name == name {
			return true
		}
	}
	return false
}
