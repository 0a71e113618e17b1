// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"errors"
	"slices"
	"syscall"
)

// unrecoverable reports whether err from fsnotify means the watcher itself
// is broken, as opposed to a single event that could not be delivered.
func unrecoverable(err error) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && slices.Contains(fatalErrnos, errno)
}
