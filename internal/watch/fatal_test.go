// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestUnrecoverable(t *testing.T) {
	t.Parallel()

	type errCase struct {
		name string
		err  error
		want bool
	}
	tests := []errCase{
		{name: "generic error", err: errors.New("queue overflow"), want: false},
		{name: "permission denied", err: syscall.EACCES, want: false},
	}
	for _, errno := range fatalErrnos {
		tests = append(tests,
			errCase{name: errno.Error(), err: errno, want: true},
			errCase{name: "wrapped " + errno.Error(), err: fmt.Errorf("fsnotify: %w", errno), want: true},
		)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := unrecoverable(tt.err); got != tt.want {
				t.Errorf("unrecoverable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
