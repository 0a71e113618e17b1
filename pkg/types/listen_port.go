// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

const maxListenPort ListenPort = 1<<16 - 1

// ErrInvalidListenPort is the sentinel error wrapped by InvalidListenPortError.
var ErrInvalidListenPort = errors.New("invalid listen port")

type (
	// ListenPort is the TCP port the SSH console binds to. Zero lets the
	// kernel pick one.
	ListenPort int

	// InvalidListenPortError reports a port outside 0..65535.
	InvalidListenPortError struct {
		Value ListenPort
	}
)

func (p ListenPort) String() string { return strconv.Itoa(int(p)) }

// Addr joins host and p into a dialable address, bracketing IPv6 hosts.
func (p ListenPort) Addr(host string) string {
	return net.JoinHostPort(host, p.String())
}

// Validate rejects negative ports and ports above 65535.
func (p ListenPort) Validate() error {
	if p < 0 || p > maxListenPort {
		return &InvalidListenPortError{Value: p}
	}
	return nil
}

func (e *InvalidListenPortError) Error() string {
	return fmt.Sprintf("listen port %d out of range (0 picks a free port, max %d)", e.Value, maxListenPort)
}

func (e *InvalidListenPortError) Unwrap() error { return ErrInvalidListenPort }
