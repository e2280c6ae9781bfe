//go:build !unix

// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package transport

import (
	"context"
	"net"

	"github.com/momentics/hioload-clink/api"
)

// CloseFD is not available on this platform.
func CloseFD(int) error { return api.ErrNotSupported }

// DetachFD is not available on this platform.
func DetachFD(net.Conn) (int, error) { return -1, api.ErrNotSupported }

// Dial is not available on this platform.
func Dial(context.Context, string) (int, error) { return -1, api.ErrNotSupported }

// SocketPair is not available on this platform.
func SocketPair() (int, int, error) { return -1, -1, api.ErrNotSupported }
