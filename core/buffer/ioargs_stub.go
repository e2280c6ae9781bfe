//go:build !unix

// File: core/buffer/ioargs_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package buffer

import "errors"

var errSocketUnsupported = errors.New("buffer: socket transfers are not supported on this platform")

// ReadFromSocket is unsupported on this platform.
func (a *IoArgs) ReadFromSocket(fd int) (int, error) {
	return 0, errSocketUnsupported
}

// WriteToSocket is unsupported on this platform.
func (a *IoArgs) WriteToSocket(fd int) (int, error) {
	return 0, errSocketUnsupported
}
