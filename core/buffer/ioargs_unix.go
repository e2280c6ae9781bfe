//go:build unix

// File: core/buffer/ioargs_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking socket transfers via golang.org/x/sys/unix.

package buffer

import (
	"io"

	"golang.org/x/sys/unix"
)

// ReadFromSocket reads from a non-blocking descriptor until the bound is
// reached or the socket would block. A zero-length read is io.EOF.
func (a *IoArgs) ReadFromSocket(fd int) (int, error) {
	total := 0
	for a.Remained() {
		n, err := unix.Read(fd, a.buf[a.pos:a.lim])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if err == unix.EAGAIN {
				break
			}
			return total, err
		}
		if n == 0 {
			return total, io.EOF
		}
		a.pos += n
		total += n
	}
	return total, nil
}

// WriteToSocket writes the readable region to a non-blocking descriptor until
// it is drained or the socket would block.
func (a *IoArgs) WriteToSocket(fd int) (int, error) {
	total := 0
	for a.Remained() {
		n, err := unix.Write(fd, a.buf[a.pos:a.lim])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if err == unix.EAGAIN {
				break
			}
			return total, err
		}
		if n <= 0 {
			break
		}
		a.pos += n
		total += n
	}
	return total, nil
}
