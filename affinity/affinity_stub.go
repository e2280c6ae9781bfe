//go:build !linux
// +build !linux

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package affinity

import "errors"

var errUnsupported = errors.New("affinity: not supported on this platform")

func setAffinityPlatform(int) error {
	return errUnsupported
}

// Allowed is not available on this platform.
func Allowed() ([]int, error) {
	return nil, errUnsupported
}
