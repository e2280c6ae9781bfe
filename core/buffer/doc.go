// Package buffer
// Author: momentics <momentics@gmail.com>
//
// Bounded, reusable transfer units used for a single readiness-triggered
// read or write against a socket descriptor, an in-memory slice, or a stream.
package buffer
