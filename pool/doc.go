// Package pool
// Author: momentics <momentics@gmail.com>
//
// Small reuse pools for short-lived buffers. The frame path owns its IoArgs
// per connection; these pools serve the datagram and scratch buffers of the
// supporting services.
package pool
