// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

// Package transport binds non-blocking socket descriptors to the readiness
// reactor. ChannelAdapter is the Sender and Receiver of one connection.
package transport
