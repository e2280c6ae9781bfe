// Package connector
// Author: momentics <momentics@gmail.com>
//
// A Connector is one framed link: a channel adapter over a non-blocking
// descriptor, a send and a receive dispatcher, the packet registry that
// materialises incoming packets, and the application hooks.
package connector
