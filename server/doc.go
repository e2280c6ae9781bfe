// Package server
// Author: momentics <momentics@gmail.com>
//
// Chat server on top of the frame link. Every string a client sends is
// forwarded to all other clients; files land in the server cache directory.
// A discovery provider advertises the listening port over UDP.
package server
