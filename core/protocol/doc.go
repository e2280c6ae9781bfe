// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Frame wire protocol: the fixed 6-byte frame header, frame and packet type
// constants, the header-frame body layout, and connection-scoped frame
// identifier allocation.
package protocol
