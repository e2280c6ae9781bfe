// Package discovery
// Author: momentics <momentics@gmail.com>
//
// UDP server discovery. A Provider answers search datagrams with the port
// and serial number of the server it fronts; Search broadcasts a request
// and waits for the first answer.
//
// Datagram layout, big-endian:
//
//	request:  magic[8] | cmd:u16 = 1 | responsePort:u32
//	response: magic[8] | cmd:u16 = 2 | serverPort:u32 | serial
package discovery
