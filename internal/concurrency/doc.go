// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Worker pool used by the readiness reactor to run I/O callbacks off the
// selector loops.
package concurrency
