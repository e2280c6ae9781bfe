// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp provides the TCP acceptor that turns accepted connections into
// non-blocking descriptors for the channel adapter.
package tcp
