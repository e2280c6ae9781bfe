// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness reactor: two epoll selectors, one for
// read interest and one for write interest, each served by its own loop and
// worker pool. Interest is one-shot; a callback must re-register to fire again.
package reactor
