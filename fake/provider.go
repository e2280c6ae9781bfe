// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"
)

// IoProvider records one-shot registrations and fires them on demand.
type IoProvider struct {
	mu     sync.Mutex
	reads  map[int]func()
	writes map[int]func()
	closed bool
}

// NewIoProvider returns an empty provider.
func NewIoProvider() *IoProvider {
	return &IoProvider{reads: map[int]func(){}, writes: map[int]func(){}}
}

func (p *IoProvider) RegisterRead(fd int, cb func()) bool  { return p.register(p.reads, fd, cb) }
func (p *IoProvider) RegisterWrite(fd int, cb func()) bool { return p.register(p.writes, fd, cb) }
func (p *IoProvider) UnregisterRead(fd int)                { p.unregister(p.reads, fd) }
func (p *IoProvider) UnregisterWrite(fd int)               { p.unregister(p.writes, fd) }

func (p *IoProvider) register(m map[int]func(), fd int, cb func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	m[fd] = cb
	return true
}

func (p *IoProvider) unregister(m map[int]func(), fd int) {
	p.mu.Lock()
	delete(m, fd)
	p.mu.Unlock()
}

// Close implements io.Closer.
func (p *IoProvider) Close() error {
	p.mu.Lock()
	p.closed = true
	clear(p.reads)
	clear(p.writes)
	p.mu.Unlock()
	return nil
}

// ReadArmed reports whether read interest is registered for fd.
func (p *IoProvider) ReadArmed(fd int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.reads[fd]
	return ok
}

// WriteArmed reports whether write interest is registered for fd.
func (p *IoProvider) WriteArmed(fd int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.writes[fd]
	return ok
}

// FireRead disarms and runs the read callback for fd, if armed.
func (p *IoProvider) FireRead(fd int) bool { return p.fire(p.reads, fd) }

// FireWrite disarms and runs the write callback for fd, if armed.
func (p *IoProvider) FireWrite(fd int) bool { return p.fire(p.writes, fd) }

func (p *IoProvider) fire(m map[int]func(), fd int) bool {
	p.mu.Lock()
	cb, ok := m[fd]
	delete(m, fd)
	p.mu.Unlock()
	if ok {
		cb()
	}
	return ok
}
