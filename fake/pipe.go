// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the link contracts.

package fake

import (
	"sync"

	"github.com/momentics/hioload-clink/api"
)

// End is one side of an in-memory link. It implements api.Sender and
// api.Receiver; nothing moves until Pump is called.
type End struct {
	mu        sync.Mutex
	peer      *End
	sendL     api.IoArgsEventProcessor
	recvL     api.IoArgsEventProcessor
	sendArmed bool
	recvArmed bool
	inbox     []byte
	sent      []byte
	closed    bool
}

// NewPipe returns two connected ends.
func NewPipe() (*End, *End) {
	a, b := &End{}, &End{}
	a.peer, b.peer = b, a
	return a, b
}

// SetSendListener implements api.Sender.
func (e *End) SetSendListener(p api.IoArgsEventProcessor) {
	e.mu.Lock()
	e.sendL = p
	e.mu.Unlock()
}

// PostSendAsync implements api.Sender.
func (e *End) PostSendAsync() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return api.ErrChannelClosed
	}
	e.sendArmed = true
	return nil
}

// SetReceiveListener implements api.Receiver.
func (e *End) SetReceiveListener(p api.IoArgsEventProcessor) {
	e.mu.Lock()
	e.recvL = p
	e.mu.Unlock()
}

// PostReceiveAsync implements api.Receiver.
func (e *End) PostReceiveAsync() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return api.ErrChannelClosed
	}
	e.recvArmed = true
	return nil
}

// Close implements io.Closer.
func (e *End) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return nil
}

// Sent returns a copy of every byte this end has written.
func (e *End) Sent() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]byte(nil), e.sent...)
}

// Inject appends raw bytes to this end's inbox as if the peer wrote them.
func (e *End) Inject(b []byte) {
	e.mu.Lock()
	e.inbox = append(e.inbox, b...)
	e.mu.Unlock()
}

// stepSend performs one armed send transfer.
func (e *End) stepSend() bool {
	e.mu.Lock()
	if !e.sendArmed || e.closed || e.sendL == nil {
		e.mu.Unlock()
		return false
	}
	e.sendArmed = false
	l := e.sendL
	e.mu.Unlock()

	args := l.ProvideIoArgs()
	if args == nil {
		l.OnConsumeFailed(nil, api.ErrNoData)
		return true
	}
	chunk := append([]byte(nil), args.Bytes()...)
	args.WriteTo(make([]byte, len(chunk)), 0)
	e.mu.Lock()
	e.sent = append(e.sent, chunk...)
	e.mu.Unlock()
	if e.peer != nil {
		e.peer.Inject(chunk)
	}
	l.OnConsumeCompleted(args)
	return true
}

// stepReceive performs one armed receive transfer if bytes are waiting.
func (e *End) stepReceive() bool {
	e.mu.Lock()
	if !e.recvArmed || e.closed || e.recvL == nil || len(e.inbox) == 0 {
		e.mu.Unlock()
		return false
	}
	e.recvArmed = false
	l := e.recvL
	e.mu.Unlock()

	args := l.ProvideIoArgs()
	if args == nil {
		l.OnConsumeFailed(nil, api.ErrNoData)
		return true
	}
	args.StartWriting()
	e.mu.Lock()
	n := args.ReadFrom(e.inbox, 0, len(e.inbox))
	e.inbox = e.inbox[n:]
	e.mu.Unlock()
	args.FinishWriting()
	l.OnConsumeCompleted(args)
	return true
}

// Pump moves data between the ends until both are idle and returns the
// number of transfers performed.
func Pump(ends ...*End) int {
	steps := 0
	for {
		progress := false
		for _, e := range ends {
			if e.stepSend() {
				progress = true
				steps++
			}
			if e.stepReceive() {
				progress = true
				steps++
			}
		}
		if !progress {
			return steps
		}
	}
}
