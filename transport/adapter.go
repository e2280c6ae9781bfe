// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package transport

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-clink/api"
	"github.com/momentics/hioload-clink/core/buffer"
	"github.com/momentics/hioload-clink/internal/logging"
)

// StatusCallback is told once that the channel closed and why. cause is nil
// for a local Close.
type StatusCallback func(cause error)

// ChannelAdapter moves IoArgs between a non-blocking descriptor and the
// dispatchers, driven by one-shot readiness callbacks.
type ChannelAdapter struct {
	fd       int
	provider api.IoProvider
	onClose  StatusCallback
	log      zerolog.Logger

	mu    sync.Mutex
	sendL api.IoArgsEventProcessor
	recvL api.IoArgsEventProcessor

	// pending holds a unit whose write was cut short; only the write
	// callback touches it.
	pending *buffer.IoArgs
	closed  atomic.Bool
}

var (
	_ api.Sender   = (*ChannelAdapter)(nil)
	_ api.Receiver = (*ChannelAdapter)(nil)
)

// NewChannelAdapter takes ownership of fd, which must be non-blocking.
func NewChannelAdapter(fd int, provider api.IoProvider, onClose StatusCallback) *ChannelAdapter {
	return &ChannelAdapter{
		fd:       fd,
		provider: provider,
		onClose:  onClose,
		log:      logging.Component("channel").With().Int("fd", fd).Logger(),
	}
}

// FD returns the descriptor.
func (a *ChannelAdapter) FD() int { return a.fd }

// IsClosed reports whether Close has run.
func (a *ChannelAdapter) IsClosed() bool { return a.closed.Load() }

// SetSendListener implements api.Sender.
func (a *ChannelAdapter) SetSendListener(p api.IoArgsEventProcessor) {
	a.mu.Lock()
	a.sendL = p
	a.mu.Unlock()
}

// SetReceiveListener implements api.Receiver.
func (a *ChannelAdapter) SetReceiveListener(p api.IoArgsEventProcessor) {
	a.mu.Lock()
	a.recvL = p
	a.mu.Unlock()
}

func (a *ChannelAdapter) listeners() (send, recv api.IoArgsEventProcessor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sendL, a.recvL
}

// PostSendAsync implements api.Sender.
func (a *ChannelAdapter) PostSendAsync() error {
	if a.closed.Load() {
		return api.ErrChannelClosed
	}
	if !a.provider.RegisterWrite(a.fd, a.handleOutput) {
		return api.ErrProviderClosed
	}
	return nil
}

// PostReceiveAsync implements api.Receiver.
func (a *ChannelAdapter) PostReceiveAsync() error {
	if a.closed.Load() {
		return api.ErrChannelClosed
	}
	if !a.provider.RegisterRead(a.fd, a.handleInput) {
		return api.ErrProviderClosed
	}
	return nil
}

func (a *ChannelAdapter) handleInput() {
	if a.closed.Load() {
		return
	}
	_, l := a.listeners()
	if l == nil {
		return
	}
	args := l.ProvideIoArgs()
	if args == nil {
		l.OnConsumeFailed(nil, api.ErrNoData)
		return
	}
	args.StartWriting()
	n, err := args.ReadFromSocket(a.fd)
	args.FinishWriting()

	switch {
	case n > 0:
		l.OnConsumeCompleted(args)
	case err == nil:
		// spurious wakeup
		if perr := a.PostReceiveAsync(); perr != nil {
			a.closeWith(perr)
		}
		return
	}
	if err != nil {
		if !errors.Is(err, io.EOF) {
			l.OnConsumeFailed(args, err)
		}
		a.closeWith(err)
	}
}

func (a *ChannelAdapter) handleOutput() {
	if a.closed.Load() {
		return
	}
	l, _ := a.listeners()
	if l == nil {
		return
	}
	args := a.pending
	if args == nil {
		if args = l.ProvideIoArgs(); args == nil {
			l.OnConsumeFailed(nil, api.ErrNoData)
			return
		}
	}
	if _, err := args.WriteToSocket(a.fd); err != nil {
		a.pending = nil
		l.OnConsumeFailed(args, err)
		a.closeWith(err)
		return
	}
	if args.Remained() {
		a.pending = args
		if err := a.PostSendAsync(); err != nil {
			a.closeWith(err)
		}
		return
	}
	a.pending = nil
	l.OnConsumeCompleted(args)
}

// Close unregisters the descriptor, closes it and fires the status callback.
// Only the first call has any effect.
func (a *ChannelAdapter) Close() error {
	return a.closeWith(nil)
}

func (a *ChannelAdapter) closeWith(cause error) error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	a.provider.UnregisterRead(a.fd)
	a.provider.UnregisterWrite(a.fd)
	err := CloseFD(a.fd)
	if cause != nil && !errors.Is(cause, io.EOF) {
		a.log.Debug().Err(cause).Msg("channel closed on error")
	}
	if a.onClose != nil {
		a.onClose(cause)
	}
	return err
}
