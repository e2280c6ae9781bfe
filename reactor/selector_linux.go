//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package reactor

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-clink/affinity"
	"github.com/momentics/hioload-clink/api"
	"github.com/momentics/hioload-clink/internal/concurrency"
)

const (
	inputEvents  = unix.EPOLLIN | unix.EPOLLRDHUP
	outputEvents = unix.EPOLLOUT
	maxEvents    = 128
)

// selector is one epoll set with its wait loop and callback pool.
type selector struct {
	name   string
	events uint32
	cpu    int
	epfd   int
	wakefd int
	log    zerolog.Logger
	pool   api.Executor

	mu          sync.Mutex
	cond        *sync.Cond
	registering bool
	callbacks   map[int]func()
	known       map[int]struct{}

	closed  atomic.Bool
	running bool
	done    chan struct{}
}

func newSelector(name string, events uint32, workers, cpu int, log zerolog.Logger) (*selector, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add wake: %w", err)
	}
	s := &selector{
		name:      name,
		events:    events,
		cpu:       cpu,
		epfd:      epfd,
		wakefd:    wakefd,
		log:       log.With().Str("selector", name).Logger(),
		pool:      concurrency.NewExecutor("io-"+name, workers, log),
		callbacks: make(map[int]func()),
		known:     make(map[int]struct{}),
		done:      make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

// wake interrupts epoll_wait.
func (s *selector) wake() {
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	if _, err := unix.Write(s.wakefd, one[:]); err != nil && err != unix.EAGAIN {
		s.log.Debug().Err(err).Msg("wake")
	}
}

func (s *selector) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(s.wakefd, buf[:]); err != nil {
			return
		}
	}
}

// register arms one-shot interest. The loop is woken first and kept off the
// callback table until the registration has landed.
func (s *selector) register(fd int, cb func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return false
	}
	s.registering = true
	defer func() {
		s.registering = false
		s.cond.Broadcast()
	}()
	s.wake()

	ev := unix.EpollEvent{Events: s.events | unix.EPOLLONESHOT, Fd: int32(fd)}
	_, known := s.known[fd]
	op := unix.EPOLL_CTL_ADD
	if known {
		op = unix.EPOLL_CTL_MOD
	}
	err := unix.EpollCtl(s.epfd, op, fd, &ev)
	switch {
	case err == unix.EEXIST:
		err = unix.EpollCtl(s.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
	case err == unix.ENOENT:
		err = unix.EpollCtl(s.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
	}
	if err != nil {
		s.log.Debug().Err(err).Int("fd", fd).Msg("register")
		return false
	}
	s.known[fd] = struct{}{}
	s.callbacks[fd] = cb
	return true
}

func (s *selector) unregister(fd int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.callbacks, fd)
	if _, ok := s.known[fd]; ok {
		delete(s.known, fd)
		_ = unix.EpollCtl(s.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	}
}

// loop blocks in epoll_wait on a dedicated OS thread and hands ready
// callbacks to the pool. The kernel disarms a delivered descriptor
// (EPOLLONESHOT); its callback is dropped from the table before submission.
func (s *selector) loop() {
	runtime.LockOSThread()
	if s.cpu == affinity.NoCPU {
		defer runtime.UnlockOSThread()
	} else if err := affinity.SetAffinity(s.cpu); err != nil {
		// a thread that stays locked is discarded when the loop exits
		s.log.Warn().Err(err).Int("cpu", s.cpu).Msg("pin selector thread")
	}
	defer close(s.done)

	events := make([]unix.EpollEvent, maxEvents)
	ready := make([]func(), 0, maxEvents)
	for {
		n, err := unix.EpollWait(s.epfd, events, -1)
		if s.closed.Load() {
			return
		}
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			s.log.Error().Err(err).Msg("epoll wait")
			return
		}

		s.mu.Lock()
		for s.registering {
			s.cond.Wait()
		}
		ready = ready[:0]
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == s.wakefd {
				s.drainWake()
				continue
			}
			cb, ok := s.callbacks[fd]
			if !ok {
				continue
			}
			delete(s.callbacks, fd)
			ready = append(ready, cb)
		}
		s.mu.Unlock()

		for _, cb := range ready {
			if err := s.pool.Submit(cb); err != nil {
				return
			}
		}
	}
}

func (s *selector) start() {
	s.running = true
	go s.loop()
}

func (s *selector) close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.wake()
	s.pool.Close()
	if s.running {
		<-s.done
	}
	s.mu.Lock()
	clear(s.callbacks)
	clear(s.known)
	s.mu.Unlock()
	return multierr.Combine(unix.Close(s.wakefd), unix.Close(s.epfd))
}
