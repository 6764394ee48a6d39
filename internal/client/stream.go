package client

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/withobsrvr/ttp-consumer/internal/config"
	"github.com/withobsrvr/ttp-consumer/internal/filter"
	"github.com/withobsrvr/ttp-consumer/internal/transport"
	"github.com/withobsrvr/ttp-consumer/internal/wire"
)

// Stream is one in-flight event request. Events flow through a bounded
// buffer, so a consumer that pauses applies backpressure to the receive
// loop without losing undelivered events.
type Stream struct {
	ctx     context.Context
	cancel  context.CancelFunc
	ts      transport.Stream
	filter  *filter.AccountSet
	idle    time.Duration
	log     *zap.Logger
	release func()

	events chan *wire.TokenTransferEvent

	// terminal is written by run before events is closed; Recv reads it
	// only after observing the close
	terminal error

	recvStart atomic.Int64 // UnixNano of the blocking Recv, 0 when not receiving
	timedOut  atomic.Bool
	closed    atomic.Bool
}

func newStream(ctx context.Context, cancel context.CancelFunc, ts transport.Stream, accounts *filter.AccountSet, cfg *config.Config, log *zap.Logger, release func()) *Stream {
	return &Stream{
		ctx:     ctx,
		cancel:  cancel,
		ts:      ts,
		filter:  accounts,
		idle:    cfg.IdleTimeout,
		log:     log,
		release: release,
		events:  make(chan *wire.TokenTransferEvent, cfg.StreamBuffer),
	}
}

// Recv returns the next event. It blocks until an event arrives, the
// stream completes (io.EOF), or a terminal error occurs. Events received
// before a terminal error remain valid.
func (s *Stream) Recv() (*wire.TokenTransferEvent, error) {
	ev, ok := <-s.events
	if !ok {
		return nil, s.terminal
	}
	return ev, nil
}

// Close abandons the stream before exhaustion. The underlying transport
// stream is cancelled immediately rather than drained.
func (s *Stream) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.cancel()
	}
	return nil
}

// run is the receive loop: pull a message, decode it, filter it, hand it
// to the consumer. It owns the terminal error and releases the client's
// request slot on exit.
func (s *Stream) run() {
	defer func() {
		s.cancel()
		s.ts.Close()
		close(s.events)
		s.release()
	}()

	stopWatchdog := s.startWatchdog()
	defer stopWatchdog()

	delivered := 0
	for {
		s.recvStart.Store(time.Now().UnixNano())
		msg, err := s.ts.Recv()
		s.recvStart.Store(0)

		if err != nil {
			s.terminal = s.classify(err)
			s.logTerminal(delivered)
			return
		}

		ev, err := wire.DecodeEvent(msg)
		if err != nil {
			s.terminal = &DecodeError{Err: err}
			s.log.Error("Malformed event message, terminating stream", zap.Error(err))
			return
		}

		if !s.filter.Matches(ev) {
			continue
		}

		select {
		case s.events <- ev:
			delivered++
		case <-s.ctx.Done():
			s.terminal = s.classify(s.ctx.Err())
			s.logTerminal(delivered)
			return
		}
	}
}

// classify maps a terminal condition onto the error taxonomy, folding in
// caller-initiated closes and watchdog timeouts
func (s *Stream) classify(err error) error {
	if s.closed.Load() && !s.timedOut.Load() {
		return ErrStreamClosed
	}
	return mapStreamError(err, s.timedOut.Load())
}

func (s *Stream) logTerminal(delivered int) {
	if s.terminal == nil || errors.Is(s.terminal, io.EOF) {
		s.log.Info("Event stream completed", zap.Int("events", delivered))
		return
	}
	s.log.Warn("Event stream terminated",
		zap.Int("events", delivered),
		zap.Error(s.terminal))
}

// startWatchdog cancels the stream when no inbound data arrives within the
// idle timeout. Time spent waiting on a slow consumer does not count; only
// a blocking transport read can trip it.
func (s *Stream) startWatchdog() func() {
	if s.idle <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		interval := s.idle / 4
		if interval < 50*time.Millisecond {
			interval = 50 * time.Millisecond
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				start := s.recvStart.Load()
				if start == 0 {
					continue
				}
				if time.Since(time.Unix(0, start)) > s.idle {
					s.timedOut.Store(true)
					s.log.Warn("Idle timeout on event stream",
						zap.Duration("idle_timeout", s.idle))
					s.cancel()
					return
				}
			}
		}
	}()
	return func() { close(done) }
}
