package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var errTxClosed = errors.New("backend: transaction used after its critical section ended")

// Session guards one backend's mutable configuration. All callers sharing a
// backend must share one Session; every sequence that configures the backend
// and then issues a command runs inside Do.
type Session struct {
	mu     sync.Mutex
	ch     Channel
	logger *slog.Logger
}

// NewSession wraps ch. A nil logger discards log output.
func NewSession(ch Channel, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{ch: ch, logger: logger}
}

// Channel returns the underlying channel.
func (s *Session) Channel() Channel { return s.ch }

// Do runs fn while holding the session lock. The lock is not reentrant: fn
// must issue commands through the Tx it receives, never through s.
func (s *Session) Do(ctx context.Context, fn func(tx *Tx) error) error {
	if s == nil {
		return ErrNoSession
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{s: s, ctx: ctx}
	defer func() { tx.closed = true }()
	return fn(tx)
}

// Invoke runs a single command in its own critical section.
func (s *Session) Invoke(ctx context.Context, command string, args ...string) (Result, error) {
	var res Result
	err := s.Do(ctx, func(tx *Tx) error {
		var err error
		res, err = tx.Invoke(command, args...)
		return err
	})
	return res, err
}

// Tx issues commands inside a critical section.
type Tx struct {
	s      *Session
	ctx    context.Context
	closed bool

	gen    uint64
	hasGen bool
}

// Context returns the context the critical section was started with.
func (tx *Tx) Context() context.Context { return tx.ctx }

// Invoke sends one command.
func (tx *Tx) Invoke(command string, args ...string) (Result, error) {
	if tx.closed {
		return Result{}, errTxClosed
	}
	if err := tx.ctx.Err(); err != nil {
		return Result{}, err
	}
	tx.s.logger.Debug("backend command", "command", command, "args", len(args))
	res, err := tx.s.ch.Invoke(tx.ctx, command, args...)
	if err != nil {
		tx.s.logger.Debug("backend command failed", "command", command, "code", Code(err), "error", err)
		return res, err
	}
	if err := tx.checkGeneration(command); err != nil {
		return Result{}, err
	}
	return res, nil
}

// checkGeneration records the channel generation on the first command and
// fails once it changes.
func (tx *Tx) checkGeneration(command string) error {
	g, ok := tx.s.ch.(Generational)
	if !ok {
		return nil
	}
	gen := g.Generation()
	if !tx.hasGen {
		tx.gen, tx.hasGen = gen, true
		return nil
	}
	if gen != tx.gen {
		tx.s.logger.Warn("backend state reset mid-section", "command", command)
		return fmt.Errorf("%s: %w", command, ErrSessionReset)
	}
	return nil
}

// Dispatch sends a blocking command whose outcome may be awaited after the
// critical section ends. Channels that do not implement Dispatcher run the
// command synchronously here, still under the lock.
func (tx *Tx) Dispatch(command string, args ...string) (Pending, error) {
	d, ok := tx.s.ch.(Dispatcher)
	if !ok {
		res, err := tx.Invoke(command, args...)
		return Completed(res, err), nil
	}
	if tx.closed {
		return nil, errTxClosed
	}
	if err := tx.ctx.Err(); err != nil {
		return nil, err
	}
	tx.s.logger.Debug("backend dispatch", "command", command, "args", len(args))
	p, err := d.Dispatch(tx.ctx, command, args...)
	if err != nil {
		return nil, err
	}
	if err := tx.checkGeneration(command); err != nil {
		return nil, err
	}
	return p, nil
}
