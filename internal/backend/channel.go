// Package backend defines the command channel to an automation backend and
// the session lock that serializes every configure-then-command sequence.
package backend

import (
	"context"
	"sync"
)

// Channel is a synchronous request/response link to an automation backend.
// Arguments are strings so numeric identifiers round-trip exactly.
type Channel interface {
	Invoke(ctx context.Context, command string, args ...string) (Result, error)
}

// Pending is the outcome of a dispatched command.
type Pending interface {
	Wait() (Result, error)
}

// Dispatcher is implemented by channels that can accept a blocking command,
// capture the session configuration at that moment, and report the result
// later. Callers may release the session lock before calling Wait.
type Dispatcher interface {
	Dispatch(ctx context.Context, command string, args ...string) (Pending, error)
}

// Generational is implemented by channels whose backend state can be
// replaced underneath the caller, for example by reconnecting. Generation
// changes every time that happens.
type Generational interface {
	Generation() uint64
}

// Completed returns a Pending that already holds its outcome.
func Completed(res Result, err error) Pending {
	return completed{res: res, err: err}
}

type completed struct {
	res Result
	err error
}

func (c completed) Wait() (Result, error) { return c.res, c.err }

// Deferred returns a Pending that runs fn on the first Wait and caches the
// outcome for later calls.
func Deferred(fn func() (Result, error)) Pending {
	return &deferred{fn: fn}
}

type deferred struct {
	once sync.Once
	fn   func() (Result, error)
	res  Result
	err  error
}

func (d *deferred) Wait() (Result, error) {
	d.once.Do(func() {
		d.res, d.err = d.fn()
	})
	return d.res, d.err
}
