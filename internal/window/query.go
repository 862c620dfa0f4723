package window

import (
	"context"
	"iter"
	"sync/atomic"
	"time"

	"github.com/1broseidon/winquery/internal/backend"
)

// configure applies f's detection and match settings. It must run in the
// same critical section as the command that depends on them.
func (f Filter) configure(tx *backend.Tx) error {
	if _, err := tx.Invoke("DetectHiddenWindows", onOff(f.hiddenWindows)); err != nil {
		return err
	}
	if !f.text.IsUnset() || !f.excludeText.IsUnset() {
		if _, err := tx.Invoke("DetectHiddenText", onOff(f.hiddenText)); err != nil {
			return err
		}
	}
	if err := setTitleMatchMode(tx, f.titleMode); err != nil {
		return err
	}
	speed := f.textSpeed
	if speed != TextFast && speed != TextSlow {
		return &ConfigurationError{Field: "text speed", Value: string(speed), Reason: "want fast or slow"}
	}
	_, err := tx.Invoke("SetTitleMatchMode", string(speed))
	return err
}

func (f Filter) callLocked(ctx context.Context, tx *backend.Tx, winDelay bool, command string, args ...string) (backend.Result, error) {
	if err := f.configure(tx); err != nil {
		return backend.Result{}, err
	}
	if winDelay {
		if err := setWinDelay(ctx, tx); err != nil {
			return backend.Result{}, err
		}
	}
	return tx.Invoke(command, args...)
}

// call configures the backend and runs one command. A filter with an
// excluded field returns a blank result without contacting the backend.
func (f Filter) call(ctx context.Context, winDelay bool, command string, args ...string) (backend.Result, error) {
	if f.excluded() {
		return backend.Result{}, nil
	}
	var res backend.Result
	err := f.session.Do(ctx, func(tx *backend.Tx) error {
		var err error
		res, err = f.callLocked(ctx, tx, winDelay, command, args...)
		return err
	})
	return res, err
}

func (f Filter) window(res backend.Result) Window {
	id, _ := res.Integer()
	return Window{handle{id: uint64(id), session: f.session}}
}

// First returns the front-most matching window, or the invalid Window.
func (f Filter) First(ctx context.Context) (Window, error) {
	res, err := f.call(ctx, false, "WinExist", f.query()...)
	if err != nil {
		return Window{}, err
	}
	return f.window(res), nil
}

// Exist is First.
func (f Filter) Exist(ctx context.Context) (Window, error) { return f.First(ctx) }

// Top is First.
func (f Filter) Top(ctx context.Context) (Window, error) { return f.First(ctx) }

// Last returns the back-most matching window.
func (f Filter) Last(ctx context.Context) (Window, error) {
	res, err := f.call(ctx, false, "WinGet", append([]string{"IDLast"}, f.query()...)...)
	if err != nil {
		return Window{}, err
	}
	return f.window(res), nil
}

// Bottom is Last.
func (f Filter) Bottom(ctx context.Context) (Window, error) { return f.Last(ctx) }

// Active returns the matching window if it is the focused one. On an
// unconstrained filter it returns the focused window itself.
func (f Filter) Active(ctx context.Context) (Window, error) {
	q := f.query()
	if q[0] == "" && q[1] == "" && q[2] == "" && q[3] == "" {
		q[0] = "A"
	}
	res, err := f.call(ctx, false, "WinActive", q...)
	if err != nil {
		return Window{}, err
	}
	return f.window(res), nil
}

// Count returns the number of matching windows.
func (f Filter) Count(ctx context.Context) (int, error) {
	res, err := f.call(ctx, false, "WinGet", append([]string{"Count"}, f.query()...)...)
	if err != nil {
		return 0, err
	}
	n, _ := res.Integer()
	return int(n), nil
}

// Iterate lists matching windows front to back. The id list is fetched
// once; handles are produced as the sequence is consumed, and the sequence
// cannot be restarted.
func (f Filter) Iterate(ctx context.Context) (iter.Seq[Window], error) {
	res, err := f.call(ctx, false, "WinGet", append([]string{"List"}, f.query()...)...)
	if err != nil {
		return nil, err
	}
	ids := res.IDs
	var consumed atomic.Bool
	return func(yield func(Window) bool) {
		if consumed.Swap(true) {
			return
		}
		for _, id := range ids {
			if !yield(Window{handle{id: id, session: f.session}}) {
				return
			}
		}
	}, nil
}

// All returns every matching window front to back.
func (f Filter) All(ctx context.Context) ([]Window, error) {
	seq, err := f.Iterate(ctx)
	if err != nil {
		return nil, err
	}
	var out []Window
	for w := range seq {
		out = append(out, w)
	}
	return out, nil
}

// wait runs a blocking wait and reads the last found window while still
// holding the session lock, since the register is per session state.
func (f Filter) wait(ctx context.Context, command string, timeout time.Duration) (Window, bool, error) {
	if f.excluded() {
		return Window{}, false, nil
	}
	inc, exc := f.Include(), f.ExcludeFragment()
	var (
		win Window
		ok  bool
	)
	err := f.session.Do(ctx, func(tx *backend.Tx) error {
		res, err := f.callLocked(ctx, tx, true, command, inc[0], inc[1], seconds(timeout), exc[0], exc[1])
		if err != nil {
			return err
		}
		if res.Bool() {
			return nil
		}
		ok = true
		found, err := tx.Invoke("WinExist", "", "", "", "")
		if err != nil {
			return err
		}
		win = f.window(found)
		return nil
	})
	return win, ok, err
}

// Wait blocks until a matching window exists and returns it. On timeout
// the invalid Window is returned. A timeout <= 0 waits indefinitely.
func (f Filter) Wait(ctx context.Context, timeout time.Duration) (Window, error) {
	w, _, err := f.wait(ctx, "WinWait", timeout)
	return w, err
}

// WaitActive blocks until a matching window is active.
func (f Filter) WaitActive(ctx context.Context, timeout time.Duration) (bool, error) {
	_, ok, err := f.wait(ctx, "WinWaitActive", timeout)
	return ok, err
}

// WaitInactive blocks until no matching window is active.
func (f Filter) WaitInactive(ctx context.Context, timeout time.Duration) (bool, error) {
	if f.excluded() {
		return true, nil
	}
	_, ok, err := f.wait(ctx, "WinWaitNotActive", timeout)
	return ok, err
}

// dispatch configures the backend and dispatches a blocking command. The
// session lock is released before the caller waits for the outcome.
func (f Filter) dispatch(ctx context.Context, command string, args ...string) (backend.Pending, error) {
	var p backend.Pending
	err := f.session.Do(ctx, func(tx *backend.Tx) error {
		if err := f.configure(tx); err != nil {
			return err
		}
		if err := setWinDelay(ctx, tx); err != nil {
			return err
		}
		var err error
		p, err = tx.Dispatch(command, args...)
		return err
	})
	return p, err
}

// WaitClose blocks until no matching window exists.
func (f Filter) WaitClose(ctx context.Context, timeout time.Duration) (bool, error) {
	if f.excluded() {
		return true, nil
	}
	inc, exc := f.Include(), f.ExcludeFragment()
	p, err := f.dispatch(ctx, "WinWaitClose", inc[0], inc[1], seconds(timeout), exc[0], exc[1])
	if err != nil {
		return false, err
	}
	res, err := p.Wait()
	if err != nil {
		return false, err
	}
	return !res.Bool(), nil
}

// Exists returns a guard that holds while a matching window exists.
func (f Filter) Exists() Condition {
	return func(ctx context.Context) bool {
		w, err := f.First(ctx)
		return err == nil && w.Valid()
	}
}

// Missing returns a guard that holds while no matching window exists.
func (f Filter) Missing() Condition {
	return func(ctx context.Context) bool {
		w, err := f.First(ctx)
		return err == nil && !w.Valid()
	}
}

// IsActive returns a guard that holds while a matching window is active.
func (f Filter) IsActive() Condition {
	return func(ctx context.Context) bool {
		w, err := f.Active(ctx)
		return err == nil && w.Valid()
	}
}

// IsInactive returns a guard that holds while no matching window is active.
func (f Filter) IsInactive() Condition {
	return func(ctx context.Context) bool {
		w, err := f.Active(ctx)
		return err == nil && !w.Valid()
	}
}
