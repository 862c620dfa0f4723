package window

import (
	"context"
	"time"

	"github.com/1broseidon/winquery/internal/backend"
)

// Activate focuses the front-most matching window. With a positive timeout
// it waits for the window to become active and reports whether it did;
// otherwise it reports whether the request was issued.
func (f Filter) Activate(ctx context.Context, timeout time.Duration) (bool, error) {
	if f.excluded() {
		return false, nil
	}
	inc, exc := f.Include(), f.ExcludeFragment()
	ok := true
	err := f.session.Do(ctx, func(tx *backend.Tx) error {
		if _, err := f.callLocked(ctx, tx, false, "WinActivate", f.query()...); err != nil {
			return err
		}
		if timeout <= 0 {
			return nil
		}
		res, err := tx.Invoke("WinWaitActive", inc[0], inc[1], seconds(timeout), exc[0], exc[1])
		ok = !res.Bool()
		return err
	})
	return ok && err == nil, err
}

// closeWindows runs WinClose or WinKill. With a positive timeout it reports
// whether the window went away in time; otherwise it reports that the
// request was issued.
func (f Filter) closeWindows(ctx context.Context, command string, timeout time.Duration) (bool, error) {
	if f.excluded() {
		return true, nil
	}
	inc, exc := f.Include(), f.ExcludeFragment()
	res, err := f.call(ctx, true, command, inc[0], inc[1], seconds(timeout), exc[0], exc[1])
	if err != nil {
		return false, err
	}
	if timeout > 0 {
		return !res.Bool(), nil
	}
	return true, nil
}

// Close asks the front-most matching window to close. A positive timeout
// waits up to that long for it to go away.
func (f Filter) Close(ctx context.Context, timeout time.Duration) (bool, error) {
	return f.closeWindows(ctx, "WinClose", timeout)
}

// Kill forcibly closes the front-most matching window.
func (f Filter) Kill(ctx context.Context, timeout time.Duration) (bool, error) {
	return f.closeWindows(ctx, "WinKill", timeout)
}

func (f Filter) action(ctx context.Context, command string) error {
	_, err := f.call(ctx, true, command, f.query()...)
	return err
}

func (f Filter) set(ctx context.Context, sub, value string) error {
	_, err := f.call(ctx, false, "WinSet", append([]string{sub, value}, f.query()...)...)
	return err
}

// Hide hides the front-most matching window.
func (f Filter) Hide(ctx context.Context) error { return f.action(ctx, "WinHide") }

// Show shows the front-most matching window.
func (f Filter) Show(ctx context.Context) error { return f.action(ctx, "WinShow") }

// Maximize maximizes the front-most matching window.
func (f Filter) Maximize(ctx context.Context) error { return f.action(ctx, "WinMaximize") }

// Minimize minimizes the front-most matching window.
func (f Filter) Minimize(ctx context.Context) error { return f.action(ctx, "WinMinimize") }

// Restore restores the front-most matching window.
func (f Filter) Restore(ctx context.Context) error { return f.action(ctx, "WinRestore") }

// PinToTop makes the front-most matching window always on top.
func (f Filter) PinToTop(ctx context.Context) error { return f.set(ctx, "AlwaysOnTop", "On") }

// UnpinFromTop clears always-on-top.
func (f Filter) UnpinFromTop(ctx context.Context) error { return f.set(ctx, "AlwaysOnTop", "Off") }

// ToggleAlwaysOnTop flips always-on-top.
func (f Filter) ToggleAlwaysOnTop(ctx context.Context) error {
	return f.set(ctx, "AlwaysOnTop", "Toggle")
}

// BringToTop raises the window without activating it.
func (f Filter) BringToTop(ctx context.Context) error { return f.set(ctx, "Top", "") }

// SendToBottom lowers the window below all others.
func (f Filter) SendToBottom(ctx context.Context) error { return f.set(ctx, "Bottom", "") }

// Disable disables the window.
func (f Filter) Disable(ctx context.Context) error { return f.set(ctx, "Disable", "") }

// Enable enables the window.
func (f Filter) Enable(ctx context.Context) error { return f.set(ctx, "Enable", "") }

// Redraw repaints the window.
func (f Filter) Redraw(ctx context.Context) error { return f.set(ctx, "Redraw", "") }

// Send delivers keystrokes to the front-most matching window.
func (f Filter) Send(ctx context.Context, keys string) error {
	if f.excluded() {
		return nil
	}
	return f.session.Do(ctx, func(tx *backend.Tx) error {
		if err := f.configure(tx); err != nil {
			return err
		}
		if err := setKeyDelay(ctx, tx); err != nil {
			return err
		}
		_, err := tx.Invoke("ControlSend", append([]string{"", keys}, f.query()...)...)
		return err
	})
}

// groupAction registers f as a backend window group and applies command to
// every member in the same critical section.
func (f Filter) groupAction(ctx context.Context, command string, extra ...string) (backend.Result, error) {
	if f.excluded() {
		return backend.Result{}, nil
	}
	if command == "WinMinimize" && f.unconstrained() {
		return f.call(ctx, true, "WinMinimizeAll")
	}
	name, err := f.GroupName()
	if err != nil {
		return backend.Result{}, err
	}
	inc, exc := f.Include(), f.ExcludeFragment()
	var res backend.Result
	err = f.session.Do(ctx, func(tx *backend.Tx) error {
		if err := f.configure(tx); err != nil {
			return err
		}
		if _, err := tx.Invoke("GroupAdd", name, inc[0], inc[1], "", exc[0], exc[1]); err != nil {
			return err
		}
		if err := setWinDelay(ctx, tx); err != nil {
			return err
		}
		var err error
		res, err = tx.Invoke(command, append([]string{"ahk_group " + name, ""}, extra...)...)
		return err
	})
	return res, err
}

func (f Filter) closeAll(ctx context.Context, command string, timeout time.Duration) (bool, error) {
	if f.excluded() {
		return true, nil
	}
	res, err := f.groupAction(ctx, command, seconds(timeout), "", "")
	if err != nil {
		return false, err
	}
	if timeout > 0 {
		return !res.Bool(), nil
	}
	w, err := f.First(ctx)
	return !w.Valid(), err
}

// CloseAll asks every matching window to close and reports whether none
// remains. A positive timeout waits up to that long.
func (f Filter) CloseAll(ctx context.Context, timeout time.Duration) (bool, error) {
	return f.closeAll(ctx, "WinClose", timeout)
}

// KillAll forcibly closes every matching window.
func (f Filter) KillAll(ctx context.Context, timeout time.Duration) (bool, error) {
	return f.closeAll(ctx, "WinKill", timeout)
}

// HideAll hides every matching window.
func (f Filter) HideAll(ctx context.Context) error {
	_, err := f.groupAction(ctx, "WinHide")
	return err
}

// ShowAll shows every matching window.
func (f Filter) ShowAll(ctx context.Context) error {
	_, err := f.groupAction(ctx, "WinShow")
	return err
}

// MaximizeAll maximizes every matching window.
func (f Filter) MaximizeAll(ctx context.Context) error {
	_, err := f.groupAction(ctx, "WinMaximize")
	return err
}

// MinimizeAll minimizes every matching window. On the unconstrained filter
// it minimizes all windows at once.
func (f Filter) MinimizeAll(ctx context.Context) error {
	_, err := f.groupAction(ctx, "WinMinimize")
	return err
}

// RestoreAll restores every matching window.
func (f Filter) RestoreAll(ctx context.Context) error {
	_, err := f.groupAction(ctx, "WinRestore")
	return err
}
