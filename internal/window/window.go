package window

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/1broseidon/winquery/internal/backend"
)

// Window is a handle to one top-level window. The zero value is the
// invalid window.
type Window struct {
	handle
}

// IsActive reports whether the window has focus.
func (w Window) IsActive(ctx context.Context) (bool, error) {
	res, err := w.call(ctx, callOptions{}, "WinActive", w.title(), "", "", "")
	return res.Bool(), err
}

// Text returns the text of the window's controls.
func (w Window) Text(ctx context.Context) (string, bool, error) {
	res, err := w.call(ctx, callOptions{}, "WinGetText", w.include()...)
	if backend.IsCode(err, backend.CodeFailed) {
		if w.gone(ctx) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("there was a problem retrieving window text: %w", err)
	}
	if err != nil || res.Text == nil {
		return "", false, err
	}
	return *res.Text, true, nil
}

// Title returns the window title. An empty title is a valid value.
func (w Window) Title(ctx context.Context) (string, bool, error) {
	res, err := w.call(ctx, callOptions{}, "WinGetTitle", w.include()...)
	if err != nil {
		return "", false, err
	}
	exists, err := w.Exists(ctx)
	if err != nil || !exists {
		return "", false, err
	}
	return res.String(), true, nil
}

// SetTitle renames the window.
func (w Window) SetTitle(ctx context.Context, title string) error {
	_, err := w.call(ctx, callOptions{}, "WinSetTitle", append(w.include(), title)...)
	return err
}

// PID returns the owning process id.
func (w Window) PID(ctx context.Context) (int, bool, error) {
	res, err := w.get(ctx, "PID")
	v, ok := res.Integer()
	return int(v), ok && err == nil, err
}

func (w Window) getText(ctx context.Context, sub string) (string, bool, error) {
	res, err := w.get(ctx, sub)
	if err != nil || res.Empty() {
		return "", false, err
	}
	return res.String(), true, nil
}

// ProcessName returns the executable name.
func (w Window) ProcessName(ctx context.Context) (string, bool, error) {
	return w.getText(ctx, "ProcessName")
}

// ProcessPath returns the executable path.
func (w Window) ProcessPath(ctx context.Context) (string, bool, error) {
	return w.getText(ctx, "ProcessPath")
}

// minMax returns -1 when minimized, 1 when maximized and 0 otherwise.
func (w Window) minMax(ctx context.Context) (int, bool, error) {
	res, err := w.get(ctx, "MinMax")
	v, ok := res.Integer()
	return int(v), ok && err == nil, err
}

// IsMinimized reports whether the window is minimized.
func (w Window) IsMinimized(ctx context.Context) (bool, error) {
	v, ok, err := w.minMax(ctx)
	return ok && v == -1, err
}

// IsMaximized reports whether the window is maximized.
func (w Window) IsMaximized(ctx context.Context) (bool, error) {
	v, ok, err := w.minMax(ctx)
	return ok && v == 1, err
}

// IsRestored reports whether the window is neither minimized nor
// maximized.
func (w Window) IsRestored(ctx context.Context) (bool, error) {
	v, ok, err := w.minMax(ctx)
	return ok && v == 0, err
}

// SetMinimized minimizes or restores the window.
func (w Window) SetMinimized(ctx context.Context, minimized bool) error {
	if minimized {
		return w.Minimize(ctx)
	}
	return w.Restore(ctx)
}

// ToggleMinimized flips the minimized state. Absent windows are left
// alone.
func (w Window) ToggleMinimized(ctx context.Context) error {
	v, ok, err := w.minMax(ctx)
	if err != nil || !ok {
		return err
	}
	return w.SetMinimized(ctx, v != -1)
}

// SetMaximized maximizes or restores the window.
func (w Window) SetMaximized(ctx context.Context, maximized bool) error {
	if maximized {
		return w.Maximize(ctx)
	}
	return w.Restore(ctx)
}

// ToggleMaximized flips the maximized state.
func (w Window) ToggleMaximized(ctx context.Context) error {
	v, ok, err := w.minMax(ctx)
	if err != nil || !ok {
		return err
	}
	return w.SetMaximized(ctx, v != 1)
}

func (w Window) action(ctx context.Context, command string) error {
	_, err := w.call(ctx, callOptions{delay: true}, command, w.include()...)
	return err
}

// Maximize maximizes the window.
func (w Window) Maximize(ctx context.Context) error { return w.action(ctx, "WinMaximize") }

// Minimize minimizes the window.
func (w Window) Minimize(ctx context.Context) error { return w.action(ctx, "WinMinimize") }

// Restore restores the window.
func (w Window) Restore(ctx context.Context) error { return w.action(ctx, "WinRestore") }

// ControlClasses returns the ClassNN names of the window's controls.
func (w Window) ControlClasses(ctx context.Context) ([]string, error) {
	res, err := w.get(ctx, "ControlList")
	if err != nil {
		return nil, err
	}
	return res.Lines(), nil
}

// Controls returns handles for the window's controls.
func (w Window) Controls(ctx context.Context) ([]Control, error) {
	res, err := w.get(ctx, "ControlListHwnd")
	if err != nil {
		return nil, err
	}
	out := make([]Control, 0, len(res.IDs))
	for _, id := range res.IDs {
		out = append(out, Control{handle{id: id, session: w.session, control: true}})
	}
	return out, nil
}

// Control finds a control by ClassNN or by text compared with match. The
// invalid Control is returned when nothing matches.
func (w Window) Control(ctx context.Context, classOrText string, match MatchMode) (Control, error) {
	if match == "" {
		match = MatchPrefix
	}
	if !match.Valid() {
		return Control{}, &ConfigurationError{Field: "match", Value: string(match), Reason: "want prefix, contains, exact or regex"}
	}
	res, err := w.call(ctx, callOptions{match: match}, "ControlGet", append([]string{"Hwnd", "", classOrText}, w.include()...)...)
	if backend.IsCode(err, backend.CodeFailed) {
		return Control{}, nil
	}
	if err != nil {
		return Control{}, err
	}
	id, _ := res.Integer()
	return Control{handle{id: uint64(id), session: w.session, control: true}}, nil
}

// FocusedControl returns the control with keyboard focus.
func (w Window) FocusedControl(ctx context.Context) (Control, error) {
	res, err := w.call(ctx, callOptions{}, "ControlGetFocus", w.include()...)
	if backend.IsCode(err, backend.CodeFailed) {
		return Control{}, nil
	}
	if err != nil || res.Empty() {
		return Control{}, err
	}
	return w.Control(ctx, res.String(), MatchPrefix)
}

// AlwaysOnTop reports whether the window is pinned above others.
func (w Window) AlwaysOnTop(ctx context.Context) (bool, error) {
	s, ok, err := w.ExStyle(ctx)
	return ok && s.Has(ExStyleTopmost), err
}

// SetAlwaysOnTop pins or unpins the window.
func (w Window) SetAlwaysOnTop(ctx context.Context, on bool) error {
	if on {
		return w.PinToTop(ctx)
	}
	return w.UnpinFromTop(ctx)
}

func (w Window) set(ctx context.Context, sub, value string) error {
	_, err := w.call(ctx, callOptions{}, "WinSet", append([]string{sub, value}, w.include()...)...)
	return err
}

// PinToTop makes the window always on top.
func (w Window) PinToTop(ctx context.Context) error { return w.set(ctx, "AlwaysOnTop", "On") }

// UnpinFromTop clears always-on-top.
func (w Window) UnpinFromTop(ctx context.Context) error { return w.set(ctx, "AlwaysOnTop", "Off") }

// ToggleAlwaysOnTop flips always-on-top.
func (w Window) ToggleAlwaysOnTop(ctx context.Context) error {
	return w.set(ctx, "AlwaysOnTop", "Toggle")
}

// SendToBottom lowers the window below all others.
func (w Window) SendToBottom(ctx context.Context) error { return w.set(ctx, "Bottom", "") }

// BringToTop raises the window without activating it.
func (w Window) BringToTop(ctx context.Context) error { return w.set(ctx, "Top", "") }

// Redraw repaints the window.
func (w Window) Redraw(ctx context.Context) error { return w.set(ctx, "Redraw", "") }

// SetRegion clips the window to a region described in backend syntax.
func (w Window) SetRegion(ctx context.Context, options string) error {
	return w.set(ctx, "Region", options)
}

// ResetRegion removes a region set by SetRegion.
func (w Window) ResetRegion(ctx context.Context) error { return w.set(ctx, "Region", "") }

// Opacity returns the alpha level, or ok == false when the window is not
// translucent.
func (w Window) Opacity(ctx context.Context) (int, bool, error) {
	res, err := w.get(ctx, "Transparent")
	v, ok := res.Integer()
	return int(v), ok && err == nil, err
}

// SetOpacity sets the alpha level, 0 to 255.
func (w Window) SetOpacity(ctx context.Context, alpha int) error {
	if alpha < 0 || alpha > 255 {
		return &ConfigurationError{Field: "opacity", Value: alpha, Reason: "want 0..255"}
	}
	return w.set(ctx, "Transparent", strconv.Itoa(alpha))
}

// ClearOpacity makes the window opaque again.
func (w Window) ClearOpacity(ctx context.Context) error { return w.set(ctx, "Transparent", "Off") }

// RGB is a 24-bit color.
type RGB struct {
	R, G, B uint8
}

func (c RGB) hex() string { return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B) }

// TransparentColor returns the color rendered fully transparent.
func (w Window) TransparentColor(ctx context.Context) (RGB, bool, error) {
	res, err := w.get(ctx, "TransColor")
	v, ok := res.Integer()
	if err != nil || !ok {
		return RGB{}, false, err
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, true, nil
}

// SetTransparentColor renders c fully transparent.
func (w Window) SetTransparentColor(ctx context.Context, c RGB) error {
	return w.set(ctx, "TransColor", c.hex())
}

// ClearTransparentColor removes the transparent color.
func (w Window) ClearTransparentColor(ctx context.Context) error {
	return w.set(ctx, "TransColor", "Off")
}

// Activate focuses the window. With a positive timeout it waits for the
// window to become active and reports whether it did.
func (w Window) Activate(ctx context.Context, timeout time.Duration) (bool, error) {
	if w.id == 0 {
		return false, nil
	}
	if _, err := w.call(ctx, callOptions{}, "WinActivate", w.include()...); err != nil {
		return false, err
	}
	if timeout <= 0 {
		return true, nil
	}
	return w.WaitActive(ctx, timeout)
}

// StatusBarText returns the text of a status bar part, counted from 1.
func (w Window) StatusBarText(ctx context.Context, part int) (string, bool, error) {
	if part < 1 {
		part = 1
	}
	res, err := w.call(ctx, callOptions{}, "StatusBarGetText", append([]string{strconv.Itoa(part)}, w.include()...)...)
	if backend.IsCode(err, backend.CodeFailed) {
		if w.gone(ctx) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("status bar cannot be accessed: %w", err)
	}
	if err != nil || res.Text == nil {
		return "", false, err
	}
	return *res.Text, true, nil
}

// WaitStatusBar blocks until a status bar part shows text, matched with
// the prefix rule. An empty text waits for the part to become empty.
func (w Window) WaitStatusBar(ctx context.Context, text string, timeout time.Duration, part int, interval time.Duration) (bool, error) {
	if w.id == 0 {
		return false, nil
	}
	if part < 1 {
		part = 1
	}
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	inc := w.include()
	res, err := w.call(ctx, callOptions{}, "StatusBarWait",
		text, seconds(timeout), strconv.Itoa(part), inc[0], inc[1],
		strconv.FormatInt(interval.Milliseconds(), 10), "", "")
	if backend.IsCode(err, backend.CodeInaccessible) {
		if w.gone(ctx) {
			return false, nil
		}
		return false, fmt.Errorf("status bar cannot be accessed: %w", err)
	}
	if err != nil {
		return false, err
	}
	return !res.Bool(), nil
}

// closeWindow runs WinClose or WinKill. With a positive timeout it waits
// and reports whether the window is gone; otherwise it reports that the
// request was issued, since closing may finish asynchronously.
func (w Window) closeWindow(ctx context.Context, command string, timeout time.Duration) (bool, error) {
	if w.id == 0 {
		return true, nil
	}
	inc := w.include()
	if _, err := w.call(ctx, callOptions{}, command, inc[0], inc[1], seconds(timeout), "", ""); err != nil {
		return false, err
	}
	if timeout <= 0 {
		return true, nil
	}
	exists, err := w.Exists(ctx)
	return !exists, err
}

// Close asks the window to close.
func (w Window) Close(ctx context.Context, timeout time.Duration) (bool, error) {
	return w.closeWindow(ctx, "WinClose", timeout)
}

// Kill forcibly closes the window.
func (w Window) Kill(ctx context.Context, timeout time.Duration) (bool, error) {
	return w.closeWindow(ctx, "WinKill", timeout)
}

// wait runs a blocking wait on this window and reports whether it finished
// before the timeout. WinWaitActive and WinWaitNotActive write the last
// found window, so they hold the session lock for the whole call. Only
// WinWaitClose is dispatched and awaited outside the lock.
func (w Window) wait(ctx context.Context, opts callOptions, command string, timeout time.Duration) (bool, error) {
	inc := w.include()
	args := []string{inc[0], inc[1], seconds(timeout), "", ""}
	var (
		res backend.Result
		err error
	)
	if command == "WinWaitClose" {
		res, err = w.dispatch(ctx, opts, command, args...)
	} else {
		res, err = w.rawCall(ctx, opts, command, args...)
	}
	if err != nil {
		return false, err
	}
	return !res.Bool(), nil
}

// WaitActive blocks until the window is active.
func (w Window) WaitActive(ctx context.Context, timeout time.Duration) (bool, error) {
	if w.id == 0 {
		return false, nil
	}
	return w.wait(ctx, callOptions{}, "WinWaitActive", timeout)
}

// WaitInactive blocks until the window is not active.
func (w Window) WaitInactive(ctx context.Context, timeout time.Duration) (bool, error) {
	if w.id == 0 {
		return true, nil
	}
	return w.wait(ctx, callOptions{}, "WinWaitNotActive", timeout)
}

// WaitHidden blocks until the window is hidden or gone.
func (w Window) WaitHidden(ctx context.Context, timeout time.Duration) (bool, error) {
	if w.id == 0 {
		return true, nil
	}
	return w.wait(ctx, callOptions{visibleOnly: true}, "WinWaitClose", timeout)
}

// WaitClose blocks until the window is gone.
func (w Window) WaitClose(ctx context.Context, timeout time.Duration) (bool, error) {
	if w.id == 0 {
		return true, nil
	}
	return w.wait(ctx, callOptions{}, "WinWaitClose", timeout)
}
