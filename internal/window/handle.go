package window

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/1broseidon/winquery/internal/backend"
)

// Rect is a screen rectangle.
type Rect = backend.Rect

// Handle is the behavior shared by Window and Control.
type Handle interface {
	ID() uint64
	Valid() bool
	Exists(ctx context.Context) (bool, error)
	ClassName(ctx context.Context) (string, bool, error)
	Style(ctx context.Context) (WindowStyle, bool, error)
	ExStyle(ctx context.Context) (ExWindowStyle, bool, error)
	Rect(ctx context.Context) (Rect, bool, error)
	Move(ctx context.Context, opts MoveOptions) error
	IsEnabled(ctx context.Context) (bool, error)
	IsVisible(ctx context.Context) (bool, error)
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Show(ctx context.Context) error
	Hide(ctx context.Context) error
	Send(ctx context.Context, keys string) error
	SendMessage(ctx context.Context, msg uint32, wParam, lParam int64, timeout time.Duration) (int64, bool, error)
	PostMessage(ctx context.Context, msg uint32, wParam, lParam int64) (bool, error)
}

var (
	_ Handle = Window{}
	_ Handle = Control{}
)

// MoveOptions selects the geometry to change. Unset fields keep their
// current value.
type MoveOptions struct {
	X      Field[int]
	Y      Field[int]
	Width  Field[int]
	Height Field[int]
}

// handle is the state and behavior common to windows and controls. The
// zero id is the invalid sentinel: operations on it return neutral values
// without contacting the backend.
type handle struct {
	id      uint64
	session *backend.Session
	control bool
}

// callOptions tune the backend configuration for one handle command.
type callOptions struct {
	visibleOnly bool
	match       MatchMode
	delay       bool
}

func (h handle) ID() uint64 { return h.id }

// Valid reports whether the handle refers to a window at all. It does not
// check that the window still exists.
func (h handle) Valid() bool { return h.id != 0 }

func (h handle) title() string { return "ahk_id " + strconv.FormatUint(h.id, 10) }

// include returns the (title, text) pair addressing this handle.
func (h handle) include() []string { return []string{h.title(), ""} }

func (h handle) callLocked(ctx context.Context, tx *backend.Tx, opts callOptions, command string, args ...string) (backend.Result, error) {
	if _, err := tx.Invoke("DetectHiddenWindows", onOff(!opts.visibleOnly)); err != nil {
		return backend.Result{}, err
	}
	if opts.match != "" {
		if err := setTitleMatchMode(tx, opts.match); err != nil {
			return backend.Result{}, err
		}
	}
	if opts.delay {
		set := setWinDelay
		if h.control {
			set = setControlDelay
		}
		if err := set(ctx, tx); err != nil {
			return backend.Result{}, err
		}
	}
	return tx.Invoke(command, args...)
}

// rawCall runs one command without failure translation.
func (h handle) rawCall(ctx context.Context, opts callOptions, command string, args ...string) (backend.Result, error) {
	if h.id == 0 {
		return backend.Result{}, nil
	}
	var res backend.Result
	err := h.session.Do(ctx, func(tx *backend.Tx) error {
		var err error
		res, err = h.callLocked(ctx, tx, opts, command, args...)
		return err
	})
	return res, err
}

// call runs one command. For controls, a generic failure on a control that
// no longer exists becomes a blank result.
func (h handle) call(ctx context.Context, opts callOptions, command string, args ...string) (backend.Result, error) {
	res, err := h.rawCall(ctx, opts, command, args...)
	if err != nil && h.control && backend.IsCode(err, backend.CodeFailed) && h.gone(ctx) {
		return backend.Result{}, nil
	}
	return res, err
}

// gone reports whether a secondary check confirms the target is gone. An
// error during the check counts as not confirmed.
func (h handle) gone(ctx context.Context) bool {
	exists, err := h.Exists(ctx)
	return err == nil && !exists
}

// dispatch configures the backend and dispatches a blocking command; the
// caller waits for it after the session lock is released.
func (h handle) dispatch(ctx context.Context, opts callOptions, command string, args ...string) (backend.Result, error) {
	var p backend.Pending
	err := h.session.Do(ctx, func(tx *backend.Tx) error {
		if _, err := tx.Invoke("DetectHiddenWindows", onOff(!opts.visibleOnly)); err != nil {
			return err
		}
		if err := setWinDelay(ctx, tx); err != nil {
			return err
		}
		var err error
		p, err = tx.Dispatch(command, args...)
		return err
	})
	if err != nil {
		return backend.Result{}, err
	}
	return p.Wait()
}

// Exists reports whether the target still exists, hidden or not.
func (h handle) Exists(ctx context.Context) (bool, error) {
	res, err := h.rawCall(ctx, callOptions{}, "WinExist", h.title(), "", "", "")
	if err != nil {
		return false, err
	}
	return res.Bool(), nil
}

func (h handle) String() string {
	kind := "Window"
	if h.control {
		kind = "Control"
	}
	return fmt.Sprintf("%s(id=%d)", kind, h.id)
}

// get reads an integer property through WinGet or ControlGet.
func (h handle) get(ctx context.Context, sub string) (backend.Result, error) {
	if h.control {
		return h.call(ctx, callOptions{}, "ControlGet", append([]string{sub, "", ""}, h.include()...)...)
	}
	return h.call(ctx, callOptions{}, "WinGet", append([]string{sub}, h.include()...)...)
}

// Style returns the style bits.
func (h handle) Style(ctx context.Context) (WindowStyle, bool, error) {
	res, err := h.get(ctx, "Style")
	v, ok := res.Integer()
	return WindowStyle(v), ok && err == nil, err
}

// ExStyle returns the extended style bits.
func (h handle) ExStyle(ctx context.Context) (ExWindowStyle, bool, error) {
	res, err := h.get(ctx, "ExStyle")
	v, ok := res.Integer()
	return ExWindowStyle(v), ok && err == nil, err
}

func (h handle) setStyle(ctx context.Context, sub string, value uint32) error {
	_, err := h.call(ctx, callOptions{}, "WinSet", append([]string{sub, fmt.Sprintf("0x%X", value)}, h.include()...)...)
	return err
}

// SetStyle replaces the style bits.
func (h handle) SetStyle(ctx context.Context, s WindowStyle) error {
	return h.setStyle(ctx, "Style", uint32(s))
}

// SetExStyle replaces the extended style bits.
func (h handle) SetExStyle(ctx context.Context, s ExWindowStyle) error {
	return h.setStyle(ctx, "ExStyle", uint32(s))
}

// ClassName returns the window class.
func (h handle) ClassName(ctx context.Context) (string, bool, error) {
	res, err := h.call(ctx, callOptions{}, "WinGetClass", h.include()...)
	if err != nil || res.Text == nil || *res.Text == "" {
		return "", false, err
	}
	return *res.Text, true, nil
}

// Rect returns the bounding rectangle.
func (h handle) Rect(ctx context.Context) (Rect, bool, error) {
	var (
		res backend.Result
		err error
	)
	if h.control {
		res, err = h.call(ctx, callOptions{}, "ControlGetPos", append([]string{""}, h.include()...)...)
	} else {
		res, err = h.call(ctx, callOptions{}, "WinGetPos", h.include()...)
	}
	if err != nil || res.Rect == nil {
		return Rect{}, false, err
	}
	return *res.Rect, true, nil
}

// Position returns the top-left corner.
func (h handle) Position(ctx context.Context) (x, y int, ok bool, err error) {
	r, ok, err := h.Rect(ctx)
	return r.X, r.Y, ok, err
}

// Size returns the width and height.
func (h handle) Size(ctx context.Context) (width, height int, ok bool, err error) {
	r, ok, err := h.Rect(ctx)
	return r.Width, r.Height, ok, err
}

// X returns the left edge.
func (h handle) X(ctx context.Context) (int, bool, error) {
	r, ok, err := h.Rect(ctx)
	return r.X, ok, err
}

// Y returns the top edge.
func (h handle) Y(ctx context.Context) (int, bool, error) {
	r, ok, err := h.Rect(ctx)
	return r.Y, ok, err
}

// Width returns the width.
func (h handle) Width(ctx context.Context) (int, bool, error) {
	r, ok, err := h.Rect(ctx)
	return r.Width, ok, err
}

// Height returns the height.
func (h handle) Height(ctx context.Context) (int, bool, error) {
	r, ok, err := h.Rect(ctx)
	return r.Height, ok, err
}

func intArg(f Field[int]) string {
	if v, ok := f.Get(); ok {
		return strconv.Itoa(v)
	}
	return ""
}

// Move changes any of the position and size.
func (h handle) Move(ctx context.Context, opts MoveOptions) error {
	geom := []string{intArg(opts.X), intArg(opts.Y), intArg(opts.Width), intArg(opts.Height)}
	var err error
	if h.control {
		args := append([]string{""}, geom...)
		_, err = h.call(ctx, callOptions{delay: true}, "ControlMove", append(args, h.include()...)...)
	} else {
		args := append(h.include(), geom...)
		_, err = h.call(ctx, callOptions{delay: true}, "WinMove", args...)
	}
	return err
}

// SetRect moves and resizes in one step.
func (h handle) SetRect(ctx context.Context, r Rect) error {
	return h.Move(ctx, MoveOptions{X: Is(r.X), Y: Is(r.Y), Width: Is(r.Width), Height: Is(r.Height)})
}

// SetPosition moves the top-left corner.
func (h handle) SetPosition(ctx context.Context, x, y int) error {
	return h.Move(ctx, MoveOptions{X: Is(x), Y: Is(y)})
}

// SetSize resizes.
func (h handle) SetSize(ctx context.Context, width, height int) error {
	return h.Move(ctx, MoveOptions{Width: Is(width), Height: Is(height)})
}

// SetX moves the left edge.
func (h handle) SetX(ctx context.Context, x int) error { return h.Move(ctx, MoveOptions{X: Is(x)}) }

// SetY moves the top edge.
func (h handle) SetY(ctx context.Context, y int) error { return h.Move(ctx, MoveOptions{Y: Is(y)}) }

// SetWidth resizes horizontally.
func (h handle) SetWidth(ctx context.Context, w int) error {
	return h.Move(ctx, MoveOptions{Width: Is(w)})
}

// SetHeight resizes vertically.
func (h handle) SetHeight(ctx context.Context, height int) error {
	return h.Move(ctx, MoveOptions{Height: Is(height)})
}

// IsEnabled reports whether input is enabled. Absent targets report false.
func (h handle) IsEnabled(ctx context.Context) (bool, error) {
	s, ok, err := h.Style(ctx)
	return ok && !s.Has(StyleDisabled), err
}

// SetEnabled enables or disables the target.
func (h handle) SetEnabled(ctx context.Context, enabled bool) error {
	if enabled {
		return h.Enable(ctx)
	}
	return h.Disable(ctx)
}

// IsVisible reports whether the visible style bit is set.
func (h handle) IsVisible(ctx context.Context) (bool, error) {
	s, ok, err := h.Style(ctx)
	return ok && s.Has(StyleVisible), err
}

// SetVisible shows or hides the target.
func (h handle) SetVisible(ctx context.Context, visible bool) error {
	if visible {
		return h.Show(ctx)
	}
	return h.Hide(ctx)
}

func (h handle) controlCommand(ctx context.Context, sub, value string) error {
	_, err := h.call(ctx, callOptions{delay: true}, "Control", append([]string{sub, value, ""}, h.include()...)...)
	return err
}

// Enable enables input.
func (h handle) Enable(ctx context.Context) error {
	if h.control {
		return h.controlCommand(ctx, "Enable", "")
	}
	_, err := h.call(ctx, callOptions{}, "WinSet", append([]string{"Enable", ""}, h.include()...)...)
	return err
}

// Disable disables input.
func (h handle) Disable(ctx context.Context) error {
	if h.control {
		return h.controlCommand(ctx, "Disable", "")
	}
	_, err := h.call(ctx, callOptions{}, "WinSet", append([]string{"Disable", ""}, h.include()...)...)
	return err
}

// Show makes the target visible.
func (h handle) Show(ctx context.Context) error {
	if h.control {
		return h.controlCommand(ctx, "Show", "")
	}
	_, err := h.call(ctx, callOptions{delay: true}, "WinShow", h.include()...)
	return err
}

// Hide hides the target.
func (h handle) Hide(ctx context.Context) error {
	if h.control {
		return h.controlCommand(ctx, "Hide", "")
	}
	_, err := h.call(ctx, callOptions{delay: true}, "WinHide", h.include()...)
	return err
}

// Send delivers keystrokes to the target. Nothing happens if it no longer
// exists.
func (h handle) Send(ctx context.Context, keys string) error {
	if h.id == 0 {
		return nil
	}
	err := h.session.Do(ctx, func(tx *backend.Tx) error {
		if _, err := tx.Invoke("DetectHiddenWindows", "On"); err != nil {
			return err
		}
		if err := setKeyDelay(ctx, tx); err != nil {
			return err
		}
		_, err := tx.Invoke("ControlSend", append([]string{"", keys}, h.include()...)...)
		return err
	})
	if backend.IsCode(err, backend.CodeFailed) && h.gone(ctx) {
		return nil
	}
	return err
}

// sendMessage sends a message and waits for the reply. A delivery failure
// on a vanished target yields ok == false.
func (h handle) sendMessage(ctx context.Context, msg uint32, wParam, lParam int64, text *string, timeout time.Duration) (int64, bool, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	inc := h.include()
	args := []string{
		strconv.FormatUint(uint64(msg), 10),
		strconv.FormatInt(wParam, 10),
		strconv.FormatInt(lParam, 10),
		"", inc[0], inc[1], "", "",
		strconv.FormatInt(timeout.Milliseconds(), 10),
	}
	if text != nil {
		args = append(args, *text)
	}
	res, err := h.call(ctx, callOptions{}, "SendMessage", args...)
	if backend.IsCode(err, backend.CodeMessageFailed) {
		if h.gone(ctx) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("there was a problem sending message or response timed out: %w", err)
	}
	if err != nil {
		return 0, false, err
	}
	v, ok := res.Integer()
	return v, ok, nil
}

// SendMessage sends a window message and returns the reply. A
// non-positive timeout uses five seconds.
func (h handle) SendMessage(ctx context.Context, msg uint32, wParam, lParam int64, timeout time.Duration) (int64, bool, error) {
	return h.sendMessage(ctx, msg, wParam, lParam, nil, timeout)
}

// PostMessage queues a window message and reports whether it was accepted.
func (h handle) PostMessage(ctx context.Context, msg uint32, wParam, lParam int64) (bool, error) {
	if h.id == 0 {
		return false, nil
	}
	inc := h.include()
	_, err := h.rawCall(ctx, callOptions{}, "PostMessage",
		strconv.FormatUint(uint64(msg), 10),
		strconv.FormatInt(wParam, 10),
		strconv.FormatInt(lParam, 10),
		"", inc[0], inc[1], "", "")
	if err == nil {
		return true, nil
	}
	if (backend.IsCode(err, backend.CodeFailed) || backend.IsCode(err, backend.CodeMessageFailed)) && h.gone(ctx) {
		return false, nil
	}
	return false, err
}
