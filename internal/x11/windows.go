package x11

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/1broseidon/winquery/internal/backend"
	"github.com/1broseidon/winquery/internal/engine"
)

const (
	stateHidden   = "_NET_WM_STATE_HIDDEN"
	stateMaxHorz  = "_NET_WM_STATE_MAXIMIZED_HORZ"
	stateMaxVert  = "_NET_WM_STATE_MAXIMIZED_VERT"
	stateAbove    = "_NET_WM_STATE_ABOVE"
	opacityAtom   = "_NET_WM_WINDOW_OPACITY"
	wmStateRemove = 0
	wmStateAdd    = 1
)

// windowState is what _NET_WM_STATE and WM_STATE say about a window.
type windowState struct {
	minimized bool
	maxHorz   bool
	maxVert   bool
	above     bool
}

func parseStates(states []string, iconic bool) windowState {
	ws := windowState{minimized: iconic}
	for _, s := range states {
		switch s {
		case stateHidden:
			ws.minimized = true
		case stateMaxHorz:
			ws.maxHorz = true
		case stateMaxVert:
			ws.maxVert = true
		case stateAbove:
			ws.above = true
		}
	}
	return ws
}

func (ws windowState) engineState() engine.State {
	switch {
	case ws.minimized:
		return engine.StateMinimized
	case ws.maxHorz && ws.maxVert:
		return engine.StateMaximized
	}
	return engine.StateNormal
}

// alpha converts an EWMH opacity fraction to the 0..255 range.
func alpha(opacity float64) int {
	return int(math.Round(math.Max(0, math.Min(1, opacity)) * 255))
}

func (c *Connection) windowState(win xproto.Window) windowState {
	states, _ := ewmh.WmStateGet(c.XUtil, win)
	iconic := false
	if st, err := icccm.WmStateGet(c.XUtil, win); err == nil {
		iconic = st.State == icccm.StateIconic
	}
	return parseStates(states, iconic)
}

// windowRect returns the window geometry in root coordinates.
func (c *Connection) windowRect(win xproto.Window) (backend.Rect, bool) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return backend.Rect{}, false
	}

	translate, err := xproto.TranslateCoordinates(c.XUtil.Conn(), win, c.Root, 0, 0).Reply()
	if err != nil {
		return backend.Rect{}, false
	}

	return backend.Rect{
		X:      int(translate.DstX),
		Y:      int(translate.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, true
}

func (c *Connection) windowTitle(win xproto.Window) string {
	if title, err := ewmh.WmNameGet(c.XUtil, win); err == nil && strings.TrimSpace(title) != "" {
		return title
	}
	if title, err := icccm.WmNameGet(c.XUtil, win); err == nil {
		return title
	}
	return ""
}

func (c *Connection) windowClass(win xproto.Window) string {
	wmClass, err := icccm.WmClassGet(c.XUtil, win)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(wmClass.Class)
}

func (c *Connection) windowPID(win xproto.Window) int {
	pid, err := ewmh.WmPidGet(c.XUtil, win)
	if err != nil {
		return 0
	}
	return int(pid)
}

// exePath resolves a process executable through procfs.
func exePath(pid int) string {
	if pid <= 0 {
		return ""
	}
	path, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return ""
	}
	return path
}

func (c *Connection) mapped(win xproto.Window) bool {
	attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), win).Reply()
	if err != nil {
		return false
	}
	return attrs.MapState == xproto.MapStateViewable
}

func (c *Connection) opacity(win xproto.Window) (int, bool) {
	v, err := ewmh.WmWindowOpacityGet(c.XUtil, win)
	if err != nil {
		return 0, false
	}
	return alpha(v), true
}

func (c *Connection) children(win xproto.Window) []xproto.Window {
	tree, err := xproto.QueryTree(c.XUtil.Conn(), win).Reply()
	if err != nil {
		return nil
	}
	return tree.Children
}

// MoveResizeWindow moves and resizes a window to the specified geometry
func (c *Connection) MoveResizeWindow(win xproto.Window, r backend.Rect) error {
	// A maximized window ignores geometry requests in most window managers.
	_ = c.setMaximized(win, false)

	if err := ewmh.MoveresizeWindow(c.XUtil, win, r.X, r.Y, r.Width, r.Height); err != nil {
		// Fallback to direct window manipulation
		xwindow.New(c.XUtil, win).MoveResize(r.X, r.Y, r.Width, r.Height)
	}
	return nil
}

func (c *Connection) setMaximized(win xproto.Window, on bool) error {
	ws := c.windowState(win)
	if !on && !ws.maxHorz && !ws.maxVert {
		return nil
	}
	action := wmStateRemove
	if on {
		action = wmStateAdd
	}
	if err := ewmh.WmStateReq(c.XUtil, win, action, stateMaxHorz); err != nil {
		return err
	}
	return ewmh.WmStateReq(c.XUtil, win, action, stateMaxVert)
}

func (c *Connection) setAbove(win xproto.Window, on bool) error {
	action := wmStateRemove
	if on {
		action = wmStateAdd
	}
	return ewmh.WmStateReq(c.XUtil, win, action, stateAbove)
}

// FocusWindow activates and raises a window using _NET_ACTIVE_WINDOW.
func (c *Connection) FocusWindow(win xproto.Window) error {
	const sourceIndication = 2 // pager/direct action
	return c.sendClientMessage(c.Root, win, "_NET_ACTIVE_WINDOW", sourceIndication)
}

// ActiveWindow returns the focused client window, or 0 when the window
// manager does not publish one.
func (c *Connection) ActiveWindow() xproto.Window {
	win, err := ewmh.ActiveWindowGet(c.XUtil)
	if err != nil {
		return 0
	}
	return win
}

// minimizeWindow iconifies a window via WM_CHANGE_STATE.
func (c *Connection) minimizeWindow(win xproto.Window) error {
	return c.sendClientMessage(c.Root, win, "WM_CHANGE_STATE", icccm.StateIconic)
}

// closeWindow requests graceful window close via WM_DELETE_WINDOW.
func (c *Connection) closeWindow(win xproto.Window) error {
	deleteAtom, err := xprop.Atm(c.XUtil, "WM_DELETE_WINDOW")
	if err != nil {
		return err
	}
	return c.sendClientMessage(win, win, "WM_PROTOCOLS", uint32(deleteAtom))
}

func (c *Connection) killWindow(win xproto.Window) error {
	return xproto.KillClientChecked(c.XUtil.Conn(), uint32(win)).Check()
}

func (c *Connection) restack(win xproto.Window, mode uint32) error {
	return xproto.ConfigureWindowChecked(c.XUtil.Conn(), win, xproto.ConfigWindowStackMode, []uint32{mode}).Check()
}

func (c *Connection) setTitle(win xproto.Window, title string) error {
	if err := ewmh.WmNameSet(c.XUtil, win, title); err != nil {
		return err
	}
	return icccm.WmNameSet(c.XUtil, win, title)
}

func (c *Connection) setOpacity(win xproto.Window, on bool, value int) error {
	if on {
		return ewmh.WmWindowOpacitySet(c.XUtil, win, float64(value)/255)
	}
	atom, err := xprop.Atm(c.XUtil, opacityAtom)
	if err != nil {
		return err
	}
	return xproto.DeletePropertyChecked(c.XUtil.Conn(), win, atom).Check()
}
