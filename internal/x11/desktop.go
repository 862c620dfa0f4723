package x11

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/1broseidon/winquery/internal/engine"
)

// Desktop exposes an X11 display to the engine. Top-level windows are the
// EWMH managed clients; their child windows stand in for controls.
type Desktop struct {
	conn   *Connection
	logger *slog.Logger
}

var _ engine.Desktop = (*Desktop)(nil)

// NewDesktop wraps an existing connection.
func NewDesktop(conn *Connection, logger *slog.Logger) *Desktop {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Desktop{conn: conn, logger: logger}
}

// Connection returns the underlying connection.
func (d *Desktop) Connection() *Connection { return d.conn }

// Snapshot implements engine.Desktop.
func (d *Desktop) Snapshot() ([]engine.Node, error) {
	clients, err := ewmh.ClientListStackingGet(d.conn.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to get client list: %w", err)
	}
	// The stacking list runs bottom to top.
	slices.Reverse(clients)

	nodes := make([]engine.Node, 0, len(clients))
	for _, win := range clients {
		nodes = append(nodes, d.node(win))
	}
	return nodes, nil
}

func (d *Desktop) node(win xproto.Window) engine.Node {
	c := d.conn
	ws := c.windowState(win)
	pid := c.windowPID(win)
	n := engine.Node{
		ID:      uint64(win),
		Title:   c.windowTitle(win),
		Class:   c.windowClass(win),
		PID:     pid,
		ExePath: exePath(pid),
		Hidden:  !ws.minimized && !c.mapped(win),
		State:   ws.engineState(),
		Topmost: ws.above,
	}
	n.Rect, _ = c.windowRect(win)
	n.Opacity, n.HasOpacity = c.opacity(win)

	for _, child := range c.children(win) {
		ctl := engine.Node{
			ID:     uint64(child),
			Title:  c.windowTitle(child),
			Class:  c.windowClass(child),
			Hidden: !c.mapped(child),
		}
		ctl.Text = ctl.Title
		ctl.Rect, _ = c.windowRect(child)
		n.Controls = append(n.Controls, ctl)
	}
	return n
}

// Active implements engine.Desktop.
func (d *Desktop) Active() (uint64, error) {
	return uint64(d.conn.ActiveWindow()), nil
}

// Apply implements engine.Desktop.
func (d *Desktop) Apply(id uint64, a engine.Action) error {
	win := xproto.Window(id)
	c := d.conn
	var err error
	switch a.Kind {
	case engine.ActionActivate:
		err = c.FocusWindow(win)
	case engine.ActionClose:
		err = c.closeWindow(win)
	case engine.ActionKill:
		err = c.killWindow(win)
	case engine.ActionMinimize:
		err = c.minimizeWindow(win)
	case engine.ActionMaximize:
		err = c.setMaximized(win, true)
	case engine.ActionRestore:
		if c.windowState(win).minimized {
			err = c.FocusWindow(win)
		} else {
			err = c.setMaximized(win, false)
		}
	case engine.ActionHide:
		err = xproto.UnmapWindowChecked(c.XUtil.Conn(), win).Check()
	case engine.ActionShow:
		err = xproto.MapWindowChecked(c.XUtil.Conn(), win).Check()
	case engine.ActionMove:
		err = c.MoveResizeWindow(win, a.Rect)
	case engine.ActionSetTitle:
		err = c.setTitle(win, a.Text)
	case engine.ActionSetTopmost:
		err = c.setAbove(win, a.On)
	case engine.ActionRaise:
		err = c.restack(win, xproto.StackModeAbove)
	case engine.ActionLower:
		err = c.restack(win, xproto.StackModeBelow)
	case engine.ActionRedraw:
		err = xproto.ClearAreaChecked(c.XUtil.Conn(), true, win, 0, 0, 0, 0).Check()
	case engine.ActionSetOpacity:
		err = c.setOpacity(win, a.On, a.Value)
	default:
		return engine.ErrUnsupported
	}
	if err != nil {
		d.logger.Debug("x11 action failed", "window", id, "action", a.Kind, "error", err)
		var winErr xproto.WindowError
		if errors.As(err, &winErr) {
			return engine.ErrNotFound
		}
		return fmt.Errorf("%s window 0x%x: %w", a.Kind, id, err)
	}
	return nil
}

// Message implements engine.Desktop. X11 has no window message queue.
func (d *Desktop) Message(id uint64, m engine.Message) (int64, error) {
	return 0, engine.ErrUnsupported
}
