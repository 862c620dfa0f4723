package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window
}

// NewConnection connects to the X server named by display, or $DISPLAY
// when display is empty.
func NewConnection(display string) (*Connection, error) {
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11 display %q: %w", display, err)
	}

	// Initialize keybind module (required for global hotkeys)
	keybind.Initialize(xu)

	return &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}, nil
}

// EventLoop starts the main X11 event loop (blocking)
func (c *Connection) EventLoop() {
	xevent.Main(c.XUtil)
}

// Quit stops a running EventLoop.
func (c *Connection) Quit() {
	xevent.Quit(c.XUtil)
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}

// sendClientMessage sends a 32-bit client message about win to dest. Root
// window messages use the substructure masks the EWMH requires.
//
// The message is built by hand because the xgbutil ewmh request helpers
// panic on this library version (uint vs int type assertion).
func (c *Connection) sendClientMessage(dest, win xproto.Window, atomName string, data ...uint32) error {
	atom, err := xprop.Atm(c.XUtil, atomName)
	if err != nil {
		return fmt.Errorf("failed to intern %s: %w", atomName, err)
	}
	payload := make([]uint32, 5)
	copy(payload, data)
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   atom,
		Data:   xproto.ClientMessageDataUnionData32New(payload),
	}

	var mask uint32 = xproto.EventMaskNoEvent
	if dest == c.Root {
		mask = xproto.EventMaskSubstructureRedirect | xproto.EventMaskSubstructureNotify
	}
	return xproto.SendEventChecked(c.XUtil.Conn(), false, dest, mask, string(ev.Bytes())).Check()
}
