// Package window queries and manipulates desktop windows and their controls
// through a backend session.
//
// A Filter describes a set of windows; Window and Control are handles to a
// single window or control. Every operation that configures the backend and
// then issues a command does so inside one critical section of the shared
// backend.Session, so concurrent callers never observe each other's
// configuration. Per-caller delays come from the settings.Store carried on
// the context.
package window

import (
	"context"
	"strconv"
	"time"

	"github.com/1broseidon/winquery/internal/backend"
	"github.com/1broseidon/winquery/internal/settings"
)

// Client is the entry point for window queries.
type Client struct {
	session *backend.Session
}

// NewClient returns a client bound to s.
func NewClient(s *backend.Session) *Client {
	return &Client{session: s}
}

// Session returns the backend session.
func (c *Client) Session() *backend.Session { return c.session }

// Windows returns the filter matching every visible window.
func (c *Client) Windows() Filter { return newFilter(c.session) }

// AllWindows returns the filter matching every window, hidden ones
// included.
func (c *Client) AllWindows() Filter { return newFilter(c.session).IncludeHiddenWindows(true) }

// Window returns a handle for a known window id.
func (c *Client) Window(id uint64) Window {
	return Window{handle{id: id, session: c.session}}
}

// Control returns a handle for a known control id.
func (c *Client) Control(id uint64) Control {
	return Control{handle{id: id, session: c.session, control: true}}
}

func onOff(b bool) string {
	if b {
		return "On"
	}
	return "Off"
}

// seconds formats a timeout argument. Non-positive timeouts are sent blank,
// which the backend treats as no limit.
func seconds(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

func setTitleMatchMode(tx *backend.Tx, m MatchMode) error {
	arg, err := m.backendArg()
	if err != nil {
		return err
	}
	_, err = tx.Invoke("SetTitleMatchMode", arg)
	return err
}

func setWinDelay(ctx context.Context, tx *backend.Tx) error {
	_, err := tx.Invoke("SetWinDelay", settings.Milliseconds(settings.FromContext(ctx).WinDelay))
	return err
}

func setControlDelay(ctx context.Context, tx *backend.Tx) error {
	_, err := tx.Invoke("SetControlDelay", settings.Milliseconds(settings.FromContext(ctx).ControlDelay))
	return err
}

func setKeyDelay(ctx context.Context, tx *backend.Tx) error {
	s := settings.FromContext(ctx)
	_, err := tx.Invoke("SetKeyDelay", settings.Milliseconds(s.KeyDelay), settings.Milliseconds(s.KeyDuration))
	return err
}

// Condition is a guard predicate evaluated on demand, outside any lock.
type Condition func(ctx context.Context) bool
