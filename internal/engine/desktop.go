package engine

import (
	"errors"
	"time"

	"github.com/1broseidon/winquery/internal/backend"
)

var (
	// ErrNotFound is returned by a Desktop when the addressed window is gone.
	ErrNotFound = errors.New("engine: window not found")
	// ErrUnsupported is returned by a Desktop that cannot perform an action.
	ErrUnsupported = errors.New("engine: not supported by this desktop")
)

// Desktop is the window system the engine drives.
type Desktop interface {
	// Snapshot returns top-level windows front to back, hidden ones
	// included, each with its child controls.
	Snapshot() ([]Node, error)
	// Active returns the id of the focused top-level window, or 0.
	Active() (uint64, error)
	Apply(id uint64, a Action) error
	Message(id uint64, m Message) (int64, error)
}

// State is a window's min/max state.
type State int

const (
	StateNormal State = iota
	StateMinimized
	StateMaximized
)

// Item is one entry of a list control. List boxes and combo boxes use a
// single column.
type Item struct {
	Columns  []string `json:"columns"`
	Selected bool     `json:"selected,omitempty"`
	Focused  bool     `json:"focused,omitempty"`
}

// Node is a window or a control as seen by the engine. The zero value is a
// visible, enabled, normal window.
type Node struct {
	ID      uint64
	Title   string
	Text    string
	Class   string
	PID     int
	ExePath string

	Hidden   bool
	Disabled bool
	State    State
	Topmost  bool
	Rect     backend.Rect
	Style    uint32
	ExStyle  uint32
	Region   string

	Opacity       int
	HasOpacity    bool
	TransColor    int
	HasTransColor bool

	// Control state.
	Focused   bool
	Checked   bool
	CaretLine int
	CaretCol  int
	Selection string
	Items     []Item
	Parts     []string

	// IgnoreClose makes the window survive a close request, the way a
	// window with an unsaved-changes prompt does.
	IgnoreClose bool

	Controls []Node
}

func (n Node) clone() Node {
	c := n
	if n.Items != nil {
		c.Items = make([]Item, len(n.Items))
		for i, it := range n.Items {
			c.Items[i] = it
			c.Items[i].Columns = append([]string(nil), it.Columns...)
		}
	}
	c.Parts = append([]string(nil), n.Parts...)
	if n.Controls != nil {
		c.Controls = make([]Node, len(n.Controls))
		for i, ctl := range n.Controls {
			c.Controls[i] = ctl.clone()
		}
	}
	return c
}

// ActionKind names a state change requested through Desktop.Apply.
type ActionKind int

const (
	ActionActivate ActionKind = iota + 1
	ActionClose
	ActionKill
	ActionMinimize
	ActionMaximize
	ActionRestore
	ActionHide
	ActionShow
	ActionMove
	ActionSetTitle
	ActionSetText
	ActionSetTopmost
	ActionRaise
	ActionLower
	ActionEnable
	ActionDisable
	ActionRedraw
	ActionSetStyle
	ActionSetExStyle
	ActionSetRegion
	ActionSetOpacity
	ActionSetTransColor
	ActionCheck
	ActionUncheck
	ActionFocus
	ActionPaste
	ActionChoose
	ActionSendKeys
)

var actionNames = map[ActionKind]string{
	ActionActivate:      "activate",
	ActionClose:         "close",
	ActionKill:          "kill",
	ActionMinimize:      "minimize",
	ActionMaximize:      "maximize",
	ActionRestore:       "restore",
	ActionHide:          "hide",
	ActionShow:          "show",
	ActionMove:          "move",
	ActionSetTitle:      "set-title",
	ActionSetText:       "set-text",
	ActionSetTopmost:    "set-topmost",
	ActionRaise:         "raise",
	ActionLower:         "lower",
	ActionEnable:        "enable",
	ActionDisable:       "disable",
	ActionRedraw:        "redraw",
	ActionSetStyle:      "set-style",
	ActionSetExStyle:    "set-exstyle",
	ActionSetRegion:     "set-region",
	ActionSetOpacity:    "set-opacity",
	ActionSetTransColor: "set-transcolor",
	ActionCheck:         "check",
	ActionUncheck:       "uncheck",
	ActionFocus:         "focus",
	ActionPaste:         "paste",
	ActionChoose:        "choose",
	ActionSendKeys:      "send-keys",
}

func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return "unknown"
}

// Action is one state change. Rect is complete for ActionMove; Value holds
// styles, opacity, colors and 0-based list indexes; On toggles topmost,
// opacity and transparent color.
type Action struct {
	Kind  ActionKind
	Rect  backend.Rect
	Text  string
	Value int
	On    bool
}

// Message is a window message. LParamText replaces LParam with a string
// pointer when HasText is set.
type Message struct {
	Msg        uint32
	WParam     int64
	LParam     int64
	LParamText string
	HasText    bool
	Post       bool
	Timeout    time.Duration
}

// Window style bits the engine derives from node state.
const (
	styleMaximize uint32 = 0x01000000
	styleDisabled uint32 = 0x08000000
	styleVisible  uint32 = 0x10000000
	styleMinimize uint32 = 0x20000000

	exStyleTopmost uint32 = 0x00000008

	derivedStyle = styleMaximize | styleDisabled | styleVisible | styleMinimize
)

func nodeStyle(n *Node) uint32 {
	s := n.Style &^ derivedStyle
	if !n.Hidden {
		s |= styleVisible
	}
	if n.Disabled {
		s |= styleDisabled
	}
	switch n.State {
	case StateMinimized:
		s |= styleMinimize
	case StateMaximized:
		s |= styleMaximize
	}
	return s
}

func nodeExStyle(n *Node) uint32 {
	s := n.ExStyle &^ exStyleTopmost
	if n.Topmost {
		s |= exStyleTopmost
	}
	return s
}
