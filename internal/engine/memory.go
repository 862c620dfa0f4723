package engine

import (
	"strings"
	"sync"
)

// List control messages answered by MemoryDesktop.
const (
	cbGetCount        = 0x146
	cbGetCurSel       = 0x147
	cbFindStringExact = 0x158
	lbGetCurSel       = 0x188
	lbGetCount        = 0x18B
	lbFindStringExact = 0x1A2
)

// MessageHandler answers window messages MemoryDesktop does not handle
// itself.
type MessageHandler func(id uint64, m Message) (int64, error)

// MemoryDesktop is an in-process Desktop. It is safe for concurrent use.
type MemoryDesktop struct {
	mu      sync.Mutex
	nodes   []Node
	active  uint64
	nextID  uint64
	sent    map[uint64][]string
	handler MessageHandler
}

var _ Desktop = (*MemoryDesktop)(nil)

// NewMemoryDesktop returns an empty desktop.
func NewMemoryDesktop() *MemoryDesktop {
	return &MemoryDesktop{nextID: 0x10000, sent: make(map[uint64][]string)}
}

// Add places n in front of every other window and returns its id. Zero ids
// on the window and its controls are assigned.
func (d *MemoryDesktop) Add(n Node) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	n = n.clone()
	if n.ID == 0 {
		n.ID = d.newID()
	}
	for i := range n.Controls {
		if n.Controls[i].ID == 0 {
			n.Controls[i].ID = d.newID()
		}
	}
	d.nodes = append([]Node{n}, d.nodes...)
	return n.ID
}

func (d *MemoryDesktop) newID() uint64 {
	d.nextID += 0x10
	return d.nextID
}

// Remove deletes a window or control.
func (d *MemoryDesktop) Remove(id uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.remove(id)
}

func (d *MemoryDesktop) remove(id uint64) bool {
	for i := range d.nodes {
		if d.nodes[i].ID == id {
			d.nodes = append(d.nodes[:i], d.nodes[i+1:]...)
			if d.active == id {
				d.pickActive()
			}
			return true
		}
		ctls := d.nodes[i].Controls
		for j := range ctls {
			if ctls[j].ID == id {
				d.nodes[i].Controls = append(ctls[:j], ctls[j+1:]...)
				return true
			}
		}
	}
	return false
}

// Update runs fn on the window or control with the given id.
func (d *MemoryDesktop) Update(id uint64, fn func(*Node)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, _ := d.locate(id)
	if n == nil {
		return false
	}
	fn(n)
	return true
}

// Node returns a copy of the window or control with the given id.
func (d *MemoryDesktop) Node(id uint64) (Node, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, _ := d.locate(id)
	if n == nil {
		return Node{}, false
	}
	return n.clone(), true
}

// SetActive focuses a top-level window and raises it.
func (d *MemoryDesktop) SetActive(id uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.activate(id)
}

// SetMessageHandler installs h for messages the desktop does not answer.
func (d *MemoryDesktop) SetMessageHandler(h MessageHandler) {
	d.mu.Lock()
	d.handler = h
	d.mu.Unlock()
}

// SentKeys returns the keystrokes delivered to id.
func (d *MemoryDesktop) SentKeys(id uint64) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.sent[id]...)
}

// Snapshot implements Desktop.
func (d *MemoryDesktop) Snapshot() ([]Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Node, len(d.nodes))
	for i, n := range d.nodes {
		out[i] = n.clone()
	}
	return out, nil
}

// Active implements Desktop.
func (d *MemoryDesktop) Active() (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active, nil
}

// locate returns the node and, for controls, its parent.
func (d *MemoryDesktop) locate(id uint64) (*Node, *Node) {
	for i := range d.nodes {
		top := &d.nodes[i]
		if top.ID == id {
			return top, nil
		}
		for j := range top.Controls {
			if top.Controls[j].ID == id {
				return &top.Controls[j], top
			}
		}
	}
	return nil, nil
}

func (d *MemoryDesktop) index(id uint64) int {
	for i := range d.nodes {
		if d.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *MemoryDesktop) raise(id uint64) {
	i := d.index(id)
	if i <= 0 {
		return
	}
	n := d.nodes[i]
	copy(d.nodes[1:i+1], d.nodes[:i])
	d.nodes[0] = n
}

func (d *MemoryDesktop) lower(id uint64) {
	i := d.index(id)
	if i < 0 || i == len(d.nodes)-1 {
		return
	}
	n := d.nodes[i]
	copy(d.nodes[i:], d.nodes[i+1:])
	d.nodes[len(d.nodes)-1] = n
}

func (d *MemoryDesktop) activate(id uint64) bool {
	i := d.index(id)
	if i < 0 {
		return false
	}
	if d.nodes[i].State == StateMinimized {
		d.nodes[i].State = StateNormal
	}
	d.raise(id)
	d.active = id
	return true
}

// pickActive focuses the front-most visible, non-minimized window.
func (d *MemoryDesktop) pickActive() {
	d.active = 0
	for _, n := range d.nodes {
		if !n.Hidden && n.State != StateMinimized {
			d.active = n.ID
			return
		}
	}
}

// Apply implements Desktop.
func (d *MemoryDesktop) Apply(id uint64, a Action) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, parent := d.locate(id)
	if n == nil {
		return ErrNotFound
	}
	switch a.Kind {
	case ActionActivate:
		if parent != nil {
			d.activate(parent.ID)
		} else {
			d.activate(id)
		}
	case ActionClose:
		if !n.IgnoreClose {
			d.remove(id)
		}
	case ActionKill:
		d.remove(id)
	case ActionMinimize:
		n.State = StateMinimized
		if d.active == id {
			d.pickActive()
		}
	case ActionMaximize:
		n.State = StateMaximized
	case ActionRestore:
		n.State = StateNormal
	case ActionHide:
		n.Hidden = true
		if d.active == id {
			d.pickActive()
		}
	case ActionShow:
		n.Hidden = false
	case ActionMove:
		n.Rect = a.Rect
	case ActionSetTitle:
		n.Title = a.Text
	case ActionSetText:
		n.Text = a.Text
	case ActionSetTopmost:
		n.Topmost = a.On
	case ActionRaise:
		d.raise(id)
	case ActionLower:
		d.lower(id)
	case ActionEnable:
		n.Disabled = false
	case ActionDisable:
		n.Disabled = true
	case ActionRedraw:
	case ActionSetStyle:
		v := uint32(a.Value)
		n.Style = v &^ derivedStyle
		n.Hidden = v&styleVisible == 0
		n.Disabled = v&styleDisabled != 0
	case ActionSetExStyle:
		v := uint32(a.Value)
		n.ExStyle = v &^ exStyleTopmost
		n.Topmost = v&exStyleTopmost != 0
	case ActionSetRegion:
		n.Region = a.Text
	case ActionSetOpacity:
		n.HasOpacity, n.Opacity = a.On, a.Value
	case ActionSetTransColor:
		n.HasTransColor, n.TransColor = a.On, a.Value
	case ActionCheck:
		n.Checked = true
	case ActionUncheck:
		n.Checked = false
	case ActionFocus:
		if parent != nil {
			for i := range parent.Controls {
				parent.Controls[i].Focused = parent.Controls[i].ID == id
			}
		}
	case ActionPaste:
		n.Text += a.Text
	case ActionChoose:
		if a.Value < 0 || a.Value >= len(n.Items) {
			return ErrNotFound
		}
		for i := range n.Items {
			n.Items[i].Selected = i == a.Value
			n.Items[i].Focused = i == a.Value
		}
	case ActionSendKeys:
		d.sent[id] = append(d.sent[id], a.Text)
	default:
		return ErrUnsupported
	}
	return nil
}

// Message implements Desktop. List box and combo box queries are answered
// from the node's items; other messages go to the handler, or return 0.
func (d *MemoryDesktop) Message(id uint64, m Message) (int64, error) {
	d.mu.Lock()
	n, _ := d.locate(id)
	if n == nil {
		d.mu.Unlock()
		return 0, ErrNotFound
	}
	switch m.Msg {
	case cbGetCount, lbGetCount:
		v := int64(len(n.Items))
		d.mu.Unlock()
		return v, nil
	case cbGetCurSel, lbGetCurSel:
		v := int64(-1)
		for i, it := range n.Items {
			if it.Selected {
				v = int64(i)
				break
			}
		}
		d.mu.Unlock()
		return v, nil
	case cbFindStringExact, lbFindStringExact:
		v := int64(-1)
		for i, it := range n.Items {
			if int64(i) <= m.WParam {
				continue
			}
			if len(it.Columns) > 0 && strings.EqualFold(it.Columns[0], m.LParamText) {
				v = int64(i)
				break
			}
		}
		d.mu.Unlock()
		return v, nil
	}
	h := d.handler
	d.mu.Unlock()
	if h == nil {
		return 0, nil
	}
	return h(id, m)
}
