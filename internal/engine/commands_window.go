package engine

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/1broseidon/winquery/internal/backend"
)

// Window query arguments are (title, text, excludeTitle, excludeText).

func winExist(c *call) (backend.Result, error) {
	w, err := c.snapshot()
	if err != nil {
		return backend.Result{}, err
	}
	nodes, _, err := c.match(w, 0, 2)
	if err != nil {
		return backend.Result{}, err
	}
	if len(nodes) == 0 {
		return backend.IntResult(0), nil
	}
	c.setLastFound(nodes[0].ID)
	return backend.IntResult(int64(nodes[0].ID)), nil
}

func winActive(c *call) (backend.Result, error) {
	w, err := c.snapshot()
	if err != nil {
		return backend.Result{}, err
	}
	nodes, _, err := c.match(w, 0, 2)
	if err != nil {
		return backend.Result{}, err
	}
	for _, n := range nodes {
		if n.ID == w.active {
			c.setLastFound(n.ID)
			return backend.IntResult(int64(n.ID)), nil
		}
	}
	return backend.IntResult(0), nil
}

func winGet(c *call) (backend.Result, error) {
	w, err := c.snapshot()
	if err != nil {
		return backend.Result{}, err
	}
	nodes, crit, err := c.match(w, 1, 3)
	if err != nil {
		return backend.Result{}, err
	}
	sub := strings.ToLower(c.arg(0))
	switch sub {
	case "idlast", "list", "count":
		// Enumerations without criteria cover every window rather than
		// the last found one.
		if crit.empty() {
			nodes = c.matcher(w).every()
		}
	}
	switch sub {
	case "", "id":
		if len(nodes) == 0 {
			return backend.IntResult(0), nil
		}
		return backend.IntResult(int64(nodes[0].ID)), nil
	case "idlast":
		if len(nodes) == 0 {
			return backend.IntResult(0), nil
		}
		return backend.IntResult(int64(nodes[len(nodes)-1].ID)), nil
	case "list":
		ids := make([]uint64, len(nodes))
		for i, n := range nodes {
			ids[i] = n.ID
		}
		return backend.IDsResult(ids), nil
	case "count":
		return backend.IntResult(int64(len(nodes))), nil
	}

	if len(nodes) == 0 {
		return backend.Result{}, nil
	}
	n := nodes[0]
	switch sub {
	case "pid":
		if n.PID == 0 {
			return backend.Result{}, nil
		}
		return backend.IntResult(int64(n.PID)), nil
	case "processname":
		if n.ExePath == "" {
			return backend.Result{}, nil
		}
		return backend.TextResult(filepath.Base(n.ExePath)), nil
	case "processpath":
		return backend.TextResult(n.ExePath), nil
	case "minmax":
		switch n.State {
		case StateMinimized:
			return backend.IntResult(-1), nil
		case StateMaximized:
			return backend.IntResult(1), nil
		}
		return backend.IntResult(0), nil
	case "style":
		return backend.IntResult(int64(nodeStyle(n))), nil
	case "exstyle":
		return backend.IntResult(int64(nodeExStyle(n))), nil
	case "controllist":
		return backend.TextResult(strings.Join(classNN(n), "\n")), nil
	case "controllisthwnd":
		ids := make([]uint64, len(n.Controls))
		for i, ctl := range n.Controls {
			ids[i] = ctl.ID
		}
		return backend.IDsResult(ids), nil
	case "transparent":
		if !n.HasOpacity {
			return backend.Result{}, nil
		}
		return backend.IntResult(int64(n.Opacity)), nil
	case "transcolor":
		if !n.HasTransColor {
			return backend.Result{}, nil
		}
		return backend.IntResult(int64(n.TransColor)), nil
	}
	return backend.Result{}, c.fail(backend.CodeBadArgument, "unknown sub-command %q", c.arg(0))
}

// first returns the first matching window, or nil.
func (c *call) first(i, ex int) (*world, *Node, error) {
	w, err := c.snapshot()
	if err != nil {
		return nil, nil, err
	}
	nodes, _, err := c.match(w, i, ex)
	if err != nil || len(nodes) == 0 {
		return w, nil, err
	}
	return w, nodes[0], nil
}

func winGetClass(c *call) (backend.Result, error) {
	_, n, err := c.first(0, 2)
	if err != nil || n == nil {
		return backend.Result{}, err
	}
	return backend.TextResult(n.Class), nil
}

func winGetTitle(c *call) (backend.Result, error) {
	_, n, err := c.first(0, 2)
	if err != nil || n == nil {
		return backend.Result{}, err
	}
	return backend.TextResult(n.Title), nil
}

func winGetText(c *call) (backend.Result, error) {
	w, n, err := c.first(0, 2)
	if err != nil {
		return backend.Result{}, err
	}
	if n == nil {
		return backend.Result{}, c.fail(backend.CodeFailed, "window not found")
	}
	return backend.TextResult(c.matcher(w).windowText(n)), nil
}

func winGetPos(c *call) (backend.Result, error) {
	_, n, err := c.first(0, 2)
	if err != nil || n == nil {
		return backend.Result{}, err
	}
	return backend.RectResult(n.Rect), nil
}

// targets returns every member for ahk_group criteria and the first match
// otherwise.
func (c *call) targets(i, ex int) ([]*Node, error) {
	w, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	nodes, crit, err := c.match(w, i, ex)
	if err != nil {
		return nil, err
	}
	if crit.hasGroup || len(nodes) <= 1 {
		return nodes, nil
	}
	return nodes[:1], nil
}

func windowAction(kind ActionKind, delay bool) handler {
	return func(c *call) (backend.Result, error) {
		nodes, err := c.targets(0, 2)
		if err != nil {
			return backend.Result{}, err
		}
		if kind == ActionActivate && len(nodes) > 1 {
			nodes = nodes[:1]
		}
		for _, n := range nodes {
			if err := c.apply(n.ID, Action{Kind: kind}); err != nil {
				return backend.Result{}, err
			}
		}
		if delay || kind == ActionActivate {
			c.e.sleep(c.cfg.winDelay)
		}
		return backend.Result{}, nil
	}
}

// winClose handles WinClose and WinKill: (title, text, seconds, excludeTitle,
// excludeText). With seconds it reports 1 when a target is still open.
func winClose(kind ActionKind) handler {
	return func(c *call) (backend.Result, error) {
		nodes, err := c.targets(0, 3)
		if err != nil {
			return backend.Result{}, err
		}
		timeout, err := c.secondsArg(2)
		if err != nil {
			return backend.Result{}, err
		}
		for _, n := range nodes {
			if err := c.apply(n.ID, Action{Kind: kind}); err != nil {
				return backend.Result{}, err
			}
		}
		c.e.sleep(c.cfg.winDelay)
		if strings.TrimSpace(c.arg(2)) == "" {
			return backend.Result{}, nil
		}
		ok, err := c.poll(timeout, 0, func(w *world) (bool, error) {
			for _, n := range nodes {
				if w.exists(n.ID) {
					return false, nil
				}
			}
			return true, nil
		})
		if err != nil {
			return backend.Result{}, err
		}
		return timedOut(ok), nil
	}
}

func winMinimizeAll(c *call) (backend.Result, error) {
	w, err := c.snapshot()
	if err != nil {
		return backend.Result{}, err
	}
	for i := range w.nodes {
		n := &w.nodes[i]
		if n.Hidden || n.State == StateMinimized {
			continue
		}
		if err := c.apply(n.ID, Action{Kind: ActionMinimize}); err != nil {
			return backend.Result{}, err
		}
	}
	c.e.sleep(c.cfg.winDelay)
	return backend.Result{}, nil
}

// moveRect overlays the optional x, y, width, height arguments at i..i+3
// onto r.
func (c *call) moveRect(r backend.Rect, i int) (backend.Rect, error) {
	dst := []*int{&r.X, &r.Y, &r.Width, &r.Height}
	for k, p := range dst {
		v, ok, err := c.intArg(i + k)
		if err != nil {
			return r, err
		}
		if ok {
			*p = v
		}
	}
	return r, nil
}

// winMove: (title, text, x, y, width, height, excludeTitle, excludeText).
func winMove(c *call) (backend.Result, error) {
	_, n, err := c.first(0, 6)
	if err != nil || n == nil {
		return backend.Result{}, err
	}
	r, err := c.moveRect(n.Rect, 2)
	if err != nil {
		return backend.Result{}, err
	}
	if err := c.apply(n.ID, Action{Kind: ActionMove, Rect: r}); err != nil {
		return backend.Result{}, err
	}
	c.e.sleep(c.cfg.winDelay)
	return backend.Result{}, nil
}

// winSet: (sub, value, title, text, excludeTitle, excludeText).
func winSet(c *call) (backend.Result, error) {
	nodes, err := c.targets(2, 4)
	if err != nil {
		return backend.Result{}, err
	}
	value := strings.TrimSpace(c.arg(1))
	for _, n := range nodes {
		a, err := c.setAction(n, strings.ToLower(c.arg(0)), value)
		if err != nil {
			return backend.Result{}, err
		}
		if err := c.apply(n.ID, a); err != nil {
			return backend.Result{}, err
		}
	}
	return backend.Result{}, nil
}

func (c *call) setAction(n *Node, sub, value string) (Action, error) {
	switch sub {
	case "alwaysontop", "topmost":
		on := !n.Topmost
		switch strings.ToLower(value) {
		case "on", "1":
			on = true
		case "off", "0":
			on = false
		case "toggle", "-1", "":
		default:
			return Action{}, c.fail(backend.CodeBadArgument, "invalid AlwaysOnTop value %q", value)
		}
		return Action{Kind: ActionSetTopmost, On: on}, nil
	case "top":
		return Action{Kind: ActionRaise}, nil
	case "bottom":
		return Action{Kind: ActionLower}, nil
	case "enable":
		return Action{Kind: ActionEnable}, nil
	case "disable":
		return Action{Kind: ActionDisable}, nil
	case "redraw":
		return Action{Kind: ActionRedraw}, nil
	case "region":
		return Action{Kind: ActionSetRegion, Text: value}, nil
	case "style", "exstyle":
		cur := nodeStyle(n)
		kind := ActionSetStyle
		if sub == "exstyle" {
			cur = nodeExStyle(n)
			kind = ActionSetExStyle
		}
		v, err := c.styleValue(cur, value)
		if err != nil {
			return Action{}, err
		}
		return Action{Kind: kind, Value: int(v)}, nil
	case "transparent":
		if strings.EqualFold(value, "off") {
			return Action{Kind: ActionSetOpacity}, nil
		}
		alpha, err := strconv.Atoi(value)
		if err != nil || alpha < 0 || alpha > 255 {
			return Action{}, c.fail(backend.CodeBadArgument, "invalid transparency %q", value)
		}
		return Action{Kind: ActionSetOpacity, Value: alpha, On: true}, nil
	case "transcolor":
		if strings.EqualFold(value, "off") {
			return Action{Kind: ActionSetTransColor}, nil
		}
		fields := strings.Fields(value)
		if len(fields) == 0 {
			return Action{}, c.fail(backend.CodeBadArgument, "missing color")
		}
		hex := strings.TrimPrefix(strings.ToLower(fields[0]), "0x")
		rgb, err := strconv.ParseUint(hex, 16, 32)
		if err != nil || rgb > 0xFFFFFF {
			return Action{}, c.fail(backend.CodeBadArgument, "invalid color %q", fields[0])
		}
		return Action{Kind: ActionSetTransColor, Value: int(rgb), On: true}, nil
	}
	return Action{}, c.fail(backend.CodeBadArgument, "unknown sub-command %q", sub)
}

// styleValue applies "+N", "-N", "^N" or an absolute "N" to cur.
func (c *call) styleValue(cur uint32, value string) (uint32, error) {
	if value == "" {
		return 0, c.fail(backend.CodeBadArgument, "missing style value")
	}
	op := value[0]
	if op == '+' || op == '-' || op == '^' {
		value = value[1:]
	} else {
		op = '='
	}
	v, err := strconv.ParseUint(value, 0, 32)
	if err != nil {
		return 0, c.fail(backend.CodeBadArgument, "invalid style %q", value)
	}
	bits := uint32(v)
	switch op {
	case '+':
		return cur | bits, nil
	case '-':
		return cur &^ bits, nil
	case '^':
		return cur ^ bits, nil
	}
	return bits, nil
}

// winSetTitle: (title, text, newTitle, excludeTitle, excludeText).
func winSetTitle(c *call) (backend.Result, error) {
	nodes, err := c.targets(0, 3)
	if err != nil {
		return backend.Result{}, err
	}
	for _, n := range nodes {
		if err := c.apply(n.ID, Action{Kind: ActionSetTitle, Text: c.arg(2)}); err != nil {
			return backend.Result{}, err
		}
	}
	return backend.Result{}, nil
}

// Waits take (title, text, seconds, excludeTitle, excludeText) and return
// 1 on timeout.

func (c *call) wait(cond func(w *world, nodes []*Node) (bool, error)) (backend.Result, error) {
	timeout, err := c.secondsArg(2)
	if err != nil {
		return backend.Result{}, err
	}
	ok, err := c.poll(timeout, 0, func(w *world) (bool, error) {
		nodes, _, err := c.match(w, 0, 3)
		if err != nil {
			return false, err
		}
		return cond(w, nodes)
	})
	if err != nil {
		return backend.Result{}, err
	}
	return timedOut(ok), nil
}

func winWait(c *call) (backend.Result, error) {
	return c.wait(func(w *world, nodes []*Node) (bool, error) {
		if len(nodes) == 0 {
			return false, nil
		}
		c.setLastFound(nodes[0].ID)
		return true, nil
	})
}

func winWaitActive(c *call) (backend.Result, error) {
	return c.wait(func(w *world, nodes []*Node) (bool, error) {
		for _, n := range nodes {
			if n.ID == w.active {
				c.setLastFound(n.ID)
				return true, nil
			}
		}
		return false, nil
	})
}

func winWaitNotActive(c *call) (backend.Result, error) {
	return c.wait(func(w *world, nodes []*Node) (bool, error) {
		for _, n := range nodes {
			if n.ID == w.active {
				return false, nil
			}
		}
		if len(nodes) > 0 {
			c.setLastFound(nodes[0].ID)
		}
		return true, nil
	})
}

func winWaitClose(c *call) (backend.Result, error) {
	return c.wait(func(w *world, nodes []*Node) (bool, error) {
		return len(nodes) == 0, nil
	})
}

// groupAdd: (name, title, text, label, excludeTitle, excludeText).
func groupAdd(c *call) (backend.Result, error) {
	name := strings.TrimSpace(c.arg(0))
	if name == "" {
		return backend.Result{}, c.fail(backend.CodeBadArgument, "missing group name")
	}
	crit, err := parseCriteria(c.name, c.arg(1), c.arg(2), c.arg(4), c.arg(5))
	if err != nil {
		return backend.Result{}, err
	}
	c.e.addToGroup(name, crit)
	return backend.Result{}, nil
}
