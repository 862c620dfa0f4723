package engine

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/1broseidon/winquery/internal/backend"
)

const statusBarClass = "msctls_statusbar32"

func isListView(class string) bool {
	return strings.Contains(strings.ToLower(class), "syslistview32")
}

// resolveControl finds the window at (i, ex) and the control named by the
// argument at ctl.
func (c *call) resolveControl(ctl, i, ex int) (*world, *Node, error) {
	w, win, err := c.first(i, ex)
	if err != nil {
		return nil, nil, err
	}
	if win == nil {
		return nil, nil, c.fail(backend.CodeFailed, "target window not found")
	}
	target, err := c.findControl(w, win, c.arg(ctl))
	if err != nil {
		return nil, nil, err
	}
	return w, target, nil
}

func lines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

// controlGet: (sub, value, control, title, text, excludeTitle, excludeText).
func controlGet(c *call) (backend.Result, error) {
	_, n, err := c.resolveControl(2, 3, 5)
	if err != nil {
		return backend.Result{}, err
	}
	value := c.arg(1)
	switch strings.ToLower(c.arg(0)) {
	case "hwnd":
		return backend.IntResult(int64(n.ID)), nil
	case "checked":
		return backend.BoolResult(n.Checked), nil
	case "enabled":
		return backend.BoolResult(!n.Disabled), nil
	case "visible":
		return backend.BoolResult(!n.Hidden), nil
	case "focused":
		return backend.BoolResult(n.Focused), nil
	case "style":
		return backend.IntResult(int64(nodeStyle(n))), nil
	case "exstyle":
		return backend.IntResult(int64(nodeExStyle(n))), nil
	case "linecount":
		return backend.IntResult(int64(len(lines(n.Text)))), nil
	case "currentline":
		return backend.IntResult(int64(atLeastOne(n.CaretLine))), nil
	case "currentcol":
		return backend.IntResult(int64(atLeastOne(n.CaretCol))), nil
	case "line":
		no, err := strconv.Atoi(value)
		if err != nil {
			return backend.Result{}, c.fail(backend.CodeBadArgument, "invalid line number %q", value)
		}
		ls := lines(n.Text)
		if no < 1 || no > len(ls) || (no == len(ls) && ls[no-1] == "") {
			return backend.Result{}, c.fail(backend.CodeFailed, "line %d not available", no)
		}
		return backend.TextResult(ls[no-1]), nil
	case "selected":
		return backend.TextResult(n.Selection), nil
	case "choice":
		for _, it := range n.Items {
			if it.Selected && len(it.Columns) > 0 {
				return backend.TextResult(it.Columns[0]), nil
			}
		}
		return backend.Result{}, c.fail(backend.CodeFailed, "no item is selected")
	case "list":
		return c.listItems(n, value)
	}
	return backend.Result{}, c.fail(backend.CodeBadArgument, "unknown sub-command %q", c.arg(0))
}

// listItems implements ControlGet List. Options other than a plain listing
// or a count only apply to list views.
func (c *call) listItems(n *Node, options string) (backend.Result, error) {
	var selected, focused, count bool
	col := 0
	for _, opt := range strings.Fields(strings.ToLower(options)) {
		switch {
		case opt == "selected":
			selected = true
		case opt == "focused":
			focused = true
		case opt == "count":
			count = true
		case opt == "col" && count:
			col = -1
		case strings.HasPrefix(opt, "col"):
			v, err := strconv.Atoi(opt[3:])
			if err != nil || v < 1 {
				return backend.Result{}, c.fail(backend.CodeBadArgument, "invalid column %q", opt)
			}
			col = v
		default:
			return backend.Result{}, c.fail(backend.CodeBadArgument, "invalid list option %q", opt)
		}
	}
	listView := isListView(n.Class)
	if !listView && (selected || focused || col != 0) {
		return backend.Result{}, c.fail(backend.CodeFailed, "option %q requires a list view", options)
	}
	if n.Items == nil && !listView && !strings.Contains(strings.ToLower(n.Class), "list") &&
		!strings.Contains(strings.ToLower(n.Class), "combo") {
		return backend.Result{}, c.fail(backend.CodeFailed, "%s is not a list control", n.Class)
	}

	if count {
		switch {
		case col == -1:
			cols := 0
			for _, it := range n.Items {
				cols = max(cols, len(it.Columns))
			}
			return backend.IntResult(int64(cols)), nil
		case selected:
			k := 0
			for _, it := range n.Items {
				if it.Selected {
					k++
				}
			}
			return backend.IntResult(int64(k)), nil
		case focused:
			for i, it := range n.Items {
				if it.Focused {
					return backend.IntResult(int64(i + 1)), nil
				}
			}
			return backend.IntResult(0), nil
		}
		return backend.IntResult(int64(len(n.Items))), nil
	}

	var rows []string
	for _, it := range n.Items {
		if (selected && !it.Selected) || (focused && !it.Focused) {
			continue
		}
		if col > 0 {
			if col > len(it.Columns) {
				return backend.Result{}, c.fail(backend.CodeFailed, "column %d out of range", col)
			}
			rows = append(rows, it.Columns[col-1])
			continue
		}
		rows = append(rows, strings.Join(it.Columns, "\t"))
	}
	return backend.TextResult(strings.Join(rows, "\n")), nil
}

// controlGetFocus: (title, text, excludeTitle, excludeText).
func controlGetFocus(c *call) (backend.Result, error) {
	_, win, err := c.first(0, 2)
	if err != nil {
		return backend.Result{}, err
	}
	if win == nil {
		return backend.Result{}, c.fail(backend.CodeFailed, "target window not found")
	}
	names := classNN(win)
	for i, ctl := range win.Controls {
		if ctl.Focused {
			return backend.TextResult(names[i]), nil
		}
	}
	return backend.Result{}, c.fail(backend.CodeFailed, "no control has focus")
}

// control: (sub, value, control, title, text, excludeTitle, excludeText).
func control(c *call) (backend.Result, error) {
	_, n, err := c.resolveControl(2, 3, 5)
	if err != nil {
		return backend.Result{}, err
	}
	value := c.arg(1)
	var a Action
	switch strings.ToLower(c.arg(0)) {
	case "check":
		a = Action{Kind: ActionCheck}
	case "uncheck":
		a = Action{Kind: ActionUncheck}
	case "enable":
		a = Action{Kind: ActionEnable}
	case "disable":
		a = Action{Kind: ActionDisable}
	case "show":
		a = Action{Kind: ActionShow}
	case "hide":
		a = Action{Kind: ActionHide}
	case "editpaste":
		a = Action{Kind: ActionPaste, Text: value}
	case "choose":
		index, err := strconv.Atoi(value)
		if err != nil {
			return backend.Result{}, c.fail(backend.CodeBadArgument, "invalid index %q", value)
		}
		if index < 1 || index > len(n.Items) {
			return backend.Result{}, c.fail(backend.CodeFailed, "item %d out of range", index)
		}
		a = Action{Kind: ActionChoose, Value: index - 1}
	case "choosestring":
		index := -1
		for i, it := range n.Items {
			if len(it.Columns) > 0 && strings.HasPrefix(strings.ToLower(it.Columns[0]), strings.ToLower(value)) {
				index = i
				break
			}
		}
		if index < 0 {
			return backend.Result{}, c.fail(backend.CodeFailed, "no item starts with %q", value)
		}
		a = Action{Kind: ActionChoose, Value: index}
	default:
		return backend.Result{}, c.fail(backend.CodeBadArgument, "unknown sub-command %q", c.arg(0))
	}
	if err := c.apply(n.ID, a); err != nil {
		return backend.Result{}, err
	}
	c.e.sleep(c.cfg.controlDelay)
	return backend.Result{}, nil
}

// controlGetText: (control, title, text, excludeTitle, excludeText).
func controlGetText(c *call) (backend.Result, error) {
	_, n, err := c.resolveControl(0, 1, 3)
	if err != nil {
		return backend.Result{}, err
	}
	return backend.TextResult(n.Text), nil
}

// controlSetText: (control, newText, title, text, excludeTitle, excludeText).
func controlSetText(c *call) (backend.Result, error) {
	_, n, err := c.resolveControl(0, 2, 4)
	if err != nil {
		return backend.Result{}, err
	}
	if err := c.apply(n.ID, Action{Kind: ActionSetText, Text: c.arg(1)}); err != nil {
		return backend.Result{}, err
	}
	c.e.sleep(c.cfg.controlDelay)
	return backend.Result{}, nil
}

// controlFocus: (control, title, text, excludeTitle, excludeText).
func controlFocus(c *call) (backend.Result, error) {
	_, n, err := c.resolveControl(0, 1, 3)
	if err != nil {
		return backend.Result{}, err
	}
	if err := c.apply(n.ID, Action{Kind: ActionFocus}); err != nil {
		return backend.Result{}, err
	}
	c.e.sleep(c.cfg.controlDelay)
	return backend.Result{}, nil
}

// controlGetPos: (control, title, text, excludeTitle, excludeText).
func controlGetPos(c *call) (backend.Result, error) {
	_, n, err := c.resolveControl(0, 1, 3)
	if err != nil {
		return backend.Result{}, err
	}
	return backend.RectResult(n.Rect), nil
}

// controlMove: (control, x, y, width, height, title, text, excludeTitle,
// excludeText).
func controlMove(c *call) (backend.Result, error) {
	_, n, err := c.resolveControl(0, 5, 7)
	if err != nil {
		return backend.Result{}, err
	}
	r, err := c.moveRect(n.Rect, 1)
	if err != nil {
		return backend.Result{}, err
	}
	if err := c.apply(n.ID, Action{Kind: ActionMove, Rect: r}); err != nil {
		return backend.Result{}, err
	}
	c.e.sleep(c.cfg.controlDelay)
	return backend.Result{}, nil
}

// controlSend: (control, keys, title, text, excludeTitle, excludeText).
func controlSend(c *call) (backend.Result, error) {
	_, n, err := c.resolveControl(0, 2, 4)
	if err != nil {
		return backend.Result{}, err
	}
	if err := c.apply(n.ID, Action{Kind: ActionSendKeys, Text: c.arg(1)}); err != nil {
		return backend.Result{}, err
	}
	c.e.sleep(c.cfg.keyDelay)
	return backend.Result{}, nil
}

func statusBar(win *Node) *Node {
	for i := range win.Controls {
		if strings.EqualFold(win.Controls[i].Class, statusBarClass) {
			return &win.Controls[i]
		}
	}
	return nil
}

func (c *call) partArg(i int) (int, error) {
	part, ok, err := c.intArg(i)
	if err != nil {
		return 0, err
	}
	if !ok || part < 1 {
		part = 1
	}
	return part, nil
}

// statusBarGetText: (part, title, text, excludeTitle, excludeText).
func statusBarGetText(c *call) (backend.Result, error) {
	part, err := c.partArg(0)
	if err != nil {
		return backend.Result{}, err
	}
	_, win, err := c.first(1, 3)
	if err != nil {
		return backend.Result{}, err
	}
	if win == nil {
		return backend.Result{}, c.fail(backend.CodeFailed, "target window not found")
	}
	bar := statusBar(win)
	if bar == nil {
		return backend.Result{}, c.fail(backend.CodeFailed, "window has no status bar")
	}
	if part > len(bar.Parts) {
		return backend.Result{}, c.fail(backend.CodeFailed, "status bar part %d out of range", part)
	}
	return backend.TextResult(bar.Parts[part-1]), nil
}

var errNoStatusBar = errors.New("status bar not found")

// statusBarWait: (barText, seconds, part, title, text, intervalMs,
// excludeTitle, excludeText).
func statusBarWait(c *call) (backend.Result, error) {
	timeout, err := c.secondsArg(1)
	if err != nil {
		return backend.Result{}, err
	}
	part, err := c.partArg(2)
	if err != nil {
		return backend.Result{}, err
	}
	interval, ok, err := c.intArg(5)
	if err != nil {
		return backend.Result{}, err
	}
	if !ok || interval <= 0 {
		interval = 50
	}
	want := c.arg(0)
	found, err := c.poll(timeout, time.Duration(interval)*time.Millisecond, func(w *world) (bool, error) {
		crit, err := parseCriteria(c.name, c.arg(3), c.arg(4), c.arg(6), c.arg(7))
		if err != nil {
			return false, err
		}
		m := c.matcher(w)
		nodes, err := m.find(crit, c.last)
		if err != nil {
			return false, c.fail(backend.CodeBadArgument, "invalid pattern: %v", err)
		}
		if len(nodes) == 0 {
			return false, errNoStatusBar
		}
		bar := statusBar(nodes[0])
		if bar == nil || part > len(bar.Parts) {
			return false, errNoStatusBar
		}
		got := bar.Parts[part-1]
		if want == "" {
			return got == "", nil
		}
		return m.titleMatch(want, got)
	})
	if errors.Is(err, errNoStatusBar) {
		return backend.Result{}, c.fail(backend.CodeInaccessible, "status bar cannot be accessed")
	}
	if err != nil {
		return backend.Result{}, err
	}
	return timedOut(found), nil
}

func (c *call) message(post bool) (uint64, Message, error) {
	msg, _, err := c.intArg(0)
	if err != nil {
		return 0, Message{}, err
	}
	wParam, _, err := c.intArg(1)
	if err != nil {
		return 0, Message{}, err
	}
	lParam, _, err := c.intArg(2)
	if err != nil {
		return 0, Message{}, err
	}
	m := Message{Msg: uint32(msg), WParam: int64(wParam), LParam: int64(lParam), Post: post}
	if !post {
		ms, ok, err := c.intArg(8)
		if err != nil {
			return 0, Message{}, err
		}
		if ok && ms > 0 {
			m.Timeout = time.Duration(ms) * time.Millisecond
		}
		if len(c.args) > 9 {
			m.LParamText, m.HasText = c.args[9], true
		}
	}
	_, n, err := c.resolveControl(3, 4, 6)
	if err != nil {
		return 0, m, err
	}
	return n.ID, m, nil
}

// sendMessage: (msg, wParam, lParam, control, title, text, excludeTitle,
// excludeText, timeoutMs, lParamText).
func sendMessage(c *call) (backend.Result, error) {
	id, m, err := c.message(false)
	if err != nil {
		if backend.IsCode(err, backend.CodeFailed) {
			return backend.Result{}, c.fail(backend.CodeMessageFailed, "%v", err)
		}
		return backend.Result{}, err
	}
	v, err := c.e.desktop.Message(id, m)
	if err != nil {
		return backend.Result{}, c.messageError(m, err)
	}
	return backend.IntResult(v), nil
}

// postMessage: (msg, wParam, lParam, control, title, text, excludeTitle,
// excludeText).
func postMessage(c *call) (backend.Result, error) {
	id, m, err := c.message(true)
	if err != nil {
		return backend.Result{}, err
	}
	if _, err := c.e.desktop.Message(id, m); err != nil {
		return backend.Result{}, c.messageError(m, err)
	}
	return backend.IntResult(0), nil
}

func (c *call) messageError(m Message, err error) error {
	if errors.Is(err, ErrUnsupported) {
		return c.fail(backend.CodeUnsupported, "window messages are not supported")
	}
	return c.fail(backend.CodeMessageFailed, "message 0x%X: %v", m.Msg, err)
}
