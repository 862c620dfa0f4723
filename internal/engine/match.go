package engine

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/1broseidon/winquery/internal/backend"
)

type matchMode int

const (
	modePrefix matchMode = iota + 1
	modeContains
	modeExact
	modeRegex
)

// criteria is a parsed window title plus text and exclusions.
type criteria struct {
	title string

	class    string
	hasClass bool
	exe      string
	hasExe   bool
	group    string
	hasGroup bool
	id       uint64
	hasID    bool
	pid      int
	hasPID   bool
	active   bool

	text         string
	excludeTitle string
	excludeText  string
}

func (c criteria) empty() bool {
	return c.title == "" && !c.hasClass && !c.hasExe && !c.hasGroup && !c.hasID &&
		!c.hasPID && !c.active && c.text == "" && c.excludeTitle == "" && c.excludeText == ""
}

var keywordRe = regexp.MustCompile(`(?:^|\s)ahk_(class|id|pid|exe|group)(?:\s+|$)`)

// parseCriteria splits "title ahk_class C ahk_id N ..." into its parts. A
// bare "A" addresses the active window.
func parseCriteria(command, title, text, excludeTitle, excludeText string) (criteria, error) {
	c := criteria{text: text, excludeTitle: excludeTitle, excludeText: excludeText}
	if title == "A" {
		c.active = true
		return c, nil
	}
	locs := keywordRe.FindAllStringSubmatchIndex(title, -1)
	if len(locs) == 0 {
		c.title = title
		return c, nil
	}
	c.title = strings.TrimRight(title[:locs[0][0]], " \t")
	for i, loc := range locs {
		end := len(title)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		value := strings.TrimSpace(title[loc[1]:end])
		switch title[loc[2]:loc[3]] {
		case "class":
			c.class, c.hasClass = value, true
		case "exe":
			c.exe, c.hasExe = value, true
		case "group":
			c.group, c.hasGroup = value, true
		case "id":
			id, err := strconv.ParseUint(value, 0, 64)
			if err != nil {
				return c, backend.Errorf(command, backend.CodeBadArgument, "invalid ahk_id %q", value)
			}
			c.id, c.hasID = id, true
		case "pid":
			pid, err := strconv.Atoi(value)
			if err != nil {
				return c, backend.Errorf(command, backend.CodeBadArgument, "invalid ahk_pid %q", value)
			}
			c.pid, c.hasPID = pid, true
		}
	}
	return c, nil
}

// criteriaAt parses the title and text arguments at i and i+1 and the
// exclusion arguments at ex and ex+1.
func (c *call) criteriaAt(i, ex int) (criteria, error) {
	return parseCriteria(c.name, c.arg(i), c.arg(i+1), c.arg(ex), c.arg(ex+1))
}

type matcher struct {
	cfg   config
	e     *Engine
	w     *world
	cache map[string]*regexp.Regexp
}

func (c *call) matcher(w *world) *matcher {
	return &matcher{cfg: c.cfg, e: c.e, w: w}
}

func (m *matcher) regex(pattern string) (*regexp.Regexp, error) {
	if re, ok := m.cache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	if m.cache == nil {
		m.cache = make(map[string]*regexp.Regexp)
	}
	m.cache[pattern] = re
	return re, nil
}

// titleMatch applies the session title match mode.
func (m *matcher) titleMatch(pattern, s string) (bool, error) {
	switch m.cfg.mode {
	case modeContains:
		return strings.Contains(s, pattern), nil
	case modeExact:
		return s == pattern, nil
	case modeRegex:
		re, err := m.regex(pattern)
		if err != nil {
			return false, err
		}
		return re.MatchString(s), nil
	default:
		return strings.HasPrefix(s, pattern), nil
	}
}

// textMatch matches window text, which is a substring search outside
// regex mode.
func (m *matcher) textMatch(pattern, s string) (bool, error) {
	if m.cfg.mode == modeRegex {
		return m.titleMatch(pattern, s)
	}
	return strings.Contains(s, pattern), nil
}

// windowText joins the text of a window's controls, honoring hidden text
// detection. Slow mode also reads list items.
func (m *matcher) windowText(n *Node) string {
	var parts []string
	for i := range n.Controls {
		ctl := &n.Controls[i]
		if ctl.Hidden && !m.cfg.hiddenText {
			continue
		}
		if ctl.Text != "" {
			parts = append(parts, ctl.Text)
		}
		if m.cfg.slowText {
			for _, it := range ctl.Items {
				parts = append(parts, strings.Join(it.Columns, "\t"))
			}
		}
	}
	return strings.Join(parts, "\n")
}

func (m *matcher) visible(l located) bool {
	return l.parent != nil || !l.node.Hidden || m.cfg.hiddenWindows
}

// every returns all detectable top-level windows front to back.
func (m *matcher) every() []*Node {
	var out []*Node
	for i := range m.w.nodes {
		if m.visible(located{node: &m.w.nodes[i]}) {
			out = append(out, &m.w.nodes[i])
		}
	}
	return out
}

// find returns matching nodes front to back.
func (m *matcher) find(c criteria, last uint64) ([]*Node, error) {
	var candidates []located
	switch {
	case c.active:
		if l, ok := m.w.find(m.w.active); ok {
			candidates = append(candidates, l)
		}
	case c.empty():
		if l, ok := m.w.find(last); ok && m.visible(l) {
			return []*Node{l.node}, nil
		}
		return nil, nil
	case c.hasID:
		if l, ok := m.w.find(c.id); ok {
			candidates = append(candidates, l)
		}
	default:
		for i := range m.w.nodes {
			candidates = append(candidates, located{node: &m.w.nodes[i]})
		}
	}

	var out []*Node
	for _, l := range candidates {
		if !m.visible(l) {
			continue
		}
		ok, err := m.matches(l.node, c, 0)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, l.node)
		}
	}
	return out, nil
}

func (m *matcher) matches(n *Node, c criteria, depth int) (bool, error) {
	if c.title != "" {
		ok, err := m.titleMatch(c.title, n.Title)
		if err != nil || !ok {
			return false, err
		}
	}
	if c.hasClass {
		if m.cfg.mode == modeRegex {
			ok, err := m.titleMatch(c.class, n.Class)
			if err != nil || !ok {
				return false, err
			}
		} else if n.Class != c.class {
			return false, nil
		}
	}
	if c.hasPID && n.PID != c.pid {
		return false, nil
	}
	if c.hasID && n.ID != c.id {
		return false, nil
	}
	if c.hasExe {
		base := filepath.Base(n.ExePath)
		if m.cfg.mode == modeRegex {
			ok, err := m.titleMatch(c.exe, base)
			if err != nil || !ok {
				return false, err
			}
		} else if !strings.EqualFold(base, c.exe) && !strings.EqualFold(n.ExePath, c.exe) {
			return false, nil
		}
	}
	if c.hasGroup {
		if depth > 0 {
			return false, nil
		}
		ok, err := m.inGroup(n, c.group)
		if err != nil || !ok {
			return false, err
		}
	}
	if c.text != "" {
		ok, err := m.textMatch(c.text, m.windowText(n))
		if err != nil || !ok {
			return false, err
		}
	}
	if c.excludeTitle != "" {
		ok, err := m.titleMatch(c.excludeTitle, n.Title)
		if err != nil || ok {
			return false, err
		}
	}
	if c.excludeText != "" {
		ok, err := m.textMatch(c.excludeText, m.windowText(n))
		if err != nil || ok {
			return false, err
		}
	}
	return true, nil
}

func (m *matcher) inGroup(n *Node, name string) (bool, error) {
	for _, rule := range m.e.group(name) {
		if rule.hasID && rule.id != n.ID {
			continue
		}
		ok, err := m.matches(n, rule, 1)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// match parses the criteria at the given argument positions and returns the
// matching nodes.
func (c *call) match(w *world, i, ex int) ([]*Node, criteria, error) {
	crit, err := c.criteriaAt(i, ex)
	if err != nil {
		return nil, crit, err
	}
	nodes, err := c.matcher(w).find(crit, c.last)
	if err != nil {
		return nil, crit, c.fail(backend.CodeBadArgument, "invalid pattern: %v", err)
	}
	return nodes, crit, nil
}

// classNN numbers controls by class in child order: Edit1, Edit2, Button1.
func classNN(win *Node) []string {
	counts := make(map[string]int)
	out := make([]string, len(win.Controls))
	for i, ctl := range win.Controls {
		counts[ctl.Class]++
		out[i] = ctl.Class + strconv.Itoa(counts[ctl.Class])
	}
	return out
}

// findControl resolves a control by ClassNN or by text. An empty ref
// addresses the target itself.
func (c *call) findControl(w *world, target *Node, ref string) (*Node, error) {
	if ref == "" {
		return target, nil
	}
	if l, ok := w.find(target.ID); ok && l.parent != nil {
		target = l.parent
	}
	names := classNN(target)
	for i, name := range names {
		if strings.EqualFold(name, ref) {
			return &target.Controls[i], nil
		}
	}
	m := c.matcher(w)
	for i := range target.Controls {
		ok, err := m.titleMatch(ref, target.Controls[i].Text)
		if err != nil {
			return nil, c.fail(backend.CodeBadArgument, "invalid pattern: %v", err)
		}
		if ok {
			return &target.Controls[i], nil
		}
	}
	return nil, c.fail(backend.CodeFailed, "control %q not found", ref)
}
