package window

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/1broseidon/winquery/internal/backend"
	"github.com/mitchellh/hashstructure/v2"
)

// MatchMode selects how title criteria are compared.
type MatchMode string

const (
	MatchPrefix   MatchMode = "prefix"
	MatchContains MatchMode = "contains"
	MatchExact    MatchMode = "exact"
	MatchRegex    MatchMode = "regex"
)

// Valid reports whether m is a known match mode.
func (m MatchMode) Valid() bool {
	switch m {
	case MatchPrefix, MatchContains, MatchExact, MatchRegex:
		return true
	}
	return false
}

// backendArg returns the SetTitleMatchMode argument for m.
func (m MatchMode) backendArg() (string, error) {
	switch m {
	case MatchPrefix:
		return "1", nil
	case MatchContains:
		return "2", nil
	case MatchExact:
		return "3", nil
	case MatchRegex:
		return "RegEx", nil
	}
	return "", &ConfigurationError{Field: "match", Value: string(m), Reason: "want prefix, contains, exact or regex"}
}

// TextSpeed selects how window text is read when matching.
type TextSpeed string

const (
	TextFast TextSpeed = "fast"
	TextSlow TextSpeed = "slow"
)

// Filter describes a set of windows. Filters are immutable values: every
// refinement returns a new Filter. Use Client.Windows or Client.AllWindows
// to obtain one.
type Filter struct {
	session *backend.Session

	title        Field[string]
	className    Field[string]
	id           Field[uint64]
	pid          Field[int]
	exe          Field[string]
	text         Field[string]
	excludeTitle Field[string]
	excludeText  Field[string]

	hiddenWindows bool
	hiddenText    bool
	titleMode     MatchMode
	textSpeed     TextSpeed
}

func newFilter(s *backend.Session) Filter {
	return Filter{
		session:    s,
		hiddenText: true,
		titleMode:  MatchPrefix,
		textSpeed:  TextFast,
	}
}

// Criterion refines a filter.
type Criterion func(*criteria)

type criteria struct {
	title     Field[string]
	className Field[string]
	id        Field[uint64]
	pid       Field[int]
	exe       Field[string]
	text      Field[string]
	match     Field[MatchMode]
}

// FieldName identifies a criterion for Without.
type FieldName string

const (
	FieldTitle FieldName = "title"
	FieldClass FieldName = "class"
	FieldID    FieldName = "id"
	FieldPID   FieldName = "pid"
	FieldExe   FieldName = "exe"
	FieldText  FieldName = "text"
)

// Title matches the window title according to the match mode.
func Title(s string) Criterion { return TitleField(Is(s)) }

// TitleField sets the title criterion to any field state.
func TitleField(f Field[string]) Criterion { return func(c *criteria) { c.title = f } }

// Class matches the window class name.
func Class(s string) Criterion { return ClassField(Is(s)) }

// ClassField sets the class criterion to any field state.
func ClassField(f Field[string]) Criterion { return func(c *criteria) { c.className = f } }

// ID matches a single window id.
func ID(id uint64) Criterion { return IDField(Is(id)) }

// IDField sets the id criterion to any field state.
func IDField(f Field[uint64]) Criterion { return func(c *criteria) { c.id = f } }

// PID matches the owning process id.
func PID(pid int) Criterion { return PIDField(Is(pid)) }

// PIDField sets the pid criterion to any field state.
func PIDField(f Field[int]) Criterion { return func(c *criteria) { c.pid = f } }

// Exe matches the executable name or path.
func Exe(s string) Criterion { return ExeField(Is(s)) }

// ExeField sets the exe criterion to any field state.
func ExeField(f Field[string]) Criterion { return func(c *criteria) { c.exe = f } }

// Text requires the window to contain s in its text.
func Text(s string) Criterion { return TextField(Is(s)) }

// TextField sets the text criterion to any field state.
func TextField(f Field[string]) Criterion { return func(c *criteria) { c.text = f } }

// Match sets the title match mode.
func Match(m MatchMode) Criterion { return func(c *criteria) { c.match = Is(m) } }

// Without marks a field excluded: the resulting filter matches nothing.
func Without(name FieldName) Criterion {
	return func(c *criteria) {
		switch name {
		case FieldTitle:
			c.title = Excluded[string]()
		case FieldClass:
			c.className = Excluded[string]()
		case FieldID:
			c.id = Excluded[uint64]()
		case FieldPID:
			c.pid = Excluded[int]()
		case FieldExe:
			c.exe = Excluded[string]()
		case FieldText:
			c.text = Excluded[string]()
		}
	}
}

func (c criteria) unconstrained() bool {
	return c.title.IsUnset() && c.className.IsUnset() && c.id.IsUnset() &&
		c.pid.IsUnset() && c.exe.IsUnset() && c.text.IsUnset() && c.match.IsUnset()
}

// Filter returns a refined copy of f. Criteria left unset keep the
// receiver's values; with no effective criteria f is returned unchanged. An
// invalid match mode yields a *ConfigurationError.
func (f Filter) Filter(opts ...Criterion) (Filter, error) {
	var c criteria
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	if c.unconstrained() {
		return f, nil
	}
	if m, ok := c.match.Get(); ok && !m.Valid() {
		return f, &ConfigurationError{Field: "match", Value: string(m), Reason: "want prefix, contains, exact or regex"}
	}
	f.title = c.title.Or(f.title)
	f.className = c.className.Or(f.className)
	f.id = c.id.Or(f.id)
	f.pid = c.pid.Or(f.pid)
	f.exe = c.exe.Or(f.exe)
	f.text = c.text.Or(f.text)
	if m, ok := c.match.Get(); ok {
		f.titleMode = m
	}
	return f, nil
}

// Exclusion refines the exclusion part of a filter.
type Exclusion func(*exclusion)

type exclusion struct {
	title Field[string]
	text  Field[string]
}

// ExcludeTitle drops windows whose title matches s.
func ExcludeTitle(s string) Exclusion { return ExcludeTitleField(Is(s)) }

// ExcludeTitleField sets the excluded title to any field state.
func ExcludeTitleField(f Field[string]) Exclusion { return func(e *exclusion) { e.title = f } }

// ExcludeText drops windows whose text contains s.
func ExcludeText(s string) Exclusion { return ExcludeTextField(Is(s)) }

// ExcludeTextField sets the excluded text to any field state.
func ExcludeTextField(f Field[string]) Exclusion { return func(e *exclusion) { e.text = f } }

// Exclude returns a copy of f with the given exclusions.
func (f Filter) Exclude(opts ...Exclusion) Filter {
	var e exclusion
	for _, opt := range opts {
		if opt != nil {
			opt(&e)
		}
	}
	f.excludeTitle = e.title.Or(f.excludeTitle)
	f.excludeText = e.text.Or(f.excludeText)
	return f
}

// IncludeHiddenWindows sets whether hidden windows match.
func (f Filter) IncludeHiddenWindows(include bool) Filter {
	f.hiddenWindows = include
	return f
}

// ExcludeHiddenWindows is IncludeHiddenWindows(false).
func (f Filter) ExcludeHiddenWindows() Filter { return f.IncludeHiddenWindows(false) }

// IncludeHiddenText sets whether hidden control text is searched.
func (f Filter) IncludeHiddenText(include bool) Filter {
	f.hiddenText = include
	return f
}

// ExcludeHiddenText is IncludeHiddenText(false).
func (f Filter) ExcludeHiddenText() Filter { return f.IncludeHiddenText(false) }

// MatchTextSlow selects the slow text matching mode, which also reads text
// from list items.
func (f Filter) MatchTextSlow(slow bool) Filter {
	if slow {
		f.textSpeed = TextSlow
	} else {
		f.textSpeed = TextFast
	}
	return f
}

// excluded reports whether any field carries the excluded sentinel, in
// which case nothing can match.
func (f Filter) excluded() bool {
	return f.title.IsExcluded() || f.className.IsExcluded() || f.id.IsExcluded() ||
		f.pid.IsExcluded() || f.exe.IsExcluded() || f.text.IsExcluded() ||
		f.excludeTitle.IsExcluded() || f.excludeText.IsExcluded()
}

// unconstrained reports whether f is the default visible-windows filter.
func (f Filter) unconstrained() bool {
	return f == newFilter(f.session)
}

// Include returns the title criteria and required text sent to the
// backend.
func (f Filter) Include() [2]string {
	var parts []string
	if v, ok := f.title.Get(); ok {
		parts = append(parts, v)
	}
	if v, ok := f.className.Get(); ok {
		parts = append(parts, "ahk_class "+v)
	}
	if v, ok := f.id.Get(); ok {
		parts = append(parts, "ahk_id "+strconv.FormatUint(v, 10))
	}
	if v, ok := f.pid.Get(); ok {
		parts = append(parts, "ahk_pid "+strconv.Itoa(v))
	}
	if v, ok := f.exe.Get(); ok {
		parts = append(parts, "ahk_exe "+v)
	}
	text, _ := f.text.Get()
	return [2]string{strings.Join(parts, " "), text}
}

// ExcludeFragment returns the excluded title and text sent to the backend.
func (f Filter) ExcludeFragment() [2]string {
	title, _ := f.excludeTitle.Get()
	text, _ := f.excludeText.Get()
	return [2]string{title, text}
}

// query returns (title, text, excludeTitle, excludeText).
func (f Filter) query() []string {
	inc, exc := f.Include(), f.ExcludeFragment()
	return []string{inc[0], inc[1], exc[0], exc[1]}
}

func (f Filter) String() string {
	var parts []string
	add := func(name string, v interface {
		fmt.Stringer
		IsUnset() bool
		IsExcluded() bool
	}) {
		switch {
		case v.IsUnset():
		case v.IsExcluded():
			parts = append(parts, name+"="+v.String())
		default:
			parts = append(parts, name+"="+strconv.Quote(v.String()))
		}
	}
	add("title", f.title)
	add("class", f.className)
	add("id", f.id)
	add("pid", f.pid)
	add("exe", f.exe)
	add("text", f.text)
	add("exclude_title", f.excludeTitle)
	add("exclude_text", f.excludeText)
	if f.hiddenWindows {
		parts = append(parts, "hidden_windows=true")
	}
	if !f.hiddenText {
		parts = append(parts, "hidden_text=false")
	}
	if f.titleMode != MatchPrefix {
		parts = append(parts, "match="+string(f.titleMode))
	}
	if f.textSpeed != TextFast {
		parts = append(parts, "text_speed="+string(f.textSpeed))
	}
	return "Filter(" + strings.Join(parts, ", ") + ")"
}

// groupKey is the hashed form of a filter. The session is not part of it.
type groupKey struct {
	Title         string
	Class         string
	ID            string
	PID           string
	Exe           string
	Text          string
	ExcludeTitle  string
	ExcludeText   string
	HiddenWindows bool
	HiddenText    bool
	TitleMode     string
	TextSpeed     string
}

func fieldKey[T comparable](f Field[T]) string {
	switch {
	case f.IsExcluded():
		return "x"
	case f.IsSet():
		return "=" + f.String()
	}
	return ""
}

// GroupName returns the deterministic backend group name for f. Equal
// filters yield equal names.
func (f Filter) GroupName() (string, error) {
	key := groupKey{
		Title:         fieldKey(f.title),
		Class:         fieldKey(f.className),
		ID:            fieldKey(f.id),
		PID:           fieldKey(f.pid),
		Exe:           fieldKey(f.exe),
		Text:          fieldKey(f.text),
		ExcludeTitle:  fieldKey(f.excludeTitle),
		ExcludeText:   fieldKey(f.excludeText),
		HiddenWindows: f.hiddenWindows,
		HiddenText:    f.hiddenText,
		TitleMode:     string(f.titleMode),
		TextSpeed:     string(f.textSpeed),
	}
	h, err := hashstructure.Hash(key, hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("hash filter: %w", err)
	}
	return "wq" + strconv.FormatUint(h, 36), nil
}
