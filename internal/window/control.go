package window

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/1broseidon/winquery/internal/backend"
)

// List box and combo box messages.
const (
	msgCBFindStringExact uint32 = 0x158
	msgCBGetCount        uint32 = 0x146
	msgCBGetCurSel       uint32 = 0x147
	msgLBFindStringExact uint32 = 0x1A2
	msgLBGetCount        uint32 = 0x18B
	msgLBGetCurSel       uint32 = 0x188
)

const listMessageTimeout = 5 * time.Second

// Control is a handle to one child control. The zero value is the invalid
// control.
type Control struct {
	handle
}

func (c Control) getInt(ctx context.Context, sub, value string) (int, bool, error) {
	res, err := c.call(ctx, callOptions{}, "ControlGet", append([]string{sub, value, ""}, c.include()...)...)
	v, ok := res.Integer()
	return int(v), ok && err == nil, err
}

func (c Control) getText(ctx context.Context, sub, value string) (string, bool, error) {
	res, err := c.call(ctx, callOptions{}, "ControlGet", append([]string{sub, value, ""}, c.include()...)...)
	if err != nil || res.Text == nil {
		return "", false, err
	}
	return *res.Text, true, nil
}

// IsChecked reports whether a check box or radio button is checked.
func (c Control) IsChecked(ctx context.Context) (bool, error) {
	v, ok, err := c.getInt(ctx, "Checked", "")
	return ok && v != 0, err
}

// SetChecked checks or unchecks the control.
func (c Control) SetChecked(ctx context.Context, checked bool) error {
	if checked {
		return c.Check(ctx)
	}
	return c.Uncheck(ctx)
}

// Check checks the control.
func (c Control) Check(ctx context.Context) error { return c.controlCommand(ctx, "Check", "") }

// Uncheck unchecks the control.
func (c Control) Uncheck(ctx context.Context) error { return c.controlCommand(ctx, "Uncheck", "") }

// Text returns the control text.
func (c Control) Text(ctx context.Context) (string, bool, error) {
	res, err := c.call(ctx, callOptions{}, "ControlGetText", append([]string{""}, c.include()...)...)
	if err != nil || res.Text == nil {
		return "", false, err
	}
	return *res.Text, true, nil
}

// SetText replaces the control text.
func (c Control) SetText(ctx context.Context, text string) error {
	_, err := c.call(ctx, callOptions{delay: true}, "ControlSetText", append([]string{"", text}, c.include()...)...)
	return err
}

// IsFocused reports whether the control has keyboard focus.
func (c Control) IsFocused(ctx context.Context) (bool, error) {
	v, ok, err := c.getInt(ctx, "Focused", "")
	return ok && v != 0, err
}

// Focus gives the control keyboard focus.
func (c Control) Focus(ctx context.Context) error {
	_, err := c.call(ctx, callOptions{delay: true}, "ControlFocus", append([]string{""}, c.include()...)...)
	return err
}

// Paste inserts text at the caret of an edit control.
func (c Control) Paste(ctx context.Context, text string) error {
	return c.controlCommand(ctx, "EditPaste", text)
}

// LineCount returns the number of lines in an edit control.
func (c Control) LineCount(ctx context.Context) (int, bool, error) {
	return c.getInt(ctx, "LineCount", "")
}

// CurrentLineNumber returns the 0-based line of the caret.
func (c Control) CurrentLineNumber(ctx context.Context) (int, bool, error) {
	v, ok, err := c.getInt(ctx, "CurrentLine", "")
	return v - 1, ok, err
}

// CurrentColumn returns the 0-based column of the caret.
func (c Control) CurrentColumn(ctx context.Context) (int, bool, error) {
	v, ok, err := c.getInt(ctx, "CurrentCol", "")
	return v - 1, ok, err
}

// Line returns the 0-based line n of an edit control. A trailing empty
// line is reported as an empty string.
func (c Control) Line(ctx context.Context, n int) (string, bool, error) {
	s, ok, err := c.getText(ctx, "Line", strconv.Itoa(n+1))
	if backend.IsCode(err, backend.CodeFailed) {
		count, cok, cerr := c.LineCount(ctx)
		if cerr == nil && cok && n+1 == count {
			return "", true, nil
		}
		return "", false, err
	}
	return s, ok, err
}

// CurrentLine returns the text of the caret line.
func (c Control) CurrentLine(ctx context.Context) (string, bool, error) {
	n, ok, err := c.CurrentLineNumber(ctx)
	if err != nil || !ok {
		return "", false, err
	}
	return c.Line(ctx, n)
}

// SelectedText returns the selection of an edit control.
func (c Control) SelectedText(ctx context.Context) (string, bool, error) {
	return c.getText(ctx, "Selected", "")
}

// ListKind classifies list-like controls.
type ListKind int

const (
	ListOther ListKind = iota
	ListCombo
	ListBox
	ListView
)

func (k ListKind) String() string {
	switch k {
	case ListCombo:
		return "combo"
	case ListBox:
		return "listbox"
	case ListView:
		return "listview"
	}
	return "other"
}

func classifyList(class string) ListKind {
	lower := strings.ToLower(class)
	switch {
	case strings.Contains(lower, "syslistview32"):
		return ListView
	case strings.Contains(lower, "combo"):
		return ListCombo
	case strings.Contains(lower, "list"):
		return ListBox
	}
	return ListOther
}

// ListKind classifies the control by its class name.
func (c Control) ListKind(ctx context.Context) (ListKind, error) {
	class, _, err := c.ClassName(ctx)
	if err != nil {
		return ListOther, err
	}
	return classifyList(class), nil
}

// listUnclassified marks a kind not yet fetched within one operation.
const listUnclassified ListKind = -1

// classify returns kind when it is already known and fetches it otherwise.
func (c Control) classify(ctx context.Context, kind ListKind) (ListKind, error) {
	if kind != listUnclassified {
		return kind, nil
	}
	return c.ListKind(ctx)
}

// ListChoice returns the selected entry of a list box or combo box.
func (c Control) ListChoice(ctx context.Context) (string, bool, error) {
	s, ok, err := c.getText(ctx, "Choice", "")
	if backend.IsCode(err, backend.CodeFailed) {
		idx, iok, ierr := c.ListChoiceIndex(ctx)
		if ierr == nil && iok && idx == -1 {
			return "", false, nil
		}
		return "", false, err
	}
	return s, ok, err
}

// listMessage sends the combo box or list box variant of a message.
func (c Control) listMessage(ctx context.Context, kind ListKind, combo, box uint32, wParam int64, text *string) (int, bool, error) {
	var msg uint32
	switch kind {
	case ListCombo:
		msg = combo
	case ListBox:
		msg = box
	default:
		return 0, false, nil
	}
	v, ok, err := c.sendMessage(ctx, msg, wParam, 0, text, listMessageTimeout)
	return int(int32(v)), ok, err
}

// ListChoiceIndex returns the 0-based selected index of a list box or
// combo box, or -1 when nothing is selected.
func (c Control) ListChoiceIndex(ctx context.Context) (int, bool, error) {
	kind, err := c.ListKind(ctx)
	if err != nil {
		return 0, false, err
	}
	return c.listMessage(ctx, kind, msgCBGetCurSel, msgLBGetCurSel, 0, nil)
}

// ChooseItemIndex selects an entry by 0-based index. Negative indexes
// count from the end.
func (c Control) ChooseItemIndex(ctx context.Context, index int) error {
	kind := listUnclassified
	if index < 0 {
		var err error
		if kind, err = c.ListKind(ctx); err != nil {
			return err
		}
		count, ok, err := c.itemCount(ctx, kind)
		if err != nil || !ok {
			return err
		}
		index += count
	}
	err := c.controlCommand(ctx, "Choose", strconv.Itoa(index+1))
	if backend.IsCode(err, backend.CodeFailed) {
		kind, kerr := c.classify(ctx, kind)
		if kerr != nil {
			return err
		}
		count, ok, cerr := c.itemCount(ctx, kind)
		if cerr == nil && ok && (index < 0 || count < index+1) {
			return fmt.Errorf("list item index %d out of range: %w", index, err)
		}
	}
	return err
}

// ChooseItem selects the first entry starting with value.
func (c Control) ChooseItem(ctx context.Context, value string) error {
	err := c.controlCommand(ctx, "ChooseString", value)
	if backend.IsCode(err, backend.CodeFailed) {
		idx, ok, ierr := c.ListItemIndex(ctx, value)
		if ierr == nil && ok && idx == -1 {
			return fmt.Errorf("list item %q doesn't exist: %w", value, err)
		}
	}
	return err
}

// ListItemIndex returns the index of the entry equal to value, ignoring
// case, or -1.
func (c Control) ListItemIndex(ctx context.Context, value string) (int, bool, error) {
	kind, err := c.ListKind(ctx)
	if err != nil {
		return 0, false, err
	}
	return c.listMessage(ctx, kind, msgCBFindStringExact, msgLBFindStringExact, -1, &value)
}

// ListOptions filter GetListItems. Selected and Focused apply to list views
// only; Column picks a single 0-based column, negative values counting
// from the last column.
type ListOptions struct {
	Selected bool
	Focused  bool
	Column   Field[int]
}

func (o ListOptions) String() string {
	var parts []string
	if o.Selected {
		parts = append(parts, "Selected")
	}
	if o.Focused {
		parts = append(parts, "Focused")
	}
	if col, ok := o.Column.Get(); ok && col >= 0 {
		parts = append(parts, "Col"+strconv.Itoa(col+1))
	}
	return strings.Join(parts, " ")
}

// GetListItems returns list entries as rows of columns. List boxes and
// combo boxes have one column per row.
func (c Control) GetListItems(ctx context.Context, opts ListOptions) ([][]string, bool, error) {
	kind := listUnclassified
	if col, set := opts.Column.Get(); set && col < 0 {
		var err error
		if kind, err = c.ListKind(ctx); err != nil {
			return nil, false, err
		}
		if kind != ListView {
			return nil, false, nil
		}
		count, ok, err := c.countListItems(ctx, kind, "Col")
		if err != nil || !ok {
			return nil, false, err
		}
		if col+count < 0 {
			return nil, false, &ConfigurationError{Field: "column", Value: col, Reason: fmt.Sprintf("list view has %d columns", count)}
		}
		opts.Column = Is(col + count)
	}

	s, ok, err := c.getText(ctx, "List", opts.String())
	if backend.IsCode(err, backend.CodeFailed) {
		kind, kerr := c.classify(ctx, kind)
		if kerr != nil {
			return nil, false, err
		}
		if kind != ListView {
			return nil, false, nil
		}
		if col, set := opts.Column.Get(); set {
			count, cok, cerr := c.countListItems(ctx, kind, "Col")
			if cerr == nil && cok && count < col+1 {
				return nil, false, fmt.Errorf("column index %d out of range: %w", col, err)
			}
		}
		return nil, false, fmt.Errorf("there was a problem getting list items: %w", err)
	}
	if err != nil || !ok {
		return nil, false, err
	}
	if s == "" {
		return [][]string{}, true, nil
	}
	lines := strings.Split(s, "\n")
	rows := make([][]string, len(lines))
	for i, line := range lines {
		rows[i] = strings.Split(line, "\t")
	}
	return rows, true, nil
}

// ListItems returns every entry.
func (c Control) ListItems(ctx context.Context) ([][]string, bool, error) {
	return c.GetListItems(ctx, ListOptions{})
}

// SelectedListItems returns the selected rows of a list view.
func (c Control) SelectedListItems(ctx context.Context) ([][]string, bool, error) {
	return c.GetListItems(ctx, ListOptions{Selected: true})
}

// FocusedListItem returns the focused row of a list view.
func (c Control) FocusedListItem(ctx context.Context) ([]string, bool, error) {
	rows, ok, err := c.GetListItems(ctx, ListOptions{Focused: true})
	if err != nil || !ok || len(rows) == 0 {
		return nil, false, err
	}
	return rows[0], true, nil
}

// countListItems runs ControlGet List with a count option, valid on list
// views only. kind may be listUnclassified; it is only needed on failure.
func (c Control) countListItems(ctx context.Context, kind ListKind, option string) (int, bool, error) {
	v, ok, err := c.getInt(ctx, "List", strings.TrimSpace("Count "+option))
	if backend.IsCode(err, backend.CodeFailed) {
		kind, kerr := c.classify(ctx, kind)
		if kerr == nil && kind != ListView {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("there was a problem counting list items: %w", err)
	}
	return v, ok, err
}

// itemCount counts entries of a control of the given kind.
func (c Control) itemCount(ctx context.Context, kind ListKind) (int, bool, error) {
	if kind == ListView {
		return c.countListItems(ctx, kind, "")
	}
	return c.listMessage(ctx, kind, msgCBGetCount, msgLBGetCount, 0, nil)
}

// ListItemCount returns the number of entries.
func (c Control) ListItemCount(ctx context.Context) (int, bool, error) {
	kind, err := c.ListKind(ctx)
	if err != nil {
		return 0, false, err
	}
	return c.itemCount(ctx, kind)
}

// SelectedListItemCount returns the number of selected list view rows.
func (c Control) SelectedListItemCount(ctx context.Context) (int, bool, error) {
	return c.countListItems(ctx, listUnclassified, "Selected")
}

// FocusedListItemIndex returns the 0-based focused list view row, or -1.
func (c Control) FocusedListItemIndex(ctx context.Context) (int, bool, error) {
	v, ok, err := c.countListItems(ctx, listUnclassified, "Focused")
	return v - 1, ok, err
}

// ListViewColumnCount returns the number of list view columns.
func (c Control) ListViewColumnCount(ctx context.Context) (int, bool, error) {
	return c.countListItems(ctx, listUnclassified, "Col")
}
