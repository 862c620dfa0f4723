package backend

import "strings"

// Rect is a screen rectangle in pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Result is the value returned by a backend command. A command fills at most
// one of the fields; a result with none of them is blank.
type Result struct {
	Int  *int64   `json:"int,omitempty"`
	Text *string  `json:"text,omitempty"`
	IDs  []uint64 `json:"ids,omitempty"`
	Rect *Rect    `json:"rect,omitempty"`
}

// IntResult wraps an integer.
func IntResult(v int64) Result { return Result{Int: &v} }

// BoolResult encodes b as 1 or 0.
func BoolResult(b bool) Result {
	if b {
		return IntResult(1)
	}
	return IntResult(0)
}

// TextResult wraps a string.
func TextResult(s string) Result { return Result{Text: &s} }

// IDsResult wraps an id list. A nil list is normalized to an empty one so
// the result is distinguishable from a blank result in process.
func IDsResult(ids []uint64) Result {
	if ids == nil {
		ids = []uint64{}
	}
	return Result{IDs: ids}
}

// RectResult wraps a rectangle.
func RectResult(r Rect) Result { return Result{Rect: &r} }

// Empty reports whether the backend returned nothing usable. An empty string
// counts as blank.
func (r Result) Empty() bool {
	return r.Int == nil && (r.Text == nil || *r.Text == "") && len(r.IDs) == 0 && r.Rect == nil
}

// Integer returns the integer value, if any.
func (r Result) Integer() (int64, bool) {
	if r.Int == nil {
		return 0, false
	}
	return *r.Int, true
}

// Bool reports whether the result holds a non-zero integer.
func (r Result) Bool() bool {
	return r.Int != nil && *r.Int != 0
}

// String returns the text value, or "" when there is none.
func (r Result) String() string {
	if r.Text == nil {
		return ""
	}
	return *r.Text
}

// Lines splits the text value on newlines, dropping a trailing empty line.
func (r Result) Lines() []string {
	s := strings.TrimRight(strings.ReplaceAll(r.String(), "\r\n", "\n"), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
