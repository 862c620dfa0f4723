package mcp

// WindowQuery selects windows. Empty fields do not constrain the match.
type WindowQuery struct {
	ID            uint64 `json:"id,omitempty" jsonschema:"Window id; when set the other criteria are ignored"`
	Title         string `json:"title,omitempty" jsonschema:"Window title to match (see match)"`
	Class         string `json:"class,omitempty" jsonschema:"Exact window class (WM_CLASS)"`
	Exe           string `json:"exe,omitempty" jsonschema:"Process name or full executable path"`
	Text          string `json:"text,omitempty" jsonschema:"Text the window must contain"`
	ExcludeTitle  string `json:"exclude_title,omitempty" jsonschema:"Windows whose title matches this are skipped"`
	Match         string `json:"match,omitempty" jsonschema:"Title match mode: prefix (default), contains, exact or regex"`
	IncludeHidden bool   `json:"include_hidden,omitempty" jsonschema:"Also match hidden windows"`
}

// WindowInfo describes a single window.
type WindowInfo struct {
	ID          uint64 `json:"id"`
	Title       string `json:"title"`
	Class       string `json:"class"`
	PID         int    `json:"pid"`
	Process     string `json:"process,omitempty"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Visible     bool   `json:"visible"`
	Minimized   bool   `json:"minimized"`
	Maximized   bool   `json:"maximized"`
	Active      bool   `json:"active"`
	AlwaysOnTop bool   `json:"always_on_top"`
}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct {
	Window WindowQuery `json:"window,omitempty" jsonschema:"Which windows to target"`
	Limit  int         `json:"limit,omitempty" jsonschema:"Maximum number of windows to return (default: all)"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Count   int          `json:"count"`
	Windows []WindowInfo `json:"windows"`
}

// FindWindowInput is the input for the find_window tool.
type FindWindowInput struct {
	Window WindowQuery `json:"window,omitempty" jsonschema:"Which windows to target"`
	Last   bool        `json:"last,omitempty" jsonschema:"Return the bottom-most match instead of the top-most"`
}

// FindWindowOutput is the output for the find_window and window_info tools.
type FindWindowOutput struct {
	Found  bool        `json:"found"`
	Window *WindowInfo `json:"window,omitempty"`
}

// WindowInfoInput is the input for the window_info tool.
type WindowInfoInput struct {
	ID uint64 `json:"id" jsonschema:"Window id as returned by list_windows or find_window"`
}

// ActivateWindowInput is the input for the activate_window tool.
type ActivateWindowInput struct {
	Window  WindowQuery `json:"window,omitempty" jsonschema:"Which windows to target"`
	Timeout float64     `json:"timeout,omitempty" jsonschema:"Seconds to wait for the window to become active (default: do not wait)"`
}

// ActivateWindowOutput is the output for the activate_window tool.
type ActivateWindowOutput struct {
	Activated bool `json:"activated"`
}

// WindowActionInput is the input for the window_action tool.
type WindowActionInput struct {
	Window WindowQuery `json:"window,omitempty" jsonschema:"Which windows to target"`
	Action string      `json:"action" jsonschema:"One of close, kill, minimize, maximize, restore, show, hide, pin, unpin"`
	All    bool        `json:"all,omitempty" jsonschema:"Apply to every matching window instead of the top-most"`
}

// WindowActionOutput is the output for the window_action tool.
type WindowActionOutput struct {
	Action string `json:"action"`
	// Remaining is set for close and kill: matching windows left afterwards.
	Remaining *int `json:"remaining,omitempty"`
}

// MoveWindowInput is the input for the move_window tool.
type MoveWindowInput struct {
	Window WindowQuery `json:"window,omitempty" jsonschema:"Which windows to target"`
	X      *int        `json:"x,omitempty" jsonschema:"New left edge in pixels"`
	Y      *int        `json:"y,omitempty" jsonschema:"New top edge in pixels"`
	Width  *int        `json:"width,omitempty" jsonschema:"New width in pixels"`
	Height *int        `json:"height,omitempty" jsonschema:"New height in pixels"`
}

// WaitWindowInput is the input for the wait_window tool.
type WaitWindowInput struct {
	Window  WindowQuery `json:"window,omitempty" jsonschema:"Which windows to target"`
	State   string      `json:"state,omitempty" jsonschema:"exists (default), active, inactive or closed"`
	Timeout float64     `json:"timeout,omitempty" jsonschema:"Seconds to wait (default: 30)"`
}

// WaitWindowOutput is the output for the wait_window tool.
type WaitWindowOutput struct {
	Satisfied bool        `json:"satisfied"`
	Window    *WindowInfo `json:"window,omitempty"`
}
