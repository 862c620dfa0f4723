package window

import "context"

// Info is a point-in-time description of a window.
type Info struct {
	ID          uint64
	Title       string
	Class       string
	PID         int
	Process     string
	Rect        Rect
	Visible     bool
	Minimized   bool
	Maximized   bool
	Active      bool
	AlwaysOnTop bool
}

// State names the min/max state: minimized, maximized or normal.
func (i Info) State() string {
	switch {
	case i.Minimized:
		return "minimized"
	case i.Maximized:
		return "maximized"
	}
	return "normal"
}

// Describe reads the window's properties one query at a time. A window
// that vanishes part way reports whatever was read before it went.
func (w Window) Describe(ctx context.Context) (Info, error) {
	info := Info{ID: w.ID()}
	var err error
	if info.Title, _, err = w.Title(ctx); err != nil {
		return info, err
	}
	if info.Class, _, err = w.ClassName(ctx); err != nil {
		return info, err
	}
	if info.PID, _, err = w.PID(ctx); err != nil {
		return info, err
	}
	if info.Process, _, err = w.ProcessName(ctx); err != nil {
		return info, err
	}
	if info.Rect, _, err = w.Rect(ctx); err != nil {
		return info, err
	}
	if info.Visible, err = w.IsVisible(ctx); err != nil {
		return info, err
	}
	if info.Minimized, err = w.IsMinimized(ctx); err != nil {
		return info, err
	}
	if info.Maximized, err = w.IsMaximized(ctx); err != nil {
		return info, err
	}
	if info.Active, err = w.IsActive(ctx); err != nil {
		return info, err
	}
	if info.AlwaysOnTop, err = w.AlwaysOnTop(ctx); err != nil {
		return info, err
	}
	return info, nil
}
