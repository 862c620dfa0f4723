package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/winquery/internal/window"
)

const defaultWaitTimeout = 30 * time.Second

// filter turns a tool query into a window filter.
func (s *Server) filter(q WindowQuery) (window.Filter, error) {
	base := s.client.Windows()
	if q.IncludeHidden {
		base = s.client.AllWindows()
	}
	if q.ID != 0 {
		return base.IncludeHiddenWindows(true).Filter(window.ID(q.ID))
	}

	var opts []window.Criterion
	if q.Title != "" {
		opts = append(opts, window.Title(q.Title))
	}
	if q.Class != "" {
		opts = append(opts, window.Class(q.Class))
	}
	if q.Exe != "" {
		opts = append(opts, window.Exe(q.Exe))
	}
	if q.Text != "" {
		opts = append(opts, window.Text(q.Text))
	}
	if q.Match != "" {
		opts = append(opts, window.Match(window.MatchMode(strings.ToLower(q.Match))))
	}
	f, err := base.Filter(opts...)
	if err != nil {
		return f, err
	}
	if q.ExcludeTitle != "" {
		f = f.Exclude(window.ExcludeTitle(q.ExcludeTitle))
	}
	return f, nil
}

func timeoutSeconds(sec float64, def time.Duration) time.Duration {
	if sec <= 0 {
		return def
	}
	return time.Duration(sec * float64(time.Second))
}

func describe(ctx context.Context, w window.Window) (WindowInfo, error) {
	info, err := w.Describe(ctx)
	return WindowInfo{
		ID:          info.ID,
		Title:       info.Title,
		Class:       info.Class,
		PID:         info.PID,
		Process:     info.Process,
		X:           info.Rect.X,
		Y:           info.Rect.Y,
		Width:       info.Rect.Width,
		Height:      info.Rect.Height,
		Visible:     info.Visible,
		Minimized:   info.Minimized,
		Maximized:   info.Maximized,
		Active:      info.Active,
		AlwaysOnTop: info.AlwaysOnTop,
	}, err
}

func describeFound(ctx context.Context, w window.Window) (*WindowInfo, error) {
	if !w.Valid() {
		return nil, nil
	}
	info, err := describe(ctx, w)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *Server) handleListWindows(ctx context.Context, _ *mcpsdk.CallToolRequest, args ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	f, err := s.filter(args.Window)
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	windows, err := f.All(ctx)
	if err != nil {
		return nil, ListWindowsOutput{}, fmt.Errorf("list windows: %w", err)
	}
	if args.Limit > 0 && len(windows) > args.Limit {
		windows = windows[:args.Limit]
	}

	out := ListWindowsOutput{Windows: make([]WindowInfo, 0, len(windows))}
	for _, w := range windows {
		info, err := describe(ctx, w)
		if err != nil {
			return nil, ListWindowsOutput{}, fmt.Errorf("describe %s: %w", w, err)
		}
		out.Windows = append(out.Windows, info)
	}
	out.Count = len(out.Windows)
	return nil, out, nil
}

func (s *Server) handleFindWindow(ctx context.Context, _ *mcpsdk.CallToolRequest, args FindWindowInput) (*mcpsdk.CallToolResult, FindWindowOutput, error) {
	f, err := s.filter(args.Window)
	if err != nil {
		return nil, FindWindowOutput{}, err
	}
	var w window.Window
	if args.Last {
		w, err = f.Last(ctx)
	} else {
		w, err = f.First(ctx)
	}
	if err != nil {
		return nil, FindWindowOutput{}, err
	}
	info, err := describeFound(ctx, w)
	if err != nil {
		return nil, FindWindowOutput{}, err
	}
	return nil, FindWindowOutput{Found: info != nil, Window: info}, nil
}

func (s *Server) handleWindowInfo(ctx context.Context, _ *mcpsdk.CallToolRequest, args WindowInfoInput) (*mcpsdk.CallToolResult, FindWindowOutput, error) {
	if args.ID == 0 {
		return nil, FindWindowOutput{}, fmt.Errorf("id is required")
	}
	w := s.client.Window(args.ID)
	exists, err := w.Exists(ctx)
	if err != nil {
		return nil, FindWindowOutput{}, err
	}
	if !exists {
		return nil, FindWindowOutput{}, nil
	}
	info, err := describe(ctx, w)
	if err != nil {
		return nil, FindWindowOutput{}, err
	}
	return nil, FindWindowOutput{Found: true, Window: &info}, nil
}

func (s *Server) handleActivateWindow(ctx context.Context, _ *mcpsdk.CallToolRequest, args ActivateWindowInput) (*mcpsdk.CallToolResult, ActivateWindowOutput, error) {
	f, err := s.filter(args.Window)
	if err != nil {
		return nil, ActivateWindowOutput{}, err
	}
	w, err := f.First(ctx)
	if err != nil {
		return nil, ActivateWindowOutput{}, err
	}
	if !w.Valid() {
		return nil, ActivateWindowOutput{}, fmt.Errorf("no window matches %s", f)
	}
	ok, err := w.Activate(ctx, timeoutSeconds(args.Timeout, 0))
	if err != nil {
		return nil, ActivateWindowOutput{}, err
	}
	s.logger.Debug("mcp activate", "window", w.String(), "activated", ok)
	return nil, ActivateWindowOutput{Activated: ok}, nil
}

func (s *Server) handleWindowAction(ctx context.Context, _ *mcpsdk.CallToolRequest, args WindowActionInput) (*mcpsdk.CallToolResult, WindowActionOutput, error) {
	f, err := s.filter(args.Window)
	if err != nil {
		return nil, WindowActionOutput{}, err
	}
	action := strings.ToLower(strings.TrimSpace(args.Action))
	out := WindowActionOutput{Action: action}

	switch action {
	case "close", "kill":
		switch {
		case action == "close" && args.All:
			_, err = f.CloseAll(ctx, 0)
		case action == "close":
			_, err = f.Close(ctx, 0)
		case args.All:
			_, err = f.KillAll(ctx, 0)
		default:
			_, err = f.Kill(ctx, 0)
		}
		if err != nil {
			return nil, WindowActionOutput{}, err
		}
		n, err := f.Count(ctx)
		if err != nil {
			return nil, WindowActionOutput{}, err
		}
		out.Remaining = &n
	case "minimize":
		err = pick(args.All, f.MinimizeAll, f.Minimize)(ctx)
	case "maximize":
		err = pick(args.All, f.MaximizeAll, f.Maximize)(ctx)
	case "restore":
		err = pick(args.All, f.RestoreAll, f.Restore)(ctx)
	case "show":
		err = pick(args.All, f.ShowAll, f.Show)(ctx)
	case "hide":
		err = pick(args.All, f.HideAll, f.Hide)(ctx)
	case "pin":
		err = pick(args.All, eachWindow(f, window.Window.PinToTop), f.PinToTop)(ctx)
	case "unpin":
		err = pick(args.All, eachWindow(f, window.Window.UnpinFromTop), f.UnpinFromTop)(ctx)
	default:
		return nil, WindowActionOutput{}, fmt.Errorf("unknown action %q", args.Action)
	}
	if err != nil {
		return nil, WindowActionOutput{}, err
	}
	s.logger.Debug("mcp window action", "action", action, "all", args.All, "filter", f.String())
	return nil, out, nil
}

func pick(all bool, many, one func(context.Context) error) func(context.Context) error {
	if all {
		return many
	}
	return one
}

func eachWindow(f window.Filter, fn func(window.Window, context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		windows, err := f.All(ctx)
		if err != nil {
			return err
		}
		for _, w := range windows {
			if err := fn(w, ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func optionalInt(p *int) window.Field[int] {
	if p == nil {
		return window.Unset[int]()
	}
	return window.Is(*p)
}

func (s *Server) handleMoveWindow(ctx context.Context, _ *mcpsdk.CallToolRequest, args MoveWindowInput) (*mcpsdk.CallToolResult, WindowInfo, error) {
	f, err := s.filter(args.Window)
	if err != nil {
		return nil, WindowInfo{}, err
	}
	w, err := f.First(ctx)
	if err != nil {
		return nil, WindowInfo{}, err
	}
	if !w.Valid() {
		return nil, WindowInfo{}, fmt.Errorf("no window matches %s", f)
	}
	err = w.Move(ctx, window.MoveOptions{
		X:      optionalInt(args.X),
		Y:      optionalInt(args.Y),
		Width:  optionalInt(args.Width),
		Height: optionalInt(args.Height),
	})
	if err != nil {
		return nil, WindowInfo{}, err
	}
	info, err := describe(ctx, w)
	return nil, info, err
}

func (s *Server) handleWaitWindow(ctx context.Context, _ *mcpsdk.CallToolRequest, args WaitWindowInput) (*mcpsdk.CallToolResult, WaitWindowOutput, error) {
	f, err := s.filter(args.Window)
	if err != nil {
		return nil, WaitWindowOutput{}, err
	}
	timeout := timeoutSeconds(args.Timeout, defaultWaitTimeout)

	var out WaitWindowOutput
	switch strings.ToLower(args.State) {
	case "", "exists":
		w, err := f.Wait(ctx, timeout)
		if err != nil {
			return nil, WaitWindowOutput{}, err
		}
		if out.Window, err = describeFound(ctx, w); err != nil {
			return nil, WaitWindowOutput{}, err
		}
		out.Satisfied = out.Window != nil
	case "active":
		out.Satisfied, err = f.WaitActive(ctx, timeout)
	case "inactive":
		out.Satisfied, err = f.WaitInactive(ctx, timeout)
	case "closed":
		out.Satisfied, err = f.WaitClose(ctx, timeout)
	default:
		return nil, WaitWindowOutput{}, fmt.Errorf("unknown state %q (want exists, active, inactive or closed)", args.State)
	}
	if err != nil {
		return nil, WaitWindowOutput{}, err
	}
	return nil, out, nil
}
