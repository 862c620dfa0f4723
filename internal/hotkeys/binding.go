package hotkeys

import (
	"context"
	"fmt"

	"github.com/1broseidon/winquery/internal/config"
	"github.com/1broseidon/winquery/internal/window"
)

// Binding is a configured hotkey resolved against a window client.
type Binding struct {
	Key    string
	Action config.Action
	Filter window.Filter
	// Guard is nil when the binding always fires.
	Guard window.Condition
	Run   func(ctx context.Context) error
}

// Filter builds the window filter a WindowMatch describes.
func Filter(client *window.Client, m config.WindowMatch) (window.Filter, error) {
	var opts []window.Criterion
	if m.Title != "" {
		opts = append(opts, window.Title(m.Title))
	}
	if m.Class != "" {
		opts = append(opts, window.Class(m.Class))
	}
	if m.Exe != "" {
		opts = append(opts, window.Exe(m.Exe))
	}
	if m.Text != "" {
		opts = append(opts, window.Text(m.Text))
	}
	if m.Match != "" {
		opts = append(opts, window.Match(window.MatchMode(m.Match)))
	}
	return client.Windows().Filter(opts...)
}

// NewBinding resolves hk into a runnable binding. It does not touch X.
func NewBinding(client *window.Client, hk config.Hotkey) (Binding, error) {
	f, err := Filter(client, hk.Window)
	if err != nil {
		return Binding{}, fmt.Errorf("hotkey %s: %w", hk.Key, err)
	}

	b := Binding{Key: hk.Key, Action: hk.Action, Filter: f}

	switch hk.When {
	case config.GuardAlways:
	case config.GuardExists:
		b.Guard = f.Exists()
	case config.GuardMissing:
		b.Guard = f.Missing()
	case config.GuardActive:
		b.Guard = f.IsActive()
	case config.GuardInactive:
		b.Guard = f.IsInactive()
	default:
		return Binding{}, fmt.Errorf("hotkey %s: unknown guard %q", hk.Key, hk.When)
	}

	switch hk.Action {
	case config.ActionActivate:
		b.Run = func(ctx context.Context) error {
			_, err := f.Activate(ctx, 0)
			return err
		}
	case config.ActionMinimize:
		if hk.Window.Empty() {
			b.Run = f.MinimizeAll
		} else {
			b.Run = f.Minimize
		}
	case config.ActionMaximize:
		b.Run = f.Maximize
	case config.ActionRestore:
		b.Run = f.Restore
	case config.ActionClose:
		b.Run = func(ctx context.Context) error {
			_, err := f.Close(ctx, 0)
			return err
		}
	case config.ActionPin:
		b.Run = f.PinToTop
	case config.ActionUnpin:
		b.Run = f.UnpinFromTop
	default:
		return Binding{}, fmt.Errorf("hotkey %s: unknown action %q", hk.Key, hk.Action)
	}
	return b, nil
}

// Fire runs the binding if its guard holds and reports whether it ran.
// The guard is evaluated before the action, outside any session lock.
func (b Binding) Fire(ctx context.Context) (bool, error) {
	if b.Guard != nil && !b.Guard(ctx) {
		return false, nil
	}
	return true, b.Run(ctx)
}
