package hotkeys

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/1broseidon/winquery/internal/config"
	"github.com/1broseidon/winquery/internal/window"
	"github.com/1broseidon/winquery/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Handler manages global keyboard shortcuts
type Handler struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	logger *slog.Logger
}

var ignoreModsOnce sync.Once

// NewHandler creates a new hotkey handler on conn.
func NewHandler(conn *x11.Connection, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ignoreModsOnce.Do(func() {
		configureIgnoreMods(conn.XUtil)
	})

	return &Handler{
		xu:     conn.XUtil,
		root:   conn.Root,
		logger: logger,
	}
}

// RegisterFunc registers a hotkey callback. When guard is non-nil the
// callback runs only while it holds. Callbacks run off the event loop so
// they may talk to the desktop.
func (h *Handler) RegisterFunc(ctx context.Context, keySequence string, guard window.Condition, callback func()) error {
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		go func() {
			if guard != nil && !guard(ctx) {
				h.logger.Debug("hotkey guard not met", "key", keySequence)
				return
			}
			callback()
		}()
	}).Connect(h.xu, h.root, keySequence, true)
}

// RegisterBindings resolves and registers every configured hotkey.
func (h *Handler) RegisterBindings(ctx context.Context, client *window.Client, hotkeys []config.Hotkey) error {
	for _, hk := range hotkeys {
		b, err := NewBinding(client, hk)
		if err != nil {
			return err
		}
		if err := h.RegisterFunc(ctx, b.Key, b.Guard, func() {
			h.logger.Info("hotkey triggered", "key", b.Key, "action", b.Action, "filter", b.Filter.String())
			if err := b.Run(ctx); err != nil {
				h.logger.Warn("hotkey action failed", "key", b.Key, "error", err)
			}
		}); err != nil {
			return fmt.Errorf("failed to register hotkey %s: %w", hk.Key, err)
		}
	}
	return nil
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for _, mask := range maskSubsets(base) {
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

// maskSubsets returns the OR of every non-empty subset of base.
func maskSubsets(base []uint16) []uint16 {
	var out []uint16
	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		out = append(out, mask)
	}
	return out
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
