package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/winquery/internal/settings"
)

func writeConfig(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if got := cfg.AutomationSettings(); got != settings.Builtin() {
		t.Fatalf("expected default settings to round-trip to builtin, got %+v", got)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.File != "" {
		t.Fatalf("expected no file, got %q", res.File)
	}
	if res.Config.Backend != BackendX11 {
		t.Fatalf("expected backend x11, got %q", res.Config.Backend)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, "# empty")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.PollInterval() != 100*time.Millisecond {
		t.Fatalf("expected 100ms poll interval, got %v", res.Config.PollInterval())
	}
	if res.File != path {
		t.Fatalf("expected file %q, got %q", path, res.File)
	}
}

func TestLoadFromPath_OverridesKeepOtherDefaults(t *testing.T) {
	path := writeConfig(t,
		`display: ":1"`,
		`backend: memory`,
		`logging:`,
		`  level: debug`,
		`settings:`,
		`  win_delay: 0.25`,
		`  key_delay: -1`,
		`  send_mode: event`,
	)
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.Display != ":1" || cfg.Backend != BackendMemory {
		t.Fatalf("unexpected display/backend: %q %q", cfg.Display, cfg.Backend)
	}
	if cfg.Logging.Format != "text" {
		t.Fatalf("expected logging.format default to survive, got %q", cfg.Logging.Format)
	}

	s := cfg.AutomationSettings()
	if s.WinDelay != 250*time.Millisecond {
		t.Fatalf("expected win delay 250ms, got %v", s.WinDelay)
	}
	if s.KeyDelay != settings.UseDefault {
		t.Fatalf("expected key delay to use backend default, got %v", s.KeyDelay)
	}
	if s.ControlDelay != 20*time.Millisecond {
		t.Fatalf("expected control delay default, got %v", s.ControlDelay)
	}
	if s.SendMode != settings.SendEvent {
		t.Fatalf("expected send mode event, got %q", s.SendMode)
	}
	if cfg.LogLevel().String() != "DEBUG" {
		t.Fatalf("expected debug level, got %v", cfg.LogLevel())
	}
}

func TestLoadFromPath_StrictUnknownKeyErrors(t *testing.T) {
	path := writeConfig(t, "backend: x11", "tiling: grid")
	if _, err := LoadFromPath(path); err == nil {
		t.Fatalf("expected unknown key to fail")
	} else if !strings.Contains(err.Error(), "tiling") {
		t.Fatalf("expected error to name the key, got %v", err)
	}
}

func TestLoadFromPath_Hotkeys(t *testing.T) {
	path := writeConfig(t,
		`hotkeys:`,
		`  - key: "Mod4-m"`,
		`    action: minimize`,
		`    window: {class: "Firefox", match: exact}`,
		`    when: active`,
		`  - key: "Mod4-t"`,
		`    action: activate`,
		`    window: {title: "Terminal"}`,
	)
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	hks := res.Config.Hotkeys
	if len(hks) != 2 {
		t.Fatalf("expected 2 hotkeys, got %d", len(hks))
	}
	if hks[0].When != GuardActive || hks[0].Window.Class != "Firefox" || hks[0].Window.Match != "exact" {
		t.Fatalf("unexpected first hotkey: %+v", hks[0])
	}
	if hks[1].When != GuardAlways || hks[1].Action != ActionActivate {
		t.Fatalf("unexpected second hotkey: %+v", hks[1])
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"backend", func(c *Config) { c.Backend = "wayland" }, "backend"},
		{"poll interval", func(c *Config) { c.PollIntervalMS = 0 }, "poll_interval_ms"},
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"settings", func(c *Config) { c.Settings.MouseSpeed = 101 }, "settings"},
		{"send mode", func(c *Config) { c.Settings.SendMode = "telepathy" }, "settings"},
		{"empty key", func(c *Config) {
			c.Hotkeys = []Hotkey{{Action: ActionClose, Window: WindowMatch{Title: "x"}}}
		}, "hotkeys[0].key"},
		{"duplicate key", func(c *Config) {
			hk := Hotkey{Key: "Mod4-x", Action: ActionClose, Window: WindowMatch{Title: "x"}}
			c.Hotkeys = []Hotkey{hk, hk}
		}, "hotkeys[1].key"},
		{"action", func(c *Config) {
			c.Hotkeys = []Hotkey{{Key: "Mod4-x", Action: "explode", Window: WindowMatch{Title: "x"}}}
		}, "hotkeys[0].action"},
		{"guard", func(c *Config) {
			c.Hotkeys = []Hotkey{{Key: "Mod4-x", Action: ActionClose, Window: WindowMatch{Title: "x"}, When: "sometimes"}}
		}, "hotkeys[0].when"},
		{"match", func(c *Config) {
			c.Hotkeys = []Hotkey{{Key: "Mod4-x", Action: ActionClose, Window: WindowMatch{Title: "x", Match: "fuzzy"}}}
		}, "hotkeys[0].window.match"},
		{"unconstrained close", func(c *Config) {
			c.Hotkeys = []Hotkey{{Key: "Mod4-x", Action: ActionClose}}
		}, "hotkeys[0].window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("expected path %q, got %q (%v)", tt.path, verr.Path, err)
			}
		})
	}
}

func TestValidate_UnconstrainedMinimizeAllowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Hotkeys = []Hotkey{{Key: "Mod4-d", Action: ActionMinimize}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected minimize without window to validate, got %v", err)
	}
}

func TestSaveTo_RoundTrips(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Socket = "/tmp/wq.sock"
	cfg.Hotkeys = []Hotkey{{Key: "Mod4-p", Action: ActionPin, Window: WindowMatch{Exe: "mpv"}, When: GuardExists}}

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Socket != "/tmp/wq.sock" {
		t.Fatalf("expected socket to survive, got %q", res.Config.Socket)
	}
	if len(res.Config.Hotkeys) != 1 || res.Config.Hotkeys[0] != cfg.Hotkeys[0] {
		t.Fatalf("expected hotkey to survive, got %+v", res.Config.Hotkeys)
	}
}

func TestSaveTo_RefusesInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = "nope"
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.SaveTo(path); err == nil {
		t.Fatalf("expected invalid config to be refused")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no file to be written, got %v", err)
	}
}
