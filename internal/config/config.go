package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/1broseidon/winquery/internal/settings"
	"gopkg.in/yaml.v3"
)

// Backend names the desktop implementation the daemon drives.
type Backend string

const (
	BackendX11    Backend = "x11"
	BackendMemory Backend = "memory"
)

// Action is what a hotkey does to the windows it targets.
type Action string

const (
	ActionActivate Action = "activate"
	ActionMinimize Action = "minimize"
	ActionMaximize Action = "maximize"
	ActionRestore  Action = "restore"
	ActionClose    Action = "close"
	ActionPin      Action = "pin"
	ActionUnpin    Action = "unpin"
)

var actions = []Action{ActionActivate, ActionMinimize, ActionMaximize, ActionRestore, ActionClose, ActionPin, ActionUnpin}

// Guard selects when a hotkey is allowed to fire, relative to its window.
type Guard string

const (
	GuardAlways   Guard = ""
	GuardExists   Guard = "exists"
	GuardMissing  Guard = "missing"
	GuardActive   Guard = "active"
	GuardInactive Guard = "inactive"
)

// WindowMatch is the YAML form of a window filter.
type WindowMatch struct {
	Title string `yaml:"title,omitempty"`
	Class string `yaml:"class,omitempty"`
	Exe   string `yaml:"exe,omitempty"`
	Text  string `yaml:"text,omitempty"`
	Match string `yaml:"match,omitempty"` // prefix, contains, exact, regex
}

// Empty reports whether m constrains nothing.
func (m WindowMatch) Empty() bool {
	return m.Title == "" && m.Class == "" && m.Exe == "" && m.Text == ""
}

// Hotkey binds a key combination to a window action.
type Hotkey struct {
	Key    string      `yaml:"key"`
	Action Action      `yaml:"action"`
	Window WindowMatch `yaml:"window"`
	When   Guard       `yaml:"when,omitempty"`
}

// LoggingConfig configures the daemon's structured logger.
type LoggingConfig struct {
	// Level controls verbosity: debug, info, warn, error
	Level string `yaml:"level,omitempty"`
	// Format is text or json
	Format string `yaml:"format,omitempty"`
}

// SettingsConfig holds the process-wide automation defaults in seconds.
// A negative delay leaves the value to the backend.
type SettingsConfig struct {
	WinDelay     float64 `yaml:"win_delay"`
	ControlDelay float64 `yaml:"control_delay"`
	KeyDelay     float64 `yaml:"key_delay"`
	KeyDuration  float64 `yaml:"key_duration"`
	MouseDelay   float64 `yaml:"mouse_delay"`
	MouseSpeed   int     `yaml:"mouse_speed"`
	SendLevel    int     `yaml:"send_level"`
	SendMode     string  `yaml:"send_mode"`
}

// Config represents the winquery configuration.
type Config struct {
	Display        string         `yaml:"display,omitempty"`
	Socket         string         `yaml:"socket,omitempty"`
	Backend        Backend        `yaml:"backend"`
	PollIntervalMS int            `yaml:"poll_interval_ms"`
	Logging        LoggingConfig  `yaml:"logging"`
	Settings       SettingsConfig `yaml:"settings"`
	Hotkeys        []Hotkey       `yaml:"hotkeys,omitempty"`
}

func seconds(d time.Duration) float64 {
	if d < 0 {
		return -1
	}
	return d.Seconds()
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	b := settings.Builtin()
	return &Config{
		Backend:        BackendX11,
		PollIntervalMS: 100,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Settings: SettingsConfig{
			WinDelay:     seconds(b.WinDelay),
			ControlDelay: seconds(b.ControlDelay),
			KeyDelay:     seconds(b.KeyDelay),
			KeyDuration:  seconds(b.KeyDuration),
			MouseDelay:   seconds(b.MouseDelay),
			MouseSpeed:   b.MouseSpeed,
			SendLevel:    b.SendLevel,
			SendMode:     string(b.SendMode),
		},
	}
}

// PollInterval returns the engine's wait polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// AutomationSettings converts the settings section into the values new
// settings stores start from.
func (c *Config) AutomationSettings() settings.Settings {
	s := settings.Builtin()
	s.WinDelay = settings.FromSeconds(c.Settings.WinDelay)
	s.ControlDelay = settings.FromSeconds(c.Settings.ControlDelay)
	s.KeyDelay = settings.FromSeconds(c.Settings.KeyDelay)
	s.KeyDuration = settings.FromSeconds(c.Settings.KeyDuration)
	s.MouseDelay = settings.FromSeconds(c.Settings.MouseDelay)
	s.MouseSpeed = c.Settings.MouseSpeed
	s.SendLevel = c.Settings.SendLevel
	s.SendMode = settings.SendMode(c.Settings.SendMode)
	return s
}

// LogLevel maps logging.level to a slog level.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Save writes the configuration to the standard location.
//
// Note: this marshals the effective config and will not preserve comments
// from the original YAML.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ValidationError reports the config path of an invalid value.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(path string, format string, args ...any) error {
	return &ValidationError{Path: path, Err: fmt.Errorf(format, args...)}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendX11, BackendMemory:
	default:
		return invalid("backend", "unknown backend %q (want x11 or memory)", c.Backend)
	}
	if c.PollIntervalMS <= 0 {
		return invalid("poll_interval_ms", "must be positive, got %d", c.PollIntervalMS)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("logging.level", "unknown level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return invalid("logging.format", "unknown format %q (want text or json)", c.Logging.Format)
	}

	if err := c.AutomationSettings().Validate(); err != nil {
		return &ValidationError{Path: "settings", Err: err}
	}

	seen := make(map[string]int, len(c.Hotkeys))
	for i, hk := range c.Hotkeys {
		path := fmt.Sprintf("hotkeys[%d]", i)
		if strings.TrimSpace(hk.Key) == "" {
			return invalid(path+".key", "must not be empty")
		}
		if prev, ok := seen[hk.Key]; ok {
			return invalid(path+".key", "%q is already bound by hotkeys[%d]", hk.Key, prev)
		}
		seen[hk.Key] = i
		if !validAction(hk.Action) {
			return invalid(path+".action", "unknown action %q", hk.Action)
		}
		switch hk.When {
		case GuardAlways, GuardExists, GuardMissing, GuardActive, GuardInactive:
		default:
			return invalid(path+".when", "unknown guard %q (want exists, missing, active or inactive)", hk.When)
		}
		switch hk.Window.Match {
		case "", "prefix", "contains", "exact", "regex":
		default:
			return invalid(path+".window.match", "unknown match mode %q", hk.Window.Match)
		}
		if hk.Window.Empty() && hk.Action != ActionMinimize {
			return invalid(path+".window", "must name a title, class, exe or text")
		}
	}
	return nil
}

func validAction(a Action) bool {
	for _, known := range actions {
		if a == known {
			return true
		}
	}
	return false
}
