// Package settings holds the per-caller automation settings (delays, send
// mode) that window and control operations read when they talk to the
// backend.
package settings

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

// UseDefault asks the backend to use its own default for a delay.
const UseDefault time.Duration = -1

// SendMode selects how keystrokes are injected.
type SendMode string

const (
	SendInput         SendMode = "input"
	SendPlay          SendMode = "play"
	SendEvent         SendMode = "event"
	SendInputThenPlay SendMode = "inputthenplay"
)

func (m SendMode) valid() bool {
	switch m {
	case SendInput, SendPlay, SendEvent, SendInputThenPlay:
		return true
	}
	return false
}

// Settings is one caller's view of the automation settings.
type Settings struct {
	ControlDelay    time.Duration `yaml:"control_delay"`
	KeyDelay        time.Duration `yaml:"key_delay"`
	KeyDuration     time.Duration `yaml:"key_duration"`
	KeyDelayPlay    time.Duration `yaml:"key_delay_play"`
	KeyDurationPlay time.Duration `yaml:"key_duration_play"`
	MouseDelay      time.Duration `yaml:"mouse_delay"`
	MouseDelayPlay  time.Duration `yaml:"mouse_delay_play"`
	MouseSpeed      int           `yaml:"mouse_speed"`
	SendLevel       int           `yaml:"send_level"`
	SendMode        SendMode      `yaml:"send_mode"`
	WinDelay        time.Duration `yaml:"win_delay"`
}

// Builtin returns the settings a process starts with.
func Builtin() Settings {
	return Settings{
		ControlDelay:    20 * time.Millisecond,
		KeyDelay:        10 * time.Millisecond,
		KeyDuration:     UseDefault,
		KeyDelayPlay:    UseDefault,
		KeyDurationPlay: UseDefault,
		MouseDelay:      10 * time.Millisecond,
		MouseDelayPlay:  UseDefault,
		MouseSpeed:      2,
		SendLevel:       0,
		SendMode:        SendInput,
		WinDelay:        100 * time.Millisecond,
	}
}

// ConfigurationError reports a setting value outside its allowed range.
type ConfigurationError struct {
	Field string
	Value any
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("settings: invalid %s: %v", e.Field, e.Value)
}

// Validate checks every field.
func (s Settings) Validate() error {
	delays := []struct {
		name string
		d    time.Duration
	}{
		{"control_delay", s.ControlDelay},
		{"key_delay", s.KeyDelay},
		{"key_duration", s.KeyDuration},
		{"key_delay_play", s.KeyDelayPlay},
		{"key_duration_play", s.KeyDurationPlay},
		{"mouse_delay", s.MouseDelay},
		{"mouse_delay_play", s.MouseDelayPlay},
		{"win_delay", s.WinDelay},
	}
	for _, d := range delays {
		if d.d < 0 && d.d != UseDefault {
			return &ConfigurationError{Field: d.name, Value: d.d}
		}
	}
	if s.MouseSpeed < 0 || s.MouseSpeed > 100 {
		return &ConfigurationError{Field: "mouse_speed", Value: s.MouseSpeed}
	}
	if s.SendLevel < 0 || s.SendLevel > 100 {
		return &ConfigurationError{Field: "send_level", Value: s.SendLevel}
	}
	if !s.SendMode.valid() {
		return &ConfigurationError{Field: "send_mode", Value: s.SendMode}
	}
	return nil
}

var (
	defaultsMu sync.RWMutex
	defaults   = Builtin()
)

// Defaults returns the process-wide defaults new stores start from.
func Defaults() Settings {
	defaultsMu.RLock()
	defer defaultsMu.RUnlock()
	return defaults
}

// SetDefaults replaces the process-wide defaults. Stores that were already
// initialised keep their values.
func SetDefaults(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	defaultsMu.Lock()
	defaults = s
	defaultsMu.Unlock()
	return nil
}

// Milliseconds formats d the way the backend expects delay arguments.
func Milliseconds(d time.Duration) string {
	if d < 0 {
		return "-1"
	}
	return strconv.FormatInt(d.Milliseconds(), 10)
}

// FromSeconds converts a configuration value in seconds. Negative values
// mean UseDefault.
func FromSeconds(sec float64) time.Duration {
	if sec < 0 {
		return UseDefault
	}
	return time.Duration(sec * float64(time.Second))
}
