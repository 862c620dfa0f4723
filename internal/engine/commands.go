package engine

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/1broseidon/winquery/internal/backend"
)

type handler func(c *call) (backend.Result, error)

var commands = map[string]handler{
	"WinExist":          winExist,
	"WinActive":         winActive,
	"WinGet":            winGet,
	"WinGetClass":       winGetClass,
	"WinGetTitle":       winGetTitle,
	"WinGetText":        winGetText,
	"WinGetPos":         winGetPos,
	"WinActivate":       windowAction(ActionActivate, false),
	"WinHide":           windowAction(ActionHide, true),
	"WinShow":           windowAction(ActionShow, true),
	"WinMaximize":       windowAction(ActionMaximize, true),
	"WinMinimize":       windowAction(ActionMinimize, true),
	"WinRestore":        windowAction(ActionRestore, true),
	"WinClose":          winClose(ActionClose),
	"WinKill":           winClose(ActionKill),
	"WinMinimizeAll":    winMinimizeAll,
	"WinMove":           winMove,
	"WinSet":            winSet,
	"WinSetTitle":       winSetTitle,
	"WinWait":           winWait,
	"WinWaitActive":     winWaitActive,
	"WinWaitNotActive":  winWaitNotActive,
	"WinWaitClose":      winWaitClose,
	"GroupAdd":          groupAdd,
	"ControlGet":        controlGet,
	"ControlGetFocus":   controlGetFocus,
	"Control":           control,
	"ControlGetText":    controlGetText,
	"ControlSetText":    controlSetText,
	"ControlFocus":      controlFocus,
	"ControlGetPos":     controlGetPos,
	"ControlMove":       controlMove,
	"ControlSend":       controlSend,
	"StatusBarGetText":  statusBarGetText,
	"StatusBarWait":     statusBarWait,
	"SendMessage":       sendMessage,
	"PostMessage":       postMessage,
}

// Commands returns the names of every command the engine accepts.
func Commands() []string {
	out := make([]string, 0, len(commands)+len(settingCommands))
	for name := range commands {
		out = append(out, name)
	}
	for name := range settingCommands {
		out = append(out, name)
	}
	return out
}

var settingCommands = map[string]func(name string, cfg *config, args []string) error{
	"DetectHiddenWindows": func(name string, cfg *config, args []string) error {
		v, err := onOff(name, args)
		cfg.hiddenWindows = v
		return err
	},
	"DetectHiddenText": func(name string, cfg *config, args []string) error {
		v, err := onOff(name, args)
		cfg.hiddenText = v
		return err
	},
	"SetTitleMatchMode": func(name string, cfg *config, args []string) error {
		switch strings.ToLower(firstArg(args)) {
		case "1":
			cfg.mode = modePrefix
		case "2":
			cfg.mode = modeContains
		case "3":
			cfg.mode = modeExact
		case "regex":
			cfg.mode = modeRegex
		case "fast":
			cfg.slowText = false
		case "slow":
			cfg.slowText = true
		default:
			return backend.Errorf(name, backend.CodeBadArgument, "invalid match mode %q", firstArg(args))
		}
		return nil
	},
	"SetWinDelay": func(name string, cfg *config, args []string) error {
		return delayArg(name, firstArg(args), defaultWinDelay, &cfg.winDelay)
	},
	"SetControlDelay": func(name string, cfg *config, args []string) error {
		return delayArg(name, firstArg(args), defaultControlDelay, &cfg.controlDelay)
	},
	"SetKeyDelay": func(name string, cfg *config, args []string) error {
		if err := delayArg(name, firstArg(args), defaultKeyDelay, &cfg.keyDelay); err != nil {
			return err
		}
		if len(args) > 1 {
			return delayArg(name, args[1], -1, &cfg.keyDuration)
		}
		return nil
	},
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func onOff(name string, args []string) (bool, error) {
	switch strings.ToLower(firstArg(args)) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, backend.Errorf(name, backend.CodeBadArgument, "expected On or Off, got %q", firstArg(args))
}

// delayArg parses a millisecond delay. -1 restores def; an empty argument
// leaves the value unchanged.
func delayArg(name, s string, def time.Duration, dst *time.Duration) error {
	if s == "" {
		return nil
	}
	ms, err := strconv.Atoi(s)
	if err != nil {
		return backend.Errorf(name, backend.CodeBadArgument, "invalid delay %q", s)
	}
	if ms < 0 {
		*dst = def
		return nil
	}
	*dst = time.Duration(ms) * time.Millisecond
	return nil
}

// intArg parses an optional integer argument.
func (c *call) intArg(i int) (int, bool, error) {
	s := strings.TrimSpace(c.arg(i))
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, false, c.fail(backend.CodeBadArgument, "invalid number %q", s)
	}
	return int(v), true, nil
}

// secondsArg parses an optional timeout in seconds.
func (c *call) secondsArg(i int) (time.Duration, error) {
	s := strings.TrimSpace(c.arg(i))
	if s == "" {
		return 0, nil
	}
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, c.fail(backend.CodeBadArgument, "invalid timeout %q", s)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

// apply forwards an action to the desktop and maps its errors to codes.
func (c *call) apply(id uint64, a Action) error {
	err := c.e.desktop.Apply(id, a)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return c.fail(backend.CodeFailed, "%s: window %d not found", a.Kind, id)
	case errors.Is(err, ErrUnsupported):
		return c.fail(backend.CodeUnsupported, "%s is not supported", a.Kind)
	default:
		return c.fail(backend.CodeFailed, "%s: %v", a.Kind, err)
	}
}

func timedOut(ok bool) backend.Result {
	return backend.BoolResult(!ok)
}
