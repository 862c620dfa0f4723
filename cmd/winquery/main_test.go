package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/winquery/internal/backend"
	"github.com/1broseidon/winquery/internal/config"
	"github.com/1broseidon/winquery/internal/engine"
	"github.com/1broseidon/winquery/internal/ipc"
	"github.com/1broseidon/winquery/internal/settings"
	"github.com/1broseidon/winquery/internal/window"
)

func TestRenderWindows_PlainHasNoEscapes(t *testing.T) {
	infos := []window.Info{
		{ID: 1, Title: "Editor", Class: "gedit", Process: "gedit", PID: 10, Rect: window.Rect{X: 1, Y: 2, Width: 300, Height: 200}, Visible: true, Active: true},
		{ID: 2, Title: "Tray", Class: "tray", Minimized: true},
	}
	out := renderWindows(infos, false)
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no ANSI escapes without color, got %q", out)
	}
	for _, want := range []string{"TITLE", "Editor", "300x200+1+2", "normal,active", "minimized,hidden"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestFlagsAndTruncate(t *testing.T) {
	tests := []struct {
		info window.Info
		want string
	}{
		{window.Info{Visible: true}, "normal"},
		{window.Info{Visible: true, Maximized: true, AlwaysOnTop: true}, "maximized,pinned"},
		{window.Info{Minimized: true, Maximized: true}, "minimized,hidden"},
	}
	for _, tt := range tests {
		if got := flags(tt.info); got != tt.want {
			t.Errorf("flags(%+v) = %q, want %q", tt.info, got, tt.want)
		}
	}

	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate short = %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Fatalf("truncate long = %q", got)
	}
	if got := capitalize("minimize"); got != "Minimize" {
		t.Fatalf("capitalize = %q", got)
	}
}

func TestFieldFlag(t *testing.T) {
	fs := flag.NewFlagSet("move", flag.ContinueOnError)
	var x, y fieldFlag
	fs.Var(&x, "x", "")
	fs.Var(&y, "y", "")
	if err := fs.Parse([]string{"--x", "-40"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v, ok := x.v.Get(); !ok || v != -40 {
		t.Fatalf("x = %v, %v", v, ok)
	}
	if !y.v.IsUnset() {
		t.Fatalf("expected y to stay unset")
	}
	if err := fs.Parse([]string{"--y", "abc"}); err == nil {
		t.Fatalf("expected bad integer to fail")
	}
}

func TestQueryFlags_Filter(t *testing.T) {
	d := engine.NewMemoryDesktop()
	hidden := d.Add(engine.Node{Title: "Hidden Notes", Class: "notes", Hidden: true})
	d.Add(engine.Node{Title: "Notes", Class: "notes"})
	client := window.NewClient(backend.NewSession(engine.New(d, engine.WithoutDelays()).NewSession(), nil))
	ctx := settings.NewContext(context.Background(), settings.NewStore())

	tests := []struct {
		args []string
		want int
	}{
		{[]string{"--class", "notes"}, 1},
		{[]string{"--class", "notes", "--hidden"}, 2},
		{[]string{"--class", "notes", "--hidden", "--exclude-title", "Hidden"}, 1},
		{[]string{"--title", "Notes", "--match", "exact"}, 1},
	}
	for _, tt := range tests {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		q := addQueryFlags(fs)
		if err := fs.Parse(tt.args); err != nil {
			t.Fatalf("parse %v: %v", tt.args, err)
		}
		f, err := q.filter(client)
		if err != nil {
			t.Fatalf("filter %v: %v", tt.args, err)
		}
		n, err := f.Count(ctx)
		if err != nil || n != tt.want {
			t.Fatalf("%v: Count = %d, %v; want %d", tt.args, n, err, tt.want)
		}
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	q := addQueryFlags(fs)
	if err := fs.Parse([]string{"--id", strconv.FormatUint(hidden, 10), "--class", "other"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	f, err := q.filter(client)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if w, err := f.First(ctx); err != nil || w.ID() != hidden {
		t.Fatalf("expected --id to select the hidden window, got %v, %v", w, err)
	}
}

// startDaemon runs an IPC server over a memory desktop and writes a config
// file that points the CLI at it.
func startDaemon(t *testing.T) (*engine.MemoryDesktop, string) {
	t.Helper()
	dir := t.TempDir()
	socket := filepath.Join(dir, "wq.sock")

	d := engine.NewMemoryDesktop()
	e := engine.New(d, engine.WithoutDelays(), engine.WithPollInterval(5*time.Millisecond))
	srv := ipc.NewServer(socket, e, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(srv.Stop)

	cfg := config.DefaultConfig()
	cfg.Socket = socket
	cfg.Backend = config.BackendMemory
	cfg.Settings.WinDelay = 0
	cfg.Settings.ControlDelay = 0
	path := filepath.Join(dir, "config.yaml")
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save config: %v", err)
	}
	return d, path
}

func TestWindowCommandsOverIPC(t *testing.T) {
	d, cfgPath := startDaemon(t)
	editor := d.Add(engine.Node{Title: "Editor", Class: "gedit"})
	other := d.Add(engine.Node{Title: "Other", Class: "other"})
	d.SetActive(other)

	if rc := runActivate([]string{"--config", cfgPath, "--class", "gedit", "--timeout", "1s"}); rc != 0 {
		t.Fatalf("activate rc=%d", rc)
	}
	if active, _ := d.Active(); active != editor {
		t.Fatalf("expected editor active, got %#x", active)
	}

	if rc := runStateChange("maximize", []string{"--config", cfgPath, "--class", "gedit"}); rc != 0 {
		t.Fatalf("maximize rc=%d", rc)
	}
	if n, _ := d.Node(editor); n.State != engine.StateMaximized {
		t.Fatalf("expected editor maximized, got %+v", n)
	}

	if rc := runMove([]string{"--config", cfgPath, "--class", "gedit", "--x", "5", "--width", "640"}); rc != 0 {
		t.Fatalf("move rc=%d", rc)
	}
	if n, _ := d.Node(editor); n.Rect.X != 5 || n.Rect.Width != 640 {
		t.Fatalf("expected editor moved, got %+v", n.Rect)
	}

	if rc := runWait([]string{"--config", cfgPath, "--title", "Never", "--timeout", "50ms"}); rc != 1 {
		t.Fatalf("wait for a missing window rc=%d, want 1", rc)
	}

	if rc := runClose([]string{"--config", cfgPath}); rc != 2 {
		t.Fatalf("unconstrained close rc=%d, want 2", rc)
	}
	if rc := runClose([]string{"--config", cfgPath, "--class", "gedit"}); rc != 0 {
		t.Fatalf("close rc=%d", rc)
	}
	if _, ok := d.Node(editor); ok {
		t.Fatalf("expected editor closed")
	}
	if rc := runWait([]string{"--config", cfgPath, "--class", "gedit", "--state", "closed", "--timeout", "1s"}); rc != 0 {
		t.Fatalf("wait closed rc=%d", rc)
	}
	if rc := runInfo([]string{"--config", cfgPath, "--class", "gedit"}); rc != 1 {
		t.Fatalf("info on closed window rc=%d, want 1", rc)
	}
}

func TestRunConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if rc := runConfig([]string{"init", "--path", path}); rc != 0 {
		t.Fatalf("init rc=%d", rc)
	}
	if rc := runConfig([]string{"init", "--path", path}); rc != 1 {
		t.Fatalf("init over existing file rc=%d, want 1", rc)
	}
	if rc := runConfig([]string{"validate", "--path", path}); rc != 0 {
		t.Fatalf("validate rc=%d", rc)
	}

	if err := os.WriteFile(path, []byte("backend: wayland\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if rc := runConfig([]string{"validate", "--path", path}); rc != 1 {
		t.Fatalf("validate invalid rc=%d, want 1", rc)
	}
	if rc := runConfig([]string{"bogus"}); rc != 2 {
		t.Fatalf("unknown subcommand rc=%d, want 2", rc)
	}
}
