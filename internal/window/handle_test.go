package window

import (
	"errors"
	"testing"
	"time"

	"github.com/1broseidon/winquery/internal/engine"
)

func TestWindowProperties(t *testing.T) {
	fx := newFixture(t)
	id := fx.desktop.Add(engine.Node{
		Title:   "Report.txt - Notepad",
		Class:   "Notepad",
		PID:     4242,
		ExePath: "/usr/bin/notepad",
		Rect:    Rect{X: 10, Y: 20, Width: 300, Height: 200},
	})
	w := fx.client.Window(id)

	if title, ok, err := w.Title(fx.ctx); err != nil || !ok || title != "Report.txt - Notepad" {
		t.Fatalf("Title = %q, %v, %v", title, ok, err)
	}
	if class, ok, err := w.ClassName(fx.ctx); err != nil || !ok || class != "Notepad" {
		t.Fatalf("ClassName = %q, %v, %v", class, ok, err)
	}
	if pid, ok, err := w.PID(fx.ctx); err != nil || !ok || pid != 4242 {
		t.Fatalf("PID = %d, %v, %v", pid, ok, err)
	}
	if name, ok, err := w.ProcessName(fx.ctx); err != nil || !ok || name != "notepad" {
		t.Fatalf("ProcessName = %q, %v, %v", name, ok, err)
	}
	if r, ok, err := w.Rect(fx.ctx); err != nil || !ok || r != (Rect{X: 10, Y: 20, Width: 300, Height: 200}) {
		t.Fatalf("Rect = %+v, %v, %v", r, ok, err)
	}
	if visible, err := w.IsVisible(fx.ctx); err != nil || !visible {
		t.Fatalf("IsVisible = %v, %v", visible, err)
	}
	if enabled, err := w.IsEnabled(fx.ctx); err != nil || !enabled {
		t.Fatalf("IsEnabled = %v, %v", enabled, err)
	}
}

func TestEmptyTitleIsAValue(t *testing.T) {
	fx := newFixture(t)
	id := fx.desktop.Add(engine.Node{Class: "Untitled"})
	title, ok, err := fx.client.Window(id).Title(fx.ctx)
	if err != nil || !ok || title != "" {
		t.Fatalf("Title = %q, %v, %v", title, ok, err)
	}
}

func TestMoveKeepsUnsetGeometry(t *testing.T) {
	fx := newFixture(t)
	id := fx.desktop.Add(engine.Node{Title: "w", Rect: Rect{X: 1, Y: 2, Width: 300, Height: 400}})
	w := fx.client.Window(id)

	if err := w.Move(fx.ctx, MoveOptions{X: Is(10), Y: Is(20)}); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if r, _, _ := w.Rect(fx.ctx); r != (Rect{X: 10, Y: 20, Width: 300, Height: 400}) {
		t.Fatalf("after Move rect = %+v", r)
	}
	if err := w.SetWidth(fx.ctx, 640); err != nil {
		t.Fatalf("SetWidth: %v", err)
	}
	if r, _, _ := w.Rect(fx.ctx); r != (Rect{X: 10, Y: 20, Width: 640, Height: 400}) {
		t.Fatalf("after SetWidth rect = %+v", r)
	}
}

func TestMinMaxState(t *testing.T) {
	fx := newFixture(t)
	w := fx.client.Window(fx.desktop.Add(engine.Node{Title: "w"}))

	steps := []struct {
		name          string
		do            func() error
		min, max, res bool
	}{
		{"initial", func() error { return nil }, false, false, true},
		{"minimize", func() error { return w.Minimize(fx.ctx) }, true, false, false},
		{"toggle minimized", func() error { return w.ToggleMinimized(fx.ctx) }, false, false, true},
		{"toggle maximized", func() error { return w.ToggleMaximized(fx.ctx) }, false, true, false},
		{"restore", func() error { return w.Restore(fx.ctx) }, false, false, true},
	}
	for _, step := range steps {
		if err := step.do(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		mn, _ := w.IsMinimized(fx.ctx)
		mx, _ := w.IsMaximized(fx.ctx)
		rs, _ := w.IsRestored(fx.ctx)
		if mn != step.min || mx != step.max || rs != step.res {
			t.Fatalf("%s: minimized=%v maximized=%v restored=%v", step.name, mn, mx, rs)
		}
	}
}

func TestAlwaysOnTopAndTransparency(t *testing.T) {
	fx := newFixture(t)
	w := fx.client.Window(fx.desktop.Add(engine.Node{Title: "w"}))

	if err := w.PinToTop(fx.ctx); err != nil {
		t.Fatalf("PinToTop: %v", err)
	}
	if on, err := w.AlwaysOnTop(fx.ctx); err != nil || !on {
		t.Fatalf("AlwaysOnTop = %v, %v", on, err)
	}
	if err := w.ToggleAlwaysOnTop(fx.ctx); err != nil {
		t.Fatalf("ToggleAlwaysOnTop: %v", err)
	}
	if on, _ := w.AlwaysOnTop(fx.ctx); on {
		t.Fatalf("still on top after toggle")
	}

	if _, ok, err := w.Opacity(fx.ctx); err != nil || ok {
		t.Fatalf("opaque window reported opacity: %v, %v", ok, err)
	}
	if err := w.SetOpacity(fx.ctx, 128); err != nil {
		t.Fatalf("SetOpacity: %v", err)
	}
	if v, ok, err := w.Opacity(fx.ctx); err != nil || !ok || v != 128 {
		t.Fatalf("Opacity = %d, %v, %v", v, ok, err)
	}
	var cfgErr *ConfigurationError
	if err := w.SetOpacity(fx.ctx, 300); !errors.As(err, &cfgErr) {
		t.Fatalf("SetOpacity(300) = %v, want ConfigurationError", err)
	}

	color := RGB{R: 0x12, G: 0x34, B: 0x56}
	if err := w.SetTransparentColor(fx.ctx, color); err != nil {
		t.Fatalf("SetTransparentColor: %v", err)
	}
	if got, ok, err := w.TransparentColor(fx.ctx); err != nil || !ok || got != color {
		t.Fatalf("TransparentColor = %+v, %v, %v", got, ok, err)
	}
	if err := w.ClearTransparentColor(fx.ctx); err != nil {
		t.Fatalf("ClearTransparentColor: %v", err)
	}
	if _, ok, _ := w.TransparentColor(fx.ctx); ok {
		t.Fatalf("transparent color still set")
	}
}

func TestWindowActivateAndClose(t *testing.T) {
	fx := newFixture(t)
	id := fx.desktop.Add(engine.Node{Title: "Editor"})
	other := fx.desktop.Add(engine.Node{Title: "Other"})
	fx.desktop.SetActive(other)
	w := fx.client.Window(id)

	if ok, err := w.Activate(fx.ctx, time.Second); err != nil || !ok {
		t.Fatalf("Activate = %v, %v", ok, err)
	}
	if active, err := w.IsActive(fx.ctx); err != nil || !active {
		t.Fatalf("IsActive = %v, %v", active, err)
	}
	if err := w.SetTitle(fx.ctx, "Renamed"); err != nil {
		t.Fatalf("SetTitle: %v", err)
	}
	if n, _ := fx.desktop.Node(id); n.Title != "Renamed" {
		t.Fatalf("title = %q", n.Title)
	}
	if gone, err := w.Close(fx.ctx, time.Second); err != nil || !gone {
		t.Fatalf("Close = %v, %v", gone, err)
	}
	if exists, err := w.Exists(fx.ctx); err != nil || exists {
		t.Fatalf("Exists after close = %v, %v", exists, err)
	}
}

func TestCloseIgnoredReportsFalse(t *testing.T) {
	fx := newFixture(t)
	w := fx.client.Window(fx.desktop.Add(engine.Node{Title: "Stubborn", IgnoreClose: true}))

	gone, err := w.Close(fx.ctx, 20*time.Millisecond)
	if err != nil || gone {
		t.Fatalf("Close = %v, %v", gone, err)
	}
	gone, err = w.Kill(fx.ctx, 0)
	if err != nil || !gone {
		t.Fatalf("Kill = %v, %v", gone, err)
	}
}

func TestCloseWithoutTimeoutReportsRequestIssued(t *testing.T) {
	fx := newFixture(t)
	id := fx.desktop.Add(engine.Node{Title: "Slow", IgnoreClose: true})

	fx.rec.reset()
	issued, err := fx.client.Window(id).Close(fx.ctx, 0)
	if err != nil || !issued {
		t.Fatalf("Close = %v, %v", issued, err)
	}
	if _, ok := fx.rec.last("WinExist"); ok {
		t.Fatalf("Close without timeout checked existence: %v", fx.rec.commands())
	}
	issued, err = mustFilter(t, fx.client.Windows(), Title("Slow")).Close(fx.ctx, 0)
	if err != nil || !issued {
		t.Fatalf("filter Close = %v, %v", issued, err)
	}
	if _, ok := fx.desktop.Node(id); !ok {
		t.Fatalf("window ignoring close requests was removed")
	}
}

func TestWaitHiddenReturnsWhenHidden(t *testing.T) {
	fx := newFixture(t)
	id := fx.desktop.Add(engine.Node{Title: "w"})
	w := fx.client.Window(id)

	go func() {
		time.Sleep(20 * time.Millisecond)
		fx.desktop.Update(id, func(n *engine.Node) { n.Hidden = true })
	}()
	ok, err := w.WaitHidden(fx.ctx, 2*time.Second)
	if err != nil || !ok {
		t.Fatalf("WaitHidden = %v, %v", ok, err)
	}
	if exists, _ := w.Exists(fx.ctx); !exists {
		t.Fatalf("hidden window should still exist")
	}
}

func TestStyleString(t *testing.T) {
	tests := []struct {
		name string
		in   interface{ String() string }
		want string
	}{
		{"zero", WindowStyle(0), "0"},
		{"single", StyleVisible, "VISIBLE"},
		{"combined", StyleVisible | StyleBorder, "VISIBLE|BORDER"},
		{"leftover", StyleVisible | WindowStyle(0x1), "VISIBLE|0x1"},
		{"ex", ExStyleTopmost | ExStyleToolWindow, "TOOLWINDOW|TOPMOST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.String(); got != tt.want {
				t.Fatalf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStyleHelpers(t *testing.T) {
	s := StyleOverlappedWindow.With(StyleVisible)
	if !s.Has(StyleCaption) || !s.Has(StyleVisible) {
		t.Fatalf("missing bits in %v", s)
	}
	if s.Without(StyleVisible).Has(StyleVisible) {
		t.Fatalf("Without did not clear the bit")
	}
}

func TestDescribe(t *testing.T) {
	fx := newFixture(t)
	id := fx.desktop.Add(engine.Node{
		Title:   "Mail",
		Class:   "thunderbird",
		PID:     7,
		ExePath: "/usr/bin/thunderbird",
		State:   engine.StateMaximized,
		Topmost: true,
		Rect:    Rect{Width: 1024, Height: 768},
	})
	fx.desktop.SetActive(id)

	info, err := fx.client.Window(id).Describe(fx.ctx)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	want := Info{
		ID: id, Title: "Mail", Class: "thunderbird", PID: 7, Process: "thunderbird",
		Rect: Rect{Width: 1024, Height: 768}, Visible: true, Maximized: true, Active: true, AlwaysOnTop: true,
	}
	if info != want {
		t.Fatalf("Describe = %+v, want %+v", info, want)
	}
	if info.State() != "maximized" {
		t.Fatalf("State = %q", info.State())
	}

	gone, err := Window{}.Describe(fx.ctx)
	if err != nil || gone.ID != 0 || gone.State() != "normal" {
		t.Fatalf("Describe on invalid window = %+v, %v", gone, err)
	}
}
