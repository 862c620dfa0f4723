package window

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/winquery/internal/engine"
	"github.com/1broseidon/winquery/internal/settings"
)

func TestFirstOnNoMatchReturnsInvalidHandle(t *testing.T) {
	fx := newFixture(t)
	f := mustFilter(t, fx.client.Windows(), Title("Nothing here"))

	w, err := f.First(fx.ctx)
	if err != nil {
		t.Fatalf("First: %v", err)
	}
	if w.Valid() {
		t.Fatalf("expected the invalid window, got %v", w)
	}

	fx.rec.reset()
	if title, ok, err := w.Title(fx.ctx); err != nil || ok || title != "" {
		t.Fatalf("Title on invalid window = %q, %v, %v", title, ok, err)
	}
	if _, ok, err := w.Rect(fx.ctx); err != nil || ok {
		t.Fatalf("Rect on invalid window = %v, %v", ok, err)
	}
	if err := w.Minimize(fx.ctx); err != nil {
		t.Fatalf("Minimize on invalid window: %v", err)
	}
	if gone, err := w.Close(fx.ctx, time.Second); err != nil || !gone {
		t.Fatalf("Close on invalid window = %v, %v", gone, err)
	}
	if ok, err := w.WaitActive(fx.ctx, time.Second); err != nil || ok {
		t.Fatalf("WaitActive on invalid window = %v, %v", ok, err)
	}
	if ok, err := w.WaitClose(fx.ctx, time.Second); err != nil || !ok {
		t.Fatalf("WaitClose on invalid window = %v, %v", ok, err)
	}
	if exists, err := w.Exists(fx.ctx); err != nil || exists {
		t.Fatalf("Exists on invalid window = %v, %v", exists, err)
	}
	if n := fx.rec.count(); n != 0 {
		t.Fatalf("invalid handle contacted the backend %d times: %v", n, fx.rec.commands())
	}
}

func TestExcludedFieldMatchesNothing(t *testing.T) {
	fx := newFixture(t)
	fx.desktop.Add(engine.Node{Title: "Anything"})
	f := mustFilter(t, fx.client.Windows(), Without(FieldClass))

	w, err := f.First(fx.ctx)
	if err != nil || w.Valid() {
		t.Fatalf("First = %v, %v", w, err)
	}
	n, err := f.Count(fx.ctx)
	if err != nil || n != 0 {
		t.Fatalf("Count = %d, %v", n, err)
	}
	all, err := f.All(fx.ctx)
	if err != nil || len(all) != 0 {
		t.Fatalf("All = %v, %v", all, err)
	}
	if err := f.MinimizeAll(fx.ctx); err != nil {
		t.Fatalf("MinimizeAll: %v", err)
	}
	if fx.rec.count() != 0 {
		t.Fatalf("excluded filter contacted the backend: %v", fx.rec.commands())
	}
}

func TestQueries(t *testing.T) {
	fx := newFixture(t)
	back := fx.desktop.Add(engine.Node{Title: "Term 1", Class: "Term", PID: 10})
	front := fx.desktop.Add(engine.Node{Title: "Term 2", Class: "Term", PID: 11})
	fx.desktop.Add(engine.Node{Title: "Hidden term", Class: "Term", Hidden: true})

	f := mustFilter(t, fx.client.Windows(), Class("Term"))
	if n, err := f.Count(fx.ctx); err != nil || n != 2 {
		t.Fatalf("Count = %d, %v", n, err)
	}
	if n, err := f.IncludeHiddenWindows(true).Count(fx.ctx); err != nil || n != 3 {
		t.Fatalf("Count with hidden windows = %d, %v", n, err)
	}
	if w, _ := f.First(fx.ctx); w.ID() != front {
		t.Fatalf("First = %d, want %d", w.ID(), front)
	}
	if w, _ := f.Last(fx.ctx); w.ID() != back {
		t.Fatalf("Last = %d, want %d", w.ID(), back)
	}
	if w, _ := mustFilter(t, f, PID(10)).First(fx.ctx); w.ID() != back {
		t.Fatalf("First by pid = %d, want %d", w.ID(), back)
	}
	if w, _ := f.Exclude(ExcludeTitle("Term 2")).First(fx.ctx); w.ID() != back {
		t.Fatalf("First excluding Term 2 = %d, want %d", w.ID(), back)
	}
	if w, _ := mustFilter(t, f, Title("2"), Match(MatchContains)).First(fx.ctx); w.ID() != front {
		t.Fatalf("contains match = %d, want %d", w.ID(), front)
	}
}

func TestUnconstrainedQueriesEnumerateAll(t *testing.T) {
	fx := newFixture(t)
	first := fx.desktop.Add(engine.Node{Title: "a"})
	fx.desktop.Add(engine.Node{Title: "b"})
	fx.desktop.Add(engine.Node{Title: "c"})
	fx.desktop.Add(engine.Node{Title: "d", Hidden: true})

	all, err := fx.client.Windows().All(fx.ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("All = %d windows, %v; want 3", len(all), err)
	}
	if n, err := fx.client.Windows().Count(fx.ctx); err != nil || n != 3 {
		t.Fatalf("Count = %d, %v; want 3", n, err)
	}
	if n, err := fx.client.AllWindows().Count(fx.ctx); err != nil || n != 4 {
		t.Fatalf("Count with hidden windows = %d, %v; want 4", n, err)
	}
	if w, err := fx.client.Windows().Last(fx.ctx); err != nil || w.ID() != first {
		t.Fatalf("Last = %v, %v; want %d", w, err, first)
	}
}

func TestIterateIsOrderedAndNotRestartable(t *testing.T) {
	fx := newFixture(t)
	a := fx.desktop.Add(engine.Node{Title: "w"})
	b := fx.desktop.Add(engine.Node{Title: "w"})

	seq, err := mustFilter(t, fx.client.Windows(), Title("w")).Iterate(fx.ctx)
	if err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	var ids []uint64
	for w := range seq {
		ids = append(ids, w.ID())
	}
	if len(ids) != 2 || ids[0] != b || ids[1] != a {
		t.Fatalf("ids = %v, want [%d %d]", ids, b, a)
	}
	for w := range seq {
		t.Fatalf("sequence restarted and yielded %v", w)
	}
}

func TestActiveOnUnconstrainedFilterReturnsFocusedWindow(t *testing.T) {
	fx := newFixture(t)
	focused := fx.desktop.Add(engine.Node{Title: "Focused"})
	fx.desktop.Add(engine.Node{Title: "Other"})
	fx.desktop.SetActive(focused)

	w, err := fx.client.Windows().Active(fx.ctx)
	if err != nil || w.ID() != focused {
		t.Fatalf("Active = %v, %v; want %d", w, err, focused)
	}
	if args, _ := fx.rec.last("WinActive"); len(args) == 0 || args[0] != "A" {
		t.Fatalf("expected the A query, got %v", args)
	}
	w, err = mustFilter(t, fx.client.Windows(), Title("Other")).Active(fx.ctx)
	if err != nil || w.Valid() {
		t.Fatalf("Active for an unfocused match = %v, %v", w, err)
	}
}

func TestGuards(t *testing.T) {
	fx := newFixture(t)
	id := fx.desktop.Add(engine.Node{Title: "Editor"})
	fx.desktop.SetActive(id)
	f := mustFilter(t, fx.client.Windows(), Title("Editor"))
	missing := mustFilter(t, fx.client.Windows(), Title("Browser"))

	if !f.Exists()(fx.ctx) || f.Missing()(fx.ctx) {
		t.Fatalf("existing window guards wrong")
	}
	if !missing.Missing()(fx.ctx) || missing.Exists()(fx.ctx) {
		t.Fatalf("missing window guards wrong")
	}
	if !f.IsActive()(fx.ctx) || f.IsInactive()(fx.ctx) {
		t.Fatalf("active guards wrong")
	}
}

func TestWaitReturnsWindowThatAppears(t *testing.T) {
	fx := newFixture(t)
	f := mustFilter(t, fx.client.Windows(), Title("Late"))
	var id uint64
	var mu sync.Mutex
	go func() {
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		id = fx.desktop.Add(engine.Node{Title: "Late"})
		mu.Unlock()
	}()
	w, err := f.Wait(fx.ctx, 2*time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if w.ID() != id {
		t.Fatalf("Wait = %d, want %d", w.ID(), id)
	}
}

func TestWaitTimesOutWithInvalidWindow(t *testing.T) {
	fx := newFixture(t)
	w, err := mustFilter(t, fx.client.Windows(), Title("Never")).Wait(fx.ctx, 20*time.Millisecond)
	if err != nil || w.Valid() {
		t.Fatalf("Wait = %v, %v", w, err)
	}
}

func TestWaitActiveTimesOut(t *testing.T) {
	fx := newFixture(t)
	id := fx.desktop.Add(engine.Node{Title: "Background"})
	other := fx.desktop.Add(engine.Node{Title: "Foreground"})
	fx.desktop.SetActive(other)

	start := time.Now()
	ok, err := fx.client.Window(id).WaitActive(fx.ctx, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitActive: %v", err)
	}
	if ok {
		t.Fatalf("WaitActive reported success for an inactive window")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("WaitActive took %v", elapsed)
	}

	ok, err = mustFilter(t, fx.client.Windows(), Title("Background")).WaitActive(fx.ctx, 10*time.Millisecond)
	if err != nil || ok {
		t.Fatalf("filter WaitActive = %v, %v", ok, err)
	}
}

func TestWaitCloseReleasesLock(t *testing.T) {
	fx := newFixture(t)
	id := fx.desktop.Add(engine.Node{Title: "Doomed"})
	f := mustFilter(t, fx.client.Windows(), Title("Doomed"))

	done := make(chan bool, 1)
	go func() {
		ok, err := f.WaitClose(fx.ctx, 5*time.Second)
		if err != nil {
			t.Errorf("WaitClose: %v", err)
		}
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	queried := make(chan struct{})
	go func() {
		_, _ = fx.client.Windows().Count(context.Background())
		close(queried)
	}()
	select {
	case <-queried:
	case <-time.After(time.Second):
		t.Fatalf("query blocked while WaitClose was waiting")
	}

	fx.desktop.Remove(id)
	select {
	case ok := <-done:
		if !ok {
			t.Fatalf("WaitClose reported a timeout")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("WaitClose did not return after the window closed")
	}
}

func TestActionsUseLocalSettings(t *testing.T) {
	fx := newFixture(t)
	id := fx.desktop.Add(engine.Node{Title: "Target"})
	w := fx.client.Window(id)
	st, _ := settings.StoreFrom(fx.ctx)

	err := st.Local(func(s *settings.Settings) error {
		s.WinDelay = 250 * time.Millisecond
		return w.Maximize(fx.ctx)
	})
	if err != nil {
		t.Fatalf("Maximize: %v", err)
	}
	if args, _ := fx.rec.last("SetWinDelay"); len(args) != 1 || args[0] != "250" {
		t.Fatalf("SetWinDelay args = %v", args)
	}

	if err := w.Restore(fx.ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if args, _ := fx.rec.last("SetWinDelay"); len(args) != 1 || args[0] != "100" {
		t.Fatalf("settings not restored after Local, SetWinDelay args = %v", args)
	}
}

func TestGroupActions(t *testing.T) {
	fx := newFixture(t)
	a := fx.desktop.Add(engine.Node{Title: "Doc 1"})
	b := fx.desktop.Add(engine.Node{Title: "Doc 2"})
	keep := fx.desktop.Add(engine.Node{Title: "Music"})
	f := mustFilter(t, fx.client.Windows(), Title("Doc"))

	if err := f.MaximizeAll(fx.ctx); err != nil {
		t.Fatalf("MaximizeAll: %v", err)
	}
	for _, id := range []uint64{a, b} {
		if n, _ := fx.desktop.Node(id); n.State != engine.StateMaximized {
			t.Fatalf("window %d not maximized", id)
		}
	}
	if n, _ := fx.desktop.Node(keep); n.State == engine.StateMaximized {
		t.Fatalf("non-member maximized")
	}
	name, _ := f.GroupName()
	if args, _ := fx.rec.last("WinMaximize"); len(args) == 0 || args[0] != "ahk_group "+name {
		t.Fatalf("WinMaximize args = %v", args)
	}

	gone, err := f.CloseAll(fx.ctx, time.Second)
	if err != nil || !gone {
		t.Fatalf("CloseAll = %v, %v", gone, err)
	}
	if _, ok := fx.desktop.Node(keep); !ok {
		t.Fatalf("non-member closed")
	}
}

func TestUnconstrainedMinimizeAll(t *testing.T) {
	fx := newFixture(t)
	fx.desktop.Add(engine.Node{Title: "x"})
	if err := fx.client.Windows().MinimizeAll(fx.ctx); err != nil {
		t.Fatalf("MinimizeAll: %v", err)
	}
	for _, c := range fx.rec.commands() {
		if c == "GroupAdd" {
			t.Fatalf("unconstrained MinimizeAll registered a group")
		}
	}
	if _, ok := fx.rec.last("WinMinimizeAll"); !ok {
		t.Fatalf("WinMinimizeAll not issued: %v", fx.rec.commands())
	}
}

func TestFilterActivateAndClose(t *testing.T) {
	fx := newFixture(t)
	id := fx.desktop.Add(engine.Node{Title: "Editor"})
	fx.desktop.Add(engine.Node{Title: "Other"})
	f := mustFilter(t, fx.client.Windows(), Title("Editor"))

	ok, err := f.Activate(fx.ctx, time.Second)
	if err != nil || !ok {
		t.Fatalf("Activate = %v, %v", ok, err)
	}
	if active, _ := fx.desktop.Active(); active != id {
		t.Fatalf("active = %d, want %d", active, id)
	}
	if err := f.Send(fx.ctx, "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if keys := fx.desktop.SentKeys(id); len(keys) != 1 || keys[0] != "hello" {
		t.Fatalf("sent keys = %v", keys)
	}
	gone, err := f.Close(fx.ctx, time.Second)
	if err != nil || !gone {
		t.Fatalf("Close = %v, %v", gone, err)
	}
}

func TestHandleWaitHoldsLastFoundRegister(t *testing.T) {
	fx := newFixture(t)
	alpha := fx.desktop.Add(engine.Node{Title: "Alpha"})
	beta := fx.desktop.Add(engine.Node{Title: "Beta"})
	fx.desktop.SetActive(alpha)

	handleDone := make(chan bool, 1)
	go func() {
		ok, _ := fx.client.Window(beta).WaitActive(fx.ctx, 5*time.Second)
		handleDone <- ok
	}()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := fx.rec.last("WinWaitActive"); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("handle wait never started")
		}
		time.Sleep(time.Millisecond)
	}

	type found struct {
		w   Window
		err error
	}
	f := mustFilter(t, fx.client.Windows(), Title("Alpha"))
	filterDone := make(chan found, 1)
	go func() {
		w, err := f.Wait(fx.ctx, time.Second)
		filterDone <- found{w, err}
	}()

	select {
	case <-filterDone:
		t.Fatalf("filter wait ran while a handle wait held the session")
	case <-time.After(50 * time.Millisecond):
	}

	fx.desktop.SetActive(beta)
	if ok := <-handleDone; !ok {
		t.Fatalf("WaitActive(beta) timed out")
	}
	got := <-filterDone
	if got.err != nil || got.w.ID() != alpha {
		t.Fatalf("Wait(title=Alpha) = %v, %v; want %d", got.w, got.err, alpha)
	}
}
