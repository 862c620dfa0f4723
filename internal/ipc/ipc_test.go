package ipc

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/1broseidon/winquery/internal/backend"
	"github.com/1broseidon/winquery/internal/engine"
	"github.com/1broseidon/winquery/internal/window"
)

func startServer(t *testing.T, socket string, d *engine.MemoryDesktop) *Server {
	t.Helper()
	e := engine.New(d, engine.WithoutDelays(), engine.WithPollInterval(5*time.Millisecond))
	srv := NewServer(socket, e, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv
}

func newTestClient(t *testing.T, socket string) *Client {
	t.Helper()
	c := NewClient(socket, nil)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestQueriesOverSocket(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "wq.sock")
	d := engine.NewMemoryDesktop()
	id := d.Add(engine.Node{Title: "Terminal", Class: "XTerm", Rect: backend.Rect{X: 5, Y: 6, Width: 700, Height: 500}})
	d.Add(engine.Node{Title: "Browser", Class: "Firefox"})
	startServer(t, socket, d)

	ctx := context.Background()
	client := window.NewClient(backend.NewSession(newTestClient(t, socket), nil))

	n, err := client.Windows().Count(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Count = %d, %v", n, err)
	}
	f, err := client.Windows().Filter(window.Class("XTerm"))
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	w, err := f.First(ctx)
	if err != nil || w.ID() != id {
		t.Fatalf("First = %v, %v; want %d", w, err, id)
	}
	r, ok, err := w.Rect(ctx)
	if err != nil || !ok || r != (backend.Rect{X: 5, Y: 6, Width: 700, Height: 500}) {
		t.Fatalf("Rect = %+v, %v, %v", r, ok, err)
	}
	all, err := client.Windows().All(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("All = %v, %v", all, err)
	}
}

func TestCommandErrorCodeSurvivesTransport(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "wq.sock")
	startServer(t, socket, engine.NewMemoryDesktop())
	c := newTestClient(t, socket)

	_, err := c.Invoke(context.Background(), "NoSuchCommand")
	var ce *backend.CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want CommandError", err)
	}
	if ce.Code != backend.CodeUnknownCommand || ce.Command != "NoSuchCommand" {
		t.Fatalf("CommandError = %+v", ce)
	}
}

func TestBlockingCommandDoesNotStallConnection(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "wq.sock")
	d := engine.NewMemoryDesktop()
	id := d.Add(engine.Node{Title: "Doomed"})
	startServer(t, socket, d)

	ctx := context.Background()
	client := window.NewClient(backend.NewSession(newTestClient(t, socket), nil))
	f, _ := client.Windows().Filter(window.Title("Doomed"))

	done := make(chan bool, 1)
	go func() {
		ok, err := f.WaitClose(ctx, 5*time.Second)
		if err != nil {
			t.Errorf("WaitClose: %v", err)
		}
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	counted := make(chan struct{})
	go func() {
		_, _ = client.Windows().Count(ctx)
		close(counted)
	}()
	select {
	case <-counted:
	case <-time.After(time.Second):
		t.Fatalf("Count blocked behind WaitClose")
	}

	d.Remove(id)
	select {
	case ok := <-done:
		if !ok {
			t.Fatalf("WaitClose reported a timeout")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("WaitClose did not return")
	}
}

func TestClientReconnectsAfterServerRestart(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "wq.sock")
	d := engine.NewMemoryDesktop()
	d.Add(engine.Node{Title: "w"})

	e := engine.New(d, engine.WithoutDelays())
	first := NewServer(socket, e, nil)
	if err := first.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c := newTestClient(t, socket)
	ctx := context.Background()
	if _, err := c.Invoke(ctx, "WinGet", "Count"); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	first.Stop()
	startServer(t, socket, d)

	var (
		res backend.Result
		err error
	)
	// The client may still hold the old connection on the first attempt.
	for attempt := 0; attempt < 3; attempt++ {
		res, err = c.Invoke(ctx, "WinGet", "Count")
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("Invoke after restart: %v", err)
	}
	if n, _ := res.Integer(); n != 1 {
		t.Fatalf("count = %d", n)
	}
}

func TestReconnectMidSectionFails(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "wq.sock")
	d := engine.NewMemoryDesktop()
	d.Add(engine.Node{Title: "hidden", Hidden: true})

	e := engine.New(d, engine.WithoutDelays())
	first := NewServer(socket, e, nil)
	if err := first.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c := newTestClient(t, socket)
	session := backend.NewSession(c, nil)
	ctx := context.Background()

	count := func(tx *backend.Tx) (int64, error) {
		res, err := tx.Invoke("WinGet", "Count", "", "", "", "")
		if err != nil {
			return 0, err
		}
		n, _ := res.Integer()
		return n, nil
	}

	var n int64
	err := session.Do(ctx, func(tx *backend.Tx) error {
		if _, err := tx.Invoke("DetectHiddenWindows", "On"); err != nil {
			return err
		}
		first.Stop()
		startServer(t, socket, d)
		var err error
		n, err = count(tx)
		return err
	})
	if err == nil {
		t.Fatalf("query after reconnect ran without its configuration, count = %d", n)
	}

	var hidden int64
	for attempt := 0; attempt < 3; attempt++ {
		err = session.Do(ctx, func(tx *backend.Tx) error {
			if _, err := tx.Invoke("DetectHiddenWindows", "On"); err != nil {
				return err
			}
			var err error
			hidden, err = count(tx)
			return err
		})
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil || hidden != 1 {
		t.Fatalf("fresh section after reconnect = %d, %v; want 1", hidden, err)
	}
}

func TestClosedClientRejectsCommands(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "none.sock"), nil)
	c.Close()
	if _, err := c.Invoke(context.Background(), "WinExist"); err == nil {
		t.Fatalf("expected an error from a closed client")
	}
}

func TestProtocol(t *testing.T) {
	if _, err := ParseRequest([]byte(`{"id":1}`)); err == nil {
		t.Fatalf("expected an error for a request without command")
	}
	if _, err := ParseRequest([]byte(`not json`)); err == nil {
		t.Fatalf("expected an error for invalid JSON")
	}

	resp := NewErrorResponse(7, backend.Errorf("WinMove", backend.CodeBadArgument, "invalid x"))
	if resp.Code != backend.CodeBadArgument || resp.Error != "invalid x" || resp.ID != 7 {
		t.Fatalf("NewErrorResponse = %+v", resp)
	}
	_, err := resp.result("WinMove")
	if !backend.IsCode(err, backend.CodeBadArgument) {
		t.Fatalf("result error = %v", err)
	}

	if NewOKResponse(1, backend.Result{}).Result != nil {
		t.Fatalf("blank result should be omitted")
	}
	ok := NewOKResponse(1, backend.TextResult(""))
	res, err := ok.result("WinGetTitle")
	if err != nil || res.Text == nil || *res.Text != "" {
		t.Fatalf("empty text result = %+v, %v", res, err)
	}
}
