package backend

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type recordingChannel struct {
	mu       sync.Mutex
	calls    []string
	inFlight atomic.Int32
	overlap  atomic.Bool
	delay    time.Duration
}

func (c *recordingChannel) Invoke(ctx context.Context, command string, args ...string) (Result, error) {
	if c.inFlight.Add(1) > 1 {
		c.overlap.Store(true)
	}
	defer c.inFlight.Add(-1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.mu.Lock()
	c.calls = append(c.calls, command)
	c.mu.Unlock()
	if command == "Fail" {
		return Result{}, &CommandError{Command: command, Code: CodeFailed}
	}
	return IntResult(int64(len(args))), nil
}

func TestSessionDoSerializesSequences(t *testing.T) {
	ch := &recordingChannel{delay: time.Millisecond}
	s := NewSession(ch, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Do(context.Background(), func(tx *Tx) error {
				if _, err := tx.Invoke("Configure"); err != nil {
					return err
				}
				_, err := tx.Invoke("Command")
				return err
			})
			if err != nil {
				t.Errorf("Do: %v", err)
			}
		}()
	}
	wg.Wait()

	if ch.overlap.Load() {
		t.Fatalf("commands overlapped while the lock was held")
	}
	if len(ch.calls) != 16 {
		t.Fatalf("expected 16 calls, got %d", len(ch.calls))
	}
	for i := 0; i < len(ch.calls); i += 2 {
		if ch.calls[i] != "Configure" || ch.calls[i+1] != "Command" {
			t.Fatalf("sequence interleaved at %d: %v", i, ch.calls[i:i+2])
		}
	}
}

func TestSessionDoPropagatesCommandError(t *testing.T) {
	s := NewSession(&recordingChannel{}, nil)
	err := s.Do(context.Background(), func(tx *Tx) error {
		_, err := tx.Invoke("Fail")
		return err
	})
	if Code(err) != CodeFailed {
		t.Fatalf("expected CodeFailed, got %v", err)
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Command != "Fail" {
		t.Fatalf("expected CommandError for Fail, got %v", err)
	}
}

func TestSessionDoChecksContextBeforeLocking(t *testing.T) {
	ch := &recordingChannel{}
	s := NewSession(ch, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := s.Do(ctx, func(tx *Tx) error {
		ran = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if ran {
		t.Fatalf("critical section ran with a cancelled context")
	}
}

func TestTxUnusableAfterDo(t *testing.T) {
	s := NewSession(&recordingChannel{}, nil)
	var leaked *Tx
	_ = s.Do(context.Background(), func(tx *Tx) error {
		leaked = tx
		return nil
	})
	if _, err := leaked.Invoke("Command"); err == nil {
		t.Fatalf("expected error from a closed transaction")
	}
}

func TestNilSession(t *testing.T) {
	var s *Session
	if err := s.Do(context.Background(), func(*Tx) error { return nil }); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

type dispatchingChannel struct {
	recordingChannel
	dispatched []string
}

func (c *dispatchingChannel) Dispatch(ctx context.Context, command string, args ...string) (Pending, error) {
	c.dispatched = append(c.dispatched, command)
	return Deferred(func() (Result, error) {
		return c.Invoke(ctx, command, args...)
	}), nil
}

func TestTxDispatchUsesDispatcher(t *testing.T) {
	ch := &dispatchingChannel{}
	s := NewSession(ch, nil)

	var p Pending
	err := s.Do(context.Background(), func(tx *Tx) error {
		var err error
		p, err = tx.Dispatch("WaitSomething", "a", "b")
		return err
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(ch.calls) != 0 {
		t.Fatalf("command ran before Wait: %v", ch.calls)
	}
	res, err := p.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if n, _ := res.Integer(); n != 2 {
		t.Fatalf("expected 2, got %d", n)
	}
	// A second Wait returns the cached outcome.
	if _, err := p.Wait(); err != nil || len(ch.calls) != 1 {
		t.Fatalf("expected one execution, got %v (%v)", ch.calls, err)
	}
}

func TestTxDispatchFallsBackToInvoke(t *testing.T) {
	ch := &recordingChannel{}
	s := NewSession(ch, nil)

	var p Pending
	_ = s.Do(context.Background(), func(tx *Tx) error {
		var err error
		p, err = tx.Dispatch("WaitSomething")
		return err
	})
	if len(ch.calls) != 1 {
		t.Fatalf("expected synchronous call under the lock, got %v", ch.calls)
	}
	if _, err := p.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

// reconnectingChannel bumps its generation on the command named "Reconnect".
type reconnectingChannel struct {
	recordingChannel
	gen uint64
}

func (c *reconnectingChannel) Invoke(ctx context.Context, command string, args ...string) (Result, error) {
	if command == "Reconnect" {
		c.gen++
	}
	return c.recordingChannel.Invoke(ctx, command, args...)
}

func (c *reconnectingChannel) Generation() uint64 { return c.gen }

func TestTxFailsWhenChannelResets(t *testing.T) {
	ch := &reconnectingChannel{}
	s := NewSession(ch, nil)
	ctx := context.Background()

	err := s.Do(ctx, func(tx *Tx) error {
		if _, err := tx.Invoke("Configure", "On"); err != nil {
			return err
		}
		_, err := tx.Invoke("Reconnect")
		return err
	})
	if !errors.Is(err, ErrSessionReset) {
		t.Fatalf("expected ErrSessionReset, got %v", err)
	}

	// A new section starts from the current generation.
	err = s.Do(ctx, func(tx *Tx) error {
		if _, err := tx.Invoke("Configure", "On"); err != nil {
			return err
		}
		_, err := tx.Invoke("Query")
		return err
	})
	if err != nil {
		t.Fatalf("Do after reset: %v", err)
	}

	// A reset on the first command of a section is harmless.
	if _, err := s.Invoke(ctx, "Reconnect"); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
}

func TestResultEmpty(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want bool
	}{
		{"zero", Result{}, true},
		{"empty text", TextResult(""), true},
		{"text", TextResult("x"), false},
		{"zero int", IntResult(0), false},
		{"empty ids", IDsResult(nil), true},
		{"ids", IDsResult([]uint64{1}), false},
		{"rect", RectResult(Rect{}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.Empty(); got != tt.want {
				t.Fatalf("Empty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResultLines(t *testing.T) {
	got := TextResult("a\r\nb\n").Lines()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected lines: %q", got)
	}
	if TextResult("").Lines() != nil {
		t.Fatalf("expected nil lines for empty text")
	}
}
