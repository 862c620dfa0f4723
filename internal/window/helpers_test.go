package window

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/winquery/internal/backend"
	"github.com/1broseidon/winquery/internal/engine"
	"github.com/1broseidon/winquery/internal/settings"
)

// recorder wraps an engine session and records every command it receives.
type recorder struct {
	*engine.Session

	mu    sync.Mutex
	calls []call
}

type call struct {
	command string
	args    []string
}

func (r *recorder) record(command string, args []string) {
	r.mu.Lock()
	r.calls = append(r.calls, call{command: command, args: append([]string(nil), args...)})
	r.mu.Unlock()
}

func (r *recorder) Invoke(ctx context.Context, command string, args ...string) (backend.Result, error) {
	r.record(command, args)
	return r.Session.Invoke(ctx, command, args...)
}

func (r *recorder) Dispatch(ctx context.Context, command string, args ...string) (backend.Pending, error) {
	r.record(command, args)
	return r.Session.Dispatch(ctx, command, args...)
}

func (r *recorder) commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.command
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// last returns the arguments of the most recent call to command and whether
// it was issued at all.
func (r *recorder) last(command string) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.calls) - 1; i >= 0; i-- {
		if r.calls[i].command == command {
			return r.calls[i].args, true
		}
	}
	return nil, false
}

type fixture struct {
	client  *Client
	desktop *engine.MemoryDesktop
	rec     *recorder
	ctx     context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d := engine.NewMemoryDesktop()
	e := engine.New(d, engine.WithoutDelays(), engine.WithPollInterval(5*time.Millisecond))
	rec := &recorder{Session: e.NewSession()}
	return &fixture{
		client:  NewClient(backend.NewSession(rec, nil)),
		desktop: d,
		rec:     rec,
		ctx:     settings.NewContext(context.Background(), settings.NewStore()),
	}
}

func mustFilter(t *testing.T, f Filter, opts ...Criterion) Filter {
	t.Helper()
	out, err := f.Filter(opts...)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	return out
}
