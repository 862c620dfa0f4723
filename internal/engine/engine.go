// Package engine interprets automation commands against a Desktop. Each
// client connection gets its own Session holding the mutable configuration
// (hidden window detection, title match mode, delays) and the last found
// window, the same state the client-side session lock protects.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/winquery/internal/backend"
)

// DefaultPollInterval is how often waits re-check the desktop.
const DefaultPollInterval = 100 * time.Millisecond

// Engine owns the desktop and the window groups shared by all sessions.
type Engine struct {
	desktop Desktop
	logger  *slog.Logger
	poll    time.Duration
	delays  bool

	mu     sync.Mutex
	groups map[string][]criteria
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithPollInterval sets how often waits re-check the desktop.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.poll = d
		}
	}
}

// WithoutDelays disables the win/control/key delays after actions.
func WithoutDelays() Option {
	return func(e *Engine) { e.delays = false }
}

// New creates an engine driving desktop.
func New(desktop Desktop, opts ...Option) *Engine {
	e := &Engine{
		desktop: desktop,
		logger:  slog.New(slog.DiscardHandler),
		poll:    DefaultPollInterval,
		delays:  true,
		groups:  make(map[string][]criteria),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Desktop returns the driven desktop.
func (e *Engine) Desktop() Desktop { return e.desktop }

// NewSession returns a session with default configuration.
func (e *Engine) NewSession() *Session {
	return &Session{engine: e, cfg: defaultConfig()}
}

func (e *Engine) addToGroup(name string, c criteria) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, existing := range e.groups[name] {
		if existing == c {
			return
		}
	}
	e.groups[name] = append(e.groups[name], c)
}

func (e *Engine) group(name string) []criteria {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]criteria(nil), e.groups[name]...)
}

func (e *Engine) sleep(d time.Duration) {
	if e.delays && d > 0 {
		time.Sleep(d)
	}
}

type config struct {
	hiddenWindows bool
	hiddenText    bool
	mode          matchMode
	slowText      bool
	winDelay      time.Duration
	controlDelay  time.Duration
	keyDelay      time.Duration
	keyDuration   time.Duration
}

const (
	defaultWinDelay     = 100 * time.Millisecond
	defaultControlDelay = 20 * time.Millisecond
	defaultKeyDelay     = 10 * time.Millisecond
)

func defaultConfig() config {
	return config{
		hiddenText:   true,
		mode:         modePrefix,
		winDelay:     defaultWinDelay,
		controlDelay: defaultControlDelay,
		keyDelay:     defaultKeyDelay,
		keyDuration:  -1,
	}
}

// Session is one client's view of the engine. It implements
// backend.Channel and backend.Dispatcher.
type Session struct {
	engine *Engine

	mu        sync.Mutex
	cfg       config
	lastFound uint64
}

var (
	_ backend.Channel    = (*Session)(nil)
	_ backend.Dispatcher = (*Session)(nil)
)

// Invoke runs command to completion.
func (s *Session) Invoke(ctx context.Context, command string, args ...string) (backend.Result, error) {
	p, err := s.Dispatch(ctx, command, args...)
	if err != nil {
		return backend.Result{}, err
	}
	return p.Wait()
}

// Dispatch accepts command and captures the session configuration. The
// command runs when the returned Pending is awaited, against that captured
// configuration, so configuration commands issued in the meantime do not
// affect it.
func (s *Session) Dispatch(ctx context.Context, command string, args ...string) (backend.Pending, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if set, ok := settingCommands[command]; ok {
		s.mu.Lock()
		err := set(command, &s.cfg, args)
		s.mu.Unlock()
		return backend.Completed(backend.Result{}, err), nil
	}
	h, ok := commands[command]
	if !ok {
		return backend.Completed(backend.Result{}, backend.Errorf(command, backend.CodeUnknownCommand, "unknown command")), nil
	}

	s.mu.Lock()
	c := &call{
		s:    s,
		e:    s.engine,
		ctx:  ctx,
		cfg:  s.cfg,
		last: s.lastFound,
		name: command,
		args: args,
	}
	s.mu.Unlock()

	return backend.Deferred(func() (backend.Result, error) {
		res, err := h(c)
		if err != nil {
			s.engine.logger.Debug("command failed", "command", command, "error", err)
		}
		return res, err
	}), nil
}

// LastFound returns the last found window id.
func (s *Session) LastFound() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFound
}

// call is one command execution bound to a configuration snapshot.
type call struct {
	s    *Session
	e    *Engine
	ctx  context.Context
	cfg  config
	last uint64
	name string
	args []string
}

func (c *call) arg(i int) string {
	if i < len(c.args) {
		return c.args[i]
	}
	return ""
}

func (c *call) setLastFound(id uint64) {
	c.last = id
	c.s.mu.Lock()
	c.s.lastFound = id
	c.s.mu.Unlock()
}

func (c *call) fail(code int, format string, args ...any) error {
	return backend.Errorf(c.name, code, format, args...)
}

// world is a desktop snapshot indexed by id.
type world struct {
	nodes  []Node
	active uint64
	index  map[uint64]located
}

type located struct {
	node   *Node
	parent *Node
}

func (c *call) snapshot() (*world, error) {
	nodes, err := c.e.desktop.Snapshot()
	if err != nil {
		return nil, c.fail(backend.CodeFailed, "snapshot: %v", err)
	}
	active, err := c.e.desktop.Active()
	if err != nil {
		return nil, c.fail(backend.CodeFailed, "active window: %v", err)
	}
	w := &world{nodes: nodes, active: active, index: make(map[uint64]located)}
	for i := range w.nodes {
		top := &w.nodes[i]
		w.index[top.ID] = located{node: top}
		for j := range top.Controls {
			w.index[top.Controls[j].ID] = located{node: &top.Controls[j], parent: top}
		}
	}
	return w, nil
}

func (w *world) find(id uint64) (located, bool) {
	if id == 0 {
		return located{}, false
	}
	l, ok := w.index[id]
	return l, ok
}

func (w *world) exists(id uint64) bool {
	_, ok := w.find(id)
	return ok
}

// poll re-evaluates cond until it holds, the timeout elapses, or ctx ends.
// A timeout <= 0 waits indefinitely.
func (c *call) poll(timeout, interval time.Duration, cond func(*world) (bool, error)) (bool, error) {
	if interval <= 0 {
		interval = c.e.poll
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		w, err := c.snapshot()
		if err != nil {
			return false, err
		}
		ok, err := cond(w)
		if err != nil || ok {
			return ok, err
		}
		if timeout > 0 && !time.Now().Before(deadline) {
			return false, nil
		}
		select {
		case <-c.ctx.Done():
			return false, c.ctx.Err()
		case <-ticker.C:
		}
	}
}
