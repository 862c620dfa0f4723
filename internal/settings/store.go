package settings

import (
	"context"
	"sync"
)

// Store holds the settings of one caller. It is lazily initialised from
// Defaults on first use. A Store is meant to be owned by a single goroutine
// of control; the mutex only protects the swap done by Local.
type Store struct {
	mu  sync.Mutex
	cur *Settings
}

// NewStore returns an uninitialised store.
func NewStore() *Store { return &Store{} }

func (s *Store) current() *Settings {
	if s.cur == nil {
		d := Defaults()
		s.cur = &d
	}
	return s.cur
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.current()
}

// Set replaces the current settings.
func (s *Store) Set(v Settings) error {
	if err := v.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.current() = v
	return nil
}

// Local runs fn with a private copy of the current settings installed. The
// prior settings are restored when fn returns, fails or panics.
func (s *Store) Local(fn func(*Settings) error) error {
	s.mu.Lock()
	prior := s.current()
	local := *prior
	s.cur = &local
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.cur = prior
		s.mu.Unlock()
	}()
	return fn(&local)
}

type ctxKey struct{}

// NewContext returns a context carrying st.
func NewContext(ctx context.Context, st *Store) context.Context {
	return context.WithValue(ctx, ctxKey{}, st)
}

// StoreFrom returns the store carried by ctx.
func StoreFrom(ctx context.Context) (*Store, bool) {
	st, ok := ctx.Value(ctxKey{}).(*Store)
	return st, ok && st != nil
}

// FromContext returns the settings in effect for ctx, or the process
// defaults when ctx carries no store.
func FromContext(ctx context.Context) Settings {
	if st, ok := StoreFrom(ctx); ok {
		return st.Get()
	}
	return Defaults()
}
