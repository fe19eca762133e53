// Package session owns the authenticated identity: the single session
// record, its persisted representation, and the propagation of session
// changes across storefront processes.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/velora/storefront/internal/domain"
	apperrors "github.com/velora/storefront/pkg/errors"
)

// Hooks connect the session lifecycle to the data engines. Load performs the
// initial cart and wishlist fetch and returns once both have settled; Clear
// synchronously empties both local collections. Both are optional.
type Hooks struct {
	Load  func(ctx context.Context) error
	Clear func()
}

// Store is the single authority on whether a logged-in identity exists and
// who it is. Engines read it; only the store itself mutates it.
type Store struct {
	mu      sync.RWMutex
	current *domain.Session

	records RecordStore
	hooks   Hooks
	logger  *slog.Logger
}

// NewStore creates a session store. The initial state is unauthenticated
// until Restore runs.
func NewStore(records RecordStore, logger *slog.Logger) *Store {
	return &Store{
		records: records,
		logger:  logger,
	}
}

// SetHooks registers the lifecycle hooks. Must be called before Restore,
// Establish or Watch.
func (s *Store) SetHooks(h Hooks) {
	s.hooks = h
}

// Authenticated reports whether a session credential is held.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// Token returns the current credential, or empty when unauthenticated.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// Current returns a copy of the session and whether one exists.
func (s *Store) Current() (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.Session{}, false
	}
	return *s.current, true
}

// Restore reads the persisted record and, when it carries a token,
// establishes the session and triggers the initial data load. Malformed or
// token-less records are cleared and left unauthenticated; Restore never
// fails because of them. A token the API rejects during the load terminates
// the session again, record included.
func (s *Store) Restore(ctx context.Context) error {
	rec, err := s.records.Load(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return apperrors.Wrap(err, "load session record")
	}

	if rec.Token == "" {
		if err := s.records.Delete(ctx); err != nil {
			s.logger.Warn("clear partial session record", slog.String("error", err.Error()))
		}
		return nil
	}

	s.setCurrent(sessionFromRecord(rec))
	s.logger.Info("session restored", slog.String("email", rec.Email))
	s.runLoad(ctx)
	return nil
}

// Establish records the session, persists it, and (unless suppressed) runs
// the initial data load. It returns only after the load has settled, so
// callers can navigate away knowing counts are not stale.
func (s *Store) Establish(ctx context.Context, sess domain.Session, loadData bool) error {
	if !sess.Valid() {
		return apperrors.InvalidInput("session token is required")
	}

	s.setCurrent(sess)

	if err := s.records.Save(ctx, recordFromSession(sess)); err != nil {
		// The in-process session stays valid; only cross-process
		// propagation is degraded.
		s.logger.Warn("persist session record", slog.String("error", err.Error()))
	}

	s.logger.Info("session established", slog.String("email", sess.Profile.Email))

	if loadData {
		s.runLoad(ctx)
	}
	return nil
}

// Terminate clears the session and synchronously empties both collections
// before touching any I/O, so the UI observes zero counts immediately even
// when the record deletion or a logout round-trip is still outstanding.
func (s *Store) Terminate(ctx context.Context) {
	s.clearCurrent()
	if s.hooks.Clear != nil {
		s.hooks.Clear()
	}

	if err := s.records.Delete(ctx); err != nil {
		s.logger.Warn("delete session record", slog.String("error", err.Error()))
	}

	s.logger.Info("session terminated")
}

// Watch mirrors record changes made by other processes until the context is
// canceled. A record appearing establishes the session and reloads data; a
// record updating in place adopts the new credential without reloading; a
// record disappearing clears the session and both collections.
func (s *Store) Watch(ctx context.Context) error {
	events, err := s.records.Watch(ctx)
	if err != nil {
		return apperrors.Wrap(err, "watch session record")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, ev)
		}
	}
}

func (s *Store) handleEvent(ctx context.Context, ev Event) {
	if ev.Record == nil || ev.Record.Token == "" {
		if s.Authenticated() {
			s.clearCurrent()
			if s.hooks.Clear != nil {
				s.hooks.Clear()
			}
			s.logger.Info("session removed by another process")
		}
		return
	}

	wasAuthenticated := s.Authenticated()
	s.setCurrent(sessionFromRecord(ev.Record))

	// Only the absent->present transition reloads data; a same-session
	// update from another process would otherwise refetch on every write.
	if !wasAuthenticated {
		s.logger.Info("session adopted from another process", slog.String("email", ev.Record.Email))
		s.runLoad(ctx)
	}
}

func (s *Store) runLoad(ctx context.Context) {
	if s.hooks.Load == nil {
		return
	}
	err := s.hooks.Load(ctx)
	if err == nil {
		return
	}
	if errors.Is(err, apperrors.ErrAuthRequired) {
		// The API no longer accepts this credential. Full terminate
		// semantics, record deletion included, so the dead token stops
		// propagating to other processes.
		s.logger.Info("stored credential rejected, terminating session")
		s.Terminate(ctx)
		return
	}
	s.logger.Warn("initial data load", slog.String("error", err.Error()))
}

func (s *Store) setCurrent(sess domain.Session) {
	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
}

func (s *Store) clearCurrent() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}
