package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/velora/storefront/internal/domain"
	apperrors "github.com/velora/storefront/pkg/errors"
)

// Record is the persisted session representation. It is the only durable
// state this process owns, and the only cross-process signal: other
// storefront processes observe changes to it and mirror the session.
type Record struct {
	Token  string `json:"token"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Event is emitted by a RecordStore watch. A nil Record means the record was
// removed.
type Event struct {
	Record *Record
}

// RecordStore persists the session record and notifies watchers of changes.
// Load returns apperrors.ErrNotFound when the record is absent; a malformed
// persisted record is treated as absent and cleared rather than surfaced.
type RecordStore interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, rec *Record) error
	Delete(ctx context.Context) error
	Watch(ctx context.Context) (<-chan Event, error)
}

func recordFromSession(s domain.Session) *Record {
	return &Record{
		Token:  s.Token,
		Name:   s.Profile.Name,
		Email:  s.Profile.Email,
		Avatar: s.Profile.Avatar,
	}
}

func sessionFromRecord(r *Record) domain.Session {
	return domain.Session{
		Token: r.Token,
		Profile: domain.Profile{
			Name:   r.Name,
			Email:  r.Email,
			Avatar: r.Avatar,
		},
	}
}

// MemoryRecordStore is an in-process RecordStore. It stores the marshaled
// record so tests can exercise the malformed-data path the same way the
// Redis store does.
type MemoryRecordStore struct {
	mu   sync.Mutex
	data []byte
	subs []chan Event
}

// NewMemoryRecordStore creates an empty in-memory record store.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{}
}

// Load returns the stored record. Malformed data is cleared and reported as
// absent.
func (m *MemoryRecordStore) Load(ctx context.Context) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return nil, apperrors.NotFound("session record", "local")
	}

	var rec Record
	if err := json.Unmarshal(m.data, &rec); err != nil {
		m.data = nil
		return nil, apperrors.NotFound("session record", "local")
	}
	return &rec, nil
}

// Save stores the record and notifies watchers.
func (m *MemoryRecordStore) Save(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.data = data
	subs := append([]chan Event(nil), m.subs...)
	m.mu.Unlock()

	cp := *rec
	for _, ch := range subs {
		ch <- Event{Record: &cp}
	}
	return nil
}

// SaveRaw stores arbitrary bytes without validation, for exercising recovery
// from corrupt persisted state.
func (m *MemoryRecordStore) SaveRaw(data []byte) {
	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
}

// subscriberCount reports how many watch subscribers are registered, so
// tests can wait for a Watch to be in place before mutating the record.
func (m *MemoryRecordStore) subscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Delete removes the record and notifies watchers.
func (m *MemoryRecordStore) Delete(ctx context.Context) error {
	m.mu.Lock()
	m.data = nil
	subs := append([]chan Event(nil), m.subs...)
	m.mu.Unlock()

	for _, ch := range subs {
		ch <- Event{}
	}
	return nil
}

// Watch registers a subscriber channel that receives record change events
// until the context is canceled.
func (m *MemoryRecordStore) Watch(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event, 8)

	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		for i, sub := range m.subs {
			if sub == ch {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				break
			}
		}
		m.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}
