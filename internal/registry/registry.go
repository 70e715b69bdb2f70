package registry

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrDuplicateID is returned when a peer id is already registered.
	ErrDuplicateID = errors.New("peer id already registered")
	// ErrNotFound is returned when a peer id is not registered.
	ErrNotFound = errors.New("peer not registered")
)

// Conn is the transport-level handle the registry keeps per peer.
// Send must not block; it reports whether the frame was accepted.
type Conn interface {
	Send(data []byte) bool
	Close() error
}

// PeerRecord describes one registered peer. The registry owns the
// record; callers receive copies and reach the connection only
// through Lookup.
type PeerRecord struct {
	ID           string
	Conn         Conn
	RegisteredAt time.Time
	LastActiveAt time.Time
}

// Registry is the concurrency-safe mapping of live peer ids to their
// records. All operations are in-memory only; the lock is never held
// across connection I/O.
type Registry struct {
	mu    sync.RWMutex
	peers map[string]*PeerRecord
	now   func() time.Time
}

func New() *Registry {
	return NewWithClock(time.Now)
}

// NewWithClock builds a registry on an injectable clock, used by
// tests and the sweeper.
func NewWithClock(now func() time.Time) *Registry {
	return &Registry{
		peers: make(map[string]*PeerRecord),
		now:   now,
	}
}

// Register inserts a record for id. Fails with ErrDuplicateID if the
// id is currently live.
func (r *Registry) Register(id string, conn Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.peers[id]; exists {
		return ErrDuplicateID
	}

	now := r.now()
	r.peers[id] = &PeerRecord{
		ID:           id,
		Conn:         conn,
		RegisteredAt: now,
		LastActiveAt: now,
	}
	return nil
}

// Touch advances LastActiveAt for id. LastActiveAt never moves
// backwards, even if the clock does.
func (r *Registry) Touch(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.peers[id]
	if !exists {
		return ErrNotFound
	}
	if now := r.now(); now.After(rec.LastActiveAt) {
		rec.LastActiveAt = now
	}
	return nil
}

// Lookup returns a copy of the record for id.
func (r *Registry) Lookup(id string) (PeerRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.peers[id]
	if !exists {
		return PeerRecord{}, false
	}
	return *rec, true
}

// Remove deletes and returns the record for id. Removing an absent id
// is not an error.
func (r *Registry) Remove(id string) (PeerRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.peers[id]
	if !exists {
		return PeerRecord{}, false
	}
	delete(r.peers, id)
	return *rec, true
}

// RemoveConn deletes the record for id only while it still belongs to
// conn. Session teardown uses this so a stale close can never delete a
// newer registration that reused the same id.
func (r *Registry) RemoveConn(id string, conn Conn) (PeerRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.peers[id]
	if !exists || rec.Conn != conn {
		return PeerRecord{}, false
	}
	delete(r.peers, id)
	return *rec, true
}

// ListIDs returns a point-in-time snapshot of registered peer ids.
func (r *Registry) ListIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.peers))
	for id := range r.peers {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}
