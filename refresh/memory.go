package refresh

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store. It backs tests and single-process
// deployments; everything lives behind one mutex.
type MemoryStore struct {
	mu       sync.Mutex
	records  map[Hash]Record
	byUser   map[string]map[Hash]struct{}
	consumed map[Hash]tombstone
}

type tombstone struct {
	userID    string
	tenantID  string
	expiresAt time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[Hash]Record),
		byUser:   make(map[string]map[Hash]struct{}),
		consumed: make(map[Hash]tombstone),
	}
}

func (s *MemoryStore) Create(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(rec)
	return nil
}

func (s *MemoryStore) Find(_ context.Context, hash Hash) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[hash]
	if !ok {
		return Record{}, ErrNotFound
	}
	if rec.ExpiredAt(time.Now()) {
		return Record{}, ErrExpired
	}
	return rec, nil
}

func (s *MemoryStore) Rotate(_ context.Context, hash Hash, next Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	old, ok := s.records[hash]
	if !ok {
		if t, hit := s.consumed[hash]; hit && now.Before(t.expiresAt) {
			return Record{}, &ReuseError{UserID: t.userID, TenantID: t.tenantID}
		}
		return Record{}, ErrNotFound
	}

	if old.ExpiredAt(now) {
		s.removeLocked(old)
		return Record{}, ErrExpired
	}

	s.removeLocked(old)
	s.consumed[hash] = tombstone{
		userID:    old.UserID,
		tenantID:  old.TenantID,
		expiresAt: old.ExpiresAt,
	}

	next.UserID = old.UserID
	next.TenantID = old.TenantID
	s.insertLocked(next)

	return old, nil
}

func (s *MemoryStore) Delete(_ context.Context, hash Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[hash]; ok {
		s.removeLocked(rec)
	}
	return nil
}

func (s *MemoryStore) DeleteAllForUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hashes := s.byUser[userID]
	n := int64(len(hashes))
	for hash := range hashes {
		delete(s.records, hash)
	}
	delete(s.byUser, userID)
	return n, nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var n int64
	for _, rec := range s.records {
		if rec.ExpiredAt(now) {
			s.removeLocked(rec)
			n++
		}
	}
	for hash, t := range s.consumed {
		if !now.Before(t.expiresAt) {
			delete(s.consumed, hash)
		}
	}
	return n, nil
}

func (s *MemoryStore) insertLocked(rec Record) {
	s.records[rec.SecretHash] = rec
	set, ok := s.byUser[rec.UserID]
	if !ok {
		set = make(map[Hash]struct{})
		s.byUser[rec.UserID] = set
	}
	set[rec.SecretHash] = struct{}{}
}

func (s *MemoryStore) removeLocked(rec Record) {
	delete(s.records, rec.SecretHash)
	if set, ok := s.byUser[rec.UserID]; ok {
		delete(set, rec.SecretHash)
		if len(set) == 0 {
			delete(s.byUser, rec.UserID)
		}
	}
}
