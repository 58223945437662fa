package library

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Record keys. Both are written together on sign-in and removed together on sign-out.
const (
	userRecordKey  = "user"
	tokenRecordKey = "token"
)

// Storage is the persisted key-value record the session mirrors into.
// *Database satisfies it; MemoryStorage is the in-process stand-in.
type Storage interface {
	Get(key string) (string, bool, error)
	// Replace writes put and removes del as one change; on error neither applies.
	Replace(put map[string]string, del ...string) error
	Delete(keys ...string) error
}

// SessionStore owns the signed-in identity and its bearer credential.
//
// Load, Set and Clear are the only mutators. The store is meant to be used from
// a single goroutine (one command or one shell loop) and does no locking.
type SessionStore struct {
	storage Storage
	logger  *slog.Logger

	identity *Identity
	token    string
}

// NewSessionStore wraps storage. It does not read anything until Load is called.
func NewSessionStore(storage Storage, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{storage: storage, logger: logger}
}

// Load reads the persisted identity and returns it, or nil when there is none.
// Storage failures and malformed records count as "signed out"; Load never fails.
func (s *SessionStore) Load() *Identity {
	s.identity, s.token = nil, ""

	raw, ok, err := s.storage.Get(userRecordKey)
	if err != nil {
		s.logger.Debug("session record unreadable", "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	var identity Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		s.logger.Debug("discarding malformed session record", "error", err)
		return nil
	}
	if identity.ID <= 0 || !identity.Role.Valid() {
		s.logger.Debug("discarding incomplete session record", "id", identity.ID, "role", identity.Role)
		return nil
	}

	token, _, err := s.storage.Get(tokenRecordKey)
	if err != nil {
		s.logger.Debug("session token unreadable", "error", err)
	}

	s.identity, s.token = &identity, token
	return s.Current()
}

// Set persists identity and token, then adopts them in memory. On a storage
// error nothing changes.
func (s *SessionStore) Set(identity Identity, token string) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	records := map[string]string{userRecordKey: string(data)}
	var stale []string
	if token != "" {
		records[tokenRecordKey] = token
	} else {
		// A credential from an earlier sign-in must not outlive this one.
		stale = append(stale, tokenRecordKey)
	}
	if err := s.storage.Replace(records, stale...); err != nil {
		return err
	}

	s.identity, s.token = &identity, token
	return nil
}

// Clear drops the identity and credential from memory and from storage.
func (s *SessionStore) Clear() error {
	s.identity, s.token = nil, ""
	return s.storage.Delete(userRecordKey, tokenRecordKey)
}

// Current returns a copy of the in-memory identity, or nil.
func (s *SessionStore) Current() *Identity {
	if s.identity == nil {
		return nil
	}
	identity := *s.identity
	return &identity
}

// Token returns the bearer credential held in memory.
func (s *SessionStore) Token() string { return s.token }

// MemoryStorage is a Storage kept in a map.
type MemoryStorage struct {
	mu      sync.Mutex
	records map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.records[key]
	return v, ok, nil
}

func (m *MemoryStorage) Replace(put map[string]string, del ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range del {
		delete(m.records, k)
	}
	for k, v := range put {
		m.records[k] = v
	}
	return nil
}

func (m *MemoryStorage) Put(records map[string]string) error { return m.Replace(records) }

func (m *MemoryStorage) Delete(keys ...string) error { return m.Replace(nil, keys...) }
