package history

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jpalmerr/opsboard/internal/storage"
)

// Change announces that the value under Key was rewritten.
type Change struct {
	Key string    `json:"key"`
	At  time.Time `json:"at"`
}

// Store is a typed JSON layer over a [storage.Port].
//
// Each operation is a single read-modify-write against one key, serialized
// by the store's mutex. Read and decode failures degrade to an empty result
// and are logged at WARN; write failures are logged at ERROR and swallowed.
//
// Subscribers receive a [Change] after every successful write via buffered
// channels (buffer size 100). Sends are non-blocking; a subscriber whose
// buffer is full misses the notification.
type Store struct {
	port   storage.Port
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex

	subscribers map[chan Change]struct{}
	subMu       sync.RWMutex
}

// NewStore creates a Store over port. A nil logger falls back to slog.Default.
func NewStore(port storage.Port, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		port:        port,
		logger:      logger,
		now:         time.Now,
		subscribers: make(map[chan Change]struct{}),
	}
}

// SaveLatest overwrites the single value stored under key.
func SaveLatest[T any](s *Store, key string, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(key, v)
}

// Load returns the single value stored under key.
// ok is false when the key is absent or unreadable.
func Load[T any](s *Store, key string) (v T, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return read[T](s, key)
}

// AppendCapped prepends v to the list under key and keeps at most limit
// entries, dropping the oldest.
func AppendCapped[T any](s *Store, key string, v T, limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, _ := read[[]T](s, key)
	list = append([]T{v}, list...)
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	s.write(key, list)
}

// GetAll returns the list under key, newest first. Absent or corrupt
// lists yield an empty, non-nil slice.
func GetAll[T any](s *Store, key string) []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, _ := read[[]T](s, key)
	if list == nil {
		list = []T{}
	}
	return list
}

// GetLatest returns the first (newest) element of the list under key.
func GetLatest[T any](s *Store, key string) (v T, ok bool) {
	list := GetAll[T](s, key)
	if len(list) == 0 {
		return v, false
	}
	return list[0], true
}

// DeleteWhere removes every element of the list under key matching pred,
// preserving the relative order of the rest. It returns how many were removed.
func DeleteWhere[T any](s *Store, key string, pred func(T) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, _ := read[[]T](s, key)
	kept := make([]T, 0, len(list))
	for _, item := range list {
		if !pred(item) {
			kept = append(kept, item)
		}
	}
	removed := len(list) - len(kept)
	if removed > 0 {
		s.write(key, kept)
	}
	return removed
}

// read must be called with s.mu held.
func read[T any](s *Store, key string) (v T, ok bool) {
	raw, found, err := s.port.Get(key)
	if err != nil {
		s.logger.Warn("storage read failed", "key", key, "error", err)
		return v, false
	}
	if !found || raw == "" {
		return v, false
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		s.logger.Warn("stored value is corrupt, treating as empty", "key", key, "error", err)
		var zero T
		return zero, false
	}
	return v, true
}

// write must be called with s.mu held.
func (s *Store) write(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode value", "key", key, "error", err)
		return
	}
	if err := s.port.Set(key, string(data)); err != nil {
		s.logger.Error("storage write failed", "key", key, "error", err)
		return
	}
	s.notifySubscribers(Change{Key: key, At: s.now()})
}

// Subscribe creates a new subscription and returns a channel of changes.
//
// Caller must call [Store.Unsubscribe] when done to prevent resource leaks.
func (s *Store) Subscribe() <-chan Change {
	ch := make(chan Change, 100)
	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (s *Store) Unsubscribe(ch <-chan Change) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for subCh := range s.subscribers {
		if subCh == ch {
			delete(s.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

func (s *Store) notifySubscribers(c Change) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for ch := range s.subscribers {
		select {
		case ch <- c:
		default:
			// subscriber is slow, drop the message
		}
	}
}
