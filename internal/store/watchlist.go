package store

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"premiere-night/internal/models"
	"premiere-night/internal/timeutil"
	"premiere-night/internal/tmdb"
)

// WatchlistKey is the fixed key the watchlist is mirrored under.
const WatchlistKey = "watchlist:v1"

const errLoadWatchlist = "Failed to load watchlist"

// KVStore is the slice of the key-value repository the watchlist needs.
type KVStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// WatchlistStore owns the ordered list of saved movies. The in-memory items
// slice is the single source of truth; the key-value store is a mirror,
// rewritten in the background after every mutation and read once at startup.
//
// Mutations are synchronous; the mirror write is fire-and-forget, so a
// caller of Add/Remove/Clear observes the updated list before (or even
// without) the write completing. Write failures are retried with backoff
// and then logged, never surfaced to the mutating caller.
type WatchlistStore struct {
	repo KVStore

	mu      sync.Mutex
	items   []models.WatchlistItem
	loading bool
	err     string
	version uint64

	// writeMu serializes mirror writes; lastWritten tracks the newest
	// version to reach storage so a stale snapshot never overwrites a
	// fresher one when background writes race.
	writeMu     sync.Mutex
	lastWritten uint64
	writes      sync.WaitGroup
}

// NewWatchlistStore creates an empty WatchlistStore.
func NewWatchlistStore(repo KVStore) *WatchlistStore {
	return &WatchlistStore{repo: repo}
}

// Add inserts a movie at the head of the watchlist and mirrors the result
// to storage. Adding an id that is already present is a no-op: two payloads
// sharing an id are the same entry, the first one wins.
func (s *WatchlistStore) Add(movie tmdb.Movie) {
	s.mu.Lock()
	for _, item := range s.items {
		if item.ID == movie.ID {
			s.mu.Unlock()
			return
		}
	}
	item := models.WatchlistItem{
		Movie:   movie,
		AddedAt: timeutil.Now().UnixMilli(),
	}
	s.items = append([]models.WatchlistItem{item}, s.items...)
	payload, version := s.encodeLocked()
	s.mu.Unlock()

	s.persistAsync(payload, version)
}

// Remove filters out the item with the given id, preserving the order of
// the remainder. The mirror is rewritten even when nothing was removed.
func (s *WatchlistStore) Remove(movieID int) {
	s.mu.Lock()
	kept := s.items[:0]
	for _, item := range s.items {
		if item.ID != movieID {
			kept = append(kept, item)
		}
	}
	s.items = kept
	payload, version := s.encodeLocked()
	s.mu.Unlock()

	s.persistAsync(payload, version)
}

// Clear empties the watchlist and mirrors the empty list to storage.
func (s *WatchlistStore) Clear() {
	s.mu.Lock()
	s.items = nil
	payload, version := s.encodeLocked()
	s.mu.Unlock()

	s.persistAsync(payload, version)
}

// ClearError clears the error string.
func (s *WatchlistStore) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = ""
}

// Load reads the mirror key and replaces the in-memory list wholesale.
// An absent key yields an empty list, not an error. On a storage or decode
// failure the error string is set and the current items are left unchanged.
func (s *WatchlistStore) Load() error {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	payload, ok, err := s.repo.Get(WatchlistKey)
	if err != nil {
		s.rejectLoad(err)
		return err
	}

	var items []models.WatchlistItem
	if ok {
		if err := json.Unmarshal([]byte(payload), &items); err != nil {
			err = fmt.Errorf("failed to decode stored watchlist: %w", err)
			s.rejectLoad(err)
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.items = items
	return nil
}

// Items returns a copy of the watchlist, most recently added first.
func (s *WatchlistStore) Items() []models.WatchlistItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.WatchlistItem{}, s.items...)
}

// Contains reports whether a movie id is on the watchlist.
func (s *WatchlistStore) Contains(movieID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ID == movieID {
			return true
		}
	}
	return false
}

// Len returns the number of saved movies.
func (s *WatchlistStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Loading reports whether a Load is in flight.
func (s *WatchlistStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the error string, empty when there is none.
func (s *WatchlistStore) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Flush waits for all in-flight mirror writes. Called on shutdown and by
// tests that assert on the persisted state.
func (s *WatchlistStore) Flush() {
	s.writes.Wait()
}

// encodeLocked serializes the full items slice while the caller holds the
// lock and stamps it with a mutation version, so mirror payloads always
// reflect a consistent mutation order.
func (s *WatchlistStore) encodeLocked() (string, uint64) {
	s.version++
	items := s.items
	if items == nil {
		items = []models.WatchlistItem{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		// Marshal of these plain structs cannot realistically fail;
		// keep the previous mirror rather than write garbage.
		log.Printf("Failed to encode watchlist: %v", err)
		return "", s.version
	}
	return string(payload), s.version
}

// persistAsync rewrites the mirror key in the background. The caller is
// never blocked on, or informed of, the outcome. Snapshots superseded by
// a newer completed write are dropped instead of applied.
func (s *WatchlistStore) persistAsync(payload string, version uint64) {
	if payload == "" {
		return
	}
	s.writes.Add(1)
	go func() {
		defer s.writes.Done()
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		if version <= s.lastWritten {
			return
		}
		err := retry.Do(
			func() error { return s.repo.Set(WatchlistKey, payload) },
			retry.Attempts(3),
			retry.Delay(100*time.Millisecond),
			retry.LastErrorOnly(true),
		)
		if err != nil {
			log.Printf("Failed to save watchlist: %v", err)
			return
		}
		s.lastWritten = version
	}()
}

func (s *WatchlistStore) rejectLoad(err error) {
	msg := err.Error()
	if msg == "" {
		msg = errLoadWatchlist
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.err = msg
}
