package store

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"premiere-night/internal/models"
	"premiere-night/internal/timeutil"
)

// fakeKV is an in-memory KVStore. Writes arrive from background
// goroutines, so it is locked like the real repository would be.
type fakeKV struct {
	mu      sync.Mutex
	values  map[string]string
	sets    int
	failSet bool
	getErr  error
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: make(map[string]string)}
}

func (f *fakeKV) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", false, f.getErr
	}
	value, ok := f.values[key]
	return value, ok, nil
}

func (f *fakeKV) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	if f.failSet {
		return errors.New("disk full")
	}
	f.values[key] = value
	return nil
}

func (f *fakeKV) setCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets
}

func (f *fakeKV) stored(t *testing.T) []models.WatchlistItem {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	payload, ok := f.values[WatchlistKey]
	require.True(t, ok, "expected a persisted watchlist payload")
	var items []models.WatchlistItem
	require.NoError(t, json.Unmarshal([]byte(payload), &items))
	return items
}

func TestAddInsertsAtHead(t *testing.T) {
	kv := newFakeKV()
	s := NewWatchlistStore(kv)

	s.Add(movie(1))
	s.Add(movie(2))

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[0].ID)
	assert.Equal(t, 1, items[1].ID)
}

func TestAddIsIdempotentById(t *testing.T) {
	kv := newFakeKV()
	s := NewWatchlistStore(kv)

	first := movie(1)
	first.Title = "Original title"
	second := movie(1)
	second.Title = "Different payload, same id"

	s.Add(first)
	s.Add(second)

	items := s.Items()
	require.Len(t, items, 1)
	// The first payload wins; the duplicate is dropped, not merged.
	assert.Equal(t, "Original title", items[0].Title)
}

func TestAddStampsAddedAt(t *testing.T) {
	timeutil.SetNowFunc(func() time.Time {
		return time.UnixMilli(1700000000000)
	})
	defer timeutil.SetNowFunc(nil)

	kv := newFakeKV()
	s := NewWatchlistStore(kv)
	s.Add(movie(1))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(1700000000000), items[0].AddedAt)
}

func TestRemovePreservesOrder(t *testing.T) {
	kv := newFakeKV()
	s := NewWatchlistStore(kv)

	s.Add(movie(1))
	s.Add(movie(2))
	s.Add(movie(3))

	s.Remove(2)

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 3, items[0].ID)
	assert.Equal(t, 1, items[1].ID)
}

func TestRemoveAbsentIdStillPersists(t *testing.T) {
	kv := newFakeKV()
	s := NewWatchlistStore(kv)

	s.Add(movie(1))
	s.Flush()
	before := kv.setCount()

	s.Remove(999)
	s.Flush()

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].ID)
	assert.Equal(t, before+1, kv.setCount(), "a no-op removal still rewrites the mirror")
}

func TestClearPersistsEmptyArray(t *testing.T) {
	kv := newFakeKV()
	s := NewWatchlistStore(kv)

	s.Add(movie(1))
	s.Add(movie(2))
	s.Clear()
	s.Flush()

	assert.Zero(t, s.Len())
	assert.Empty(t, kv.stored(t))
}

func TestMutationsMirrorToStorage(t *testing.T) {
	kv := newFakeKV()
	s := NewWatchlistStore(kv)

	s.Add(movie(1))
	s.Add(movie(2))
	s.Remove(1)
	s.Flush()

	stored := kv.stored(t)
	require.Len(t, stored, 1)
	assert.Equal(t, 2, stored[0].ID)
}

func TestPersistFailureIsInvisibleToCaller(t *testing.T) {
	kv := newFakeKV()
	kv.failSet = true
	s := NewWatchlistStore(kv)

	s.Add(movie(1))
	s.Flush()

	// The in-memory list is the source of truth even when the mirror
	// write failed; the failure is logged, not surfaced.
	assert.Equal(t, 1, s.Len())
	assert.Empty(t, s.Err())
}

func TestLoadAbsentKeyYieldsEmptyList(t *testing.T) {
	kv := newFakeKV()
	s := NewWatchlistStore(kv)

	require.NoError(t, s.Load())
	assert.Zero(t, s.Len())
	assert.False(t, s.Loading())
	assert.Empty(t, s.Err())
}

func TestLoadReplacesItemsWholesale(t *testing.T) {
	kv := newFakeKV()
	payload, err := json.Marshal([]models.WatchlistItem{
		{Movie: movie(5), AddedAt: 100},
		{Movie: movie(6), AddedAt: 50},
	})
	require.NoError(t, err)
	kv.values[WatchlistKey] = string(payload)

	s := NewWatchlistStore(kv)
	s.Add(movie(1)) // pre-existing state is discarded by Load

	require.NoError(t, s.Load())

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 5, items[0].ID)
	assert.Equal(t, 6, items[1].ID)
}

func TestLoadCorruptPayloadLeavesItemsUnchanged(t *testing.T) {
	kv := newFakeKV()
	kv.values[WatchlistKey] = "{not json"

	s := NewWatchlistStore(kv)
	s.Add(movie(1))

	err := s.Load()
	require.Error(t, err)

	assert.Equal(t, 1, s.Len(), "rejection must not change items")
	assert.NotEmpty(t, s.Err())
	assert.False(t, s.Loading())
}

func TestLoadStorageFailureSetsError(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("database is locked")

	s := NewWatchlistStore(kv)
	err := s.Load()
	require.Error(t, err)
	assert.Equal(t, "database is locked", s.Err())

	s.ClearError()
	assert.Empty(t, s.Err())
}

func TestLoadStorageFailureUsesFallbackWhenMessageEmpty(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = silentError{}

	s := NewWatchlistStore(kv)
	require.Error(t, s.Load())
	assert.Equal(t, "Failed to load watchlist", s.Err())
}

func TestRoundTripThroughMirror(t *testing.T) {
	kv := newFakeKV()
	s := NewWatchlistStore(kv)

	s.Add(movie(1))
	s.Add(movie(2))
	s.Add(movie(3))
	s.Remove(2)
	s.Flush()

	restored := NewWatchlistStore(kv)
	require.NoError(t, restored.Load())

	assert.Equal(t, s.Items(), restored.Items())
}

func TestContains(t *testing.T) {
	kv := newFakeKV()
	s := NewWatchlistStore(kv)

	s.Add(movie(7))
	assert.True(t, s.Contains(7))
	assert.False(t, s.Contains(8))
}
