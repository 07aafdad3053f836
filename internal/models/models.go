package models

import "premiere-night/internal/tmdb"

// ListCategory names one of the two in-memory movie list partitions
type ListCategory string

const (
	ListNowPlaying ListCategory = "nowPlaying"
	ListPopular    ListCategory = "popular"
)

// Valid reports whether the category is one of the known partitions
func (c ListCategory) Valid() bool {
	return c == ListNowPlaying || c == ListPopular
}

// WatchlistItem is a saved movie plus the time it was added.
// Items are created by the add operation and never mutated afterwards;
// removal deletes the whole record.
type WatchlistItem struct {
	tmdb.Movie
	AddedAt int64 `json:"addedAt"` // epoch milliseconds
}
