package store

import (
	"sync"

	"premiere-night/internal/models"
	"premiere-night/internal/tmdb"
)

// Fallback error strings used when a failure carries no message of its own.
const (
	errLoadNowPlaying = "Failed to load now playing movies"
	errLoadPopular    = "Failed to load popular movies"
	errLoadDetails    = "Failed to load movie details"
	errLoadGenres     = "Failed to load genres"
)

// CatalogClient is the slice of the TMDB client the movies container needs.
type CatalogClient interface {
	GetNowPlaying(page int) (*tmdb.MovieListResponse, error)
	GetPopular(page int) (*tmdb.MovieListResponse, error)
	GetMovieDetails(movieID int) (*tmdb.MovieDetails, error)
	GetGenres() ([]tmdb.Genre, error)
}

// MoviesStore owns the in-memory movie catalog state: the two paginated
// category lists, the details-by-id map, and the genre taxonomy.
//
// Every load operation goes through three phases. Pending sets the shared
// loading flag and clears the shared error; fulfilled and rejected clear the
// loading flag again. The four operations share one loading flag and one
// error string, so when several loads are in flight the last one to settle
// wins those two fields. Callers that need per-operation outcomes use the
// error returned by the Load method itself.
type MoviesStore struct {
	client CatalogClient

	mu          sync.Mutex
	nowPlaying  []tmdb.Movie
	popular     []tmdb.Movie
	details     map[int]tmdb.MovieDetails
	genres      []tmdb.Genre
	currentPage map[models.ListCategory]int
	hasMore     map[models.ListCategory]bool
	loading     bool
	err         string
}

// CategorySnapshot is a read-only view of one category list and its
// pagination cursor.
type CategorySnapshot struct {
	Results     []tmdb.Movie `json:"results"`
	CurrentPage int          `json:"current_page"`
	HasMore     bool         `json:"has_more"`
}

// NewMoviesStore creates an empty MoviesStore.
func NewMoviesStore(client CatalogClient) *MoviesStore {
	return &MoviesStore{
		client:  client,
		details: make(map[int]tmdb.MovieDetails),
		currentPage: map[models.ListCategory]int{
			models.ListNowPlaying: 1,
			models.ListPopular:    1,
		},
		hasMore: map[models.ListCategory]bool{
			models.ListNowPlaying: true,
			models.ListPopular:    true,
		},
	}
}

// LoadNowPlaying fetches one page of now-playing movies and merges it into
// the nowPlaying list: page 1 replaces the list, later pages append.
func (s *MoviesStore) LoadNowPlaying(page int) error {
	return s.loadCategory(models.ListNowPlaying, page)
}

// LoadPopular fetches one page of popular movies, with the same
// replace-on-page-1 / append-otherwise contract as LoadNowPlaying.
func (s *MoviesStore) LoadPopular(page int) error {
	return s.loadCategory(models.ListPopular, page)
}

func (s *MoviesStore) loadCategory(category models.ListCategory, page int) error {
	if page < 1 {
		page = 1
	}

	s.begin()

	var (
		resp *tmdb.MovieListResponse
		err  error
	)
	if category == models.ListNowPlaying {
		resp, err = s.client.GetNowPlaying(page)
	} else {
		resp, err = s.client.GetPopular(page)
	}
	if err != nil {
		s.reject(categoryFallback(category), err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	target := &s.nowPlaying
	if category == models.ListPopular {
		target = &s.popular
	}
	// First page replaces even when it is a retry of an already-loaded
	// page; that is how pull-to-refresh reloads a list.
	if resp.Page == 1 {
		*target = append([]tmdb.Movie(nil), resp.Results...)
	} else {
		*target = append(*target, resp.Results...)
	}
	s.currentPage[category] = resp.Page
	// Inclusive boundary: page == total_pages means the list is exhausted.
	s.hasMore[category] = resp.Page < resp.TotalPages
	return nil
}

// LoadDetails fetches the full record for a movie and stores it in the
// details map. Refetching the same id overwrites the stored entry.
func (s *MoviesStore) LoadDetails(movieID int) error {
	s.begin()

	details, err := s.client.GetMovieDetails(movieID)
	if err != nil {
		s.reject(errLoadDetails, err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.details[details.ID] = *details
	return nil
}

// LoadGenres fetches the genre taxonomy and replaces the stored list.
func (s *MoviesStore) LoadGenres() error {
	s.begin()

	genres, err := s.client.GetGenres()
	if err != nil {
		s.reject(errLoadGenres, err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.genres = genres
	return nil
}

// ResetCategory clears one category list and rewinds its pagination cursor.
// Used before re-issuing a page-1 request on pull-to-refresh.
func (s *MoviesStore) ResetCategory(category models.ListCategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if category == models.ListPopular {
		s.popular = nil
	} else {
		s.nowPlaying = nil
	}
	s.currentPage[category] = 1
	s.hasMore[category] = true
}

// ClearError clears the shared error string.
func (s *MoviesStore) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = ""
}

// Category returns a snapshot of one category list.
func (s *MoviesStore) Category(category models.ListCategory) CategorySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	source := s.nowPlaying
	if category == models.ListPopular {
		source = s.popular
	}
	return CategorySnapshot{
		Results:     append([]tmdb.Movie{}, source...),
		CurrentPage: s.currentPage[category],
		HasMore:     s.hasMore[category],
	}
}

// Details returns the stored details for a movie id, if any.
func (s *MoviesStore) Details(movieID int) (tmdb.MovieDetails, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	details, ok := s.details[movieID]
	return details, ok
}

// Genres returns a copy of the stored genre taxonomy.
func (s *MoviesStore) Genres() []tmdb.Genre {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tmdb.Genre{}, s.genres...)
}

// GenreName resolves a genre id against the stored taxonomy.
func (s *MoviesStore) GenreName(genreID int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.genres {
		if g.ID == genreID {
			return g.Name, true
		}
	}
	return "", false
}

// Loading reports whether any load operation is in flight.
func (s *MoviesStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the shared error string, empty when there is none.
func (s *MoviesStore) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// begin applies the pending transition shared by all load operations.
func (s *MoviesStore) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
	s.err = ""
}

// reject applies the rejected transition: the failure's message is stored,
// or the operation's fallback string when the message is empty. Rejections
// never touch the list, map, or genre contents.
func (s *MoviesStore) reject(fallback string, err error) {
	msg := err.Error()
	if msg == "" {
		msg = fallback
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.err = msg
}

func categoryFallback(category models.ListCategory) string {
	if category == models.ListPopular {
		return errLoadPopular
	}
	return errLoadNowPlaying
}
