package tmdb

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL  = "https://api.themoviedb.org/3"
	defaultLanguage = "en-US"
	defaultTimeout  = 10 * time.Second
	requestInterval = 100 * time.Millisecond // spacing between requests to stay under TMDB rate limits
)

// Category identifies a movie list endpoint.
type Category string

const (
	CategoryNowPlaying Category = "now_playing"
	CategoryPopular    Category = "popular"
)

// Client handles all interactions with the TMDB API
type Client struct {
	apiKey      string
	baseURL     string
	language    string
	region      string
	httpClient  *http.Client
	lastRequest time.Time
}

// Genre represents a single entry of the genre taxonomy
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Movie represents a movie summary from a list endpoint
type Movie struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	Overview         string  `json:"overview"`
	PosterPath       *string `json:"poster_path"`
	BackdropPath     *string `json:"backdrop_path"`
	ReleaseDate      string  `json:"release_date"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	GenreIDs         []int   `json:"genre_ids"`
	OriginalLanguage string  `json:"original_language"`
}

// MovieDetails represents the full record from the movie details endpoint.
// Genre ids are resolved into Genre objects here.
type MovieDetails struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	Overview         string  `json:"overview"`
	PosterPath       *string `json:"poster_path"`
	BackdropPath     *string `json:"backdrop_path"`
	ReleaseDate      string  `json:"release_date"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Genres           []Genre `json:"genres"`
	OriginalLanguage string  `json:"original_language"`
	Runtime          *int    `json:"runtime"`
	Tagline          *string `json:"tagline"`
}

// MovieListResponse is the pagination envelope around a page of movies
type MovieListResponse struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// genreListResponse wraps the TMDB genre taxonomy response
type genreListResponse struct {
	Genres []Genre `json:"genres"`
}

// APIError represents an error returned by the TMDB API
type APIError struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("TMDB API error (code %d): %s", e.StatusCode, e.StatusMessage)
}

// NewClient creates a new TMDB API client
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		language: defaultLanguage,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// NewClientWithHTTP creates a new TMDB API client with a custom HTTP client
func NewClientWithHTTP(apiKey string, httpClient *http.Client) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		language:   defaultLanguage,
		httpClient: httpClient,
	}
}

// SetBaseURL allows overriding the base URL (useful for testing)
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// SetLanguage overrides the language sent with every request
func (c *Client) SetLanguage(language string) {
	if language != "" {
		c.language = language
	}
}

// SetRegion sets an optional region filter for list endpoints
func (c *Client) SetRegion(region string) {
	c.region = region
}

// GetNowPlaying fetches a page of now-playing movies
func (c *Client) GetNowPlaying(page int) (*MovieListResponse, error) {
	return c.getMovieList(CategoryNowPlaying, page)
}

// GetPopular fetches a page of popular movies
func (c *Client) GetPopular(page int) (*MovieListResponse, error) {
	return c.getMovieList(CategoryPopular, page)
}

// getMovieList fetches one page of a movie list category
// Calls TMDB /movie/{category} with the configured language and region
func (c *Client) getMovieList(category Category, page int) (*MovieListResponse, error) {
	if page < 1 {
		page = 1
	}

	c.rateLimit()

	endpoint := fmt.Sprintf("%s/movie/%s?api_key=%s&language=%s&page=%d",
		c.baseURL, category, c.apiKey, url.QueryEscape(c.language), page)
	if c.region != "" {
		endpoint += "&region=" + url.QueryEscape(c.region)
	}

	resp, err := c.httpClient.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s movies: %w", category, err)
	}
	defer resp.Body.Close()

	if err := c.checkResponse(resp); err != nil {
		return nil, err
	}

	var result MovieListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode %s movie list response: %w", category, err)
	}

	return &result, nil
}

// GetMovieDetails fetches the full record for a single movie
// Calls TMDB /movie/{id} with the configured language
func (c *Client) GetMovieDetails(movieID int) (*MovieDetails, error) {
	if movieID <= 0 {
		return nil, fmt.Errorf("invalid movie ID: %d", movieID)
	}

	c.rateLimit()

	endpoint := fmt.Sprintf("%s/movie/%d?api_key=%s&language=%s",
		c.baseURL, movieID, c.apiKey, url.QueryEscape(c.language))

	resp, err := c.httpClient.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get movie details: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkResponse(resp); err != nil {
		return nil, err
	}

	var details MovieDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, fmt.Errorf("failed to decode movie details response: %w", err)
	}

	return &details, nil
}

// GetGenres fetches the movie genre taxonomy
// Calls TMDB /genre/movie/list with the configured language
func (c *Client) GetGenres() ([]Genre, error) {
	c.rateLimit()

	endpoint := fmt.Sprintf("%s/genre/movie/list?api_key=%s&language=%s",
		c.baseURL, c.apiKey, url.QueryEscape(c.language))

	resp, err := c.httpClient.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get genres: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkResponse(resp); err != nil {
		return nil, err
	}

	var result genreListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode genre list response: %w", err)
	}

	return result.Genres, nil
}

// checkResponse checks the HTTP response for errors
func (c *Client) checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{
			StatusCode:    resp.StatusCode,
			StatusMessage: fmt.Sprintf("HTTP %d: failed to read error response", resp.StatusCode),
		}
	}

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return &APIError{
			StatusCode:    resp.StatusCode,
			StatusMessage: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	if apiErr.StatusCode == 0 {
		apiErr.StatusCode = resp.StatusCode
	}
	if apiErr.StatusMessage == "" {
		apiErr.StatusMessage = fmt.Sprintf("HTTP %d error", resp.StatusCode)
	}

	return &apiErr
}

// rateLimit ensures requests are spaced out to avoid hitting API limits
func (c *Client) rateLimit() {
	elapsed := time.Since(c.lastRequest)
	if elapsed < requestInterval {
		time.Sleep(requestInterval - elapsed)
	}
	c.lastRequest = time.Now()
}
