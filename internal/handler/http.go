package handler

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"premiere-night/internal/models"
	"premiere-night/internal/service"
	"premiere-night/internal/store"
	"premiere-night/internal/tmdb"
)

// HTTPHandler exposes the movie and watchlist state containers over HTTP.
// Screens dispatch operations through these routes and read the resulting
// snapshots back.
type HTTPHandler struct {
	movies    *store.MoviesStore
	watchlist *store.WatchlistStore
	backupSvc *service.BackupService
	apiToken  string
}

// NewHTTPHandler creates a new HTTPHandler
func NewHTTPHandler(
	movies *store.MoviesStore,
	watchlist *store.WatchlistStore,
	backupSvc *service.BackupService,
	apiToken string,
) *HTTPHandler {
	return &HTTPHandler{
		movies:    movies,
		watchlist: watchlist,
		backupSvc: backupSvc,
		apiToken:  strings.TrimSpace(apiToken),
	}
}

// RegisterRoutes registers all HTTP routes
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	// Health check must allow unauthenticated ping for probes
	r.GET("/api/health", h.Health)

	api := r.Group("/api")
	api.Use(h.authMiddleware)

	// Movie lists
	api.GET("/movies/now-playing", h.GetNowPlaying)
	api.GET("/movies/popular", h.GetPopular)
	api.POST("/movies/:category/reset", h.ResetCategory)
	api.POST("/movies/error/clear", h.ClearMoviesError)

	// Movie details
	api.GET("/movies/:id", h.GetMovieDetails)

	// Genres
	api.GET("/genres", h.GetGenres)

	// Watchlist
	api.GET("/watchlist", h.GetWatchlist)
	api.POST("/watchlist", h.AddToWatchlist)
	api.DELETE("/watchlist/:id", h.RemoveFromWatchlist)
	api.DELETE("/watchlist", h.ClearWatchlist)
	api.POST("/watchlist/error/clear", h.ClearWatchlistError)

	// Backups
	api.POST("/backup", h.Backup)
}

// GetNowPlaying loads a page of now-playing movies and returns the
// accumulated category snapshot
// GET /api/movies/now-playing?page=N
func (h *HTTPHandler) GetNowPlaying(c *gin.Context) {
	h.getCategory(c, models.ListNowPlaying)
}

// GetPopular loads a page of popular movies and returns the accumulated
// category snapshot
// GET /api/movies/popular?page=N
func (h *HTTPHandler) GetPopular(c *gin.Context) {
	h.getCategory(c, models.ListPopular)
}

func (h *HTTPHandler) getCategory(c *gin.Context, category models.ListCategory) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}

	if category == models.ListNowPlaying {
		err = h.movies.LoadNowPlaying(page)
	} else {
		err = h.movies.LoadPopular(page)
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": h.movies.Err()})
		return
	}

	c.JSON(http.StatusOK, h.movies.Category(category))
}

// ResetCategory clears a category list back to its initial state,
// used before a pull-to-refresh reload
// POST /api/movies/:category/reset
func (h *HTTPHandler) ResetCategory(c *gin.Context) {
	category, ok := parseCategory(c.Param("category"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
		return
	}

	h.movies.ResetCategory(category)
	c.JSON(http.StatusOK, h.movies.Category(category))
}

// GetMovieDetails fetches and returns the full record for one movie
// GET /api/movies/:id
func (h *HTTPHandler) GetMovieDetails(c *gin.Context) {
	movieID, err := strconv.Atoi(c.Param("id"))
	if err != nil || movieID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid movie id"})
		return
	}

	if err := h.movies.LoadDetails(movieID); err != nil {
		status := http.StatusBadGateway
		if apiErr, ok := err.(*tmdb.APIError); ok && apiErr.StatusCode == http.StatusNotFound {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": h.movies.Err()})
		return
	}

	details, _ := h.movies.Details(movieID)
	c.JSON(http.StatusOK, details)
}

// GetGenres refreshes and returns the genre taxonomy
// GET /api/genres
func (h *HTTPHandler) GetGenres(c *gin.Context) {
	if err := h.movies.LoadGenres(); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": h.movies.Err()})
		return
	}

	genres := h.movies.Genres()
	if genres == nil {
		genres = []tmdb.Genre{}
	}
	c.JSON(http.StatusOK, gin.H{"genres": genres})
}

// ClearMoviesError clears the movies container error
// POST /api/movies/error/clear
func (h *HTTPHandler) ClearMoviesError(c *gin.Context) {
	h.movies.ClearError()
	c.JSON(http.StatusOK, gin.H{"message": "error cleared"})
}

// GetWatchlist returns the saved movies, most recently added first
// GET /api/watchlist
func (h *HTTPHandler) GetWatchlist(c *gin.Context) {
	items := h.watchlist.Items()
	if items == nil {
		items = []models.WatchlistItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// AddToWatchlist saves a movie to the watchlist
// POST /api/watchlist
func (h *HTTPHandler) AddToWatchlist(c *gin.Context) {
	var movie tmdb.Movie
	if err := c.ShouldBindJSON(&movie); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if movie.ID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "movie id is required"})
		return
	}

	if h.watchlist.Contains(movie.ID) {
		c.JSON(http.StatusConflict, gin.H{"error": "already on watchlist"})
		return
	}

	h.watchlist.Add(movie)
	c.JSON(http.StatusCreated, gin.H{"items": h.watchlist.Items()})
}

// RemoveFromWatchlist removes a movie by id. Removing an absent id is
// not an error
// DELETE /api/watchlist/:id
func (h *HTTPHandler) RemoveFromWatchlist(c *gin.Context) {
	movieID, err := strconv.Atoi(c.Param("id"))
	if err != nil || movieID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid movie id"})
		return
	}

	h.watchlist.Remove(movieID)
	c.JSON(http.StatusOK, gin.H{"items": h.watchlist.Items()})
}

// ClearWatchlist empties the watchlist
// DELETE /api/watchlist
func (h *HTTPHandler) ClearWatchlist(c *gin.Context) {
	h.watchlist.Clear()
	c.JSON(http.StatusOK, gin.H{"message": "watchlist cleared"})
}

// ClearWatchlistError clears the watchlist container error
// POST /api/watchlist/error/clear
func (h *HTTPHandler) ClearWatchlistError(c *gin.Context) {
	h.watchlist.ClearError()
	c.JSON(http.StatusOK, gin.H{"message": "error cleared"})
}

// Backup creates a database backup on demand
// POST /api/backup
func (h *HTTPHandler) Backup(c *gin.Context) {
	backupPath, err := h.backupSvc.Backup()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"backup_path": backupPath})
}

// Health returns health status
func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// authMiddleware enforces Bearer token authentication against the configured API token.
func (h *HTTPHandler) authMiddleware(c *gin.Context) {
	if h.apiToken == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "WEB_API_TOKEN not set"})
		c.Abort()
		return
	}

	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
		c.Abort()
		return
	}

	if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(h.apiToken)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		c.Abort()
		return
	}

	c.Next()
}

func parseCategory(raw string) (models.ListCategory, bool) {
	switch raw {
	case "now-playing", "nowPlaying":
		return models.ListNowPlaying, true
	case "popular":
		return models.ListPopular, true
	default:
		return "", false
	}
}
