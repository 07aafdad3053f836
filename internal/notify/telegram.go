package notify

import (
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"premiere-night/internal/models"
	"premiere-night/internal/store"
	"premiere-night/internal/tmdb"
)

const digestWatchlistLimit = 5

// TelegramBot exposes the movie stores over Telegram: a daily digest of
// now-playing releases plus on-demand /watchlist and /nowplaying commands.
type TelegramBot struct {
	bot       *tele.Bot
	chatID    tele.ChatID
	movies    *store.MoviesStore
	watchlist *store.WatchlistStore
}

// NewTelegramBot creates the bot and registers its command handlers.
func NewTelegramBot(token string, chatID int64, movies *store.MoviesStore, watchlist *store.WatchlistStore) (*TelegramBot, error) {
	if token == "" || chatID == 0 {
		return nil, fmt.Errorf("telegram bot not configured: missing bot token or chat ID")
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:     token,
		Poller:    &tele.LongPoller{Timeout: 10 * time.Second},
		ParseMode: tele.ModeHTML,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	t := &TelegramBot{
		bot:       bot,
		chatID:    tele.ChatID(chatID),
		movies:    movies,
		watchlist: watchlist,
	}

	bot.Handle("/watchlist", func(c tele.Context) error {
		return c.Send(FormatWatchlist(t.watchlist.Items()))
	})
	bot.Handle("/nowplaying", func(c tele.Context) error {
		if err := t.movies.LoadNowPlaying(1); err != nil {
			return c.Send(fmt.Sprintf("Could not refresh now playing: %s", err))
		}
		snap := t.movies.Category(models.ListNowPlaying)
		return c.Send(FormatNowPlaying(snap.Results))
	})

	return t, nil
}

// Start begins long polling. Blocking.
func (t *TelegramBot) Start() {
	t.bot.Start()
}

// Stop stops long polling.
func (t *TelegramBot) Stop() {
	t.bot.Stop()
}

// SendDailyDigest refreshes the first page of now-playing movies and sends
// the digest message to the configured chat.
func (t *TelegramBot) SendDailyDigest() error {
	if err := t.movies.LoadNowPlaying(1); err != nil {
		return fmt.Errorf("failed to refresh now playing movies: %w", err)
	}

	snap := t.movies.Category(models.ListNowPlaying)
	digest := FormatDailyDigest(snap.Results, t.watchlist.Items())

	if _, err := t.bot.Send(t.chatID, digest); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// FormatDailyDigest formats the digest message.
// Exported for testing purposes
func FormatDailyDigest(nowPlaying []tmdb.Movie, watchlist []models.WatchlistItem) string {
	today := time.Now().Format("2006-01-02")
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("🎬 <b>Daily movie digest</b> (%s)\n\n", today))
	sb.WriteString(FormatNowPlaying(nowPlaying))

	if len(watchlist) > 0 {
		sb.WriteString("\n\n")
		limit := len(watchlist)
		if limit > digestWatchlistLimit {
			limit = digestWatchlistLimit
		}
		sb.WriteString(fmt.Sprintf("📌 <b>On your watchlist</b> (%d)\n", len(watchlist)))
		for _, item := range watchlist[:limit] {
			sb.WriteString(fmt.Sprintf("• %s\n", item.Title))
		}
	}

	return sb.String()
}

// FormatNowPlaying formats the now-playing section.
// Exported for testing purposes
func FormatNowPlaying(movies []tmdb.Movie) string {
	if len(movies) == 0 {
		return "No movies playing right now 🍿"
	}

	var sb strings.Builder
	sb.WriteString("<b>Now playing</b>\n")
	for i, movie := range movies {
		sb.WriteString(fmt.Sprintf("%d. <b>%s</b>", i+1, movie.Title))
		if movie.ReleaseDate != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", movie.ReleaseDate))
		}
		sb.WriteString(fmt.Sprintf("\n   ⭐ %.1f (%d votes)\n", movie.VoteAverage, movie.VoteCount))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatWatchlist formats the full watchlist, most recently added first.
// Exported for testing purposes
func FormatWatchlist(items []models.WatchlistItem) string {
	if len(items) == 0 {
		return "Your watchlist is empty 🎞"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📌 <b>Your watchlist</b> (%d)\n\n", len(items)))
	for i, item := range items {
		added := time.UnixMilli(item.AddedAt).Format("2006-01-02")
		sb.WriteString(fmt.Sprintf("%d. <b>%s</b>\n   added %s\n", i+1, item.Title, added))
	}
	return strings.TrimRight(sb.String(), "\n")
}
