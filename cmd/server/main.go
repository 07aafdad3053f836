package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"

	"premiere-night/internal/handler"
	"premiere-night/internal/notify"
	"premiere-night/internal/repository"
	"premiere-night/internal/service"
	"premiere-night/internal/store"
	"premiere-night/internal/tmdb"
)

// Config holds the application configuration
type Config struct {
	TMDBAPIKey       string
	TMDBLanguage     string
	TMDBRegion       string
	TelegramBotToken string
	TelegramChatID   int64
	DBPath           string
	BackupDir        string
	APIToken         string
	ListenAddr       string
	DigestTime       string // Format: "HH:MM"
}

func main() {
	// Parse CLI flags
	digestMode := flag.Bool("digest", false, "Send daily digest and exit")
	flag.Parse()

	// Load configuration
	config := loadConfig()

	// Initialize database
	db, err := repository.NewSQLiteDB(config.DBPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		log.Fatalf("Failed to initialize database schema: %v", err)
	}

	// Initialize repositories and the TMDB client
	kvRepo := repository.NewKVRepository(db)
	tmdbClient := tmdb.NewClient(config.TMDBAPIKey)
	tmdbClient.SetLanguage(config.TMDBLanguage)
	tmdbClient.SetRegion(config.TMDBRegion)

	// Initialize state containers
	moviesStore := store.NewMoviesStore(tmdbClient)
	watchlistStore := store.NewWatchlistStore(kvRepo)

	// Restore the persisted watchlist
	if err := watchlistStore.Load(); err != nil {
		log.Printf("Warning: failed to restore watchlist: %v", err)
	} else {
		log.Printf("Watchlist restored: %d saved movies", watchlistStore.Len())
	}

	backupSvc := service.NewBackupService(config.DBPath, config.BackupDir)

	// Initialize Telegram bot (optional)
	var bot *notify.TelegramBot
	if config.TelegramBotToken != "" && config.TelegramChatID != 0 {
		bot, err = notify.NewTelegramBot(config.TelegramBotToken, config.TelegramChatID, moviesStore, watchlistStore)
		if err != nil {
			log.Fatalf("Failed to create Telegram bot: %v", err)
		}
	} else {
		log.Println("Telegram bot not configured, digest disabled")
	}

	// CLI mode: send the daily digest and exit
	if *digestMode {
		if bot == nil {
			log.Fatal("Telegram bot not configured. Set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID environment variables.")
		}
		log.Println("Sending daily digest...")
		if err := bot.SendDailyDigest(); err != nil {
			log.Fatalf("Failed to send daily digest: %v", err)
		}
		fmt.Println("Daily digest sent successfully!")
		return
	}

	// Initialize scheduler
	var digestSender service.DigestSender
	if bot != nil {
		digestSender = bot
	}
	scheduler := service.NewScheduler(digestSender, backupSvc, config.DigestTime)
	scheduler.Start()

	// Initialize HTTP API
	r := gin.Default()
	httpHandler := handler.NewHTTPHandler(moviesStore, watchlistStore, backupSvc, config.APIToken)
	httpHandler.RegisterRoutes(r)

	go func() {
		log.Printf("HTTP API listening on %s", config.ListenAddr)
		if err := r.Run(config.ListenAddr); err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	if bot != nil {
		go bot.Start()
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	scheduler.Stop()
	if bot != nil {
		bot.Stop()
	}
	// Let in-flight watchlist writes reach the database before closing it
	watchlistStore.Flush()
}

// loadConfig loads configuration from environment variables
func loadConfig() *Config {
	chatID, _ := strconv.ParseInt(getEnv("TELEGRAM_CHAT_ID", "0"), 10, 64)

	config := &Config{
		TMDBAPIKey:       getEnv("TMDB_API_KEY", ""),
		TMDBLanguage:     getEnv("TMDB_LANGUAGE", "en-US"),
		TMDBRegion:       getEnv("TMDB_REGION", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   chatID,
		DBPath:           getEnv("DB_PATH", "premiere_night.db"),
		BackupDir:        getEnv("BACKUP_DIR", "backups"),
		APIToken:         getEnv("WEB_API_TOKEN", ""),
		ListenAddr:       getEnv("LISTEN_ADDR", ":8080"),
		DigestTime:       getEnv("DIGEST_TIME", "08:00"),
	}

	// Validate required configuration
	if config.TMDBAPIKey == "" {
		log.Println("Warning: TMDB_API_KEY not set. TMDB API calls will fail.")
	}
	if config.APIToken == "" {
		log.Println("Warning: WEB_API_TOKEN not set. API requests will be rejected.")
	}

	return config
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
