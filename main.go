package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/frontendlab/testbot/auth"
	"github.com/frontendlab/testbot/db"
	"github.com/frontendlab/testbot/engine"
	"github.com/frontendlab/testbot/jobs"
	"github.com/frontendlab/testbot/models"
	"github.com/frontendlab/testbot/telegram"
	"github.com/frontendlab/testbot/utils"
)

func main() {
	// Set up logging with timestamps
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	utils.LogStartup("Test bot starting...")

	if err := godotenv.Load(); err != nil {
		utils.LogStartup("No .env file found, using environment as-is")
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("[FATAL] Invalid configuration: %v", err)
	}

	utils.LogStartup("Initializing database connection...")
	database, err := db.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize database: %v", err)
	}

	adminSessions := auth.NewSessionStore(cfg.AdminPasswordHash, cfg.AdminSessionTTL)
	jobManager := jobs.NewJobManager(cfg.RedisURL)

	utils.LogStartup("Connecting to Telegram...")
	bot, err := telegram.NewBot(cfg, database, adminSessions, jobManager)
	if err != nil {
		log.Fatalf("[FATAL] Failed to start bot: %v", err)
	}

	eng := engine.New(engine.Config{
		SessionLength:      cfg.SessionLength,
		PerQuestionTimeout: time.Duration(cfg.PerQuestionSecs) * time.Second,
	}, database, database, bot)
	bot.SetEngine(eng)

	jobManager.RegisterHandlers(bot)
	go func() {
		if err := jobManager.Start(); err != nil {
			log.Fatalf("[FATAL] Job queue failed: %v", err)
		}
	}()

	// Set up graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		utils.LogShutdown("Received shutdown signal")
		bot.Stop()
		jobManager.Stop()
		if err := database.Close(); err != nil {
			utils.LogError("Error closing database: %v", err)
		} else {
			utils.LogShutdown("Database connection closed successfully")
		}
		os.Exit(0)
	}()

	utils.LogStartup("Bot ready, entering update loop")
	bot.Run()
}

func loadConfig() (models.BotConfig, error) {
	cfg := models.BotConfig{
		BotToken:        os.Getenv("BOT_TOKEN"),
		AdminID:         utils.GetEnvInt64("ADMIN_ID", 0),
		DBPath:          utils.GetEnvOrDefault("DB_PATH", "./testbot.db"),
		RedisURL:        utils.GetEnvOrDefault("REDIS_URL", "localhost:6379"),
		SessionLength:   utils.GetEnvInt("SESSION_LENGTH", 20),
		PerQuestionSecs: utils.GetEnvInt("PER_QUESTION_SECONDS", 20),
		AdminSessionTTL: time.Duration(utils.GetEnvInt("ADMIN_SESSION_TTL_MINUTES", 60)) * time.Minute,
	}

	if cfg.BotToken == "" {
		return cfg, fmt.Errorf("BOT_TOKEN is required")
	}
	if cfg.AdminID == 0 {
		return cfg, fmt.Errorf("ADMIN_ID is required")
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		return cfg, fmt.Errorf("ADMIN_PASSWORD is required")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return cfg, err
	}
	cfg.AdminPasswordHash = hash

	utils.LogStartup("Config: db=%s redis=%s session=%dx%ds",
		cfg.DBPath, cfg.RedisURL, cfg.SessionLength, cfg.PerQuestionSecs)
	return cfg, nil
}
