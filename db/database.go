package db

import (
	"database/sql"
	"fmt"

	"github.com/frontendlab/testbot/utils"
	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	*sql.DB
}

func InitDB(dbPath string) (*DB, error) {
	utils.LogStartup("Initializing database at: %s", dbPath)

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		utils.LogError("Failed to open database: %v", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		utils.LogError("Failed to ping database: %v", err)
		return nil, err
	}

	utils.LogStartup("Database connection established")

	if err := createTables(db); err != nil {
		utils.LogError("Failed to create tables: %v", err)
		return nil, err
	}

	utils.LogStartup("Database tables initialized successfully")
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Approved participants, keyed by their Telegram ID
		`CREATE TABLE IF NOT EXISTS users (
			telegram_id INTEGER PRIMARY KEY,
			full_name TEXT NOT NULL,
			username TEXT,
			notify BOOLEAN NOT NULL DEFAULT 1,
			approved_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Registrations waiting for admin review
		`CREATE TABLE IF NOT EXISTS pending_users (
			telegram_id INTEGER PRIMARY KEY,
			full_name TEXT NOT NULL,
			username TEXT,
			requested_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Question bank; options stored as a JSON array
		`CREATE TABLE IF NOT EXISTS questions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			topic TEXT NOT NULL CHECK (topic IN ('HTML', 'CSS', 'JS', 'GIT', 'BASH')),
			difficulty TEXT NOT NULL CHECK (difficulty IN ('easy', 'difficult')),
			text TEXT NOT NULL,
			options TEXT NOT NULL,
			correct_index INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Completed test records, append-only; answers stored as a JSON array
		`CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			topic TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			correct_count INTEGER NOT NULL,
			total_questions INTEGER NOT NULL,
			percentage INTEGER NOT NULL,
			duration_seconds INTEGER NOT NULL,
			answers TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Append-only action log for the admin console
		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			action TEXT NOT NULL,
			details TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for i, query := range queries {
		utils.LogDB("Creating table %d/%d", i+1, len(queries))
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_questions_tier ON questions(topic, difficulty)",
		"CREATE INDEX IF NOT EXISTS idx_results_user_id ON results(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_results_topic ON results(topic)",
		"CREATE INDEX IF NOT EXISTS idx_audit_log_created_at ON audit_log(created_at)",
	}

	for _, index := range indexes {
		if _, err := db.Exec(index); err != nil {
			utils.LogDB("Failed to create index (non-fatal): %v", err)
		}
	}

	return nil
}
