// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS trade_log (
			trade_id UUID PRIMARY KEY,
			basket VARCHAR(128) NOT NULL,
			send_asset VARCHAR(64) NOT NULL,
			receive_asset VARCHAR(64) NOT NULL,
			exchange_name VARCHAR(64) NOT NULL,
			executor VARCHAR(128) NOT NULL,
			net_send_amount NUMERIC(78, 0) NOT NULL,
			net_receive_amount NUMERIC(78, 0) NOT NULL,
			protocol_fee NUMERIC(78, 0) NOT NULL,
			trade_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_trade_log_basket ON trade_log(basket, trade_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_trade_log_timestamp ON trade_log(trade_timestamp DESC);

		CREATE TABLE IF NOT EXISTS rebalance_log (
			event_id UUID PRIMARY KEY,
			basket VARCHAR(128) NOT NULL,
			kind VARCHAR(32) NOT NULL,
			components JSONB NOT NULL,
			position_multiplier NUMERIC(60, 18) NOT NULL,
			event_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_rebalance_log_basket ON rebalance_log(basket, event_timestamp DESC);

		CREATE TABLE IF NOT EXISTS target_updates (
			update_id SERIAL PRIMARY KEY,
			basket VARCHAR(128) NOT NULL,
			asset VARCHAR(64) NOT NULL,
			target_unit NUMERIC(60, 18) NOT NULL,
			update_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_target_updates_basket ON target_updates(basket, update_timestamp DESC);
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
