package conn

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Sammk21/medusa-admin/infra/logger"
	_ "github.com/lib/pq"
	"github.com/sethvargo/go-retry"
)

type DB struct {
	*sql.DB
}

// ConnectDatabase opens a postgres connection pool and waits until the server answers.
// Up to five attempts are made with exponential backoff.
func ConnectDatabase(ctx context.Context, databaseURL string) (*DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is empty")
	}

	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB connection: %w", err)
	}

	database.SetMaxOpenConns(25)
	database.SetMaxIdleConns(5)
	database.SetConnMaxLifetime(5 * time.Minute)
	database.SetConnMaxIdleTime(2 * time.Minute)

	backoff := retry.WithMaxRetries(4, retry.NewExponential(500*time.Millisecond))
	attempt := 0

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := database.PingContext(pingCtx); err != nil {
			logger.Warn("Failed to ping DB", logger.LogContext{
				Fields: map[string]any{
					"attempt": attempt,
					"error":   err.Error(),
				},
			})
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to connect to DB after %d attempts: %w", attempt, err)
	}

	logger.Info("DB connected successfully")
	return &DB{DB: database}, nil
}

// CloseDatabase closes the connection pool
func (db *DB) CloseDatabase() {
	if err := db.DB.Close(); err != nil {
		logger.Warn("Failed to close connection from the database", logger.LogContext{
			Fields: map[string]any{"error": err.Error()},
		})
		return
	}
	logger.Info("DB connection closed")
}
