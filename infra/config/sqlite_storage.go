package config

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/sethvargo/go-retry"
)

// ErrConfigNotFound is returned when no configuration is stored for a provider and environment
var ErrConfigNotFound = errors.New("provider configuration not found")

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS provider_configs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	provider_name TEXT NOT NULL,
	environment TEXT NOT NULL,
	config_data TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(provider_name, environment)
);
`

// SQLiteStorage persists provider credentials per environment in a single SQLite file
type SQLiteStorage struct {
	db   *sql.DB
	path string

	// writes are serialized, WAL still lets readers through
	mu sync.Mutex
}

// NewSQLiteStorage opens (creating when needed) the database at dbPath
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", dbPath, err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Printf("provider config storage ready at %s", dbPath)
	return &SQLiteStorage{db: db, path: dbPath}, nil
}

// withBusyRetry runs op again while SQLite reports the database as busy or locked
func withBusyRetry(op func() error) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(10*time.Millisecond))

	return retry.Do(context.Background(), backoff, func(context.Context) error {
		err := op()
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func notFound(providerName, environment string) error {
	return fmt.Errorf("%w: provider %s, environment %s", ErrConfigNotFound, providerName, environment)
}

// SaveProviderConfig upserts the configuration of a provider in an environment
func (s *SQLiteStorage) SaveProviderConfig(providerName, environment string, config map[string]string) error {
	data, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return withBusyRetry(func() error {
		_, err := s.db.Exec(`
			INSERT INTO provider_configs (provider_name, environment, config_data)
			VALUES (?, ?, ?)
			ON CONFLICT(provider_name, environment)
			DO UPDATE SET config_data = excluded.config_data, updated_at = CURRENT_TIMESTAMP`,
			providerName, environment, string(data))
		if err != nil {
			return fmt.Errorf("failed to save provider config: %w", err)
		}
		return nil
	})
}

// LoadProviderConfig returns the stored configuration or an error wrapping ErrConfigNotFound
func (s *SQLiteStorage) LoadProviderConfig(providerName, environment string) (map[string]string, error) {
	var data string
	err := withBusyRetry(func() error {
		return s.db.QueryRow(
			`SELECT config_data FROM provider_configs WHERE provider_name = ? AND environment = ?`,
			providerName, environment,
		).Scan(&data)
	})
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, notFound(providerName, environment)
	case err != nil:
		return nil, fmt.Errorf("failed to load provider config: %w", err)
	}

	var config map[string]string
	if err := json.Unmarshal([]byte(data), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config for %s/%s: %w", providerName, environment, err)
	}
	return config, nil
}

// LoadAllProviderConfigs returns every readable configuration keyed by configKey(provider, environment).
// Rows holding malformed JSON are logged and skipped.
func (s *SQLiteStorage) LoadAllProviderConfigs() (map[string]map[string]string, error) {
	type row struct{ provider, environment, data string }

	var rowsRead []row
	err := withBusyRetry(func() error {
		rowsRead = rowsRead[:0]

		rows, err := s.db.Query(`SELECT provider_name, environment, config_data FROM provider_configs`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var r row
			if err := rows.Scan(&r.provider, &r.environment, &r.data); err != nil {
				return err
			}
			rowsRead = append(rowsRead, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query provider configs: %w", err)
	}

	configs := make(map[string]map[string]string, len(rowsRead))
	for _, r := range rowsRead {
		var config map[string]string
		if err := json.Unmarshal([]byte(r.data), &config); err != nil {
			log.Printf("skipping unreadable config for %s (%s): %v", r.provider, r.environment, err)
			continue
		}
		configs[configKey(r.provider, r.environment)] = config
	}
	return configs, nil
}

// DeleteProviderConfig removes a configuration; deleting a missing one wraps ErrConfigNotFound
func (s *SQLiteStorage) DeleteProviderConfig(providerName, environment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected int64
	err := withBusyRetry(func() error {
		res, err := s.db.Exec(
			`DELETE FROM provider_configs WHERE provider_name = ? AND environment = ?`,
			providerName, environment)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete provider config: %w", err)
	}
	if affected == 0 {
		return notFound(providerName, environment)
	}
	return nil
}

// GetEnvironmentsByProvider lists the environments configured for a provider in name order
func (s *SQLiteStorage) GetEnvironmentsByProvider(providerName string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT environment FROM provider_configs WHERE provider_name = ? ORDER BY environment`,
		providerName)
	if err != nil {
		return nil, fmt.Errorf("failed to query environments: %w", err)
	}
	defer rows.Close()

	var environments []string
	for rows.Next() {
		var env string
		if err := rows.Scan(&env); err != nil {
			return nil, fmt.Errorf("failed to scan environment: %w", err)
		}
		environments = append(environments, env)
	}
	return environments, rows.Err()
}

// Ping checks that the database file is reachable
func (s *SQLiteStorage) Ping() error {
	return s.db.Ping()
}

// Close closes the database
func (s *SQLiteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetStats reports row counts and the size of the database file
func (s *SQLiteStorage) GetStats() (map[string]any, error) {
	var total, providers int
	err := s.db.QueryRow(
		`SELECT COUNT(*), COUNT(DISTINCT provider_name) FROM provider_configs`,
	).Scan(&total, &providers)
	if err != nil {
		return nil, fmt.Errorf("failed to count provider configs: %w", err)
	}

	stats := map[string]any{
		"total_configs":    total,
		"unique_providers": providers,
		"db_path":          s.path,
	}
	if info, err := os.Stat(s.path); err == nil {
		stats["db_size_bytes"] = info.Size()
	}
	return stats, nil
}
