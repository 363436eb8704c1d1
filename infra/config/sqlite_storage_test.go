package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "data", "providers.db")
	storage, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	return storage
}

func TestNewSQLiteStorage(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "providers.db")

	storage, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NotNil(t, storage)
	defer storage.Close()

	assert.Equal(t, dbPath, storage.path)
	assert.NotNil(t, storage.db)
	assert.NoError(t, storage.Ping())

	// Test that database file was created
	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestSQLiteStorage_SaveAndLoadProviderConfig(t *testing.T) {
	storage := newTestStorage(t)

	sandbox := map[string]string{
		"keyId":         "rzp_test_abc",
		"keySecret":     "secret",
		"webhookSecret": "whsec",
	}
	production := map[string]string{
		"keyId":         "rzp_live_abc",
		"keySecret":     "live-secret",
		"webhookSecret": "live-whsec",
	}

	require.NoError(t, storage.SaveProviderConfig("razorpay", "sandbox", sandbox))
	require.NoError(t, storage.SaveProviderConfig("razorpay", "production", production))

	loaded, err := storage.LoadProviderConfig("razorpay", "sandbox")
	require.NoError(t, err)
	assert.Equal(t, sandbox, loaded)

	loaded, err = storage.LoadProviderConfig("razorpay", "production")
	require.NoError(t, err)
	assert.Equal(t, production, loaded)

	// Upsert replaces the stored config
	rotated := map[string]string{"keyId": "rzp_test_new", "keySecret": "rotated", "webhookSecret": "whsec"}
	require.NoError(t, storage.SaveProviderConfig("razorpay", "sandbox", rotated))

	loaded, err = storage.LoadProviderConfig("razorpay", "sandbox")
	require.NoError(t, err)
	assert.Equal(t, rotated, loaded)
}

func TestSQLiteStorage_LoadProviderConfig_NotFound(t *testing.T) {
	storage := newTestStorage(t)

	_, err := storage.LoadProviderConfig("razorpay", "sandbox")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfigNotFound))
}

func TestSQLiteStorage_LoadAllProviderConfigs(t *testing.T) {
	storage := newTestStorage(t)

	require.NoError(t, storage.SaveProviderConfig("razorpay", "sandbox", map[string]string{"keyId": "a"}))
	require.NoError(t, storage.SaveProviderConfig("razorpay", "production", map[string]string{"keyId": "b"}))

	configs, err := storage.LoadAllProviderConfigs()
	require.NoError(t, err)
	assert.Len(t, configs, 2)
	assert.Equal(t, "a", configs["razorpay_sandbox"]["keyId"])
	assert.Equal(t, "b", configs["razorpay_production"]["keyId"])
}

func TestSQLiteStorage_DeleteProviderConfig(t *testing.T) {
	storage := newTestStorage(t)

	require.NoError(t, storage.SaveProviderConfig("razorpay", "sandbox", map[string]string{"keyId": "a"}))
	require.NoError(t, storage.DeleteProviderConfig("razorpay", "sandbox"))

	_, err := storage.LoadProviderConfig("razorpay", "sandbox")
	assert.ErrorIs(t, err, ErrConfigNotFound)

	err = storage.DeleteProviderConfig("razorpay", "sandbox")
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestSQLiteStorage_GetEnvironmentsByProvider(t *testing.T) {
	storage := newTestStorage(t)

	require.NoError(t, storage.SaveProviderConfig("razorpay", "sandbox", map[string]string{"keyId": "a"}))
	require.NoError(t, storage.SaveProviderConfig("razorpay", "production", map[string]string{"keyId": "b"}))
	require.NoError(t, storage.SaveProviderConfig("other", "sandbox", map[string]string{"keyId": "c"}))

	envs, err := storage.GetEnvironmentsByProvider("razorpay")
	require.NoError(t, err)
	assert.Equal(t, []string{"production", "sandbox"}, envs)

	envs, err = storage.GetEnvironmentsByProvider("missing")
	require.NoError(t, err)
	assert.Empty(t, envs)
}

func TestSQLiteStorage_GetStats(t *testing.T) {
	storage := newTestStorage(t)

	require.NoError(t, storage.SaveProviderConfig("razorpay", "sandbox", map[string]string{"keyId": "a"}))
	require.NoError(t, storage.SaveProviderConfig("razorpay", "production", map[string]string{"keyId": "b"}))

	stats, err := storage.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats["total_configs"])
	assert.Equal(t, 1, stats["unique_providers"])
	assert.Equal(t, storage.path, stats["db_path"])
}

func TestSQLiteStorage_ConcurrentAccess(t *testing.T) {
	storage := newTestStorage(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			err := storage.SaveProviderConfig("razorpay", fmt.Sprintf("env%d", id), map[string]string{"keyId": "a"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	configs, err := storage.LoadAllProviderConfigs()
	require.NoError(t, err)
	assert.Len(t, configs, 10)
}

func TestSQLiteStorage_InvalidJSON(t *testing.T) {
	storage := newTestStorage(t)

	_, err := storage.db.Exec(`
		INSERT INTO provider_configs (provider_name, environment, config_data)
		VALUES (?, ?, ?)
	`, "invalid", "sandbox", "invalid-json")
	require.NoError(t, err)

	_, err = storage.LoadProviderConfig("invalid", "sandbox")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal config")

	// bulk load skips the bad row
	configs, err := storage.LoadAllProviderConfigs()
	require.NoError(t, err)
	_, exists := configs["invalid_sandbox"]
	assert.False(t, exists)
}
