package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadFrom(env(nil), nil)
	require.NoError(t, err)

	assert.Equal(t, "5200", cfg.Port)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, 15*time.Second, cfg.ThriftAPITimeout.Std())
	assert.Equal(t, time.Minute, cfg.RankInterval.Std())
	assert.Equal(t, 50.0, cfg.DefaultRadiusM)
	assert.Equal(t, "10", cfg.ImportQuestPoints)
	assert.Zero(t, cfg.ThriftSyncInterval.Std())
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	file := []byte(`
port = "8080"
store_backend = "memory"
thrift_api_timeout = "3s"
default_radius_m = 75.5
log_level = "debug"
`)
	cfg, err := loadFrom(env(map[string]string{
		"PORT":                 "9090",
		"THRIFT_SYNC_INTERVAL": "10m",
		"R2_BUCKET_NAME":       "covers",
	}), file)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 3*time.Second, cfg.ThriftAPITimeout.Std())
	assert.Equal(t, 10*time.Minute, cfg.ThriftSyncInterval.Std())
	assert.Equal(t, 75.5, cfg.DefaultRadiusM)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "covers", cfg.R2.Bucket)
	assert.False(t, cfg.R2.Enabled())
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := loadFrom(env(map[string]string{
		"RANK_INTERVAL":    "soon",
		"DEFAULT_RADIUS_M": "wide",
	}), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RANK_INTERVAL")
	assert.Contains(t, err.Error(), "DEFAULT_RADIUS_M")

	_, err = loadFrom(env(nil), []byte(`port = [`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := loadFrom(env(nil), nil)
	require.NoError(t, err)
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "SUPABASE_URL")

	cfg, err = loadFrom(env(map[string]string{
		"STORE_BACKEND":     "Memory",
		"SUPABASE_URL":      "http://auth.local",
		"SUPABASE_ANON_KEY": "anon",
	}), nil)
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	cfg.ThriftAPIBaseURL = "http://stores.local"
	assert.Error(t, cfg.Validate(), "import needs a system user")
	cfg.SystemUserID = "6f1c3a52-8a3e-4c1b-9a55-0d8c4e2f7b10"
	assert.NoError(t, cfg.Validate())

	cfg.StoreBackend = "sqlite"
	assert.Error(t, cfg.Validate())
}

func TestOrigins(t *testing.T) {
	cfg := &Config{AllowedOrigins: " http://a.test ,, http://b.test"}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Origins())
}
