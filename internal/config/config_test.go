package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	unsetenv(t, "PORT", "STORE_DRIVER", "SQLITE_PATH", "CURSOR_SECRET", "AUDIT_INTERVAL")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, DriverSQLite, c.StoreDriver)
	assert.Equal(t, "data/mediadiary.db", c.SQLitePath)
	assert.Equal(t, 10*time.Minute, c.AuditInterval)
	assert.Len(t, c.CursorKey, 32)
	assert.True(t, c.GeneratedCursorKey)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/diary")
	t.Setenv("CURSOR_SECRET", "s3cret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("AUDIT_INTERVAL", "0")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, c.StoreDriver)
	assert.Equal(t, []byte("s3cret"), c.CursorKey)
	assert.False(t, c.GeneratedCursorKey)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSAllowedOrigins)
	assert.Zero(t, c.AuditInterval)
}

func TestValidate(t *testing.T) {
	assert.Error(t, Config{StoreDriver: "mongo"}.Validate())
	assert.Error(t, Config{StoreDriver: DriverPostgres}.Validate())
	assert.Error(t, Config{StoreDriver: DriverSQLite}.Validate())
	assert.NoError(t, Config{StoreDriver: DriverMemory}.Validate())
	assert.Error(t, Config{StoreDriver: DriverMemory, AuditInterval: -time.Second}.Validate())
}

// unsetenv clears keys for the test and restores them afterwards.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}
