package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("ENV", "")
		conf, err := NewConfig(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, "DEV", conf.Env)
		assert.Equal(t, "Klabu", conf.AppName)
		assert.True(t, conf.Debug)
		assert.Equal(t, "http://localhost:8080/api", conf.API.BaseURL)
		assert.Equal(t, 15*time.Second, conf.API.Timeout)
		assert.Equal(t, 300*time.Millisecond, conf.List.DebounceDelay)
		assert.Equal(t, 10, conf.List.PageSize)
		assert.Equal(t, "sqlite", conf.Database.Engine)
		assert.Equal(t, "klabu.db", conf.Database.DSN)
	})

	t.Run("dotenv and environment", func(t *testing.T) {
		dir := t.TempDir()
		dotEnv := "TEST_LIST_PAGESIZE=25\nTEST_API_BASEURL=https://klabu.example/api/\nTEST_DEBUG=false\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.test"), []byte(dotEnv), 0o600))
		t.Cleanup(func() {
			for _, k := range []string{"TEST_LIST_PAGESIZE", "TEST_API_BASEURL", "TEST_DEBUG"} {
				_ = os.Unsetenv(k)
			}
		})
		t.Setenv("ENV", "test")
		t.Setenv("TEST_DATABASE_ENGINE", " Postgres ")
		t.Setenv("TEST_LIST_DEBOUNCEDELAY", "150ms")
		t.Setenv("TEST_API_BASEURL", "https://api.klabu.example")

		conf, err := NewConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, "TEST", conf.Env)
		assert.False(t, conf.Debug)
		assert.Equal(t, 25, conf.List.PageSize)
		assert.Equal(t, 150*time.Millisecond, conf.List.DebounceDelay)
		assert.Equal(t, "postgres", conf.Database.Engine)
		assert.Equal(t, "https://api.klabu.example", conf.API.BaseURL, "the environment wins over the .env file")
	})

	t.Run("invalid", func(t *testing.T) {
		t.Setenv("ENV", "qa")
		t.Setenv("QA_LIST_PAGESIZE", "0")
		_, err := NewConfig(t.TempDir())
		assert.EqualError(t, err, "list.pageSize must be positive (got 0)")

		t.Setenv("QA_LIST_PAGESIZE", "10")
		t.Setenv("QA_LIST_DEBOUNCEDELAY", "-1s")
		_, err = NewConfig(t.TempDir())
		assert.EqualError(t, err, "list.debounceDelay cannot be negative (got -1s)")
	})
}
