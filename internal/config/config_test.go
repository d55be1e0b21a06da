package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
auth:
  base_url: "https://auth.example.com"
  timeout: 5s

database:
  driver: "postgres"
  host: "db.example.com"
  port: 5432
  user: "relay"
  password: "secret"
  database: "relay"
  ssl_mode: "disable"

redis:
  host: "localhost"
  port: 6379
  key_prefix: "relay-test:"

feed:
  url: "wss://feed.example.com/changes"

sync:
  poll_interval: 2s

chat:
  global_conversation_id: "11111111-1111-1111-1111-111111111111"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://auth.example.com", cfg.Auth.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Auth.Timeout)
	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, "wss://feed.example.com/changes", cfg.Feed.URL)
	assert.Equal(t, 2*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", cfg.Chat.GlobalConversationId)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Same(t, cfg, GlobalConfig)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  host: "localhost"
  port: 5432
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Auth.Timeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, "relay:", cfg.Redis.KeyPrefix)
	assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, int64(51200), cfg.Feed.MaxMessageSize)
	assert.Equal(t, 27*time.Second, cfg.Feed.PingPeriod)
	assert.Equal(t, 3*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", cfg.Chat.GlobalConversationId)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestDSN(t *testing.T) {
	c := &DatabaseConfig{
		Host:     "db.example.com",
		Port:     5432,
		User:     "relay",
		Password: "secret",
		Database: "relay",
		SSLMode:  "disable",
		Charset:  "utf8mb4",
	}

	assert.Equal(t,
		"host=db.example.com user=relay password=secret dbname=relay port=5432 sslmode=disable",
		c.PostgresDSN())
	assert.Equal(t,
		"relay:secret@tcp(db.example.com:5432)/relay?charset=utf8mb4&parseTime=True&loc=Local",
		c.MySQLDSN())
}
