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
	path := filepath.Join(t.TempDir(), "actionapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())

	assert.Equal(t, ":8000", config.Server.Addr)
	assert.Equal(t, "chromium", config.Browser.DefaultKind)
	assert.True(t, config.Browser.Headless)
	assert.Equal(t, 30*time.Second, config.Browser.ActionTimeout)
	assert.Zero(t, config.Browser.IdleTimeout)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "127.0.0.1:9000"
  max_connections: 64
  read_timeout: 10s
browser:
  default_kind: Firefox
  headless: false
  max_sessions: 4
  idle_timeout: 15m
  allowed_urls:
    - "https://*.example.com/*"
logging:
  level: debug
`)

	config, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, "127.0.0.1:9000", config.Server.Addr)
	assert.Equal(t, 64, config.Server.MaxConnections)
	assert.Equal(t, 10*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, 2*time.Minute, config.Server.WriteTimeout, "unset fields keep defaults")
	assert.Equal(t, "firefox", config.Browser.DefaultKind)
	assert.False(t, config.Browser.Headless)
	assert.Equal(t, 4, config.Browser.MaxSessions)
	assert.Equal(t, 15*time.Minute, config.Browser.IdleTimeout)
	assert.Equal(t, []string{"https://*.example.com/*"}, config.Browser.AllowedURLs)
	assert.Equal(t, "debug", config.Logging.Level)

	policy, err := config.NavigationPolicy()
	require.NoError(t, err)
	require.NotNil(t, policy)
	assert.True(t, policy.IsAllowed("https://www.example.com/"))
	assert.False(t, policy.IsAllowed("https://example.org/"))
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	path := writeConfig(t, "server: [unclosed")
	_, err = Load(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "empty addr", mutate: func(c *Config) { c.Server.Addr = " " }, wantErr: "server address is required"},
		{name: "negative connections", mutate: func(c *Config) { c.Server.MaxConnections = -1 }, wantErr: "max_connections"},
		{name: "negative timeout", mutate: func(c *Config) { c.Server.WriteTimeout = -time.Second }, wantErr: "timeouts"},
		{name: "unknown browser", mutate: func(c *Config) { c.Browser.DefaultKind = "opera" }, wantErr: "default_kind"},
		{name: "negative sessions", mutate: func(c *Config) { c.Browser.MaxSessions = -2 }, wantErr: "max_sessions"},
		{name: "negative idle", mutate: func(c *Config) { c.Browser.IdleTimeout = -time.Minute }, wantErr: "idle_timeout"},
		{name: "negative action timeout", mutate: func(c *Config) { c.Browser.ActionTimeout = -1 }, wantErr: "action_timeout"},
		{name: "bad url pattern", mutate: func(c *Config) { c.Browser.AllowedURLs = []string{"https://[a-"} }, wantErr: "invalid allowed url pattern"},
		{name: "extra upload dirs without root", mutate: func(c *Config) { c.Browser.ExtraUploadDirs = []string{"/tmp"} }, wantErr: "requires upload_dir"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "invalid logging level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			assert.ErrorContains(t, config.Validate(), tt.wantErr)
		})
	}
}

func TestValidateFillsEmptyLevel(t *testing.T) {
	config := DefaultConfig()
	config.Logging.Level = ""
	require.NoError(t, config.Validate())
	assert.Equal(t, "info", config.Logging.Level)
}

func TestNavigationPolicyUnset(t *testing.T) {
	policy, err := DefaultConfig().NavigationPolicy()
	require.NoError(t, err)
	assert.Nil(t, policy)
}

func TestUploadGuard(t *testing.T) {
	config := DefaultConfig()
	guard, err := config.UploadGuard()
	require.NoError(t, err)
	assert.Nil(t, guard)

	root := t.TempDir()
	extra := t.TempDir()
	config.Browser.UploadDir = root
	config.Browser.ExtraUploadDirs = []string{extra}
	require.NoError(t, config.Validate())

	guard, err = config.UploadGuard()
	require.NoError(t, err)
	require.NotNil(t, guard)
	assert.Len(t, guard.GetWhitelist(), 1)

	_, err = guard.Resolve(filepath.Join(extra, "a.png"))
	assert.NoError(t, err)

	config.Browser.UploadDir = filepath.Join(root, "missing")
	_, err = config.UploadGuard()
	assert.ErrorContains(t, err, "invalid upload_dir")
}
