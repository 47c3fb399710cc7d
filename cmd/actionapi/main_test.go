package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actionapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
browser:
  default_kind: firefox
  max_sessions: 3
`), 0o600))

	cfg, err := loadConfig(&CLIConfig{
		ConfigFile:  path,
		Browser:     "webkit",
		IdleTimeout: time.Minute,
		Headless:    false,
		set:         map[string]bool{"browser": true, "idle-timeout": true},
	})
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "webkit", cfg.Browser.DefaultKind)
	assert.Equal(t, 3, cfg.Browser.MaxSessions)
	assert.Equal(t, time.Minute, cfg.Browser.IdleTimeout)
	// -headless was not given, so the default stays
	assert.True(t, cfg.Browser.Headless)
}

func TestLoadConfigRejectsInvalidFlags(t *testing.T) {
	_, err := loadConfig(&CLIConfig{
		MaxSessions: -1,
		set:         map[string]bool{"max-sessions": true},
	})
	assert.ErrorContains(t, err, "invalid configuration")
}
