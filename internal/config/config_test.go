package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, "Technical", cfg.StaffRoleTag)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.True(t, cfg.Reconnect.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Reconnect.MaxInterval)
	assert.Equal(t, 60, cfg.Relay.UpgradeLimit)
	assert.False(t, cfg.IsProduction())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("QUERYNEST_API_URL", "https://api.example.com/")
	t.Setenv("QUERYNEST_STAFF_ROLE_TAG", "Billing")
	t.Setenv("QUERYNEST_RECONNECT_ENABLED", "false")
	t.Setenv("QUERYNEST_RELAY_PORT", "9000")

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.APIURL)
	assert.Equal(t, "Billing", cfg.StaffRoleTag)
	assert.False(t, cfg.Reconnect.Enabled)
	assert.Equal(t, "9000", cfg.Relay.Port)
}

func TestLoadRejectsBlankRoleTag(t *testing.T) {
	t.Setenv("QUERYNEST_STAFF_ROLE_TAG", "  ")

	_, err := Load(New())
	assert.ErrorContains(t, err, "staff_role_tag")
}

func TestReadFile(t *testing.T) {
	t.Run("missing optional file", func(t *testing.T) {
		v := New()
		assert.NoError(t, ReadFile(v, filepath.Join(t.TempDir(), "nope.yaml"), true))
	})

	t.Run("yaml values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "querynest.yaml")
		body := "staff_role_tag: Payments\nreconnect:\n  max_interval: 10s\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

		v := New()
		require.NoError(t, ReadFile(v, path, false))
		cfg, err := Load(v)
		require.NoError(t, err)
		assert.Equal(t, "Payments", cfg.StaffRoleTag)
		assert.Equal(t, 10*time.Second, cfg.Reconnect.MaxInterval)
	})
}
