package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"6920Z"}, cfg.Pappers.NAFCodes)
	assert.Contains(t, cfg.Pappers.Departments, "75")
	assert.Contains(t, cfg.Pappers.Departments, "95")
	assert.InDelta(t, 3_000_000.0, cfg.Pappers.MinRevenueEUR, 0.01)
	assert.InDelta(t, 50_000_000.0, cfg.Pappers.MaxRevenueEUR, 0.01)
	assert.Equal(t, 4, cfg.Infogreffe.MaxConcurrency)
	assert.Equal(t, 50000, cfg.Import.MaxRows)
	assert.Empty(t, cfg.Pappers.Key)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PROSPECT_STORE_DRIVER", "postgres")
	t.Setenv("PROSPECT_SERVER_PORT", "9090")
	t.Setenv("PROSPECT_SOCIETE_NAF_CODE", "6201Z")
	t.Setenv("PROSPECT_PAPPERS_KEY", "secret-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "6201Z", cfg.Societe.NAFCode)
	assert.Equal(t, "secret-key", cfg.Pappers.Key)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	require.Error(t, InitLogger(LogConfig{Level: "verbose"}))
}
