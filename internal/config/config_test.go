package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_ENV", "nonexistent")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "release", cfg.Mode)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 40000, cfg.Media.RTCMinPort)
	require.Equal(t, 49999, cfg.Media.RTCMaxPort)
	require.Equal(t, "warn", cfg.Media.LogLevel)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadTurnEnv(t *testing.T) {
	t.Setenv("CONFIG_ENV", "nonexistent")
	t.Setenv("TURN_URIS", "turn:turn.example.com:3478?transport=udp,turn:turn.example.com:443?transport=tcp")
	t.Setenv("TURN_USERNAME", "user")
	t.Setenv("TURN_CREDENTIAL", "pass")

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Turn.URIs, 2)
	require.Equal(t, "user", cfg.Turn.Username)
	require.Equal(t, "pass", cfg.Turn.Credential)
}
