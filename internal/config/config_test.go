package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nexbridge/wiretransport/pkg/wiremsg"
)

func TestLoadAppliesDefaultsWithoutAConfigFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":0", cfg.ListenAddress)
	require.Equal(t, "info", cfg.LogLevel)
	require.ElementsMatch(t, []string{"Data", "ConnectionLatencyUpdated"}, cfg.EnabledKinds)
	require.Equal(t, 5*time.Second, cfg.HeartbeatInterval)
	require.Equal(t, 0, cfg.PoolMaxIdle)
	require.False(t, cfg.DebugReadOverflow)
}

func TestNewKindPolicyHonorsConfiguredKinds(t *testing.T) {
	cfg := Config{EnabledKinds: []string{"Data"}}
	policy := NewKindPolicy(cfg)

	require.True(t, policy.Enabled(wiremsg.KindData))
	require.False(t, policy.Enabled(wiremsg.KindStatusChanged))
}

func TestNewKindPolicyIgnoresUnknownNames(t *testing.T) {
	cfg := Config{EnabledKinds: []string{"NotARealKind"}}
	policy := NewKindPolicy(cfg)
	require.False(t, policy.Enabled(wiremsg.KindData))
}
