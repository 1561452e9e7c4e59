package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("BRANDHUB_AUTH_ACCESS_TTL", "")
	t.Setenv("BRANDHUB_AUTH_REFRESH_TTL_DAYS", "")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 14, cfg.RefreshTTLDays)
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("BRANDHUB_AUTH_ACCESS_TTL", "5m")
	t.Setenv("BRANDHUB_AUTH_REFRESH_TTL_DAYS", "30")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 30, cfg.RefreshTTLDays)
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	for _, kv := range [][2]string{
		{"BRANDHUB_AUTH_ACCESS_TTL", "soon"},
		{"BRANDHUB_AUTH_ACCESS_TTL", "-1m"},
		{"BRANDHUB_AUTH_REFRESH_TTL_DAYS", "0"},
		{"BRANDHUB_AUTH_REFRESH_TTL_DAYS", "x"},
	} {
		t.Run(kv[0]+"="+kv[1], func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := LoadConfigFromEnv()
			require.ErrorIs(t, err, ErrConfig)
		})
	}
}
