package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DROP_DAY_TIMEZONE", "REWARD_POINTS", "REWARD_CO2_KG", "BIN_FILL_STEP",
		"BIN_FULL_THRESHOLD", "DROP_TOLERANCE_METERS", "REWARD_RETRY_INTERVAL", "TRUST_USER_ID_HEADER",
		"DROP_MIN_TIME_SECONDS", "DROP_MAX_TIME_SECONDS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.UTC, cfg.DropDayLocation)
	assert.Equal(t, time.Minute, cfg.RewardRetryInterval)
	assert.False(t, cfg.TrustUserIDHeader)
	assert.Equal(t, DefaultPolicy(), cfg.Policy)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DROP_DAY_TIMEZONE", "Asia/Kolkata")
	t.Setenv("REWARD_POINTS", "200")
	t.Setenv("REWARD_CO2_KG", "4.8")
	t.Setenv("DROP_TOLERANCE_METERS", "75")
	t.Setenv("TRUST_USER_ID_HEADER", "true")
	t.Setenv("REWARD_RETRY_INTERVAL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "Asia/Kolkata", cfg.DropDayLocation.String())
	assert.Equal(t, 200, cfg.Policy.RewardPoints)
	assert.InDelta(t, 4.8, cfg.Policy.RewardCO2Kg, 1e-9)
	assert.InDelta(t, 75, cfg.Policy.ToleranceMeters, 1e-9)
	assert.True(t, cfg.TrustUserIDHeader)
	assert.Equal(t, 30*time.Second, cfg.RewardRetryInterval)
}

func TestLoad_BadValues(t *testing.T) {
	t.Setenv("REWARD_POINTS", "lots")
	t.Setenv("REWARD_RETRY_INTERVAL", "-5s")
	t.Setenv("DROP_DAY_TIMEZONE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 150, cfg.Policy.RewardPoints)
	assert.Equal(t, time.Minute, cfg.RewardRetryInterval)

	t.Setenv("DROP_DAY_TIMEZONE", "Mars/Olympus_Mons")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_TimeBounds(t *testing.T) {
	t.Setenv("DROP_DAY_TIMEZONE", "")
	t.Setenv("DROP_MIN_TIME_SECONDS", "600")
	t.Setenv("DROP_MAX_TIME_SECONDS", "60")

	_, err := Load()
	assert.Error(t, err)
}
