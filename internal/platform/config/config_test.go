package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("EXAMGUARD_ADDR", "")
	t.Setenv("RECENT_WINDOW", "")
	t.Setenv("MEDIA_API_SECRET", "")
	t.Setenv("STAFF_API_TOKEN", "")

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, DefaultRecentWindow, cfg.Integrity.RecentWindow)
	assert.Equal(t, DefaultRecentLimit, cfg.Integrity.RecentLimit)
	assert.Equal(t, "examguard.integrity.events", cfg.Kafka.Topic)
	assert.NotEmpty(t, cfg.Media.APISecret)
	assert.Empty(t, cfg.Media.StaffToken)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("EXAMGUARD_ADDR", ":9090")
	t.Setenv("RECENT_WINDOW", "30m")
	t.Setenv("RECENT_LIMIT", "50")
	t.Setenv("MEDIA_TOKEN_TTL", "15m")
	t.Setenv("DATABASE_URL", "postgres://localhost/examguard")
	t.Setenv("STAFF_API_TOKEN", "staff-secret")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Integrity.RecentWindow)
	assert.Equal(t, 50, cfg.Integrity.RecentLimit)
	assert.Equal(t, 15*time.Minute, cfg.Media.TokenTTL)
	assert.Equal(t, "postgres://localhost/examguard", cfg.Database.URL)
	assert.Equal(t, "staff-secret", cfg.Media.StaffToken)
}

func TestFromEnv_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("RECENT_WINDOW", "soon")
	t.Setenv("RECENT_LIMIT", "-3")

	cfg := FromEnv()

	assert.Equal(t, DefaultRecentWindow, cfg.Integrity.RecentWindow)
	assert.Equal(t, DefaultRecentLimit, cfg.Integrity.RecentLimit)
}
