package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SCHEDULER_INTERVAL_MINUTES", "")
	t.Setenv("ENABLE_WORKERS", "")
	t.Setenv("TIMEZONE", "")

	cfg := Load()
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.SchedulerInterval)
	assert.True(t, cfg.EnableWorkers)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 8, cfg.MorningHourStart)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SCHEDULER_INTERVAL_MINUTES", "1")
	t.Setenv("LLM_PROVIDER", "DeepSeek")
	t.Setenv("TIMEZONE", "Not/AZone")
	t.Setenv("LLM_TIMEOUT_SECONDS", "-4")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, time.Minute, cfg.SchedulerInterval)
	assert.Equal(t, "deepseek", cfg.LLMProvider)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
}

func TestNormalizeOrigins(t *testing.T) {
	assert.Equal(t, "https://a.example,https://b.example", normalizeOrigins(" https://a.example , https://b.example "))
	assert.Equal(t, "*", normalizeOrigins("*"))
	assert.Contains(t, normalizeOrigins(""), "localhost")
}
