package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load(t *testing.T) {
	t.Run("Defaults apply when nothing is set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, LedgerMemory, cfg.LedgerBackend)
		assert.True(t, cfg.EventsEnabled)
		assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	})

	t.Run("Environment overrides defaults", func(t *testing.T) {
		t.Setenv("PORT", "9000")
		t.Setenv("LEDGER_BACKEND", LedgerRedis)
		t.Setenv("EVENTS_ENABLED", "false")
		t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "9000", cfg.Port)
		assert.Equal(t, LedgerRedis, cfg.LedgerBackend)
		assert.False(t, cfg.EventsEnabled)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	})
}
