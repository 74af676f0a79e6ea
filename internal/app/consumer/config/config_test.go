package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load(t *testing.T) {
	t.Setenv("KAFKA_GROUP", "audit")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("RETRY_BACKOFF", "250ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "audit", cfg.KafkaGroup)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "distribution_events", cfg.KafkaTopic)
	assert.Equal(t, ":9091", cfg.MetricsAddr)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryBackoff)
}
