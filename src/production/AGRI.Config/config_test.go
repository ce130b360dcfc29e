package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9010", cfg.Server.Port)
	assert.Equal(t, "agri", cfg.Mongo.Database)
	assert.Equal(t, 500, cfg.Coordinator.HistoryCap)
	assert.Equal(t, 5, cfg.Coordinator.HistoryFlushEvery)
	assert.Equal(t, 15*time.Second, cfg.Coordinator.StaleThreshold)
	assert.Equal(t, 50, cfg.Coordinator.SubscriberLimit)
	assert.Equal(t, "agri", cfg.MQTT.TopicPrefix)
}

func TestLoadHonorsEnvironment(t *testing.T) {
	t.Setenv("PORT", "8090")
	t.Setenv("BROKER_HOST", "broker.internal")
	t.Setenv("BROKER_PORT", "8883")
	t.Setenv("BROKER_TLS", "true")
	t.Setenv("HISTORY_CAP", "200")
	t.Setenv("DEVICE_STALE_THRESHOLD", "45s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8090", cfg.Server.Port)
	assert.Equal(t, 200, cfg.Coordinator.HistoryCap)
	assert.Equal(t, 45*time.Second, cfg.Coordinator.StaleThreshold)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "tcps://broker.internal:8883", cfg.GetMQTTBrokerURL())
}

func TestValidate(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Mongo.URI = ""
	assert.Error(t, cfg.Validate())

	cfg, _ = Load()
	cfg.Coordinator.HistoryCap = 0
	assert.Error(t, cfg.Validate())

	cfg, _ = Load()
	cfg.Coordinator.StaleThreshold = 2 * time.Second
	cfg.Coordinator.MonitorInterval = 5 * time.Second
	assert.Error(t, cfg.Validate(), "staleness threshold below the monitor tick can never trip")
}
