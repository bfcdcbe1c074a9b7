package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// 验证默认值
	assert.Equal(t, ":8090", cfg.HTTP.Addr)

	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "", cfg.Redis.Password)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, "", cfg.MQTT.Broker)
	assert.Equal(t, "teleicu-middleware", cfg.MQTT.ClientID)
	assert.Equal(t, "observations", cfg.MQTT.Topic)

	assert.Equal(t, "http://localhost:9000", cfg.Care.BaseURL)
	assert.Equal(t, 5*time.Minute, cfg.Directory.CacheTTL)

	assert.Equal(t, time.Hour, cfg.Sync.Interval)
	assert.Equal(t, time.Hour, cfg.Sync.StaleAfter)
	assert.Equal(t, 10*time.Second, cfg.Sync.CallTimeout)
	assert.Equal(t, "global", cfg.Sync.Gate)

	assert.Equal(t, 10, cfg.Store.WindowSize)
	assert.Equal(t, 1000, cfg.Store.MaxDevices)
	assert.Equal(t, 10, cfg.Store.LogLimit)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	// 设置环境变量
	os.Setenv("HTTP_ADDR", ":7777")
	os.Setenv("REDIS_ENABLED", "true")
	os.Setenv("REDIS_ADDR", "redis-test:6379")
	os.Setenv("CARE_API", "https://care.example.com")
	os.Setenv("SYNC_INTERVAL", "30m")
	os.Setenv("SYNC_GATE", "device")
	os.Setenv("STORE_MAX_DEVICES", "50")
	defer os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7777", cfg.HTTP.Addr)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis-test:6379", cfg.Redis.Addr)
	assert.Equal(t, "https://care.example.com", cfg.Care.BaseURL)
	assert.Equal(t, 30*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, "device", cfg.Sync.Gate)
	assert.Equal(t, 50, cfg.Store.MaxDevices)
}
