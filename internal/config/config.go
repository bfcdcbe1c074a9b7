package config

import (
	"os"
	"strconv"
	"time"
)

// Config 中间件服务配置
type Config struct {
	HTTP struct {
		Addr string
	}

	Redis struct {
		Enabled  bool
		Addr     string
		Password string
		DB       int
	}

	// MQTT 接入配置（可选：Broker 为空时不启动 MQTT 消费者）
	MQTT struct {
		Broker   string
		ClientID string
		Username string
		Password string
		Topic    string
		QoS      byte
	}

	// Care 上游临床系统配置
	Care struct {
		BaseURL string
	}

	// 设备目录服务配置（device -> asset -> patient 解析）
	Directory struct {
		BaseURL  string
		CacheTTL time.Duration
		JWTKey   string
		TokenTTL time.Duration
	}

	// 上游同步配置
	Sync struct {
		Interval    time.Duration // 同步节流间隔
		StaleAfter  time.Duration // 超过该时长未更新的设备跳过
		CallTimeout time.Duration // 每次外部调用的超时
		Gate        string        // "global" 或 "device"
	}

	Store struct {
		WindowSize int // 每个观测类型保留的最近条数
		MaxDevices int // 设备数上限（0 = 不限制）
		LogLimit   int // 诊断日志保留条数
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8090")

	cfg.Redis.Enabled = getEnvBool("REDIS_ENABLED", false)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "teleicu-middleware")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "observations")
	cfg.MQTT.QoS = 1

	cfg.Care.BaseURL = getEnv("CARE_API", "http://localhost:9000")

	cfg.Directory.BaseURL = getEnv("DIRECTORY_API", "http://localhost:9000")
	cfg.Directory.CacheTTL = getEnvDuration("DIRECTORY_CACHE_TTL", 5*time.Minute)
	cfg.Directory.JWTKey = getEnv("JWT_KEY", "insecure-dev-key")
	cfg.Directory.TokenTTL = getEnvDuration("JWT_TOKEN_TTL", 5*time.Minute)

	cfg.Sync.Interval = getEnvDuration("SYNC_INTERVAL", time.Hour)
	cfg.Sync.StaleAfter = getEnvDuration("SYNC_STALE_AFTER", time.Hour)
	cfg.Sync.CallTimeout = getEnvDuration("SYNC_CALL_TIMEOUT", 10*time.Second)
	cfg.Sync.Gate = getEnv("SYNC_GATE", "global")

	cfg.Store.WindowSize = getEnvInt("STORE_WINDOW_SIZE", 10)
	cfg.Store.MaxDevices = getEnvInt("STORE_MAX_DEVICES", 1000)
	cfg.Store.LogLimit = getEnvInt("STORE_LOG_LIMIT", 10)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
