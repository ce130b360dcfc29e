package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server"`

	// MongoDB configuration
	Mongo MongoConfig `json:"mongo"`

	// MQTT configuration
	MQTT MQTTConfig `json:"mqtt"`

	// Coordinator tuning
	Coordinator CoordinatorConfig `json:"coordinator"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// CORS configuration
	CORS CORSConfig `json:"cors"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// MongoConfig holds document-store configuration
type MongoConfig struct {
	URI                string        `json:"uri"`
	Database           string        `json:"database"`
	ScheduleCollection string        `json:"schedule_collection"`
	HistoryCollection  string        `json:"history_collection"`
	ConnectTimeout     time.Duration `json:"connect_timeout"`
}

// MQTTConfig holds MQTT-related configuration
type MQTTConfig struct {
	BrokerHost  string        `json:"broker_host"`
	BrokerPort  int           `json:"broker_port"`
	BrokerUser  string        `json:"broker_user"`
	BrokerPass  string        `json:"broker_pass"`
	UseTLS      bool          `json:"use_tls"`
	CACertPath  string        `json:"ca_cert_path"`
	TopicPrefix string        `json:"topic_prefix"`
	ClientID    string        `json:"client_id"`
	KeepAlive   time.Duration `json:"keep_alive"`
	PingTimeout time.Duration `json:"ping_timeout"`
}

// CoordinatorConfig holds the tuning knobs for the device coordinator
type CoordinatorConfig struct {
	HistoryCap        int           `json:"history_cap"`
	HistoryFlushEvery int           `json:"history_flush_every"`
	LogCap            int           `json:"log_cap"`
	StaleThreshold    time.Duration `json:"stale_threshold"`
	MonitorInterval   time.Duration `json:"monitor_interval"`
	SubscriberLimit   int           `json:"subscriber_limit"`
	SubscriberStale   time.Duration `json:"subscriber_stale"`
	HeartbeatInterval time.Duration `json:"heartbeat_interval"`
	FlushDebounce     time.Duration `json:"flush_debounce"`
	FlushMaxPending   int           `json:"flush_max_pending"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level        string `json:"level"`
	Format       string `json:"format"` // json or text
	Output       string `json:"output"` // stdout or stderr
	EnableCaller bool   `json:"enable_caller"`
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

// Load loads configuration from environment variables with fallback defaults
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	if err := godotenv.Load(); err != nil {
		// Environment variables can also be set directly
	}

	config := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "9010"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDuration("IDLE_TIMEOUT", 120*time.Second),
		},
		Mongo: MongoConfig{
			URI:                getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:           getEnv("DB_NAME", "agri"),
			ScheduleCollection: getEnv("SCHEDULE_COLL_NAME", "schedules"),
			HistoryCollection:  getEnv("HISTORY_COLL_NAME", "irrigation_history"),
			ConnectTimeout:     getDuration("MONGODB_CONNECT_TIMEOUT", 20*time.Second),
		},
		MQTT: MQTTConfig{
			BrokerHost:  getEnv("BROKER_HOST", "localhost"),
			BrokerPort:  getInt("BROKER_PORT", 1883),
			BrokerUser:  getEnv("BROKER_USER", ""),
			BrokerPass:  getEnv("BROKER_PASS", ""),
			UseTLS:      getBool("BROKER_TLS", false),
			CACertPath:  getEnv("BROKER_CA_FILE", ""),
			TopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "agri"),
			ClientID:    getEnv("MQTT_CLIENT_ID", "agri-coordinator"),
			KeepAlive:   getDuration("MQTT_KEEP_ALIVE", 30*time.Second),
			PingTimeout: getDuration("MQTT_PING_TIMEOUT", 10*time.Second),
		},
		Coordinator: CoordinatorConfig{
			HistoryCap:        getInt("HISTORY_CAP", 500),
			HistoryFlushEvery: getInt("HISTORY_FLUSH_EVERY", 5),
			LogCap:            getInt("LOG_CAP", 100),
			StaleThreshold:    getDuration("DEVICE_STALE_THRESHOLD", 15*time.Second),
			MonitorInterval:   getDuration("DEVICE_MONITOR_INTERVAL", 5*time.Second),
			SubscriberLimit:   getInt("SUBSCRIBER_LIMIT", 50),
			SubscriberStale:   getDuration("SUBSCRIBER_STALE", 90*time.Second),
			HeartbeatInterval: getDuration("HEARTBEAT_INTERVAL", 30*time.Second),
			FlushDebounce:     getDuration("FLUSH_DEBOUNCE", 2*time.Second),
			FlushMaxPending:   getInt("FLUSH_MAX_PENDING", 25),
		},
		Logging: LoggingConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			Format:       getEnv("LOG_FORMAT", "text"),
			Output:       getEnv("LOG_OUTPUT", "stdout"),
			EnableCaller: getBool("LOG_ENABLE_CALLER", false),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods:   getStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders:   getStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization"}),
			ExposedHeaders:   getStringSlice("CORS_EXPOSED_HEADERS", []string{"Content-Length"}),
			AllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           getInt("CORS_MAX_AGE", 43200), // 12 hours
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return fmt.Errorf("MONGODB_URI is required")
	}
	if c.Coordinator.HistoryCap <= 0 {
		return fmt.Errorf("HISTORY_CAP must be positive")
	}
	if c.Coordinator.HistoryFlushEvery <= 0 {
		return fmt.Errorf("HISTORY_FLUSH_EVERY must be positive")
	}
	if c.Coordinator.SubscriberLimit <= 0 {
		return fmt.Errorf("SUBSCRIBER_LIMIT must be positive")
	}
	if c.Coordinator.StaleThreshold <= c.Coordinator.MonitorInterval {
		return fmt.Errorf("DEVICE_STALE_THRESHOLD must exceed DEVICE_MONITOR_INTERVAL")
	}
	return nil
}

// GetMQTTBrokerURL returns the MQTT broker URL
func (c *Config) GetMQTTBrokerURL() string {
	scheme := "tcp"
	if c.MQTT.UseTLS {
		scheme = "tcps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.MQTT.BrokerHost, c.MQTT.BrokerPort)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return intValue
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if value == "1" || value == "true" || value == "TRUE" {
		return true
	}
	if value == "0" || value == "false" || value == "FALSE" {
		return false
	}
	log.Fatalf("invalid %s: %q (expected true/false or 1/0)", key, value)
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return duration
}

func getStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
