package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Port      int
	DBURL     string
	RedisAddr string
	JWTSecret string
	LogLevel  string

	MQTTEnabled  bool
	MQTTBroker   string
	MQTTClientID string

	EnginePollTimeout  time.Duration
	EngineBatchSize    int64
	EngineRetryBackoff time.Duration
	EngineOpTimeout    time.Duration
	LightSweepInterval string

	MDNSLocalName string

	RemoteAccessEnabled bool
	RemoteAccessWS      string
	RemoteAccessRetry   time.Duration

	AgentID string
}

// LoadConfig reads configuration from .env, config.yaml, or env vars
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("CONFIG: no .env file loaded: %v", err)
	}

	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig()

	viper.SetDefault("PORT", 5069)
	viper.SetDefault("ENGINE_POLL_TIMEOUT_MS", 5000)
	viper.SetDefault("ENGINE_BATCH_SIZE", 10)
	viper.SetDefault("ENGINE_RETRY_BACKOFF_MS", 1000)
	viper.SetDefault("ENGINE_OP_TIMEOUT_MS", 10000)
	viper.SetDefault("LIGHT_SWEEP_INTERVAL", "@every 1m")
	viper.SetDefault("REMOTE_ACCESS_RETRY_SECS", 2)

	cfg := &Config{
		Port:      viper.GetInt("PORT"),
		DBURL:     viper.GetString("DB_URL"),
		RedisAddr: viper.GetString("REDIS_ADDR"),
		JWTSecret: viper.GetString("JWT_SECRET"),
		LogLevel:  viper.GetString("LOG_LEVEL"),

		MQTTEnabled:  viper.GetBool("MQTT_ENABLED"),
		MQTTBroker:   viper.GetString("MQTT_BROKER"),
		MQTTClientID: viper.GetString("MQTT_CLIENT_ID"),

		EnginePollTimeout:  time.Duration(viper.GetInt("ENGINE_POLL_TIMEOUT_MS")) * time.Millisecond,
		EngineBatchSize:    viper.GetInt64("ENGINE_BATCH_SIZE"),
		EngineRetryBackoff: time.Duration(viper.GetInt("ENGINE_RETRY_BACKOFF_MS")) * time.Millisecond,
		EngineOpTimeout:    time.Duration(viper.GetInt("ENGINE_OP_TIMEOUT_MS")) * time.Millisecond,
		LightSweepInterval: viper.GetString("LIGHT_SWEEP_INTERVAL"),

		MDNSLocalName: viper.GetString("MDNS_LOCAL_NAME"),

		RemoteAccessEnabled: viper.GetBool("REMOTE_ACCESS_ENABLED"),
		RemoteAccessWS:      viper.GetString("REMOTE_ACCESS_PUBLIC_WS"),
		RemoteAccessRetry:   time.Duration(viper.GetInt("REMOTE_ACCESS_RETRY_SECS")) * time.Second,

		AgentID: viper.GetString("AGENT_ID"),
	}
	return cfg, nil
}
