package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Ingestion IngestionConfig
	Compare   CompareConfig
	Chat      ChatConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	Responder ResponderConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type IngestionConfig struct {
	MaxUploadBytes    int64
	AllowedExtensions []string
	Workers           int
	QueueCapacity     int
	MaxRetries        int
	RetryInitialMS    int
	RetryMaxMS        int
}

type CompareConfig struct {
	MaxTextBytes       int
	SeverityWeightLow  int
	SeverityWeightMed  int
	SeverityWeightHigh int
	MissingWeight      int
	HighThreshold      int
	MediumThreshold    int
	RequiredCategories []string
}

type ChatConfig struct {
	ResponderTimeoutSec int
}

type SQLiteConfig struct {
	Enabled bool
	Path    string
}

type RedisConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Password  string
	DB        int
	CacheTTLS int
}

type ResponderConfig struct {
	Provider    string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

type RateLimitConfig struct {
	MaxRequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/arca")

	viper.SetEnvPrefix("ARCA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("ingestion.maxUploadBytes", 10485760)
	viper.SetDefault("ingestion.allowedExtensions", []string{"pdf", "docx", "txt"})
	viper.SetDefault("ingestion.workers", 4)
	viper.SetDefault("ingestion.queueCapacity", 64)
	viper.SetDefault("ingestion.maxRetries", 3)
	viper.SetDefault("ingestion.retryInitialMS", 100)
	viper.SetDefault("ingestion.retryMaxMS", 5000)

	viper.SetDefault("compare.maxTextBytes", 262144)
	viper.SetDefault("compare.severityWeightLow", 10)
	viper.SetDefault("compare.severityWeightMed", 20)
	viper.SetDefault("compare.severityWeightHigh", 35)
	viper.SetDefault("compare.missingWeight", 8)
	viper.SetDefault("compare.highThreshold", 70)
	viper.SetDefault("compare.mediumThreshold", 30)
	viper.SetDefault("compare.requiredCategories", []string{
		"dpo-contact",
		"consent-withdrawal",
		"data-retention",
		"breach-notification",
	})

	viper.SetDefault("chat.responderTimeoutSec", 60)

	viper.SetDefault("sqlite.enabled", true)
	viper.SetDefault("sqlite.path", "./data/arca.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.cacheTTLS", 600)

	viper.SetDefault("responder.provider", "static")
	viper.SetDefault("responder.model", "gpt-4")
	viper.SetDefault("responder.temperature", 0.2)
	viper.SetDefault("responder.maxTokens", 1024)

	viper.SetDefault("ratelimit.maxRequestsPerMinute", 120)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
