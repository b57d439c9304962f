package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig
	AI       AIConfig
	Fixer    FixerConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Metrics  MetricsConfig `mapstructure:"metrics"`
	Tracing  TracingConfig `mapstructure:"tracing"`
	Log      LogConfig     `mapstructure:"log"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	DryRun  bool   `mapstructure:"-"` // 只解析不写库
	Chapter string `mapstructure:"-"` // 只处理指定章节
	Limit   int    `mapstructure:"-"` // 每章节最多处理的题目数，0 为不限制
}

type AIConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	Temperature       float64       `mapstructure:"temperature"`
	TimeoutSeconds    time.Duration `mapstructure:"timeout_seconds"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

type FixerConfig struct {
	PacingSeconds time.Duration `mapstructure:"pacing_seconds"`
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type RedisConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	Host          string
	Port          int
	Password      string
	DB            int
	CacheTTLHours time.Duration `mapstructure:"cache_ttl_hours"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    string `mapstructure:"port"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("LATEX_FIXER")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// AI
	viper.BindEnv("ai.base_url", "AI_BASE_URL")
	viper.BindEnv("ai.api_key", "AI_API_KEY")
	viper.BindEnv("ai.model", "AI_MODEL")

	// Storage / OSS
	viper.BindEnv("storage.type", "STORAGE_TYPE")
	viper.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	viper.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	viper.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	viper.BindEnv("storage.oss_bucket", "OSS_BUCKET")
	viper.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	viper.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	viper.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	viper.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Log
	viper.BindEnv("log.level", "LOG_LEVEL")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// 数据库连接信息不全则直接启动失败，后续所有操作都依赖题库
	if cfg.Database.Host == "" || cfg.Database.User == "" || cfg.Database.DBName == "" {
		return nil, fmt.Errorf("database configuration is incomplete (host=%q, user=%q, dbname=%q)",
			cfg.Database.Host, cfg.Database.User, cfg.Database.DBName)
	}
	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("ai.api_key is required (set the AI_API_KEY environment variable or ai.api_key in config)")
	}

	cfg.AI.TimeoutSeconds = cfg.AI.TimeoutSeconds * time.Second
	if cfg.AI.TimeoutSeconds <= 0 {
		cfg.AI.TimeoutSeconds = 120 * time.Second
	}
	cfg.Fixer.PacingSeconds = cfg.Fixer.PacingSeconds * time.Second
	if cfg.Fixer.PacingSeconds <= 0 {
		cfg.Fixer.PacingSeconds = time.Second
	}
	cfg.Redis.CacheTTLHours = cfg.Redis.CacheTTLHours * time.Hour
	if cfg.Redis.CacheTTLHours <= 0 {
		cfg.Redis.CacheTTLHours = 24 * time.Hour
	}

	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "reports"
	}
	if cfg.Storage.Type == "local" || cfg.Storage.Type == "" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}
