// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Store         StoreConfig        `mapstructure:"store"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Auth          AuthConfig         `mapstructure:"auth"`
	Sequence      SequenceConfig     `mapstructure:"sequence"`
	Statistics    StatisticsConfig   `mapstructure:"statistics"`
	Uploads       UploadsConfig      `mapstructure:"uploads"`
	Masters       MastersConfig      `mapstructure:"masters"`
	RateLimit     RateLimitConfig    `mapstructure:"rate_limit"`
	Search        SearchConfig       `mapstructure:"search"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// Addr returns the host:port the HTTP server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	Backend         string `mapstructure:"backend"` // "firestore" or "memory"
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type DatabaseConfig struct {
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// AuthConfig holds bearer-token verification settings.
type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours"`
}

// SequenceConfig tunes the form-number allocator retry loop.
type SequenceConfig struct {
	MaxRetries  int `mapstructure:"max_retries"`
	BackoffStep int `mapstructure:"backoff_step"` // milliseconds, multiplied by attempt
}

// StatisticsConfig controls how dashboard counters are written.
// Transactional=false keeps the default best-effort read-modify-write.
type StatisticsConfig struct {
	Transactional bool `mapstructure:"transactional"`
}

type UploadsConfig struct {
	MaxFileSizeMB int `mapstructure:"max_file_size_mb"`
}

type MastersConfig struct {
	CacheTTL int `mapstructure:"cache_ttl"` // milliseconds
}

type RateLimitConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	WindowMs    int  `mapstructure:"window_ms"`
	MaxRequests int  `mapstructure:"max_requests"`
}

// SearchConfig gates the best-effort Elasticsearch application index.
type SearchConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Index   string `mapstructure:"index"`
}

// NotificationConfig holds settings for decision notifications.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
