package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	SMTP         SMTPConfig         `mapstructure:"smtp"`
	TLS          TLSConfig          `mapstructure:"tls"`
	API          APIConfig          `mapstructure:"api"`
	MailChannels MailChannelsConfig `mapstructure:"mailchannels"`
	DKIM         DKIMConfig         `mapstructure:"dkim"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	RateLimit    RateLimitConfig    `mapstructure:"ratelimit"`
	Archive      ArchiveConfig      `mapstructure:"archive"`
}

// SMTPConfig holds the SMTP listener configuration.
type SMTPConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Domain         string        `mapstructure:"domain"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxRecipients  int           `mapstructure:"max_recipients"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	AllowedDomains []string      `mapstructure:"allowed_domains"`
}

// TLSConfig holds TLS certificate paths for the SMTP listener.
type TLSConfig struct {
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// APIConfig holds REST API server configuration.
type APIConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// MailChannelsConfig holds the outbound API settings.
type MailChannelsConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DKIMConfig holds the domain-signing credentials. Signing is enabled only
// when all three are set.
type DKIMConfig struct {
	Domain     string `mapstructure:"domain"`
	Selector   string `mapstructure:"selector"`
	PrivateKey string `mapstructure:"private_key"`
}

// AuthConfig lists the API clients allowed to call the send endpoint.
// An empty list leaves the endpoint open.
type AuthConfig struct {
	Clients []ClientConfig `mapstructure:"clients"`
}

// ClientConfig is one named client and the bcrypt hash of its API key.
type ClientConfig struct {
	Name    string `mapstructure:"name"`
	KeyHash string `mapstructure:"key_hash"`
}

// DatabaseConfig holds the delivery log database settings. An empty URL
// disables the delivery log.
type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	PoolMin        int32         `mapstructure:"pool_min"`
	PoolMax        int32         `mapstructure:"pool_max"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// RedisConfig holds the Redis connection used for rate limiting. An empty
// address disables rate limiting.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig holds the per-client send allowance.
type RateLimitConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// ArchiveConfig holds the raw message archive for SMTP ingress. An empty
// type disables archiving.
type ArchiveConfig struct {
	Type       string `mapstructure:"type"` // dir or s3
	Path       string `mapstructure:"path"`
	S3Bucket   string `mapstructure:"s3_bucket"`
	S3Prefix   string `mapstructure:"s3_prefix"`
	S3Endpoint string `mapstructure:"s3_endpoint"`
	S3Region   string `mapstructure:"s3_region"`
	// Static S3 credentials, for MinIO and similar. Empty uses the default
	// AWS credential chain.
	S3AccessKeyID     string `mapstructure:"s3_access_key_id"`
	S3SecretAccessKey string `mapstructure:"s3_secret_access_key"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	Output    string `mapstructure:"output"`
	FilePath  string `mapstructure:"file_path"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
	MaxFiles  int    `mapstructure:"max_files"`
}

// dkimEnv lists, per key, the environment variables consulted in order.
// The bare DKIM_* names are kept for existing worker deployments.
var dkimEnv = map[string][]string{
	"dkim.domain":      {"MC_RELAY_DKIM_DOMAIN", "DKIM_DOMAIN"},
	"dkim.selector":    {"MC_RELAY_DKIM_SELECTOR", "DKIM_SELECTOR"},
	"dkim.private_key": {"MC_RELAY_DKIM_PRIVATE_KEY", "DKIM_PRIVATE_KEY"},
}

// Load reads configuration from the given config directory path.
// It looks for a file named "config.yaml" in that directory.
// Environment variables with prefix MC_RELAY_ override file values.
// For example, MC_RELAY_API_PORT overrides api.port.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	v.SetEnvPrefix("MC_RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range dkimEnv {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
