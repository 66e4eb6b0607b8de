// Package config loads the client's configuration, adapted from the
// teacher's viper-based approach (its own internal/config package was not
// present in the retrieved pack — only consumers of config.BackendConfig,
// config.HardwareConfig, and config.AuditConfig were — so these struct
// shapes are inferred from how the teacher's crypto and s3 packages use
// them, generalized to the cyphertite domain).
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/kenneth/cyphertite-go/internal/ctxerr"
)

// SecretsConfig locates and, where relevant, helps rotate the secrets
// envelope (spec §4.2).
type SecretsConfig struct {
	Path          string `mapstructure:"path"`
	Rounds        uint32 `mapstructure:"rounds"`
	KMIPEnabled   bool   `mapstructure:"kmip_enabled"`
	KMIPEndpoint  string `mapstructure:"kmip_endpoint"`
	WatchForRotate bool  `mapstructure:"watch_for_rotate"`
}

// TransportConfig configures the network connection to the server (spec
// §4.1/§6).
type TransportConfig struct {
	Address      string        `mapstructure:"address"`
	TLSInsecure  bool          `mapstructure:"tls_insecure"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	SendRateBps  int           `mapstructure:"send_rate_bytes_per_sec"`
	CacheMirror  S3CacheConfig `mapstructure:"cache_mirror"`
}

// S3CacheConfig configures the optional S3-backed ctfile cache mirror,
// adapted from the teacher's S3 client wrapper (internal/s3/client.go).
// Provider, Endpoint, AccessKey, and SecretKey let the mirror point at any
// S3-compatible backend in internal/s3.KnownProviders, not just AWS; when
// Provider is "aws" or empty, transport.NewS3Mirror falls back to the
// default AWS credential chain and leaves Endpoint unset.
type S3CacheConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
	Provider  string `mapstructure:"provider"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// SessionConfig sizes the engine's in-process state (spec §4.4/§9).
type SessionConfig struct {
	TransactionPoolSize int `mapstructure:"transaction_pool_size"`
	ChunkSizeBytes      int `mapstructure:"chunk_size_bytes"`
}

// CullConfig configures cull cycles (spec §4.8).
type CullConfig struct {
	KeepDays     int    `mapstructure:"keep_days"`
	Schedule     string `mapstructure:"schedule"` // cron expression, empty disables scheduling
	RedisAddr    string `mapstructure:"redis_addr"`
	RedisEnabled bool   `mapstructure:"redis_enabled"`
}

// HardwareConfig governs whether detected AES hardware acceleration is
// actually used, mirroring the teacher's HardwareConfig
// (internal/crypto/hardware.go).
type HardwareConfig struct {
	EnableAESNI    bool `mapstructure:"enable_aes_ni"`
	EnableARMv8AES bool `mapstructure:"enable_armv8_aes"`
}

// DiagnosticsConfig configures the optional health/metrics HTTP surface.
type DiagnosticsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// AuditSinkConfig configures where audit events are written, mirroring the
// teacher's AuditConfig.Sink (internal/audit/audit.go's NewLoggerFromConfig
// switch).
type AuditSinkConfig struct {
	Type          string            `mapstructure:"type"` // "stdout" (default), "file", "http"
	Endpoint      string            `mapstructure:"endpoint"`
	Headers       map[string]string `mapstructure:"headers"`
	FilePath      string            `mapstructure:"file_path"`
	BatchSize     int               `mapstructure:"batch_size"`
	FlushInterval time.Duration     `mapstructure:"flush_interval"`
	RetryCount    int               `mapstructure:"retry_count"`
	RetryBackoff  time.Duration     `mapstructure:"retry_backoff"`
}

// AuditConfig configures the archive/extract/cull audit trail.
type AuditConfig struct {
	Enabled            bool            `mapstructure:"enabled"`
	MaxEvents          int             `mapstructure:"max_events"`
	RedactMetadataKeys []string        `mapstructure:"redact_metadata_keys"`
	Sink               AuditSinkConfig `mapstructure:"sink"`
}

// Config is the root configuration document.
type Config struct {
	Secrets      SecretsConfig     `mapstructure:"secrets"`
	Transport    TransportConfig   `mapstructure:"transport"`
	Session      SessionConfig     `mapstructure:"session"`
	Cull         CullConfig        `mapstructure:"cull"`
	Hardware     HardwareConfig    `mapstructure:"hardware"`
	Diagnostics  DiagnosticsConfig `mapstructure:"diagnostics"`
	Audit        AuditConfig       `mapstructure:"audit"`
	LogLevel     string            `mapstructure:"log_level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("secrets.rounds", 256000)
	v.SetDefault("transport.dial_timeout", 30*time.Second)
	v.SetDefault("session.transaction_pool_size", 32)
	v.SetDefault("session.chunk_size_bytes", 64*1024)
	v.SetDefault("cull.keep_days", 30)
	v.SetDefault("hardware.enable_aes_ni", true)
	v.SetDefault("hardware.enable_armv8_aes", true)
	v.SetDefault("audit.max_events", 1000)
	v.SetDefault("audit.sink.type", "stdout")
	v.SetDefault("log_level", "info")
}

// Load reads configuration from path (if non-empty), environment variables
// prefixed CYPHERTITE_, and built-in defaults, in viper's usual precedence
// order.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("cyphertite")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, ctxerr.New(ctxerr.KindConfig, "config.Load", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, ctxerr.New(ctxerr.KindConfig, "config.Load", err)
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Secrets.Path == "" {
		return ctxerr.New(ctxerr.KindConfig, "config.validate", errMissingSecretsPath)
	}
	if cfg.Transport.Address == "" {
		return ctxerr.New(ctxerr.KindConfig, "config.validate", errMissingTransportAddress)
	}
	if cfg.Session.TransactionPoolSize <= 0 {
		return ctxerr.New(ctxerr.KindConfig, "config.validate", errInvalidPoolSize)
	}
	return nil
}
