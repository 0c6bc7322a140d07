package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"

	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// ---- Root ----

type Config struct {
	Service string      `mapstructure:"service"`
	Mode    string      `mapstructure:"mode"`
	HTTP    HTTPConfig  `mapstructure:"http"`
	Log     LogConfig   `mapstructure:"log"`
	Agent   AgentConfig `mapstructure:"agent"`
	Quota   QuotaConfig `mapstructure:"quota"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	Port            int           `mapstructure:"port"`
	AdminToken      string        `mapstructure:"admin_token"`
	BodyLimit       string        `mapstructure:"body_limit"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Encoding   string `mapstructure:"encoding"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type BreakerConfig struct {
	FailThreshold int           `mapstructure:"fail_threshold"`
	OpenFor       time.Duration `mapstructure:"open_for"`
}

type AgentConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	Token      string        `mapstructure:"token"`
	SessionKey string        `mapstructure:"session_key"`
	AgentID    string        `mapstructure:"agent_id"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Breaker    BreakerConfig `mapstructure:"breaker"`
}

type SeedKey struct {
	Key  string `mapstructure:"key"`
	Tier string `mapstructure:"tier"`
}

type QuotaConfig struct {
	Backend     string    `mapstructure:"backend"`
	UpgradeURL  string    `mapstructure:"upgrade_url"`
	RedisPrefix string    `mapstructure:"redis_prefix"`
	SeedKeys    []SeedKey `mapstructure:"seed_keys"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// DevMode reports whether agent failures should be masked with mock data.
func (c Config) DevMode() bool { return c.Mode == ModeDevelopment }

// ListenAddr is http.addr, or ":<port>" when addr is empty.
func (c Config) ListenAddr() string {
	if c.HTTP.Addr != "" {
		return c.HTTP.Addr
	}
	return ":" + strconv.Itoa(c.HTTP.Port)
}

func (c Config) Validate() error {
	var errs []error
	switch c.Mode {
	case ModeDevelopment, ModeProduction, "test":
	default:
		errs = append(errs, fmt.Errorf("mode: unknown value %q", c.Mode))
	}
	if c.HTTP.Addr == "" && (c.HTTP.Port <= 0 || c.HTTP.Port > 65535) {
		errs = append(errs, fmt.Errorf("http.port: %d out of range", c.HTTP.Port))
	}
	if strings.TrimSpace(c.Agent.Endpoint) == "" {
		errs = append(errs, errors.New("agent.endpoint: required"))
	}
	switch c.Quota.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr: required for quota.backend=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("quota.backend: unknown value %q", c.Quota.Backend))
	}
	return errors.Join(errs...)
}

// legacy variable names the relay has always honored
var envAliases = map[string][]string{
	"agent.endpoint": {"OPENCLAW_ENDPOINT"},
	"agent.token":    {"OPENCLAW_TOKEN"},
	"http.port":      {"PORT"},
	"mode":           {"NODE_ENV"},
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env
// overrides (AGENTHOST_*, plus OPENCLAW_ENDPOINT, OPENCLAW_TOKEN, PORT, NODE_ENV).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.MergeInConfig(); err != nil {
				return Config{}, fmt.Errorf("merge %s: %w", path, err)
			}
		}
	}

	// env override (AGENTHOST_HTTP_PORT, ...)
	v.SetEnvPrefix("AGENTHOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, aliases := range envAliases {
		names := append([]string{"AGENTHOST_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Mode = normalizeMode(cfg.Mode)
	return cfg, cfg.Validate()
}

// normalizeMode lowercases mode and folds values other than development and
// test (NODE_ENV=staging, ...) into production.
func normalizeMode(mode string) string {
	switch m := strings.ToLower(strings.TrimSpace(mode)); m {
	case ModeDevelopment, ModeProduction, "test":
		return m
	default:
		return ModeProduction
	}
}

// LoadDotEnv loads KEY=VALUE files into the process environment. Missing
// files are skipped and variables already set are left alone.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}
