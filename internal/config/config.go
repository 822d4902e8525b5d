package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override, e.g. QUERYNEST_API_URL.
const EnvPrefix = "QUERYNEST"

type Config struct {
	Env      string
	LogLevel string

	APIURL       string
	RealtimeURL  string
	Token        string
	UserName     string
	StaffRoleTag string
	HTTPTimeout  time.Duration
	DedupeAll    bool

	Reconnect ReconnectConfig

	Relay RelayConfig
}

type ReconnectConfig struct {
	Enabled         bool
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

type RelayConfig struct {
	Port      string
	JWTSecret string
	AdminKey  string

	// UpgradeLimit is websocket upgrades allowed per IP per minute.
	UpgradeLimit int
}

// SetDefaults registers every key with its development default.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "")
	v.SetDefault("api_url", "http://localhost:5000")
	v.SetDefault("realtime_url", "ws://localhost:5001/ws")
	v.SetDefault("token", "")
	v.SetDefault("user_name", "")
	v.SetDefault("staff_role_tag", "Technical")
	v.SetDefault("http_timeout", 15*time.Second)
	v.SetDefault("dedupe_all", false)

	v.SetDefault("reconnect.enabled", true)
	v.SetDefault("reconnect.initial_interval", 500*time.Millisecond)
	v.SetDefault("reconnect.max_interval", 30*time.Second)
	v.SetDefault("reconnect.max_elapsed_time", 0)

	v.SetDefault("relay.port", "5001")
	v.SetDefault("relay.jwt_secret", "")
	v.SetDefault("relay.admin_key", "dev-admin-key")
	v.SetDefault("relay.upgrade_limit", 60)
}

// New returns a viper instance wired for QUERYNEST_* overrides. A .env file in
// the working directory is loaded first when present.
func New() *viper.Viper {
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile merges a YAML/JSON/TOML config file into v. A missing file is
// not an error when optional is set.
func ReadFile(v *viper.Viper, path string, optional bool) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return nil
}

func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:          v.GetString("env"),
		LogLevel:     v.GetString("log_level"),
		APIURL:       strings.TrimRight(v.GetString("api_url"), "/"),
		RealtimeURL:  v.GetString("realtime_url"),
		Token:        v.GetString("token"),
		UserName:     v.GetString("user_name"),
		StaffRoleTag: strings.TrimSpace(v.GetString("staff_role_tag")),
		HTTPTimeout:  v.GetDuration("http_timeout"),
		DedupeAll:    v.GetBool("dedupe_all"),
		Reconnect: ReconnectConfig{
			Enabled:         v.GetBool("reconnect.enabled"),
			InitialInterval: v.GetDuration("reconnect.initial_interval"),
			MaxInterval:     v.GetDuration("reconnect.max_interval"),
			MaxElapsedTime:  v.GetDuration("reconnect.max_elapsed_time"),
		},
		Relay: RelayConfig{
			Port:         v.GetString("relay.port"),
			JWTSecret:    v.GetString("relay.jwt_secret"),
			AdminKey:     v.GetString("relay.admin_key"),
			UpgradeLimit: v.GetInt("relay.upgrade_limit"),
		},
	}

	if cfg.APIURL == "" {
		return nil, errors.New("config: api_url is required")
	}
	if cfg.StaffRoleTag == "" {
		return nil, errors.New("config: staff_role_tag must not be empty")
	}
	if cfg.Reconnect.MaxInterval < cfg.Reconnect.InitialInterval {
		return nil, fmt.Errorf("config: reconnect.max_interval %s is below initial_interval %s",
			cfg.Reconnect.MaxInterval, cfg.Reconnect.InitialInterval)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
