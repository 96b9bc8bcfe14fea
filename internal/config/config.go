package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var ErrUnknownProfile = errors.New("unknown size profile")

type Config struct {
	Backend        string             `json:"backend" mapstructure:"backend"`
	MigrationsPath string             `json:"migrations_path" mapstructure:"migrations_path"`
	Database       Database           `json:"database" mapstructure:"database"`
	Proxy          Proxy              `json:"proxy" mapstructure:"proxy"`
	Seed           Seed               `json:"seed" mapstructure:"seed"`
	Retry          Retry              `json:"retry" mapstructure:"retry"`
	Profiles       map[string]Profile `json:"profiles" mapstructure:"profiles"`
}

type Database struct {
	Provider string `json:"provider" mapstructure:"provider"`
	URLEnv   string `json:"url_env" mapstructure:"url_env"`
}

// Proxy points at an HTTP sqlite-proxy such as a Turso edge endpoint.
type Proxy struct {
	URLEnv   string        `json:"url_env" mapstructure:"url_env"`
	TokenEnv string        `json:"token_env" mapstructure:"token_env"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
}

type Seed struct {
	Profile  string `json:"profile" mapstructure:"profile"`
	Batch    int    `json:"batch" mapstructure:"batch"`
	Seed     int64  `json:"seed" mapstructure:"seed"`
	Truncate bool   `json:"truncate" mapstructure:"truncate"`
}

type Retry struct {
	MaxRetries   int           `json:"max_retries" mapstructure:"max_retries"`
	InitialDelay time.Duration `json:"initial_delay" mapstructure:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay" mapstructure:"max_delay"`
}

// Profile is the target record count per entity for one run.
type Profile struct {
	Employees int `json:"employees" yaml:"employees" mapstructure:"employees"`
	Customers int `json:"customers" yaml:"customers" mapstructure:"customers"`
	Orders    int `json:"orders" yaml:"orders" mapstructure:"orders"`
	Products  int `json:"products" yaml:"products" mapstructure:"products"`
	Suppliers int `json:"suppliers" yaml:"suppliers" mapstructure:"suppliers"`
	Shippers  int `json:"shippers" yaml:"shippers" mapstructure:"shippers"`
}

var builtinProfiles = map[string]Profile{
	"nano": {
		Employees: 50,
		Customers: 50,
		Orders:    500,
		Products:  500,
		Suppliers: 100,
		Shippers:  250,
	},
	"micro": {
		Employees: 200,
		Customers: 10000,
		Orders:    50000,
		Products:  5000,
		Suppliers: 1000,
		Shippers:  3000,
	},
	"small": {
		Employees: 100,
		Customers: 1000,
		Orders:    5000,
		Products:  1000,
		Suppliers: 200,
		Shippers:  500,
	},
	"large": {
		Employees: 1000,
		Customers: 50000,
		Orders:    500000,
		Products:  20000,
		Suppliers: 5000,
		Shippers:  10000,
	},
}

const (
	BackendProxy  = "proxy"
	BackendSQL    = "sql"
	BackendMemory = "memory"
)

// SetDefaults registers every config key on vip with its default value and
// binds the keys to environment variables, so SEED_PROFILE overrides
// seed.profile.
func SetDefaults(vip *viper.Viper) {
	vip.SetDefault("backend", BackendProxy)
	vip.SetDefault("migrations_path", "")

	vip.SetDefault("database.provider", "sqlite")
	vip.SetDefault("database.url_env", "DATABASE_URL")

	vip.SetDefault("proxy.url_env", "TURSO_URL")
	vip.SetDefault("proxy.token_env", "TURSO_TOKEN")
	vip.SetDefault("proxy.timeout", 30*time.Second)

	vip.SetDefault("seed.profile", "nano")
	vip.SetDefault("seed.batch", 5)
	vip.SetDefault("seed.seed", 0)
	vip.SetDefault("seed.truncate", false)

	vip.SetDefault("retry.max_retries", 3)
	vip.SetDefault("retry.initial_delay", 100*time.Millisecond)
	vip.SetDefault("retry.max_delay", 5*time.Second)

	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vip.AutomaticEnv()
}

// Load decodes the global viper instance. Values set explicitly, including
// zeros, win over the defaults.
func Load() (*Config, error) {
	SetDefaults(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendProxy, BackendSQL, BackendMemory:
	default:
		return fmt.Errorf("unsupported backend: %s. Supported backends: %v", c.Backend,
			[]string{BackendProxy, BackendSQL, BackendMemory})
	}

	if c.Backend == BackendSQL {
		supportedProviders := []string{"sqlite", "sqlite3", "postgresql", "postgres", "pq", "mysql"}
		supported := false
		for _, provider := range supportedProviders {
			if c.Database.Provider == provider {
				supported = true
				break
			}
		}
		if !supported {
			return fmt.Errorf("unsupported database provider: %s. Supported providers: %v", c.Database.Provider, supportedProviders)
		}
	}

	if c.Seed.Batch < 1 {
		return fmt.Errorf("seed.batch must be at least 1, got %d", c.Seed.Batch)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries cannot be negative")
	}

	return nil
}

// Profile resolves a size profile by name. Config file profiles shadow the
// built-in ones.
func (c *Config) Profile(name string) (Profile, error) {
	if p, ok := c.Profiles[name]; ok {
		return p, nil
	}
	if p, ok := builtinProfiles[name]; ok {
		return p, nil
	}
	return Profile{}, fmt.Errorf("%w: %q (available: %v)", ErrUnknownProfile, name, c.ProfileNames())
}

// AllProfiles returns the built-in profiles merged with the configured ones.
func (c *Config) AllProfiles() map[string]Profile {
	all := make(map[string]Profile, len(builtinProfiles)+len(c.Profiles))
	for name, p := range builtinProfiles {
		all[name] = p
	}
	for name, p := range c.Profiles {
		all[name] = p
	}
	return all
}

func (c *Config) ProfileNames() []string {
	var names []string
	for name := range c.AllProfiles() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) GetDatabaseURL() (string, error) {
	dbURL := os.Getenv(c.Database.URLEnv)
	if dbURL == "" {
		return "", fmt.Errorf("database URL not found in environment variable %s", c.Database.URLEnv)
	}
	return dbURL, nil
}

func (c *Config) GetProxyCredentials() (string, string, error) {
	url := os.Getenv(c.Proxy.URLEnv)
	if url == "" {
		return "", "", fmt.Errorf("proxy URL not found in environment variable %s", c.Proxy.URLEnv)
	}
	return url, os.Getenv(c.Proxy.TokenEnv), nil
}
