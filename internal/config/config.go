package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file name looked up in the working directory.
const DefaultFile = "subscout.yaml"

// Config represents the top-level subscout.yaml configuration.
type Config struct {
	Plaid     PlaidConfig     `yaml:"plaid"`
	Detection DetectionConfig `yaml:"detection"`
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
}

// PlaidConfig holds aggregation API settings. ClientID and Secret are
// normally supplied through PLAID_CLIENT_ID and PLAID_SECRET.
type PlaidConfig struct {
	Environment  string   `yaml:"environment"` // sandbox, development or production
	ClientName   string   `yaml:"client_name"`
	CountryCodes []string `yaml:"country_codes"`
	Language     string   `yaml:"language"`
	Products     []string `yaml:"products"`
	ClientID     string   `yaml:"client_id,omitempty"`
	Secret       string   `yaml:"secret,omitempty"`
	BaseURL      string   `yaml:"base_url,omitempty"`
}

// DetectionConfig controls the transaction window and allow list.
type DetectionConfig struct {
	WindowDays int    `yaml:"window_days"`
	PageSize   int    `yaml:"page_size"`
	Whitelist  string `yaml:"whitelist"`
	RunLog     bool   `yaml:"run_log"`
}

// ServerConfig controls the HTTP service.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StoreConfig selects the credential repository.
type StoreConfig struct {
	Driver string `yaml:"driver"` // file, sqlite or postgres
	Path   string `yaml:"path,omitempty"`
	DSN    string `yaml:"dsn,omitempty"`
}

// Store drivers.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// MaxPageSize is the largest transactions page the aggregation API accepts.
const MaxPageSize = 500

// envOverrides are the environment variables that override the file.
type envOverrides struct {
	PlaidClientID string `koanf:"PLAID_CLIENT_ID"`
	PlaidSecret   string `koanf:"PLAID_SECRET"`
	PlaidEnv      string `koanf:"PLAID_ENV"`
	Addr          string `koanf:"SUBSCOUT_ADDR"`
	StoreDriver   string `koanf:"SUBSCOUT_STORE_DRIVER"`
	StorePath     string `koanf:"SUBSCOUT_STORE_PATH"`
	StoreDSN      string `koanf:"SUBSCOUT_STORE_DSN"`
}

// Load reads a subscout.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault reads path, falling back to Default when it does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// LoadWithEnv reads path (or defaults), applies environment overrides and
// validates the result.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays non-empty environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return fmt.Errorf("loading environment: %w", err)
	}

	var o envOverrides
	if err := k.UnmarshalWithConf("", &o, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return fmt.Errorf("unmarshaling environment: %w", err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Plaid.ClientID, o.PlaidClientID)
	set(&cfg.Plaid.Secret, o.PlaidSecret)
	set(&cfg.Plaid.Environment, o.PlaidEnv)
	set(&cfg.Server.Addr, o.Addr)
	set(&cfg.Store.Driver, o.StoreDriver)
	set(&cfg.Store.Path, o.StorePath)
	set(&cfg.Store.DSN, o.StoreDSN)
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Detection.WindowDays <= 0 {
		return fmt.Errorf("detection.window_days must be positive, got %d", c.Detection.WindowDays)
	}
	if c.Detection.PageSize < 1 || c.Detection.PageSize > MaxPageSize {
		return fmt.Errorf("detection.page_size must be between 1 and %d, got %d", MaxPageSize, c.Detection.PageSize)
	}
	switch c.Store.Driver {
	case DriverFile, DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Plaid: PlaidConfig{
			Environment:  "sandbox",
			ClientName:   "subscout",
			CountryCodes: []string{"US"},
			Language:     "en",
			Products:     []string{"auth", "transactions"},
		},
		Detection: DetectionConfig{
			WindowDays: 90,
			PageSize:   100,
			Whitelist:  "whitelist.json",
			RunLog:     true,
		},
		Server: ServerConfig{
			Addr: ":8777",
		},
		Store: StoreConfig{
			Driver: DriverFile,
			Path:   "data/credentials.json",
		},
	}
}
