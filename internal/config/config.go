package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/streaks/internal/constants"
)

var ErrUnknownBackend = errors.New("unknown backend")

type Redis struct {
	Addr     string `yaml:"addr"`
	DB       int    `yaml:"db"`
	Password string `yaml:"password"`
}

// Config selects a storage backend and the ambient settings around it.
type Config struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	DSN         string `yaml:"dsn"`
	Redis       Redis  `yaml:"redis"`
	Listen      string `yaml:"listen"`
	MetricsFile string `yaml:"metrics_file"`
	Debug       bool   `yaml:"debug"`

	// ConfigDir holds logs, backups and the lockfile. Not read from YAML.
	ConfigDir string `yaml:"-"`
}

func Default() *Config {
	return &Config{
		Backend:   constants.BackendJSON,
		Path:      ExpandHome(constants.DefaultStorePath),
		Redis:     Redis{Addr: "localhost:6379"},
		Listen:    constants.DefaultListenAddr,
		ConfigDir: ExpandHome(constants.DefaultConfigDir),
	}
}

// Load builds a Config from defaults, then the YAML file at path (optional),
// then a .env file in the working directory, then STREAKS_* variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = constants.DefaultConfigFile
	}
	path = ExpandHome(path)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		cfg.ConfigDir = filepath.Dir(path)
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// godotenv never overrides variables that are already set
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.Path = ExpandHome(cfg.Path)
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("STREAKS_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("STREAKS_PATH"); v != "" {
		c.Path = v
	}
	if v := os.Getenv("STREAKS_DSN"); v != "" {
		c.DSN = v
	}
	if v := os.Getenv("STREAKS_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("STREAKS_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid STREAKS_REDIS_DB %q: %w", v, err)
		}
		c.Redis.DB = db
	}
	if v := os.Getenv("STREAKS_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("STREAKS_METRICS_FILE"); v != "" {
		c.MetricsFile = v
	}
	if v := os.Getenv("STREAKS_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid STREAKS_DEBUG %q: %w", v, err)
		}
		c.Debug = debug
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Backend {
	case constants.BackendJSON, constants.BackendSQLite:
		if c.Path == "" {
			return fmt.Errorf("backend %s requires a path", c.Backend)
		}
	case constants.BackendPostgres, constants.BackendMemory:
	case constants.BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("backend redis requires an address")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	return nil
}

// Save writes the YAML form of c to path, creating parent directories.
func (c *Config) Save(path string) error {
	path = ExpandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
