// ABOUTME: Configuration for the VulnSearch service from flags, an optional YAML file, and the environment.
// ABOUTME: Precedence is defaults, then file, then flags, then environment variables.

package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds configuration for the search service
type Config struct {
	Host      string        `yaml:"host"`
	Port      int           `yaml:"port"`
	DataPath  string        `yaml:"data_path"`
	LogLevel  string        `yaml:"log_level"`
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Host:      "0.0.0.0",
		Port:      8000,
		DataPath:  "vullist.xlsx",
		LogLevel:  "info",
		CacheSize: 256,
		CacheTTL:  10 * time.Minute,
	}
}

// Load builds the configuration from command-line args (without the program
// name) and the environment as seen through getenv.
func Load(args []string, getenv func(string) string) (*Config, error) {
	fs := flag.NewFlagSet("vulnsearch", flag.ContinueOnError)

	flagged := Default()
	configFile := fs.String("config", "", "Path to a YAML configuration file")
	fs.StringVar(&flagged.Host, "host", flagged.Host, "Address to listen on")
	fs.IntVar(&flagged.Port, "port", flagged.Port, "Port to listen on")
	fs.StringVar(&flagged.DataPath, "data-path", flagged.DataPath, "Path to the vulnerability table (xlsx, csv or json)")
	fs.StringVar(&flagged.LogLevel, "log-level", flagged.LogLevel, "Log level: debug, info, warn, error")
	fs.IntVar(&flagged.CacheSize, "cache-size", flagged.CacheSize, "Number of search results to cache (0 disables)")
	fs.DurationVar(&flagged.CacheTTL, "cache-ttl", flagged.CacheTTL, "How long cached search results live")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *configFile == "" {
		*configFile = getenv("CONFIG_FILE")
	}

	config := Default()
	if *configFile != "" {
		if err := config.loadFile(*configFile); err != nil {
			return nil, err
		}
	}

	// Flags given explicitly override the file
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			config.Host = flagged.Host
		case "port":
			config.Port = flagged.Port
		case "data-path":
			config.DataPath = flagged.DataPath
		case "log-level":
			config.LogLevel = flagged.LogLevel
		case "cache-size":
			config.CacheSize = flagged.CacheSize
		case "cache-ttl":
			config.CacheTTL = flagged.CacheTTL
		}
	})

	if err := config.applyEnv(getenv); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}
	return nil
}

// Override with environment variables if set
func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("HOST"); v != "" {
		c.Host = v
	}
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT environment variable: %s", v)
		}
		c.Port = port
	}
	if v := getenv("VULLIST_PATH"); v != "" {
		c.DataPath = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("SEARCH_CACHE_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SEARCH_CACHE_SIZE environment variable: %s", v)
		}
		c.CacheSize = size
	}
	if v := getenv("SEARCH_CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SEARCH_CACHE_TTL environment variable: %s", v)
		}
		c.CacheTTL = ttl
	}
	return nil
}

// Validate checks that the configuration can be used to start the service
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.DataPath == "" {
		return errors.New("data path is required")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size must not be negative, got %d", c.CacheSize)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
