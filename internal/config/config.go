package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig            `json:"server"`
	Database DatabaseConfig          `json:"database"`
	Plugins  map[string]PluginConfig `json:"plugins"`
}

// ServerConfig contains the gateway and health listener settings
type ServerConfig struct {
	// ListenAddr serves the builder websocket and dispatch endpoints.
	ListenAddr string `json:"listen_addr"`
	// HealthAddr serves health checks and Prometheus metrics.
	HealthAddr string `json:"health_addr"`
	// AllowedOrigins restricts websocket upgrades; empty allows any origin.
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
}

// DatabaseConfig contains PostgreSQL connection settings for the audit
// plugin. An empty host disables audit persistence.
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// PluginConfig represents a plugin's configuration as raw JSON
type PluginConfig json.RawMessage

// UnmarshalJSON implements json.Unmarshaler for PluginConfig
func (p *PluginConfig) UnmarshalJSON(data []byte) error {
	*p = PluginConfig(data)
	return nil
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8090",
			HealthAddr: ":8080",
		},
		Database: DatabaseConfig{
			Port: 5432,
		},
		Plugins: make(map[string]PluginConfig),
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Printf("Failed to close config file: %v", err)
		}
	}()

	config := DefaultConfig()
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// MergeWithFlags merges command-line flag values into the configuration.
// Command-line flags take precedence over config file values.
func (c *Config) MergeWithFlags(listenAddr, healthAddr, dbHost string, dbPort int, dbName, dbUser, dbPass string) {
	if listenAddr != "" {
		c.Server.ListenAddr = listenAddr
	}
	if healthAddr != "" {
		c.Server.HealthAddr = healthAddr
	}
	if dbHost != "" {
		c.Database.Host = dbHost
	}
	if dbPort > 0 {
		c.Database.Port = dbPort
	}
	if dbName != "" {
		c.Database.Database = dbName
	}
	if dbUser != "" {
		c.Database.User = dbUser
	}
	if dbPass != "" {
		c.Database.Password = dbPass
	}
}

// GetPluginConfig returns the configuration for a specific plugin
func (c *Config) GetPluginConfig(name string) json.RawMessage {
	if config, exists := c.Plugins[name]; exists {
		return json.RawMessage(config)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server listen address is required")
	}
	if c.Server.HealthAddr == "" {
		return fmt.Errorf("health listen address is required")
	}
	if c.Server.ListenAddr == c.Server.HealthAddr {
		return fmt.Errorf("server and health listen addresses must differ")
	}
	// Database settings are only required when audit persistence is enabled.
	if c.Database.Host != "" {
		if c.Database.Port <= 0 {
			return fmt.Errorf("database port must be positive")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
	}
	return nil
}

// ConnString builds a pgx-compatible connection string, or empty when audit
// persistence is disabled.
func (c *Config) ConnString() string {
	if c.Database.Host == "" {
		return ""
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.Database)
}
