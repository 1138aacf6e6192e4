package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Server represents a configured workflow server instance.
type Server struct {
	Name             string `mapstructure:"name"`
	URL              string `mapstructure:"url"`
	APIKey           string `mapstructure:"api_key"`
	SupportsProjects bool   `mapstructure:"supports_projects"`
	Default          bool   `mapstructure:"default"`
}

// CredentialTemplate is the target-environment definition of a logical
// credential: the type, display name and data fields to create it with.
type CredentialTemplate struct {
	Type string         `mapstructure:"type"`
	Name string         `mapstructure:"name"`
	Data map[string]any `mapstructure:"data"`
}

// Environment is a named deployment context with its own credential values
// and display-name postfix.
type Environment struct {
	Name        string                        `mapstructure:"name"`
	Postfix     string                        `mapstructure:"postfix"`
	Credentials map[string]CredentialTemplate `mapstructure:"credentials"`
}

// ReplacementRule maps environment names to the literal value that
// environment uses for one logical setting (a base URL, a bucket name, ...).
type ReplacementRule struct {
	Description string            `mapstructure:"description"`
	Values      map[string]string `mapstructure:"values"`
}

// Config represents the application configuration.
type Config struct {
	Servers       []Server                   `mapstructure:"servers"`
	Environments  map[string]Environment     `mapstructure:"environments"`
	Replacements  map[string]ReplacementRule `mapstructure:"replacements"`
	MappingFile   string                     `mapstructure:"mapping_file"`
	DefaultOutput string                     `mapstructure:"default_output"`
}

// Global configuration instance
var AppConfig Config

// LoadConfig loads configuration from file and environment.
func LoadConfig() error {
	viper.SetConfigName("flowctl")
	viper.SetConfigType("yaml")

	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.flowctl")
	viper.AddConfigPath("/etc/flowctl")

	viper.SetDefault("default_output", "table")
	viper.SetDefault("mapping_file", "resource-mappings.json")

	viper.SetEnvPrefix("FLOWCTL")
	viper.AutomaticEnv()

	// A single server can be configured entirely from the environment.
	if url := os.Getenv("FLOW_SERVER_URL"); url != "" {
		viper.SetDefault("servers", []Server{
			{
				Name:    "default",
				URL:     url,
				APIKey:  os.Getenv("FLOW_API_KEY"),
				Default: true,
			},
		})
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is normal, use defaults/env
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return fmt.Errorf("unable to decode config: %w", err)
	}

	return nil
}

// GetDefaultServer returns the default server configuration.
func GetDefaultServer() *Server {
	for i := range AppConfig.Servers {
		if AppConfig.Servers[i].Default {
			return &AppConfig.Servers[i]
		}
	}
	// Return first server if no default is set
	if len(AppConfig.Servers) > 0 {
		return &AppConfig.Servers[0]
	}
	return nil
}

// GetServer returns a server by name.
func GetServer(name string) *Server {
	for i := range AppConfig.Servers {
		if AppConfig.Servers[i].Name == name {
			return &AppConfig.Servers[i]
		}
	}
	return nil
}

// GetEnvironment returns an environment profile by key.
func GetEnvironment(key string) *Environment {
	if key == "" {
		return nil
	}
	env, ok := AppConfig.Environments[key]
	if !ok {
		return nil
	}
	if env.Name == "" {
		env.Name = strings.ToUpper(key[:1]) + key[1:]
	}
	return &env
}

// EnvironmentKeys returns the configured environment keys, sorted.
func EnvironmentKeys() []string {
	keys := make([]string, 0, len(AppConfig.Environments))
	for k := range AppConfig.Environments {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AllPostfixes returns every non-empty postfix configured across
// environments. The credential mapper strips all of these before appending
// the target environment's own postfix.
func AllPostfixes() []string {
	var postfixes []string
	for _, env := range AppConfig.Environments {
		if p := strings.TrimSpace(env.Postfix); p != "" {
			postfixes = append(postfixes, p)
		}
	}
	sort.Strings(postfixes)
	return postfixes
}

// SaveConfig saves the current configuration to file.
func SaveConfig() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".flowctl")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "flowctl.yaml")

	viper.Set("servers", AppConfig.Servers)
	viper.Set("mapping_file", AppConfig.MappingFile)
	viper.Set("default_output", AppConfig.DefaultOutput)

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// InitConfig creates an initial configuration file with one server.
func InitConfig(server Server) error {
	AppConfig.Servers = append(AppConfig.Servers, server)
	AppConfig.DefaultOutput = "table"
	AppConfig.MappingFile = "resource-mappings.json"
	return SaveConfig()
}
