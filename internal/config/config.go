// Package config loads project configuration for extraction runs: the
// twbmeta.yaml file with output and server defaults, plus server
// credentials from the environment (optionally seeded from a .env file).
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// ConfigFileName is the project configuration file looked up in the
// working directory.
const ConfigFileName = "twbmeta.yaml"

// Environment variables carrying server credentials. Never stored in
// twbmeta.yaml; .env or the process environment only.
const (
	EnvTokenName   = "TWBMETA_TOKEN_NAME"
	EnvTokenSecret = "TWBMETA_TOKEN_SECRET"
)

// OutputConfig sets report generation defaults.
type OutputConfig struct {
	Directory string   `yaml:"directory"`
	Formats   []string `yaml:"formats"`
}

// ServerConfig points at the remote metadata service used for comparison.
// Credentials are intentionally absent: they come from the environment.
type ServerConfig struct {
	URL        string `yaml:"url"`
	Site       string `yaml:"site"`
	APIVersion string `yaml:"api_version"`
}

// ProjectConfig is the twbmeta.yaml document.
type ProjectConfig struct {
	Output  OutputConfig `yaml:"output"`
	Server  ServerConfig `yaml:"server"`
	Verbose bool         `yaml:"verbose"`
}

// Default returns the configuration used when no twbmeta.yaml exists.
func Default() *ProjectConfig {
	return &ProjectConfig{
		Output: OutputConfig{
			Directory: ".",
			Formats:   []string{"json"},
		},
		Server: ServerConfig{
			APIVersion: "3.21",
		},
	}
}

// Load reads twbmeta.yaml from dir. Missing file returns ErrConfigNotFound;
// callers typically fall back to Default.
func Load(dir string) (*ProjectConfig, error) {
	data, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault reads twbmeta.yaml from dir, falling back to Default when
// the file does not exist. Other read or parse failures still error.
func LoadOrDefault(dir string) (*ProjectConfig, error) {
	cfg, err := Load(dir)
	if errors.Is(err, ErrConfigNotFound) {
		return Default(), nil
	}
	return cfg, err
}

// Credentials holds the token pair for the remote metadata service.
type Credentials struct {
	TokenName   string
	TokenSecret string
}

// LoadCredentials reads server credentials from the environment, seeding it
// from dir/.env first when present. A missing .env is not an error; missing
// variables surface as empty fields for the caller to reject.
func LoadCredentials(dir string) (Credentials, error) {
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return Credentials{}, err
		}
	}

	return Credentials{
		TokenName:   os.Getenv(EnvTokenName),
		TokenSecret: os.Getenv(EnvTokenSecret),
	}, nil
}
