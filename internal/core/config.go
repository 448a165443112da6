package core

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"
)

type Database struct {
	Type             string `yaml:"type" validate:"required"`
	ConnectionString string `yaml:"connectionString" validate:"required"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ServiceConfig struct {
	Port                int      `yaml:"port" validate:"min=1,max=65535"`
	Database            Database `yaml:"database"`
	ImagesDir           string   `yaml:"imagesDir" validate:"required"`
	ThumbnailMaxWidth   int      `yaml:"thumbnailMaxWidth" validate:"min=1"`
	ThumbnailMaxHeight  int      `yaml:"thumbnailMaxHeight" validate:"min=1"`
	CaseSensitiveSearch bool     `yaml:"caseSensitiveSearch"`
	Redis               Redis    `yaml:"redis"`
}

// DefaultConfig returns the configuration used when no config file is present.
func DefaultConfig() *ServiceConfig {
	return &ServiceConfig{
		Port: 3000,
		Database: Database{
			Type:             "sqlite",
			ConnectionString: "images.db",
		},
		ImagesDir:           "images",
		ThumbnailMaxWidth:   100,
		ThumbnailMaxHeight:  100,
		CaseSensitiveSearch: true,
	}
}

// LoadConfig loads configuration from the specified YAML file. A missing file
// is not an error; defaults apply and the environment can still override the
// connection string (DATABASE_URL) and port (PORT).
func LoadConfig(configPath string) (*ServiceConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func applyEnvOverrides(config *ServiceConfig) error {
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		config.Database.ConnectionString = databaseURL
	}
	if port := os.Getenv("PORT"); port != "" {
		parsed, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT value %q: %w", port, err)
		}
		config.Port = parsed
	}
	return nil
}
