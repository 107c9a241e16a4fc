package config

import (
	"golang-stock-scanner/pkg/config"
)

// Scheduler holds scheduler-specific configuration.
type Scheduler struct {
	PollingInterval string `mapstructure:"polling_interval"`
}

// Config holds the full configuration for the scheduling service.
type Config struct {
	App       config.App      `mapstructure:"app"`
	Logger    config.Logger   `mapstructure:"logger"`
	Database  config.Database `mapstructure:"database"`
	Redis     config.Redis    `mapstructure:"redis"`
	Scheduler Scheduler       `mapstructure:"scheduler"`
}

// Load loads the scheduler configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
