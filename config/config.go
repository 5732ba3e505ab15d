package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/bsc-dataclay/extrae_registrar/paraver"
	"github.com/bsc-dataclay/extrae_registrar/registrar"
	"gopkg.in/yaml.v2"
)

// Config defines registrar configuration
type Config struct {
	Task    Task    `yaml:"task"`
	Tracing Tracing `yaml:"tracing"`
}

// Task is the identity of this process among the processes of a job
type Task struct {
	ID    int `yaml:"id"`
	Count int `yaml:"count"`
	// Allocate takes the id from an allocator starting at ID and sets Count to id + 1
	Allocate bool `yaml:"allocate"`
}

// Tracing configures method tracing
type Tracing struct {
	Enabled    bool            `yaml:"enabled"`
	Service    string          `yaml:"service"`
	ValuesFile string          `yaml:"values_file"`
	TracesDir  string          `yaml:"traces_dir"`
	Options    paraver.Options `yaml:"options"`
}

// Default returns the configuration used when no config file is given
func Default() Config {
	return Config{
		Task: Task{ID: 0, Count: 1},
		Tracing: Tracing{
			Service: "dataclay",
			Options: paraver.PthreadsDisabled(),
		},
	}
}

// ParseConfig reads config from a yaml file on top of defaults
func ParseConfig(path string) (Config, error) {
	config := Default()

	fd, err := os.Open(path)
	if err != nil {
		return config, fmt.Errorf("error opening config file %q: %v", path, err)
	}

	defer fd.Close()

	err = yaml.NewDecoder(fd).Decode(&config)
	if err != nil {
		return config, fmt.Errorf("error parsing config file %q: %v", path, err)
	}

	return config, nil
}

// ValidateConfig checks that config describes a usable task identity and tracing setup
func ValidateConfig(c *Config) error {
	if err := registrar.Validate(c.Task.ID, c.Task.Count); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	if c.Task.ID >= c.Task.Count && !c.Task.Allocate {
		return fmt.Errorf("task id %d does not fit in %d tasks", c.Task.ID, c.Task.Count)
	}

	if c.Tracing.Enabled && c.Tracing.ValuesFile == "" {
		return errors.New("tracing is enabled but no values_file is set")
	}

	if c.Tracing.Options&^paraver.EnableAllOptions != 0 {
		return fmt.Errorf("unknown tracing options in %d", c.Tracing.Options)
	}

	return nil
}
