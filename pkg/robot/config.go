package robot

import (
	"encoding/json"
	"fmt"
	"os"
)

const DefaultConfigFile = "lerobot.json"

// Defaults applied by LoadConfigFrom when fields are unset.
const (
	DefaultHz        = 60
	DefaultTolerance = 2.0
)

// Config holds the robot configuration
type Config struct {
	Leader   ArmConfig `json:"leader"`
	Follower ArmConfig `json:"follower"`
	// Hz is the control loop frequency.
	Hz int `json:"hz,omitempty"`
	// Mirror inverts shoulder_pan and wrist_roll when following.
	Mirror bool `json:"mirror,omitempty"`
	// Tolerance is how close, in normalized units, a move must get to its
	// target before it counts as done.
	Tolerance float64 `json:"tolerance,omitempty"`
}

// ArmConfig holds configuration for a single arm
type ArmConfig struct {
	Port        string      `json:"port"`
	Calibration Calibration `json:"calibration,omitempty"`
}

// IsCalibrated returns true if the arm has calibration data
func (a *ArmConfig) IsCalibrated() bool {
	return len(a.Calibration) > 0
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Hz <= 0 {
		c.Hz = DefaultHz
	}
	if c.Tolerance <= 0 {
		c.Tolerance = DefaultTolerance
	}
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
