package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"parcel-relay-go/internal/models"

	"gopkg.in/yaml.v2"
)

func LoadNetworkConfig(networkFile string) (models.NetworkConfig, error) {
	var networkPath string
	if filepath.IsAbs(networkFile) {
		networkPath = networkFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return models.NetworkConfig{}, fmt.Errorf("failed to get working directory: %w", err)
		}
		networkPath = filepath.Join(wd, networkFile)
	}

	data, err := os.ReadFile(networkPath)
	if err != nil {
		return models.NetworkConfig{}, fmt.Errorf("unable to read %s: %w", networkFile, err)
	}

	return ParseNetworkConfig(data)
}

// ParseNetworkConfig decodes and validates a network document.
func ParseNetworkConfig(data []byte) (models.NetworkConfig, error) {
	var config models.NetworkConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return models.NetworkConfig{}, fmt.Errorf("unable to parse network config: %w", err)
	}

	if len(config.Depots) == 0 {
		return models.NetworkConfig{}, fmt.Errorf("network config has no depots")
	}

	seen := make(map[string]bool, len(config.Depots))
	for i, depot := range config.Depots {
		if depot.Id == "" {
			return models.NetworkConfig{}, fmt.Errorf("depot at index %d missing id", i)
		}
		if seen[depot.Id] {
			return models.NetworkConfig{}, fmt.Errorf("duplicate depot id %s", depot.Id)
		}
		seen[depot.Id] = true
	}

	rates := make(map[string]int64, len(config.Rates))
	for transportType, rate := range config.Rates {
		if rate <= 0 {
			return models.NetworkConfig{}, fmt.Errorf("rate for %s must be positive, got %d", transportType, rate)
		}
		rates[strings.ToLower(strings.TrimSpace(transportType))] = rate
	}
	config.Rates = rates

	for i, transporter := range config.FallbackRoster {
		if transporter.Id == "" {
			return models.NetworkConfig{}, fmt.Errorf("fallback transporter at index %d missing id", i)
		}
	}

	return config, nil
}
