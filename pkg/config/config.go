// Copyright (c) 2026 Tigera, Inc. All rights reserved.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

// EnvPrefix is the prefix of every environment variable read by LoadConfig.
const EnvPrefix = "POLICYQ"

// Config contains the environment based configuration of the policyq CLI and query server. Command line flags
// override these values.
type Config struct {
	// LogLevel
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// FullTrace records the objects considered but not matched, in addition to the matches.
	FullTrace bool `envconfig:"FULL_TRACE" default:"false"`

	// Query server.
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`

	// Sources of the snapshot. Manifests take precedence over the cluster when both are specified.
	Kubeconfig      string        `envconfig:"KUBECONFIG"`
	Manifests       []string      `envconfig:"MANIFESTS"`
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"0s"`

	// Parsed values.
	ParsedLogLevel log.Level `ignored:"true"`
}

func LoadConfig() (*Config, error) {
	config := &Config{}
	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return nil, err
	}

	level, err := log.ParseLevel(config.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level specified in environment variable %s_LOG_LEVEL is not valid: %s",
			EnvPrefix, config.LogLevel,
		)
	}
	config.ParsedLogLevel = level

	if config.RefreshInterval < 0 {
		return nil, fmt.Errorf("refresh interval specified in environment variable %s_REFRESH_INTERVAL cannot be negative: %s",
			EnvPrefix, config.RefreshInterval,
		)
	}

	// Drop empty entries left by a trailing comma.
	manifests := config.Manifests[:0]
	for _, m := range config.Manifests {
		if m = strings.TrimSpace(m); m != "" {
			manifests = append(manifests, m)
		}
	}
	config.Manifests = manifests

	return config, nil
}

// SetLogLevel replaces the log level, as the log level flag does.
func (c *Config) SetLogLevel(logLevel string) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("log level %q is not valid", logLevel)
	}
	c.LogLevel = logLevel
	c.ParsedLogLevel = level
	return nil
}

// HasSource returns true if either manifests or a cluster are configured.
func (c *Config) HasSource() bool {
	return len(c.Manifests) > 0 || c.Kubeconfig != ""
}
