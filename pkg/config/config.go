// Copyright (C) 2017 ScyllaDB

// Package config defines the server configuration, loaded from YAML files
// layered over defaults.
package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/scylladb/autorepair/pkg/nodeclient"
	"github.com/scylladb/autorepair/pkg/service/autorepair"
	"github.com/scylladb/autorepair/pkg/util/cfgutil"
)

// DBConfig specifies the coordination database configuration options.
type DBConfig struct {
	Hosts             []string      `yaml:"hosts"`
	User              string        `yaml:"user"`
	Password          string        `yaml:"password"`
	LocalDC           string        `yaml:"local_dc"`
	Keyspace          string        `yaml:"keyspace"`
	ReplicationFactor int           `yaml:"replication_factor"`
	Timeout           time.Duration `yaml:"timeout"`
	TokenAware        bool          `yaml:"token_aware"`
}

// Config contains configuration structure for the auto-repair server.
type Config struct {
	HTTP       string            `yaml:"http"`
	Prometheus string            `yaml:"prometheus"`
	Logger     LogConfig         `yaml:"logger"`
	Database   DBConfig          `yaml:"database"`
	Node       nodeclient.Config `yaml:"node"`
	Repair     autorepair.Config `yaml:"repair"`
}

// DefaultConfig returns a Config initialized with default values.
func DefaultConfig() *Config {
	return &Config{
		HTTP:       "127.0.0.1:5080",
		Prometheus: ":5090",
		Logger:     DefaultLogConfig(),
		Database: DBConfig{
			Hosts:             []string{"127.0.0.1"},
			Keyspace:          "autorepair",
			ReplicationFactor: 1,
			Timeout:           600 * time.Millisecond,
			TokenAware:        true,
		},
		Node:   nodeclient.DefaultConfig(),
		Repair: autorepair.DefaultConfig(),
	}
}

// ParseConfigFiles takes list of configuration file paths and returns parsed
// config struct with merged configuration from all provided files.
func ParseConfigFiles(files []string) (*Config, error) {
	c := DefaultConfig()
	return c, cfgutil.ParseYAML(c, files...)
}

// Validate checks if config contains correct values.
func (c *Config) Validate() error {
	if c.HTTP == "" {
		return errors.New("missing http")
	}
	if len(c.Database.Hosts) == 0 {
		return errors.New("missing database.hosts")
	}
	if c.Database.Keyspace == "" {
		return errors.New("missing database.keyspace")
	}
	if c.Database.ReplicationFactor <= 0 {
		return errors.New("invalid database.replication_factor <= 0")
	}
	if err := c.Node.Validate(); err != nil {
		return errors.Wrap(err, "node")
	}
	if err := c.Repair.Validate(); err != nil {
		return errors.Wrap(err, "repair")
	}

	return nil
}
