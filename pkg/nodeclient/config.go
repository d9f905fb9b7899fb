// Copyright (C) 2017 ScyllaDB

package nodeclient

import (
	"net/url"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// BackoffConfig specifies request retry behavior.
type BackoffConfig struct {
	WaitMin    time.Duration `yaml:"wait_min" json:"wait_min"`
	WaitMax    time.Duration `yaml:"wait_max" json:"wait_max"`
	MaxRetries uint64        `yaml:"max_retries" json:"max_retries"`
	Multiplier float64       `yaml:"multiplier" json:"multiplier"`
}

// Config specifies the node REST API client configuration.
type Config struct {
	// BaseURL is the address of the node's management API.
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	Backoff BackoffConfig `yaml:"backoff" json:"backoff"`
}

// DefaultConfig returns a Config initialized with default values.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://127.0.0.1:10000",
		Timeout: 30 * time.Second,
		Backoff: BackoffConfig{
			WaitMin:    time.Second,
			WaitMax:    30 * time.Second,
			MaxRetries: 5,
			Multiplier: 2,
		},
	}
}

// Validate checks if all the fields are properly set.
func (c Config) Validate() error {
	var err error

	if c.BaseURL == "" {
		err = multierr.Append(err, errors.New("missing base_url"))
	} else if _, e := url.Parse(c.BaseURL); e != nil {
		err = multierr.Append(err, errors.Wrap(e, "invalid base_url"))
	}
	if c.Timeout <= 0 {
		err = multierr.Append(err, errors.New("invalid timeout, must be > 0"))
	}
	if c.Backoff.WaitMin <= 0 {
		err = multierr.Append(err, errors.New("invalid backoff.wait_min, must be > 0"))
	}
	if c.Backoff.WaitMax < c.Backoff.WaitMin {
		err = multierr.Append(err, errors.New("invalid backoff.wait_max, must be >= backoff.wait_min"))
	}
	if c.Backoff.Multiplier <= 1 {
		err = multierr.Append(err, errors.New("invalid backoff.multiplier, must be > 1"))
	}

	return err
}
