// File: control/config.go
// License: Apache-2.0
//
// Tunables for the request transmission layer. All knobs default to the
// reference values and may be overridden from a TOML file.

package control

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config carries the layer's tuning knobs.
type Config struct {
	// RequestTimeoutMS is the response deadline for a transmitted
	// request, in milliseconds.
	RequestTimeoutMS int `toml:"request_timeout_ms"`

	// TimeoutResolutionMS is the reaper's coalescing window: wakes
	// closer together than this are merged, in milliseconds.
	TimeoutResolutionMS int `toml:"timeout_resolution_ms"`

	// MaxPending bounds the number of requests concurrently handed to
	// the transport.
	MaxPending int `toml:"max_pending"`

	// TxBatch bounds the number of admissions attempted per scheduler
	// wake, to stay fair on a shared executor.
	TxBatch int `toml:"tx_batch"`

	// Workers sizes the executor pool. Zero selects runtime.NumCPU().
	Workers int `toml:"workers"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		RequestTimeoutMS:    3000,
		TimeoutResolutionMS: 50,
		MaxPending:          3,
		TxBatch:             10,
		Workers:             0,
	}
}

// Load reads a TOML config file, filling unset fields with defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("control: load %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the layer cannot operate with.
func (c Config) Validate() error {
	if c.RequestTimeoutMS <= 0 {
		return fmt.Errorf("control: request_timeout_ms must be positive, got %d", c.RequestTimeoutMS)
	}
	if c.TimeoutResolutionMS <= 0 {
		return fmt.Errorf("control: timeout_resolution_ms must be positive, got %d", c.TimeoutResolutionMS)
	}
	if c.MaxPending <= 0 {
		return fmt.Errorf("control: max_pending must be positive, got %d", c.MaxPending)
	}
	if c.TxBatch <= 0 {
		return fmt.Errorf("control: tx_batch must be positive, got %d", c.TxBatch)
	}
	if c.Workers < 0 {
		return fmt.Errorf("control: workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// RequestTimeout returns the response deadline as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// TimeoutResolution returns the reaper coalescing window as a duration.
func (c Config) TimeoutResolution() time.Duration {
	return time.Duration(c.TimeoutResolutionMS) * time.Millisecond
}
