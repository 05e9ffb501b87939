package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Reference cadences and limits, applied when the config file leaves
// them unset.
const (
	DefaultConcurrency  = 10
	DefaultPowerPoll    = 5 * time.Second
	DefaultPowerTimeout = 10 * time.Minute
	DefaultTaskPoll     = 10 * time.Second
	DefaultJobPoll      = 30 * time.Second
	DefaultJobTimeout   = 30 * time.Minute
	DefaultSettleDelay  = 15 * time.Second
)

// BatchConfig holds user-facing batch behavior settings.
// These are non-sensitive settings that customize which VMs a run acts
// on and how it paces remote operations. Users can modify these without
// redeployment.
// Source: TOML configuration file
type BatchConfig struct {
	Batch     BatchSettings     `toml:"batch"`
	Intervals IntervalSettings  `toml:"intervals"`
	Retention RetentionSettings `toml:"retention"`
	History   HistorySettings   `toml:"history"`
}

type BatchSettings struct {
	Tag                 string   `toml:"tag"`
	Concurrency         int      `toml:"concurrency"`
	ShutdownVMs         []string `toml:"shutdown_vms"`
	SnapshotName        string   `toml:"snapshot_name"`
	SnapshotDescription string   `toml:"snapshot_description"`
}

type IntervalSettings struct {
	PowerPollSeconds    int `toml:"power_poll_seconds"`
	PowerTimeoutSeconds int `toml:"power_timeout_seconds"`
	TaskPollSeconds     int `toml:"task_poll_seconds"`
	JobPollSeconds      int `toml:"job_poll_seconds"`
	JobTimeoutSeconds   int `toml:"job_timeout_seconds"`
	SettleSeconds       int `toml:"settle_seconds"`
}

type RetentionSettings struct {
	MaxSnapshots int `toml:"max_snapshots"`
}

// HistorySettings configures the optional run-history store. An empty
// path disables persistence.
type HistorySettings struct {
	Path string `toml:"path"`
}

// LoadBatchConfig loads batch configuration from a TOML file.
func LoadBatchConfig(path string) (*BatchConfig, error) {
	var cfg BatchConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load batch config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded settings.
func (c *BatchConfig) Validate() error {
	if c.Batch.Concurrency < 0 {
		return fmt.Errorf("batch.concurrency must be non-negative")
	}
	if c.Retention.MaxSnapshots < 0 {
		return fmt.Errorf("retention.max_snapshots must be non-negative")
	}
	return nil
}

// Concurrency returns the configured cap, or the reference default.
func (c *BatchConfig) Concurrency() int {
	if c.Batch.Concurrency > 0 {
		return c.Batch.Concurrency
	}
	return DefaultConcurrency
}

func (i IntervalSettings) PowerPoll() time.Duration {
	return secondsOr(i.PowerPollSeconds, DefaultPowerPoll)
}

func (i IntervalSettings) PowerTimeout() time.Duration {
	return secondsOr(i.PowerTimeoutSeconds, DefaultPowerTimeout)
}

func (i IntervalSettings) TaskPoll() time.Duration {
	return secondsOr(i.TaskPollSeconds, DefaultTaskPoll)
}

func (i IntervalSettings) JobPoll() time.Duration {
	return secondsOr(i.JobPollSeconds, DefaultJobPoll)
}

func (i IntervalSettings) JobTimeout() time.Duration {
	return secondsOr(i.JobTimeoutSeconds, DefaultJobTimeout)
}

func (i IntervalSettings) Settle() time.Duration {
	return secondsOr(i.SettleSeconds, DefaultSettleDelay)
}

func secondsOr(s int, def time.Duration) time.Duration {
	if s > 0 {
		return time.Duration(s) * time.Second
	}
	return def
}
