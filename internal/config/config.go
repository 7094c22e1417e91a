// Package config handles dzbtool configuration loading and management.
package config

import "github.com/Faultbox/dzbkit/pkg/dzb"

// Config holds all tool settings.
type Config struct {
	Codec   CodecConfig   `yaml:"codec"`
	Verify  VerifyConfig  `yaml:"verify"`
	Logging LoggingConfig `yaml:"logging"`
}

// CodecConfig selects how DZB files are written and how group names are decoded.
type CodecConfig struct {
	LegacyGroupWrite bool `yaml:"legacy_group_write"` // Write only room index and group info
	RawNames         bool `yaml:"raw_names"`          // Keep group names as raw bytes
}

// VerifyConfig holds round-trip verification settings.
type VerifyConfig struct {
	Workers int `yaml:"workers"` // Files checked concurrently
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Codec: CodecConfig{
			LegacyGroupWrite: false,
			RawNames:         false,
		},
		Verify: VerifyConfig{
			Workers: 4,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// CodecOptions converts the codec section into options for dzb.Parse.
func (c *Config) CodecOptions() []dzb.Option {
	var opts []dzb.Option
	if c.Codec.LegacyGroupWrite {
		opts = append(opts, dzb.WithLegacyGroupWrite())
	}
	if c.Codec.RawNames {
		opts = append(opts, dzb.WithRawNames())
	}
	return opts
}

// WorkerLimit returns the verify concurrency, never less than one.
func (c *Config) WorkerLimit() int {
	if c.Verify.Workers < 1 {
		return 1
	}
	return c.Verify.Workers
}
