package config

import "flag"

var (
	flagConfig       = flag.String("config", "", "Path to config file")
	flagDebug        = flag.Bool("debug", false, "Enable debug logging")
	flagLegacyGroups = flag.Bool("legacy-groups", false, "Write groups in legacy mode (room index and group info only)")
	flagRawNames     = flag.Bool("raw-names", false, "Do not decode group names from Shift-JIS")
	flagWorkers      = flag.Int("workers", 0, "Files verified concurrently")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag arguments left after ParseFlags.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLegacyGroups {
		cfg.Codec.LegacyGroupWrite = true
	}
	if *flagRawNames {
		cfg.Codec.RawNames = true
	}
	if *flagWorkers > 0 {
		cfg.Verify.Workers = *flagWorkers
	}
}
