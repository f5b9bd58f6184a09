// Package config provides loading and environment overlay for ra's
// runtime configuration. It exposes a Default() baseline, JSON file
// loading, and an RA_* environment overlay.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/ra.json"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
package config
