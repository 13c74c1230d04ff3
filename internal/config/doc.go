// Package config resolves gitbackfill settings.
//
// Values are layered with viper, highest first: command-line flags,
// GITBACKFILL_* environment variables, a config file and built-in
// defaults. The config file is --config if given, else .gitbackfill.yaml
// in the repository, else $XDG_CONFIG_HOME/gitbackfill/config.yaml. Only
// the config file can tune the cadence policy beyond mode and window
// length:
//
//	mode: week
//	window_days: 90
//	policy:
//	  commits_per_day_max: 4
//	  work_start_hour: 10
//
// Finalize fills in everything that depends on the mode or the
// repository, such as the preset, marker style and XDG log path.
package config
