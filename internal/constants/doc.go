// Package constants provides application-wide fixed values for gitbackfill.
//
// It holds the two built-in presets: the file catalogs and message corpora
// used when no catalog file is configured, and the directories that receive
// fallback artifacts. Keeping them here lets the catalog, config and CLI
// packages agree on the same defaults.
//
// # Usage
//
//	cat, err := catalog.New(constants.WeeklyFiles, constants.WeeklyMessages)
package constants
