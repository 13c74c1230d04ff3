// Package logger provides logging facilities for gitbackfill.
//
// Two audiences are served by one Logger. Internal messages (Info, Warning,
// Error) are written as structured slog records to a debug log file when
// debug logging is enabled. User-facing messages (InfoToUser, WarningToUser,
// Success, StatusMessage) are always printed, with prefixes styled through
// lipgloss. Styling degrades to plain text when the writer is not a terminal.
//
// # Usage
//
//	log := logger.New(cfg.Debug, cfg.LogFile, cfg.Verbose)
//	defer log.Close()
//
//	log.Info("entry %d scheduled at %s", seq, ts)
//	log.Success("%s: %s", day, message)
//	log.WarningToUser("could not modify %s: %v", path, err)
//
// The DefaultLogger is safe for concurrent use.
package logger
