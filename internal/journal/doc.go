// Package journal keeps a SQLite record of backfill runs.
//
// Each run gets a row with its window, cadence and final counts, and every
// scheduled entry gets a row with its outcome. Commits already written to
// a repository are never rolled back, so the journal is how an interrupted
// or partially failed run can be inspected afterwards (see the history
// command).
package journal
