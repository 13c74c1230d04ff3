// Package backfill drives a whole run: it pulls entries from a schedule
// generator, edits the entry's file, commits it with the entry's date and
// keeps count of what happened.
//
// Entries are processed strictly one after another. Cancelling the run
// context never aborts the entry in progress; the run stops at the next
// entry boundary and everything already committed stays in the
// repository. Progress and the final report go through the logger, and
// each outcome is optionally recorded in a journal.
package backfill
