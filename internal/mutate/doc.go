// Package mutate applies the small, format-aware edits that give each
// backfilled commit something to record.
//
// The edit depends only on the catalog.Kind of the target:
//
//   - code and style files get a comment block in their own comment syntax
//   - JSON and YAML files get an update marker merged into their top-level
//     object, either a one-time scalar timestamp or an appended list record,
//     and are rewritten with their key order intact; files that do not
//     parse get a comment line instead
//   - narrative files get a dated section
//   - anything else gets a plain "Update:" line
//
// A Mutator never fails a run. When an edit cannot be made it writes an
// update_<n>.txt artifact under Options.FallbackDir and reports the original
// error in Result.Err.
package mutate
