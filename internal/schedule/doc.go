// Package schedule produces the dated entries of a backfill run.
//
// A Generator walks a Window in day or week units according to a Policy and
// yields Entry values lazily, in non-decreasing timestamp order. Day mode
// draws a commit count per calendar day from weighted distributions, with
// weekends mostly idle. Week mode picks a handful of active weekdays per
// week and a few commits on each, and labels every entry "Week N".
//
// Every entry lies inside the window: samples that would land before its
// start or after its end are dropped, never clipped. Generation also stops
// after Policy.MaxUnits units, whatever the window length.
//
// Generators are single-use and not safe for concurrent use.
package schedule
