package schedule

import (
	"fmt"
	"time"

	"github.com/bashhack/gitbackfill/internal/errors"
)

// Mode selects how the window is partitioned.
type Mode string

const (
	// ModeDay samples a commit count for every calendar day.
	ModeDay Mode = "day"

	// ModeWeek samples active days per week, then commits per active day.
	ModeWeek Mode = "week"
)

const (
	// DefaultWindowDays is the length of the backfilled window.
	DefaultWindowDays = 120

	// DefaultMaxWeeks bounds week-mode generation regardless of the window.
	DefaultMaxWeeks = 20
)

// Policy describes how entries are distributed over the window.
type Policy struct {
	Mode       Mode `mapstructure:"mode"`
	WindowDays int  `mapstructure:"window_days"`

	// Day mode. Index i of a weights slice is the relative weight of i commits.
	WeekdayWeights         []float64 `mapstructure:"weekday_weights"`
	WeekendWeights         []float64 `mapstructure:"weekend_weights"`
	WeekendSkipProbability float64   `mapstructure:"weekend_skip_probability"`

	// Week mode. Active days are offsets 0..ActiveDayOffsetMax from the week start.
	ActiveDaysMin      int `mapstructure:"active_days_min"`
	ActiveDaysMax      int `mapstructure:"active_days_max"`
	ActiveDayOffsetMax int `mapstructure:"active_day_offset_max"`
	CommitsPerDayMin   int `mapstructure:"commits_per_day_min"`
	CommitsPerDayMax   int `mapstructure:"commits_per_day_max"`

	// Time of day is sampled from WorkStartHour:00:00 to WorkEndHour:59:59.
	WorkStartHour int `mapstructure:"work_start_hour"`
	WorkEndHour   int `mapstructure:"work_end_hour"`

	// MaxUnits caps the days (day mode) or weeks (week mode) processed.
	// Zero picks the mode's default.
	MaxUnits int `mapstructure:"max_units"`

	// AnnotateLabel appends " - Week N" to week-mode messages.
	AnnotateLabel bool `mapstructure:"annotate_label"`
}

// DefaultDayPolicy returns the day-mode cadence: busy weekdays, mostly idle weekends.
func DefaultDayPolicy() Policy {
	return Policy{
		Mode:                   ModeDay,
		WindowDays:             DefaultWindowDays,
		WeekdayWeights:         []float64{0.1, 0.5, 0.3, 0.1},
		WeekendWeights:         []float64{0.6, 0.4},
		WeekendSkipProbability: 0.7,
		ActiveDaysMin:          2,
		ActiveDaysMax:          4,
		ActiveDayOffsetMax:     4,
		CommitsPerDayMin:       1,
		CommitsPerDayMax:       3,
		WorkStartHour:          9,
		WorkEndHour:            18,
	}
}

// DefaultWeekPolicy returns the week-mode cadence: 2-4 active weekdays, 1-3 commits each.
func DefaultWeekPolicy() Policy {
	p := DefaultDayPolicy()
	p.Mode = ModeWeek
	p.MaxUnits = DefaultMaxWeeks
	p.AnnotateLabel = true
	return p
}

// PolicyFor returns the default policy of the named mode.
func PolicyFor(mode Mode) (Policy, error) {
	switch mode {
	case ModeDay:
		return DefaultDayPolicy(), nil
	case ModeWeek:
		return DefaultWeekPolicy(), nil
	}
	return Policy{}, invalid("mode", mode, "must be \"day\" or \"week\"")
}

func invalid(param string, value interface{}, msg string) error {
	return errors.NewConfigError(param, value, errors.Wrap(errors.ErrInvalidConfiguration, msg))
}

// Validate sanity-checks the policy before generation.
func (p Policy) Validate() error {
	if p.Mode != ModeDay && p.Mode != ModeWeek {
		return invalid("mode", p.Mode, "must be \"day\" or \"week\"")
	}
	if p.WindowDays < 1 {
		return invalid("window_days", p.WindowDays, "must be at least 1")
	}
	if p.WorkStartHour < 0 || p.WorkEndHour > 23 || p.WorkStartHour > p.WorkEndHour {
		return invalid("work_hours", fmt.Sprintf("%d-%d", p.WorkStartHour, p.WorkEndHour), "must satisfy 0 <= start <= end <= 23")
	}
	if p.MaxUnits < 0 {
		return invalid("max_units", p.MaxUnits, "cannot be negative")
	}

	if p.Mode == ModeDay {
		if err := validateWeights("weekday_weights", p.WeekdayWeights); err != nil {
			return err
		}
		if err := validateWeights("weekend_weights", p.WeekendWeights); err != nil {
			return err
		}
		if p.WeekendSkipProbability < 0 || p.WeekendSkipProbability > 1 {
			return invalid("weekend_skip_probability", p.WeekendSkipProbability, "must be within [0, 1]")
		}
		return nil
	}

	if p.ActiveDaysMin < 0 || p.ActiveDaysMin > p.ActiveDaysMax {
		return invalid("active_days", fmt.Sprintf("%d-%d", p.ActiveDaysMin, p.ActiveDaysMax), "must satisfy 0 <= min <= max")
	}
	if p.ActiveDayOffsetMax < 0 || p.ActiveDayOffsetMax > 6 {
		return invalid("active_day_offset_max", p.ActiveDayOffsetMax, "must be within [0, 6]")
	}
	if p.CommitsPerDayMin < 0 || p.CommitsPerDayMin > p.CommitsPerDayMax {
		return invalid("commits_per_day", fmt.Sprintf("%d-%d", p.CommitsPerDayMin, p.CommitsPerDayMax), "must satisfy 0 <= min <= max")
	}
	return nil
}

func validateWeights(param string, weights []float64) error {
	if len(weights) == 0 {
		return invalid(param, nil, "at least one weight is required")
	}
	var sum float64
	for _, w := range weights {
		if w < 0 {
			return invalid(param, weights, "weights cannot be negative")
		}
		sum += w
	}
	if sum <= 0 {
		return invalid(param, weights, "weights must not all be zero")
	}
	return nil
}

// maxUnits resolves the safety bound.
func (p Policy) maxUnits() int {
	if p.MaxUnits > 0 {
		return p.MaxUnits
	}
	if p.Mode == ModeWeek {
		return DefaultMaxWeeks
	}
	return p.WindowDays + 1
}

// Window is the closed time range entries must fall in.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowEndingAt returns the window of the given length ending at end.
func WindowEndingAt(end time.Time, days int) Window {
	return Window{Start: end.AddDate(0, 0, -days), End: end}
}

// Contains reports whether t lies within [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
