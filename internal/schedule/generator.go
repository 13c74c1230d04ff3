package schedule

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/bashhack/gitbackfill/internal/catalog"
	"github.com/bashhack/gitbackfill/internal/errors"
)

// GitDateLayout is the ISO-8601 local date-time format handed to git.
const GitDateLayout = "2006-01-02T15:04:05"

// Entry is one scheduled commit.
type Entry struct {
	// Seq numbers entries from 1 in emission order.
	Seq int

	// Unit is the 1-based day or week the entry belongs to.
	Unit int

	// Label annotates week-mode entries ("Week 3"); empty in day mode.
	Label string

	Timestamp time.Time
	File      catalog.File
	Message   string
}

// GitDate formats the timestamp for GIT_AUTHOR_DATE/GIT_COMMITTER_DATE.
func (e Entry) GitDate() string {
	return e.Timestamp.Format(GitDateLayout)
}

// Generator lazily produces entries in chronological order. It is not
// restartable: once Next reports false it stays exhausted.
type Generator struct {
	policy  Policy
	window  Window
	catalog *catalog.Catalog
	rng     *rand.Rand

	unit    int
	seq     int
	pending []Entry
	done    bool
	dropped int
}

// NewGenerator validates the policy and returns a generator over window.
func NewGenerator(policy Policy, window Window, cat *catalog.Catalog, rng *rand.Rand) (*Generator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if cat == nil || len(cat.Files) == 0 || len(cat.Messages) == 0 {
		return nil, errors.NewConfigError("catalog", nil,
			errors.Wrap(errors.ErrInvalidConfiguration, "catalog must contain files and messages"))
	}
	if window.End.Before(window.Start) {
		return nil, errors.NewConfigError("window", nil,
			errors.Wrap(errors.ErrInvalidConfiguration, "window end precedes its start"))
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Generator{
		policy:  policy,
		window:  window,
		catalog: cat,
		rng:     rng,
	}, nil
}

// Window returns the window entries are confined to.
func (g *Generator) Window() Window {
	return g.window
}

// Policy returns the cadence policy in use.
func (g *Generator) Policy() Policy {
	return g.policy
}

// EstimatedUnits is the display estimate of units in the window: whole
// weeks in week mode, days in day mode. Generation is bounded by MaxUnits,
// not by this number.
func (g *Generator) EstimatedUnits() int {
	if g.policy.Mode == ModeWeek {
		return g.policy.WindowDays / 7
	}
	return g.policy.WindowDays
}

// UnitsProcessed reports how many days or weeks have been sampled so far.
func (g *Generator) UnitsProcessed() int {
	return g.unit
}

// Dropped reports how many sampled entries fell outside the window.
func (g *Generator) Dropped() int {
	return g.dropped
}

// Next returns the next entry, or false once the window is exhausted.
func (g *Generator) Next() (Entry, bool) {
	for len(g.pending) == 0 {
		if g.done {
			return Entry{}, false
		}
		g.fillNextUnit()
	}

	e := g.pending[0]
	g.pending = g.pending[1:]
	return e, true
}

// Collect drains the generator.
func (g *Generator) Collect() []Entry {
	var out []Entry
	for {
		e, ok := g.Next()
		if !ok {
			return out
		}
		out = append(out, e)
	}
}

// fillNextUnit samples one day or week into pending, or marks the
// generator done when the window or the safety bound is exhausted.
func (g *Generator) fillNextUnit() {
	if g.unit >= g.policy.maxUnits() {
		g.done = true
		return
	}

	first := startOfDay(g.window.Start)
	var unitStart time.Time
	if g.policy.Mode == ModeWeek {
		unitStart = first.AddDate(0, 0, 7*g.unit)
	} else {
		unitStart = first.AddDate(0, 0, g.unit)
	}
	if unitStart.After(g.window.End) {
		g.done = true
		return
	}

	g.unit++

	var times []time.Time
	label := ""
	if g.policy.Mode == ModeWeek {
		label = fmt.Sprintf("Week %d", g.unit)
		times = g.sampleWeek(unitStart)
	} else {
		times = g.sampleDay(unitStart)
	}

	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	for _, ts := range times {
		if !g.window.Contains(ts) {
			g.dropped++
			continue
		}
		g.seq++
		message := g.catalog.PickMessage(g.rng)
		if label != "" && g.policy.AnnotateLabel {
			message = fmt.Sprintf("%s - %s", message, label)
		}
		g.pending = append(g.pending, Entry{
			Seq:       g.seq,
			Unit:      g.unit,
			Label:     label,
			Timestamp: ts,
			File:      g.catalog.PickFile(g.rng),
			Message:   message,
		})
	}
}

func (g *Generator) sampleDay(day time.Time) []time.Time {
	var count int
	if isWeekend(day) {
		if g.rng.Float64() < g.policy.WeekendSkipProbability {
			return nil
		}
		count = weightedIndex(g.rng, g.policy.WeekendWeights)
	} else {
		count = weightedIndex(g.rng, g.policy.WeekdayWeights)
	}

	times := make([]time.Time, 0, count)
	for range count {
		times = append(times, g.timeOfDay(day))
	}
	return times
}

func (g *Generator) sampleWeek(weekStart time.Time) []time.Time {
	p := g.policy
	activeDays := between(g.rng, p.ActiveDaysMin, p.ActiveDaysMax)

	var times []time.Time
	for range activeDays {
		day := weekStart.AddDate(0, 0, between(g.rng, 0, p.ActiveDayOffsetMax))
		commits := between(g.rng, p.CommitsPerDayMin, p.CommitsPerDayMax)
		for range commits {
			times = append(times, g.timeOfDay(day))
		}
	}
	return times
}

// timeOfDay samples a second-resolution time within working hours on day.
func (g *Generator) timeOfDay(day time.Time) time.Time {
	hour := between(g.rng, g.policy.WorkStartHour, g.policy.WorkEndHour)
	minute := g.rng.IntN(60)
	second := g.rng.IntN(60)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, second, 0, day.Location())
}

// between returns a uniform integer in [lo, hi].
func between(rng *rand.Rand, lo, hi int) int {
	return lo + rng.IntN(hi-lo+1)
}

// weightedIndex picks index i with probability weights[i]/sum(weights).
func weightedIndex(rng *rand.Rand, weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}

	r := rng.Float64() * total
	last := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		if r < w {
			return i
		}
		r -= w
		last = i
	}
	// float rounding
	return last
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
