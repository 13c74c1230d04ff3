package mutate

import (
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/bashhack/gitbackfill/internal/catalog"
	"github.com/bashhack/gitbackfill/internal/errors"
)

// Layouts used in the text written to files.
const (
	MinuteLayout = "2006-01-02 15:04"
	SecondLayout = "2006-01-02 15:04:05"
	DayLayout    = "2006-01-02"
)

// MarkerStyle selects how structured files record an update.
type MarkerStyle int

const (
	// MarkerScalar sets a timestamp field once and leaves it alone afterwards.
	MarkerScalar MarkerStyle = iota

	// MarkerList appends a record to an update list on every edit.
	MarkerList
)

// String returns the configuration name of the style.
func (s MarkerStyle) String() string {
	if s == MarkerList {
		return "list"
	}
	return "scalar"
}

// ParseMarkerStyle maps a configuration value to a MarkerStyle.
func ParseMarkerStyle(s string) (MarkerStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scalar", "":
		return MarkerScalar, nil
	case "list":
		return MarkerList, nil
	}
	return MarkerScalar, errors.NewConfigError("marker", s,
		errors.Wrap(errors.ErrInvalidConfiguration, `must be "scalar" or "list"`))
}

const (
	DefaultScalarKey = "lastUpdated"
	DefaultListKey   = "development_updates"
)

// Options configures a Mutator.
type Options struct {
	// FallbackDir receives update_<n>.txt artifacts when an edit fails.
	FallbackDir string

	Marker    MarkerStyle
	ListKey   string
	ScalarKey string
}

// Note is the update written into a file.
type Note struct {
	Timestamp time.Time

	// Label is the cadence annotation ("Week 3"); empty for day cadence.
	Label string

	// Unit is the week number recorded in list markers when Label is set.
	Unit int

	// Description is the free-text line. Empty picks a default per file kind.
	Description string
}

// Result reports what a single Apply call changed.
type Result struct {
	// Path is the file that was written: the target, or the fallback artifact.
	Path string

	// Fallback is set when the target could not be edited and an artifact
	// was written instead.
	Fallback bool

	// Err is the edit failure, wrapped in a *errors.MutationError. It is set
	// whenever the target was not edited, even when the fallback succeeded.
	Err error
}

// Mutator edits catalog files in place. All paths are relative to the root
// of fs. A Mutator is not safe for concurrent use.
type Mutator struct {
	fs       afero.Fs
	opts     Options
	attempts int
}

// New returns a Mutator writing through fs.
func New(fs afero.Fs, opts Options) *Mutator {
	if opts.ScalarKey == "" {
		opts.ScalarKey = DefaultScalarKey
	}
	if opts.ListKey == "" {
		opts.ListKey = DefaultListKey
	}
	if opts.FallbackDir == "" {
		opts.FallbackDir = "updates"
	}
	return &Mutator{fs: fs, opts: opts}
}

// Apply edits file according to its kind. It never panics and never
// returns an error to the caller: failures are reported in Result and
// replaced by a fallback artifact so there is always something to commit.
func (m *Mutator) Apply(file catalog.File, note Note) (res Result) {
	m.attempts++

	defer func() {
		if r := recover(); r != nil {
			res = m.fallback(file, note, fmt.Errorf("panic while editing: %v", r))
		}
	}()

	if err := m.apply(file, note); err != nil {
		return m.fallback(file, note, err)
	}
	return Result{Path: file.Path}
}

func (m *Mutator) apply(file catalog.File, note Note) error {
	if err := m.ensureParent(file.Path); err != nil {
		return err
	}

	switch file.Kind {
	case catalog.KindCode, catalog.KindStyle:
		return m.appendText(file.Path, commentBlock(file, note))
	case catalog.KindStructured:
		return m.patchStructured(file, note)
	case catalog.KindNarrative:
		return m.appendText(file.Path, narrativeSection(note))
	case catalog.KindOther:
		return m.appendText(file.Path, plainLines(note))
	default:
		return fmt.Errorf("unhandled file kind %d", file.Kind)
	}
}

func (m *Mutator) ensureParent(p string) error {
	dir := path.Dir(p)
	if dir == "." || dir == "/" || dir == "" {
		return nil
	}
	return m.fs.MkdirAll(dir, 0o755)
}

func (m *Mutator) appendText(name, text string) error {
	f, err := m.fs.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(text); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// fallback writes FallbackDir/update_<n>.txt, skipping names that exist.
func (m *Mutator) fallback(file catalog.File, note Note, cause error) Result {
	mutErr := errors.NewMutationError(file.Path, cause)

	if err := m.fs.MkdirAll(m.opts.FallbackDir, 0o755); err != nil {
		return Result{Err: errors.Join(mutErr, fmt.Errorf("fallback artifact: %w", err))}
	}

	n := m.attempts
	var name string
	for {
		name = path.Join(m.opts.FallbackDir, fmt.Sprintf("update_%d.txt", n))
		exists, err := afero.Exists(m.fs, name)
		if err != nil {
			return Result{Err: errors.Join(mutErr, fmt.Errorf("fallback artifact: %w", err))}
		}
		if !exists {
			break
		}
		n++
	}

	var body string
	if note.Label != "" {
		body = fmt.Sprintf("%s development update\nDate: %s\n", note.Label, note.Timestamp.Format(MinuteLayout))
	} else {
		body = fmt.Sprintf("Project update %d\n", n)
	}
	if err := afero.WriteFile(m.fs, name, []byte(body), 0o644); err != nil {
		return Result{Err: errors.Join(mutErr, fmt.Errorf("fallback artifact: %w", err))}
	}

	return Result{Path: name, Fallback: true, Err: mutErr}
}

var defaultDescriptions = map[catalog.Kind]string{
	catalog.KindCode:      "Code improvements and feature enhancements",
	catalog.KindStyle:     "Style enhancements and responsive fixes",
	catalog.KindNarrative: "Enhanced customization features and improved user experience.",
}

func description(kind catalog.Kind, note Note) string {
	if note.Description != "" {
		return note.Description
	}
	return defaultDescriptions[kind]
}

// commentBlock renders the code and style edit:
//
//	// Update: 2024-01-01 10:00
//	// Code improvements and feature enhancements
//
// or, for labelled notes, a "Development update - Week N" header followed
// by a Date line.
func commentBlock(file catalog.File, note Note) string {
	c := file.Comment
	if c.Open == "" {
		c = catalog.Comment{Open: "//"}
	}
	stamp := note.Timestamp.Format(MinuteLayout)

	var b strings.Builder
	b.WriteString("\n")
	if note.Label != "" {
		b.WriteString(c.Wrap("Development update - " + note.Label))
		b.WriteString("\n")
		b.WriteString(c.Wrap("Date: " + stamp))
	} else {
		b.WriteString(c.Wrap("Update: " + stamp))
	}
	b.WriteString("\n")
	b.WriteString(c.Wrap(description(file.Kind, note)))
	b.WriteString("\n")
	return b.String()
}

func narrativeSection(note Note) string {
	desc := description(catalog.KindNarrative, note)
	if note.Label != "" {
		return fmt.Sprintf("\n### %s Development\n- **Date**: %s\n- **Updates**: %s\n\n",
			note.Label, note.Timestamp.Format(DayLayout), desc)
	}
	return fmt.Sprintf("\n## Update %s\n%s\n", note.Timestamp.Format(DayLayout), desc)
}

func plainLines(note Note) string {
	stamp := note.Timestamp.Format(MinuteLayout)
	if note.Label != "" {
		return fmt.Sprintf("\nDevelopment update - %s\nDate: %s\n", note.Label, stamp)
	}
	return fmt.Sprintf("\nUpdate: %s\n", stamp)
}
