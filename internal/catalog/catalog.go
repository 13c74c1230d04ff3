package catalog

import (
	"fmt"
	"io"
	"math/rand/v2"
	"path"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/bashhack/gitbackfill/internal/constants"
	"github.com/bashhack/gitbackfill/internal/errors"
)

// Kind selects the edit a file receives.
type Kind int

const (
	KindOther Kind = iota
	KindCode
	KindStyle
	KindStructured
	KindNarrative
)

func (k Kind) String() string {
	switch k {
	case KindCode:
		return "code"
	case KindStyle:
		return "style"
	case KindStructured:
		return "structured"
	case KindNarrative:
		return "narrative"
	default:
		return "other"
	}
}

// Comment is the line comment syntax of a file. Close is empty for
// single-token comments such as "//" and "#".
type Comment struct {
	Open  string
	Close string
}

// Wrap renders text as one comment line.
func (c Comment) Wrap(text string) string {
	if c.Close == "" {
		return c.Open + " " + text
	}
	return c.Open + " " + text + " " + c.Close
}

var (
	slashComment  = Comment{Open: "//"}
	hashComment   = Comment{Open: "#"}
	blockComment  = Comment{Open: "/*", Close: "*/"}
	markupComment = Comment{Open: "<!--", Close: "-->"}
)

var codeComments = map[string]Comment{
	".js": slashComment, ".jsx": slashComment, ".mjs": slashComment, ".cjs": slashComment,
	".ts": slashComment, ".tsx": slashComment, ".vue": slashComment, ".svelte": slashComment,
	".go": slashComment, ".java": slashComment, ".kt": slashComment, ".swift": slashComment,
	".c": slashComment, ".h": slashComment, ".cpp": slashComment, ".cc": slashComment,
	".cs": slashComment, ".rs": slashComment, ".dart": slashComment, ".php": slashComment,
	".py": hashComment, ".rb": hashComment, ".sh": hashComment, ".bash": hashComment,
	".pl": hashComment, ".r": hashComment, ".toml": hashComment, ".ini": hashComment,
	".html": markupComment, ".htm": markupComment, ".xml": markupComment, ".svg": markupComment,
}

var styleExts = map[string]bool{".css": true, ".scss": true, ".less": true}

var structuredExts = map[string]bool{".json": true, ".yaml": true, ".yml": true}

var narrativeExts = map[string]bool{".md": true, ".markdown": true, ".rst": true}

// File is one catalog entry. Kind and Comment are resolved once by NewFile.
type File struct {
	Path    string
	Kind    Kind
	Comment Comment
}

// NewFile classifies p and returns its catalog entry.
func NewFile(p string) File {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	kind, comment := classify(p)
	return File{Path: p, Kind: kind, Comment: comment}
}

// Classify returns the Kind of the file at p.
func Classify(p string) Kind {
	kind, _ := classify(p)
	return kind
}

func classify(p string) (Kind, Comment) {
	base := strings.ToLower(path.Base(p))
	ext := path.Ext(base)

	if c, ok := codeComments[ext]; ok {
		return KindCode, c
	}
	switch {
	case styleExts[ext]:
		return KindStyle, blockComment
	case structuredExts[ext]:
		if ext == ".json" {
			return KindStructured, slashComment
		}
		return KindStructured, hashComment
	case narrativeExts[ext], strings.TrimSuffix(base, ext) == "readme":
		return KindNarrative, markupComment
	}
	return KindOther, Comment{}
}

// IsYAML reports whether a structured file is YAML rather than JSON.
func (f File) IsYAML() bool {
	ext := strings.ToLower(path.Ext(f.Path))
	return ext == ".yaml" || ext == ".yml"
}

// Dir returns the parent directory of the file, or "" for top-level files.
func (f File) Dir() string {
	d := path.Dir(f.Path)
	if d == "." || d == "/" {
		return ""
	}
	return d
}

// Catalog is the ordered set of candidate files and the message corpus.
type Catalog struct {
	Files    []File
	Messages []string
}

// New builds a Catalog, classifying each path once. Duplicate paths are dropped.
func New(paths []string, messages []string) (*Catalog, error) {
	if len(paths) == 0 {
		return nil, errors.NewConfigError("catalog.files", nil,
			errors.Wrap(errors.ErrInvalidConfiguration, "at least one file is required"))
	}
	if len(messages) == 0 {
		return nil, errors.NewConfigError("catalog.messages", nil,
			errors.Wrap(errors.ErrInvalidConfiguration, "at least one message is required"))
	}

	seen := make(map[string]bool, len(paths))
	c := &Catalog{Messages: append([]string(nil), messages...)}
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		f := NewFile(p)
		if path.IsAbs(f.Path) || f.Path == ".." || strings.HasPrefix(f.Path, "../") {
			return nil, errors.NewConfigError("catalog.files", p,
				errors.Wrap(errors.ErrInvalidConfiguration, "paths must be relative to the repository"))
		}
		if seen[f.Path] {
			continue
		}
		seen[f.Path] = true
		c.Files = append(c.Files, f)
	}
	if len(c.Files) == 0 {
		return nil, errors.NewConfigError("catalog.files", nil,
			errors.Wrap(errors.ErrInvalidConfiguration, "at least one file is required"))
	}
	return c, nil
}

// Preset returns one of the built-in catalogs.
func Preset(name string) (*Catalog, error) {
	switch name {
	case constants.PresetDaily, "":
		return New(constants.DailyFiles, constants.DailyMessages)
	case constants.PresetWeekly:
		return New(constants.WeeklyFiles, constants.WeeklyMessages)
	}
	return nil, errors.NewConfigError("preset", name,
		errors.Wrap(errors.ErrInvalidConfiguration, fmt.Sprintf("unknown preset (want %q or %q)", constants.PresetDaily, constants.PresetWeekly)))
}

// spec is the on-disk YAML form of a catalog.
type spec struct {
	Preset   string   `yaml:"preset"`
	Files    []string `yaml:"files"`
	Messages []string `yaml:"messages"`
}

// Decode reads a YAML catalog. Missing files or messages are taken from
// the named preset (daily when none is given).
func Decode(r io.Reader) (*Catalog, error) {
	var s spec
	if err := yaml.NewDecoder(r).Decode(&s); err != nil && err != io.EOF {
		return nil, errors.NewConfigError("catalog", nil,
			errors.Wrap(errors.ErrInvalidConfiguration, fmt.Sprintf("failed to parse catalog: %v", err)))
	}

	base, err := Preset(s.Preset)
	if err != nil {
		return nil, err
	}

	files := s.Files
	if len(files) == 0 {
		files = base.Paths()
	}
	messages := s.Messages
	if len(messages) == 0 {
		messages = base.Messages
	}
	return New(files, messages)
}

// Load reads a YAML catalog file from fsys.
func Load(fsys afero.Fs, name string) (*Catalog, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, errors.NewConfigError("catalog", name,
			errors.Wrap(errors.ErrInvalidConfiguration, fmt.Sprintf("failed to open catalog: %v", err)))
	}
	defer func() { _ = f.Close() }()

	return Decode(f)
}

// Paths returns the catalog file paths in order.
func (c *Catalog) Paths() []string {
	out := make([]string, len(c.Files))
	for i, f := range c.Files {
		out[i] = f.Path
	}
	return out
}

// Dirs returns the distinct parent directories of the catalog files, in
// first-seen order.
func (c *Catalog) Dirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, f := range c.Files {
		d := f.Dir()
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		dirs = append(dirs, d)
	}
	return dirs
}

// PickFile returns a uniformly chosen file.
func (c *Catalog) PickFile(rng *rand.Rand) File {
	return c.Files[rng.IntN(len(c.Files))]
}

// PickMessage returns a uniformly chosen message.
func (c *Catalog) PickMessage(rng *rand.Rand) string {
	return c.Messages[rng.IntN(len(c.Messages))]
}
