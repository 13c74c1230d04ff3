package config

import (
	"crypto/sha256"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bashhack/gitbackfill/internal/catalog"
	"github.com/bashhack/gitbackfill/internal/constants"
	"github.com/bashhack/gitbackfill/internal/errors"
	"github.com/bashhack/gitbackfill/internal/mutate"
	"github.com/bashhack/gitbackfill/internal/schedule"
)

const (
	// EnvPrefix prefixes every environment override, e.g. GITBACKFILL_MODE.
	EnvPrefix = "GITBACKFILL"

	// RepoConfigName is looked up in the repository root when --config is
	// not given.
	RepoConfigName = ".gitbackfill.yaml"

	// EndLayout is the accepted format of --end.
	EndLayout = "2006-01-02"
)

// Config holds all gitbackfill settings after flags, environment, config
// file and defaults have been merged.
type Config struct {
	// RepoPath is the repository to backfill. Empty means the working directory.
	RepoPath string `mapstructure:"repo"`

	// Mode is the cadence, "day" or "week".
	Mode string `mapstructure:"mode"`

	// WindowDays overrides the policy's window length when positive.
	WindowDays int `mapstructure:"window_days"`

	// End is the last day of the window (YYYY-MM-DD). Empty means now.
	End string `mapstructure:"end"`

	// Preset names the built-in catalog. Empty picks one by mode.
	Preset string `mapstructure:"preset"`

	// CatalogFile is a YAML catalog replacing the preset.
	CatalogFile string `mapstructure:"catalog"`

	// Seed makes a run reproducible. Zero draws a random seed in Finalize.
	Seed int64 `mapstructure:"seed"`

	// Marker is the structured-file marker style, "scalar" or "list".
	// Empty picks one by mode.
	Marker string `mapstructure:"marker"`

	// FallbackDir receives mutation fallback artifacts. Empty picks one by mode.
	FallbackDir string `mapstructure:"fallback_dir"`

	// FallbackMessage is the base message of fallback commits.
	FallbackMessage string `mapstructure:"fallback_message"`

	// Yes skips the confirmation prompt.
	Yes     bool `mapstructure:"yes"`
	Verbose bool `mapstructure:"verbose"`
	Debug   bool `mapstructure:"debug"`

	// LogFile is the debug log. Empty means the XDG data directory.
	LogFile string `mapstructure:"log_file"`

	// JournalPath is the SQLite run journal. Empty means the XDG data directory.
	JournalPath string `mapstructure:"journal"`
	NoJournal   bool   `mapstructure:"no_journal"`

	// Policy is the cadence; only the config file can tune it beyond the
	// mode and window length.
	Policy schedule.Policy `mapstructure:"policy"`

	// ConfigFile is the config file that was read, if any.
	ConfigFile string `mapstructure:"-"`
}

// VersionInfo contains build-time version metadata.
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// flagKeys maps config keys to the flag names bound to them.
var flagKeys = map[string]string{
	"repo":             "repo",
	"mode":             "mode",
	"window_days":      "window-days",
	"end":              "end",
	"preset":           "preset",
	"catalog":          "catalog",
	"seed":             "seed",
	"marker":           "marker",
	"fallback_dir":     "fallback-dir",
	"fallback_message": "fallback-message",
	"yes":              "yes",
	"verbose":          "verbose",
	"debug":            "debug",
	"log_file":         "log-file",
	"journal":          "journal",
	"no_journal":       "no-journal",
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		Mode:            string(schedule.ModeDay),
		FallbackMessage: "Development update",
		Policy:          schedule.DefaultDayPolicy(),
	}
}

func setDefaults(v *viper.Viper) {
	d := New()
	v.SetDefault("repo", d.RepoPath)
	v.SetDefault("mode", d.Mode)
	v.SetDefault("window_days", d.WindowDays)
	v.SetDefault("end", d.End)
	v.SetDefault("preset", d.Preset)
	v.SetDefault("catalog", d.CatalogFile)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("marker", d.Marker)
	v.SetDefault("fallback_dir", d.FallbackDir)
	v.SetDefault("fallback_message", d.FallbackMessage)
	v.SetDefault("yes", d.Yes)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("journal", d.JournalPath)
	v.SetDefault("no_journal", d.NoJournal)
}

// RegisterFlags defines the run flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := New()
	fs.String("config", "", "Config file (default: <repo>/"+RepoConfigName+", then ~/.config/gitbackfill/config.yaml)")
	fs.StringP("repo", "C", d.RepoPath, "Path to repository (default: current directory)")
	fs.StringP("mode", "m", d.Mode, `Cadence: "day" or "week"`)
	fs.Int("window-days", d.WindowDays, "Days of history to generate (default: 120)")
	fs.String("end", d.End, "Last day of the window, YYYY-MM-DD (default: now)")
	fs.String("preset", d.Preset, `Built-in catalog: "daily" or "weekly" (default: by mode)`)
	fs.String("catalog", d.CatalogFile, "YAML catalog of files and messages")
	fs.Int64("seed", d.Seed, "Random seed for a reproducible schedule (default: random)")
	fs.String("marker", d.Marker, `Structured-file marker: "scalar" or "list" (default: by mode)`)
	fs.String("fallback-dir", d.FallbackDir, "Directory for fallback update files (default: by mode)")
	fs.String("fallback-message", d.FallbackMessage, "Message of fallback commits")
	fs.BoolP("yes", "y", d.Yes, "Do not ask for confirmation")
	fs.BoolP("verbose", "v", d.Verbose, "Print every commit")
	fs.Bool("debug", d.Debug, "Enable debug logging")
	fs.String("log-file", d.LogFile, "Path to log file (default: ~/.local/share/gitbackfill/logs/gitbackfill-{repo-hash}.log)")
	fs.String("journal", d.JournalPath, "Path to the run journal (default: ~/.local/share/gitbackfill/journal.db)")
	fs.Bool("no-journal", d.NoJournal, "Do not record the run")
}

// Load merges flags, GITBACKFILL_* environment variables, the config file
// and defaults, highest first. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if fs != nil {
		for key, name := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.NewConfigError(key, nil, errors.Wrap(err, "failed to bind flag"))
				}
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	explicit := ""
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			explicit = f.Value.String()
		}
	}
	if explicit == "" {
		explicit = os.Getenv(EnvPrefix + "_CONFIG")
	}

	configFile := explicit
	if configFile == "" {
		configFile = findConfigFile(v.GetString("repo"))
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", configFile,
				errors.Wrap(errors.ErrInvalidConfiguration, fmt.Sprintf("failed to read config file: %v", err)))
		}
	}

	mode := schedule.Mode(strings.ToLower(v.GetString("mode")))
	policy, err := schedule.PolicyFor(mode)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Policy: policy}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.NewConfigError("config", configFile,
			errors.Wrap(errors.ErrInvalidConfiguration, fmt.Sprintf("failed to decode configuration: %v", err)))
	}
	cfg.Mode = string(mode)
	cfg.Policy.Mode = mode
	cfg.ConfigFile = v.ConfigFileUsed()

	return cfg, nil
}

// findConfigFile returns the first existing default config file, or "".
func findConfigFile(repo string) string {
	var candidates []string
	if repo == "" {
		repo = "."
	}
	candidates = append(candidates, filepath.Join(repo, RepoConfigName))

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configHome = filepath.Join(home, ".config")
		}
	}
	if configHome != "" {
		candidates = append(candidates, filepath.Join(configHome, "gitbackfill", "config.yaml"))
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// Finalize resolves paths and mode-dependent defaults, then validates.
func (c *Config) Finalize() error {
	if c.RepoPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return errors.NewConfigError("repo", "", errors.Wrap(err, "failed to get current directory"))
		}
		c.RepoPath = wd
	}
	abs, err := filepath.Abs(c.RepoPath)
	if err != nil {
		return errors.NewConfigError("repo", c.RepoPath, errors.Wrap(err, "failed to resolve absolute path"))
	}
	c.RepoPath = abs

	if c.WindowDays > 0 {
		c.Policy.WindowDays = c.WindowDays
	}
	c.WindowDays = c.Policy.WindowDays

	week := c.Policy.Mode == schedule.ModeWeek
	if c.Preset == "" {
		c.Preset = constants.PresetDaily
		if week {
			c.Preset = constants.PresetWeekly
		}
	}
	if c.Marker == "" {
		c.Marker = mutate.MarkerScalar.String()
		if week {
			c.Marker = mutate.MarkerList.String()
		}
	}
	if c.FallbackDir == "" {
		c.FallbackDir = constants.DailyFallbackDir
		if week {
			c.FallbackDir = constants.WeeklyFallbackDir
		}
	}
	if c.Seed == 0 {
		c.Seed = rand.Int64N(1<<53) + 1
	}

	dataDir := dataHome()
	if c.LogFile == "" {
		repoHash := fmt.Sprintf("%x", sha256OfString(c.RepoPath)[:8])
		c.LogFile = filepath.Join(dataDir, "gitbackfill", "logs", fmt.Sprintf("gitbackfill-%s.log", repoHash))
	}
	if c.JournalPath == "" {
		c.JournalPath = filepath.Join(dataDir, "gitbackfill", "journal.db")
	}

	return c.Validate()
}

// Validate checks values that cannot be repaired by defaults.
func (c *Config) Validate() error {
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	if c.WindowDays < 0 {
		return errors.NewConfigError("window_days", c.WindowDays,
			errors.Wrap(errors.ErrInvalidConfiguration, "cannot be negative"))
	}
	if c.End != "" {
		if _, err := time.ParseInLocation(EndLayout, c.End, time.Local); err != nil {
			return errors.NewConfigError("end", c.End,
				errors.Wrap(errors.ErrInvalidConfiguration, "must be a date in YYYY-MM-DD form"))
		}
	}
	if _, err := mutate.ParseMarkerStyle(c.Marker); err != nil {
		return err
	}
	if c.CatalogFile == "" && c.Preset != "" && c.Preset != constants.PresetDaily && c.Preset != constants.PresetWeekly {
		return errors.NewConfigError("preset", c.Preset,
			errors.Wrap(errors.ErrInvalidConfiguration, fmt.Sprintf("must be %q or %q", constants.PresetDaily, constants.PresetWeekly)))
	}
	if filepath.IsAbs(c.FallbackDir) || strings.HasPrefix(filepath.Clean(c.FallbackDir), "..") {
		return errors.NewConfigError("fallback_dir", c.FallbackDir,
			errors.Wrap(errors.ErrInvalidConfiguration, "must be inside the repository"))
	}
	return nil
}

// Window returns the backfill window: WindowDays ending at End, or at now.
// A date-only End means the end of that day.
func (c *Config) Window(now time.Time) schedule.Window {
	end := now
	if c.End != "" {
		if day, err := time.ParseInLocation(EndLayout, c.End, time.Local); err == nil {
			end = day.AddDate(0, 0, 1).Add(-time.Second)
		}
	}
	return schedule.WindowEndingAt(end, c.Policy.WindowDays)
}

// Catalog loads the catalog file if one is set, else the preset.
func (c *Config) Catalog(fs afero.Fs) (*catalog.Catalog, error) {
	if c.CatalogFile != "" {
		return catalog.Load(fs, c.CatalogFile)
	}
	return catalog.Preset(c.Preset)
}

// MutateOptions returns the mutator settings.
func (c *Config) MutateOptions() mutate.Options {
	marker, _ := mutate.ParseMarkerStyle(c.Marker)
	return mutate.Options{FallbackDir: c.FallbackDir, Marker: marker}
}

// Rand returns the generator seeded from Seed.
func (c *Config) Rand() *rand.Rand {
	s := uint64(c.Seed)
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}

// dataHome follows the XDG base directory layout.
func dataHome() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share")
	}
	return os.TempDir()
}

func sha256OfString(input string) []byte {
	hash := sha256.Sum256([]byte(input))
	return hash[:]
}
