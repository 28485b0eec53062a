package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env"
	"gopkg.in/yaml.v3"

	"onevents/internal/ics"
)

// NOTE: a missing config file is not an error. Every field has a default
// that reproduces the historical layout (events/, web/index.html, site/),
// so a bare checkout builds without any configuration.

// CalendarConfig is the metadata written into calendar files.
type CalendarConfig struct {
	ProductID   string `yaml:"product_id" json:"product_id"`
	UIDDomain   string `yaml:"uid_domain" json:"uid_domain"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	// RefreshInterval is how often subscribers should poll, e.g. "1h".
	RefreshInterval time.Duration `yaml:"refresh_interval" json:"refresh_interval"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the site server.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// PreviewConfig controls the optional screenshot of the built page.
type PreviewConfig struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	Output  string        `yaml:"output" json:"output"`
	Width   int           `yaml:"width" json:"width"`
	Height  int           `yaml:"height" json:"height"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// Config is the top-level application configuration.
type Config struct {
	// EventsDir holds one YAML record per event.
	EventsDir string `yaml:"events_dir" json:"events_dir"`

	// Template is the HTML page with the {{ events }}, {{ subscriptions }}
	// and {{ builddate }} placeholders.
	Template string `yaml:"template" json:"template"`

	// OutputDir is replaced as a whole on every successful build.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// Assets are directories copied into OutputDir under their base name.
	Assets []string `yaml:"assets" json:"assets"`

	// BaseURL is the public root of the published site.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Timezone decides which events are still upcoming (IANA name).
	Timezone string `yaml:"timezone" json:"timezone"`

	Calendar CalendarConfig `yaml:"calendar" json:"calendar"`
	// UTM is appended to registration links in calendars and on the page.
	UTM ics.UTM `yaml:"utm" json:"utm"`

	// RefreshCron is the rebuild schedule of the watch command.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Listen is the HTTP listen address of the serve command.
	Listen string `yaml:"listen" json:"listen"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// paths except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	Preview PreviewConfig `yaml:"preview" json:"preview"`

	// MetricsFile, when set, receives build metrics in Prometheus text
	// format after every run.
	MetricsFile string `yaml:"metrics_file" json:"metrics_file"`

	// LogLevel is one of debug, info, error.
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		EventsDir: "events",
		Template:  filepath.Join("web", "index.html"),
		OutputDir: "site",
		Assets:    []string{"img", "icons"},
		BaseURL:   "https://onevents.ru",
		Timezone:  ics.DefaultTimezone,
		Calendar: CalendarConfig{
			ProductID:       ics.DefaultProductID,
			UIDDomain:       ics.DefaultUIDDomain,
			Name:            ics.DefaultCalendarName,
			Description:     ics.DefaultCalendarDescription,
			RefreshInterval: ics.DefaultRefreshInterval,
		},
		UTM:         ics.DefaultUTM(),
		RefreshCron: "5 0 * * *",
		Listen:      "127.0.0.1:8080",
		Preview: PreviewConfig{
			Output:  "preview.png",
			Width:   1280,
			Height:  2000,
			Timeout: 30 * time.Second,
		},
		LogLevel: "info",
	}
}

// Normalize fills in missing/zero values with defaults so partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	d := DefaultConfig()

	setDefault(&c.EventsDir, d.EventsDir)
	setDefault(&c.Template, d.Template)
	setDefault(&c.OutputDir, d.OutputDir)
	if c.Assets == nil {
		c.Assets = d.Assets
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	setDefault(&c.BaseURL, d.BaseURL)
	setDefault(&c.Timezone, d.Timezone)

	setDefault(&c.Calendar.ProductID, d.Calendar.ProductID)
	setDefault(&c.Calendar.UIDDomain, d.Calendar.UIDDomain)
	setDefault(&c.Calendar.Name, d.Calendar.Name)
	setDefault(&c.Calendar.Description, d.Calendar.Description)
	if c.Calendar.RefreshInterval <= 0 {
		c.Calendar.RefreshInterval = d.Calendar.RefreshInterval
	}

	// An entirely empty utm block means "use the defaults"; a partly
	// filled one is taken as is so single parameters can be dropped.
	if c.UTM == (ics.UTM{}) {
		c.UTM = d.UTM
	}

	setDefault(&c.RefreshCron, d.RefreshCron)
	setDefault(&c.Listen, d.Listen)

	setDefault(&c.Preview.Output, d.Preview.Output)
	if c.Preview.Width <= 0 {
		c.Preview.Width = d.Preview.Width
	}
	if c.Preview.Height <= 0 {
		c.Preview.Height = d.Preview.Height
	}
	if c.Preview.Timeout <= 0 {
		c.Preview.Timeout = d.Preview.Timeout
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = d.LogLevel
	}
}

func setDefault(field *string, def string) {
	if strings.TrimSpace(*field) == "" {
		*field = def
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load reads configuration from the given YAML path, applies ONEVENTS_*
// environment overrides and normalizes the result. A path that does not
// exist yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

// envOverrides lists the variables that may override the file. Unset
// variables leave the field untouched.
type envOverrides struct {
	EventsDir   string        `env:"ONEVENTS_EVENTS_DIR"`
	Template    string        `env:"ONEVENTS_TEMPLATE"`
	OutputDir   string        `env:"ONEVENTS_OUTPUT_DIR"`
	Assets      []string      `env:"ONEVENTS_ASSETS" envSeparator:","`
	BaseURL     string        `env:"ONEVENTS_BASE_URL"`
	Timezone    string        `env:"ONEVENTS_TIMEZONE"`
	RefreshCron string        `env:"ONEVENTS_REFRESH"`
	Listen      string        `env:"ONEVENTS_LISTEN"`
	MetricsFile string        `env:"ONEVENTS_METRICS_FILE"`
	LogLevel    string        `env:"ONEVENTS_LOG_LEVEL"`
	Refresh     time.Duration `env:"ONEVENTS_CALENDAR_REFRESH_INTERVAL"`
	AuthUser    string        `env:"ONEVENTS_BASIC_AUTH_USERNAME"`
	AuthPass    string        `env:"ONEVENTS_BASIC_AUTH_PASSWORD"`
}

// ApplyEnv overlays ONEVENTS_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	override(&cfg.EventsDir, o.EventsDir)
	override(&cfg.Template, o.Template)
	override(&cfg.OutputDir, o.OutputDir)
	if len(o.Assets) > 0 {
		cfg.Assets = o.Assets
	}
	override(&cfg.BaseURL, o.BaseURL)
	override(&cfg.Timezone, o.Timezone)
	override(&cfg.RefreshCron, o.RefreshCron)
	override(&cfg.Listen, o.Listen)
	override(&cfg.MetricsFile, o.MetricsFile)
	override(&cfg.LogLevel, o.LogLevel)
	if o.Refresh > 0 {
		cfg.Calendar.RefreshInterval = o.Refresh
	}
	if o.AuthUser != "" {
		cfg.BasicAuth = &BasicAuthConfig{Username: o.AuthUser, Password: o.AuthPass}
	}
	return nil
}

func override(field *string, v string) {
	if v != "" {
		*field = v
	}
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".onevents-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Basic auth credentials may be in the file.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
