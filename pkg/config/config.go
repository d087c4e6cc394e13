// Package config loads the server's TOML configuration file, the way
// the original ROPDS project does, layered with environment variable
// overrides and struct-tag validation.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// Config mirrors spec.md §6 "Configuration (TOML, keys exhaustive)",
// one nested struct per table.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Library  LibraryConfig  `koanf:"library"`
	Database DatabaseConfig `koanf:"database"`
	OPDS     OPDSConfig     `koanf:"opds"`
	Scanner  ScannerConfig  `koanf:"scanner"`
	Web      WebConfig      `koanf:"web"`
	Upload   UploadConfig   `koanf:"upload"`
}

type ServerConfig struct {
	Host            string `koanf:"host"`
	Port            int    `koanf:"port"`
	LogLevel        string `koanf:"log_level"`
	SessionSecret   string `koanf:"session_secret"`
	SessionTTLHours int    `koanf:"session_ttl_hours"`
}

type LibraryConfig struct {
	RootPath       string `koanf:"root_path" validate:"required"`
	CoversPath     string `koanf:"covers_path"`
	BookExtensions string `koanf:"book_extensions"`
	ScanZip        bool   `koanf:"scan_zip"`
	ZipCodepage    string `koanf:"zip_codepage"`
	InpxEnable     bool   `koanf:"inpx_enable"`
}

// Extensions splits BookExtensions on commas, trims whitespace, and
// lowercases each entry, matching the scanner's extension lookup.
func (l LibraryConfig) Extensions() []string {
	parts := strings.Split(l.BookExtensions, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

type DatabaseConfig struct {
	URL string `koanf:"url"`
}

type OPDSConfig struct {
	Title        string `koanf:"title"`
	Subtitle     string `koanf:"subtitle"`
	MaxItems     int    `koanf:"max_items"`
	SplitItems   int    `koanf:"split_items"`
	AuthRequired bool   `koanf:"auth_required"`
	ShowCovers   bool   `koanf:"show_covers"`
	AlphabetMenu bool   `koanf:"alphabet_menu"`
	HideDoubles  bool   `koanf:"hide_doubles"`
}

type ScannerConfig struct {
	ScheduleMinutes   []int `koanf:"schedule_minutes"`
	ScheduleHours     []int `koanf:"schedule_hours"`
	ScheduleDayOfWeek []int `koanf:"schedule_day_of_week"`
	DeleteLogical     bool  `koanf:"delete_logical"`
	SkipUnchanged     bool  `koanf:"skip_unchanged"`
	TestZip           bool  `koanf:"test_zip"`
	TestFiles         bool  `koanf:"test_files"`
	WorkersNum        int   `koanf:"workers_num"`
}

type WebConfig struct {
	Language       string `koanf:"language"`
	Theme          string `koanf:"theme"`
	ReadHistoryMax int    `koanf:"read_history_max"`
}

type UploadConfig struct {
	AllowUpload     bool   `koanf:"allow_upload"`
	UploadPath      string `koanf:"upload_path"`
	MaxUploadSizeMB int    `koanf:"max_upload_size_mb"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8081,
			LogLevel:        "info",
			SessionTTLHours: 24,
		},
		Library: LibraryConfig{
			CoversPath:     "covers",
			BookExtensions: "fb2, epub, mobi, pdf, djvu, doc, docx, zip",
			ScanZip:        true,
			ZipCodepage:    "cp866",
			InpxEnable:     false,
		},
		Database: DatabaseConfig{
			URL: "sqlite://ropds.db",
		},
		OPDS: OPDSConfig{
			Title:        "ROPDS",
			MaxItems:     30,
			SplitItems:   300,
			AuthRequired: true,
			ShowCovers:   true,
			AlphabetMenu: true,
			HideDoubles:  false,
		},
		Scanner: ScannerConfig{
			ScheduleMinutes:   []int{0},
			ScheduleHours:     []int{0, 12},
			ScheduleDayOfWeek: []int{},
			DeleteLogical:     true,
			WorkersNum:        1,
		},
		Web: WebConfig{
			Language:       "en",
			Theme:          "light",
			ReadHistoryMax: 50,
		},
		Upload: UploadConfig{
			AllowUpload:     false,
			MaxUploadSizeMB: 100,
		},
	}
}

// New loads the config file at path (TOML), merges environment variable
// overrides (uppercase, underscore-delimited, e.g. LIBRARY_ROOT_PATH),
// validates the result, and generates a session secret when one was not
// supplied.
func New(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := defaults()

	if path == "" {
		path = "config.toml"
	}
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	if err := k.Load(env.Provider("", ".", normalizeEnvKey), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load environment variables")
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if cfg.Server.SessionSecret == "" {
		secret, err := randomHex(32)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate session secret")
		}
		cfg.Server.SessionSecret = secret
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a minimally valid Config pointed at an in-memory
// SQLite database and a temp library root.
func NewForTest(libraryRoot string) *Config {
	cfg := defaults()
	cfg.Library.RootPath = libraryRoot
	cfg.Database.URL = "sqlite://:memory:"
	cfg.Server.Port = 0
	cfg.Server.SessionSecret = "test-secret"
	return cfg
}

// normalizeEnvKey turns SERVER_PORT into server.port so it lines up
// with the TOML table structure above. Only the first underscore
// separates table from key, so LIBRARY_ROOT_PATH becomes
// library.root_path.
func normalizeEnvKey(s string) string {
	return strings.Replace(strings.ToLower(s), "_", ".", 1)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func validateConfig(cfg *Config) error {
	validate := validator.New()
	err := validate.Struct(cfg)
	if err == nil {
		return validateSchedule(cfg)
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(err, "config validation failed")
	}

	var msgs []string
	for _, e := range validationErrors {
		msgs = append(msgs, "missing required config: "+e.Namespace())
	}
	return errors.New("configuration validation failed:\n\n" + strings.Join(msgs, "\n\n"))
}

// validateSchedule enforces spec.md §4.D's range checks on the cron-like
// scanner schedule: minutes in [0,59], hours in [0,23], days in [1,7].
func validateSchedule(cfg *Config) error {
	for _, m := range cfg.Scanner.ScheduleMinutes {
		if m < 0 || m > 59 {
			return errors.Errorf("invalid scanner.schedule_minutes value %d (must be 0..59)", m)
		}
	}
	for _, h := range cfg.Scanner.ScheduleHours {
		if h < 0 || h > 23 {
			return errors.Errorf("invalid scanner.schedule_hours value %d (must be 0..23)", h)
		}
	}
	for _, d := range cfg.Scanner.ScheduleDayOfWeek {
		if d < 1 || d > 7 {
			return errors.Errorf("invalid scanner.schedule_day_of_week value %d (must be 1..7, Mon=1)", d)
		}
	}
	return nil
}

// SessionTTL returns the configured session lifetime as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Server.SessionTTLHours) * time.Hour
}
