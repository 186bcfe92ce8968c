// Package config handles configuration loading from files, defaults, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/javiermolinar/clinicflow/internal/appointment"
	"github.com/javiermolinar/clinicflow/internal/calendar"
	"github.com/javiermolinar/clinicflow/internal/dateutil"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRemote   = "remote"
	DriverMemory   = "memory"
)

// Config holds the application configuration.
type Config struct {
	Schedule ScheduleConfig `toml:"schedule"`
	Storage  StorageConfig  `toml:"storage"`
	Clinic   ClinicConfig   `toml:"clinic"`
	Cache    CacheConfig    `toml:"cache"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
	UI       UIConfig       `toml:"ui"`
}

// ScheduleConfig holds calendar and intake settings.
type ScheduleConfig struct {
	DayStart        string `toml:"day_start"`         // first visible grid hour, e.g. "07:00"
	DayEnd          string `toml:"day_end"`           // e.g. "21:00"
	IntakeFirstHour int    `toml:"intake_first_hour"` // e.g. 9
	IntakeLastHour  int    `toml:"intake_last_hour"`  // e.g. 20
	FirstWeekday    string `toml:"first_weekday"`     // month grid column 0
	DefaultDuration int    `toml:"default_duration"`  // minutes
}

// StorageConfig selects and configures the appointment repository.
type StorageConfig struct {
	Driver string `toml:"driver"` // "sqlite", "postgres", "remote", "memory"
	DBPath string `toml:"db_path"`
	DSN    string `toml:"dsn"`
	APIURL string `toml:"api_url"`
}

// ClinicConfig scopes all data to one organization.
type ClinicConfig struct {
	OrgID string `toml:"org_id"`
}

// CacheConfig holds the availability cache settings. An empty address
// disables the cache.
type CacheConfig struct {
	RedisAddr       string `toml:"redis_addr"`
	AvailabilityTTL string `toml:"availability_ttl"` // e.g. "30s"
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"` // empty writes to stderr
}

// UIConfig holds TUI settings.
type UIConfig struct {
	Theme       string `toml:"theme"`        // "mocha", "macchiato", "frappe", "latte"
	DefaultView string `toml:"default_view"` // "day", "week", "month"
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Schedule: ScheduleConfig{
			DayStart:        "07:00",
			DayEnd:          "21:00",
			IntakeFirstHour: 9,
			IntakeLastHour:  20,
			FirstWeekday:    "sunday",
			DefaultDuration: 50,
		},
		Storage: StorageConfig{
			Driver: DriverSQLite,
			DBPath: defaultDBPath(),
		},
		Clinic: ClinicConfig{
			OrgID: "default",
		},
		Cache: CacheConfig{
			AvailabilityTTL: "30s",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level: "info",
			File:  defaultLogPath(),
		},
		UI: UIConfig{
			Theme:       "frappe",
			DefaultView: "week",
		},
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "clinicflow.db"
	}
	return filepath.Join(home, ".local", "share", "clinicflow", "clinicflow.db")
}

func defaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "clinicflow.log"
	}
	return filepath.Join(home, ".local", "state", "clinicflow", "clinicflow.log")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "clinicflow", "config.toml")
}

// Load loads configuration from the default path, merging with defaults and env vars.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom loads configuration from the specified path.
// It starts with defaults, overlays file config if it exists, then applies env
// overrides. A .env file next to the config file is read first; variables
// already set in the environment win over it.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	cfg.Storage.DBPath = expandPath(cfg.Storage.DBPath)
	cfg.Log.File = expandPath(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads config from a file if it exists.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over file config.
func applyEnvOverrides(cfg *Config) {
	strVars := map[string]*string{
		"CLINICFLOW_DAY_START":        &cfg.Schedule.DayStart,
		"CLINICFLOW_DAY_END":          &cfg.Schedule.DayEnd,
		"CLINICFLOW_FIRST_WEEKDAY":    &cfg.Schedule.FirstWeekday,
		"CLINICFLOW_STORAGE_DRIVER":   &cfg.Storage.Driver,
		"CLINICFLOW_DB_PATH":          &cfg.Storage.DBPath,
		"CLINICFLOW_DSN":              &cfg.Storage.DSN,
		"CLINICFLOW_API_URL":          &cfg.Storage.APIURL,
		"CLINICFLOW_ORG_ID":           &cfg.Clinic.OrgID,
		"CLINICFLOW_REDIS_ADDR":       &cfg.Cache.RedisAddr,
		"CLINICFLOW_AVAILABILITY_TTL": &cfg.Cache.AvailabilityTTL,
		"CLINICFLOW_SERVER_ADDR":      &cfg.Server.Addr,
		"CLINICFLOW_LOG_LEVEL":        &cfg.Log.Level,
		"CLINICFLOW_LOG_FILE":         &cfg.Log.File,
		"CLINICFLOW_UI_THEME":         &cfg.UI.Theme,
		"CLINICFLOW_DEFAULT_VIEW":     &cfg.UI.DefaultView,
	}
	for name, field := range strVars {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}

	intVars := map[string]*int{
		"CLINICFLOW_INTAKE_FIRST_HOUR": &cfg.Schedule.IntakeFirstHour,
		"CLINICFLOW_INTAKE_LAST_HOUR":  &cfg.Schedule.IntakeLastHour,
		"CLINICFLOW_DEFAULT_DURATION":  &cfg.Schedule.DefaultDuration,
	}
	for name, field := range intVars {
		if v := os.Getenv(name); v != "" {
			var n int
			if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
				*field = n
			}
		}
	}
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	start, err := clockField(c.Schedule.DayStart, "day_start")
	if err != nil {
		return err
	}
	end, err := clockField(c.Schedule.DayEnd, "day_end")
	if err != nil {
		return err
	}
	if start >= end {
		return errors.New("day_start must be before day_end")
	}

	first, last := c.Schedule.IntakeFirstHour, c.Schedule.IntakeLastHour
	if first < 0 || last > 23 || first > last {
		return fmt.Errorf("intake hours must satisfy 0 <= first <= last <= 23, got %d-%d", first, last)
	}
	if c.Schedule.DefaultDuration <= 0 {
		return errors.New("default_duration must be positive")
	}
	if _, err := dateutil.ParseWeekday(c.Schedule.FirstWeekday); err != nil {
		return fmt.Errorf("first_weekday: %w", err)
	}

	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.DBPath == "" {
			return errors.New("db_path must be set")
		}
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return errors.New("dsn must be set for the postgres driver")
		}
	case DriverRemote:
		if c.Storage.APIURL == "" {
			return errors.New("api_url must be set for the remote driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Storage.Driver)
	}

	if strings.TrimSpace(c.Clinic.OrgID) == "" {
		return errors.New("org_id must be set")
	}
	if c.Cache.AvailabilityTTL != "" {
		if d, err := time.ParseDuration(c.Cache.AvailabilityTTL); err != nil || d <= 0 {
			return fmt.Errorf("availability_ttl must be a positive duration, got %q", c.Cache.AvailabilityTTL)
		}
	}
	if _, err := calendar.ParseView(c.UI.DefaultView); err != nil {
		return fmt.Errorf("default_view: %w", err)
	}
	return nil
}

// clockField parses an "HH:MM" setting into minutes.
func clockField(v, field string) (int, error) {
	m, err := appointment.ClockToMinutes(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be in HH:MM format, got %q", field, v)
	}
	return m, nil
}

// FirstWeekday returns the configured first column of the month grid.
func (c *Config) FirstWeekday() time.Weekday {
	wd, err := dateutil.ParseWeekday(c.Schedule.FirstWeekday)
	if err != nil {
		return time.Sunday
	}
	return wd
}

// DayStartHour returns the first visible grid hour.
func (c *Config) DayStartHour() float64 {
	m, _ := appointment.ClockToMinutes(c.Schedule.DayStart)
	return float64(m) / 60
}

// DayEndHour returns the hour the grid stops at.
func (c *Config) DayEndHour() float64 {
	m, _ := appointment.ClockToMinutes(c.Schedule.DayEnd)
	return float64(m) / 60
}

// AvailabilityTTL returns the cache TTL, or zero for the cache default.
func (c *Config) AvailabilityTTL() time.Duration {
	d, err := time.ParseDuration(c.Cache.AvailabilityTTL)
	if err != nil {
		return 0
	}
	return d
}

// DefaultView returns the calendar view opened at startup.
func (c *Config) DefaultView() calendar.View {
	v, err := calendar.ParseView(c.UI.DefaultView)
	if err != nil {
		return calendar.ViewWeek
	}
	return v
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigPath())
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
