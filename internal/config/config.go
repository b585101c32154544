// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Portal   PortalConfig   `mapstructure:"portal" yaml:"portal"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Schedule ScheduleConfig `mapstructure:"schedule" yaml:"schedule"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// PortalConfig identifies the work portal and the account used to drive it.
// Username and Password are only ever read from the environment
// (CALCLICK_PORTAL_USERNAME / CALCLICK_PORTAL_PASSWORD), never from the
// config file, so they cannot end up committed by accident.
type PortalConfig struct {
	URL      string `mapstructure:"url" yaml:"url"`
	Username string `mapstructure:"username" yaml:"-"`
	Password string `mapstructure:"password" yaml:"-"`
	// StepTimeout bounds every individual UI wait (form render, navigation,
	// element interactable). A stuck page fails the stage instead of
	// hanging the process.
	StepTimeout time.Duration `mapstructure:"step_timeout" yaml:"step_timeout"`
	// ArtifactDir is where failure screenshots are written.
	ArtifactDir string `mapstructure:"artifact_dir" yaml:"artifact_dir"`
}

// BrowserConfig holds settings for the headless browser instances.
type BrowserConfig struct {
	Headless bool `mapstructure:"headless" yaml:"headless"`
	// ExecPath optionally pins the Chrome/Chromium binary. When empty,
	// chromedp's default allocator discovers the binary per operating system.
	ExecPath string `mapstructure:"exec_path" yaml:"exec_path"`
	// VersionHint is an optional major-version hint for the installed
	// Chrome, surfaced in logs to make driver/browser mismatches obvious.
	VersionHint string   `mapstructure:"version_hint" yaml:"version_hint"`
	Args        []string `mapstructure:"args" yaml:"args"`
}

// ScheduleConfig tunes the randomized daily trigger times.
type ScheduleConfig struct {
	MorningHour     int `mapstructure:"morning_hour" yaml:"morning_hour"`
	MorningMinute   int `mapstructure:"morning_minute" yaml:"morning_minute"`
	EveningHour     int `mapstructure:"evening_hour" yaml:"evening_hour"`
	EveningMinute   int `mapstructure:"evening_minute" yaml:"evening_minute"`
	VarianceMinutes int `mapstructure:"variance_minutes" yaml:"variance_minutes"`
	// IncludeWeekends widens the routine-day predicate from Mon-Fri to the
	// whole week. The weekly location plan always covers Mon-Fri only.
	IncludeWeekends bool `mapstructure:"include_weekends" yaml:"include_weekends"`
	// PollInterval is the run loop tick. Triggers fire with at most this
	// much latency.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "calclick")
	v.SetDefault("logger.log_file", defaultPath("calclick.log"))
	v.SetDefault("logger.max_size", 1)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", false)

	// -- Portal --
	v.SetDefault("portal.url", "https://panel.rcponline.pl/login/")
	v.SetDefault("portal.step_timeout", "10s")
	v.SetDefault("portal.artifact_dir", defaultPath("artifacts"))

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.version_hint", "")

	// -- Schedule --
	v.SetDefault("schedule.morning_hour", 8)
	v.SetDefault("schedule.morning_minute", 0)
	v.SetDefault("schedule.evening_hour", 16)
	v.SetDefault("schedule.evening_minute", 0)
	v.SetDefault("schedule.variance_minutes", 30)
	v.SetDefault("schedule.include_weekends", false)
	v.SetDefault("schedule.poll_interval", "1m")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Credentials and the browser hint come from the environment only.
	v.BindEnv("portal.username", "CALCLICK_PORTAL_USERNAME")
	v.BindEnv("portal.password", "CALCLICK_PORTAL_PASSWORD")
	v.BindEnv("browser.version_hint", "CALCLICK_CHROME_VERSION")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Viper's BindEnv can miss keys absent from both file and defaults.
	if cfg.Portal.Username == "" {
		cfg.Portal.Username = os.Getenv("CALCLICK_PORTAL_USERNAME")
	}
	if cfg.Portal.Password == "" {
		cfg.Portal.Password = os.Getenv("CALCLICK_PORTAL_PASSWORD")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig creates a configuration struct populated with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Portal.URL == "" {
		return fmt.Errorf("portal.url is a required configuration field")
	}
	if c.Portal.StepTimeout <= 0 {
		return fmt.Errorf("portal.step_timeout must be a positive duration")
	}
	if err := validateClock(c.Schedule.MorningHour, c.Schedule.MorningMinute, "schedule.morning"); err != nil {
		return err
	}
	if err := validateClock(c.Schedule.EveningHour, c.Schedule.EveningMinute, "schedule.evening"); err != nil {
		return err
	}
	if c.Schedule.VarianceMinutes < 0 {
		return fmt.Errorf("schedule.variance_minutes must not be negative")
	}
	if c.Schedule.PollInterval <= 0 {
		return fmt.Errorf("schedule.poll_interval must be a positive duration")
	}
	return nil
}

// ValidateCredentials checks that the login secrets are present. Kept
// separate from Validate so that commands which never touch the portal
// (version, dry scheduling checks) work without credentials.
func (c *Config) ValidateCredentials() error {
	if c.Portal.Username == "" || c.Portal.Password == "" {
		return fmt.Errorf("portal credentials missing: set CALCLICK_PORTAL_USERNAME and CALCLICK_PORTAL_PASSWORD")
	}
	return nil
}

func validateClock(hour, minute int, key string) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("%s_hour must be within [0, 23]", key)
	}
	if minute < 0 || minute > 59 {
		return fmt.Errorf("%s_minute must be within [0, 59]", key)
	}
	return nil
}

// defaultPath resolves a file name under the ~/.calclick directory, falling
// back to the working directory when the home directory cannot be resolved.
func defaultPath(name string) string {
	home, err := homedir.Dir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".calclick", name)
}
