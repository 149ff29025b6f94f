//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-starload.
// Configuration is loaded from config files and CLI flags (no environment variables).
// CLI flags take precedence over config file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// DateLayout is the layout used for calendar range settings.
const DateLayout = "2006-01-02"

// Config holds all configuration for pgedge-starload.
type Config struct {
	// Connection is the PostgreSQL connection string of the warehouse.
	Connection string `mapstructure:"connection"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// Source describes where the extracted CSV files live.
	Source SourceConfig `mapstructure:"source"`

	// Load holds configuration for the transform and load run.
	Load LoadConfig `mapstructure:"load"`

	// Init holds configuration for the init subcommand.
	Init InitConfig `mapstructure:"init"`

	// Generate holds configuration for the generate subcommand.
	Generate GenerateConfig `mapstructure:"generate"`

	// Schedule holds configuration for the schedule subcommand.
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

// SourceConfig names the extract files, relative to DataDir.
type SourceConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	Orders     string `mapstructure:"orders"`
	OrderItems string `mapstructure:"order_items"`
	Customers  string `mapstructure:"customers"`
	Sellers    string `mapstructure:"sellers"`
	Payments   string `mapstructure:"payments"`
	Reviews    string `mapstructure:"reviews"`
	Cities     string `mapstructure:"cities"`
}

// LoadConfig holds configuration for a warehouse load.
type LoadConfig struct {
	// BatchSize is the number of rows committed per transaction.
	BatchSize int `mapstructure:"batch_size"`

	// FuzzyThreshold is the minimum similarity (inclusive) for a fuzzy city match.
	FuzzyThreshold float64 `mapstructure:"fuzzy_threshold"`

	// CalendarStart and CalendarEnd bound the time dimension (YYYY-MM-DD, inclusive).
	CalendarStart string `mapstructure:"calendar_start"`
	CalendarEnd   string `mapstructure:"calendar_end"`

	// HolidayCalendar selects the holiday calendar for the time dimension.
	HolidayCalendar string `mapstructure:"holiday_calendar"`

	// Workers bounds concurrent city matching per geographic dimension.
	Workers int `mapstructure:"workers"`

	// VerifyIntegrity runs the post-load referential integrity checks.
	VerifyIntegrity bool `mapstructure:"verify_integrity"`

	// Truncate empties the warehouse tables before loading.
	Truncate bool `mapstructure:"truncate"`

	// DryRun loads into an in-memory store instead of PostgreSQL.
	DryRun bool `mapstructure:"dry_run"`

	// ReportFile, when set, receives the run report as YAML.
	ReportFile string `mapstructure:"report_file"`
}

// InitConfig holds configuration for warehouse schema initialization.
type InitConfig struct {
	// DropExisting drops existing warehouse tables before initialization.
	DropExisting bool `mapstructure:"drop_existing"`
}

// GenerateConfig holds configuration for synthetic extract generation.
type GenerateConfig struct {
	// OutputDir is where the CSV files are written.
	OutputDir string `mapstructure:"output_dir"`

	// Orders is the number of orders to generate.
	Orders int `mapstructure:"orders"`

	// Customers is the number of distinct customers.
	Customers int `mapstructure:"customers"`

	// Sellers is the number of distinct sellers.
	Sellers int `mapstructure:"sellers"`

	// Seed makes generation reproducible; 0 uses a random seed.
	Seed uint64 `mapstructure:"seed"`

	// DefectRate is the probability (0-1) that a row gets a deliberate defect.
	DefectRate float64 `mapstructure:"defect_rate"`
}

// ScheduleConfig holds configuration for scheduled reloads.
type ScheduleConfig struct {
	// Interval between reloads (Go duration, e.g. "6h").
	Interval string `mapstructure:"interval"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Source: SourceConfig{
			DataDir:    ".",
			Orders:     "olist_orders_dataset.csv",
			OrderItems: "olist_order_items_dataset.csv",
			Customers:  "olist_customers_dataset.csv",
			Sellers:    "olist_sellers_dataset.csv",
			Payments:   "olist_order_payments_dataset.csv",
			Reviews:    "olist_order_reviews_dataset.csv",
			Cities:     "BRAZIL_CITIES_REV2022.CSV",
		},
		Load: LoadConfig{
			BatchSize:       1000,
			FuzzyThreshold:  0.80,
			CalendarStart:   "2016-01-01",
			CalendarEnd:     "2019-12-31",
			HolidayCalendar: "brazil",
			Workers:         4,
			VerifyIntegrity: true,
		},
		Init: InitConfig{
			DropExisting: false,
		},
		Generate: GenerateConfig{
			OutputDir:  "./data",
			Orders:     5000,
			Customers:  3000,
			Sellers:    300,
			DefectRate: 0.02,
		},
		Schedule: ScheduleConfig{
			Interval: "24h",
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-starload.yaml
// 3. ~/.config/pgedge-starload/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Set config name and type
	v.SetConfigName("pgedge-starload")
	v.SetConfigType("yaml")

	// Add config paths
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-starload"))
	}

	// Use specific config file if provided
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Start with defaults
	cfg := DefaultConfig()

	// Unmarshal config file values
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Connection == "" {
		return fmt.Errorf("connection string is required")
	}
	return nil
}

// ValidateRun checks configuration required for the run command.
func (c *Config) ValidateRun() error {
	if !c.Load.DryRun {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	if c.Source.DataDir == "" {
		return fmt.Errorf("source data_dir is required")
	}
	if c.Load.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1")
	}
	if c.Load.FuzzyThreshold <= 0 || c.Load.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy_threshold must be in (0, 1]")
	}
	if c.Load.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	start, end, err := c.Load.CalendarRange()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("calendar_end must be >= calendar_start")
	}
	return nil
}

// ValidateGenerate checks configuration required for the generate command.
func (c *Config) ValidateGenerate() error {
	if c.Generate.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.Generate.Orders < 1 {
		return fmt.Errorf("orders must be at least 1")
	}
	if c.Generate.Customers < 1 {
		return fmt.Errorf("customers must be at least 1")
	}
	if c.Generate.Sellers < 1 {
		return fmt.Errorf("sellers must be at least 1")
	}
	if c.Generate.DefectRate < 0 || c.Generate.DefectRate > 1 {
		return fmt.Errorf("defect_rate must be between 0 and 1")
	}
	return nil
}

// ValidateSchedule checks configuration required for the schedule command.
func (c *Config) ValidateSchedule() error {
	if err := c.ValidateRun(); err != nil {
		return err
	}
	if _, err := c.Schedule.IntervalDuration(); err != nil {
		return err
	}
	return nil
}

// CalendarRange parses the configured time dimension range.
func (l LoadConfig) CalendarRange() (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, l.CalendarStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid calendar_start %q: %w", l.CalendarStart, err)
	}
	end, err := time.Parse(DateLayout, l.CalendarEnd)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid calendar_end %q: %w", l.CalendarEnd, err)
	}
	return start, end, nil
}

// IntervalDuration parses the reload interval.
func (s ScheduleConfig) IntervalDuration() (time.Duration, error) {
	d, err := time.ParseDuration(s.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid schedule interval %q: %w", s.Interval, err)
	}
	if d < time.Minute {
		return 0, fmt.Errorf("schedule interval must be at least 1m")
	}
	return d, nil
}
