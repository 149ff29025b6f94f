//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package logging provides structured logging for pgedge-starload.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// sampled is a burst-limited view of Logger used for per-row warnings.
var sampled zerolog.Logger

// Config holds logging configuration.
type Config struct {
	Level      string
	Pretty     bool
	TimeFormat string

	// SampleBurst is how many row-level events are emitted per
	// SamplePeriod before the sampled logger starts dropping them.
	SampleBurst  uint32
	SamplePeriod time.Duration
}

// DefaultConfig returns default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:        "info",
		Pretty:       true,
		TimeFormat:   time.RFC3339,
		SampleBurst:  20,
		SamplePeriod: 10 * time.Second,
	}
}

// Init initializes the global logger with the given configuration.
func Init(cfg Config) {
	InitWithWriter(cfg, os.Stderr)
}

// InitWithWriter initializes the global logger writing to out.
func InitWithWriter(cfg Config, out io.Writer) {
	output := out

	// Use default time format if not specified
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: timeFormat,
		}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	Logger = zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	burst := cfg.SampleBurst
	if burst == 0 {
		burst = 20
	}
	period := cfg.SamplePeriod
	if period == 0 {
		period = 10 * time.Second
	}
	sampled = Logger.Sample(&zerolog.BurstSampler{
		Burst:  burst,
		Period: period,
	})
}

// Debug returns a debug level event.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Info returns an info level event.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Warn returns a warning level event.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Error returns an error level event.
func Error() *zerolog.Event {
	return Logger.Error()
}

// RowWarn returns a sampled warning event for row-level data quality
// problems. Callers must count the problem separately; the event may be
// dropped.
func RowWarn() *zerolog.Event {
	return sampled.Warn()
}

func init() {
	Init(DefaultConfig())
}
