package db

import (
	"testing"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name     string
		conn     string
		maxConns int32
		wantMax  int32
		wantApp  string
	}{
		{
			name:    "defaults",
			conn:    "postgres://user@localhost:5432/warehouse",
			wantMax: DefaultMaxConns,
			wantApp: ApplicationName,
		},
		{
			name:     "explicit pool size",
			conn:     "postgres://user@localhost:5432/warehouse",
			maxConns: 8,
			wantMax:  8,
			wantApp:  ApplicationName,
		},
		{
			name:    "application name kept",
			conn:    "postgres://user@localhost:5432/warehouse?application_name=nightly",
			wantMax: DefaultMaxConns,
			wantApp: "nightly",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseConfig(tt.conn, tt.maxConns)
			if err != nil {
				t.Fatalf("ParseConfig failed: %v", err)
			}
			if cfg.MaxConns != tt.wantMax {
				t.Errorf("Expected max conns %d, got %d", tt.wantMax, cfg.MaxConns)
			}
			if cfg.MinConns > cfg.MaxConns {
				t.Errorf("Expected min conns <= max conns, got %d > %d", cfg.MinConns, cfg.MaxConns)
			}
			if got := cfg.ConnConfig.RuntimeParams["application_name"]; got != tt.wantApp {
				t.Errorf("Expected application name %q, got %q", tt.wantApp, got)
			}
		})
	}
}

func TestParseConfigInvalid(t *testing.T) {
	if _, err := ParseConfig("postgres://user@localhost:notaport/db", 0); err == nil {
		t.Error("Expected an error for an invalid connection string")
	}
}
