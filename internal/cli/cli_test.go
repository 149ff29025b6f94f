package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/pgEdge/pgedge-starload/internal/report"
	"github.com/pgEdge/pgedge-starload/internal/warehouse"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTablesCommand(t *testing.T) {
	out, err := execute(t, "tables")
	if err != nil {
		t.Fatalf("tables failed: %v", err)
	}
	for _, table := range warehouse.All() {
		if !strings.Contains(out, "CREATE TABLE IF NOT EXISTS "+table.Name+" (") {
			t.Errorf("Expected DDL for %s", table.Name)
		}
	}
	if strings.Index(out, warehouse.DimTime) > strings.Index(out, warehouse.FactOrderItem) {
		t.Error("Expected dimensions before the fact table")
	}
}

func TestCalendarsCommand(t *testing.T) {
	out, err := execute(t, "calendars")
	if err != nil {
		t.Fatalf("calendars failed: %v", err)
	}
	for _, name := range []string{"brazil", "none"} {
		if !strings.Contains(out, "  "+name) {
			t.Errorf("Expected calendar %s in output: %s", name, out)
		}
	}
}

func TestRunRequiresConnection(t *testing.T) {
	_, err := execute(t, "run", "--data-dir", t.TempDir(), "--dry-run=false")
	if err == nil {
		t.Fatal("Expected an error without a connection string")
	}
	if !strings.Contains(err.Error(), "connection string is required") {
		t.Errorf("Expected connection error, got %v", err)
	}
}

func TestGenerateAndDryRun(t *testing.T) {
	dir := t.TempDir()
	reportFile := filepath.Join(dir, "report", "run.yaml")

	if _, err := execute(t, "generate", "--output-dir", dir, "--orders", "50",
		"--customers", "30", "--sellers", "5", "--seed", "3", "--defect-rate", "0"); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if _, err := execute(t, "run", "--data-dir", dir, "--dry-run",
		"--holiday-calendar", "none", "--report-file", reportFile); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	data, err := os.ReadFile(reportFile)
	if err != nil {
		t.Fatalf("Expected report file: %v", err)
	}
	var rep report.RunReport
	if err := yaml.Unmarshal(data, &rep); err != nil {
		t.Fatalf("Failed to parse report: %v", err)
	}
	if rep.Status != report.StatusCompleted {
		t.Errorf("Expected completed, got %s (%s)", rep.Status, rep.Error)
	}
	facts, ok := rep.Table(warehouse.FactOrderItem)
	if !ok || facts.Committed == 0 {
		t.Errorf("Expected committed facts, got %+v", facts)
	}
}

func TestRunMissingExtracts(t *testing.T) {
	_, err := execute(t, "run", "--data-dir", t.TempDir(), "--dry-run")
	if err == nil {
		t.Fatal("Expected an extraction error")
	}
	if !strings.Contains(err.Error(), "extraction") {
		t.Errorf("Expected extraction error, got %v", err)
	}
}

func TestRunUnreachableStoreWritesReport(t *testing.T) {
	t.Cleanup(func() { connection = "" })
	reportFile := filepath.Join(t.TempDir(), "run.yaml")

	_, err := execute(t, "run", "--data-dir", t.TempDir(), "--dry-run=false",
		"--connection", "postgres://starload@127.0.0.1:1/warehouse?connect_timeout=2",
		"--report-file", reportFile)
	if err == nil {
		t.Fatal("Expected an error for an unreachable store")
	}
	if !strings.Contains(err.Error(), "phase connect") {
		t.Errorf("Expected the connect phase in the error, got %v", err)
	}

	data, err := os.ReadFile(reportFile)
	if err != nil {
		t.Fatalf("Expected a report file: %v", err)
	}
	var rep report.RunReport
	if err := yaml.Unmarshal(data, &rep); err != nil {
		t.Fatalf("Failed to parse report: %v", err)
	}
	if rep.Status != report.StatusAborted {
		t.Errorf("Expected aborted, got %s", rep.Status)
	}
	if rep.Error == "" || rep.RunID == "" {
		t.Errorf("Expected run id and error text, got %+v", rep)
	}
}
