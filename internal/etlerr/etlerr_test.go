package etlerr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindFatal(t *testing.T) {
	tests := []struct {
		kind  Kind
		fatal bool
	}{
		{KindExtraction, true},
		{KindSchema, true},
		{KindParse, false},
		{KindOrphanReference, false},
		{KindBatchCommit, false},
		{KindRowCommit, false},
		{KindMeasureDefaulted, false},
		{KindDuplicateKey, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.Fatal(); got != tt.fatal {
				t.Errorf("Expected Fatal() = %v, got %v", tt.fatal, got)
			}
		})
	}
}

func TestRowErrorMessage(t *testing.T) {
	err := NewParseError("payments", 12, "payment_installments", "-1", "must be at least 1")
	msg := err.Error()

	for _, want := range []string{"parse", "payments", "line 12", "payment_installments", "must be at least 1"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected message to contain %q, got %q", want, msg)
		}
	}
}

func TestFatalErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("loading: %w", Schema("load", "dim_time", cause))

	if !IsFatal(err) {
		t.Fatal("Expected wrapped FatalError to be detected")
	}
	fe, ok := AsFatal(err)
	if !ok {
		t.Fatal("Expected AsFatal to succeed")
	}
	if fe.Phase != "load" || fe.Table != "dim_time" {
		t.Errorf("Expected phase load on dim_time, got %s on %s", fe.Phase, fe.Table)
	}
	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to reach the cause")
	}
	if IsFatal(NewParseError("orders", 1, "order_id", "", "required")) {
		t.Error("Expected RowError not to be fatal")
	}
}
