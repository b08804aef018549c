package memory

import (
	"context"
	"testing"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

func TestAppendAndRows(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.Append(ctx, ports.Row{Date: core.NewDate(2024, 1, 2), Kind: "income.deposited"})
	if err != nil {
		t.Fatal(err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q", ref)
	}
	if _, err := s.Append(ctx, ports.Row{Kind: "undated"}); err == nil {
		t.Error("expected error for a row without a date")
	}

	rows, _ := s.Rows(ctx)
	if len(rows) != 1 || rows[0].Kind != "income.deposited" {
		t.Fatalf("rows = %v", rows)
	}
	rows[0].Kind = "changed"
	again, _ := s.Rows(ctx)
	if again[0].Kind != "income.deposited" {
		t.Error("Rows must return a copy")
	}
}
