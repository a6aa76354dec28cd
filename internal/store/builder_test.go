package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/JonMunkholm/tenantrestore/internal/core"
)

func TestBuildInsert(t *testing.T) {
	tests := []struct {
		name      string
		table     string
		records   []core.Record
		wantQuery string
		wantArgs  int
	}{
		{
			name:      "single row",
			table:     "patients",
			records:   []core.Record{{"name": "Ann", "clinic_id": "t1"}},
			wantQuery: `INSERT INTO "patients" ("clinic_id", "name") VALUES ($1, $2) RETURNING id::text`,
			wantArgs:  2,
		},
		{
			name:  "missing column becomes default",
			table: "patients",
			records: []core.Record{
				{"name": "Ann", "email": "a@x"},
				{"name": "Bob"},
			},
			wantQuery: `INSERT INTO "patients" ("email", "name") VALUES ($1, $2), (DEFAULT, $3) RETURNING id::text`,
			wantArgs:  3,
		},
		{
			name:      "no columns",
			table:     "waitlist",
			records:   []core.Record{{}, {}},
			wantQuery: `INSERT INTO "waitlist" (id) VALUES (DEFAULT), (DEFAULT) RETURNING id::text`,
			wantArgs:  0,
		},
		{
			name:      "identifiers are quoted",
			table:     `odd"name`,
			records:   []core.Record{{"a b": 1}},
			wantQuery: `INSERT INTO "odd""name" ("a b") VALUES ($1) RETURNING id::text`,
			wantArgs:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := buildInsert(tt.table, tt.records)
			if err != nil {
				t.Fatalf("buildInsert() error = %v", err)
			}
			if query != tt.wantQuery {
				t.Errorf("query =\n  %s\nwant\n  %s", query, tt.wantQuery)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("len(args) = %d, want %d", len(args), tt.wantArgs)
			}
		})
	}
}

func TestBuildInsertEmpty(t *testing.T) {
	if _, _, err := buildInsert("patients", nil); err == nil {
		t.Error("expected error for empty records")
	}
}

func TestBuildInsertParameterLimit(t *testing.T) {
	rec := core.Record{}
	for i := 0; i < 1000; i++ {
		rec[fmt.Sprintf("col%d", i)] = i
	}
	records := make([]core.Record, 100)
	for i := range records {
		records[i] = rec
	}

	_, _, err := buildInsert("wide", records)
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("buildInsert() error = %v, want parameter limit error", err)
	}
}

func TestBuildInsertArgsOrder(t *testing.T) {
	_, args, err := buildInsert("t", []core.Record{
		{"b": "b1", "a": "a1"},
		{"a": "a2", "b": "b2"},
	})
	if err != nil {
		t.Fatalf("buildInsert() error = %v", err)
	}
	want := []any{"a1", "b1", "a2", "b2"}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %v, want %v", i, args[i], want[i])
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"string", "x", "x"},
		{"bool", true, true},
		{"number", json.Number("12.50"), "12.50"},
		{"object", map[string]any{"k": "v"}, `{"k":"v"}`},
		{"array", []any{"a", json.Number("1")}, `["a",1]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatValue(tt.in)
			if err != nil {
				t.Fatalf("formatValue() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("formatValue(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
