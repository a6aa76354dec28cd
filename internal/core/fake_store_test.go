package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// fakeStore is an in-memory Store. Rows are rejected by the reject hook;
// whole tables can be made unavailable with down.
type fakeStore struct {
	mu     sync.Mutex
	next   int
	rows   map[string][]Record
	issued map[string]bool

	reject func(table string, rec Record) error
	down   map[string]error
	panics map[string]bool

	manyCalls int
	oneCalls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows:   make(map[string][]Record),
		issued: make(map[string]bool),
		down:   make(map[string]error),
		panics: make(map[string]bool),
	}
}

func (f *fakeStore) InsertMany(ctx context.Context, table string, records []Record) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manyCalls++

	if f.panics[table] {
		panic("driver exploded")
	}
	if err := f.down[table]; err != nil {
		return nil, err
	}
	for i, rec := range records {
		if err := f.check(table, rec); err != nil {
			return nil, fmt.Errorf("batch row %d: %w", i, err)
		}
	}

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = f.insert(table, rec)
	}
	return ids, nil
}

func (f *fakeStore) InsertOne(ctx context.Context, table string, record Record) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.oneCalls++

	if err := f.down[table]; err != nil {
		return "", err
	}
	if err := f.check(table, record); err != nil {
		return "", err
	}
	return f.insert(table, record), nil
}

func (f *fakeStore) check(table string, rec Record) error {
	if f.reject == nil {
		return nil
	}
	return f.reject(table, rec)
}

func (f *fakeStore) insert(table string, rec Record) string {
	f.next++
	id := fmt.Sprintf("%s-%d", table, f.next)
	stored := make(Record, len(rec))
	for k, v := range rec {
		stored[k] = v
	}
	f.rows[table] = append(f.rows[table], stored)
	f.issued[id] = true
	return id
}

func (f *fakeStore) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, rows := range f.rows {
		n += len(rows)
	}
	return n
}

// testCatalog is a small clinic-shaped catalog.
func testCatalog() *Catalog {
	return NewCatalog(
		TableDescriptor{Name: "employers", RequiredFields: []string{"name"}, TenantScoped: true},
		TableDescriptor{
			Name:           "patients",
			RequiredFields: []string{"name"},
			ForeignKeys:    map[string]string{"employer_id": "employers", "referred_by_id": "patients"},
			TenantScoped:   true,
		},
		TableDescriptor{
			Name:           "appointments",
			RequiredFields: []string{"patient_id", "scheduled_at"},
			ForeignKeys:    map[string]string{"patient_id": "patients", "rescheduled_from_id": "appointments"},
			TenantScoped:   true,
		},
		TableDescriptor{
			Name:        "appointment_notes",
			ForeignKeys: map[string]string{"appointment_id": "appointments"},
		},
	)
}

func mustPayload(t testing.TB, body string) *Payload {
	t.Helper()
	p, err := DecodePayload(strings.NewReader(body))
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	return p
}

// patientsJSON builds n patient objects with ids P1..Pn.
func patientsJSON(n int, name func(i int) string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"id":"P%d","name":%q}`, i+1, name(i+1))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
