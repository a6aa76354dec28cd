package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestImporter_EmployerPatientScenario(t *testing.T) {
	store := newFakeStore()
	im := NewImporter(testCatalog(), store, Options{})

	p := mustPayload(t, `{"version":"1.0","data":{
		"employers":[{"id":"E1","name":"Acme"}],
		"patients":[{"id":"P1","employer_id":"E1","name":"Joe"}]}}`)

	res := im.Run(context.Background(), "run-1", ModeImport, "T2", p)

	if !res.Success {
		t.Fatalf("Success = false, validation = %+v", res.Validation)
	}
	if res.State != StateCompleted {
		t.Errorf("State = %s, want %s", res.State, StateCompleted)
	}

	want := TableSummary{Total: 1, Imported: 1}
	if got := res.Summary["employers"]; got != want {
		t.Errorf("employers summary = %+v, want %+v", got, want)
	}
	if got := res.Summary["patients"]; got != want {
		t.Errorf("patients summary = %+v, want %+v", got, want)
	}
	if res.MappingStats.ByOldID < 1 {
		t.Errorf("by_old_id = %d, want >= 1", res.MappingStats.ByOldID)
	}

	employers := store.rows["employers"]
	patients := store.rows["patients"]
	if len(employers) != 1 || len(patients) != 1 {
		t.Fatalf("stored employers=%d patients=%d, want 1 each", len(employers), len(patients))
	}
	if _, ok := patients[0]["id"]; ok {
		t.Error("patient row still carries the source id")
	}
	if got := patients[0][TenantField]; got != "T2" {
		t.Errorf("patient clinic_id = %v, want T2", got)
	}
	if got := patients[0]["employer_id"]; got != "employers-1" {
		t.Errorf("patient employer_id = %v, want employers-1", got)
	}

	// employers are inserted before patients
	if store.next != 2 {
		t.Errorf("store issued %d ids, want 2", store.next)
	}
}

func TestImporter_UnsupportedVersion(t *testing.T) {
	store := newFakeStore()
	im := NewImporter(testCatalog(), store, Options{})

	p := mustPayload(t, `{"version":"0.9","clinic_name":"A","backup_date":"2024-01-01",
		"data":{"employers":[{"id":"E1","name":"Acme"}]}}`)

	for _, mode := range []Mode{ModeDryRun, ModeImport} {
		t.Run(string(mode), func(t *testing.T) {
			res := im.Run(context.Background(), "run", mode, "T2", p)
			if res.Success {
				t.Error("Success = true, want false")
			}
			if res.Validation.Valid {
				t.Error("Validation.Valid = true, want false")
			}
			if res.State != StateAborted {
				t.Errorf("State = %s, want %s", res.State, StateAborted)
			}
			if len(res.Validation.Errors) == 0 || !strings.Contains(res.Validation.Errors[0], "version") {
				t.Errorf("Errors = %v, want a version mismatch", res.Validation.Errors)
			}
			if len(res.Summary) != 0 {
				t.Errorf("Summary = %v, want empty", res.Summary)
			}
		})
	}

	if store.writes() != 0 {
		t.Errorf("store received %d rows, want 0", store.writes())
	}
}

func TestImporter_DryRunIsIdempotent(t *testing.T) {
	store := newFakeStore()
	im := NewImporter(testCatalog(), store, Options{})

	p := mustPayload(t, `{"version":"1.0","data":{
		"employers":[{"id":"E1"}],
		"patients":[{"id":"P1","employer_id":"E404","name":"Joe"}],
		"x_unknown":[]}}`)

	first := im.Run(context.Background(), "a", ModeDryRun, "", p)
	second := im.Run(context.Background(), "b", ModeDryRun, "", p)

	if !reflect.DeepEqual(first.Validation, second.Validation) {
		t.Errorf("validation differs between runs:\n%+v\n%+v", first.Validation, second.Validation)
	}
	if first.State != StateDryRunComplete {
		t.Errorf("State = %s, want %s", first.State, StateDryRunComplete)
	}
	if !first.Success {
		t.Error("dry run with warnings only should succeed")
	}
	if len(first.Validation.Warnings) == 0 {
		t.Error("expected warnings for the broken reference and missing metadata")
	}
	if store.manyCalls+store.oneCalls != 0 {
		t.Errorf("dry run called the store %d times", store.manyCalls+store.oneCalls)
	}
}

func TestImporter_GracefulDegradation(t *testing.T) {
	store := newFakeStore()
	store.reject = func(table string, rec Record) error {
		if rec["name"] == "BAD" {
			return errors.New(`duplicate key value violates unique constraint "patients_name_key"`)
		}
		return nil
	}
	im := NewImporter(testCatalog(), store, Options{})

	body := fmt.Sprintf(`{"version":"1.0","data":{"patients":%s}}`, patientsJSON(50, func(i int) string {
		if i == 17 {
			return "BAD"
		}
		return fmt.Sprintf("patient %d", i)
	}))
	res := im.Run(context.Background(), "run", ModeImport, "T2", mustPayload(t, body))

	want := TableSummary{Total: 50, Imported: 49, Errors: 1}
	if got := res.Summary["patients"]; got != want {
		t.Errorf("patients summary = %+v, want %+v", got, want)
	}
	if !res.Success {
		t.Error("49 imported and 1 error should be a lenient success")
	}

	var fallback int
	for _, d := range res.Details {
		if d.Table == "patients" && d.Action == ActionFallback {
			fallback = d.Count
		}
	}
	if fallback != 1 {
		t.Errorf("fallback count = %d, want 1", fallback)
	}

	found := false
	for _, w := range res.Validation.Warnings {
		if strings.Contains(w, "patients row 17") && strings.Contains(w, "DB001") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings %v do not mention the rejected row", res.Validation.Warnings)
	}
}

func TestImporter_RowWarningsAreCapped(t *testing.T) {
	store := newFakeStore()
	store.reject = func(table string, rec Record) error {
		return errors.New("null value in column \"dob\" violates not-null constraint")
	}
	im := NewImporter(testCatalog(), store, Options{BatchSize: 4, MaxRowWarnings: 3})

	body := fmt.Sprintf(`{"version":"1.0","clinic_name":"c","backup_date":"d","data":{"patients":%s}}`,
		patientsJSON(10, func(i int) string { return "x" }))
	res := im.Run(context.Background(), "run", ModeImport, "T2", mustPayload(t, body))

	if got := res.Summary["patients"].Errors; got != 10 {
		t.Errorf("errors = %d, want 10", got)
	}
	rowWarnings := 0
	for _, w := range res.Validation.Warnings {
		if strings.Contains(w, "rejected") {
			rowWarnings++
		}
	}
	if rowWarnings != 3 {
		t.Errorf("row warnings = %d, want 3", rowWarnings)
	}
	if res.Success {
		t.Error("Success = true with nothing imported")
	}
}

func TestImporter_InfrastructureFailureAbortsTable(t *testing.T) {
	store := newFakeStore()
	store.down["employers"] = fmt.Errorf("%w: connection refused", ErrStoreUnavailable)
	im := NewImporter(testCatalog(), store, Options{BatchSize: 2})

	p := mustPayload(t, `{"version":"1.0","data":{
		"employers":[{"id":"E1","name":"a"},{"id":"E2","name":"b"},{"id":"E3","name":"c"}],
		"patients":[{"id":"P1","employer_id":"E1","name":"Joe"}]}}`)
	res := im.Run(context.Background(), "run", ModeImport, "T2", p)

	if got, want := res.Summary["employers"], (TableSummary{Total: 3, Errors: 3}); got != want {
		t.Errorf("employers summary = %+v, want %+v", got, want)
	}
	if got, want := res.Summary["patients"], (TableSummary{Total: 1, Imported: 1}); got != want {
		t.Errorf("patients summary = %+v, want %+v", got, want)
	}
	if got := store.rows["patients"][0]["employer_id"]; got != nil {
		t.Errorf("employer_id = %v, want nil after employers failed", got)
	}
	if store.oneCalls != 0 {
		t.Errorf("row fallback ran %d times for an unavailable store", store.oneCalls)
	}
	if res.State != StateCompleted {
		t.Errorf("State = %s, want %s", res.State, StateCompleted)
	}
}

func TestImporter_IDCountMismatchAbortsTable(t *testing.T) {
	store := &shortStore{fakeStore: newFakeStore()}
	im := NewImporter(testCatalog(), store, Options{})

	p := mustPayload(t, `{"version":"1.0","data":{"employers":[{"id":"E1","name":"a"},{"id":"E2","name":"b"}]}}`)
	res := im.Run(context.Background(), "run", ModeImport, "T2", p)

	if got, want := res.Summary["employers"], (TableSummary{Total: 2, Errors: 2}); got != want {
		t.Errorf("employers summary = %+v, want %+v", got, want)
	}
}

// shortStore returns one id fewer than requested.
type shortStore struct{ *fakeStore }

func (s *shortStore) InsertMany(ctx context.Context, table string, records []Record) ([]string, error) {
	ids, err := s.fakeStore.InsertMany(ctx, table, records)
	if err != nil || len(ids) == 0 {
		return ids, err
	}
	return ids[:len(ids)-1], nil
}

func TestImporter_PanicIsContainedToTable(t *testing.T) {
	store := newFakeStore()
	store.panics["employers"] = true
	im := NewImporter(testCatalog(), store, Options{})

	p := mustPayload(t, `{"version":"1.0","data":{
		"employers":[{"id":"E1","name":"a"}],
		"patients":[{"id":"P1","name":"Joe"}]}}`)
	res := im.Run(context.Background(), "run", ModeImport, "T2", p)

	if got := res.Summary["employers"].Errors; got != 1 {
		t.Errorf("employers errors = %d, want 1", got)
	}
	if got := res.Summary["patients"].Imported; got != 1 {
		t.Errorf("patients imported = %d, want 1", got)
	}
}

func TestImporter_CancelledContextErrorsRemainingTables(t *testing.T) {
	store := newFakeStore()
	im := NewImporter(testCatalog(), store, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := mustPayload(t, `{"version":"1.0","data":{
		"employers":[{"id":"E1","name":"a"}],
		"patients":[{"id":"P1","name":"Joe"},{"id":"P2","name":"Ann"}]}}`)
	res := im.Run(ctx, "run", ModeImport, "T2", p)

	if got := res.Summary["employers"].Errors; got != 1 {
		t.Errorf("employers errors = %d, want 1", got)
	}
	if got := res.Summary["patients"].Errors; got != 2 {
		t.Errorf("patients errors = %d, want 2", got)
	}
	if store.writes() != 0 {
		t.Errorf("store received %d rows after cancellation", store.writes())
	}
}

func TestImporter_RowConservation(t *testing.T) {
	store := newFakeStore()
	store.reject = func(table string, rec Record) error {
		if rec["name"] == "reject" {
			return errors.New("violates check constraint")
		}
		return nil
	}
	im := NewImporter(testCatalog(), store, Options{BatchSize: 3})

	p := mustPayload(t, `{"version":"1.0","data":{
		"employers":[],
		"patients":[{"id":"P1","name":"a"}, "not a row", 7, null, {"id":"P2","name":"reject"},
			{"id":"P3","name":"b"}, {"id":"P4","name":"c"}, [1,2]],
		"appointment_notes":null}}`)
	res := im.Run(context.Background(), "run", ModeImport, "T2", p)

	for table, s := range res.Summary {
		if s.Total != s.Imported+s.Skipped+s.Errors {
			t.Errorf("%s: total %d != imported %d + skipped %d + errors %d", table, s.Total, s.Imported, s.Skipped, s.Errors)
		}
	}
	if got, want := res.Summary["patients"], (TableSummary{Total: 8, Imported: 3, Skipped: 4, Errors: 1}); got != want {
		t.Errorf("patients summary = %+v, want %+v", got, want)
	}
	if _, ok := res.Summary["employers"]; !ok {
		t.Error("empty employers table missing from summary")
	}
	if _, ok := res.Summary["appointments"]; ok {
		t.Error("appointments was absent from data but appears in summary")
	}
}

func TestImporter_NoForwardReferenceLeakage(t *testing.T) {
	store := newFakeStore()
	store.reject = func(table string, rec Record) error {
		if rec["name"] == "Gone" {
			return errors.New("violates check constraint")
		}
		return nil
	}
	im := NewImporter(testCatalog(), store, Options{})

	p := mustPayload(t, `{"version":"1.0","data":{
		"patients":[
			{"id":"P1","name":"Joe","referred_by_id":"P2"},
			{"id":"P2","name":"Ann","referred_by_id":"P1"},
			{"id":"P3","name":"Gone"}],
		"appointments":[
			{"id":"A1","patient_id":"P1","scheduled_at":"2024-01-01","rescheduled_from_id":"A2"},
			{"id":"A2","patient_id":"P3","scheduled_at":"2024-01-02","rescheduled_from_id":"A1"},
			{"id":"A3","patient_id":"P999","scheduled_at":"2024-01-03"}],
		"appointment_notes":[{"appointment_id":"A1"},{"appointment_id":"A3"},{"appointment_id":"A404"}]}}`)
	res := im.Run(context.Background(), "run", ModeImport, "T2", p)

	if !res.Success {
		t.Fatalf("Success = false: %+v", res.Summary)
	}

	catalog := testCatalog()
	for table, rows := range store.rows {
		td, _ := catalog.Lookup(table)
		for _, row := range rows {
			for field := range td.ForeignKeys {
				v, ok := row[field]
				if !ok || v == nil {
					continue
				}
				id, isString := v.(string)
				if !isString || !store.issued[id] {
					t.Errorf("%s.%s = %v was never issued by the store", table, field, v)
				}
			}
		}
	}
}

func TestImporter_LegacyIDPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		employers  string
		patients   string
		wantOld    int
		wantLegacy int
		wantRef    string
	}{
		{
			name:      "resolved by old id",
			employers: `[{"id":"E1","name":"a"}]`,
			patients:  `[{"id":"P1","name":"x","employer_id":"E1"}]`,
			wantOld:   1,
			wantRef:   "employers-1",
		},
		{
			name:       "resolved by legacy id only",
			employers:  `[{"id":"E1","legacy_id":"L9","name":"a"}]`,
			patients:   `[{"id":"P1","name":"x","employer_id":"L9"}]`,
			wantLegacy: 1,
			wantRef:    "employers-1",
		},
		{
			name:      "old id wins over another row's legacy id",
			employers: `[{"id":"E1","legacy_id":"X","name":"a"},{"id":"X","name":"b"}]`,
			patients:  `[{"id":"P1","name":"x","employer_id":"X"}]`,
			wantOld:   1,
			wantRef:   "employers-2",
		},
		{
			name:      "numeric and string ids match",
			employers: `[{"id":7,"name":"a"}]`,
			patients:  `[{"id":"P1","name":"x","employer_id":"7"}]`,
			wantOld:   1,
			wantRef:   "employers-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			im := NewImporter(testCatalog(), store, Options{})
			body := fmt.Sprintf(`{"version":"1.0","data":{"employers":%s,"patients":%s}}`, tt.employers, tt.patients)

			res := im.Run(context.Background(), "run", ModeImport, "T2", mustPayload(t, body))

			if res.MappingStats.ByOldID != tt.wantOld || res.MappingStats.ByLegacyID != tt.wantLegacy {
				t.Errorf("mapping stats = %+v, want by_old_id=%d by_legacy_id=%d",
					res.MappingStats, tt.wantOld, tt.wantLegacy)
			}
			if got := store.rows["patients"][0]["employer_id"]; got != tt.wantRef {
				t.Errorf("employer_id = %v, want %s", got, tt.wantRef)
			}
		})
	}
}

func TestImporter_StrictPolicy(t *testing.T) {
	store := newFakeStore()
	store.reject = func(table string, rec Record) error {
		if rec["name"] == "BAD" {
			return errors.New("violates check constraint")
		}
		return nil
	}
	im := NewImporter(testCatalog(), store, Options{Policy: StrictPolicy})

	p := mustPayload(t, `{"version":"1.0","data":{"employers":[{"id":"E1","name":"a"},{"id":"E2","name":"BAD"}]}}`)
	res := im.Run(context.Background(), "run", ModeImport, "T2", p)

	if res.Success {
		t.Error("strict policy should fail with one row error")
	}
}

func TestImporter_ImportRequiresTenant(t *testing.T) {
	im := NewImporter(testCatalog(), newFakeStore(), Options{})
	p := mustPayload(t, `{"version":"1.0","data":{}}`)

	res := im.Run(context.Background(), "run", ModeImport, "", p)
	if res.State != StateAborted {
		t.Errorf("State = %s, want %s", res.State, StateAborted)
	}
}
