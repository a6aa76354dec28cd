package tables

import (
	"testing"

	"github.com/JonMunkholm/tenantrestore/internal/core"
)

func TestClinic_TopologicalOrder(t *testing.T) {
	if err := Clinic().CheckOrder(); err != nil {
		t.Fatal(err)
	}
}

func TestClinic_Size(t *testing.T) {
	if n := Clinic().Len(); n < 30 || n > 40 {
		t.Errorf("catalog has %d tables, want 30-40", n)
	}
}

func TestClinic_ForeignKeysAreNotStripped(t *testing.T) {
	for _, td := range Clinic().OrderedTables() {
		for field := range td.ForeignKeys {
			if core.IsStrippedField(field) {
				t.Errorf("%s.%s is a foreign key but the sanitizer drops it", td.Name, field)
			}
		}
		for _, field := range td.RequiredFields {
			if core.IsStrippedField(field) {
				t.Errorf("%s.%s is required but the sanitizer drops it", td.Name, field)
			}
		}
	}
}

func TestClinic_ChildTablesHaveParent(t *testing.T) {
	for _, td := range Clinic().OrderedTables() {
		if !td.TenantScoped && len(td.ForeignKeys) == 0 {
			t.Errorf("%s is neither tenant scoped nor linked to a parent", td.Name)
		}
	}
}

func TestClinic_AppointmentReferences(t *testing.T) {
	td, ok := Clinic().Lookup("appointments")
	if !ok {
		t.Fatal("appointments not registered")
	}
	if td.ForeignKeys["rescheduled_from_id"] != "appointments" {
		t.Error("rescheduled_from_id should reference appointments")
	}
	if td.ForeignKeys["cancelled_by"] != "staff_members" {
		t.Error("cancelled_by should reference staff_members")
	}
}
