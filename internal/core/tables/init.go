// Package tables holds the clinic schema catalog: every table a backup may
// contain, in the order it has to be imported.
package tables

import "github.com/JonMunkholm/tenantrestore/internal/core"

var clinic = core.NewCatalog()

func init() {
	registerReference()
	registerStaff()
	registerPatients()
	registerClinical()
	registerBilling()
	registerOperations()
}

// Clinic returns the clinic catalog.
func Clinic() *core.Catalog {
	return clinic
}

// fk builds a foreign key map from field, table pairs.
func fk(pairs ...string) map[string]string {
	if len(pairs)%2 != 0 {
		panic("fk: odd number of arguments")
	}
	m := make(map[string]string, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		m[pairs[i]] = pairs[i+1]
	}
	return m
}

// scoped registers a table carrying clinic_id.
func scoped(name string, required []string, foreignKeys map[string]string) {
	clinic.Register(core.TableDescriptor{
		Name:           name,
		RequiredFields: required,
		ForeignKeys:    foreignKeys,
		TenantScoped:   true,
	})
}

// child registers a table that is scoped only through its parent row.
func child(name string, required []string, foreignKeys map[string]string) {
	clinic.Register(core.TableDescriptor{
		Name:           name,
		RequiredFields: required,
		ForeignKeys:    foreignKeys,
	})
}
