package core

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultFKCheckLimit bounds how many records per table the advisory
// reference check inspects. References beyond the limit are not checked,
// so large payloads may under-report broken references.
const DefaultFKCheckLimit = 100

// Validate runs the read-only checks on a payload against catalog.
// Envelope problems are errors; everything else is a warning.
func Validate(p *Payload, catalog *Catalog, fkCheckLimit int) ValidationResult {
	res, _ := validatePayload(p, catalog, fkCheckLimit)
	return res
}

func validatePayload(p *Payload, catalog *Catalog, fkCheckLimit int) (ValidationResult, *dataset) {
	res := ValidationResult{Errors: []string{}, Warnings: []string{}}
	if fkCheckLimit <= 0 {
		fkCheckLimit = DefaultFKCheckLimit
	}

	if p == nil {
		res.Errors = append(res.Errors, fmt.Sprintf("%v: empty body", ErrInvalidPayload))
		return res, nil
	}

	// Envelope
	switch {
	case strings.TrimSpace(p.Version) == "":
		res.Errors = append(res.Errors, fmt.Sprintf("%v: version is missing, want %q", ErrUnsupportedVersion, SupportedVersion))
	case p.Version != SupportedVersion:
		res.Errors = append(res.Errors, fmt.Sprintf("%v: got %q, want %q", ErrUnsupportedVersion, p.Version, SupportedVersion))
	}

	ds, dataErrs := decodeData(p.Data)
	res.Errors = append(res.Errors, dataErrs...)

	if strings.TrimSpace(p.ClinicName) == "" {
		res.Warnings = append(res.Warnings, "clinic_name is missing")
	}
	if strings.TrimSpace(p.BackupDate) == "" {
		res.Warnings = append(res.Warnings, "backup_date is missing")
	}

	if ds == nil {
		res.Valid = len(res.Errors) == 0
		return res, nil
	}

	res.Warnings = append(res.Warnings, unknownTableWarnings(ds, catalog)...)
	res.Warnings = append(res.Warnings, recordCountWarnings(p.RecordCounts, ds)...)

	idx := buildPayloadIndex(ds, catalog)
	for _, td := range catalog.OrderedTables() {
		rows, ok := ds.tables[td.Name]
		if !ok {
			continue
		}
		records, skipped := splitRecords(rows)
		if skipped > 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %d record(s) are not objects and will be skipped", td.Name, skipped))
		}
		res.Warnings = append(res.Warnings, requiredFieldWarnings(td, records)...)
		res.Warnings = append(res.Warnings, referenceWarnings(td, records, idx, fkCheckLimit)...)
	}

	res.Valid = len(res.Errors) == 0
	return res, ds
}

func unknownTableWarnings(ds *dataset, catalog *Catalog) []string {
	var unknown []string
	for name := range ds.tables {
		if _, ok := catalog.Lookup(name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)

	warnings := make([]string, 0, len(unknown))
	for _, name := range unknown {
		warnings = append(warnings, fmt.Sprintf("data.%s is not a known table and will be ignored", name))
	}
	return warnings
}

func recordCountWarnings(counts map[string]int, ds *dataset) []string {
	var warnings []string
	for _, name := range sortedKeys(counts) {
		actual := len(ds.tables[name])
		if counts[name] != actual {
			warnings = append(warnings, fmt.Sprintf("record_counts.%s is %d but data contains %d record(s)", name, counts[name], actual))
		}
	}
	return warnings
}

// requiredFieldWarnings aggregates missing values per field so a large
// table produces one line per field instead of one per row.
func requiredFieldWarnings(td TableDescriptor, records []Record) []string {
	var warnings []string
	for _, field := range td.RequiredFields {
		missing := 0
		for _, rec := range records {
			if isBlank(rec[field]) {
				missing++
			}
		}
		if missing > 0 {
			warnings = append(warnings, fmt.Sprintf("%s.%s: required field missing in %d record(s)", td.Name, field, missing))
		}
	}
	return warnings
}

// payloadIndex holds every id and legacy_id present in the payload, per table.
type payloadIndex map[string]map[string]struct{}

func buildPayloadIndex(ds *dataset, catalog *Catalog) payloadIndex {
	idx := make(payloadIndex)
	for _, td := range catalog.OrderedTables() {
		rows, ok := ds.tables[td.Name]
		if !ok {
			continue
		}
		keys := make(map[string]struct{}, len(rows))
		for _, row := range rows {
			rec, ok := row.(map[string]any)
			if !ok {
				continue
			}
			if k, ok := idKey(rec["id"]); ok {
				keys[k] = struct{}{}
			}
			if k, ok := idKey(rec["legacy_id"]); ok {
				keys[k] = struct{}{}
			}
		}
		idx[td.Name] = keys
	}
	return idx
}

// referenceWarnings checks the first limit records of a table for
// references that no record of the referenced table carries.
func referenceWarnings(td TableDescriptor, records []Record, idx payloadIndex, limit int) []string {
	if len(td.ForeignKeys) == 0 {
		return nil
	}
	if len(records) > limit {
		records = records[:limit]
	}

	var warnings []string
	for _, field := range sortedKeys(td.ForeignKeys) {
		ref := td.ForeignKeys[field]
		known := idx[ref]
		unresolved := 0
		for _, rec := range records {
			k, ok := idKey(rec[field])
			if !ok {
				continue
			}
			if _, found := known[k]; !found {
				unresolved++
			}
		}
		if unresolved > 0 {
			warnings = append(warnings, fmt.Sprintf("%s.%s: %d reference(s) not found in %s and will be cleared", td.Name, field, unresolved, ref))
		}
	}
	return warnings
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	default:
		return false
	}
}
