package core

import (
	"encoding/json"
	"strconv"
	"strings"
)

// lookup names the map a reference was resolved through.
type lookup int

const (
	lookupNone lookup = iota
	lookupOldID
	lookupLegacyID
)

// tableIDs holds the two lookup maps of one table.
type tableIDs struct {
	byOldID    map[string]string
	byLegacyID map[string]string
}

// IDMapper records the identifiers assigned during one import run.
// Entries are never overwritten; the first mapping for a key wins.
// It is not safe for concurrent use: a run has exactly one writer.
type IDMapper struct {
	tables map[string]*tableIDs
}

// NewIDMapper creates an empty mapper.
func NewIDMapper() *IDMapper {
	return &IDMapper{tables: make(map[string]*tableIDs)}
}

func (m *IDMapper) table(name string) *tableIDs {
	t, ok := m.tables[name]
	if !ok {
		t = &tableIDs{
			byOldID:    make(map[string]string),
			byLegacyID: make(map[string]string),
		}
		m.tables[name] = t
	}
	return t
}

// Record maps the source record's id and legacy_id to newID.
// Either source key may be absent.
func (m *IDMapper) Record(table string, oldID, legacyID any, newID string) {
	t := m.table(table)
	if k, ok := idKey(oldID); ok {
		if _, exists := t.byOldID[k]; !exists {
			t.byOldID[k] = newID
		}
	}
	if k, ok := idKey(legacyID); ok {
		if _, exists := t.byLegacyID[k]; !exists {
			t.byLegacyID[k] = newID
		}
	}
}

// Resolve finds the new id for a reference into table, trying the old id
// map before the legacy id map.
func (m *IDMapper) Resolve(table string, ref any) (string, lookup) {
	k, ok := idKey(ref)
	if !ok {
		return "", lookupNone
	}
	t, ok := m.tables[table]
	if !ok {
		return "", lookupNone
	}
	if id, ok := t.byOldID[k]; ok {
		return id, lookupOldID
	}
	if id, ok := t.byLegacyID[k]; ok {
		return id, lookupLegacyID
	}
	return "", lookupNone
}

// Len returns how many source ids are mapped for table.
func (m *IDMapper) Len(table string) int {
	t, ok := m.tables[table]
	if !ok {
		return 0
	}
	return len(t.byOldID)
}

// idKey normalizes an identifier value to its map key. Numbers and strings
// with the same text produce the same key so "7" and 7 refer to the same row.
func idKey(v any) (string, bool) {
	var s string
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		s = x
	case json.Number:
		s = x.String()
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}
