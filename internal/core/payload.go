package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// DecodePayload reads a backup envelope from r. Numbers are kept as
// json.Number so numeric identifiers survive unchanged.
func DecodePayload(r io.Reader) (*Payload, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return &p, nil
}

// dataset is the decoded data section: every table value as a list of
// raw elements. Elements that are not JSON objects stay as they are and
// are counted as skipped.
type dataset struct {
	tables map[string][]any
}

func (d *dataset) has(table string) bool {
	_, ok := d.tables[table]
	return ok
}

// decodeData splits the raw data section into tables. Shape problems are
// returned as envelope error messages; a nil dataset means nothing can be imported.
func decodeData(raw json.RawMessage) (*dataset, []string) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, []string{fmt.Sprintf("%v: data is missing", ErrMalformedData)}
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &sections); err != nil {
		return nil, []string{fmt.Sprintf("%v: data must be an object", ErrMalformedData)}
	}

	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	ds := &dataset{tables: make(map[string][]any, len(sections))}
	var errs []string
	for _, name := range names {
		section := bytes.TrimSpace(sections[name])
		if bytes.Equal(section, []byte("null")) {
			ds.tables[name] = nil
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(section))
		dec.UseNumber()

		var rows []any
		if err := dec.Decode(&rows); err != nil {
			errs = append(errs, fmt.Sprintf("%v: data.%s must be an array", ErrMalformedData, name))
			continue
		}
		ds.tables[name] = rows
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return ds, nil
}

// splitRecords separates object elements from everything else.
func splitRecords(rows []any) (records []Record, skipped int) {
	records = make([]Record, 0, len(rows))
	for _, row := range rows {
		m, ok := row.(map[string]any)
		if !ok {
			skipped++
			continue
		}
		records = append(records, Record(m))
	}
	return records, skipped
}
