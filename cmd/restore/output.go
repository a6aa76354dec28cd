package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

func writeJSONLine(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return withCode(exitUsage, fmt.Errorf("json encode: %w", err))
	}
	return nil
}

// openInput opens path for reading; "-" reads stdin.
func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, withCode(exitUsage, fmt.Errorf("open --file: %w", err))
	}
	return f, nil
}
