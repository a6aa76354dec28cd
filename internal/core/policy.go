package core

import (
	"fmt"
	"strings"
)

// SuccessPolicy decides the overall outcome of a completed import from the
// totals across all tables.
type SuccessPolicy func(imported, errors int) bool

// LenientPolicy succeeds when fewer rows failed than were imported.
// Partial success is the normal case for large backups.
func LenientPolicy(imported, errors int) bool {
	return errors < imported
}

// StrictPolicy succeeds only when something was imported and nothing failed.
func StrictPolicy(imported, errors int) bool {
	return errors == 0 && imported > 0
}

// PolicyByName returns the built-in policy for name ("lenient" or "strict").
func PolicyByName(name string) (SuccessPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lenient":
		return LenientPolicy, nil
	case "strict":
		return StrictPolicy, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, name)
	}
}
