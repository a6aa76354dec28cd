package core

import (
	"context"
	"errors"
)

// Sentinel errors. Their texts are matched by MapError, keep them stable.
var (
	// ErrInvalidPayload is returned when the backup body cannot be decoded at all.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrUnsupportedVersion marks a payload whose version differs from SupportedVersion.
	ErrUnsupportedVersion = errors.New("unsupported backup version")

	// ErrMalformedData marks a payload whose data section has the wrong shape.
	ErrMalformedData = errors.New("malformed data")

	// ErrStoreUnavailable wraps destination failures that are not caused by a
	// single row: lost connections, closed pools, expired deadlines.
	// The importer aborts the current table when it sees one.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrIDCountMismatch is returned when a multi-row insert reports a
	// different number of new ids than rows sent.
	ErrIDCountMismatch = errors.New("id count mismatch")

	ErrInvalidTenant   = errors.New("invalid tenant id")
	ErrInvalidMode     = errors.New("invalid import mode")
	ErrUnknownPolicy   = errors.New("unknown success policy")
	ErrHistoryDisabled = errors.New("import history not configured")
)

// IsInfrastructure reports whether err should abort the current table
// rather than count against a single row.
func IsInfrastructure(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrIDCountMismatch) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
