package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/JonMunkholm/tenantrestore/internal/core"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes worth retrying: the statement lost a race, not a rule.
const (
	codeDeadlock             = "40P01"
	codeSerializationFailure = "40001"
)

// isRetryable reports whether the same statement may succeed if sent again.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeDeadlock || pgErr.Code == codeSerializationFailure
	}
	return false
}

// isUnavailable reports whether err is about the database rather than the
// row being written.
func isUnavailable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		class := pgErr.Code
		if len(class) > 2 {
			class = class[:2]
		}
		switch class {
		case "08", // connection exception
			"53", // insufficient resources
			"57", // operator intervention, includes admin shutdown and query_canceled
			"58", // system error
			"XX": // internal error
			return true
		}
		return false
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "closed pool") || strings.Contains(msg, "conn closed")
}

// classify wraps err with core.ErrStoreUnavailable when the failure is not
// caused by the row itself.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, core.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
