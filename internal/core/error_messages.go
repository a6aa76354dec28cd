package core

// # Error Codes Reference
//
// User-facing messages for import failures. Users quote the code to support
// staff, who look it up here.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key           "duplicate key"
//	DB002 - Unique constraint       "unique constraint", "violates unique"
//	DB003 - Foreign key             "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused      "connection refused"
//	DB005 - Connection reset        "connection reset"
//	DB006 - Timeout                 "timeout"
//	DB007 - Deadlock                "deadlock"
//	DB008 - Not null                "violates not-null", "null value in column"
//	DB009 - Check constraint        "violates check constraint"
//	DB010 - Store unavailable       "store unavailable"
//	DB011 - Unknown column          "column", "does not exist"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Unsupported version    "unsupported backup version"
//	VAL002 - Malformed data         "malformed data"
//	VAL003 - Invalid payload        "invalid payload"
//	VAL004 - Required field         "required field"
//	VAL005 - Invalid value          "invalid input syntax"
//	VAL006 - Value too long         "value too long"
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - System busy            "too many concurrent imports"
//	IMP002 - Invalid mode           "invalid import mode"
//	IMP003 - Invalid tenant         "invalid tenant id"
//	IMP004 - Request cancelled      "context canceled"
//	IMP005 - Request timeout        "context deadline exceeded"
//	IMP006 - Payload too large      "request body too large"
//	IMP007 - Id count mismatch      "id count mismatch"
//	IMP008 - History disabled       "import history not configured"
//
// # Access (AUTH001, RATE001)
//
//	AUTH001 - Unauthorized          "api key"
//	RATE001 - Rate limited          "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the application logs for the
// technical error.
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Constraint violations on a single row
	{"duplicate key", UserMessage{"A record with this ID already exists", "Check whether the backup was already imported into this tenant", "DB001"}},
	{"unique constraint", UserMessage{"This value must be unique but already exists", "Remove the duplicate record from the backup or the destination", "DB002"}},
	{"violates unique", UserMessage{"A duplicate value was found", "Remove the duplicate record from the backup or the destination", "DB002"}},
	{"foreign key constraint", UserMessage{"Referenced record does not exist", "Make sure the referenced table is part of the backup", "DB003"}},
	{"violates foreign key", UserMessage{"Referenced record does not exist", "Make sure the referenced table is part of the backup", "DB003"}},
	{"violates not-null", UserMessage{"A required column is empty", "Fill in the missing value in the backup", "DB008"}},
	{"null value in column", UserMessage{"A required column is empty", "Fill in the missing value in the backup", "DB008"}},
	{"violates check constraint", UserMessage{"A value is outside the allowed range", "Correct the value in the backup", "DB009"}},

	// Destination availability
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"timeout", UserMessage{"Operation timed out", "Try again later or split the backup", "DB006"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},
	{"store unavailable", UserMessage{"The destination database is unavailable", "Please try again in a few moments", "DB010"}},

	// Payload shape
	{"unsupported backup version", UserMessage{"This backup version is not supported", "Export the backup again with the current version", "VAL001"}},
	{"malformed data", UserMessage{"The backup data section is malformed", "Export the backup again", "VAL002"}},
	{"invalid payload", UserMessage{"The backup file is not valid JSON", "Make sure the complete backup file was uploaded", "VAL003"}},
	{"required field", UserMessage{"Required field is empty", "Fill in the required fields in the backup", "VAL004"}},
	{"invalid input syntax", UserMessage{"A value has the wrong format", "Correct the value in the backup", "VAL005"}},
	{"value too long", UserMessage{"A value is longer than allowed", "Shorten the value in the backup", "VAL006"}},

	// Import session
	{"too many concurrent imports", UserMessage{"System is busy processing other imports", "Please wait a moment and try again", "IMP001"}},
	{"invalid import mode", UserMessage{"Unknown import mode", "Use dry_run or import", "IMP002"}},
	{"invalid tenant id", UserMessage{"The destination tenant id is not valid", "Check the tenant id and try again", "IMP003"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "IMP004"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try again later or split the backup", "IMP005"}},
	{"request body too large", UserMessage{"The backup file exceeds the maximum size", "Contact support to raise the limit", "IMP006"}},
	{"id count mismatch", UserMessage{"The database returned an unexpected result", "Contact support", "IMP007"}},
	{"import history not configured", UserMessage{"Import history is not available", "Run the server with a database connection", "IMP008"}},

	{"does not exist", UserMessage{"The backup contains a column or table the database does not know", "Check that the destination schema is up to date", "DB011"}},

	{"api key", UserMessage{"Missing or invalid API key", "Provide a valid API key", "AUTH001"}},
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns the first pattern match, or ERR000 when nothing matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
