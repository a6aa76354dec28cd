package core

// strippedFields are never copied from a backup. The destination assigns
// ids and timestamps itself; user linkage and security derived values belong
// to the source tenant.
var strippedFields = map[string]struct{}{
	// Server assigned
	"id":         {},
	"created_at": {},
	"updated_at": {},
	"deleted_at": {},

	// Tenant and user linkage
	TenantField:    {},
	"user_id":      {},
	"auth_user_id": {},
	"created_by":   {},
	"updated_by":   {},
	"deleted_by":   {},

	// Security sensitive
	"access_code":        {},
	"access_token":       {},
	"refresh_token":      {},
	"verification_code":  {},
	"verification_token": {},
	"reset_token":        {},
	"password_hash":      {},
	"code_expires_at":    {},
	"token_expires_at":   {},
	"expires_at":         {},

	// Approval and audit actors
	"approved_by": {},
	"approved_at": {},
	"reviewed_by": {},
	"reviewed_at": {},
	"signed_by":   {},
}

// IsStrippedField reports whether the sanitizer drops field.
func IsStrippedField(field string) bool {
	_, ok := strippedFields[field]
	return ok
}

// Sanitize returns a copy of rec without stripped fields. For tenant scoped
// tables the tenant field is set to tenantID. The input is not modified.
func Sanitize(rec Record, td TableDescriptor, tenantID string) Record {
	out := make(Record, len(rec)+1)
	for k, v := range rec {
		if _, drop := strippedFields[k]; drop {
			continue
		}
		out[k] = v
	}
	if td.TenantScoped {
		out[TenantField] = tenantID
	}
	return out
}
