// Package repository reads caller role records.
//
// Each backend (Firestore documents, a Postgres table, Clerk public
// metadata) implements RoleStore, so the service layer never sees the
// storage details.
package repository

import (
	"context"
)

// AdminRole is the role value that grants password administration.
const AdminRole = "admin"

// UserRecord is the part of a stored user profile the service needs.
type UserRecord struct {
	Role string
}

// IsAdmin reports whether the record carries the admin role.
// A nil record is never admin.
func (r *UserRecord) IsAdmin() bool {
	return r != nil && r.Role == AdminRole
}

// RoleStore looks up the user record for uid. A missing record is reported
// as (nil, nil); errors are reserved for failures to read the backend.
type RoleStore interface {
	GetUserRecord(ctx context.Context, uid string) (*UserRecord, error)
}

// recordFromData builds a record from a loosely typed document. A role that
// is absent or not a string becomes the empty role.
func recordFromData(data map[string]any, roleField string) *UserRecord {
	role, _ := data[roleField].(string)
	return &UserRecord{Role: role}
}
