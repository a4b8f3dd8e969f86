// Package repository holds the MySQL data access for users, market events,
// their sales and expenses, the catalog and saved balances. Queries are plain
// database/sql; every row is scoped by user_id so one vendor can never read
// or mutate another vendor's data.
//
// The sentinel errors below let handlers map failures to HTTP statuses
// without inspecting driver errors.
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when no row matches the id and owner.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate it into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state, such as a duplicate unique key.
var ErrConflict = errors.New("conflict")

// isDuplicate reports a MySQL 1062 duplicate-entry error.
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
