// Package shared provides common utilities used across the codebase.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import "strings"

// IsSQLiteBusyError checks if the error is a SQLITE_BUSY error.
// This occurs when the database is locked by another connection.
func IsSQLiteBusyError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "SQLITE_BUSY")
}

// IsSQLiteLockedError checks if the error is a "database is locked" error.
func IsSQLiteLockedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "database is locked")
}

// IsSQLiteConflictError checks if the error is either form of SQLite
// concurrency error. Both typically warrant retry logic.
func IsSQLiteConflictError(err error) bool {
	return IsSQLiteBusyError(err) || IsSQLiteLockedError(err)
}
