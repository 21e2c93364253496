package db

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// overlapTriggerMessage is raised by the reservations_no_overlap_* triggers.
const overlapTriggerMessage = "reservation_overlap"

// IsReservationOverlap reports whether err came from the reservation overlap trigger.
func IsReservationOverlap(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), overlapTriggerMessage)
}

// IsUniqueViolation reports whether err is a UNIQUE constraint failure.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	// libsql surfaces constraint failures as plain errors.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
