package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/stockpulse/stockpulse-backend/pkg/errors"
)

// MapPQError translates a PostgreSQL constraint violation into the
// AppError a handler can return. Non-pq errors and unmapped codes
// return nil so the caller falls through to its generic error path.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code.Name() {
	case "check_violation":
		return mapCheckConstraint(pqErr)

	case "unique_violation":
		return errors.Conflict(uniqueViolationMessage(pqErr))

	case "foreign_key_violation":
		return errors.BadRequest("referenced record does not exist")

	case "not_null_violation":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{col: "must not be empty"})
	}
	return nil
}

// mapCheckConstraint names the schema's CHECK constraints so the API
// reports the offending field instead of a bare constraint identifier.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	switch {
	case strings.Contains(pqErr.Constraint, "qty_non_negative"):
		return errors.Validation(map[string]string{
			"quantity": "must not be negative",
		})
	case strings.Contains(pqErr.Constraint, "lead_time_positive"):
		return errors.Validation(map[string]string{
			"lead_time_days": "must be a positive number of days",
		})
	case strings.Contains(pqErr.Constraint, "reliability_range"):
		return errors.Validation(map[string]string{
			"reliability_score": "must be between 0 and 100",
		})
	}
	return errors.BadRequest("data validation failed: " + pqErr.Constraint)
}

func uniqueViolationMessage(pqErr *pq.Error) string {
	switch {
	case strings.Contains(pqErr.Constraint, "movement_records_location_item_record_date"):
		return "a movement record for this location, item and date already exists"
	case strings.Contains(pqErr.Constraint, "suppliers_pkey"):
		return "a supplier with this id already exists"
	}
	return "a record with these values already exists"
}
