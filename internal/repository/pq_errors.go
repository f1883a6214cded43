package repository

import (
	stderrors "errors"
	"log/slog"

	"github.com/lib/pq"

	"campus-market/internal/errors"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqSerializationFail   = "40001"
	pqLockNotAvailable    = "55P03"
)

var uniqueConstraintErrors = map[string]*errors.AppError{
	"users_username_key":           errors.ErrDuplicateUsername,
	"users_phone_key":              errors.ErrDuplicatePhone,
	"users_campus_card_key":        errors.ErrDuplicateCampusCard,
	"idx_transactions_one_pending": errors.ErrAlreadyOrdered,
}

var foreignKeyErrors = map[string]*errors.AppError{
	"products_category_id_fkey": errors.ErrCategoryNotFound,
	"products_seller_id_fkey":   errors.ErrUserNotFound,
}

// mapPQError translates the postgres errors the domain cares about. It
// returns nil when err carries no such meaning.
func mapPQError(err error) error {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	case pqUniqueViolation:
		if appErr, ok := uniqueConstraintErrors[pqErr.Constraint]; ok {
			return appErr
		}
	case pqForeignKeyViolation:
		if appErr, ok := foreignKeyErrors[pqErr.Constraint]; ok {
			return appErr
		}
	case pqLockNotAvailable, pqSerializationFail:
		return errors.ErrConcurrentModification
	}
	return nil
}

// logMapped records a rejected statement under the domain code it was
// mapped to.
func logMapped(logger *slog.Logger, msg string, mapped error, args ...any) {
	args = append(args, "code", errors.From(mapped).Code)
	logger.Warn(msg, args...)
}
