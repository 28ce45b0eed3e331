package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/simple-todos/internal/store"
)

// SQLSTATE codes the stores care about.
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
)

// constraintKinds names the integrity violations reported as store.ErrInvalidEntity.
var constraintKinds = map[string]string{
	foreignKeyViolationCode: "foreign key",
	checkViolationCode:      "check constraint",
	notNullViolationCode:    "not null",
}

// MapError translates driver errors into store sentinels. Errors it does not
// recognise are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	pgErr := asPgError(err)
	if pgErr == nil {
		return err
	}
	if pgErr.Code == uniqueViolationCode {
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	kind, ok := constraintKinds[pgErr.Code]
	if !ok {
		return err
	}
	target := pgErr.ConstraintName
	if pgErr.Code == notNullViolationCode {
		target = pgErr.ColumnName
	}
	return fmt.Errorf("%w: %s violation on %q: %v", store.ErrInvalidEntity, kind, target, err)
}

func asPgError(err error) *pgconn.PgError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr
	}
	return nil
}

// IsUniqueViolation reports whether err carries SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	pgErr := asPgError(err)
	return pgErr != nil && pgErr.Code == uniqueViolationCode
}

// IsForeignKeyViolation reports whether err carries SQLSTATE 23503.
func IsForeignKeyViolation(err error) bool {
	pgErr := asPgError(err)
	return pgErr != nil && pgErr.Code == foreignKeyViolationCode
}

// CheckRowsAffected returns notFound (store.ErrNotFound when nil) if an
// UPDATE or DELETE touched no rows.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return errors.New("no result to inspect")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	if notFound == nil {
		notFound = store.ErrNotFound
	}
	return notFound
}
