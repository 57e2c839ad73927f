package storage

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is the "no rows" condition, distinct from a failed query.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate reports a unique constraint violation.
	ErrDuplicate = errors.New("duplicate key")
	// ErrForeignKey reports a write referencing a missing row.
	ErrForeignKey = errors.New("foreign key violation")
	// ErrNoRowsAffected is returned by guarded updates whose predicate matched nothing.
	ErrNoRowsAffected = errors.New("no rows affected")
	// ErrRPCUnavailable means the atomic increment function is missing on the server.
	ErrRPCUnavailable = errors.New("atomic increment unavailable")
	// ErrPermissionDenied is returned when a caller-scoped access writes another user's row.
	ErrPermissionDenied = errors.New("permission denied")
)

const pgUndefinedFunction = "42883"

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", ErrForeignKey, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedFunction {
		return fmt.Errorf("%w: %s", ErrRPCUnavailable, pgErr.Message)
	}
	return err
}
