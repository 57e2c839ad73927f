package services

import (
	"errors"
	"fmt"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/storage"
)

// upsertIdempotent inserts via create and, when the store reports a uniqueness
// conflict, returns the row find reads back. created is false in that case.
func upsertIdempotent[T any](create func() (*T, error), find func() (*T, error)) (row *T, created bool, err error) {
	row, err = create()
	if err == nil {
		return row, true, nil
	}
	if !errors.Is(err, storage.ErrDuplicate) {
		return nil, false, err
	}
	row, err = find()
	if err != nil {
		return nil, false, fmt.Errorf("reconcile after conflict: %w", err)
	}
	return row, false, nil
}
