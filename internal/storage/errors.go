package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// lookupErr translates sql.ErrNoRows into the domain reference error and
// wraps anything else as a store failure.
func lookupErr(err, notFound error, name string) error {
	if isNoRows(err) {
		return fmt.Errorf("%q: %w", name, notFound)
	}
	return fmt.Errorf("lookup %q: %w", name, err)
}
