package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrNotFound   = errors.New("repository: not found")
	ErrDuplicate  = errors.New("repository: duplicate")
	ErrInUse      = errors.New("repository: referenced by other records")
	ErrOutOfRange = errors.New("repository: value out of column range")
)

// ReferencedError reports a bill of lading that still has payments.
type ReferencedError struct {
	WorkOrderNo string
	Count       int
}

func (e *ReferencedError) Error() string {
	return fmt.Sprintf("repository: work order %q has %d transaction(s)", e.WorkOrderNo, e.Count)
}

func (e *ReferencedError) Unwrap() error { return ErrInUse }

// classify maps driver errors onto the repository sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
		case "23503":
			return fmt.Errorf("%w: %s", ErrInUse, pqErr.Constraint)
		case "22003":
			return fmt.Errorf("%w: %s", ErrOutOfRange, pqErr.Message)
		}
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
