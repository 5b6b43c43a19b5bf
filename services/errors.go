package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ValidationError rejects a malformed payload before anything is
// written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid payload: %s", e.Reason)
	}
	return fmt.Sprintf("invalid payload: %s: %s", e.Field, e.Reason)
}

// NotFoundError means the update targeted a document id that does not
// exist; no reconciliation was attempted.
type NotFoundError struct {
	DocumentID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document %d not found", e.DocumentID)
}

// ConflictError is a storage-level serialization failure (two writers
// on the same document, or a duplicate document number). The whole call
// is safe to retry once.
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrent update conflict: %v", e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// ConsistencyError means an incoming quote points at an item or vendor
// that is not part of the document after reconciliation. That is a
// client payload bug; the whole update is rejected rather than silently
// dropping the orphaned quote.
type ConsistencyError struct {
	Reason string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("inconsistent payload: %s", e.Reason)
}

// classifyStorageError maps driver errors onto the service taxonomy.
// Postgres codes: 40001 serialization_failure, 40P01 deadlock_detected,
// 55P03 lock_not_available, 23505 unique_violation (a lost allocation
// race surfaces as a duplicate doc_number).
func classifyStorageError(err error, documentID int) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{DocumentID: documentID}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case "40001", "40P01", "55P03", "23505":
			return &ConflictError{Err: err}
		}
	}
	return err
}
