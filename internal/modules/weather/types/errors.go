package types

import "fmt"

// ValidationError reports a payload that breaks the ingestion contract.
// Nothing is written when it is returned.
type ValidationError struct {
	Section string
	Field   string
	// Index is the offending row, or -1 when the problem is not per-row.
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	loc := e.Section
	if e.Field != "" {
		if loc != "" {
			loc += "."
		}
		loc += e.Field
	}
	if e.Index >= 0 {
		loc = fmt.Sprintf("%s[%d]", loc, e.Index)
	}
	if loc == "" {
		return "invalid payload: " + e.Reason
	}
	return fmt.Sprintf("invalid payload: %s: %s", loc, e.Reason)
}

// StorageError wraps any failure of the store. The transaction it happened
// in has been rolled back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
