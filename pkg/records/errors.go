package records

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no single patient matched the cedula. Callers show it
	// inline so the user can correct the input.
	ErrNotFound = errors.New("paciente no encontrado")
	// ErrStore matches every *StoreError through errors.Is.
	ErrStore = errors.New("record store failure")
)

// StoreError reports a transport or configuration failure against the
// record store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("record store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

func storeError(op string, err error) error {
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
