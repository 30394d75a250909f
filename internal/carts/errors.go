package carts

import (
	"fmt"

	"github.com/ariefcatur/go-catalog-carts/internal/catalog"
)

type Kind string

const (
	KindInvalidQuantity    Kind = "INVALID_QUANTITY"
	KindResourceNotFound   Kind = "RESOURCE_NOT_FOUND"
	KindUnitUnavailable    Kind = "UNIT_UNAVAILABLE"
	KindInsufficientStock  Kind = "INSUFFICIENT_STOCK"
	KindPersistenceFailure Kind = "PERSISTENCE_FAILURE"
)

// Error is the failure side of assembly. Match kinds with errors.Is against
// the sentinels below, read details with errors.As.
type Error struct {
	Kind      Kind
	Line      int // index into the request, -1 when not tied to a line
	Unit      catalog.UnitRef
	ID        string // offending id for RESOURCE_NOT_FOUND
	Requested int
	Available int
	Detail    string
	Err       error
}

var (
	ErrInvalidQuantity    = &Error{Kind: KindInvalidQuantity}
	ErrResourceNotFound   = &Error{Kind: KindResourceNotFound}
	ErrUnitUnavailable    = &Error{Kind: KindUnitUnavailable}
	ErrInsufficientStock  = &Error{Kind: KindInsufficientStock}
	ErrPersistenceFailure = &Error{Kind: KindPersistenceFailure}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindInsufficientStock:
		return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.Unit, e.Requested, e.Available)
	case KindResourceNotFound:
		if e.Detail != "" {
			return fmt.Sprintf("not found: %s (%s)", e.ID, e.Detail)
		}
		return "not found: " + e.ID
	case KindUnitUnavailable:
		return fmt.Sprintf("unit %s unavailable: %s", e.Unit, e.Detail)
	case KindPersistenceFailure:
		if e.Err != nil {
			return "persistence failure: " + e.Err.Error()
		}
		return "persistence failure"
	}
	if e.Detail != "" {
		return string(e.Kind) + ": " + e.Detail
	}
	return string(e.Kind)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func (e *Error) Unwrap() error { return e.Err }

// Shortfall is how many units were missing for INSUFFICIENT_STOCK.
func (e *Error) Shortfall() int {
	if e.Requested <= e.Available {
		return 0
	}
	return e.Requested - e.Available
}

func invalidQuantity(line, qty int) *Error {
	return &Error{Kind: KindInvalidQuantity, Line: line, Requested: qty,
		Detail: fmt.Sprintf("line %d: quantity must be > 0, got %d", line, qty)}
}

func notFound(line int, unit catalog.UnitRef, id, detail string) *Error {
	return &Error{Kind: KindResourceNotFound, Line: line, Unit: unit, ID: id, Detail: detail}
}

func unavailable(line int, unit catalog.UnitRef, status catalog.VariantStatus) *Error {
	return &Error{Kind: KindUnitUnavailable, Line: line, Unit: unit, Detail: "status " + string(status)}
}

func insufficient(line int, unit catalog.UnitRef, requested, available int) *Error {
	return &Error{Kind: KindInsufficientStock, Line: line, Unit: unit, Requested: requested, Available: available}
}

func persistence(err error) *Error {
	return &Error{Kind: KindPersistenceFailure, Line: -1, Err: err}
}
