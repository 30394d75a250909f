package catalog

import "fmt"

type VariantStatus string

const (
	StatusActive       VariantStatus = "ACTIVE"
	StatusOutOfStock   VariantStatus = "OUT_OF_STOCK"
	StatusInactive     VariantStatus = "INACTIVE"
	StatusDiscontinued VariantStatus = "DISCONTINUED"
)

func (s VariantStatus) Valid() bool {
	switch s {
	case StatusActive, StatusOutOfStock, StatusInactive, StatusDiscontinued:
		return true
	}
	return false
}

// manual transitions; stock-driven ones go through StatusAfterStock
var validNext = map[VariantStatus]map[VariantStatus]bool{
	StatusActive:       {StatusInactive: true, StatusDiscontinued: true},
	StatusOutOfStock:   {StatusInactive: true, StatusDiscontinued: true},
	StatusInactive:     {StatusActive: true, StatusDiscontinued: true},
	StatusDiscontinued: {},
}

func CanTransition(from, to VariantStatus) bool {
	return validNext[from][to]
}

// StatusAfterStock applies the automatic ACTIVE <-> OUT_OF_STOCK moves.
// INACTIVE and DISCONTINUED are never touched by stock changes.
func StatusAfterStock(current VariantStatus, stock int) VariantStatus {
	switch {
	case current == StatusActive && stock <= 0:
		return StatusOutOfStock
	case current == StatusOutOfStock && stock > 0:
		return StatusActive
	}
	return current
}

// ManualTransition resolves a requested manual status change. Resuming an
// INACTIVE variant lands on OUT_OF_STOCK when it has nothing to sell.
func ManualTransition(current, requested VariantStatus, stock int) (VariantStatus, error) {
	if !requested.Valid() {
		return current, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, requested)
	}
	if current == requested {
		return current, nil
	}
	if requested == StatusOutOfStock {
		return current, fmt.Errorf("%w: %s is set by stock changes only", ErrInvalidTransition, requested)
	}
	if !CanTransition(current, requested) {
		return current, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, requested)
	}
	if requested == StatusActive && stock <= 0 {
		return StatusOutOfStock, nil
	}
	return requested, nil
}

// InitialStatus is ACTIVE unless the caller asks to hold the variant back.
func InitialStatus(unpublished bool) VariantStatus {
	if unpublished {
		return StatusInactive
	}
	return StatusActive
}
