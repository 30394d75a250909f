package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("catalog: not found")
	ErrStockConflict     = errors.New("catalog: stock conflict")
	ErrInvalidTransition = errors.New("catalog: invalid status transition")
	ErrInvalidProduct    = errors.New("catalog: invalid product")
	ErrDuplicate         = errors.New("catalog: duplicate")
)

func invalidProduct(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidProduct, msg)
}

func notFound(what, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
}
