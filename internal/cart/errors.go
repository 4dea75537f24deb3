package cart

import "errors"

var (
	// ErrLoad indicates the persisted cart could not be read.
	ErrLoad = errors.New("cart: load failed")
	// ErrNotFound indicates the line item is not tracked for the identity.
	ErrNotFound = errors.New("cart: line item not found")
	// ErrRemove indicates the persisted delete failed after the local removal.
	ErrRemove = errors.New("cart: remove failed")
	// ErrSave indicates an insert or quantity update could not be persisted.
	ErrSave = errors.New("cart: save failed")
	// ErrClear indicates the bulk delete of the owner's rows failed.
	ErrClear = errors.New("cart: clear failed")
	// ErrInvalidInput is returned for unsellable products or invalid units.
	ErrInvalidInput = errors.New("cart: invalid input")
)
