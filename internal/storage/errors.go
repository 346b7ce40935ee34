package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable is returned when the persistence engine cannot be opened.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrBlocked is returned when a store is held open by another handle.
	ErrBlocked = errors.New("store is open elsewhere")

	ErrSubjectNotFound = fmt.Errorf("%w: subject", ErrNotFound)
	ErrItemNotFound    = fmt.Errorf("%w: item", ErrNotFound)
	ErrStoreNotFound   = fmt.Errorf("%w: store", ErrNotFound)
)
