package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Chrilove/projekuas/internal/repositories"
)

var (
	// ErrStoreTimeout indicates a store call exceeded its deadline.
	ErrStoreTimeout = errors.New("store: operation timed out")
	// ErrStoreUnavailable indicates a transient store outage.
	ErrStoreUnavailable = errors.New("store: unavailable")
)

// mapStoreError translates repository failures into the service's sentinel
// errors. Timeouts and outages map to the shared store sentinels.
func mapStoreError(err, notFound, conflict error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrStoreTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", notFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", conflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	return err
}
