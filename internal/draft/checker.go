package draft

import (
	"context"
	"fmt"
	"time"

	"github.com/pintuan-hub/publisher/internal/listings"
)

// DuplicateChecker looks for an existing listing published with the same link.
type DuplicateChecker struct {
	store   listings.Store
	timeout time.Duration
}

func NewDuplicateChecker(store listings.Store, timeout time.Duration) *DuplicateChecker {
	return &DuplicateChecker{store: store, timeout: timeout}
}

// Check returns the id of the listing sharing codeValue, or "" if none.
func (c *DuplicateChecker) Check(ctx context.Context, codeValue string) (string, error) {
	if listings.NormalizeLink(codeValue) == "" {
		return "", nil
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	existing, err := c.store.FindByLink(ctx, codeValue)
	if err != nil {
		return "", fmt.Errorf("failed to look up duplicate listing: %w", err)
	}
	if existing == nil {
		return "", nil
	}
	return existing.ID, nil
}
