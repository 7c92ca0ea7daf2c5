package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/localmarket/internal/metrics"
	"github.com/iliyamo/localmarket/internal/model"
)

// ErrUnknownEntity is returned for change events about entities no cache
// entry is derived from.
var ErrUnknownEntity = errors.New("unknown entity")

// Invalidator drops the cache families derived from a changed entity.
type Invalidator struct {
	c *Client
}

// NewInvalidator wires an Invalidator to c.
func NewInvalidator(c *Client) *Invalidator { return &Invalidator{c: c} }

// Apply invalidates everything derived from the changed entity.  Redis
// failures are logged by the client and never returned; only an unknown
// entity is an error.
func (i *Invalidator) Apply(ctx context.Context, ch model.EntityChange) (int, error) {
	patterns, ok := PatternsFor(ch.Entity, ch.ID)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEntity, ch.Entity)
	}
	removed := 0
	for _, p := range patterns {
		removed += i.c.DeleteByPattern(ctx, p)
	}
	metrics.InvalidationEvents.WithLabelValues(ch.Entity).Inc()
	i.c.log.Debug().
		Str("entity", ch.Entity).
		Str("id", ch.ID).
		Int("removed", removed).
		Msg("cache invalidated")
	return removed, nil
}
