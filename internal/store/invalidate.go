package store

import (
	"context"

	"github.com/dmorgan81/imagine/internal/log"
)

type Invalidator interface {
	Invalidate(context.Context, []string) error
}

// NopInvalidator is used when no CDN sits in front of the bucket.
type NopInvalidator struct{}

func (NopInvalidator) Invalidate(ctx context.Context, paths []string) error {
	log.FromContextOrDiscard(ctx).WithGroup("invalidator").Debug("no distribution configured", "paths", paths)
	return nil
}
