package cache

import (
	"context"
	"errors"

	"github.com/fjod/cartlink/pkg/commercetools"
)

type LinkCache interface {
	Get(ctx context.Context, linkID string) (*commercetools.Cart, error)
	Set(ctx context.Context, linkID string, cart *commercetools.Cart) error
	Delete(ctx context.Context, linkID string) error
}

var ErrCacheMiss = errors.New("cache miss")
