package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

// Publisher ships domain events to a broker.
type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

// ProductIndexer keeps the product search index in step with the store.
type ProductIndexer interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, code string) error
}

const sideEffectTimeout = 5 * time.Second

// publish runs after commit. Failures are logged and never undo committed state.
func publish(ctx context.Context, p Publisher, topic, key string, event any) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(ctx).Error("publish_event_failed", "topic", topic, "key", key, "error", err)
	}
}

func reindex(ctx context.Context, idx ProductIndexer, r *repo.GormRepo, ids ...uint) {
	if idx == nil || len(ids) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	l := logging.FromContext(ctx)

	products, err := r.GetProductsByIDs(ctx, ids)
	if err != nil {
		l.Error("reindex_failed", "reason", "cannot load products", "error", err)
		return
	}
	for i := range products {
		if err := idx.IndexProduct(ctx, &products[i]); err != nil {
			l.Error("reindex_failed", "product", products[i].Code, "error", err)
		}
	}
}

func unindex(ctx context.Context, idx ProductIndexer, code string) {
	if idx == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if err := idx.DeleteProduct(ctx, code); err != nil {
		logging.FromContext(ctx).Error("unindex_failed", "product", code, "error", err)
	}
}
