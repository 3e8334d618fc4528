package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type CatalogService struct {
	Repo      *repo.GormRepo
	Publisher Publisher
	Indexer   ProductIndexer
}

// GetProduct returns the product with its reviews. Hidden reviews are only
// included for admins.
func (s *CatalogService) GetProduct(ctx context.Context, actor Actor, code string) (*models.Product, error) {
	product, err := s.Repo.GetProductByCode(ctx, code, actor.IsAdmin())
	if err != nil {
		return nil, notFound(err, "product %s not found", code)
	}
	return product, nil
}

// GetProducts lists newest products first. Only admins see products that are
// out of stock.
func (s *CatalogService) GetProducts(ctx context.Context, actor Actor, offset, limit int) (int64, []models.Product, error) {
	total, items, err := s.Repo.GetProducts(ctx, !actor.IsAdmin(), offset, limit)
	if err != nil {
		return 0, nil, internal(err)
	}
	return total, items, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, actor Actor, req transport.CreateProductRequest) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.create_product")

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:              strings.TrimSpace(req.Name),
		Description:       strings.TrimSpace(req.Description),
		Category:          req.Category,
		Brand:             strings.TrimSpace(req.Brand),
		BestSeller:        req.BestSeller,
		Images:            req.Images,
		Keywords:          normalizeKeywords(req.Keywords),
		MarkedPriceCents:  req.MarkedPriceCents,
		SellingPriceCents: req.SellingPriceCents,
		StockLeft:         req.StockLeft,
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		code, err := ProductSequence.Next(ctx, tx)
		if err != nil {
			return err
		}
		product.Code = code
		return internal(tx.CreateProduct(ctx, product))
	})
	if err != nil {
		l.Warn("create_product_failed", "error", err)
		return nil, err
	}

	l.Info("product_created", "code", product.Code)
	publish(ctx, s.Publisher, events.TopicProductEvents, product.Code, events.NewProductChanged(events.TypeProductCreated, product))
	reindex(ctx, s.Indexer, s.Repo, product.ID)
	return product, nil
}

// PatchProduct applies the fields present in req. Price rules are checked on
// the merged record, but only the requested columns are written, so stock
// sold since the read is kept unless req sets it.
func (s *CatalogService) PatchProduct(ctx context.Context, actor Actor, code string, req transport.PatchProductRequest) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.patch_product")

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	product, err := s.Repo.GetProductByCode(ctx, code, true)
	if err != nil {
		return nil, notFound(err, "product %s not found", code)
	}

	cols := make(map[string]any)
	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
		cols["name"] = product.Name
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
		cols["description"] = product.Description
	}
	if req.Category != nil {
		product.Category = *req.Category
		cols["category"] = product.Category
	}
	if req.Brand != nil {
		product.Brand = strings.TrimSpace(*req.Brand)
		cols["brand"] = product.Brand
	}
	if req.BestSeller != nil {
		product.BestSeller = *req.BestSeller
		cols["best_seller"] = product.BestSeller
	}
	if req.Images != nil {
		product.Images = *req.Images
		cols["images"] = product.Images
	}
	if req.Keywords != nil {
		product.Keywords = normalizeKeywords(*req.Keywords)
		cols["keywords"] = product.Keywords
	}
	if req.MarkedPriceCents != nil {
		product.MarkedPriceCents = *req.MarkedPriceCents
		cols["marked_price_cents"] = product.MarkedPriceCents
	}
	if req.SellingPriceCents != nil {
		product.SellingPriceCents = *req.SellingPriceCents
		cols["selling_price_cents"] = product.SellingPriceCents
	}
	if req.StockLeft != nil {
		product.StockLeft = *req.StockLeft
		cols["stock_left"] = product.StockLeft
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return product, nil
	}

	if err := s.Repo.UpdateProductColumns(ctx, product.ID, cols); err != nil {
		l.Warn("patch_product_failed", "code", code, "error", err)
		return nil, notFound(err, "product %s not found", code)
	}
	updated, err := s.Repo.GetProductByCode(ctx, code, true)
	if err != nil {
		return nil, notFound(err, "product %s not found", code)
	}

	l.Info("product_updated", "code", code, "columns", len(cols))
	publish(ctx, s.Publisher, events.TopicProductEvents, code, events.NewProductChanged(events.TypeProductUpdated, updated))
	reindex(ctx, s.Indexer, s.Repo, updated.ID)
	return updated, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, actor Actor, code string) error {
	l := logging.FromContext(ctx).With("svc", "catalog.delete_product")

	if err := requireAdmin(actor); err != nil {
		return err
	}
	product, err := s.Repo.GetProductByCode(ctx, code, true)
	if err != nil {
		return notFound(err, "product %s not found", code)
	}

	err = s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		return tx.DeleteProduct(ctx, product.ID)
	})
	if err != nil {
		l.Warn("delete_product_failed", "code", code, "error", err)
		return notFound(err, "product %s not found", code)
	}

	l.Info("product_deleted", "code", code)
	publish(ctx, s.Publisher, events.TopicProductEvents, code, events.NewProductChanged(events.TypeProductDeleted, product))
	unindex(ctx, s.Indexer, code)
	return nil
}

func validateProduct(p *models.Product) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name required", ErrValidation)
	case p.Description == "":
		return fmt.Errorf("%w: description required", ErrValidation)
	case p.Brand == "":
		return fmt.Errorf("%w: brand required", ErrValidation)
	case !p.Category.Valid():
		return fmt.Errorf("%w: unknown category %q", ErrValidation, p.Category)
	case p.MarkedPriceCents < 0 || p.SellingPriceCents < 0:
		return fmt.Errorf("%w: prices must be >= 0", ErrValidation)
	case p.SellingPriceCents >= p.MarkedPriceCents:
		return fmt.Errorf("%w: selling price must be lower than marked price", ErrValidation)
	case p.StockLeft < 0:
		return fmt.Errorf("%w: stock must be >= 0", ErrValidation)
	}
	return validateImageURLs(p.Images)
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
