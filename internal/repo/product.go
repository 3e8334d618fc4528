package repo

import (
	"context"
	"errors"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *GormRepo) GetProductByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) GetProductByCode(ctx context.Context, code string, withHidden bool) (*models.Product, error) {
	var product models.Product
	q := r.DB.WithContext(ctx).Preload("Reviews", func(db *gorm.DB) *gorm.DB {
		if !withHidden {
			db = db.Where("hidden = ?", false)
		}
		return db.Order("id ASC")
	})
	if err := q.Where("code = ?", code).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) GetProducts(ctx context.Context, onlyAvailable bool, offset, limit int) (int64, []models.Product, error) {
	base := r.DB.WithContext(ctx).Model(&models.Product{})
	if onlyAvailable {
		base = base.Where("available = ?", true)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Product, 0, limit)
	if err := base.Session(&gorm.Session{}).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}

	return total, items, nil
}

func (r *GormRepo) LatestProductCode(ctx context.Context) (string, error) {
	var product models.Product
	err := r.DB.WithContext(ctx).Select("code").Order("id DESC").Take(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return product.Code, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, prod *models.Product) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(prod).Error
}

// UpdateProductColumns writes only cols. When stock_left is among them,
// available is derived from it in the same statement.
func (r *GormRepo) UpdateProductColumns(ctx context.Context, id uint, cols map[string]any) error {
	set := make(map[string]any, len(cols)+2)
	for k, v := range cols {
		set[k] = v
	}
	if stock, ok := set["stock_left"]; ok {
		set["available"] = gorm.Expr("(? > 0)", stock)
	}
	set["updated_at"] = time.Now().UTC()

	res := r.DB.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumns(set)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteProduct removes the product and its reviews.
func (r *GormRepo) DeleteProduct(ctx context.Context, id uint) error {
	db := r.DB.WithContext(ctx)
	if err := db.Where("product_id = ?", id).Delete(&models.Review{}).Error; err != nil {
		return err
	}
	res := db.Delete(&models.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementStock takes qty units off the product only if that many are left.
// Available is recomputed in the same statement.
func (r *GormRepo) DecrementStock(ctx context.Context, productID uint, qty int64) error {
	res := r.DB.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock_left >= ?", productID, qty).
		UpdateColumns(map[string]any{
			"stock_left": gorm.Expr("stock_left - ?", qty),
			"available":  gorm.Expr("(stock_left - ? > 0)", qty),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *GormRepo) RestockProduct(ctx context.Context, productID uint, qty int64) error {
	return r.DB.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumns(map[string]any{
			"stock_left": gorm.Expr("stock_left + ?", qty),
			"available":  gorm.Expr("(stock_left + ? > 0)", qty),
			"updated_at": time.Now().UTC(),
		}).Error
}

// ApplyRating folds one rating into the product aggregate in a single statement.
func (r *GormRepo) ApplyRating(ctx context.Context, productID uint, rating int) error {
	res := r.DB.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumns(map[string]any{
			"rating_sum":     gorm.Expr("rating_sum + ?", rating),
			"rating_count":   gorm.Expr("rating_count + 1"),
			"rating_average": gorm.Expr("(rating_sum + ?) * 1.0 / (rating_count + 1)", rating),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) GetProductsByIDs(ctx context.Context, ids []uint) ([]models.Product, error) {
	var products []models.Product
	if len(ids) == 0 {
		return products, nil
	}
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
