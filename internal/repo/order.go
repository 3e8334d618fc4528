package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"gorm.io/gorm"
)

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Create(order).Error
}

func (r *GormRepo) GetOrderByCode(ctx context.Context, code string) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("code = ?", code).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// SetOrderStatus moves the order from one status to another only if it is
// still in the expected one.
func (r *GormRepo) SetOrderStatus(ctx context.Context, orderID uint, from, to models.OrderStatus) error {
	res := r.DB.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		UpdateColumns(map[string]any{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}

// ListOrdersByStatus pages through orders in one status, oldest first. A non
// empty query narrows the set to orders whose code, address or phone numbers
// or payment method contain it, ignoring case.
func (r *GormRepo) ListOrdersByStatus(ctx context.Context, status models.OrderStatus, query string, offset, limit int) (int64, []models.Order, error) {
	base := r.DB.WithContext(ctx).Model(&models.Order{}).Where("status = ?", status)
	if q := strings.TrimSpace(query); q != "" {
		like := "%" + escapeLike(strings.ToLower(q)) + "%"
		base = base.Where(
			"(LOWER(code) LIKE ? ESCAPE '\\' OR LOWER(delivery_city) LIKE ? ESCAPE '\\' OR LOWER(delivery_province) LIKE ? ESCAPE '\\' OR "+
				"LOWER(delivery_country) LIKE ? ESCAPE '\\' OR LOWER(delivery_tel) LIKE ? ESCAPE '\\' OR LOWER(delivery_tel02) LIKE ? ESCAPE '\\' OR "+
				"LOWER(payment_method) LIKE ? ESCAPE '\\')",
			like, like, like, like, like, like, like,
		)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	orders := make([]models.Order, 0, limit)
	if err := base.Session(&gorm.Session{}).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("created_at ASC").Order("id ASC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

func (r *GormRepo) ListOrdersByUser(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// HasDeliveredPurchase reports whether the user has a delivered order that
// contains the product.
func (r *GormRepo) HasDeliveredPurchase(ctx context.Context, userID, productID uint) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&models.Order{}).
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Where("orders.user_id = ? AND orders.status = ? AND order_items.product_id = ?", userID, models.StatusDelivered, productID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GormRepo) LatestOrderCode(ctx context.Context) (string, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).Select("code").Order("id DESC").Take(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return order.Code, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
