package repo

import (
	"context"
	"errors"

	"github.com/Skotchmaster/storefront/internal/models"
	"gorm.io/gorm"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStatusChanged     = errors.New("order status changed")
)

type GormRepo struct {
	DB *gorm.DB
}

// InTx runs fn in one transaction. The repo handed to fn is bound to it and
// must be the only one used until fn returns.
func (r *GormRepo) InTx(ctx context.Context, fn func(tx *GormRepo) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepo{DB: tx})
	})
}

func (r *GormRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Review{},
		&models.Order{},
		&models.OrderItem{},
		&models.Counter{},
	)
}
