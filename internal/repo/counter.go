package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NextCounterValue increments the named counter and returns the new value.
// A missing counter is created first from seed. Call it inside the
// transaction that stores the record the value is issued for, so a rollback
// gives the number back.
func (r *GormRepo) NextCounterValue(ctx context.Context, name string, seed func(ctx context.Context) (int64, error)) (int64, error) {
	db := r.DB.WithContext(ctx)

	var exists int64
	if err := db.Model(&models.Counter{}).Where("name = ?", name).Count(&exists).Error; err != nil {
		return 0, err
	}
	if exists == 0 {
		start, err := seed(ctx)
		if err != nil {
			return 0, err
		}
		err = db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Counter{Name: name, Value: start}).Error
		if err != nil {
			return 0, err
		}
	}

	res := db.Model(&models.Counter{}).
		Where("name = ?", name).
		UpdateColumns(map[string]any{
			"value":      gorm.Expr("value + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("counter %q not found", name)
	}

	var c models.Counter
	if err := db.Where("name = ?", name).Take(&c).Error; err != nil {
		return 0, err
	}
	return c.Value, nil
}
