package repo

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateReview(ctx context.Context, review *models.Review) error {
	return r.DB.WithContext(ctx).Create(review).Error
}

func (r *GormRepo) HasReview(ctx context.Context, productID, userID uint) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&models.Review{}).
		Where("product_id = ? AND user_id = ?", productID, userID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GormRepo) GetReview(ctx context.Context, productID, reviewID uint) (*models.Review, error) {
	var review models.Review
	err := r.DB.WithContext(ctx).
		Where("id = ? AND product_id = ?", reviewID, productID).
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *GormRepo) SetReviewHidden(ctx context.Context, reviewID uint, hidden bool) error {
	return r.DB.WithContext(ctx).
		Model(&models.Review{}).
		Where("id = ?", reviewID).
		UpdateColumn("hidden", hidden).Error
}
