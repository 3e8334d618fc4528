package repo

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureUser creates the user unless one with the same email exists and
// returns the stored row.
func (r *GormRepo) EnsureUser(ctx context.Context, user *models.User) (*models.User, error) {
	var stored models.User
	err := r.DB.WithContext(ctx).
		Where(models.User{Email: user.Email}).
		Attrs(models.User{Username: user.Username, PasswordHash: user.PasswordHash, Role: user.Role}).
		FirstOrCreate(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}
