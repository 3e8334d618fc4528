package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"gorm.io/gorm"
)

const maxReviewText = 150

type ReviewService struct {
	Repo      *repo.GormRepo
	Publisher Publisher
	Indexer   ProductIndexer
}

// AddReview stores a review from a buyer who has received the product and
// folds its rating into the product aggregate in the same transaction.
func (s *ReviewService) AddReview(ctx context.Context, actor Actor, productCode string, req transport.AddReviewRequest) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "review.add_review")

	if err := requireAuth(actor); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Text)
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}
	if text == "" || utf8.RuneCountInString(text) > maxReviewText {
		return nil, fmt.Errorf("%w: text must have 1 to %d characters", ErrValidation, maxReviewText)
	}
	if err := validateImageURLs(req.Images); err != nil {
		return nil, err
	}

	if _, err := s.Repo.GetUserByID(ctx, actor.UserID); err != nil {
		return nil, notFound(err, "user %d not found", actor.UserID)
	}
	product, err := s.Repo.GetProductByCode(ctx, productCode, false)
	if err != nil {
		return nil, notFound(err, "product %s not found", productCode)
	}

	reviewed, err := s.Repo.HasReview(ctx, product.ID, actor.UserID)
	if err != nil {
		return nil, internal(err)
	}
	if reviewed {
		return nil, fmt.Errorf("%w: already reviewed", ErrConflict)
	}
	received, err := s.Repo.HasDeliveredPurchase(ctx, actor.UserID, product.ID)
	if err != nil {
		return nil, internal(err)
	}
	if !received {
		return nil, fmt.Errorf("%w: must purchase and receive to review", ErrConflict)
	}

	review := &models.Review{
		ProductID: product.ID,
		UserID:    actor.UserID,
		Rating:    req.Rating,
		Text:      text,
		Images:    req.Images,
	}
	err = s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		if err := tx.CreateReview(ctx, review); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: already reviewed", ErrConflict)
			}
			return internal(err)
		}
		if err := tx.ApplyRating(ctx, product.ID, review.Rating); err != nil {
			return notFound(err, "product %s not found", productCode)
		}
		return nil
	})
	if err != nil {
		l.Warn("add_review_failed", "product", productCode, "user_id", actor.UserID, "error", err)
		return nil, err
	}

	updated, err := s.Repo.GetProductByCode(ctx, productCode, actor.IsAdmin())
	if err != nil {
		return nil, notFound(err, "product %s not found", productCode)
	}

	l.Info("review_added", "product", productCode, "review_id", review.ID, "rating", review.Rating)
	publish(ctx, s.Publisher, events.TopicProductEvents, productCode, events.NewReviewAdded(updated, review))
	reindex(ctx, s.Indexer, s.Repo, updated.ID)
	return updated, nil
}

// HideReview toggles whether a review is shown publicly. The rating
// aggregate keeps counting hidden reviews.
func (s *ReviewService) HideReview(ctx context.Context, actor Actor, productCode string, reviewID uint, hidden bool) (*models.Review, error) {
	l := logging.FromContext(ctx).With("svc", "review.hide_review")

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	product, err := s.Repo.GetProductByCode(ctx, productCode, true)
	if err != nil {
		return nil, notFound(err, "product %s not found", productCode)
	}
	review, err := s.Repo.GetReview(ctx, product.ID, reviewID)
	if err != nil {
		return nil, notFound(err, "review %d not found", reviewID)
	}

	if err := s.Repo.SetReviewHidden(ctx, review.ID, hidden); err != nil {
		return nil, internal(err)
	}
	review.Hidden = hidden

	l.Info("review_visibility_changed", "product", productCode, "review_id", review.ID, "hidden", hidden)
	publish(ctx, s.Publisher, events.TopicProductEvents, productCode, events.NewReviewVisibilityChanged(productCode, review))
	return review, nil
}

func validateImageURLs(urls []string) error {
	for i, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: images[%d] must be an http(s) URL", ErrValidation, i)
		}
	}
	return nil
}
