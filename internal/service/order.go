package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	minQuantity = 1
	maxQuantity = 100
	minTelLen   = 10

	productLookupLimit = 8
)

type OrderService struct {
	Repo      *repo.GormRepo
	Publisher Publisher
	Indexer   ProductIndexer
}

// OrderLine is an order item with the product details a buyer needs to
// recognise it. Product fields stay empty when the product was deleted.
type OrderLine struct {
	models.OrderItem
	Name     string          `json:"name"`
	Brand    string          `json:"brand"`
	Category models.Category `json:"category"`
	Image    string          `json:"image,omitempty"`
}

// OrderDetails is an order as shown to its owner or an admin: the lines
// carry product details and the owner is named.
type OrderDetails struct {
	*models.Order
	Username string      `json:"username,omitempty"`
	Email    string      `json:"email,omitempty"`
	Lines    []OrderLine `json:"items"`
}

// PlaceOrder validates the cart against the catalog and stores the order.
// Every product is checked before anything is written. Code allocation, the
// order insert and the stock decrements share one transaction.
func (s *OrderService) PlaceOrder(ctx context.Context, actor Actor, req transport.PlaceOrderRequest) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.place_order")

	if err := requireAuth(actor); err != nil {
		return nil, err
	}
	if req.UserID == 0 {
		req.UserID = actor.UserID
	}
	if req.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: cannot place an order for another user", ErrForbidden)
	}
	if err := validatePlaceOrder(req); err != nil {
		return nil, err
	}

	if _, err := s.Repo.GetUserByID(ctx, req.UserID); err != nil {
		return nil, notFound(err, "user %d not found", req.UserID)
	}

	ids, wanted := requestedQuantities(req.Items)
	products, err := s.checkStock(ctx, ids, wanted)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:        req.UserID,
		Delivery:      normalizeDelivery(req.Delivery),
		PaymentMethod: req.PaymentMethod,
		Status:        models.StatusPending,
		Items:         make([]models.OrderItem, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		p := products[it.ProductID]
		order.Items = append(order.Items, models.OrderItem{
			ProductID:   p.ID,
			ProductCode: p.Code,
			Quantity:    it.Quantity,
			PriceCents:  p.SellingPriceCents,
		})
		order.TotalCents += it.Quantity * p.SellingPriceCents
	}

	err = s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		code, err := OrderSequence.Next(ctx, tx)
		if err != nil {
			return err
		}
		order.Code = code

		if err := tx.CreateOrder(ctx, order); err != nil {
			return internal(err)
		}
		for _, id := range ids {
			if err := tx.DecrementStock(ctx, id, wanted[id]); err != nil {
				if errors.Is(err, repo.ErrInsufficientStock) {
					return fmt.Errorf("%w: insufficient stock for %s", ErrConflict, products[id].Code)
				}
				return internal(err)
			}
		}
		return nil
	})
	if err != nil {
		l.Warn("place_order_failed", "user_id", req.UserID, "error", err)
		return nil, err
	}

	l.Info("order_placed", "code", order.Code, "user_id", order.UserID, "total_cents", order.TotalCents)
	publish(ctx, s.Publisher, events.TopicOrderEvents, order.Code, events.NewOrderPlaced(order))
	reindex(ctx, s.Indexer, s.Repo, ids...)
	return order, nil
}

// checkStock resolves every product concurrently and returns once all of
// them are known to be available in the wanted quantity.
func (s *OrderService) checkStock(ctx context.Context, ids []uint, wanted map[uint]int64) (map[uint]*models.Product, error) {
	found := make([]*models.Product, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(productLookupLimit)
	for i, id := range ids {
		g.Go(func() error {
			p, err := s.Repo.GetProductByID(gctx, id)
			if err != nil {
				return notFound(err, "product %d not found", id)
			}
			if !p.Available {
				return fmt.Errorf("%w: product %s is not available", ErrConflict, p.Code)
			}
			if wanted[id] > p.StockLeft {
				return fmt.Errorf("%w: insufficient stock for %s", ErrConflict, p.Code)
			}
			found[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[uint]*models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	return byID, nil
}

// UpdateStatus applies a status change allowed by CanTransition. Moving to
// cancelled puts every ordered unit back on the shelf in the same transaction.
// Asking for the current status is accepted and changes nothing.
func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, code string, to models.OrderStatus) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.update_status")

	if err := requireAuth(actor); err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}

	order, err := s.Repo.GetOrderByCode(ctx, code)
	if err != nil {
		return nil, notFound(err, "order %s not found", code)
	}

	from := order.Status
	if err := CanTransition(actor, order, from, to); err != nil {
		return nil, err
	}
	if from == to {
		return order, nil
	}

	ids, qty := orderedQuantities(order.Items)
	err = s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		if err := tx.SetOrderStatus(ctx, order.ID, from, to); err != nil {
			if errors.Is(err, repo.ErrStatusChanged) {
				return fmt.Errorf("%w: order %s was changed concurrently", ErrConflict, order.Code)
			}
			return internal(err)
		}
		if to != models.StatusCancelled {
			return nil
		}
		for _, id := range ids {
			if err := tx.RestockProduct(ctx, id, qty[id]); err != nil {
				return internal(err)
			}
		}
		return nil
	})
	if err != nil {
		l.Warn("update_status_failed", "code", code, "from", from, "to", to, "error", err)
		return nil, err
	}

	order.Status = to
	l.Info("order_status_changed", "code", order.Code, "from", from, "to", to, "actor_id", actor.UserID)
	publish(ctx, s.Publisher, events.TopicOrderEvents, order.Code, events.NewOrderStatusChanged(order, actor.UserID, from))
	if to == models.StatusCancelled {
		reindex(ctx, s.Indexer, s.Repo, ids...)
	}
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, actor Actor, code string) (*OrderDetails, error) {
	if err := requireAuth(actor); err != nil {
		return nil, err
	}
	order, err := s.Repo.GetOrderByCode(ctx, code)
	if err != nil {
		return nil, notFound(err, "order %s not found", code)
	}
	if !actor.IsAdmin() && order.UserID != actor.UserID {
		return nil, fmt.Errorf("%w: order %s belongs to another user", ErrForbidden, code)
	}

	owner, err := s.Repo.GetUserByID(ctx, order.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal(err)
	}

	details, err := s.describe(ctx, []models.Order{*order}, owner)
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// describe attaches product details and the owner to each order. Products
// for all orders are fetched in one lookup.
func (s *OrderService) describe(ctx context.Context, orders []models.Order, owner *models.User) ([]OrderDetails, error) {
	var items []models.OrderItem
	for _, o := range orders {
		items = append(items, o.Items...)
	}
	ids, _ := orderedQuantities(items)

	byID := make(map[uint]models.Product, len(ids))
	if len(ids) > 0 {
		products, err := s.Repo.GetProductsByIDs(ctx, ids)
		if err != nil {
			return nil, internal(err)
		}
		for _, p := range products {
			byID[p.ID] = p
		}
	}

	out := make([]OrderDetails, 0, len(orders))
	for i := range orders {
		order := &orders[i]
		d := OrderDetails{Order: order, Lines: make([]OrderLine, 0, len(order.Items))}
		if owner != nil {
			d.Username = owner.Username
			d.Email = owner.Email
		}
		for _, it := range order.Items {
			line := OrderLine{OrderItem: it}
			if p, ok := byID[it.ProductID]; ok {
				line.Name = p.Name
				line.Brand = p.Brand
				line.Category = p.Category
				if len(p.Images) > 0 {
					line.Image = p.Images[0]
				}
			}
			d.Lines = append(d.Lines, line)
		}
		out = append(out, d)
	}
	return out, nil
}

// ListOrders pages through orders in one status, oldest first.
func (s *OrderService) ListOrders(ctx context.Context, actor Actor, status models.OrderStatus, query string, offset, limit int) (int64, []models.Order, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, nil, err
	}
	if !status.Valid() {
		return 0, nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	total, orders, err := s.Repo.ListOrdersByStatus(ctx, status, query, offset, limit)
	if err != nil {
		return 0, nil, internal(err)
	}
	return total, orders, nil
}

func (s *OrderService) ListUserOrders(ctx context.Context, actor Actor, userID uint) ([]OrderDetails, error) {
	if err := requireAuth(actor); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && userID != actor.UserID {
		return nil, fmt.Errorf("%w: cannot list another user's orders", ErrForbidden)
	}
	owner, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user %d not found", userID)
	}
	orders, err := s.Repo.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, internal(err)
	}
	return s.describe(ctx, orders, owner)
}

func validatePlaceOrder(req transport.PlaceOrderRequest) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: items required", ErrValidation)
	}
	for i, it := range req.Items {
		if it.ProductID == 0 {
			return fmt.Errorf("%w: items[%d]: product_id required", ErrValidation, i)
		}
		if it.Quantity < minQuantity || it.Quantity > maxQuantity {
			return fmt.Errorf("%w: items[%d]: quantity must be between %d and %d", ErrValidation, i, minQuantity, maxQuantity)
		}
	}
	if !req.PaymentMethod.Valid() {
		return fmt.Errorf("%w: payment_method must be cod or card", ErrValidation)
	}

	d := req.Delivery
	for _, f := range []struct{ name, value string }{
		{"street", d.Street},
		{"city", d.City},
		{"province", d.Province},
		{"postal_code", d.PostalCode},
		{"country", d.Country},
	} {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: delivery.%s required", ErrValidation, f.name)
		}
	}
	if len(strings.TrimSpace(d.Tel)) < minTelLen {
		return fmt.Errorf("%w: delivery.tel must have at least %d characters", ErrValidation, minTelLen)
	}
	if tel02 := strings.TrimSpace(d.Tel02); tel02 != "" && len(tel02) < minTelLen {
		return fmt.Errorf("%w: delivery.tel02 must have at least %d characters", ErrValidation, minTelLen)
	}
	return nil
}

func normalizeDelivery(d models.DeliveryDetails) models.DeliveryDetails {
	return models.DeliveryDetails{
		Street:     strings.TrimSpace(d.Street),
		City:       strings.TrimSpace(d.City),
		Province:   strings.TrimSpace(d.Province),
		PostalCode: strings.TrimSpace(d.PostalCode),
		Country:    strings.TrimSpace(d.Country),
		Tel:        strings.TrimSpace(d.Tel),
		Tel02:      strings.TrimSpace(d.Tel02),
	}
}

// sumByProduct adds up quantities per product, keeping first-seen order.
func sumByProduct[T any](items []T, line func(T) (uint, int64)) ([]uint, map[uint]int64) {
	ids := make([]uint, 0, len(items))
	qty := make(map[uint]int64, len(items))
	for _, it := range items {
		id, n := line(it)
		if _, seen := qty[id]; !seen {
			ids = append(ids, id)
		}
		qty[id] += n
	}
	return ids, qty
}

func requestedQuantities(items []transport.OrderItemRequest) ([]uint, map[uint]int64) {
	return sumByProduct(items, func(it transport.OrderItemRequest) (uint, int64) { return it.ProductID, it.Quantity })
}

func orderedQuantities(items []models.OrderItem) ([]uint, map[uint]int64) {
	return sumByProduct(items, func(it models.OrderItem) (uint, int64) { return it.ProductID, it.Quantity })
}
