package events

import (
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/google/uuid"
)

const (
	TopicOrderEvents   = "order_events"
	TopicProductEvents = "product_events"
)

const (
	TypeOrderPlaced             = "order_placed"
	TypeOrderStatusChanged      = "order_status_changed"
	TypeProductCreated          = "product_created"
	TypeProductUpdated          = "product_updated"
	TypeProductDeleted          = "product_deleted"
	TypeReviewAdded             = "review_added"
	TypeReviewVisibilityChanged = "review_visibility_changed"
)

type Envelope struct {
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func newEnvelope(typ string) Envelope {
	return Envelope{
		EventID:   uuid.NewString(),
		Type:      typ,
		Timestamp: time.Now().UTC(),
	}
}

type OrderLine struct {
	ProductID   uint   `json:"product_id"`
	ProductCode string `json:"product_code"`
	Quantity    int64  `json:"quantity"`
	PriceCents  int64  `json:"price_cents"`
}

type OrderPlaced struct {
	Envelope
	OrderCode     string      `json:"order_code"`
	UserID        uint        `json:"user_id"`
	PaymentMethod string      `json:"payment_method"`
	TotalCents    int64       `json:"total_cents"`
	Items         []OrderLine `json:"items"`
}

func NewOrderPlaced(o *models.Order) OrderPlaced {
	lines := make([]OrderLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, OrderLine{
			ProductID:   it.ProductID,
			ProductCode: it.ProductCode,
			Quantity:    it.Quantity,
			PriceCents:  it.PriceCents,
		})
	}
	return OrderPlaced{
		Envelope:      newEnvelope(TypeOrderPlaced),
		OrderCode:     o.Code,
		UserID:        o.UserID,
		PaymentMethod: string(o.PaymentMethod),
		TotalCents:    o.TotalCents,
		Items:         lines,
	}
}

type OrderStatusChanged struct {
	Envelope
	OrderCode string `json:"order_code"`
	UserID    uint   `json:"user_id"`
	ActorID   uint   `json:"actor_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Restocked bool   `json:"restocked"`
}

func NewOrderStatusChanged(o *models.Order, actorID uint, from models.OrderStatus) OrderStatusChanged {
	return OrderStatusChanged{
		Envelope:  newEnvelope(TypeOrderStatusChanged),
		OrderCode: o.Code,
		UserID:    o.UserID,
		ActorID:   actorID,
		From:      string(from),
		To:        string(o.Status),
		Restocked: o.Status == models.StatusCancelled,
	}
}

type ProductChanged struct {
	Envelope
	ProductID         uint   `json:"product_id"`
	ProductCode       string `json:"product_code"`
	Name              string `json:"name"`
	SellingPriceCents int64  `json:"selling_price_cents"`
	StockLeft         int64  `json:"stock_left"`
	Available         bool   `json:"available"`
}

func NewProductChanged(typ string, p *models.Product) ProductChanged {
	return ProductChanged{
		Envelope:          newEnvelope(typ),
		ProductID:         p.ID,
		ProductCode:       p.Code,
		Name:              p.Name,
		SellingPriceCents: p.SellingPriceCents,
		StockLeft:         p.StockLeft,
		Available:         p.Available,
	}
}

type ReviewAdded struct {
	Envelope
	ProductCode   string  `json:"product_code"`
	ReviewID      uint    `json:"review_id"`
	UserID        uint    `json:"user_id"`
	Rating        int     `json:"rating"`
	RatingAverage float64 `json:"rating_average"`
	RatingCount   int64   `json:"rating_count"`
}

func NewReviewAdded(p *models.Product, r *models.Review) ReviewAdded {
	return ReviewAdded{
		Envelope:      newEnvelope(TypeReviewAdded),
		ProductCode:   p.Code,
		ReviewID:      r.ID,
		UserID:        r.UserID,
		Rating:        r.Rating,
		RatingAverage: p.RatingAverage,
		RatingCount:   p.RatingCount,
	}
}

type ReviewVisibilityChanged struct {
	Envelope
	ProductCode string `json:"product_code"`
	ReviewID    uint   `json:"review_id"`
	Hidden      bool   `json:"hidden"`
}

func NewReviewVisibilityChanged(productCode string, r *models.Review) ReviewVisibilityChanged {
	return ReviewVisibilityChanged{
		Envelope:    newEnvelope(TypeReviewVisibilityChanged),
		ProductCode: productCode,
		ReviewID:    r.ID,
		Hidden:      r.Hidden,
	}
}
