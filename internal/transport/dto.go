package transport

import "github.com/Skotchmaster/storefront/internal/models"

type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type OrderItemRequest struct {
	ProductID uint  `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type PlaceOrderRequest struct {
	// UserID lets an admin place an order on behalf of a customer. Customers
	// leave it empty.
	UserID        uint                   `json:"user_id,omitempty"`
	Delivery      models.DeliveryDetails `json:"delivery"`
	PaymentMethod models.PaymentMethod   `json:"payment_method"`
	Items         []OrderItemRequest     `json:"items"`
}

type UpdateStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

type CreateProductRequest struct {
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Category          models.Category `json:"category"`
	Brand             string          `json:"brand"`
	BestSeller        bool            `json:"best_seller"`
	Images            []string        `json:"images"`
	Keywords          []string        `json:"keywords"`
	MarkedPriceCents  int64           `json:"marked_price_cents"`
	SellingPriceCents int64           `json:"selling_price_cents"`
	StockLeft         int64           `json:"stock_left"`
}

type PatchProductRequest struct {
	Name              *string          `json:"name"`
	Description       *string          `json:"description"`
	Category          *models.Category `json:"category"`
	Brand             *string          `json:"brand"`
	BestSeller        *bool            `json:"best_seller"`
	Images            *[]string        `json:"images"`
	Keywords          *[]string        `json:"keywords"`
	MarkedPriceCents  *int64           `json:"marked_price_cents"`
	SellingPriceCents *int64           `json:"selling_price_cents"`
	StockLeft         *int64           `json:"stock_left"`
}

type AddReviewRequest struct {
	Rating int      `json:"rating"`
	Text   string   `json:"text"`
	Images []string `json:"images"`
}

type HideReviewRequest struct {
	Hidden bool `json:"hidden"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

type Page[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}
