package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Category string

const (
	CategorySkincare         Category = "skincare"
	CategoryMakeup           Category = "makeup"
	CategoryHaircare         Category = "haircare"
	CategoryFragrance        Category = "fragrance"
	CategoryBathBody         Category = "bath_body"
	CategoryToolsAccessories Category = "tools_accessories"
	CategoryMen              Category = "men"
	CategoryGiftsSets        Category = "gifts_sets"
)

func (c Category) Valid() bool {
	switch c {
	case CategorySkincare, CategoryMakeup, CategoryHaircare, CategoryFragrance,
		CategoryBathBody, CategoryToolsAccessories, CategoryMen, CategoryGiftsSets:
		return true
	}
	return false
}

type Product struct {
	ID                uint                        `gorm:"primaryKey;autoIncrement"        json:"id"`
	Code              string                      `gorm:"size:32;uniqueIndex;not null"    json:"code"`
	Name              string                      `gorm:"not null"                        json:"name"`
	Description       string                      `gorm:"not null"                        json:"description"`
	Category          Category                    `gorm:"size:32;index;not null"          json:"category"`
	Brand             string                      `gorm:"not null"                        json:"brand"`
	BestSeller        bool                        `gorm:"not null;default:false"          json:"best_seller"`
	Images            datatypes.JSONSlice[string] `json:"images"`
	Keywords          datatypes.JSONSlice[string] `json:"keywords"`
	MarkedPriceCents  int64                       `gorm:"not null;check:marked_price_cents >= 0"  json:"marked_price_cents"`
	SellingPriceCents int64                       `gorm:"not null;check:selling_price_cents >= 0" json:"selling_price_cents"`
	StockLeft         int64                       `gorm:"not null;check:stock_left >= 0"  json:"stock_left"`
	Available         bool                        `gorm:"not null;index"                  json:"available"`
	RatingSum         int64                       `gorm:"not null;default:0"              json:"-"`
	RatingCount       int64                       `gorm:"not null;default:0"              json:"rating_count"`
	RatingAverage     float64                     `gorm:"not null;default:0"              json:"rating_average"`
	Reviews           []Review                    `gorm:"foreignKey:ProductID"            json:"reviews,omitempty"`
	CreatedAt         time.Time                   `json:"created_at"`
	UpdatedAt         time.Time                   `json:"updated_at"`
}

// BeforeSave keeps Available in step with StockLeft for whole-record writes.
// Column updates that touch stock set both in the same statement.
func (p *Product) BeforeSave(tx *gorm.DB) error {
	p.Available = p.StockLeft > 0
	return nil
}

type Review struct {
	ID        uint                        `gorm:"primaryKey;autoIncrement"                 json:"id"`
	ProductID uint                        `gorm:"not null;uniqueIndex:idx_review_product_user" json:"product_id"`
	UserID    uint                        `gorm:"not null;uniqueIndex:idx_review_product_user" json:"user_id"`
	Rating    int                         `gorm:"not null;check:rating BETWEEN 1 AND 5"    json:"rating"`
	Text      string                      `gorm:"size:150;not null"                        json:"text"`
	Images    datatypes.JSONSlice[string] `json:"images"`
	Hidden    bool                        `gorm:"not null;default:false"                   json:"hidden"`
	CreatedAt time.Time                   `json:"created_at"`
}

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusInTransit OrderStatus = "in-transit"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInTransit, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCOD  PaymentMethod = "cod"
	PaymentCard PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentCard
}

type DeliveryDetails struct {
	Street     string `gorm:"not null" json:"street"`
	City       string `gorm:"not null" json:"city"`
	Province   string `gorm:"not null" json:"province"`
	PostalCode string `gorm:"not null" json:"postal_code"`
	Country    string `gorm:"not null" json:"country"`
	Tel        string `gorm:"not null" json:"tel"`
	Tel02      string `json:"tel02,omitempty"`
}

type Order struct {
	ID            uint            `gorm:"primaryKey;autoIncrement"                  json:"id"`
	Code          string          `gorm:"size:32;uniqueIndex;not null"              json:"code"`
	UserID        uint            `gorm:"index;not null"                            json:"user_id"`
	Delivery      DeliveryDetails `gorm:"embedded;embeddedPrefix:delivery_"         json:"delivery"`
	PaymentMethod PaymentMethod   `gorm:"size:8;not null"                           json:"payment_method"`
	Items         []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Status        OrderStatus     `gorm:"size:16;index;not null;default:'pending'"  json:"status"`
	TotalCents    int64           `gorm:"not null"                                  json:"total_cents"`
	CreatedAt     time.Time       `gorm:"autoCreateTime"                            json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime"                            json:"updated_at"`
}

type OrderItem struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"                 json:"id"`
	OrderID     uint   `gorm:"index;not null"                           json:"-"`
	ProductID   uint   `gorm:"index;not null"                           json:"product_id"`
	ProductCode string `gorm:"size:32;not null"                         json:"product_code"`
	Quantity    int64  `gorm:"not null;check:quantity BETWEEN 1 AND 100" json:"quantity"`
	PriceCents  int64  `gorm:"not null"                                 json:"price_cents"`
}

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"not null"                 json:"username"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         string    `gorm:"not null;default:'user'"  json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Counter holds the last issued number of a code sequence.
type Counter struct {
	Name      string `gorm:"primaryKey;size:32"`
	Value     int64  `gorm:"not null;default:0"`
	UpdatedAt time.Time
}
