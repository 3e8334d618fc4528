package service

import (
	"context"
	"sync"
	"testing"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/tokens"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type published struct {
	topic string
	key   string
	event any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (f *fakePublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{topic: topic, key: key, event: event})
	return nil
}

func (f *fakePublisher) all() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.events...)
}

type fakeIndexer struct {
	mu      sync.Mutex
	indexed map[string]models.Product
	deleted []string
}

func (f *fakeIndexer) IndexProduct(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexed == nil {
		f.indexed = map[string]models.Product{}
	}
	f.indexed[p.Code] = *p
	return nil
}

func (f *fakeIndexer) DeleteProduct(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, code)
	return nil
}

type testEnv struct {
	T       *testing.T
	Repo    *repo.GormRepo
	Orders  *OrderService
	Reviews *ReviewService
	Catalog *CatalogService
	Pub     *fakePublisher
	Index   *fakeIndexer

	Admin Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repo.Migrate(db))

	r := &repo.GormRepo{DB: db}
	pub := &fakePublisher{}
	idx := &fakeIndexer{}
	env := &testEnv{
		T:       t,
		Repo:    r,
		Orders:  &OrderService{Repo: r, Publisher: pub, Indexer: idx},
		Reviews: &ReviewService{Repo: r, Publisher: pub, Indexer: idx},
		Catalog: &CatalogService{Repo: r, Publisher: pub, Indexer: idx},
		Pub:     pub,
		Index:   idx,
	}
	env.Admin = env.user("admin", tokens.RoleAdmin)
	return env
}

func (env *testEnv) user(name, role string) Actor {
	env.T.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", PasswordHash: "x", Role: role}
	require.NoError(env.T, env.Repo.DB.Create(u).Error)
	return Actor{UserID: u.ID, Role: role}
}

func (env *testEnv) product(name string, selling, stock int64) *models.Product {
	env.T.Helper()
	p, err := env.Catalog.CreateProduct(context.Background(), env.Admin, transport.CreateProductRequest{
		Name:              name,
		Description:       name + " description",
		Category:          models.CategoryMakeup,
		Brand:             "Acme",
		Images:            []string{"https://cdn.example.com/" + name + ".png"},
		MarkedPriceCents:  selling + 500,
		SellingPriceCents: selling,
		StockLeft:         stock,
	})
	require.NoError(env.T, err)
	return p
}

func (env *testEnv) stock(id uint) (int64, bool) {
	env.T.Helper()
	p, err := env.Repo.GetProductByID(context.Background(), id)
	require.NoError(env.T, err)
	return p.StockLeft, p.Available
}

func delivery() models.DeliveryDetails {
	return models.DeliveryDetails{
		Street:     "12 King St",
		City:       "Toronto",
		Province:   "ON",
		PostalCode: "M5H1A1",
		Country:    "Canada",
		Tel:        "4165550100",
	}
}

func orderFor(items ...transport.OrderItemRequest) transport.PlaceOrderRequest {
	return transport.PlaceOrderRequest{
		Delivery:      delivery(),
		PaymentMethod: models.PaymentCOD,
		Items:         items,
	}
}

func line(p *models.Product, qty int64) transport.OrderItemRequest {
	return transport.OrderItemRequest{ProductID: p.ID, Quantity: qty}
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "error: %v", err)
}
