package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/tokens"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func validProduct() transport.CreateProductRequest {
	return transport.CreateProductRequest{
		Name:              "Night cream",
		Description:       "Rich overnight moisturiser",
		Category:          models.CategorySkincare,
		Brand:             "Acme",
		Images:            []string{"https://cdn.example.com/night.png"},
		Keywords:          []string{" Cream", "night", "cream ", ""},
		MarkedPriceCents:  3000,
		SellingPriceCents: 2400,
		StockLeft:         7,
	}
}

func TestCreateProduct(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	for i := 1; i <= 3; i++ {
		p, err := env.Catalog.CreateProduct(ctx, env.Admin, validProduct())
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("PROD%03d", i), p.Code)
		require.True(t, p.Available)
		require.Equal(t, []string{"cream", "night"}, []string(p.Keywords))
	}

	var created int
	for _, e := range env.Pub.all() {
		if ev, ok := e.event.(events.ProductChanged); ok && ev.Type == events.TypeProductCreated {
			created++
		}
	}
	require.Equal(t, 3, created)
	require.Len(t, env.Index.indexed, 3)
	require.Contains(t, env.Index.indexed, "PROD002")
}

func TestCreateProduct_Rejects(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.user("buyer", tokens.RoleUser)

	_, err := env.Catalog.CreateProduct(ctx, buyer, validProduct())
	requireKind(t, err, KindForbidden)

	_, err = env.Catalog.CreateProduct(ctx, Actor{}, validProduct())
	requireKind(t, err, KindUnauthorized)

	cases := map[string]func(req *transport.CreateProductRequest){
		"selling equals marked": func(req *transport.CreateProductRequest) { req.SellingPriceCents = req.MarkedPriceCents },
		"selling above marked":  func(req *transport.CreateProductRequest) { req.SellingPriceCents = req.MarkedPriceCents + 1 },
		"negative price":        func(req *transport.CreateProductRequest) { req.SellingPriceCents = -1 },
		"negative stock":        func(req *transport.CreateProductRequest) { req.StockLeft = -1 },
		"unknown category":      func(req *transport.CreateProductRequest) { req.Category = "snacks" },
		"missing name":          func(req *transport.CreateProductRequest) { req.Name = " " },
		"missing brand":         func(req *transport.CreateProductRequest) { req.Brand = "" },
		"relative image":        func(req *transport.CreateProductRequest) { req.Images = []string{"/img/a.png"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validProduct()
			mutate(&req)
			_, err := env.Catalog.CreateProduct(ctx, env.Admin, req)
			requireKind(t, err, KindValidation)
		})
	}

	// rejected creates never consume a code
	p, err := env.Catalog.CreateProduct(ctx, env.Admin, validProduct())
	require.NoError(t, err)
	require.Equal(t, "PROD001", p.Code)
}

func TestCreateProduct_SeedsFromLatestCode(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	legacy := &models.Product{
		Code: "PROD017", Name: "Legacy", Description: "d", Category: models.CategoryMen,
		Brand: "Old", MarkedPriceCents: 200, SellingPriceCents: 100, StockLeft: 1,
	}
	require.NoError(t, env.Repo.CreateProduct(ctx, legacy))

	p, err := env.Catalog.CreateProduct(ctx, env.Admin, validProduct())
	require.NoError(t, err)
	require.Equal(t, "PROD018", p.Code)
}

func TestCreateProduct_MalformedLatestCode(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	legacy := &models.Product{
		Code: "SKU-1", Name: "Legacy", Description: "d", Category: models.CategoryMen,
		Brand: "Old", MarkedPriceCents: 200, SellingPriceCents: 100, StockLeft: 1,
	}
	require.NoError(t, env.Repo.CreateProduct(ctx, legacy))

	_, err := env.Catalog.CreateProduct(ctx, env.Admin, validProduct())
	requireKind(t, err, KindInternal)
}

func TestPatchProduct(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p, err := env.Catalog.CreateProduct(ctx, env.Admin, validProduct())
	require.NoError(t, err)

	tooHigh := int64(5000)
	_, err = env.Catalog.PatchProduct(ctx, env.Admin, p.Code, transport.PatchProductRequest{SellingPriceCents: &tooHigh})
	requireKind(t, err, KindValidation)

	name := "Night cream deluxe"
	var empty int64
	patched, err := env.Catalog.PatchProduct(ctx, env.Admin, p.Code, transport.PatchProductRequest{
		Name:      &name,
		StockLeft: &empty,
	})
	require.NoError(t, err)
	require.Equal(t, name, patched.Name)
	require.False(t, patched.Available)

	stored, err := env.Repo.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, name, stored.Name)
	require.EqualValues(t, 0, stored.StockLeft)
	require.False(t, stored.Available)
	require.EqualValues(t, 2400, stored.SellingPriceCents)
	require.False(t, env.Index.indexed[p.Code].Available)

	_, err = env.Catalog.PatchProduct(ctx, env.Admin, "PROD404", transport.PatchProductRequest{Name: &name})
	requireKind(t, err, KindNotFound)

	buyer := env.user("buyer", tokens.RoleUser)
	_, err = env.Catalog.PatchProduct(ctx, buyer, p.Code, transport.PatchProductRequest{Name: &name})
	requireKind(t, err, KindForbidden)
}

func TestPatchProduct_KeepsStockSoldDuringEdit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.product("palette", 1800, 5)
	buyer := env.user("buyer", tokens.RoleUser)

	// A sale lands right after the patch has read the product.
	var (
		sold    bool
		sale    *models.Order
		saleErr error
	)
	err := env.Repo.DB.Callback().Query().After("gorm:query").Register("test:sell_after_read", func(db *gorm.DB) {
		if sold || db.Error != nil || db.Statement.Table != "products" {
			return
		}
		sold = true
		sale, saleErr = env.Orders.PlaceOrder(context.Background(), buyer, orderFor(line(p, 3)))
	})
	require.NoError(t, err)

	name := "Eyeshadow palette"
	patched, err := env.Catalog.PatchProduct(ctx, env.Admin, p.Code, transport.PatchProductRequest{Name: &name})
	require.NoError(t, err)
	require.True(t, sold)
	require.NoError(t, saleErr)
	require.NotNil(t, sale)

	require.Equal(t, name, patched.Name)
	require.EqualValues(t, 2, patched.StockLeft)
	require.True(t, patched.Available)

	left, available := env.stock(p.ID)
	require.EqualValues(t, 2, left)
	require.True(t, available)
	require.EqualValues(t, 2, env.Index.indexed[p.Code].StockLeft)
}

func TestPatchProduct_EmptyRequestWritesNothing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.product("liner", 900, 4)
	before := len(env.Pub.all())

	got, err := env.Catalog.PatchProduct(ctx, env.Admin, p.Code, transport.PatchProductRequest{})
	require.NoError(t, err)
	require.Equal(t, "liner", got.Name)
	require.Len(t, env.Pub.all(), before)
}

func TestDeleteProduct(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p, err := env.Catalog.CreateProduct(ctx, env.Admin, validProduct())
	require.NoError(t, err)

	buyer := env.user("buyer", tokens.RoleUser)
	requireKind(t, env.Catalog.DeleteProduct(ctx, buyer, p.Code), KindForbidden)

	require.NoError(t, env.Catalog.DeleteProduct(ctx, env.Admin, p.Code))
	require.Equal(t, []string{p.Code}, env.Index.deleted)

	_, err = env.Catalog.GetProduct(ctx, env.Admin, p.Code)
	requireKind(t, err, KindNotFound)

	requireKind(t, env.Catalog.DeleteProduct(ctx, env.Admin, p.Code), KindNotFound)
}

func TestGetProducts_HidesUnavailableFromCustomers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	inStock := env.product("in-stock", 500, 3)
	env.product("sold-out", 500, 0)

	total, items, err := env.Catalog.GetProducts(ctx, Actor{}, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, inStock.Code, items[0].Code)

	total, items, err = env.Catalog.GetProducts(ctx, env.Admin, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, items, 2)
}
