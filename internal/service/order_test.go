package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/tokens"
	"github.com/stretchr/testify/require"
)

func TestPlaceOrder(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.user("buyer", tokens.RoleUser)
	lipstick := env.product("lipstick", 1500, 5)
	mascara := env.product("mascara", 900, 1)

	order, err := env.Orders.PlaceOrder(ctx, buyer, orderFor(line(lipstick, 2), line(mascara, 1)))
	require.NoError(t, err)
	require.Equal(t, "ORD00001", order.Code)
	require.Equal(t, models.StatusPending, order.Status)
	require.Equal(t, buyer.UserID, order.UserID)
	require.EqualValues(t, 2*1500+900, order.TotalCents)
	require.Len(t, order.Items, 2)
	require.EqualValues(t, 1500, order.Items[0].PriceCents)
	require.Equal(t, lipstick.Code, order.Items[0].ProductCode)

	left, available := env.stock(lipstick.ID)
	require.EqualValues(t, 3, left)
	require.True(t, available)

	left, available = env.stock(mascara.ID)
	require.EqualValues(t, 0, left)
	require.False(t, available)

	var placed *events.OrderPlaced
	for _, p := range env.Pub.all() {
		if ev, ok := p.event.(events.OrderPlaced); ok {
			placed = &ev
			require.Equal(t, events.TopicOrderEvents, p.topic)
			require.Equal(t, "ORD00001", p.key)
		}
	}
	require.NotNil(t, placed)
	require.Len(t, placed.Items, 2)

	indexed := env.Index.indexed[mascara.Code]
	require.False(t, indexed.Available)
}

func TestPlaceOrder_CodesIncrease(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.user("buyer", tokens.RoleUser)
	p := env.product("blush", 700, 10)

	for i := 1; i <= 3; i++ {
		order, err := env.Orders.PlaceOrder(ctx, buyer, orderFor(line(p, 1)))
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("ORD%05d", i), order.Code)
	}
}

func TestPlaceOrder_Validation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.user("buyer", tokens.RoleUser)
	p := env.product("primer", 1200, 10)

	cases := map[string]func(req *transport.PlaceOrderRequest){
		"no items":        func(req *transport.PlaceOrderRequest) { req.Items = nil },
		"zero quantity":   func(req *transport.PlaceOrderRequest) { req.Items[0].Quantity = 0 },
		"too many":        func(req *transport.PlaceOrderRequest) { req.Items[0].Quantity = 101 },
		"no product":      func(req *transport.PlaceOrderRequest) { req.Items[0].ProductID = 0 },
		"bad payment":     func(req *transport.PlaceOrderRequest) { req.PaymentMethod = "cash" },
		"short tel":       func(req *transport.PlaceOrderRequest) { req.Delivery.Tel = "12345" },
		"short tel02":     func(req *transport.PlaceOrderRequest) { req.Delivery.Tel02 = "555" },
		"missing city":    func(req *transport.PlaceOrderRequest) { req.Delivery.City = "  " },
		"missing country": func(req *transport.PlaceOrderRequest) { req.Delivery.Country = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := orderFor(line(p, 1))
			mutate(&req)
			_, err := env.Orders.PlaceOrder(ctx, buyer, req)
			requireKind(t, err, KindValidation)
		})
	}

	left, _ := env.stock(p.ID)
	require.EqualValues(t, 10, left)
}

func TestPlaceOrder_Failures(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.user("buyer", tokens.RoleUser)
	other := env.user("other", tokens.RoleUser)
	plenty := env.product("toner", 800, 10)
	scarce := env.product("essence", 2100, 2)
	soldOut := env.product("ampoule", 3100, 0)

	_, err := env.Orders.PlaceOrder(ctx, Actor{}, orderFor(line(plenty, 1)))
	requireKind(t, err, KindUnauthorized)

	_, err = env.Orders.PlaceOrder(ctx, buyer, orderFor(transport.OrderItemRequest{ProductID: 999, Quantity: 1}))
	requireKind(t, err, KindNotFound)

	_, err = env.Orders.PlaceOrder(ctx, buyer, orderFor(line(soldOut, 1)))
	requireKind(t, err, KindConflict)

	// two lines for the same product are checked against stock together
	_, err = env.Orders.PlaceOrder(ctx, buyer, orderFor(line(plenty, 3), line(scarce, 2), line(scarce, 1)))
	requireKind(t, err, KindConflict)

	left, _ := env.stock(plenty.ID)
	require.EqualValues(t, 10, left)
	left, _ = env.stock(scarce.ID)
	require.EqualValues(t, 2, left)

	req := orderFor(line(plenty, 1))
	req.UserID = other.UserID
	_, err = env.Orders.PlaceOrder(ctx, buyer, req)
	requireKind(t, err, KindForbidden)

	req.UserID = 4242
	_, err = env.Orders.PlaceOrder(ctx, env.Admin, req)
	requireKind(t, err, KindNotFound)

	req.UserID = other.UserID
	order, err := env.Orders.PlaceOrder(ctx, env.Admin, req)
	require.NoError(t, err)
	require.Equal(t, other.UserID, order.UserID)
}

func TestPlaceOrder_ConcurrentLastUnit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.product("highlighter", 1900, 1)

	const buyers = 8
	actors := make([]Actor, buyers)
	for i := range actors {
		actors[i] = env.user(fmt.Sprintf("buyer%d", i), tokens.RoleUser)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		kinds   []Kind
	)
	for _, a := range actors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.Orders.PlaceOrder(ctx, a, orderFor(line(p, 1)))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				success++
				return
			}
			kinds = append(kinds, KindOf(err))
		}()
	}
	wg.Wait()

	require.Equal(t, 1, success)
	for _, k := range kinds {
		require.Equal(t, KindConflict, k)
	}
	left, available := env.stock(p.ID)
	require.EqualValues(t, 0, left)
	require.False(t, available)
}

func TestPlaceOrder_PriceSnapshot(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.user("buyer", tokens.RoleUser)
	p := env.product("cleanser", 1000, 5)

	order, err := env.Orders.PlaceOrder(ctx, buyer, orderFor(line(p, 2)))
	require.NoError(t, err)

	newPrice := int64(1400)
	_, err = env.Catalog.PatchProduct(ctx, env.Admin, p.Code, transport.PatchProductRequest{SellingPriceCents: &newPrice})
	require.NoError(t, err)

	got, err := env.Orders.GetOrder(ctx, buyer, order.Code)
	require.NoError(t, err)
	require.EqualValues(t, 1000, got.Lines[0].PriceCents)
	require.EqualValues(t, 2000, got.TotalCents)
}

func TestPlaceOrder_SeedsCodeFromLatestOrder(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.user("buyer", tokens.RoleUser)
	p := env.product("serum", 2500, 5)

	legacy := &models.Order{
		Code: "ORD00041", UserID: buyer.UserID, Delivery: delivery(),
		PaymentMethod: models.PaymentCard, Status: models.StatusDelivered,
	}
	require.NoError(t, env.Repo.CreateOrder(ctx, legacy))

	order, err := env.Orders.PlaceOrder(ctx, buyer, orderFor(line(p, 1)))
	require.NoError(t, err)
	require.Equal(t, "ORD00042", order.Code)
}

func TestPlaceOrder_MalformedLatestCode(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.user("buyer", tokens.RoleUser)
	p := env.product("mask", 1100, 5)

	legacy := &models.Order{
		Code: "ORDXYZ", UserID: buyer.UserID, Delivery: delivery(),
		PaymentMethod: models.PaymentCard, Status: models.StatusPending,
	}
	require.NoError(t, env.Repo.CreateOrder(ctx, legacy))

	_, err := env.Orders.PlaceOrder(ctx, buyer, orderFor(line(p, 1)))
	requireKind(t, err, KindInternal)

	left, _ := env.stock(p.ID)
	require.EqualValues(t, 5, left)
}

func TestUpdateStatus_OwnerCancelRestocksOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.user("buyer", tokens.RoleUser)
	a := env.product("balm", 600, 4)
	b := env.product("oil", 1300, 3)

	order, err := env.Orders.PlaceOrder(ctx, buyer, orderFor(line(a, 3), line(b, 1), line(a, 1)))
	require.NoError(t, err)
	left, available := env.stock(a.ID)
	require.EqualValues(t, 0, left)
	require.False(t, available)

	cancelled, err := env.Orders.UpdateStatus(ctx, buyer, order.Code, models.StatusCancelled)
	require.NoError(t, err)
	require.Equal(t, models.StatusCancelled, cancelled.Status)

	left, available = env.stock(a.ID)
	require.EqualValues(t, 4, left)
	require.True(t, available)
	left, _ = env.stock(b.ID)
	require.EqualValues(t, 3, left)

	// asking again is a no-op and does not restock twice
	again, err := env.Orders.UpdateStatus(ctx, buyer, order.Code, models.StatusCancelled)
	require.NoError(t, err)
	require.Equal(t, models.StatusCancelled, again.Status)
	left, _ = env.stock(a.ID)
	require.EqualValues(t, 4, left)

	_, err = env.Orders.UpdateStatus(ctx, env.Admin, order.Code, models.StatusPending)
	requireKind(t, err, KindConflict)
	_, err = env.Orders.UpdateStatus(ctx, env.Admin, order.Code, models.StatusCancelled)
	require.NoError(t, err)
	left, _ = env.stock(a.ID)
	require.EqualValues(t, 4, left)

	var changes []events.OrderStatusChanged
	for _, p := range env.Pub.all() {
		if ev, ok := p.event.(events.OrderStatusChanged); ok {
			changes = append(changes, ev)
		}
	}
	require.Len(t, changes, 1)
	require.True(t, changes[0].Restocked)
}

func TestUpdateStatus_Permissions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.user("owner", tokens.RoleUser)
	stranger := env.user("stranger", tokens.RoleUser)
	p := env.product("gloss", 800, 10)

	order, err := env.Orders.PlaceOrder(ctx, owner, orderFor(line(p, 2)))
	require.NoError(t, err)

	_, err = env.Orders.UpdateStatus(ctx, stranger, order.Code, models.StatusCancelled)
	requireKind(t, err, KindForbidden)

	_, err = env.Orders.UpdateStatus(ctx, owner, order.Code, models.StatusConfirmed)
	requireKind(t, err, KindForbidden)

	_, err = env.Orders.UpdateStatus(ctx, owner, order.Code, "shipped")
	requireKind(t, err, KindValidation)

	_, err = env.Orders.UpdateStatus(ctx, owner, "ORD99999", models.StatusCancelled)
	requireKind(t, err, KindNotFound)

	_, err = env.Orders.UpdateStatus(ctx, Actor{}, order.Code, models.StatusCancelled)
	requireKind(t, err, KindUnauthorized)

	confirmed, err := env.Orders.UpdateStatus(ctx, env.Admin, order.Code, models.StatusConfirmed)
	require.NoError(t, err)
	require.Equal(t, models.StatusConfirmed, confirmed.Status)

	_, err = env.Orders.UpdateStatus(ctx, owner, order.Code, models.StatusCancelled)
	requireKind(t, err, KindForbidden)
	left, _ := env.stock(p.ID)
	require.EqualValues(t, 8, left)

	_, err = env.Orders.UpdateStatus(ctx, env.Admin, order.Code, models.StatusCancelled)
	require.NoError(t, err)
	left, _ = env.stock(p.ID)
	require.EqualValues(t, 10, left)
}

func TestUpdateStatus_AdminCancelsDelivered(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.user("owner", tokens.RoleUser)
	p := env.product("palette", 4200, 3)

	order, err := env.Orders.PlaceOrder(ctx, owner, orderFor(line(p, 3)))
	require.NoError(t, err)
	for _, st := range []models.OrderStatus{models.StatusConfirmed, models.StatusInTransit, models.StatusDelivered} {
		_, err = env.Orders.UpdateStatus(ctx, env.Admin, order.Code, st)
		require.NoError(t, err)
	}

	_, err = env.Orders.UpdateStatus(ctx, owner, order.Code, models.StatusCancelled)
	requireKind(t, err, KindForbidden)

	_, err = env.Orders.UpdateStatus(ctx, env.Admin, order.Code, models.StatusCancelled)
	require.NoError(t, err)
	left, available := env.stock(p.ID)
	require.EqualValues(t, 3, left)
	require.True(t, available)
}

func TestGetOrder(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.user("owner", tokens.RoleUser)
	stranger := env.user("stranger", tokens.RoleUser)
	p := env.product("liner", 650, 10)

	order, err := env.Orders.PlaceOrder(ctx, owner, orderFor(line(p, 2)))
	require.NoError(t, err)

	got, err := env.Orders.GetOrder(ctx, owner, order.Code)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	require.Equal(t, "liner", got.Lines[0].Name)
	require.Equal(t, "Acme", got.Lines[0].Brand)
	require.Equal(t, "https://cdn.example.com/liner.png", got.Lines[0].Image)
	require.Equal(t, "owner", got.Username)
	require.Equal(t, "owner@example.com", got.Email)

	asAdmin, err := env.Orders.GetOrder(ctx, env.Admin, order.Code)
	require.NoError(t, err)
	require.Equal(t, "owner", asAdmin.Username)

	_, err = env.Orders.GetOrder(ctx, stranger, order.Code)
	requireKind(t, err, KindForbidden)

	_, err = env.Orders.GetOrder(ctx, owner, "ORD00404")
	requireKind(t, err, KindNotFound)
}

func TestListOrders(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.user("owner", tokens.RoleUser)
	p := env.product("brush", 300, 10)

	first, err := env.Orders.PlaceOrder(ctx, owner, orderFor(line(p, 1)))
	require.NoError(t, err)
	second, err := env.Orders.PlaceOrder(ctx, owner, orderFor(line(p, 1)))
	require.NoError(t, err)
	_, err = env.Orders.UpdateStatus(ctx, env.Admin, second.Code, models.StatusConfirmed)
	require.NoError(t, err)

	total, orders, err := env.Orders.ListOrders(ctx, env.Admin, models.StatusPending, "", 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, first.Code, orders[0].Code)

	_, _, err = env.Orders.ListOrders(ctx, owner, models.StatusPending, "", 0, 10)
	requireKind(t, err, KindForbidden)

	_, _, err = env.Orders.ListOrders(ctx, env.Admin, "lost", "", 0, 10)
	requireKind(t, err, KindValidation)

	mine, err := env.Orders.ListUserOrders(ctx, owner, owner.UserID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, second.Code, mine[0].Code)
	for _, o := range mine {
		require.Equal(t, "owner", o.Username)
		require.Equal(t, "owner@example.com", o.Email)
		require.Len(t, o.Lines, 1)
		require.Equal(t, "brush", o.Lines[0].Name)
		require.Equal(t, "https://cdn.example.com/brush.png", o.Lines[0].Image)
	}

	byAdmin, err := env.Orders.ListUserOrders(ctx, env.Admin, owner.UserID)
	require.NoError(t, err)
	require.Len(t, byAdmin, 2)
	require.Equal(t, "owner", byAdmin[1].Username)

	_, err = env.Orders.ListUserOrders(ctx, owner, env.Admin.UserID)
	requireKind(t, err, KindForbidden)

	_, err = env.Orders.ListUserOrders(ctx, env.Admin, 4242)
	requireKind(t, err, KindNotFound)
}
