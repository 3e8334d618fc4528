package httpserver

import (
	"net/http"
	"strconv"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/labstack/echo/v4"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) PlaceOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.place_order")

	var req transport.PlaceOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "place_order_error", "invalid body", err)
	}

	order, err := h.Svc.PlaceOrder(ctx, actorFrom(c), req)
	if err != nil {
		return writeError(l, "place_order_error", err)
	}

	l.Info("place_order_success", "code", order.Code)
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order")

	order, err := h.Svc.GetOrder(ctx, actorFrom(c), c.Param("code"))
	if err != nil {
		return writeError(l, "get_order_error", err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_orders")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	status := models.OrderStatus(c.Param("status"))
	total, orders, err := h.Svc.ListOrders(ctx, actorFrom(c), status, c.QueryParam("query"), offset, limit)
	if err != nil {
		return writeError(l, "list_orders_error", err)
	}

	return c.JSON(http.StatusOK, transport.Page[models.Order]{
		Data: orders,
		Meta: util.Meta(page, limit, total),
	})
}

func (h *OrderHTTP) ListUserOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_user_orders")

	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil || userID == 0 {
		return badRequest(l, "list_user_orders_error", "userId must be a positive integer", err)
	}

	orders, err := h.Svc.ListUserOrders(ctx, actorFrom(c), uint(userID))
	if err != nil {
		return writeError(l, "list_user_orders_error", err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	var req transport.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_status_error", "invalid body", err)
	}

	order, err := h.Svc.UpdateStatus(ctx, actorFrom(c), c.Param("code"), req.Status)
	if err != nil {
		return writeError(l, "update_status_error", err)
	}

	l.Info("update_status_success", "code", order.Code, "status", order.Status)
	return c.JSON(http.StatusOK, order)
}
