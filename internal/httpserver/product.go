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

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_product")

	product, err := h.Svc.GetProduct(ctx, actorFrom(c), c.Param("code"))
	if err != nil {
		return writeError(l, "get_product_error", err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_products")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.GetProducts(ctx, actorFrom(c), offset, limit)
	if err != nil {
		return writeError(l, "get_products_error", err)
	}

	return c.JSON(http.StatusOK, transport.Page[models.Product]{
		Data: items,
		Meta: util.Meta(page, limit, total),
	})
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create_product")

	var req transport.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_product_error", "invalid body", err)
	}

	product, err := h.Svc.CreateProduct(ctx, actorFrom(c), req)
	if err != nil {
		return writeError(l, "create_product_error", err)
	}

	l.Info("create_product_success", "code", product.Code)
	return c.JSON(http.StatusCreated, product)
}

func (h *CatalogHTTP) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.patch_product")

	var req transport.PatchProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "patch_product_error", "invalid body", err)
	}

	product, err := h.Svc.PatchProduct(ctx, actorFrom(c), c.Param("code"), req)
	if err != nil {
		return writeError(l, "patch_product_error", err)
	}

	l.Info("patch_product_success", "code", product.Code)
	return c.JSON(http.StatusOK, product)
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete_product")

	code := c.Param("code")
	if err := h.Svc.DeleteProduct(ctx, actorFrom(c), code); err != nil {
		return writeError(l, "delete_product_error", err)
	}

	l.Info("delete_product_success", "code", code)
	return c.NoContent(http.StatusNoContent)
}

type ReviewHTTP struct {
	Svc *service.ReviewService
}

func (h *ReviewHTTP) AddReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.add_review")

	var req transport.AddReviewRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "add_review_error", "invalid body", err)
	}

	product, err := h.Svc.AddReview(ctx, actorFrom(c), c.Param("code"), req)
	if err != nil {
		return writeError(l, "add_review_error", err)
	}

	l.Info("add_review_success", "code", product.Code)
	return c.JSON(http.StatusCreated, product)
}

func (h *ReviewHTTP) HideReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.hide_review")

	reviewID, err := strconv.ParseUint(c.Param("reviewId"), 10, 64)
	if err != nil || reviewID == 0 {
		return badRequest(l, "hide_review_error", "reviewId must be a positive integer", err)
	}

	var req transport.HideReviewRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "hide_review_error", "invalid body", err)
	}

	review, err := h.Svc.HideReview(ctx, actorFrom(c), c.Param("code"), uint(reviewID), req.Hidden)
	if err != nil {
		return writeError(l, "hide_review_error", err)
	}
	return c.JSON(http.StatusOK, review)
}
