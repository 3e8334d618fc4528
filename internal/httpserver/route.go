package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/authclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/labstack/echo/v4"
)

type Deps struct {
	OrderHandler   *OrderHTTP
	CatalogHandler *CatalogHTTP
	ReviewHandler  *ReviewHTTP
	Repo           *repo.GormRepo
	JWTSecret      []byte
	AuthClient     *authclient.Client
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = errorHandler(e.DefaultHTTPErrorHandler)

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if err := d.Repo.Ping(c.Request().Context()); err != nil {
			logging.FromContext(c.Request().Context()).Error("ready_check_failed", "error", err)
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	authMW := middleware.NewAutoRefreshMiddleware(d.JWTSecret, d.AuthClient)

	orders := e.Group("/orders")
	orders.POST("", d.OrderHandler.PlaceOrder, authMW.RequireAuth)
	orders.GET("/status/:status", d.OrderHandler.ListOrders, authMW.RequireAdmin)
	orders.GET("/users/:userId", d.OrderHandler.ListUserOrders, authMW.RequireAuth)
	orders.GET("/:code", d.OrderHandler.GetOrder, authMW.RequireAuth)
	orders.PATCH("/:code/status", d.OrderHandler.UpdateStatus, authMW.RequireAuth)

	products := e.Group("/products")
	products.GET("", d.CatalogHandler.GetProducts, authMW.OptionalAuth)
	products.GET("/:code", d.CatalogHandler.GetProduct, authMW.OptionalAuth)
	products.POST("/:code/reviews", d.ReviewHandler.AddReview, authMW.RequireAuth)

	admin := products.Group("", authMW.RequireAdmin)
	admin.POST("", d.CatalogHandler.CreateProduct)
	admin.PATCH("/:code", d.CatalogHandler.PatchProduct)
	admin.DELETE("/:code", d.CatalogHandler.DeleteProduct)
	admin.PATCH("/:code/reviews/:reviewId", d.ReviewHandler.HideReview)
}
