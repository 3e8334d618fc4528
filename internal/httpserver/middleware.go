package httpserver

import (
	"log/slog"

	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"
)

// Common is the middleware chain every request goes through.
func Common(logger *slog.Logger) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		ecM.Recover(),
		ecM.RequestID(),
		loggingmw.RequestLogger(logger),
		ecM.Secure(),
		ecM.CORS(),
	}
}
