package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/labstack/echo/v4"
)

var kindStatus = map[service.Kind]int{
	service.KindValidation:   http.StatusBadRequest,
	service.KindUnauthorized: http.StatusUnauthorized,
	service.KindForbidden:    http.StatusForbidden,
	service.KindNotFound:     http.StatusNotFound,
	service.KindConflict:     http.StatusConflict,
	service.KindInternal:     http.StatusInternalServerError,
}

func statusKind(code int) service.Kind {
	for k, c := range kindStatus {
		if c == code {
			return k
		}
	}
	if code < http.StatusInternalServerError {
		return service.KindValidation
	}
	return service.KindInternal
}

// writeError logs a failed call and turns err into the JSON error body.
func writeError(l *slog.Logger, event string, err error) error {
	kind := service.KindOf(err)
	code := kindStatus[kind]
	msg := err.Error()

	if kind == service.KindInternal {
		msg = "internal error"
		l.Error(event, "status", code, "reason", msg, "error", err)
	} else {
		l.Warn(event, "status", code, "reason", kind, "error", err)
	}
	return echo.NewHTTPError(code, transport.ErrorResponse{Kind: string(kind), Message: msg})
}

func badRequest(l *slog.Logger, event, reason string, err error) error {
	l.Warn(event, "status", http.StatusBadRequest, "reason", reason, "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, transport.ErrorResponse{
		Kind:    string(service.KindValidation),
		Message: reason,
	})
}

// errorHandler gives errors raised outside the handlers, such as missing
// tokens or unknown routes, the same body as handler errors.
func errorHandler(next echo.HTTPErrorHandler) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var he *echo.HTTPError
		if !errors.As(err, &he) {
			err = echo.NewHTTPError(http.StatusInternalServerError, transport.ErrorResponse{
				Kind:    string(service.KindInternal),
				Message: "internal error",
			})
		} else if msg, ok := he.Message.(string); ok {
			err = echo.NewHTTPError(he.Code, transport.ErrorResponse{
				Kind:    string(statusKind(he.Code)),
				Message: msg,
			})
		}
		next(err, c)
	}
}

func actorFrom(c echo.Context) service.Actor {
	id, _ := c.Get(middleware.ContextUserID).(uint)
	role, _ := c.Get(middleware.ContextRole).(string)
	return service.Actor{UserID: id, Role: role}
}
