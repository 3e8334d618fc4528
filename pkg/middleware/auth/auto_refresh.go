package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/pkg/authclient"
	jwthelp "github.com/Skotchmaster/storefront/pkg/jwt"
	"github.com/Skotchmaster/storefront/pkg/tokens"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

type AutoRefreshMiddleware struct {
	JWTSecret  []byte
	AuthClient *authclient.Client
}

func NewAutoRefreshMiddleware(secret []byte, authClient *authclient.Client) *AutoRefreshMiddleware {
	return &AutoRefreshMiddleware{
		JWTSecret:  secret,
		AuthClient: authClient,
	}
}

type ValidatorFunc func(claims *tokens.AccessClaims) error

func (m *AutoRefreshMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireAuthWithValidator(next, nil)
}

func (m *AutoRefreshMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireAuthWithValidator(next, func(claims *tokens.AccessClaims) error {
		if claims.Role != tokens.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return nil
	})
}

// OptionalAuth attaches the caller identity when a valid token is present
// and lets anonymous requests through untouched. It never refreshes.
func (m *AutoRefreshMiddleware) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, _ := accessTokenFrom(c)
		if raw == "" {
			return next(c)
		}
		claims, err := tokens.AccessClaimsFromToken(raw, m.JWTSecret)
		if err == nil {
			_ = setUserContext(c, claims)
		}
		return next(c)
	}
}

func (m *AutoRefreshMiddleware) requireAuthWithValidator(next echo.HandlerFunc, validator ValidatorFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, fromCookie := accessTokenFrom(c)
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := tokens.AccessClaimsFromToken(raw, m.JWTSecret)
		if err == nil && claims != nil {
			if validator != nil {
				if validationErr := validator(claims); validationErr != nil {
					return validationErr
				}
			}
			if err := setUserContext(c, claims); err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
			}
			return next(c)
		}

		// bearer tokens are never refreshed, only cookie sessions are
		if !errors.Is(err, jwt.ErrTokenExpired) || !fromCookie || m.AuthClient == nil {
			if fromCookie {
				clearAuthCookies(c)
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}

		refreshCookie, rErr := c.Cookie("refreshToken")
		if rErr != nil || refreshCookie.Value == "" {
			clearAuthCookies(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
		}

		refreshResp, refErr := m.AuthClient.RefreshTokens(
			c.Request().Context(),
			refreshCookie.Value,
			raw,
		)
		if refErr != nil {
			clearAuthCookies(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "refresh failed: "+refErr.Error())
		}

		c.SetCookie(jwthelp.CreateCookie(
			"accessToken",
			refreshResp.AccessToken,
			"/",
			time.Unix(refreshResp.AccessExp, 0),
		))
		c.SetCookie(jwthelp.CreateCookie(
			"refreshToken",
			refreshResp.RefreshToken,
			"/",
			time.Unix(refreshResp.RefreshExp, 0),
		))

		newClaims, pErr := tokens.AccessClaimsFromToken(refreshResp.AccessToken, m.JWTSecret)
		if pErr != nil || newClaims == nil {
			clearAuthCookies(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "new access token invalid")
		}

		if validator != nil {
			if validationErr := validator(newClaims); validationErr != nil {
				return validationErr
			}
		}

		if err := setUserContext(c, newClaims); err != nil {
			clearAuthCookies(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
		}
		return next(c)
	}
}

// accessTokenFrom prefers the accessToken cookie and falls back to a bearer header.
func accessTokenFrom(c echo.Context) (string, bool) {
	if ck, err := c.Cookie("accessToken"); err == nil && ck.Value != "" {
		return ck.Value, true
	}
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(after), false
	}
	return "", false
}

func clearAuthCookies(c echo.Context) {
	c.SetCookie(jwthelp.DeleteCookie("accessToken", "/"))
	c.SetCookie(jwthelp.DeleteCookie("refreshToken", "/"))
}

func setUserContext(c echo.Context, claims *tokens.AccessClaims) error {
	id, err := claims.UserID()
	if err != nil {
		return err
	}
	c.Set(ContextUserID, id)
	c.Set(ContextRole, claims.Role)
	return nil
}
