package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/todoapi/auth"
	"github.com/padraicbc/todoapi/store"
)

// UsernameKey is the echo.Context key holding the authenticated username.
const UsernameKey = "username"

// HTTPError maps an authentication error to a status with a fixed message.
// The wrapped cause is kept on Internal for logging only.
func HTTPError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	switch {
	case errors.Is(err, auth.ErrMalformedCredentials), errors.Is(err, auth.ErrInvalidCredentials):
		he = echo.NewHTTPError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	case errors.Is(err, auth.ErrInvalidSession):
		he = echo.NewHTTPError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	case errors.Is(err, auth.ErrMissingCredentials), errors.Is(err, auth.ErrInvalidRegistration),
		errors.Is(err, store.ErrDuplicateUser):
		he = echo.NewHTTPError(http.StatusBadRequest, http.StatusText(http.StatusBadRequest))
	case errors.Is(err, store.ErrStoreUnavailable):
		he = echo.NewHTTPError(http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable))
	default:
		he = echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
	return he.SetInternal(err)
}

// Session returns an Echo middleware that requires a valid bearer session
// token in the Authorization header. On success the username is stored on
// the echo context under UsernameKey and on the request context.
func Session(a *auth.Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			username, err := a.Authorize(req.Context(), req.Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return HTTPError(err)
			}

			c.Set(UsernameKey, username)
			c.SetRequest(req.WithContext(auth.WithUsername(req.Context(), username)))
			return next(c)
		}
	}
}

// Username returns the username set by Session.
func Username(c echo.Context) string {
	u, _ := c.Get(UsernameKey).(string)
	return u
}
