package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/padraicbc/todoapi/auth"
	mw "github.com/padraicbc/todoapi/middleware"
)

// maxRegisterBody caps the registration payload.
const maxRegisterBody = 4 << 10

// Login exchanges the credential blob in the Authorization header for a
// session token, returned as the plain-text response body.
func (h *Handler) Login(c echo.Context) error {
	req := c.Request()
	token, err := h.auth.Login(req.Context(), req.Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return mw.HTTPError(err)
	}
	return c.String(http.StatusOK, token)
}

// Register creates an account from a JSON {username, password} body.
func (h *Handler) Register(c echo.Context) error {
	req := c.Request()
	if ct := req.Header.Get(echo.HeaderContentType); !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
		return echo.NewHTTPError(http.StatusBadRequest, "expected application/json body")
	}

	var body auth.RegisterRequest
	dec := json.NewDecoder(io.LimitReader(req.Body, maxRegisterBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		h.log.Debug("bad register body", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if dec.More() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.auth.Register(req.Context(), body); err != nil {
		return mw.HTTPError(err)
	}
	return c.NoContent(http.StatusOK)
}

// Me returns the authenticated username.
func (h *Handler) Me(c echo.Context) error {
	username, ok := auth.UsernameFromContext(c.Request().Context())
	if !ok {
		return mw.HTTPError(errors.New("me: no username on request context"))
	}
	return c.JSON(http.StatusOK, map[string]string{"username": username})
}
