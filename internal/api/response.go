package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/erazemk/vitrina/internal/service"
)

// errorResponse is the error envelope for all API errors.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// statusFor maps a service error kind to its HTTP status.
func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindUnauthorized, service.KindInvalidCredentials:
		return http.StatusUnauthorized
	case service.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorStatus returns the status an error will be rendered with.
func errorStatus(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return statusFor(service.KindOf(err))
}

// NewHTTPErrorHandler renders every error as {"error": msg}. Store and
// internal failures are logged and shown generically; details are added
// only in development.
func NewHTTPErrorHandler(log zerolog.Logger, development bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, resp := resolveError(err, log, c, development)
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, resp)
		}
		if err != nil {
			log.Error().Err(err).Msg("writing error response")
		}
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context, development bool) (int, errorResponse) {
	// Echo's own errors (unknown route, bad method, body limits).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code == http.StatusNotFound && errors.Is(err, echo.ErrNotFound) {
			return http.StatusNotFound, errorResponse{Error: "route not found"}
		}
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	var se *service.Error
	if errors.As(err, &se) {
		code := statusFor(se.Kind)
		if code < http.StatusInternalServerError {
			return code, errorResponse{Error: se.Msg}
		}
		log.Error().
			Err(err).
			Str("kind", string(se.Kind)).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("request failed")
		resp := errorResponse{Error: se.Msg}
		if development && se.Err != nil {
			resp.Details = se.Err.Error()
		}
		return code, resp
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	resp := errorResponse{Error: "internal server error"}
	if development {
		resp.Details = err.Error()
	}
	return http.StatusInternalServerError, resp
}
