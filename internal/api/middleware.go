package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/erazemk/vitrina/internal/media"
	"github.com/erazemk/vitrina/internal/metrics"
	"github.com/erazemk/vitrina/internal/model"
	"github.com/erazemk/vitrina/internal/session"
)

const userKey = "user"

// LoginPath is where clients are sent when a session is required.
const LoginPath = "/admin/login"

// RequireSession rejects requests without a live admin session. The
// session's admin is stored in the echo context.
func RequireSession(sessions *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := sessions.Current(c.Request())
			if user == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error":    "authentication required",
					"redirect": LoginPath,
				})
			}
			c.Set(userKey, user)
			return next(c)
		}
	}
}

// currentUser returns the admin stored by RequireSession.
func currentUser(c echo.Context) *model.SessionUser {
	user, _ := c.Get(userKey).(*model.SessionUser)
	return user
}

// touchSession pushes the expiry of a live session forward.
func touchSession(sessions *session.Manager, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := sessions.Touch(c.Response(), c.Request()); err != nil {
				log.Warn().Err(err).Msg("session refresh failed")
			}
			return next(c)
		}
	}
}

// withBaseURL attaches the base used to expand stored image references:
// the configured public URL, or the scheme and host of the request.
func withBaseURL(publicURL string) echo.MiddlewareFunc {
	publicURL = strings.TrimRight(publicURL, "/")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			base := publicURL
			if base == "" {
				base = c.Scheme() + "://" + c.Request().Host
			}
			r := c.Request()
			c.SetRequest(r.WithContext(media.WithBaseURL(r.Context(), base)))
			return next(c)
		}
	}
}

// requestLogger logs method, path, status, duration and request id.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Status >= http.StatusInternalServerError {
				event = log.Error()
			}
			event.
				Str("method", v.Method).
				Str("path", v.URI).
				Int("status", v.Status).
				Dur("duration", v.Latency.Round(time.Millisecond)).
				Str("request_id", v.RequestID).
				Str("remote", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}

// recordMetrics counts requests and their latency by matched route.
func recordMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = errorStatus(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method

			metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
