package middleware

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/agentcache/internal/errors"
	"github.com/hrygo/agentcache/internal/observability"
)

// RequestContext attaches an observability.RequestContext to every request,
// echoes its id in X-Request-ID and logs the request once it completes.
func RequestContext(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rc := observability.NewRequestContextWithID(logger, req.Header.Get(echo.HeaderXRequestID), "")
			c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), rc)))
			c.Response().Header().Set(echo.HeaderXRequestID, rc.RequestID)

			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = errors.HTTPStatus(errors.GetCodeFromError(err, errors.ErrCodeInternal))
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", c.Path()),
				slog.Int("status", status),
				slog.Int64(observability.LogFieldDuration, rc.DurationMs()),
			}
			if err != nil && status >= http.StatusInternalServerError {
				rc.Error("request failed", err, attrs...)
			} else {
				rc.Debug("request completed", attrs...)
			}
			return err
		}
	}
}
