package middleware

import (
	"context"
	"errors"
	"log/slog"
	"marketplace-gateway/internal/model"
	"marketplace-gateway/internal/repository"
	"marketplace-gateway/internal/service"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	HeaderAPIKey    = "X-API-Key"
	HeaderAPISecret = "X-API-Secret"

	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"

	contextKeyAPIKey = "api_key"
)

// APIKeyFromContext returns the admitted key set by the Admission middleware.
func APIKeyFromContext(c echo.Context) (*model.APIKey, bool) {
	key, ok := c.Get(contextKeyAPIKey).(*model.APIKey)
	return key, ok
}

// Admission validates the presented credential, enforces the tier quota and
// writes one audit row per call regardless of handler outcome.
func Admission(keys service.APIKeyService, usage repository.UsageLogRepository, requireSecret bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			publicID := c.Request().Header.Get(HeaderAPIKey)
			if publicID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing "+HeaderAPIKey+" header")
			}
			secret := c.Request().Header.Get(HeaderAPISecret)

			key, rate, err := keys.Authorize(c.Request().Context(), publicID, secret, requireSecret)
			if err != nil {
				return admissionError(c, err)
			}

			c.Response().Header().Set(HeaderRateLimitLimit, strconv.FormatInt(rate.Limit, 10))
			c.Response().Header().Set(HeaderRateLimitRemaining, strconv.FormatInt(rate.Remaining, 10))
			c.Response().Header().Set(HeaderRateLimitReset, strconv.FormatInt(rate.ResetAt.Unix(), 10))
			c.Set(contextKeyAPIKey, key)

			start := time.Now()
			err = next(c)

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			// audit row survives handler failure and request cancellation
			entry := &model.APIUsageLog{
				APIKeyID:   key.ID,
				Method:     c.Request().Method,
				Path:       c.Path(),
				StatusCode: status,
				LatencyMS:  time.Since(start).Milliseconds(),
				ClientIP:   c.RealIP(),
				UserAgent:  c.Request().UserAgent(),
			}
			if logErr := usage.Create(context.Background(), entry); logErr != nil {
				slog.Error("usage_log_write_failed", "api_key_id", key.ID, "error", logErr)
			}

			return err
		}
	}
}

func admissionError(c echo.Context, err error) error {
	var rle *service.RateLimitError
	if errors.As(err, &rle) {
		c.Response().Header().Set(HeaderRateLimitLimit, strconv.FormatInt(rle.Limit, 10))
		c.Response().Header().Set(HeaderRateLimitRemaining, "0")
		c.Response().Header().Set(HeaderRateLimitReset, strconv.FormatInt(rle.ResetAt.Unix(), 10))

		body := map[string]any{
			"error":     "rate limit exceeded",
			"remaining": 0,
			"reset_at":  rle.ResetAt.UTC().Format(time.RFC3339),
			"tier":      rle.Tier,
		}
		if rle.Tier != service.TierEnterprise {
			body["upgrade"] = "upgrade to a higher tier for a larger daily quota"
		}
		return c.JSON(http.StatusTooManyRequests, body)
	}

	switch {
	case errors.Is(err, service.ErrInvalidAPIKey):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
	case errors.Is(err, service.ErrInvalidSecret):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid api secret")
	case errors.Is(err, service.ErrKeyDeactivated):
		return echo.NewHTTPError(http.StatusForbidden, "api key is deactivated")
	case errors.Is(err, service.ErrKeyExpired):
		return echo.NewHTTPError(http.StatusForbidden, "api key has expired")
	default:
		return err
	}
}

// RequirePermissions rejects admitted keys whose permission set does not
// intersect the required set (admin passes everything). Composable after
// Admission.
func RequirePermissions(perms ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, ok := APIKeyFromContext(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing api key context")
			}
			if !service.HasPermission(key, perms...) {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
			}
			return next(c)
		}
	}
}
