package handler

import (
	"errors"
	"marketplace-gateway/internal/dto"
	"marketplace-gateway/internal/provider"
	"marketplace-gateway/internal/service"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
	router          *provider.Router
}

func NewCheckoutHandler(checkoutService service.CheckoutService, router *provider.Router) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		router:          router,
	}
}

func (h *CheckoutHandler) CreatePayment(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	result, err := h.checkoutService.CreatePayment(ctx, &req)
	if err != nil {
		if errors.Is(err, provider.ErrNoProviderConfigured) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "no payment provider configured")
		}
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func (h *CheckoutHandler) Capture(c echo.Context) error {
	ctx := c.Request().Context()
	intentID := c.Param("intentID")
	providerKey := c.QueryParam("provider")

	if err := h.checkoutService.Capture(ctx, intentID, providerKey); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "captured"})
}

func (h *CheckoutHandler) Cancel(c echo.Context) error {
	ctx := c.Request().Context()
	intentID := c.Param("intentID")
	providerKey := c.QueryParam("provider")

	if err := h.checkoutService.Cancel(ctx, intentID, providerKey); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *CheckoutHandler) Refund(c echo.Context) error {
	ctx := c.Request().Context()
	intentID := c.Param("intentID")
	providerKey := c.QueryParam("provider")

	var req dto.RefundRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	if err := h.checkoutService.Refund(ctx, intentID, providerKey, req.Amount); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "refunded"})
}

func (h *CheckoutHandler) Status(c echo.Context) error {
	ctx := c.Request().Context()
	intentID := c.Param("intentID")
	providerKey := c.QueryParam("provider")

	status, err := h.checkoutService.Status(ctx, intentID, providerKey)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"intent_id": intentID, "status": status})
}

// ProviderDispute is the entry point for asynchronous backend dispute callbacks.
func (h *CheckoutHandler) ProviderDispute(c echo.Context) error {
	ctx := c.Request().Context()
	providerKey := c.Param("provider")

	var payload map[string]any
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid dispute payload")
	}

	outcome, err := h.checkoutService.HandleProviderDispute(ctx, providerKey, payload)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, outcome)
}

func (h *CheckoutHandler) FeeComparison(c echo.Context) error {
	amount, err := decimal.NewFromString(c.QueryParam("amount"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid amount")
	}
	return c.JSON(http.StatusOK, h.router.FeeComparison(amount))
}

func (h *CheckoutHandler) ProviderStatuses(c echo.Context) error {
	return c.JSON(http.StatusOK, h.router.ProviderStatuses())
}

func (h *CheckoutHandler) RoutingStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.router.Stats())
}

func (h *CheckoutHandler) GetRoutingConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, h.router.Config())
}

func (h *CheckoutHandler) UpdateRoutingConfig(c echo.Context) error {
	var cfg provider.RoutingConfig
	if err := c.Bind(&cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid routing config")
	}

	h.router.SetConfig(cfg)
	return c.JSON(http.StatusOK, h.router.Config())
}
