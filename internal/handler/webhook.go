package handler

import (
	"errors"
	"marketplace-gateway/internal/dto"
	"marketplace-gateway/internal/middleware"
	"marketplace-gateway/internal/service"
	"marketplace-gateway/internal/webhook"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type WebhookHandler struct {
	webhookService service.WebhookService
	keyService     service.APIKeyService
	dispatcher     *webhook.Dispatcher
}

func NewWebhookHandler(webhookService service.WebhookService, keyService service.APIKeyService, dispatcher *webhook.Dispatcher) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		keyService:     keyService,
		dispatcher:     dispatcher,
	}
}

// ownedKeyID resolves the :publicID route param against the portal account.
func (h *WebhookHandler) ownedKeyID(c echo.Context) (uint, error) {
	accountID := middleware.AccountIDFromContext(c)
	key, err := h.keyService.Resolve(c.Request().Context(), accountID, c.Param("publicID"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusNotFound, "api key not found")
	}
	return key.ID, nil
}

func (h *WebhookHandler) Register(c echo.Context) error {
	keyID, err := h.ownedKeyID(c)
	if err != nil {
		return err
	}

	var req dto.RegisterWebhookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	created, err := h.webhookService.Register(c.Request().Context(), keyID, &req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *WebhookHandler) List(c echo.Context) error {
	keyID, err := h.ownedKeyID(c)
	if err != nil {
		return err
	}

	webhooks, err := h.webhookService.List(c.Request().Context(), keyID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, webhooks)
}

func (h *WebhookHandler) setActive(c echo.Context, active bool) error {
	keyID, err := h.ownedKeyID(c)
	if err != nil {
		return err
	}

	webhookID, err := strconv.ParseUint(c.Param("webhookID"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid webhook id")
	}

	if active {
		err = h.webhookService.Reactivate(c.Request().Context(), keyID, uint(webhookID))
	} else {
		err = h.webhookService.Deactivate(c.Request().Context(), keyID, uint(webhookID))
	}
	if err != nil {
		if errors.Is(err, service.ErrWebhookNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "webhook not found")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *WebhookHandler) Deactivate(c echo.Context) error {
	return h.setActive(c, false)
}

func (h *WebhookHandler) Reactivate(c echo.Context) error {
	return h.setActive(c, true)
}

func (h *WebhookHandler) Deliveries(c echo.Context) error {
	keyID, err := h.ownedKeyID(c)
	if err != nil {
		return err
	}

	webhookID, err := strconv.ParseUint(c.Param("webhookID"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid webhook id")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	deliveries, err := h.webhookService.Deliveries(c.Request().Context(), keyID, uint(webhookID), limit, offset)
	if err != nil {
		if errors.Is(err, service.ErrWebhookNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "webhook not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, deliveries)
}

// EmitTestEvent lets an integrator with the webhook permission trigger a
// sample dispatch against their endpoints.
func (h *WebhookHandler) EmitTestEvent(c echo.Context) error {
	var req dto.TestEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if req.Event == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "event is required")
	}

	h.dispatcher.Dispatch(req.Event, req.Data)
	return c.JSON(http.StatusAccepted, map[string]string{"status": "dispatched"})
}
