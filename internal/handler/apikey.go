package handler

import (
	"errors"
	"marketplace-gateway/internal/dto"
	"marketplace-gateway/internal/middleware"
	"marketplace-gateway/internal/service"
	"net/http"

	"github.com/labstack/echo/v4"
)

type APIKeyHandler struct {
	keyService service.APIKeyService
}

func NewAPIKeyHandler(keyService service.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{keyService: keyService}
}

func (h *APIKeyHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	accountID := middleware.AccountIDFromContext(c)

	var req dto.CreateKeyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	created, err := h.keyService.Create(ctx, accountID, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTier) {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown tier")
		}
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

func (h *APIKeyHandler) Rotate(c echo.Context) error {
	ctx := c.Request().Context()
	accountID := middleware.AccountIDFromContext(c)
	publicID := c.Param("publicID")

	rotated, err := h.keyService.Rotate(ctx, accountID, publicID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAPIKey) {
			return echo.NewHTTPError(http.StatusNotFound, "api key not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, rotated)
}

func (h *APIKeyHandler) Deactivate(c echo.Context) error {
	ctx := c.Request().Context()
	accountID := middleware.AccountIDFromContext(c)
	publicID := c.Param("publicID")

	if err := h.keyService.Deactivate(ctx, accountID, publicID); err != nil {
		if errors.Is(err, service.ErrInvalidAPIKey) {
			return echo.NewHTTPError(http.StatusNotFound, "api key not found")
		}
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *APIKeyHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	accountID := middleware.AccountIDFromContext(c)

	keys, err := h.keyService.List(ctx, accountID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, keys)
}
