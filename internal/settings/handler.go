package settings

import (
	"errors"
	"net/http"

	"innata/internal/api"
	"innata/internal/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	provider *Provider
	repo     Repository
}

func NewHandler(provider *Provider, repo Repository) *Handler {
	return &Handler{provider: provider, repo: repo}
}

// List godoc
// @Summary      List booking settings
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /admin/settings [get]
func (h *Handler) List(c *gin.Context) {
	rows, err := h.repo.All(c.Request.Context())
	if err != nil {
		logger.Error("failed to list settings", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stored":    rows,
		"effective": h.provider.Values(c.Request.Context()),
	})
}

// Update godoc
// @Summary      Update a booking setting
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        key   path  string                true  "Setting key"
// @Param        body  body  UpdateSettingRequest  true  "New value"
// @Success      200  {object}  Values
// @Failure      400  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /admin/settings/{key} [put]
func (h *Handler) Update(c *gin.Context) {
	var req UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "value must be a positive integer", Reason: string(api.ReasonInvalidInput)})
		return
	}

	key := c.Param("key")
	if err := h.provider.Set(c.Request.Context(), key, req.Value); err != nil {
		if errors.Is(err, ErrSettingNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "unknown setting " + key})
			return
		}
		logger.Error("failed to update setting", "key", key, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to update setting"})
		return
	}

	c.JSON(http.StatusOK, h.provider.Values(c.Request.Context()))
}
