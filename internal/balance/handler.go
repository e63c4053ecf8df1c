package balance

import (
	"net/http"
	"strconv"

	"innata/internal/api"
	"innata/internal/auth"
	"innata/internal/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// GetBalance godoc
// @Summary      Current class balance
// @Tags         balance
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  AccountBalance
// @Router       /me/balance [get]
func (h *Handler) GetBalance(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	b, err := h.repo.GetBalance(c.Request.Context(), userID)
	if err != nil {
		logger.Error("failed to load balance", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load balance"})
		return
	}

	c.JSON(http.StatusOK, b)
}

func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	txs, err := h.repo.ListTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		logger.Error("failed to load balance transactions", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, txs)
}
