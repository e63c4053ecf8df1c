package packages

import (
	"errors"
	"net/http"
	"strconv"

	"innata/internal/api"
	"innata/internal/auth"
	"innata/internal/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ListCatalog(c *gin.Context) {
	pkgs, err := h.service.Catalog(c.Request.Context())
	if err != nil {
		logger.Error("failed to load package catalog", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load packages"})
		return
	}
	c.JSON(http.StatusOK, pkgs)
}

func (h *Handler) ListMy(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	ups, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		logger.Error("failed to load user packages", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load packages"})
		return
	}
	c.JSON(http.StatusOK, ups)
}

// Assign godoc
// @Summary      Grant a package to a user
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        userID  path  int                   true  "User ID"
// @Param        body    body  AssignPackageRequest  true  "Package"
// @Success      201  {object}  UserPackage
// @Router       /admin/users/{userID}/packages [post]
func (h *Handler) Assign(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("userID"))
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid user id", Reason: string(api.ReasonInvalidInput)})
		return
	}

	var req AssignPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.Validation(err))
		return
	}

	up, err := h.service.Assign(c.Request.Context(), userID, req)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, up)
	case errors.Is(err, ErrPackageNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "package not found", Reason: string(api.ReasonPackageNotFound)})
	case errors.Is(err, ErrInvalidWeek):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Reason: string(api.ReasonInvalidInput)})
	default:
		logger.Error("failed to assign package", "user_id", userID, "package_id", req.PackageID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "internal server error"})
	}
}
