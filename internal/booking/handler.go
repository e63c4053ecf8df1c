package booking

import (
	"errors"
	"net/http"
	"strconv"

	"innata/internal/api"
	"innata/internal/auth"
	"innata/internal/logger"
	"innata/internal/reservation"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	coordinator *Coordinator
}

func NewHandler(coordinator *Coordinator) *Handler {
	return &Handler{coordinator: coordinator}
}

// statusFor maps a rejection reason to its HTTP status.
func statusFor(reason api.Reason) int {
	switch reason {
	case api.ReasonAlreadyReserved, api.ReasonSlotTaken, api.ReasonDuplicateNoSlot:
		return http.StatusConflict
	case api.ReasonClassNotFound, api.ReasonPackageNotFound, api.ReasonReservationNotFound:
		return http.StatusNotFound
	case api.ReasonForbidden:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

// respondError writes rejections as {error, reason, ...details} and hides
// everything else behind a generic 500.
func respondError(c *gin.Context, err error, logMsg string, args ...interface{}) {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		body := gin.H{"error": apiErr.Message, "reason": apiErr.Reason}
		for k, v := range apiErr.Details {
			body[k] = v
		}
		c.JSON(statusFor(apiErr.Reason), body)
		return
	}

	logger.Error(logMsg, append(args, "error", err)...)
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "internal server error"})
}

func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid " + name, Reason: string(api.ReasonInvalidInput)})
		return 0, false
	}
	return id, true
}

func pageParams(c *gin.Context) (limit, offset uint64, ok bool) {
	limit = 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil || n == 0 || n > 200 {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "limit must be between 1 and 200", Reason: string(api.ReasonInvalidInput)})
			return 0, 0, false
		}
		limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "offset must be a non-negative integer", Reason: string(api.ReasonInvalidInput)})
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

// Book godoc
// @Summary      Book a class
// @Description  Confirms a reservation or places the user on the waitlist when the class is full.
// @Tags         reservations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      Request  true  "Booking"
// @Success      201   {object}  ConfirmedResponse
// @Success      202   {object}  WaitlistResponse
// @Failure      400   {object}  api.ErrorResponse
// @Failure      404   {object}  api.ErrorResponse
// @Failure      409   {object}  api.ErrorResponse
// @Failure      500   {object}  api.ErrorResponse
// @Router       /reservations [post]
func (h *Handler) Book(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.Validation(err))
		return
	}

	result, err := h.coordinator.Book(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err, "booking failed", "user_id", userID, "class_id", req.ScheduledClassID)
		return
	}

	if result.Outcome == OutcomeWaitlisted {
		c.JSON(http.StatusAccepted, WaitlistResponse{
			Message:          "class is full, you have been added to the waitlist",
			WaitlistPosition: result.WaitlistPosition,
		})
		return
	}

	c.JSON(http.StatusCreated, ConfirmedResponse{
		ReservationID:  result.Reservation.ID,
		ClassName:      result.ClassName,
		Status:         result.Reservation.Status,
		CreditSource:   result.CreditSource,
		BikeNumber:     result.Reservation.BikeNumber,
		WeeklyUsage:    result.WeeklyUsage,
		GraceTimeHours: result.GraceTimeHours,
	})
}

// Cancel godoc
// @Summary      Cancel a reservation
// @Tags         reservations
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  int  true  "Reservation ID"
// @Success      200  {object}  reservation.Reservation
// @Failure      403  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /reservations/{id} [delete]
func (h *Handler) Cancel(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	res, err := h.coordinator.Cancel(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err, "cancellation failed", "user_id", userID, "reservation_id", id)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListMy(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}

	list, err := h.coordinator.ListUserReservations(c.Request.Context(), userID, c.Query("upcoming") == "true", limit, offset)
	if err != nil {
		respondError(c, err, "failed to list reservations", "user_id", userID)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) Availability(c *gin.Context) {
	classID, ok := pathID(c, "classID")
	if !ok {
		return
	}
	a, err := h.coordinator.ClassAvailability(c.Request.Context(), classID)
	if err != nil {
		respondError(c, err, "failed to load availability", "class_id", classID)
		return
	}
	c.JSON(http.StatusOK, a)
}

// Eligibility godoc
// @Summary      Check Unlimited Week eligibility
// @Tags         reservations
// @Security     BearerAuth
// @Produce      json
// @Param        scheduledClassId  query  int  true  "Class ID"
// @Success      200  {object}  entitlement.Eligibility
// @Router       /unlimited-week/eligibility [get]
func (h *Handler) Eligibility(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}
	classID, err := strconv.Atoi(c.Query("scheduledClassId"))
	if err != nil || classID <= 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "scheduledClassId is required", Reason: string(api.ReasonInvalidInput)})
		return
	}

	elig, err := h.coordinator.Eligibility(c.Request.Context(), userID, classID)
	if err != nil {
		respondError(c, err, "eligibility check failed", "user_id", userID, "class_id", classID)
		return
	}
	c.JSON(http.StatusOK, elig)
}

func (h *Handler) ClassWaitlist(c *gin.Context) {
	classID, ok := pathID(c, "classID")
	if !ok {
		return
	}
	entries, err := h.coordinator.ClassWaitlist(c.Request.Context(), classID)
	if err != nil {
		respondError(c, err, "failed to load waitlist", "class_id", classID)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) ClassReservations(c *gin.Context) {
	classID, ok := pathID(c, "classID")
	if !ok {
		return
	}

	var status *reservation.Status
	if v := c.Query("status"); v != "" {
		s := reservation.Status(v)
		switch s {
		case reservation.StatusConfirmed, reservation.StatusPending, reservation.StatusCancelled:
			status = &s
		default:
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "unknown status " + v, Reason: string(api.ReasonInvalidInput)})
			return
		}
	}

	list, err := h.coordinator.ClassReservations(c.Request.Context(), classID, status)
	if err != nil {
		respondError(c, err, "failed to list class reservations", "class_id", classID)
		return
	}
	c.JSON(http.StatusOK, list)
}
