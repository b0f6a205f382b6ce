package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/logging"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/middleware"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/services"
)

type BookingAPI interface {
	Create(ctx context.Context, actor services.Actor, req models.CreateBookingRequest) (*models.Booking, error)
	Update(ctx context.Context, actor services.Actor, id int64, req models.UpdateBookingRequest) (*models.Booking, error)
	Confirm(ctx context.Context, actor services.Actor, id int64) (*models.Booking, error)
	Complete(ctx context.Context, actor services.Actor, id int64) (*models.Booking, error)
	Cancel(ctx context.Context, actor services.Actor, id int64) (*models.Booking, error)
	Delete(ctx context.Context, actor services.Actor, id int64) error
	GetByID(ctx context.Context, actor services.Actor, id int64) (*models.Booking, error)
	List(ctx context.Context, actor services.Actor, page models.Page, filter models.BookingFilter) ([]models.Booking, models.Pagination, error)
	Upcoming(ctx context.Context, actor services.Actor, counselorID, userID int64) ([]models.Booking, error)
}

type BookingHandler struct {
	responder
	bookings BookingAPI
}

func NewBookingHandler(bookings BookingAPI, logger *logging.StandardLogger) *BookingHandler {
	return &BookingHandler{responder: newResponder(logger), bookings: bookings}
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, err)
		return
	}
	booking, err := h.bookings.Create(c.Request.Context(), middleware.ActorFromContext(c), req)
	if err != nil {
		h.fail(c, err, "booking.create")
		return
	}
	respondSuccess(c, http.StatusCreated, booking, "Booking created successfully")
}

func (h *BookingHandler) List(c *gin.Context) {
	var filter models.BookingFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.bindFailed(c, err)
		return
	}
	bookings, pagination, err := h.bookings.List(c.Request.Context(), middleware.ActorFromContext(c), bindPage(c), filter)
	if err != nil {
		h.fail(c, err, "booking.list")
		return
	}
	respondList(c, bookings, pagination)
}

func (h *BookingHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	booking, err := h.bookings.GetByID(c.Request.Context(), middleware.ActorFromContext(c), id)
	if err != nil {
		h.fail(c, err, "booking.get")
		return
	}
	respondSuccess(c, http.StatusOK, booking, "")
}

// Upcoming accepts optional counselorId and userId query parameters.
func (h *BookingHandler) Upcoming(c *gin.Context) {
	counselorID, ok := h.queryID(c, "counselorId")
	if !ok {
		return
	}
	userID, ok := h.queryID(c, "userId")
	if !ok {
		return
	}
	bookings, err := h.bookings.Upcoming(c.Request.Context(), middleware.ActorFromContext(c), counselorID, userID)
	if err != nil {
		h.fail(c, err, "booking.upcoming")
		return
	}
	respondSuccess(c, http.StatusOK, bookings, "Upcoming bookings retrieved successfully")
}

func (h *BookingHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, err)
		return
	}
	booking, err := h.bookings.Update(c.Request.Context(), middleware.ActorFromContext(c), id, req)
	if err != nil {
		h.fail(c, err, "booking.update")
		return
	}
	respondSuccess(c, http.StatusOK, booking, "Booking updated successfully")
}

func (h *BookingHandler) Confirm(c *gin.Context) {
	h.transition(c, "booking.confirm", h.bookings.Confirm, "Booking confirmed successfully")
}

func (h *BookingHandler) Complete(c *gin.Context) {
	h.transition(c, "booking.complete", h.bookings.Complete, "Booking completed successfully")
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	h.transition(c, "booking.cancel", h.bookings.Cancel, "Booking cancelled successfully")
}

func (h *BookingHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.bookings.Delete(c.Request.Context(), middleware.ActorFromContext(c), id); err != nil {
		h.fail(c, err, "booking.delete")
		return
	}
	respondSuccess(c, http.StatusNoContent, nil, "Booking deleted successfully")
}

type bookingTransition func(ctx context.Context, actor services.Actor, id int64) (*models.Booking, error)

func (h *BookingHandler) transition(c *gin.Context, operation string, apply bookingTransition, message string) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	booking, err := apply(c.Request.Context(), middleware.ActorFromContext(c), id)
	if err != nil {
		h.fail(c, err, operation)
		return
	}
	respondSuccess(c, http.StatusOK, booking, message)
}

func (h *BookingHandler) queryID(c *gin.Context, name string) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.fail(c, services.NewBadRequest("Invalid "+name), "query")
		return 0, false
	}
	return id, true
}
