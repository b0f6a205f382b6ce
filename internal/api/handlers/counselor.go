package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/logging"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/services"
)

type CounselorAPI interface {
	Create(ctx context.Context, req models.CreateCounselorRequest) (*models.Counselor, error)
	Update(ctx context.Context, id int64, req models.UpdateCounselorRequest) (*models.Counselor, error)
	GetByID(ctx context.Context, id int64) (*models.Counselor, error)
	List(ctx context.Context, page models.Page, filter models.CounselorFilter) (*services.CounselorPage, error)
	Delete(ctx context.Context, id int64) error
}

type CounselorHandler struct {
	responder
	counselors CounselorAPI
}

func NewCounselorHandler(counselors CounselorAPI, logger *logging.StandardLogger) *CounselorHandler {
	return &CounselorHandler{responder: newResponder(logger), counselors: counselors}
}

func (h *CounselorHandler) Create(c *gin.Context) {
	var req models.CreateCounselorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, err)
		return
	}
	counselor, err := h.counselors.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "counselor.create")
		return
	}
	respondSuccess(c, http.StatusCreated, counselor, "Counselor created")
}

func (h *CounselorHandler) List(c *gin.Context) {
	var filter models.CounselorFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.bindFailed(c, err)
		return
	}
	result, err := h.counselors.List(c.Request.Context(), bindPage(c), filter)
	if err != nil {
		h.fail(c, err, "counselor.list")
		return
	}
	respondList(c, result.Counselors, result.Pagination)
}

func (h *CounselorHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	counselor, err := h.counselors.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "counselor.get")
		return
	}
	respondSuccess(c, http.StatusOK, counselor, "")
}

func (h *CounselorHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateCounselorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, err)
		return
	}
	counselor, err := h.counselors.Update(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err, "counselor.update")
		return
	}
	respondSuccess(c, http.StatusOK, counselor, "Counselor updated")
}

func (h *CounselorHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.counselors.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err, "counselor.delete")
		return
	}
	respondSuccess(c, http.StatusNoContent, nil, "")
}
