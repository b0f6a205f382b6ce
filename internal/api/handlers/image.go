package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/logging"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/middleware"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/services"
)

type ImageAPI interface {
	Upload(ctx context.Context, module string, userID int64, file *multipart.FileHeader) (*services.UploadResult, error)
	DeleteByURL(ctx context.Context, fileURL string) error
}

type ImageHandler struct {
	responder
	images ImageAPI
	// maxBody caps the multipart request, leaving room for form overhead.
	maxBody int64
}

func NewImageHandler(images ImageAPI, maxUpload int64, logger *logging.StandardLogger) *ImageHandler {
	if maxUpload <= 0 {
		maxUpload = services.DefaultMaxUploadSize
	}
	return &ImageHandler{responder: newResponder(logger), images: images, maxBody: maxUpload + 1<<20}
}

type deleteImageRequest struct {
	FileURL string `json:"fileUrl"`
}

// Upload stores the multipart "file" field under the caller's prefix.
func (h *ImageHandler) Upload(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID <= 0 {
		h.fail(c, services.NewUnauthorized("Unauthorized"), "image.upload")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, services.NewBadRequest("File too large"), "image.upload")
			return
		}
		h.fail(c, services.NewBadRequest("File is required"), "image.upload")
		return
	}

	result, err := h.images.Upload(c.Request.Context(), c.Param("module"), userID, file)
	if err != nil {
		h.fail(c, err, "image.upload")
		return
	}
	respondSuccess(c, http.StatusCreated, result, "Uploaded successfully")
}

func (h *ImageHandler) Delete(c *gin.Context) {
	var req deleteImageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FileURL == "" {
		h.fail(c, services.NewBadRequest("fileUrl is required"), "image.delete")
		return
	}
	if err := h.images.DeleteByURL(c.Request.Context(), req.FileURL); err != nil {
		h.fail(c, err, "image.delete")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"deleted": true}, "Deleted successfully")
}
