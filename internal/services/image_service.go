package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/logging"
	"go.uber.org/zap"
)

const DefaultMaxUploadSize = 5 * 1024 * 1024

var (
	allowedUploadExtensions = map[string]struct{}{
		".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {},
		".pdf": {}, ".xlsx": {}, ".xls": {}, ".csv": {}, ".txt": {},
	}
	allowedUploadTypes = map[string]struct{}{
		"image/jpeg":      {},
		"image/png":       {},
		"image/gif":       {},
		"image/webp":      {},
		"application/pdf": {},
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
		"application/vnd.ms-excel": {},
		"text/csv":                 {},
		"text/plain":               {},
	}
	modulePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,50}$`)
)

const invalidFileTypeMessage = "Invalid file type. Allowed types: Images (JPG, JPEG, PNG, GIF, WebP), Documents (PDF, XLSX, XLS, CSV, TXT)"

type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// ImageService validates uploads and places them under a per-user prefix.
type ImageService struct {
	storage ObjectStorage
	maxSize int64
	logger  *logging.StandardLogger
}

func NewImageService(storage ObjectStorage, maxSize int64, logger *logging.StandardLogger) *ImageService {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	if logger == nil {
		logger = logging.NewFromZap(nil)
	}
	return &ImageService{storage: storage, maxSize: maxSize, logger: logger.WithComponent("image")}
}

func (s *ImageService) Upload(ctx context.Context, module string, userID int64, file *multipart.FileHeader) (*UploadResult, error) {
	if file == nil {
		return nil, NewNotFound("File is required")
	}
	if !modulePattern.MatchString(module) {
		return nil, NewBadRequest("Invalid module name")
	}
	if file.Size > s.maxSize {
		return nil, NewBadRequest(fmt.Sprintf("File too large. Maximum size allowed is %dMB", s.maxSize/(1024*1024)))
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	contentType, _, _ := mime.ParseMediaType(file.Header.Get("Content-Type"))
	if _, ok := allowedUploadExtensions[ext]; !ok {
		return nil, NewBadRequest(invalidFileTypeMessage)
	}
	if _, ok := allowedUploadTypes[contentType]; !ok {
		return nil, NewBadRequest(invalidFileTypeMessage)
	}

	body, err := file.Open()
	if err != nil {
		return nil, NewBadRequest("Unable to read uploaded file")
	}
	defer body.Close()

	key := uploadKey(userID, module, ext, time.Now())
	url, err := s.storage.Put(ctx, key, body, file.Size, contentType)
	if err != nil {
		s.logger.WithError(err).Error("upload failed", zap.String("key", key))
		return nil, NewInternal("Failed to upload file", err)
	}
	return &UploadResult{URL: url, Key: key}, nil
}

// DeleteByURL removes the object behind a URL previously returned by Upload.
func (s *ImageService) DeleteByURL(ctx context.Context, fileURL string) error {
	if strings.TrimSpace(fileURL) == "" {
		return NewNotFound("fileUrl is required")
	}
	key, ok := s.storage.KeyFromURL(fileURL)
	if !ok {
		return NewBadRequest("Invalid file URL")
	}
	if err := s.storage.Remove(ctx, key); err != nil {
		if errors.Is(err, ErrDeleteFailed) {
			return NewInternal("Failed to delete file", err)
		}
		return err
	}
	return nil
}

func uploadKey(userID int64, module, ext string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("user_%d/%s/%d-%s%s", userID, module, now.UnixMilli(), suffix, ext)
}
