package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStorage struct {
	objects map[string][]byte
	putErr  error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}}
}

func (m *memoryStorage) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	if m.putErr != nil {
		return "", m.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.objects[key] = data
	return "https://bucket.s3.region.amazonaws.com/" + key, nil
}

func (m *memoryStorage) Remove(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memoryStorage) KeyFromURL(fileURL string) (string, bool) {
	return strings.CutPrefix(fileURL, "https://bucket.s3.region.amazonaws.com/")
}

// fileHeader builds a multipart.FileHeader the way gin hands one to a handler.
func fileHeader(t *testing.T, name, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, "/", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(10<<20))
	return req.MultipartForm.File["file"][0]
}

func TestImageService_Upload(t *testing.T) {
	storage := newMemoryStorage()
	svc := NewImageService(storage, 0, nil)

	result, err := svc.Upload(context.Background(), "avatar", 12, fileHeader(t, "me.PNG", "image/png", []byte("png")))
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^user_12/avatar/\d+-[0-9a-f]{6}\.png$`), result.Key)
	assert.Equal(t, "https://bucket.s3.region.amazonaws.com/"+result.Key, result.URL)
	assert.Equal(t, []byte("png"), storage.objects[result.Key])

	require.NoError(t, svc.DeleteByURL(context.Background(), result.URL))
	assert.Empty(t, storage.objects)
}

func TestImageService_UploadRejects(t *testing.T) {
	svc := NewImageService(newMemoryStorage(), 8, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		module string
		file   *multipart.FileHeader
		status int
	}{
		{"missing file", "avatar", nil, http.StatusNotFound},
		{"bad module", "../etc", fileHeader(t, "a.png", "image/png", []byte("x")), http.StatusBadRequest},
		{"too large", "avatar", fileHeader(t, "a.png", "image/png", []byte("123456789")), http.StatusBadRequest},
		{"bad extension", "avatar", fileHeader(t, "a.exe", "image/png", []byte("x")), http.StatusBadRequest},
		{"bad mime", "avatar", fileHeader(t, "a.png", "application/x-msdownload", []byte("x")), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(ctx, tt.module, 1, tt.file)
			appErr, ok := AsAppError(err)
			require.True(t, ok, "%v", err)
			assert.Equal(t, tt.status, appErr.Status)
		})
	}
}

func TestImageService_StorageFailure(t *testing.T) {
	storage := newMemoryStorage()
	storage.putErr = errors.New("s3 down")
	svc := NewImageService(storage, 0, nil)

	_, err := svc.Upload(context.Background(), "avatar", 1, fileHeader(t, "a.pdf", "application/pdf", []byte("%PDF")))
	appErr, ok := AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
}

func TestImageService_DeleteByURL_Invalid(t *testing.T) {
	svc := NewImageService(newMemoryStorage(), 0, nil)

	err := svc.DeleteByURL(context.Background(), "")
	appErr, ok := AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.Status)

	err = svc.DeleteByURL(context.Background(), "https://example.com/x.png")
	appErr, ok = AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestUploadKey(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	key := uploadKey(5, "blog", ".jpg", at)
	assert.True(t, strings.HasPrefix(key, "user_5/blog/1700000000123-"), key)
	assert.True(t, strings.HasSuffix(key, ".jpg"))
}
