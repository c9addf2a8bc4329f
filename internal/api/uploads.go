package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/vidstream/internal/apperr"
	"github.com/lalith-99/vidstream/internal/media"
)

// stageFile saves the multipart file in field to tempDir under a random
// name and returns its path, or "" when the request has no such file.
func stageFile(c *gin.Context, tempDir, field string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		if tooLarge(err) {
			return "", apperr.TooLarge("request body too large")
		}
		return "", apperr.BadRequest("invalid multipart form")
	}

	path := filepath.Join(tempDir, uuid.NewString()+strings.ToLower(filepath.Ext(fh.Filename)))
	if err := c.SaveUploadedFile(fh, path); err != nil {
		return "", apperr.Wrap(err, "failed to store upload")
	}
	return path, nil
}

// requireFile is stageFile for mandatory parts.
func requireFile(c *gin.Context, tempDir, field string) (string, error) {
	path, err := stageFile(c, tempDir, field)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", apperr.Validation("invalid request", []string{field + " is required"})
	}
	return path, nil
}

// discard removes staged files that never reached the uploader. Paths the
// uploader already consumed are gone, so removing them again is harmless.
func discard(paths ...string) {
	for _, p := range paths {
		if p != "" {
			_ = os.Remove(p)
		}
	}
}

// uploadFile pushes one staged file to the media store. A failure is
// terminal for the calling operation.
func uploadFile(ctx context.Context, up media.Uploader, path, what string) (string, error) {
	res, err := up.Upload(ctx, path)
	if err != nil {
		return "", apperr.Wrap(err, what+" upload failed")
	}
	return res.URL, nil
}

// tooLarge reports whether err came from a body cut off by limitBody.
func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// limitBody caps the request body for upload routes. Reads past the cap
// fail with *http.MaxBytesError, which surfaces as 413.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
