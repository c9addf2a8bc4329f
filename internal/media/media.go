package media

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/vidstream/internal/config"
	"github.com/lalith-99/vidstream/internal/observ"
)

// Result describes a file that now lives in the object store.
type Result struct {
	URL         string `json:"url"`
	ObjectKey   string `json:"objectKey"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Uploader moves a local temp file to durable storage.
//
// The temp file is deleted whether or not the upload succeeds; callers
// never clean up after Upload.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (*Result, error)
}

var ErrEmptyPath = errors.New("media: empty local path")

// putFunc stores one local file under key.
type putFunc func(ctx context.Context, key, localPath, contentType string, size int64) error

// upload is the provider-independent half of every Uploader: stat, name,
// put, report, and always remove the temp file.
func upload(ctx context.Context, provider, baseURL, localPath string, put putFunc) (res *Result, err error) {
	if localPath == "" {
		return nil, ErrEmptyPath
	}
	defer func() {
		_ = os.Remove(localPath)
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		observ.MediaUploadsTotal.WithLabelValues(provider, outcome).Inc()
	}()

	info, err := os.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("stat upload: %w", err)
	}

	key := ObjectKey(localPath)
	contentType := ContentType(localPath)

	if err := put(ctx, key, localPath, contentType, info.Size()); err != nil {
		return nil, fmt.Errorf("%s upload: %w", provider, err)
	}
	observ.MediaUploadBytes.Observe(float64(info.Size()))

	return &Result{
		URL:         PublicURL(baseURL, key),
		ObjectKey:   key,
		ContentType: contentType,
		Size:        info.Size(),
	}, nil
}

// ObjectKey names the stored object uploads/<uuid><ext>. The client's
// filename is dropped so two users uploading "video.mp4" never collide.
func ObjectKey(localPath string) string {
	return "uploads/" + uuid.NewString() + strings.ToLower(filepath.Ext(localPath))
}

// videoTypes covers containers the platform mime table often lacks.
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
}

// ContentType guesses from the extension; the object store serves the
// file back with it.
func ContentType(localPath string) string {
	ext := strings.ToLower(filepath.Ext(localPath))
	if ct, ok := videoTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func PublicURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/" + key
}

// New builds the Uploader selected by cfg.Provider.
func New(ctx context.Context, cfg config.MediaConfig) (Uploader, error) {
	switch cfg.Provider {
	case "minio":
		return NewMinioUploader(ctx, cfg)
	case "s3":
		return NewS3Uploader(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown media provider %q", cfg.Provider)
}
