package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/frahmantamala/licensestore/internal"
)

// Driver stores uploaded product and post images.
type Driver interface {
	// Upload writes file under key and returns its public URL.
	Upload(ctx context.Context, file io.Reader, key string) (publicURL string, err error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	Exists(ctx context.Context, key string) (bool, error)
}

// NewDriver picks the backend named by cfg.Driver.
func NewDriver(cfg internal.StorageConfig) (Driver, error) {
	switch cfg.Driver {
	case "local", "":
		path := cfg.UploadsPath
		if path == "" {
			path = "./uploads"
		}
		return NewLocalStorage(path, cfg.PublicBaseURL), nil
	case "s3":
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

var allowedImageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// ContentType returns the MIME type for an image key, or "" when the extension
// is not an accepted image format.
func ContentType(key string) string {
	return allowedImageTypes[strings.ToLower(filepath.Ext(key))]
}

func cleanKey(key string) string {
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+key)), "/")
}
