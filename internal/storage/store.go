package storage

import (
	"context"
	"errors"
	"strings"
)

// ImageStore persists one generated image under a template-derived name and
// returns where it was written (a file path or an object URI)
type ImageStore interface {
	Save(ctx context.Context, name string, data []byte, mimeType string) (string, error)
}

// ErrEmptyName is returned when Save is called without a name
var ErrEmptyName = errors.New("image name is empty")

const defaultExtension = "png"

// ExtensionFor maps an image MIME type to a file extension, defaulting to png
func ExtensionFor(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch mt {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	case "image/png":
		return "png"
	default:
		return defaultExtension
	}
}

// ObjectName returns the stored base name for a template image
func ObjectName(name, mimeType string) string {
	return name + "." + ExtensionFor(mimeType)
}
