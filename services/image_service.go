package services

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PassportImageStore persists passport images under the upload dir and
// resolves them to durable URLs served from /uploads.
type PassportImageStore struct {
	Dir     string
	BaseURL string
}

func NewPassportImageStore(dir, baseURL string) *PassportImageStore {
	return &PassportImageStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

// Save decodes the base64 payload and writes it keyed by booking and guest id.
// Returns the public URL that becomes the guest's canonical passportImageUrl.
func (s *PassportImageStore) Save(bookingID, guestID uint, b64, mimeType string) (string, error) {
	if idx := strings.Index(b64, "base64,"); idx >= 0 {
		b64 = b64[idx+7:]
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}

	dir := filepath.Join(s.Dir, "passports", fmt.Sprintf("%d", bookingID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("mkdir uploads dir: %w", err)
	}

	filename := fmt.Sprintf("%d_%d%s", guestID, time.Now().UnixNano(), extForMime(mimeType))
	fullpath := filepath.Join(dir, filename)

	if err := os.WriteFile(fullpath, data, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	rel := filepath.ToSlash(filepath.Join("passports", fmt.Sprintf("%d", bookingID), filename))
	return s.BaseURL + "/uploads/" + rel, nil
}

func extForMime(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
