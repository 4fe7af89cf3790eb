package util

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// NewAnalysisID returns a fresh identifier for an analysis record.
func NewAnalysisID() (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("failed to generate analysis id: %w", err)
	}
	return id, nil
}

// NewUploadKey builds an object storage key for an uploaded file, keeping
// the original extension so loaders can dispatch on it.
func NewUploadKey(userID, filename string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("failed to generate upload key: %w", err)
	}
	ext := ""
	if i := strings.LastIndex(filename, "."); i >= 0 {
		ext = strings.ToLower(filename[i:])
	}
	return fmt.Sprintf("uploads/%s/%s%s", userID, id, ext), nil
}
