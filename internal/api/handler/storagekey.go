package handler

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// buildStorageKey generates a collision-resistant object key. The uuid keeps
// concurrent uploads of identically named files from overwriting each other.
func buildStorageKey(prefix, fileName string) string {
	return fmt.Sprintf("%s/%d-%s-%s",
		prefix,
		time.Now().Unix(),
		uuid.New().String(),
		sanitizeFileName(fileName),
	)
}

// sanitizeFileName strips path components and characters unsafe in object keys
func sanitizeFileName(name string) string {
	name = filepath.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	sanitized := b.String()
	if sanitized == "" || sanitized == "." || sanitized == ".." {
		return "upload.csv"
	}
	return sanitized
}
