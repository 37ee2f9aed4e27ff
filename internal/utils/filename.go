package utils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

const maxOriginalNameLength = 64

// UploadFilename builds a collision-resistant name for an uploaded file:
// unix millis, a random suffix and the sanitized original name.
func UploadFilename(original string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d-%s-%s", now.UnixMilli(), suffix, SanitizeFilename(original))
}

// SanitizeFilename strips directories and characters that are unsafe in
// paths or URLs. An empty result becomes "image".
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "image"
	}
	if len(name) > maxOriginalNameLength {
		ext := filepath.Ext(name)
		if len(ext) > 10 {
			ext = ""
		}
		name = name[:maxOriginalNameLength-len(ext)] + ext
	}
	return name
}

// IsSafeFilename reports whether name can be served from the upload
// directory without escaping it.
func IsSafeFilename(name string) bool {
	return name != "" &&
		name == filepath.Base(name) &&
		!strings.HasPrefix(name, ".") &&
		!unsafeFilenameChars.MatchString(name)
}
