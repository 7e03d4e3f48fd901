// Package files holds the upload policy shared by the server and the CLI:
// accepted content types, the size limit, storage naming and link checks.
package files

import (
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// MaxSize is the largest accepted file, in bytes.
const MaxSize int64 = 50 << 20

// AllowedTypes are the accepted content types: PDF, Word and images.
var AllowedTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/gif",
	"image/svg+xml",
	"image/webp",
}

var extTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
}

// RejectError explains why a file was refused. Its message is user facing.
type RejectError struct {
	Name    string
	TooBig  bool
	message string
}

func (e *RejectError) Error() string { return e.message }

// ContentType resolves the media type of a file, preferring the declared one
// and falling back to the extension when nothing useful was declared.
func ContentType(name, declared string) string {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
			return mt
		}
	}
	return extTypes[strings.ToLower(filepath.Ext(name))]
}

// IsAllowed reports whether contentType may be uploaded.
func IsAllowed(contentType string) bool {
	for _, t := range AllowedTypes {
		if t == contentType {
			return true
		}
	}
	return false
}

// Validate checks type and size. A non-positive max means MaxSize.
func Validate(name, contentType string, size, max int64) error {
	if max <= 0 {
		max = MaxSize
	}
	if !IsAllowed(contentType) {
		return &RejectError{
			Name:    name,
			message: fmt.Sprintf("סוג קובץ %s אינו מורשה. נתמכים רק קבצי PDF, Word (DOC/DOCX) ותמונות.", name),
		}
	}
	if size > max {
		return &RejectError{
			Name:    name,
			TooBig:  true,
			message: fmt.Sprintf("קובץ %s גדול מדי. הגודל המקסימלי הוא %dMB", name, max>>20),
		}
	}
	return nil
}

var (
	unsafeChars = regexp.MustCompile(`[^\w\-_.\s]`)
	separators  = regexp.MustCompile(`[\s_]+`)
)

const maxBaseLen = 100

// Sanitize makes a file name safe for object storage keys. Characters outside
// word, dash, dot and space become underscores, runs of spaces and underscores
// collapse, and the base is capped while the extension is kept.
func Sanitize(name string) string {
	base, ext := name, ""
	if i := strings.LastIndex(name, "."); i != -1 {
		base, ext = name[:i], name[i:]
	}
	base = unsafeChars.ReplaceAllString(base, "_")
	base = separators.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_")
	if len(base) > maxBaseLen {
		base = base[:maxBaseLen]
	}
	return base + ext
}

// ObjectPath is <user>/<year>/<month>/<unix millis>_<sanitized name>.
func ObjectPath(userID, name string, now time.Time) string {
	return fmt.Sprintf("%s/%d/%d/%d_%s", userID, now.Year(), int(now.Month()), now.UnixMilli(), Sanitize(name))
}

var googleDocsRe = regexp.MustCompile(`^https://docs\.google\.com/(document|spreadsheets|presentation)/d/[a-zA-Z0-9-_]+`)

// IsGoogleDocsURL reports whether u points at a Google document, sheet or slide deck.
func IsGoogleDocsURL(u string) bool {
	return googleDocsRe.MatchString(strings.TrimSpace(u))
}
