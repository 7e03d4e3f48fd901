// Package upload stages local files and Google Docs links for a summary and
// checks them against the shared upload policy before anything is sent.
package upload

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Gilad-Weinberger/Sikumon/internal/files"
)

// File is a local file waiting to be uploaded.
type File struct {
	Name        string
	ContentType string
	Size        int64
	// Open returns the file body; each call starts from the beginning.
	Open func() (io.ReadCloser, error)
	// Preview is an optional resource shown while the file is pending and
	// released once the file has been submitted or discarded.
	Preview io.Closer
}

// Release frees the preview, if any.
func (f File) Release() {
	if f.Preview != nil {
		_ = f.Preview.Close()
	}
}

// FromPath stages a file from disk. The content type is derived from the
// extension.
func FromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}
	name := filepath.Base(path)
	return File{
		Name:        name,
		ContentType: files.ContentType(name, ""),
		Size:        info.Size(),
		Open:        func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// Validate checks f against the accepted types and the size limit. The error,
// when not nil, is a *files.RejectError with a user-facing message.
func Validate(f File) error {
	return files.Validate(f.Name, files.ContentType(f.Name, f.ContentType), f.Size, files.MaxSize)
}

var (
	ErrEmptyLink   = errors.New("יש להזין קישור")
	ErrInvalidLink = errors.New("יש להזין קישור תקין של Google Docs")
)

// Link is a Google Docs document attached to a summary.
type Link struct {
	URL   string
	Title string
}

// NewLink validates raw and builds a Link with a short display title.
func NewLink(raw string) (Link, error) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return Link{}, ErrEmptyLink
	}
	if !files.IsGoogleDocsURL(u) {
		return Link{}, ErrInvalidLink
	}
	return Link{URL: u, Title: LinkTitle(u)}, nil
}

// LinkTitle names a Google Docs link after the start of its document id.
func LinkTitle(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "Google Docs Document"
	}
	parts := strings.Split(u.Path, "/")
	for i, p := range parts {
		if p == "d" && i+1 < len(parts) && parts[i+1] != "" {
			id := parts[i+1]
			if len(id) > 8 {
				id = id[:8]
			}
			return "Google Docs - " + id + "..."
		}
	}
	return "Google Docs Document"
}

// NameFromURL is the display name of an already uploaded file.
func NameFromURL(raw string) string {
	if i := strings.LastIndex(raw, "/"); i >= 0 && i+1 < len(raw) {
		return raw[i+1:]
	}
	return "קובץ ללא שם"
}
