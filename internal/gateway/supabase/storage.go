package supabase

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
)

// Storage talks to the Storage API under /storage/v1 for one bucket.
type Storage struct {
	c      *Client
	bucket string
}

var _ gateway.Objects = (*Storage)(nil)

// NewStorage returns the object storage of c scoped to bucket.
func NewStorage(c *Client, bucket string) *Storage {
	return &Storage{c: c, bucket: bucket}
}

type uploadResponse struct {
	Key string `json:"Key" validate:"required"`
}

// Upload stores body at path. Existing objects are never overwritten.
func (s *Storage) Upload(ctx context.Context, path string, body io.Reader, contentType string) (string, error) {
	var out uploadResponse
	_, err := s.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/storage/v1/object/" + s.bucket + "/" + escapePath(path),
		body:   body,
		headers: map[string]string{
			"Content-Type":  contentType,
			"Cache-Control": "max-age=3600",
			"x-upsert":      "false",
		},
	}, &out)
	if err != nil {
		return "", err
	}
	if err := gateway.Validate(&out); err != nil {
		return "", err
	}
	return strings.TrimPrefix(out.Key, s.bucket+"/"), nil
}

// PublicURL returns the public download URL of path.
func (s *Storage) PublicURL(path string) string {
	return s.c.baseURL + "/storage/v1/object/public/" + s.bucket + "/" + escapePath(path)
}

// PathFromURL extracts the object path following the bucket segment.
func (s *Storage) PathFromURL(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	segs := strings.Split(u.Path, "/")
	for i, seg := range segs {
		if seg == s.bucket && i+1 < len(segs) {
			p := strings.Join(segs[i+1:], "/")
			return p, p != ""
		}
	}
	return "", false
}

// Remove deletes the objects at paths.
func (s *Storage) Remove(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	_, err := s.c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/storage/v1/object/" + s.bucket,
		json:   map[string][]string{"prefixes": paths},
	}, nil)
	return err
}

func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}
