package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Gilad-Weinberger/Sikumon/internal/files"
	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
	"go.uber.org/zap"
)

// Upload describes one incoming file.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// StoredFile is where an upload ended up.
type StoredFile struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// FileService validates uploads and keeps every object under its owner's prefix.
type FileService struct {
	objects  gateway.Objects
	maxBytes int64
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewFileService(objects gateway.Objects, maxBytes int64, logger *zap.SugaredLogger) *FileService {
	return &FileService{objects: objects, maxBytes: maxBytes, logger: logger, now: time.Now}
}

// Store validates and uploads one file for userID.
func (s *FileService) Store(ctx context.Context, userID string, up Upload) (*StoredFile, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	ct := files.ContentType(up.Name, up.ContentType)
	if err := files.Validate(up.Name, ct, up.Size, s.maxBytes); err != nil {
		var rej *files.RejectError
		if errors.As(err, &rej) {
			return nil, invalid("%s", rej.Error())
		}
		return nil, err
	}

	path := files.ObjectPath(userID, up.Name, s.now())
	stored, err := s.objects.Upload(ctx, path, up.Body, ct)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", up.Name, err)
	}
	s.logger.Infow("file stored", "user_id", userID, "path", stored, "size", up.Size)
	return &StoredFile{URL: s.objects.PublicURL(stored), Path: stored}, nil
}

// Remove deletes the objects behind urls. URLs outside the bucket are
// skipped; URLs under another user's prefix are refused.
func (s *FileService) Remove(ctx context.Context, userID string, urls []string) (int, error) {
	if userID == "" {
		return 0, ErrUnauthorized
	}
	prefix := userID + "/"
	paths := make([]string, 0, len(urls))
	for _, u := range urls {
		p, ok := s.objects.PathFromURL(u)
		if !ok {
			continue
		}
		if !strings.HasPrefix(p, prefix) {
			return 0, forbidden("Forbidden: You can only delete your own files")
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		return 0, nil
	}
	if err := s.objects.Remove(ctx, paths); err != nil {
		return 0, fmt.Errorf("remove files: %w", err)
	}
	return len(paths), nil
}
