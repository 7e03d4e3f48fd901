package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// StoredFile is the answer to an upload.
type StoredFile struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// UploadFile streams body as the "file" part of a multipart form.
func (c *Client) UploadFile(ctx context.Context, name, contentType string, body io.Reader) (*StoredFile, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(name)))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err == nil {
			_, err = io.Copy(part, body)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	var out StoredFile
	err := c.do(ctx, http.MethodPost, "/api/files", nil, pr, mw.FormDataContentType(), &out)
	// unblock the writer and wait for it: the caller closes body once we return
	if err != nil {
		_ = pr.CloseWithError(err)
	} else {
		_ = pr.Close()
	}
	<-done
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteFiles removes stored files by public URL and reports how many went.
func (c *Client) DeleteFiles(ctx context.Context, urls []string) (int, error) {
	var out struct {
		Removed int `json:"removed"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, "/api/files", nil, map[string][]string{"urls": urls}, &out); err != nil {
		return 0, err
	}
	return out.Removed, nil
}
