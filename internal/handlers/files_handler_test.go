package handlers_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadRequest(t *testing.T, name, contentType string, body []byte, userID string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write(body)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if userID != "" {
		req.Header.Set("Authorization", "Bearer tok-"+userID)
	}
	return req
}

func TestFiles_Upload(t *testing.T) {
	env := newTestEnv(t, new(mockRecords))

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, uploadRequest(t, "my notes.pdf", "application/pdf", []byte("%PDF-1.4"), "u1"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	out := decode[map[string]string](t, rr)
	assert.True(t, strings.HasPrefix(out["path"], "u1/"), out["path"])
	assert.True(t, strings.HasSuffix(out["path"], "_my_notes.pdf"), out["path"])
	assert.Equal(t, objectsBase+out["path"], out["url"])
	assert.True(t, env.objects.has(out["path"]))
}

func TestFiles_UploadRejections(t *testing.T) {
	env := newTestEnv(t, new(mockRecords))

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, uploadRequest(t, "a.pdf", "application/pdf", []byte("x"), ""))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, uploadRequest(t, "tool.exe", "application/octet-stream", []byte("MZ"), "u1"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, errorOf(t, rr), "tool.exe")

	big := bytes.Repeat([]byte("a"), 1<<20+10)
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, uploadRequest(t, "big.png", "image/png", big, "u1"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestFiles_Remove(t *testing.T) {
	env := newTestEnv(t, new(mockRecords))

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, uploadRequest(t, "a.pdf", "application/pdf", []byte("x"), "u1"))
	require.Equal(t, http.StatusCreated, rr.Code)
	url := decode[map[string]string](t, rr)["url"]

	rr = env.do(t, http.MethodDelete, "/api/files", map[string]any{"urls": []string{url}}, "u2")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(t, http.MethodDelete, "/api/files", map[string]any{"urls": []string{url, "https://docs.google.com/document/d/x"}}, "u1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"removed":1}`, rr.Body.String())
}
