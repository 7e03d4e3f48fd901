package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Gilad-Weinberger/Sikumon/internal/cli/api"
	"github.com/Gilad-Weinberger/Sikumon/internal/config"
	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
	"github.com/Gilad-Weinberger/Sikumon/internal/model"
)

// withTempConfig points the user config directory at a temp dir so the
// session file lands there.
func withTempConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if runtime.GOOS == "windows" {
		t.Setenv("APPDATA", dir)
	} else {
		t.Setenv("XDG_CONFIG_HOME", dir)
	}
	return dir
}

// withStdoutCapture collects everything commands print during fn.
func withStdoutCapture(t *testing.T, fn func()) string {
	t.Helper()
	old := Out
	var buf bytes.Buffer
	Out = &buf
	defer func() { Out = old }()
	fn()
	return buf.String()
}

func testCfg(serverURL string) *config.Config {
	return &config.Config{
		ServerURL:    serverURL,
		CacheBackend: config.BackendMemory,
		CacheSweep:   "@every 1m",
	}
}

const (
	testToken    = "tok-u1"
	testPassword = "secret"
)

// backend is an in-memory stand-in for the Sikumon server.
type backend struct {
	mu        sync.Mutex
	summaries map[string]*model.SummaryWithUser
	users     map[string]*model.User
	uploads   []string
	deleted   []string
	seq       int
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{
		summaries: map[string]*model.SummaryWithUser{},
		users:     map[string]*model.User{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/signin", b.signIn)
	mux.HandleFunc("POST /api/auth/signup", b.signIn)
	mux.HandleFunc("POST /api/auth/signout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Signed out successfully"})
	})
	mux.HandleFunc("GET /api/auth/user", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			writeJSON(w, http.StatusOK, map[string]any{"user": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": identity()})
	})
	mux.HandleFunc("GET /api/summaries", b.list)
	mux.HandleFunc("GET /api/summaries/{id}", b.get)
	mux.HandleFunc("POST /api/summaries", b.create)
	mux.HandleFunc("PUT /api/summaries/{id}", b.update)
	mux.HandleFunc("DELETE /api/summaries/{id}", b.remove)
	mux.HandleFunc("POST /api/files", b.upload)
	mux.HandleFunc("DELETE /api/files", b.deleteFiles)
	mux.HandleFunc("GET /api/users/{id}", b.getUser)
	mux.HandleFunc("POST /api/users", b.upsertUser)
	mux.HandleFunc("PUT /api/users/{id}", b.updateUser)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return b, ts
}

func identity() gateway.Identity {
	return gateway.Identity{
		ID:           "u1",
		Email:        "dana@x.io",
		UserMetadata: map[string]any{"full_name": "Dana"},
	}
}

func authed(r *http.Request) bool {
	c, err := r.Cookie(api.CookieName)
	return err == nil && c.Value == testToken
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *backend) signIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Password != testPassword {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid login credentials"})
		return
	}
	id := identity()
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Signed in successfully",
		"data":    gateway.Session{AccessToken: testToken, RefreshToken: "ref-u1", User: &id},
	})
}

// seed stores a summary owned by owner and returns its id.
func (b *backend) seed(owner, name string, urls ...string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	id := fmt.Sprintf("s%d", b.seq)
	full := "Dana"
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(b.seq) * time.Minute)
	s := &model.SummaryWithUser{User: &model.UserRef{ID: owner, FullName: &full}}
	s.ID, s.Name, s.UserID, s.FileURLs = id, name, owner, urls
	s.UploadDate, s.LastEditedAt, s.CreatedAt, s.UpdatedAt = now, now, now, now
	b.summaries[id] = s
	return id
}

func (b *backend) list(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := r.URL.Query()
	out := []model.SummaryWithUser{}
	for _, s := range b.summaries {
		if u := q.Get("user_id"); u != "" && s.UserID != u {
			continue
		}
		if term := q.Get("search"); term != "" && !strings.Contains(s.Name, term) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, model.SummaryPage{
		Summaries:  out,
		Pagination: model.NewPagination(1, model.DefaultLimit, int64(len(out))),
	})
}

func (b *backend) get(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.summaries[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Summary not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": s})
}

func (b *backend) create(w http.ResponseWriter, r *http.Request) {
	if !authed(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}
	var in model.SummaryInput
	_ = json.NewDecoder(r.Body).Decode(&in)
	id := b.seed("u1", in.Name, in.FileURLs...)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.summaries[id].Description = in.Description
	writeJSON(w, http.StatusCreated, map[string]any{"summary": b.summaries[id]})
}

func (b *backend) update(w http.ResponseWriter, r *http.Request) {
	var p model.SummaryPatch
	_ = json.NewDecoder(r.Body).Decode(&p)
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.summaries[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Summary not found"})
		return
	}
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Description != nil {
		s.Description = p.Description
	}
	if p.FileURLs != nil {
		s.FileURLs = p.FileURLs
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": s})
}

func (b *backend) remove(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := r.PathValue("id")
	s, ok := b.summaries[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Summary not found"})
		return
	}
	delete(b.summaries, id)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Summary deleted successfully", "deletedFileUrls": s.FileURLs})
}

func (b *backend) upload(w http.ResponseWriter, r *http.Request) {
	f, h, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file provided"})
		return
	}
	_, _ = io.Copy(io.Discard, f)
	_ = f.Close()
	u := "https://store.example/summaries/u1/" + h.Filename
	b.mu.Lock()
	b.uploads = append(b.uploads, u)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, api.StoredFile{URL: u, Path: "u1/" + h.Filename})
}

func (b *backend) deleteFiles(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URLs []string `json:"urls"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	b.mu.Lock()
	b.deleted = append(b.deleted, body.URLs...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]int{"removed": len(body.URLs)})
}

func (b *backend) getUser(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "User not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (b *backend) upsertUser(w http.ResponseWriter, r *http.Request) {
	var req api.UpsertUserRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	b.mu.Lock()
	defer b.mu.Unlock()
	u := &model.User{ID: req.ID, Email: req.Email, FullName: req.FullName}
	b.users[u.ID] = u
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (b *backend) updateUser(w http.ResponseWriter, r *http.Request) {
	var p model.UserPatch
	_ = json.NewDecoder(r.Body).Decode(&p)
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "User not found"})
		return
	}
	if p.FullName != nil {
		u.FullName = p.FullName
	}
	if p.Grade != nil {
		g := model.Grade(*p.Grade)
		u.Grade = &g
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}
