package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Gilad-Weinberger/Sikumon/internal/cli/api"
	"github.com/Gilad-Weinberger/Sikumon/internal/cli/upload"
	"github.com/Gilad-Weinberger/Sikumon/internal/files"
	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
	"github.com/Gilad-Weinberger/Sikumon/internal/model"
)

const cleanupTimeout = 30 * time.Second

// IdentitySource yields the signed-in principal.
type IdentitySource interface {
	Identity() *gateway.Identity
}

// Summaries is the cached summaries resource.
type Summaries interface {
	FetchDetail(ctx context.Context, id string) (*model.SummaryWithUser, error)
	Create(ctx context.Context, in model.SummaryInput) (*model.SummaryWithUser, error)
	Update(ctx context.Context, id string, p model.SummaryPatch) (*model.SummaryWithUser, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// FileAPI uploads and removes stored files.
type FileAPI interface {
	UploadFile(ctx context.Context, name, contentType string, body io.Reader) (*api.StoredFile, error)
	DeleteFiles(ctx context.Context, urls []string) (int, error)
}

// Orchestrator runs the multi-step summary mutations: checks, sequential
// uploads, the cached mutation, and cleanup.
type Orchestrator struct {
	auth      IdentitySource
	summaries Summaries
	files     FileAPI
	logger    *zap.SugaredLogger

	// CleanupOrphans removes files uploaded by a run that failed later on.
	CleanupOrphans bool
	// OnProgress, when set, is called with 0 and 100 for every uploaded file.
	OnProgress func(name string, percent int)

	mu       sync.Mutex
	progress map[string]int
}

func NewOrchestrator(auth IdentitySource, summaries Summaries, f FileAPI, logger *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{
		auth:      auth,
		summaries: summaries,
		files:     f,
		logger:    logger,
		progress:  map[string]int{},
	}
}

// CreateRequest is a new summary draft.
type CreateRequest struct {
	Name        string
	Description string
	Files       []upload.File
	Links       []string
}

// UpdateRequest edits an existing summary. Existing lists the stored URLs to
// keep, in order.
type UpdateRequest struct {
	ID          string
	Name        string
	Description string
	Existing    []string
	Files       []upload.File
	Links       []string
}

// Progress returns a copy of the per-file upload progress of the running
// mutation; it is empty between runs.
func (o *Orchestrator) Progress() map[string]int {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]int, len(o.progress))
	for k, v := range o.progress {
		out[k] = v
	}
	return out
}

// Create uploads the files, then creates the summary with the uploaded URLs
// followed by the links.
func (o *Orchestrator) Create(ctx context.Context, req CreateRequest) (*model.SummaryWithUser, error) {
	user := o.auth.Identity()
	if user == nil {
		return nil, userError(msgCreateNotSignedIn, nil)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, userError(msgNameRequired, nil)
	}
	if len(req.Files) == 0 && len(req.Links) == 0 {
		return nil, userError(msgCreateNeedsFiles, nil)
	}

	defer o.clearProgress()
	uploaded, err := o.uploadAll(ctx, req.Files, msgCreateUploadFail)
	if err != nil {
		o.cleanup(uploaded)
		return nil, err
	}

	in := model.SummaryInput{
		Name:        name,
		Description: trimmedOrNil(req.Description),
		FileURLs:    append(uploaded, req.Links...),
	}
	out, err := o.summaries.Create(ctx, in)
	if err == nil && out == nil {
		err = userError(msgCreateFailed, nil)
	}
	if err != nil {
		o.logger.Warnw("create summary failed", "user", user.ID, "error", err)
		o.cleanup(uploaded)
		return nil, failure(err, msgCreateFallback)
	}

	release(req.Files)
	return out, nil
}

// Update uploads new files and replaces the summary's file list with the kept
// URLs, then the uploaded ones, then the new links.
func (o *Orchestrator) Update(ctx context.Context, req UpdateRequest) (*model.SummaryWithUser, error) {
	user := o.auth.Identity()
	if user == nil || req.ID == "" {
		return nil, userError(msgEditNotSignedIn, nil)
	}
	current, err := o.summaries.FetchDetail(ctx, req.ID)
	if err != nil {
		return nil, failure(err, msgUpdateFailed)
	}
	if current == nil {
		return nil, userError(msgEditNotSignedIn, nil)
	}
	if current.UserID != user.ID {
		return nil, userError(msgEditForbidden, nil)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, userError(msgNameRequired, nil)
	}
	if len(req.Existing) == 0 && len(req.Files) == 0 && len(req.Links) == 0 {
		return nil, userError(msgUpdateNeedsFiles, nil)
	}

	defer o.clearProgress()
	uploaded, err := o.uploadAll(ctx, req.Files, msgUpdateUploadFail)
	if err != nil {
		o.cleanup(uploaded)
		return nil, err
	}

	urls := make([]string, 0, len(req.Existing)+len(uploaded)+len(req.Links))
	urls = append(urls, req.Existing...)
	urls = append(urls, uploaded...)
	urls = append(urls, req.Links...)

	patch := model.SummaryPatch{
		Name:        &name,
		Description: trimmedOrNil(req.Description),
		FileURLs:    urls,
	}
	out, err := o.summaries.Update(ctx, req.ID, patch)
	if err == nil && out == nil {
		err = userError(msgUpdateFailed, nil)
	}
	if err != nil {
		o.logger.Warnw("update summary failed", "id", req.ID, "error", err)
		o.cleanup(uploaded)
		return nil, failure(err, msgUpdateFailed)
	}

	release(req.Files)
	return out, nil
}

// Delete removes a summary the caller owns. With purgeFiles the stored files
// it referenced are removed as well; links are left alone.
func (o *Orchestrator) Delete(ctx context.Context, id string, purgeFiles bool) error {
	user := o.auth.Identity()
	if user == nil {
		return userError(msgDeleteNotSignedIn, nil)
	}
	current, err := o.summaries.FetchDetail(ctx, id)
	if err != nil {
		return failure(err, msgDeleteFailed)
	}
	if current == nil {
		return userError(msgNotFound, nil)
	}
	if current.UserID != user.ID {
		return userError(msgDeleteForbidden, nil)
	}

	ok, err := o.summaries.Delete(ctx, id)
	if err != nil {
		o.logger.Warnw("delete summary failed", "id", id, "error", err)
		return failure(err, msgDeleteFailed)
	}
	if !ok {
		return userError(msgDeleteFailed, nil)
	}

	if purgeFiles {
		o.remove(storedFiles(current.FileURLs))
	}
	return nil
}

// uploadAll uploads files in order and stops at the first failure, returning
// what was uploaded before it.
func (o *Orchestrator) uploadAll(ctx context.Context, fs []upload.File, failMsg string) ([]string, error) {
	urls := make([]string, 0, len(fs))
	for _, f := range fs {
		o.setProgress(f.Name, 0)
		u, err := o.uploadOne(ctx, f)
		if err != nil {
			o.logger.Warnw("upload failed", "file", f.Name, "error", err)
			return urls, userError(fmt.Sprintf(failMsg, f.Name), err)
		}
		urls = append(urls, u)
		o.setProgress(f.Name, 100)
	}
	return urls, nil
}

func (o *Orchestrator) uploadOne(ctx context.Context, f upload.File) (string, error) {
	if f.Open == nil {
		return "", fmt.Errorf("file %s has no content", f.Name)
	}
	body, err := f.Open()
	if err != nil {
		return "", err
	}
	defer body.Close()
	stored, err := o.files.UploadFile(ctx, f.Name, files.ContentType(f.Name, f.ContentType), body)
	if err != nil {
		return "", err
	}
	if stored == nil || stored.URL == "" {
		return "", fmt.Errorf("upload of %s returned no url", f.Name)
	}
	return stored.URL, nil
}

// cleanup removes files of a failed run when CleanupOrphans is on.
func (o *Orchestrator) cleanup(urls []string) {
	if !o.CleanupOrphans || len(urls) == 0 {
		return
	}
	o.remove(urls)
}

// remove deletes stored files; failures are logged only.
func (o *Orchestrator) remove(urls []string) {
	if len(urls) == 0 {
		return
	}
	// detached from the caller's ctx, which may already be done
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	n, err := o.files.DeleteFiles(ctx, urls)
	if err != nil {
		o.logger.Warnw("file cleanup failed", "urls", urls, "error", err)
		return
	}
	o.logger.Infow("files removed", "count", n)
}

func (o *Orchestrator) setProgress(name string, pct int) {
	o.mu.Lock()
	o.progress[name] = pct
	cb := o.OnProgress
	o.mu.Unlock()
	if cb != nil {
		cb(name, pct)
	}
}

func (o *Orchestrator) clearProgress() {
	o.mu.Lock()
	o.progress = map[string]int{}
	o.mu.Unlock()
}

func release(fs []upload.File) {
	for _, f := range fs {
		f.Release()
	}
}

// storedFiles drops links, which are not ours to delete.
func storedFiles(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if !files.IsGoogleDocsURL(u) {
			out = append(out, u)
		}
	}
	return out
}

func trimmedOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
