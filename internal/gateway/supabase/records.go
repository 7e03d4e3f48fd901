package supabase

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
	"github.com/Gilad-Weinberger/Sikumon/internal/model"
)

const (
	summariesTable = "summaries"
	summariesView  = "summaries_with_users"
	usersTable     = "users"

	summaryColumns     = "id,name,description,user_id,file_urls,upload_date,last_edited_at,created_at,updated_at"
	summaryViewColumns = summaryColumns + ",user_full_name,user_grade"

	acceptObject = "application/vnd.pgrst.object+json"
)

// Records talks to PostgREST under /rest/v1.
type Records struct {
	c *Client
}

var _ gateway.Records = (*Records)(nil)

// NewRecords returns the record storage of c.
func NewRecords(c *Client) *Records {
	return &Records{c: c}
}

// summaryViewRow is one row of the summaries_with_users view.
type summaryViewRow struct {
	model.Summary
	UserFullName *string `json:"user_full_name"`
	UserGrade    *string `json:"user_grade"`
}

func (r summaryViewRow) project() model.SummaryWithUser {
	return r.Summary.WithUser(r.UserFullName)
}

func (r *Records) ListSummaries(ctx context.Context, f model.SummaryFilters) ([]model.SummaryWithUser, int64, error) {
	f = f.Normalize()
	q := url.Values{
		"select": {summaryViewColumns},
		"offset": {strconv.Itoa(f.Offset())},
		"limit":  {strconv.Itoa(f.Limit)},
		"order":  {f.SortBy + "." + string(f.SortOrder)},
	}
	if f.Search != "" {
		q.Set("or", "("+ilike("name", f.Search)+","+ilike("description", f.Search)+")")
	}
	if f.UserID != "" {
		q.Set("user_id", "eq."+f.UserID)
	}
	var rows []summaryViewRow
	resp, err := r.c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/rest/v1/" + summariesView,
		query:   q,
		headers: map[string]string{"Prefer": "count=exact"},
	}, &rows)
	if err != nil {
		return nil, 0, err
	}
	if err := gateway.ValidateEach(rows); err != nil {
		return nil, 0, err
	}
	out := make([]model.SummaryWithUser, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.project())
	}
	return out, totalFromRange(resp.Header.Get("Content-Range"), len(rows)), nil
}

func (r *Records) GetSummary(ctx context.Context, id string) (*model.SummaryWithUser, error) {
	var row summaryViewRow
	_, err := r.c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/rest/v1/" + summariesView,
		query:   url.Values{"select": {summaryViewColumns}, "id": {"eq." + id}},
		headers: map[string]string{"Accept": acceptObject},
	}, &row)
	if err != nil {
		return nil, err
	}
	if err := gateway.Validate(&row); err != nil {
		return nil, err
	}
	s := row.project()
	return &s, nil
}

type summaryInsert struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	UserID      string   `json:"user_id"`
	FileURLs    []string `json:"file_urls"`
}

func (r *Records) InsertSummary(ctx context.Context, s *model.Summary) (*model.Summary, error) {
	var out model.Summary
	_, err := r.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/" + summariesTable,
		query:  url.Values{"select": {summaryColumns}},
		json: summaryInsert{
			Name:        s.Name,
			Description: s.Description,
			UserID:      s.UserID,
			FileURLs:    s.FileURLs,
		},
		headers: map[string]string{"Prefer": "return=representation", "Accept": acceptObject},
	}, &out)
	if err != nil {
		return nil, err
	}
	if err := gateway.Validate(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Records) UpdateSummary(ctx context.Context, id, ownerID string, updates map[string]any) (*model.Summary, error) {
	var out model.Summary
	_, err := r.c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/rest/v1/" + summariesTable,
		query: url.Values{
			"select":  {summaryColumns},
			"id":      {"eq." + id},
			"user_id": {"eq." + ownerID},
		},
		json:    updates,
		headers: map[string]string{"Prefer": "return=representation", "Accept": acceptObject},
	}, &out)
	if err != nil {
		return nil, err
	}
	if err := gateway.Validate(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Records) DeleteSummary(ctx context.Context, id, ownerID string) error {
	_, err := r.c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/rest/v1/" + summariesTable,
		query:  url.Values{"id": {"eq." + id}, "user_id": {"eq." + ownerID}},
	}, nil)
	return err
}

func (r *Records) ListUsers(ctx context.Context, f model.UserFilters) ([]model.User, int64, error) {
	f = f.Normalize()
	q := url.Values{
		"select": {"*"},
		"offset": {strconv.Itoa(f.Offset())},
		"limit":  {strconv.Itoa(f.Limit)},
		"order":  {"created_at.desc"},
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q.Set("or", "("+ilike("full_name", s)+","+ilike("email", s)+")")
	}
	if f.Grade != "" {
		q.Set("grade", "eq."+f.Grade)
	}
	var users []model.User
	resp, err := r.c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/rest/v1/" + usersTable,
		query:   q,
		headers: map[string]string{"Prefer": "count=exact"},
	}, &users)
	if err != nil {
		return nil, 0, err
	}
	if err := gateway.ValidateEach(users); err != nil {
		return nil, 0, err
	}
	if users == nil {
		users = []model.User{}
	}
	return users, totalFromRange(resp.Header.Get("Content-Range"), len(users)), nil
}

func (r *Records) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	_, err := r.c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/rest/v1/" + usersTable,
		query:   url.Values{"select": {"*"}, "id": {"eq." + id}},
		headers: map[string]string{"Accept": acceptObject},
	}, &u)
	if err != nil {
		return nil, err
	}
	if err := gateway.Validate(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

type userUpsert struct {
	ID       string       `json:"id"`
	Email    string       `json:"email"`
	FullName *string      `json:"full_name"`
	Grade    *model.Grade `json:"grade"`
}

func (r *Records) UpsertUser(ctx context.Context, u *model.User) (*model.User, error) {
	var out model.User
	_, err := r.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/" + usersTable,
		query:  url.Values{"select": {"*"}},
		json:   userUpsert{ID: u.ID, Email: u.Email, FullName: u.FullName, Grade: u.Grade},
		headers: map[string]string{
			"Prefer": "resolution=merge-duplicates,return=representation",
			"Accept": acceptObject,
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	if err := gateway.Validate(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Records) UpdateUser(ctx context.Context, id string, updates map[string]any) (*model.User, error) {
	var out model.User
	_, err := r.c.do(ctx, request{
		method:  http.MethodPatch,
		path:    "/rest/v1/" + usersTable,
		query:   url.Values{"select": {"*"}, "id": {"eq." + id}},
		json:    updates,
		headers: map[string]string{"Prefer": "return=representation", "Accept": acceptObject},
	}, &out)
	if err != nil {
		return nil, err
	}
	if err := gateway.Validate(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Records) DeleteUser(ctx context.Context, id string) error {
	_, err := r.c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/rest/v1/" + usersTable,
		query:  url.Values{"id": {"eq." + id}},
	}, nil)
	return err
}

// ilike builds a quoted case-insensitive substring filter for an or=(...) group.
func ilike(column, term string) string {
	esc := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(term)
	return column + `.ilike."*` + esc + `*"`
}

// totalFromRange parses the count of a Content-Range header ("0-9/42", "*/0").
func totalFromRange(h string, fallback int) int64 {
	i := strings.LastIndexByte(h, '/')
	if i < 0 {
		return int64(fallback)
	}
	n, err := strconv.ParseInt(h[i+1:], 10, 64)
	if err != nil {
		return int64(fallback)
	}
	return n
}
