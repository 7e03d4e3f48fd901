package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
	"github.com/Gilad-Weinberger/Sikumon/internal/model"
	"go.uber.org/zap"
)

// UpsertUserInput is the body of a profile upsert.
type UpsertUserInput struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name,omitempty"`
	Grade    *string `json:"grade,omitempty"`
}

// UserService manages user profiles. Writes are limited to the caller's own row.
type UserService struct {
	records gateway.Records
	logger  *zap.SugaredLogger
	now     func() time.Time
}

func NewUserService(records gateway.Records, logger *zap.SugaredLogger) *UserService {
	return &UserService{records: records, logger: logger, now: time.Now}
}

func (s *UserService) List(ctx context.Context, f model.UserFilters) (*model.UserPage, error) {
	f = f.Normalize()
	f.Search = strings.TrimSpace(f.Search)
	users, total, err := s.records.ListUsers(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []model.User{}
	}
	return &model.UserPage{Users: users, Pagination: model.NewPagination(f.Page, f.Limit, total)}, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.records.GetUser(ctx, id)
	if errors.Is(err, gateway.ErrNotFound) {
		return nil, notFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// Upsert creates or refreshes the caller's profile.
func (s *UserService) Upsert(ctx context.Context, callerID string, in UpsertUserInput) (*model.User, error) {
	if in.ID == "" || in.Email == "" {
		return nil, invalid("Missing required fields: id and email")
	}
	if callerID != in.ID {
		return nil, forbidden("Forbidden: You can only create your own profile")
	}
	grade, err := optionalGrade(in.Grade)
	if err != nil {
		return nil, err
	}
	u, err := s.records.UpsertUser(ctx, &model.User{
		ID:        in.ID,
		Email:     in.Email,
		FullName:  trimmedOrNil(in.FullName),
		Grade:     grade,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("upsert user %s: %w", in.ID, err)
	}
	return u, nil
}

// Update edits full_name and grade on the caller's own profile.
func (s *UserService) Update(ctx context.Context, callerID, id string, p model.UserPatch) (*model.User, error) {
	if callerID != id {
		return nil, forbidden("Forbidden: You can only update your own profile")
	}
	updates := map[string]any{"updated_at": s.now().UTC()}
	if p.FullName != nil {
		updates["full_name"] = nullable(trimmedOrNil(p.FullName))
	}
	if p.Grade != nil {
		grade, err := optionalGrade(p.Grade)
		if err != nil {
			return nil, err
		}
		if grade == nil {
			updates["grade"] = nil
		} else {
			updates["grade"] = string(*grade)
		}
	}
	u, err := s.records.UpdateUser(ctx, id, updates)
	if errors.Is(err, gateway.ErrNotFound) {
		return nil, notFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("update user %s: %w", id, err)
	}
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, callerID, id string) error {
	if callerID != id {
		return forbidden("Forbidden: You can only delete your own profile")
	}
	if err := s.records.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return nil
}

// optionalGrade treats nil and "" as no grade.
func optionalGrade(s *string) (*model.Grade, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	g, err := model.ParseGrade(*s)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	return &g, nil
}
