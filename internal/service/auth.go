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

// SignUpInput is the body of a sign-up call.
type SignUpInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Grade    string `json:"grade"`
}

// AuthService fronts the hosted auth service and keeps the profile row in
// step with new accounts.
type AuthService struct {
	auth    gateway.Auth
	records gateway.Records
	logger  *zap.SugaredLogger
	now     func() time.Time
}

func NewAuthService(auth gateway.Auth, records gateway.Records, logger *zap.SugaredLogger) *AuthService {
	return &AuthService{auth: auth, records: records, logger: logger, now: time.Now}
}

// SignUp registers an account and upserts its profile. A profile failure is
// logged and does not fail the sign-up.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*gateway.Session, error) {
	if in.Email == "" || in.Password == "" {
		return nil, invalid("Email and password are required")
	}
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		return nil, invalid("Full name is required")
	}
	if in.Grade == "" {
		return nil, invalid("Grade is required")
	}
	grade, err := model.ParseGrade(in.Grade)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}

	sess, err := s.auth.SignUp(ctx, in.Email, in.Password)
	if err != nil {
		return nil, gatewayRejection(err)
	}

	if sess.User != nil {
		pctx := ctx
		if sess.AccessToken != "" {
			pctx = gateway.WithAccessToken(ctx, sess.AccessToken)
		}
		email := sess.User.Email
		if email == "" {
			email = in.Email
		}
		_, err := s.records.UpsertUser(pctx, &model.User{
			ID:        sess.User.ID,
			Email:     email,
			FullName:  &fullName,
			Grade:     &grade,
			UpdatedAt: s.now().UTC(),
		})
		if err != nil {
			s.logger.Errorw("profile upsert after sign-up failed", "user_id", sess.User.ID, "error", err)
		}
	}
	return sess, nil
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*gateway.Session, error) {
	if email == "" || password == "" {
		return nil, invalid("Email and password are required")
	}
	sess, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, gatewayRejection(err)
	}
	return sess, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*gateway.Session, error) {
	if refreshToken == "" {
		return nil, invalid("Refresh token is required")
	}
	sess, err := s.auth.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, gatewayRejection(err)
	}
	return sess, nil
}

// SignOut revokes the session. Without a token there is nothing to revoke.
func (s *AuthService) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	if err := s.auth.SignOut(ctx, accessToken); err != nil {
		return gatewayRejection(err)
	}
	return nil
}

// CurrentUser resolves the identity behind accessToken. Any failure yields a
// nil identity.
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) *gateway.Identity {
	if accessToken == "" {
		return nil
	}
	id, err := s.auth.GetUser(ctx, accessToken)
	if err != nil {
		s.logger.Debugw("current user lookup failed", "error", err)
		return nil
	}
	return id
}

// gatewayRejection surfaces the auth service's own message as a validation
// error. Anything without a message stays an internal error.
func gatewayRejection(err error) error {
	var ge *gateway.Error
	if errors.As(err, &ge) && ge.Message != "" {
		return invalid("%s", ge.Message)
	}
	return fmt.Errorf("auth gateway: %w", err)
}
