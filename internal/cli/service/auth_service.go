package service

import (
	"context"

	"github.com/Gilad-Weinberger/Sikumon/internal/cli/api"
	"github.com/Gilad-Weinberger/Sikumon/internal/cli/session"
	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
)

// AuthService is the auth use-case surface of the CLI.
type AuthService interface {
	SignUp(ctx context.Context, req api.SignUpRequest) (*gateway.Session, error)
	SignIn(ctx context.Context, email, password string) (*gateway.Session, error)
	SignOut(ctx context.Context) error
	// Identity returns the signed-in principal, nil when signed out.
	Identity() *gateway.Identity
}

var _ AuthService = (*session.Session)(nil)
