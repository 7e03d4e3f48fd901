package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gilad-Weinberger/Sikumon/internal/cli/api"
	"github.com/Gilad-Weinberger/Sikumon/internal/cli/bootstrap"
	"github.com/Gilad-Weinberger/Sikumon/internal/cli/session"
	"github.com/Gilad-Weinberger/Sikumon/internal/config"
	"github.com/Gilad-Weinberger/Sikumon/internal/model"
)

type signupCmd struct{}

func (signupCmd) Name() string        { return "signup" }
func (signupCmd) Description() string { return "Create an account and sign in" }
func (signupCmd) Usage() string {
	return "signup [--name <full name>] [--grade A-G] <email> <password>"
}

func (signupCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := newFlags("signup")
	name := fs.String("name", "", "full name")
	grade := fs.String("grade", "", "grade A-G")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return ErrUsage
	}
	if *grade != "" {
		if _, err := model.ParseGrade(*grade); err != nil {
			return err
		}
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		sess, err := app.Auth.SignUp(ctx, api.SignUpRequest{
			Email:    fs.Arg(0),
			Password: fs.Arg(1),
			FullName: *name,
			Grade:    *grade,
		})
		if err != nil {
			return err
		}
		if sess == nil || sess.AccessToken == "" {
			fmt.Fprintln(Out, "Account created. Confirm your email, then run login.")
			return nil
		}
		fmt.Fprintf(Out, "Signed up as %s\n", fs.Arg(0))
		return nil
	})
}

type loginCmd struct{}

func (loginCmd) Name() string        { return "login" }
func (loginCmd) Description() string { return "Sign in and remember the session" }
func (loginCmd) Usage() string       { return "login <email> <password>" }

func (loginCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 2 {
		return ErrUsage
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		if _, err := app.Auth.SignIn(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintln(Out, "Logged in successfully")
		return nil
	})
}

type logoutCmd struct{}

func (logoutCmd) Name() string        { return "logout" }
func (logoutCmd) Description() string { return "Sign out and forget the session" }
func (logoutCmd) Usage() string       { return "logout" }

func (logoutCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		err := app.Auth.SignOut(ctx)
		if errors.Is(err, session.ErrNotSignedIn) {
			fmt.Fprintln(Out, "Not signed in")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(Out, "Signed out")
		return nil
	})
}

type whoamiCmd struct{}

func (whoamiCmd) Name() string        { return "whoami" }
func (whoamiCmd) Description() string { return "Show the signed-in identity" }
func (whoamiCmd) Usage() string       { return "whoami" }

func (whoamiCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		id := app.Auth.Identity()
		if id == nil {
			fmt.Fprintln(Out, "Not signed in")
			return nil
		}
		fmt.Fprintf(Out, "id:    %s\n", id.ID)
		fmt.Fprintf(Out, "email: %s\n", id.Email)
		if n := id.DisplayName(); n != nil {
			fmt.Fprintf(Out, "name:  %s\n", *n)
		}
		return nil
	})
}

func init() {
	RegisterCmd(signupCmd{})
	RegisterCmd(loginCmd{})
	RegisterCmd(logoutCmd{})
	RegisterCmd(whoamiCmd{})
}
