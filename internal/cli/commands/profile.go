package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/Gilad-Weinberger/Sikumon/internal/cli/api"
	"github.com/Gilad-Weinberger/Sikumon/internal/cli/bootstrap"
	"github.com/Gilad-Weinberger/Sikumon/internal/config"
	"github.com/Gilad-Weinberger/Sikumon/internal/model"
)

type profileCmd struct{}

func (profileCmd) Name() string        { return "profile" }
func (profileCmd) Description() string { return "Show or update your profile" }
func (profileCmd) Usage() string       { return "profile [--name <full name>] [--grade A-G]" }

func (profileCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := newFlags("profile")
	name := fs.String("name", "", "full name")
	grade := fs.String("grade", "", "grade A-G")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return ErrUsage
	}
	var patch model.UserPatch
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			v := strings.TrimSpace(*name)
			patch.FullName = &v
		case "grade":
			v := strings.ToUpper(strings.TrimSpace(*grade))
			patch.Grade = &v
		}
	})
	if patch.Grade != nil {
		if _, err := model.ParseGrade(*patch.Grade); err != nil {
			return err
		}
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		id := app.Auth.Identity()
		if id == nil {
			return errors.New("not signed in")
		}
		var (
			u   *model.User
			err error
		)
		if patch.FullName != nil || patch.Grade != nil {
			u, err = app.API.UpdateUser(ctx, id.ID, patch)
		} else {
			u, err = app.API.GetUser(ctx, id.ID)
			if err == nil && u == nil {
				u, err = app.API.UpsertUser(ctx, api.UpsertUserRequest{
					ID:       id.ID,
					Email:    id.Email,
					FullName: id.DisplayName(),
				})
			}
		}
		if err != nil {
			return err
		}
		if u == nil {
			return errors.New("failed to fetch or create database user")
		}
		printUser(u)
		return nil
	})
}

func printUser(u *model.User) {
	fmt.Fprintf(Out, "id:    %s\n", u.ID)
	fmt.Fprintf(Out, "email: %s\n", u.Email)
	if u.FullName != nil {
		fmt.Fprintf(Out, "name:  %s\n", *u.FullName)
	}
	if u.Grade != nil {
		fmt.Fprintf(Out, "grade: %s\n", *u.Grade)
	}
}

func init() { RegisterCmd(profileCmd{}) }
