package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Gilad-Weinberger/Sikumon/internal/cli/bootstrap"
	"github.com/Gilad-Weinberger/Sikumon/internal/cli/upload"
	"github.com/Gilad-Weinberger/Sikumon/internal/config"
	"github.com/Gilad-Weinberger/Sikumon/internal/files"
	"github.com/Gilad-Weinberger/Sikumon/internal/model"
)

const dateLayout = "2006-01-02 15:04"

type listCmd struct{}

func (listCmd) Name() string        { return "list" }
func (listCmd) Description() string { return "Browse summaries" }
func (listCmd) Usage() string {
	return "list [--page N] [--limit N] [--search q] [--mine] [--sort col] [--asc]"
}

func (listCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := newFlags("list")
	page := fs.Int("page", model.DefaultPage, "page number")
	limit := fs.Int("limit", model.DefaultLimit, "page size")
	search := fs.String("search", "", "search in name and description")
	user := fs.String("user", "", "only summaries of this user id")
	mine := fs.Bool("mine", false, "only my summaries")
	sortBy := fs.String("sort", model.DefaultSortBy, "sort column")
	asc := fs.Bool("asc", false, "ascending order")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return ErrUsage
	}
	f := model.SummaryFilters{
		Page:      *page,
		Limit:     *limit,
		Search:    *search,
		UserID:    *user,
		SortBy:    *sortBy,
		SortOrder: model.SortDesc,
	}
	if *asc {
		f.SortOrder = model.SortAsc
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		if *mine {
			id := app.Auth.Identity()
			if id == nil {
				return errors.New("not signed in")
			}
			f.UserID = id.ID
		}
		res, err := app.Summaries.FetchList(ctx, f)
		if err != nil {
			return err
		}
		if len(res.Summaries) == 0 {
			fmt.Fprintln(Out, "No summaries")
			return nil
		}
		for _, s := range res.Summaries {
			fmt.Fprintf(Out, "- %s  %s  by %s  files=%d  %s\n",
				s.ID, s.Name, author(s), len(s.FileURLs), s.UploadDate.Local().Format(dateLayout))
		}
		p := res.Pagination
		fmt.Fprintf(Out, "Page %d/%d, %d total\n", p.Page, p.TotalPages, p.Total)
		return nil
	})
}

type getCmd struct{}

func (getCmd) Name() string        { return "get" }
func (getCmd) Description() string { return "Show a summary and its files" }
func (getCmd) Usage() string       { return "get <id>" }

func (getCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		s, err := app.Summaries.FetchDetail(ctx, args[0])
		if err != nil {
			return err
		}
		if s == nil {
			return errors.New("summary not found")
		}
		printSummary(s)
		return nil
	})
}

func printSummary(s *model.SummaryWithUser) {
	fmt.Fprintf(Out, "id:          %s\n", s.ID)
	fmt.Fprintf(Out, "name:        %s\n", s.Name)
	if s.Description != nil {
		fmt.Fprintf(Out, "description: %s\n", *s.Description)
	}
	fmt.Fprintf(Out, "author:      %s\n", author(*s))
	fmt.Fprintf(Out, "uploaded:    %s\n", s.UploadDate.Local().Format(dateLayout))
	fmt.Fprintf(Out, "edited:      %s\n", s.LastEditedAt.Local().Format(dateLayout))
	if len(s.FileURLs) == 0 {
		return
	}
	fmt.Fprintln(Out, "files:")
	for _, u := range s.FileURLs {
		name := upload.NameFromURL(u)
		if files.IsGoogleDocsURL(u) {
			name = upload.LinkTitle(u)
		}
		fmt.Fprintf(Out, "  %s  %s\n", name, u)
	}
}

func author(s model.SummaryWithUser) string {
	if s.User != nil && s.User.FullName != nil && strings.TrimSpace(*s.User.FullName) != "" {
		return *s.User.FullName
	}
	return "משתמש"
}

func init() {
	RegisterCmd(listCmd{})
	RegisterCmd(getCmd{})
}
