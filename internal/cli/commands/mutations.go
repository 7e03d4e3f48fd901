package commands

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Gilad-Weinberger/Sikumon/internal/cli/bootstrap"
	"github.com/Gilad-Weinberger/Sikumon/internal/cli/service"
	"github.com/Gilad-Weinberger/Sikumon/internal/cli/upload"
	"github.com/Gilad-Weinberger/Sikumon/internal/config"
)

// In is read for confirmations. Tests swap it.
var In io.Reader = os.Stdin

// stage validates paths and links the way the upload form does and returns
// the accepted ones. Any rejection aborts the command.
func stage(paths, links []string) (*upload.Stager, error) {
	st := upload.NewStager()
	var staged []upload.File
	for _, p := range paths {
		f, err := upload.FromPath(p)
		if err != nil {
			return nil, err
		}
		staged = append(staged, f)
	}
	if errs := st.Select(staged...); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	for _, l := range links {
		if _, err := st.AddLink(l); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// progress prints upload progress while the orchestrator runs.
func progress(o *service.Orchestrator) {
	o.OnProgress = func(name string, pct int) {
		fmt.Fprintf(Out, "  %s: %d%%\n", name, pct)
	}
}

type uploadCmd struct{}

func (uploadCmd) Name() string        { return "upload" }
func (uploadCmd) Description() string { return "Upload a new summary with files or Google Docs links" }
func (uploadCmd) Usage() string {
	return "upload [--desc text] [--link url]... [--cleanup] <name> [file]..."
}

func (uploadCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := newFlags("upload")
	desc := fs.String("desc", "", "description")
	cleanup := fs.Bool("cleanup", false, "delete uploaded files when the summary cannot be saved")
	var links stringList
	fs.Var(&links, "link", "Google Docs link (repeatable)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return ErrUsage
	}
	st, err := stage(fs.Args()[1:], links)
	if err != nil {
		return err
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		app.Orchestrator.CleanupOrphans = *cleanup
		progress(app.Orchestrator)
		s, err := app.Orchestrator.Create(ctx, service.CreateRequest{
			Name:        fs.Arg(0),
			Description: *desc,
			Files:       st.Files(),
			Links:       st.LinkURLs(),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(Out, "Created summary %s\n", s.ID)
		return nil
	})
}

type editCmd struct{}

func (editCmd) Name() string        { return "edit" }
func (editCmd) Description() string { return "Edit one of your summaries" }
func (editCmd) Usage() string {
	return "edit [--name n] [--desc text] [--drop url]... [--link url]... <id> [file]..."
}

func (editCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := newFlags("edit")
	name := fs.String("name", "", "new name")
	desc := fs.String("desc", "", "new description")
	var links, drop stringList
	fs.Var(&links, "link", "Google Docs link to add (repeatable)")
	fs.Var(&drop, "drop", "stored file or link to remove (repeatable)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return ErrUsage
	}
	descSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "desc" {
			descSet = true
		}
	})
	st, err := stage(fs.Args()[1:], links)
	if err != nil {
		return err
	}
	id := fs.Arg(0)
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		cur, err := app.Summaries.FetchDetail(ctx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return errors.New("summary not found")
		}
		req := service.UpdateRequest{
			ID:       id,
			Name:     cur.Name,
			Existing: without(cur.FileURLs, drop),
			Files:    st.Files(),
			Links:    st.LinkURLs(),
		}
		if cur.Description != nil {
			req.Description = *cur.Description
		}
		if *name != "" {
			req.Name = *name
		}
		if descSet {
			req.Description = *desc
		}
		progress(app.Orchestrator)
		s, err := app.Orchestrator.Update(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(Out, "Updated summary %s\n", s.ID)
		return nil
	})
}

func without(urls []string, drop []string) []string {
	skip := make(map[string]bool, len(drop))
	for _, d := range drop {
		skip[d] = true
	}
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if !skip[u] {
			out = append(out, u)
		}
	}
	return out
}

type deleteCmd struct{}

func (deleteCmd) Name() string        { return "delete" }
func (deleteCmd) Description() string { return "Delete one of your summaries" }
func (deleteCmd) Usage() string       { return "delete [--purge-files] [--yes] <id>" }

func (deleteCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := newFlags("delete")
	purge := fs.Bool("purge-files", false, "also delete the uploaded files")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return ErrUsage
	}
	if !*yes && !confirm("האם אתה בטוח שברצונך למחוק את הסיכום הזה? פעולה זו לא ניתנת לביטול.") {
		fmt.Fprintln(Out, "Cancelled")
		return nil
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		if err := app.Orchestrator.Delete(ctx, fs.Arg(0), *purge); err != nil {
			return err
		}
		fmt.Fprintln(Out, "Deleted")
		return nil
	})
}

func confirm(question string) bool {
	fmt.Fprintf(Out, "%s [y/N] ", question)
	line, _ := bufio.NewReader(In).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func init() {
	RegisterCmd(uploadCmd{})
	RegisterCmd(editCmd{})
	RegisterCmd(deleteCmd{})
}
