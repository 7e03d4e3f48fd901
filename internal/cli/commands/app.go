package commands

import (
	"context"
	"flag"
	"io"
	"strings"

	"github.com/Gilad-Weinberger/Sikumon/internal/cli/bootstrap"
	"github.com/Gilad-Weinberger/Sikumon/internal/config"
)

// openApp is swapped in tests.
var openApp = bootstrap.Open

// withApp opens the client for the duration of fn.
func withApp(ctx context.Context, cfg *config.Config, fn func(*bootstrap.App) error) error {
	app, err := openApp(ctx, cfg, Logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			Logger.Warnw("close client", "error", err)
		}
	}()
	return fn(app)
}

// newFlags builds a quiet flag set; parse errors become ErrUsage.
func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	return nil
}

// stringList collects a repeatable flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}
