package commands

import (
	"context"
	"fmt"

	"github.com/Gilad-Weinberger/Sikumon/internal/cli/bootstrap"
	"github.com/Gilad-Weinberger/Sikumon/internal/cli/realtime"
	"github.com/Gilad-Weinberger/Sikumon/internal/config"
)

type watchCmd struct{}

func (watchCmd) Name() string        { return "watch" }
func (watchCmd) Description() string { return "Follow live changes to your profile until interrupted" }
func (watchCmd) Usage() string       { return "watch" }

func (watchCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		sync, err := app.Realtime()
		if err != nil {
			return err
		}
		defer sync.Close()
		sync.Start(ctx)
		printState(sync.State())
		for {
			select {
			case <-ctx.Done():
				return nil
			case st, ok := <-sync.Updates():
				if !ok {
					return nil
				}
				printState(st)
			}
		}
	})
}

func printState(st realtime.State) {
	switch {
	case st.Err != "":
		fmt.Fprintf(Out, "[%s] %s\n", st.Phase, st.Err)
	case st.User != nil:
		name := ""
		if st.User.FullName != nil {
			name = *st.User.FullName
		}
		grade := ""
		if st.User.Grade != nil {
			grade = string(*st.User.Grade)
		}
		fmt.Fprintf(Out, "[%s] %s %s %s\n", st.Phase, st.User.Email, name, grade)
	default:
		fmt.Fprintf(Out, "[%s]\n", st.Phase)
	}
}

func init() { RegisterCmd(watchCmd{}) }
