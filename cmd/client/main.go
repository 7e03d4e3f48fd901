package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap/zapcore"

	"github.com/Gilad-Weinberger/Sikumon/internal/cli/commands"
	"github.com/Gilad-Weinberger/Sikumon/internal/config"
	"github.com/Gilad-Weinberger/Sikumon/internal/logger"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	// Load unified config (env + flags)
	cfg := config.NewConfig()

	if cfg.Version {
		printVersion()
		return
	}

	// the CLI only logs to a file; stdout belongs to command output
	sugar, err := logger.New(logger.Options{File: cfg.LogFile, Level: zapcore.InfoLevel})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	commands.Logger = sugar

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	exitCode := commands.Dispatch(ctx, cfg, flag.Args())
	cancel()
	_ = sugar.Sync()
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func printVersion() {
	fmt.Printf("Sikumon CLI\nVersion: %s\nBuild date: %s\n", version, buildDate)
}
