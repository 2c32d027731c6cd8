package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dev-tahsin7/LMS-TestApp/internal/app"
	"github.com/dev-tahsin7/LMS-TestApp/internal/cli"
	"github.com/dev-tahsin7/LMS-TestApp/internal/config"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/logger"
)

func main() {
	err := run()
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(cli.ExitCode(err))
}

func run() error {
	globals, err := cli.ParseGlobals(os.Args[1:], os.Stderr)
	if err != nil {
		return err
	}

	// Command output goes to stdout, so logs default to quiet text on stderr.
	overrides := globals.Overrides()
	if overrides["LOG_LEVEL"] == "" && os.Getenv("LOG_LEVEL") == "" {
		overrides["LOG_LEVEL"] = "warn"
	}
	if os.Getenv("LOG_FORMAT") == "" {
		overrides["LOG_FORMAT"] = logger.FormatText
	}

	cfg, err := config.LoadWith(overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.NewWithFormat("lmsctl", cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	core, err := app.NewCore(ctx, cfg, "lmsctl", log)
	if err != nil {
		return fmt.Errorf("initialize client: %w", err)
	}
	defer core.Close(context.Background())

	c := cli.New(cli.Deps{
		Auth:       core.Auth,
		Dashboard:  core.Dashboard,
		Catalog:    core.Catalog,
		Courses:    core.Courses,
		Store:      core.Store,
		APIBaseURL: core.API.BaseURL(),
	}, os.Stdout, os.Stderr, os.Stdin, globals.JSON)
	core.Auth.SetNavigator(c.Navigator())

	log.Debug("running command", slog.String("command", globals.Args[0]))
	return c.Run(ctx, globals.Args)
}
