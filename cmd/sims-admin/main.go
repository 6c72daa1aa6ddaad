package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/Vignesh6104/sims-console/config"
	"github.com/Vignesh6104/sims-console/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Stdout io.Writer
	Stderr io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr)) //nolint:forbidigo // CLI propagates its exit status to the shell
}

// run dispatches one command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		_ = printUsage(stderr)
		return 2
	}

	cmd, ok := commands()[args[0]]
	if !ok {
		_ = writef(stderr, "unknown command %q\n\n", args[0])
		_ = printUsage(stderr)
		return 2
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		_ = writef(stderr, "load config: %v\n", err)
		return 1
	}
	// Diagnostics go to stderr so command output stays pipeable.
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.Observability.Logging.SlogLevel()}))

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
		Stdout: stdout,
		Stderr: stderr,
	}
	if runErr := cmd.run(cmdCtx, args[1:]); runErr != nil {
		_ = writef(stderr, "%s: %v\n", cmd.name, runErr)
		return 1
	}
	return 0
}

func commands() map[string]command {
	return map[string]command{
		"login": {
			name:        "login",
			description: "Sign in and store the token pair",
			run:         runLogin,
		},
		"logout": {
			name:        "logout",
			description: "Forget the stored token pair",
			run:         runLogout,
		},
		"whoami": {
			name:        "whoami",
			description: "Show the signed-in user and role",
			run:         runWhoami,
		},
		"get": {
			name:        "get",
			description: "GET a backend path with the stored session and print the JSON",
			run:         runGet,
		},
		"list": {
			name:        "list",
			description: "List a backend resource with the stored session",
			run:         runList,
		},
		"reset-password": {
			name:        "reset-password",
			description: "Set a new password using a reset token",
			run:         runResetPassword,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: sims-admin <command> [flags]\n\nAvailable commands:\n"); err != nil {
		return err
	}
	all := commands()
	for _, name := range slices.Sorted(maps.Keys(all)) {
		if err := writef(w, "  %-16s %s\n", name, all[name].description); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
