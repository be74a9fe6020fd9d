package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/target/identity-session/config"
	"github.com/target/identity-session/internal/bootstrap"
	"github.com/target/identity-session/internal/service"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	usage       string
	run         commandFn
}

type commandContext struct {
	Ctx     context.Context
	Logger  *slog.Logger
	Session *service.SessionService
	Out     io.Writer
}

var errUsage = errors.New("invalid arguments")

func main() {
	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			slog.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			slog.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stdout); err != nil {
			slog.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}
	logger := bootstrap.InitLogger(cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	runErr := runCommand(ctx, logger, &cfg, cmd, os.Args[2:])
	stop()
	if runErr != nil {
		logger.ErrorContext(ctx, "command failed", "command", cmdName, "error", runErr)
		if errors.Is(runErr, errUsage) {
			_ = writef(os.Stderr, "usage: identityctl %s\n", cmd.usage)
			os.Exit(2) //nolint:forbidigo // CLI must distinguish usage errors from failures
		}
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

// runCommand builds the session runtime, restores the persisted session and runs cmd against it.
func runCommand(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig, cmd command, args []string) error {
	infra, err := bootstrap.ConnectInfrastructure(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := infra.Close(); closeErr != nil {
			logger.Warn("close infrastructure", "error", closeErr)
		}
	}()

	rt, err := bootstrap.BuildSession(ctx, bootstrap.SessionConfig{
		Config:      cfg,
		DB:          infra.DB,
		RedisClient: infra.RedisClient,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	if rehydrateErr := rt.Session.Rehydrate(ctx); rehydrateErr != nil {
		logger.Warn("restore session failed; continuing unauthenticated", "error", rehydrateErr)
	}

	rt.Listener.Start(ctx)
	defer rt.Listener.Stop()

	return cmd.run(&commandContext{
		Ctx:     ctx,
		Logger:  logger,
		Session: rt.Session,
		Out:     os.Stdout,
	}, args)
}

func commands() map[string]command {
	return map[string]command{
		"login": {
			name:        "login",
			description: "Sign in with email and password",
			usage:       "login <email> <password>",
			run:         runLogin,
		},
		"whoami": {
			name:        "whoami",
			description: "Show the current identity and role",
			usage:       "whoami [--json]",
			run:         runWhoAmI,
		},
		"can": {
			name:        "can",
			description: "Check whether the current role may open a route",
			usage:       "can <path>",
			run:         runCan,
		},
		"refresh": {
			name:        "refresh",
			description: "Exchange the refresh credential for a new access credential",
			usage:       "refresh",
			run:         runRefresh,
		},
		"signout": {
			name:        "signout",
			description: "Revoke the refresh credential and clear the session",
			usage:       "signout",
			run:         runSignOut,
		},
		"logout": {
			name:        "logout",
			description: "Clear the local session without contacting the authority",
			usage:       "logout",
			run:         runLogout,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: identityctl <command> [args]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(w, "  %-10s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

func runLogin(ctx *commandContext, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	outcome, err := ctx.Session.Authenticate(ctx.Ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if outcome.RequiresOTP {
		msg := outcome.Message
		if msg == "" {
			msg = "one-time password required"
		}
		return writef(ctx.Out, "%s\n", msg)
	}
	return writeIdentity(ctx)
}

func runWhoAmI(ctx *commandContext, args []string) error {
	asJSON := false
	for _, a := range args {
		switch a {
		case "--json", "-json":
			asJSON = true
		default:
			return errUsage
		}
	}
	if asJSON {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		state := ctx.Session.State()
		return enc.Encode(struct {
			IsAuthenticated bool   `json:"isAuthenticated"`
			Role            string `json:"role"`
			Identity        any    `json:"identity"`
		}{
			IsAuthenticated: state.IsAuthenticated,
			Role:            state.Role().String(),
			Identity:        state.Identity,
		})
	}
	return writeIdentity(ctx)
}

func runCan(ctx *commandContext, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	path := args[0]
	verdict := "denied"
	if ctx.Session.CanAccessRoute(path) {
		verdict = "allowed"
	}
	return writef(ctx.Out, "%s %s for %s\n", verdict, path, ctx.Session.Role())
}

func runRefresh(ctx *commandContext, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	if err := ctx.Session.Refresh(ctx.Ctx); err != nil {
		return err
	}
	return writeIdentity(ctx)
}

func runSignOut(ctx *commandContext, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	if !ctx.Session.SignOut(ctx.Ctx, "") {
		return errors.New("authority did not confirm revocation; session kept")
	}
	return writef(ctx.Out, "signed out\n")
}

func runLogout(ctx *commandContext, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	ctx.Session.Logout()
	return writef(ctx.Out, "logged out\n")
}

func writeIdentity(ctx *commandContext) error {
	id, ok := ctx.Session.Identity()
	if !ok {
		return writef(ctx.Out, "not signed in (role %s)\n", ctx.Session.Role())
	}
	tw := tabwriter.NewWriter(ctx.Out, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"ID", id.ID},
		{"Email", id.Email},
		{"Username", id.Username},
		{"Role", id.Role.String()},
	}
	if id.DisplayName != nil {
		rows = append(rows, [2]string{"Name", *id.DisplayName})
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s:\t%s\n", row[0], strings.TrimSpace(row[1])); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
