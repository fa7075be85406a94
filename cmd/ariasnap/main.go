// Command ariasnap drives named browser pages of a session and prints
// accessibility snapshots whose [ref=eN] markers can be acted on.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/ariasnap/client"
	"github.com/hazyhaar/ariasnap/internal/config"
	"github.com/hazyhaar/ariasnap/session"
)

// app carries what every command needs once flags are parsed.
type app struct {
	configPath string
	sessionID  string
	serverURL  string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
	stderr io.Writer
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd(&app{stderr: os.Stderr})
	if err := root.ExecuteContext(ctx); err != nil {
		if code, ok := isExitCode(err); ok {
			os.Exit(code)
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ariasnap",
		Short: "Accessibility snapshots and ref-based actions on browser pages",
		Long: `ariasnap keeps named browser pages per session on a local server and
prints their accessibility tree as YAML. Interactive elements carry
[ref=eN] markers that select-ref can click, fill, hover or read.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "YAML config file")
	f.StringVar(&a.sessionID, "session-id", "", "session id (default $"+config.EnvSessionID+")")
	f.StringVar(&a.serverURL, "server", "", "session server url (default "+session.DefaultServerURL+")")
	f.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		listCmd(a),
		createCmd(a),
		gotoCmd(a),
		closeCmd(a),
		infoCmd(a),
		screenshotCmd(a),
		clickCmd(a),
		hoverCmd(a),
		fillCmd(a),
		keyboardCmd(a),
		evaluateCmd(a),
		textCmd(a),
		markdownCmd(a),
		snapshotCmd(a),
		selectRefCmd(a),
		waitSelectorCmd(a),
		waitURLCmd(a),
		waitLoadCmd(a),
		snapshotFileCmd(a),
		serveCmd(a),
		mcpCmd(a),
	)
	return root
}

// setup loads the config, lets env and flags override it and installs
// the JSON logger on stderr.
func (a *app) setup(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFile(a.configPath, false)
		if err != nil {
			return err
		}
	} else {
		cfg = config.Default()
	}
	cfg.ApplyEnv(os.Getenv)

	flags := cmd.Flags()
	if flags.Changed("session-id") {
		cfg.SessionID = a.sessionID
	}
	if flags.Changed("server") {
		cfg.Server.URL = a.serverURL
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg

	a.logger = slog.New(slog.NewJSONHandler(a.stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(a.logger)
	return nil
}

var errServerDown = errors.New("Browser server is not running.")

// connect builds the orchestrating client after checking the server is up.
func (a *app) connect(ctx context.Context) (*client.Client, error) {
	sc, err := session.NewClient(a.cfg.Server.URL, a.cfg.SessionID, session.WithTimeout(a.cfg.Server.HTTPTimeout))
	if err != nil {
		return nil, err
	}
	if err := sc.Ping(ctx); err != nil {
		a.logger.Debug("ariasnap: ping failed", "server", a.cfg.Server.URL, "error", err)
		return nil, errServerDown
	}
	return client.New(sc, client.WithLogger(a.logger)), nil
}

// withPage attaches to the named page, runs fn and disconnects.
func (a *app) withPage(cmd *cobra.Command, name string, fn func(context.Context, client.Page) error) error {
	ctx := cmd.Context()
	c, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Disconnect()

	p, err := c.Page(ctx, name)
	if err != nil {
		return err
	}
	return fn(ctx, p)
}
