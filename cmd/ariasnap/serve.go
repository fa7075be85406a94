package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/ariasnap/browser"
	"github.com/hazyhaar/ariasnap/client"
	"github.com/hazyhaar/ariasnap/session"
)

const version = "0.1.0"

func serveCmd(a *app) *cobra.Command {
	var (
		listen  string
		dbPath  string
		remote  string
		headful bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session server in front of a Chrome instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			flags := cmd.Flags()
			if flags.Changed("listen") {
				cfg.Server.Listen = listen
			}
			if flags.Changed("db") {
				cfg.Server.DB = dbPath
			}
			if flags.Changed("remote") {
				cfg.Browser.Remote = remote
			}
			if flags.Changed("headful") {
				cfg.Browser.Headful = headful
			}
			return a.serve(cmd.Context())
		},
	}
	f := cmd.Flags()
	f.StringVar(&listen, "listen", "", "listen address (default from config, 127.0.0.1:9222)")
	f.StringVar(&dbPath, "db", "", "SQLite file holding the page registry")
	f.StringVar(&remote, "remote", "", "DevTools WebSocket URL of a running Chrome")
	f.BoolVar(&headful, "headful", false, "show the launched browser window")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	logger := a.logger

	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		Headful:          cfg.Browser.Headful,
		Stealth:          cfg.Browser.Stealth,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		NavigateTimeout:  cfg.Browser.NavigateTimeout,
		Logger:           logger,
	})
	if _, err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer mgr.Close()

	store, err := session.OpenStore(cfg.Server.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions := session.NewServer(store, mgr, session.WithServerLogger(logger))
	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           sessions.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Server.Listen, "ws", mgr.WSEndpoint(), "db", cfg.Server.DB)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("server stopped")
	return nil
}

func mcpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Expose the session's pages as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Disconnect()

			srv := mcp.NewServer(&mcp.Implementation{Name: "ariasnap", Version: version}, nil)
			client.RegisterMCP(srv, c)
			a.logger.Info("mcp: serving on stdio", "session", a.cfg.SessionID)
			return srv.Run(ctx, &mcp.StdioTransport{})
		},
	}
}
