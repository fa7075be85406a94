package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/ariasnap/browser"
	"github.com/hazyhaar/ariasnap/client"
)

// exitCode ends the command with a status after its output is printed.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func timeoutFlag(cmd *cobra.Command, ms *int, def time.Duration) {
	cmd.Flags().IntVar(ms, "timeout", int(def/time.Millisecond), "timeout in milliseconds")
}

func millis(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

func waitSelectorCmd(a *app) *cobra.Command {
	var timeout int
	cmd := &cobra.Command{
		Use:   "wait-selector <name> <selector>",
		Short: "Wait until a CSS selector matches",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel := args[1]
			return a.withPage(cmd, args[0], func(ctx context.Context, p client.Page) error {
				if err := p.WaitSelector(ctx, sel, millis(timeout)); err != nil {
					return fmt.Errorf("Timeout waiting for selector '%s': %w", sel, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Selector found: %s\n", sel)
				return nil
			})
		},
	}
	timeoutFlag(cmd, &timeout, 30*time.Second)
	return cmd
}

func waitURLCmd(a *app) *cobra.Command {
	var timeout int
	cmd := &cobra.Command{
		Use:   "wait-url <name> <pattern>",
		Short: "Wait until the page url contains a substring or matches /regexp/",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPage(cmd, args[0], func(ctx context.Context, p client.Page) error {
				url, err := p.WaitURL(ctx, args[1], millis(timeout))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "URL matched: %s\n", url)
				return nil
			})
		},
	}
	timeoutFlag(cmd, &timeout, 30*time.Second)
	return cmd
}

func waitLoadCmd(a *app) *cobra.Command {
	var (
		timeout int
		noIdle  bool
	)
	cmd := &cobra.Command{
		Use:   "wait-load <name>",
		Short: "Wait for the document and its critical requests to finish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := browser.DefaultLoadOptions()
			opts.Timeout = millis(timeout)
			opts.WaitForNetworkIdle = !noIdle
			return a.withPage(cmd, args[0], func(ctx context.Context, p client.Page) error {
				res, err := p.WaitLoad(ctx, opts)
				if err != nil {
					return err
				}
				printLoadResult(cmd, res)
				if !res.Success {
					return exitCode(1)
				}
				return nil
			})
		},
	}
	timeoutFlag(cmd, &timeout, 10*time.Second)
	cmd.Flags().BoolVar(&noIdle, "no-network-idle", false, "only wait for document.readyState")
	return cmd
}

func printLoadResult(cmd *cobra.Command, res browser.LoadResult) {
	out := cmd.OutOrStdout()
	if res.Success {
		fmt.Fprintln(out, "Page loaded successfully")
	} else {
		fmt.Fprintln(out, "Page load timed out")
	}
	fmt.Fprintf(out, "  Ready state: %s\n", res.ReadyState)
	if !res.Success {
		fmt.Fprintf(out, "  Pending requests: %d\n", res.PendingRequests)
	}
	fmt.Fprintf(out, "  Wait time: %dms\n", res.WaitTimeMS)
}

func isExitCode(err error) (int, bool) {
	var ec exitCode
	if errors.As(err, &ec) {
		return int(ec), true
	}
	return 0, false
}
