package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/ariasnap/session"
)

func listCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pages in the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			pages, err := c.ListPages(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(pages) == 0 {
				fmt.Fprintln(out, "No pages in current session.")
				return nil
			}
			fmt.Fprintf(out, "Pages in session (%d):\n", len(pages))
			for _, p := range pages {
				label := p.Title
				if label == "" {
					label = p.URL
				}
				if label == "" {
					label = "(empty)"
				}
				fmt.Fprintf(out, "  - %s: %s\n", p.Name, label)
			}
			return nil
		},
	}
}

func createCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> [url]",
		Short: "Create a named page",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			var url string
			if len(args) == 2 {
				url = args[1]
			}
			info, err := c.CreatePage(cmd.Context(), args[0], url)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created page: %s\n", info.Name)
			fmt.Fprintf(out, "  targetId: %s\n", info.TargetID)
			if url != "" {
				fmt.Fprintf(out, "  url: %s\n", url)
			}
			return nil
		},
	}
}

func gotoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "goto <name> <url>",
		Short: "Navigate a page, creating it if needed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Disconnect()

			title, _, err := c.Goto(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Navigated to: %s\nTitle: %s\n", args[1], title)
			return nil
		},
	}
}

func closeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "close <name>",
		Short: "Close a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			err = c.ClosePage(cmd.Context(), args[0])
			if errors.Is(err, session.ErrNotFound) {
				return fmt.Errorf("Page '%s' not found", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Closed page: %s\n", args[0])
			return nil
		},
	}
}

func infoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>",
		Short: "Show page title, url and target id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Disconnect()

			info, err := c.PageInfo(ctx, args[0])
			if err != nil {
				return err
			}
			p, err := c.Page(ctx, args[0])
			if err != nil {
				return err
			}
			title, url, err := p.Info(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Page: %s\n", args[0])
			fmt.Fprintf(out, "  Title: %s\n", title)
			fmt.Fprintf(out, "  URL: %s\n", url)
			fmt.Fprintf(out, "  Target ID: %s\n", info.TargetID)
			return nil
		},
	}
}
