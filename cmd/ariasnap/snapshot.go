package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/ariasnap/aria"
	"github.com/hazyhaar/ariasnap/browser"
	"github.com/hazyhaar/ariasnap/client"
	"github.com/hazyhaar/ariasnap/internal/fetcher"
)

func snapshotCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <name>",
		Short: "Print the accessibility snapshot of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPage(cmd, args[0], func(ctx context.Context, p client.Page) error {
				snap, err := p.Snapshot(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), snap.Text)
				return nil
			})
		},
	}
}

func selectRefCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "select-ref <name> <ref> <action> [value]",
		Short: "Act on an element by snapshot ref (click, fill, hover, text)",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value string
			if len(args) == 4 {
				value = args[3]
			}
			action, err := browser.ParseAction(args[2])
			if err != nil {
				return err
			}
			if action == browser.ActionFill && value == "" {
				return fmt.Errorf("fill action requires a value")
			}

			ctx := cmd.Context()
			c, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Disconnect()

			res, err := c.SelectRef(ctx, args[0], args[1], string(action), value)
			if err != nil {
				return err
			}
			if action == browser.ActionText {
				res = orEmpty(res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

// snapshotFileCmd snapshots static HTML without a browser. Only the
// stylesheets and inline styles of the document itself are applied.
func snapshotFileCmd(a *app) *cobra.Command {
	var (
		showRefs bool
		scope    string
	)
	cmd := &cobra.Command{
		Use:   "snapshot-file <path|url|->",
		Short: "Snapshot a static HTML file, URL or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f := fetcher.New(fetcher.WithLogger(a.logger))
			res, err := f.Load(ctx, args[0])
			if err != nil {
				return err
			}
			if !res.Sufficient {
				a.logger.Warn("document looks client-rendered; the snapshot may be sparse, use a browser page instead",
					"source", args[0])
			}
			doc, err := res.Document()
			if err != nil {
				return err
			}

			s := aria.New(aria.WithLogger(a.logger))
			var snap *aria.Snapshot
			if scope != "" {
				el, err := doc.Query(scope)
				if err != nil {
					return err
				}
				if el == nil {
					return fmt.Errorf("no element matches %q", scope)
				}
				snap, err = s.BuildFrom(doc, el)
				if err != nil {
					return err
				}
			} else {
				snap, err = s.Build(doc)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, snap.Text)
			if showRefs {
				fmt.Fprintln(out)
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, ref := range snap.Registry.Refs() {
					el, _ := snap.Registry.Lookup(ref)
					fmt.Fprintf(tw, "%s\t%s\n", ref, doc.XPath(el))
				}
				return tw.Flush()
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showRefs, "refs", false, "also print the XPath of every ref")
	cmd.Flags().StringVar(&scope, "scope", "", "XPath of the subtree to snapshot instead of body")
	return cmd
}
