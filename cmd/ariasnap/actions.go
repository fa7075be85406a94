package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/ariasnap/client"
)

func screenshotCmd(a *app) *cobra.Command {
	var fullPage bool
	cmd := &cobra.Command{
		Use:   "screenshot <name> [out]",
		Short: "Save a PNG screenshot of a page",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := args[0] + ".png"
			if len(args) == 2 {
				out = args[1]
			}
			return a.withPage(cmd, args[0], func(ctx context.Context, p client.Page) error {
				png, err := p.Screenshot(ctx, fullPage)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, png, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Screenshot saved to: %s\n", out)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&fullPage, "full-page", false, "capture the whole scrollable page")
	return cmd
}

func clickCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "click <name> <selector>",
		Short: "Click the element matching a CSS selector",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPage(cmd, args[0], func(ctx context.Context, p client.Page) error {
				if err := p.Click(ctx, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Clicked: %s\n", args[1])
				return nil
			})
		},
	}
}

func hoverCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hover <name> <selector>",
		Short: "Move the mouse over the element matching a CSS selector",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPage(cmd, args[0], func(ctx context.Context, p client.Page) error {
				if err := p.Hover(ctx, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Hovered: %s\n", args[1])
				return nil
			})
		},
	}
}

func fillCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fill <name> <selector> <text>",
		Short: "Replace the value of an input",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPage(cmd, args[0], func(ctx context.Context, p client.Page) error {
				if err := p.Fill(ctx, args[1], args[2]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Filled '%s' with: %s\n", args[1], args[2])
				return nil
			})
		},
	}
}

func keyboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keyboard <name> <key>",
		Short: "Press a key or combination such as Enter or Control+a",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPage(cmd, args[0], func(ctx context.Context, p client.Page) error {
				if err := p.Press(ctx, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pressed key: %s\n", args[1])
				return nil
			})
		},
	}
}

func evaluateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate <name> <script>",
		Short: "Evaluate JavaScript in the page and print the JSON result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPage(cmd, args[0], func(ctx context.Context, p client.Page) error {
				res, err := p.Evaluate(ctx, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Result: %s\n", res)
				return nil
			})
		},
	}
}

func textCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "text <name> <selector>",
		Short: "Print the text content of an element",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPage(cmd, args[0], func(ctx context.Context, p client.Page) error {
				s, err := p.Text(ctx, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), orEmpty(s))
				return nil
			})
		},
	}
}

func markdownCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "markdown <name>",
		Short: "Print the page content converted to Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPage(cmd, args[0], func(ctx context.Context, p client.Page) error {
				md, err := p.Markdown(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), md)
				return nil
			})
		},
	}
}

func orEmpty(s string) string {
	if s == "" {
		return "(empty)"
	}
	return s
}
