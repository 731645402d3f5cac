package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"pycall/internal/extract"
	"pycall/internal/logging"
)

var (
	bold    = color.New(color.Bold).SprintFunc()
	cyan    = color.New(color.FgCyan).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
	redBold = color.New(color.FgRed, color.Bold).SprintFunc()
)

func newExtractCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "extract [files...]",
		Short: "Extract tool calls from files or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			e := extract.New(extract.Options{
				Limits:       cfg.Limits.ParserLimits(),
				Lexer:        cfg.Dialect.LexerOptions(),
				Flatten:      cfg.Extract.Flattening(),
				JSONFallback: cfg.Extract.Fallback(),
				CacheSize:    cfg.Extract.Cache(),
				Logger:       logging.FromObservability(log, "extract"),
			})

			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), "", e.Extract(string(data)), asJSON)
			}

			// Files are extracted concurrently but printed in order.
			results := make([]*extract.Result, len(args))
			var g errgroup.Group
			for i, path := range args {
				g.Go(func() error {
					data, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					results[i] = e.Extract(string(data))
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			for i, path := range args {
				label := ""
				if len(args) > 1 {
					label = path
				}
				if err := render(cmd.OutOrStdout(), label, results[i], asJSON); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw JSON instead of pretty output")
	return cmd
}

func render(w io.Writer, label string, res *extract.Result, asJSON bool) error {
	if asJSON || !stdoutIsTTY() {
		enc := json.NewEncoder(w)
		return enc.Encode(res)
	}

	if label != "" {
		fmt.Fprintln(w, bold(label))
	}
	if res.Err != nil {
		fmt.Fprintf(w, "%s %s\n", redBold("limit:"), res.Err)
	}
	if !res.ToolsCalled {
		fmt.Fprintln(w, faint("no tool calls"))
		if res.Content != "" {
			fmt.Fprintln(w, res.Content)
		}
		return nil
	}
	for _, tc := range res.ToolCalls {
		fmt.Fprintf(w, "%s %s %s\n", faint(tc.ID), cyan(tc.Function.Name), tc.Function.Arguments)
	}
	if res.Content != "" {
		fmt.Fprintf(w, "%s %s\n", yellow("content:"), res.Content)
	}
	return nil
}

var ttyOnce = sync.OnceValue(func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
})

func stdoutIsTTY() bool { return ttyOnce() }
