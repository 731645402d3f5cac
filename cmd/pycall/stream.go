package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pycall/internal/logging"
	"pycall/internal/streaming"
)

func newStreamCommand() *cobra.Command {
	var chunkSize int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stream [file]",
		Short: "Replay a response as a chunked stream and print the deltas",
		Long: `Feeds the input through the streaming engine in fixed-size chunks, the
way it would arrive from a model, and prints every delta as it settles.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			var data []byte
			if len(args) == 1 {
				if data, err = os.ReadFile(args[0]); err != nil {
					return err
				}
			} else {
				if data, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			st := streaming.NewState(streaming.Options{
				Limits:           cfg.Limits.ParserLimits(),
				Lexer:            cfg.Dialect.LexerOptions(),
				ProvisionalIndex: cfg.Extract.ProvisionalIndex,
				Logger:           logging.FromObservability(log, "stream"),
			})

			out := cmd.OutOrStdout()
			text := string(data)
			for off := 0; off < len(text); off += chunkSize {
				end := min(off+chunkSize, len(text))
				if err := printDelta(out, st.AdvanceChunk(text[off:end]), asJSON); err != nil {
					return err
				}
			}
			return printDelta(out, st.Finalize(), asJSON)
		},
	}
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 16, "Bytes per replayed chunk")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw JSON deltas")
	return cmd
}

func printDelta(w io.Writer, d *streaming.Delta, asJSON bool) error {
	if d == nil {
		return nil
	}
	if asJSON || !stdoutIsTTY() {
		return json.NewEncoder(w).Encode(d)
	}
	if d.Content != "" {
		fmt.Fprintf(w, "%s %q\n", yellow("content"), d.Content)
	}
	for _, tc := range d.ToolCalls {
		switch {
		case tc.ID != "":
			fmt.Fprintf(w, "%s %s %s %s\n", faint(fmt.Sprintf("#%d", tc.Index)),
				faint(tc.ID), cyan(tc.Function.Name), tc.Function.Arguments)
		default:
			fmt.Fprintf(w, "%s %s\n", faint(fmt.Sprintf("#%d", tc.Index)), tc.Function.Arguments)
		}
	}
	return nil
}
