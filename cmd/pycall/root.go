package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pycall/internal/config"
	"pycall/internal/observability"
)

const version = "0.3.0"

// NewRootCommand builds the pycall command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pycall",
		Short: "Extract pythonic tool calls from model output",
		Long: `pycall reads free-form LLM output and extracts pythonic tool calls
([get_weather(location="Oslo")] and friends) into OpenAI-style records.

EXAMPLES:
  pycall extract response.txt        # Extract calls from a file
  cat response.txt | pycall extract  # Extract calls from stdin
  pycall stream response.txt         # Replay a response as a chunked stream
  pycall serve                       # Run the HTTP/WebSocket server`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default: pycall.yaml in . or $HOME)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text, json")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(newExtractCommand())
	rootCmd.AddCommand(newStreamCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}

// loadConfig resolves the effective configuration: an explicit --config
// path, else a pycall.yaml found next to the process or in $HOME, else
// defaults, with flag and environment overrides on top.
func loadConfig() (*config.Config, error) {
	path := viper.GetString("config")
	if path == "" {
		viper.SetConfigName("pycall")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		if err := viper.ReadInConfig(); err == nil {
			path = viper.ConfigFileUsed()
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if lvl := viper.GetString("log.level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if format := viper.GetString("log.format"); format != "" {
		cfg.Log.Format = format
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *observability.Logger {
	return observability.NewLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pycall %s\n", version)
		},
	}
}
