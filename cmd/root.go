package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clintro/internal/cl"
)

// openAPI is swapped out by tests.
var openAPI = cl.New

type rootOptions struct {
	logLevel   string
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	run := &runOptions{}

	rootCmd := &cobra.Command{
		Use:   "clintro",
		Short: "Run a tiny OpenCL kernel and print its result",
		Long: `clintro discovers an OpenCL platform and GPU, builds a kernel that adds
two floats, runs it on a single work-item and prints the result.

Without a subcommand it behaves like "clintro run" with default operands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(newLogger(cmd.ErrOrStderr(), opts.logLevel))
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd, opts, run)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Optional YAML config file")

	rootCmd.AddCommand(
		newRunCmd(opts, run),
		newDevicesCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// newLogger builds the JSON logger. Logs go to stderr so stdout only carries
// command output.
func newLogger(w io.Writer, logLevel string) *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	return slog.New(slog.NewJSONHandler(w, opts))
}
