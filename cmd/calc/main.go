// Package main is the entry point of the calc command: a five-function
// calculator usable one-shot, interactively, over batches of YAML cases or as
// a REST, gRPC and web server.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/five-function-calculator/pkg/calc"
	"github.com/lemonberrylabs/five-function-calculator/pkg/config"
	"github.com/lemonberrylabs/five-function-calculator/pkg/trace"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "calc",
		Short:        "Five-function calculator",
		SilenceUsage: true,
		Version:      versionString(),
	}
	root.SetVersionTemplate("calc version {{.Version}}\n")

	root.PersistentFlags().String("config", "", "YAML config file (env CALC_CONFIG)")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (default info, env LOG_LEVEL)")

	root.AddCommand(
		newEvalCmd(),
		newBatchCmd(),
		newReplCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return root
}

func versionString() string {
	return version + " (commit=" + commit + ", built=" + date + ")"
}

// loadConfig layers flags over env over the config file over defaults.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path := os.Getenv("CALC_CONFIG")
	if v, _ := cmd.Flags().GetString("config"); v != "" {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	return cfg, nil
}

// newLogger writes human-readable logs to a terminal and JSON otherwise.
func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	out := w
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "calc version %s\n", versionString())
		},
	}
}

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate one expression",
		Long: "Evaluate one expression and print the result, or ERROR, OVERFLOW or UNDERFLOW.\n" +
			"Use -- before expressions that start with a minus sign.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			withTrace, _ := cmd.Flags().GetBool("trace")

			var sink trace.Sink = trace.Discard
			var tl *trace.Tracelog
			if withTrace {
				tl = trace.Open(trace.Options{})
				sink = tl
			}

			result := calc.New(sink).Calculate(args[0])
			if tl != nil {
				for _, line := range tl.Lines() {
					fmt.Fprintln(cmd.ErrOrStderr(), line)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().Bool("trace", false, "Print trace events to stderr")
	return cmd
}

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Evaluate expressions read line by line from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := ""
			if f, ok := cmd.InOrStdin().(*os.File); ok && isatty.IsTerminal(f.Fd()) {
				prompt = "> "
			}
			return repl(cmd.InOrStdin(), cmd.OutOrStdout(), prompt)
		},
	}
}

// repl evaluates each non-empty line of in. The word "exit" or "quit" ends
// the loop as does end of input.
func repl(in io.Reader, out io.Writer, prompt string) error {
	c := calc.New(trace.Discard)
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt)
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		fmt.Fprintln(out, c.Calculate(line))
	}
	if prompt != "" {
		fmt.Fprintln(out)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}
