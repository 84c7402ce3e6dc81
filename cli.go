package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitOK         = 0
	exitError      = 1
	exitImpossible = 2
)

// exitErr carries the process exit code for a failed command.
type exitErr struct {
	code int
	err  error
}

func (e *exitErr) Error() string { return e.err.Error() }
func (e *exitErr) Unwrap() error { return e.err }

var (
	Version = "dev"
	Commit  = "none"
)

// NewRootCommand builds the wordsearch command tree. Output goes to out,
// diagnostics and logs to errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "wordsearch",
		Short: "Find hidden words in a letter grid",
		Long: `wordsearch locates words hidden in a rectangular grid of letters, reading
in any of the eight straight directions, and reports where each word starts
and ends. It can also serve puzzles over HTTP for collaborative play.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (commit: %s)", Version, Commit),
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	level := func() string {
		if verbose {
			return "debug"
		}
		return "info"
	}

	root.AddCommand(newSolveCommand(level))
	root.AddCommand(newServeCommand(level))
	return root
}

func newSolveCommand(level func() string) *cobra.Command {
	var (
		asJSON  bool
		strict  bool
		workers int
	)

	cmd := &cobra.Command{
		Use:   "solve <puzzle-file>",
		Short: "Print the location of every word in a puzzle file",
		Long: `solve reads a puzzle file and prints one line per word:

  HELLO 0:0 0:4
  BYE doesn't exist in the grid

Files ending in .json or .jsonc are read as JSON documents with "rows",
"cols", "cells" and "words" fields; any other file uses the text format
("5x5" header, one space-separated row per line, then one word per line).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(level(), "text", cmd.ErrOrStderr())
			if workers < 1 {
				return &exitErr{code: exitError, err: fmt.Errorf("--workers must be at least 1, got %d", workers)}
			}

			p, err := LoadPuzzleFile(args[0])
			if err != nil {
				return &exitErr{code: exitError, err: err}
			}
			logger.Debug("puzzle loaded", "file", args[0],
				"rows", p.Grid.Rows(), "cols", p.Grid.Cols(), "words", len(p.Words))

			var results []Result
			switch {
			case strict:
				results, err = SolveStrict(p.Grid, p.Words)
			case workers > 1:
				results, err = SolveParallel(cmd.Context(), p.Grid, p.Words, workers)
			default:
				results = Solve(p.Grid, p.Words)
			}
			if printErr := printResults(cmd.OutOrStdout(), results, asJSON); printErr != nil {
				return &exitErr{code: exitError, err: printErr}
			}
			if errors.Is(err, ErrImpossibleLength) {
				return &exitErr{code: exitImpossible, err: err}
			}
			if err != nil {
				return &exitErr{code: exitError, err: err}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&strict, "strict", false, "Stop at the first word too long for the grid (always sequential, ignores --workers)")
	cmd.Flags().IntVar(&workers, "workers", 1, "Number of words searched concurrently (at least 1)")
	return cmd
}

func printResults(w io.Writer, results []Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, r := range results {
		if _, err := fmt.Fprintln(w, r.String()); err != nil {
			return err
		}
	}
	return nil
}

func newServeCommand(level func() string) *cobra.Command {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the puzzle HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(configPath, os.Getenv)
			if err != nil {
				return &exitErr{code: exitError, err: err}
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("verbose") {
				cfg.LogLevel = level()
			}
			logger := newLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := serve(ctx, cfg, logger); err != nil {
				return &exitErr{code: exitError, err: err}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config and PORT)")
	return cmd
}

func serve(ctx context.Context, cfg Config, logger *slog.Logger) error {
	var extractor puzzleExtractor
	if cfg.Gemini.Project != "" {
		gemini, err := NewGeminiClient(ctx, cfg.Gemini, logger)
		if err != nil {
			return fmt.Errorf("init gemini: %w", err)
		}
		defer gemini.Close()
		extractor = gemini
		logger.Info("gemini client ready", "project", cfg.Gemini.Project, "region", cfg.Gemini.Region)
	} else {
		logger.Info("GCP_PROJECT_ID not set, photo extraction disabled")
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewServer(NewStore(), extractor, cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	logger.Info("server listening", "addr", cfg.Addr)
	go func() {
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return httpSrv.Shutdown(shutdownCtx)
}

// Execute runs root and returns the process exit code.
func Execute(root *cobra.Command, args []string) int {
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)

	var ee *exitErr
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitError
}
