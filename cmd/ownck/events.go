package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ownck/internal/diagfmt"
	"ownck/internal/driver"
	"ownck/internal/source"
)

var eventsCmd = &cobra.Command{
	Use:   "events [flags] <file>",
	Short: "Print the checker event log of an operation log",
	Long: `Events replays one operation log and prints every scope, binding, borrow
and drop event up to the end of the log or the first violation.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().String("format", "text", "output format (text|json)")
	eventsCmd.Flags().Bool("require-mut", false, "reject exclusive borrows of bindings not declared mut")
}

func runEvents(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()
	path := args[0]

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}
	useColor, err := colorEnabled(cmd)
	if err != nil {
		return err
	}

	manifest, err := discoverManifest(path)
	if err != nil {
		return err
	}
	cleanupTrace, err := setupTracing(cmd, manifest.Config.Trace)
	if err != nil {
		return err
	}
	defer cleanupTrace()

	opts := driver.OptionsFromConfig(manifest.Config)
	opts.KeepEvents = true
	if cmd.Flags().Changed("require-mut") {
		if opts.RequireMutable, err = cmd.Flags().GetBool("require-mut"); err != nil {
			return err
		}
	}

	fs := source.NewFileSet()
	res, err := driver.CheckFile(cmd.Context(), fs, path, opts)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !res.Checked {
		// без событий: лог не разобрался или операция некорректна
		diagfmt.Pretty(os.Stderr, res.Bag, fs, diagfmt.PrettyOpts{Color: useColor})
		return exitError{code: 1}
	}
	if format == "json" {
		err = diagfmt.EventsJSON(out, res.Result)
	} else {
		err = diagfmt.EventsText(out, res.Result, useColor)
	}
	if err != nil {
		return err
	}
	if res.HasErrors() {
		return exitError{code: 1}
	}
	return nil
}
