package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"ownck/internal/diagfmt"
	"ownck/internal/driver"
	"ownck/internal/project"
	"ownck/internal/source"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <file|directory>",
	Short: "Check an operation log or every log in a directory",
	Long: `Check replays operation logs (*.own text logs, YAML or JSON documents)
and reports ownership violations. Directories are searched with the include and
exclude globs of the nearest ownck.toml.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json|short)")
	checkCmd.Flags().Int("jobs", 0, "max parallel workers for directory processing (0=auto)")
	checkCmd.Flags().Bool("require-mut", false, "reject exclusive borrows of bindings not declared mut")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	checkCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	checkCmd.Flags().Bool("no-cache", false, "do not read or write the verdict cache")
	checkCmd.Flags().String("ui", "auto", "progress view for directories (auto|on|off)")
	checkCmd.Flags().Bool("watch", false, "re-check when files change")
}

type checkSettings struct {
	format    string
	withNotes bool
	pathMode  source.PathMode
	useColor  bool
	quiet     bool
	timings   bool
	ui        uiMode
	watch     bool
}

func runCheck(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()
	target := args[0]

	st, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}
	settings, err := readCheckSettings(cmd)
	if err != nil {
		return err
	}
	manifest, err := discoverManifest(target)
	if err != nil {
		return err
	}

	cleanupTrace, err := setupTracing(cmd, manifest.Config.Trace)
	if err != nil {
		return err
	}
	defer cleanupTrace()
	cleanupProf, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer cleanupProf()

	opts, err := checkOptions(cmd, manifest, settings)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	run := func() (int, error) {
		if st.IsDir() {
			return checkDirectory(ctx, cmd, target, opts, settings)
		}
		return checkSingleFile(ctx, cmd, target, opts, settings)
	}

	exit, err := run()
	if err != nil {
		return err
	}
	if settings.watch {
		out := cmd.ErrOrStderr()
		fmt.Fprintf(out, "watching %s (ctrl+c to stop)\n", target)
		return driver.Watch(ctx, target, driver.WatchOptions{Matcher: opts.Matcher}, func(changed []string) {
			fmt.Fprintf(out, "\n--- %d file(s) changed, re-checking ---\n", len(changed))
			if _, err := run(); err != nil {
				fmt.Fprintln(out, "error:", err)
			}
		})
	}
	if exit != 0 {
		return exitError{code: exit}
	}
	return nil
}

func readCheckSettings(cmd *cobra.Command) (checkSettings, error) {
	var s checkSettings
	var err error
	if s.format, err = cmd.Flags().GetString("format"); err != nil {
		return s, fmt.Errorf("failed to get format flag: %w", err)
	}
	switch s.format {
	case "pretty", "json", "short":
	default:
		return s, fmt.Errorf("unknown format: %s", s.format)
	}
	if s.withNotes, err = cmd.Flags().GetBool("with-notes"); err != nil {
		return s, fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return s, fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	s.pathMode = source.PathAuto
	if fullPath {
		s.pathMode = source.PathAbsolute
	}
	if s.useColor, err = colorEnabled(cmd); err != nil {
		return s, err
	}
	if s.quiet, err = cmd.Root().PersistentFlags().GetBool("quiet"); err != nil {
		return s, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if s.timings, err = cmd.Root().PersistentFlags().GetBool("timings"); err != nil {
		return s, fmt.Errorf("failed to get timings flag: %w", err)
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return s, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if s.ui, err = readUIMode(uiValue); err != nil {
		return s, err
	}
	if s.watch, err = cmd.Flags().GetBool("watch"); err != nil {
		return s, fmt.Errorf("failed to get watch flag: %w", err)
	}
	return s, nil
}

// checkOptions layers flags over the manifest over the defaults.
func checkOptions(cmd *cobra.Command, manifest *project.Manifest, settings checkSettings) (driver.Options, error) {
	cfg := manifest.Config
	opts := driver.OptionsFromConfig(cfg)

	flags := cmd.Flags()
	if flags.Changed("require-mut") {
		v, err := flags.GetBool("require-mut")
		if err != nil {
			return opts, err
		}
		opts.RequireMutable = v
	}
	if flags.Changed("jobs") {
		v, err := flags.GetInt("jobs")
		if err != nil {
			return opts, err
		}
		opts.Jobs = v
	}
	if cmd.Root().PersistentFlags().Changed("max-diagnostics") {
		v, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
		if err != nil {
			return opts, err
		}
		opts.MaxDiagnostics = v
	}
	// в json тайминги едут диагностикой, в остальных форматах печатаются сводкой
	opts.EnableTimings = settings.timings && settings.format == "json"

	matcher, err := project.NewMatcher(cfg.Check.Include, cfg.Check.Exclude)
	if err != nil {
		return opts, err
	}
	opts.Matcher = matcher

	noCache, err := flags.GetBool("no-cache")
	if err != nil {
		return opts, fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	if cfg.Cache.Enabled && !noCache {
		cache, err := openCache(manifest)
		if err != nil {
			if !settings.quiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: verdict cache disabled: %v\n", err)
			}
		} else {
			opts.Cache = cache
		}
	}
	return opts, nil
}

func openCache(manifest *project.Manifest) (*driver.DiskCache, error) {
	dir := manifest.Config.Cache.Dir
	if dir == "" {
		return driver.OpenDiskCache("ownck")
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(manifest.Root, dir)
	}
	return driver.OpenDiskCacheAt(dir)
}

func checkSingleFile(ctx context.Context, cmd *cobra.Command, path string, opts driver.Options, s checkSettings) (int, error) {
	fs := source.NewFileSet()
	res, err := driver.CheckFile(ctx, fs, path, opts)
	if err != nil {
		return 0, err
	}
	out := cmd.OutOrStdout()
	switch s.format {
	case "pretty":
		diagfmt.Pretty(out, res.Bag, fs, s.prettyOpts())
		if !s.quiet && !res.HasErrors() {
			fmt.Fprintf(out, "%s: ok (%d ops)\n", path, res.OpCount)
		}
	case "short":
		if err := diagfmt.Short(out, res.Bag, fs, s.withNotes); err != nil {
			return 0, err
		}
	case "json":
		if err := diagfmt.JSON(out, res.Bag, fs, s.jsonOpts()); err != nil {
			return 0, fmt.Errorf("failed to format diagnostics: %w", err)
		}
	}
	if s.timings && s.format != "json" {
		fmt.Fprint(cmd.ErrOrStderr(), res.Timer.Summary())
	}
	if res.HasErrors() {
		return 1, nil
	}
	return 0, nil
}

func checkDirectory(ctx context.Context, cmd *cobra.Command, dir string, opts driver.Options, s checkSettings) (int, error) {
	var (
		res *driver.DirResult
		err error
	)
	if !s.quiet && s.format == "pretty" && shouldUseTUI(s.ui, s.watch) {
		res, err = checkDirWithUI(ctx, "checking "+dir, dir, opts)
	} else {
		res, err = driver.CheckDir(ctx, dir, opts)
	}
	if err != nil {
		return 0, fmt.Errorf("check failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fs := res.FileSet
	switch s.format {
	case "pretty":
		failed := 0
		for _, r := range res.Files {
			if r.Bag.Len() == 0 {
				continue
			}
			if r.HasErrors() {
				failed++
			}
			fmt.Fprintf(out, "== %s ==\n", fs.Get(r.FileID).FormatPath(s.pathMode, fs.BaseDir()))
			diagfmt.Pretty(out, r.Bag, fs, s.prettyOpts())
			fmt.Fprintln(out)
		}
		if !s.quiet {
			fmt.Fprintf(out, "checked %d file(s), %d with errors\n", len(res.Files), failed)
		}
	case "short":
		if err := diagfmt.Short(out, res.Bag(), fs, s.withNotes); err != nil {
			return 0, err
		}
	case "json":
		if err := writeDirJSON(out, res, s); err != nil {
			return 0, err
		}
	}
	if s.timings && s.format != "json" {
		fmt.Fprint(cmd.ErrOrStderr(), res.Timer.Summary())
	}
	if res.HasErrors() {
		return 1, nil
	}
	return 0, nil
}

func writeDirJSON(out io.Writer, res *driver.DirResult, s checkSettings) error {
	fs := res.FileSet
	output := make(map[string]diagfmt.DiagnosticsOutput, len(res.Files))
	for _, r := range res.Files {
		displayPath := fs.Get(r.FileID).FormatPath(s.pathMode, fs.BaseDir())
		output[displayPath] = diagfmt.BuildDiagnosticsOutput(r.Bag, fs, s.jsonOpts())
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		return fmt.Errorf("failed to encode diagnostics output: %w", err)
	}
	return nil
}

func (s checkSettings) prettyOpts() diagfmt.PrettyOpts {
	return diagfmt.PrettyOpts{
		Color:     s.useColor,
		PathMode:  s.pathMode,
		ShowNotes: s.withNotes,
	}
}

func (s checkSettings) jsonOpts() diagfmt.JSONOpts {
	return diagfmt.JSONOpts{
		IncludePositions: true,
		PathMode:         s.pathMode,
		IncludeNotes:     s.withNotes,
	}
}
