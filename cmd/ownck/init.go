package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ownck/internal/diag"
	"ownck/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create an ownck.toml and an example log",
	Long: `Initialize a directory by writing a default ownck.toml and an example
main.own. If [dir] is omitted the current directory is used; a missing
directory is created.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

// exampleLog is written as main.own by init.
const exampleLog = `# every line is one operation, see "ownck explain" for the rules
enter main
declare mut buf
borrow buf shared as view
use view
release view
borrow buf exclusive as writer
use writer
end main
`

func runInit(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) == 1 {
		target = args[0]
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return err
	}

	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err = os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	manifestPath := filepath.Join(target, project.ManifestName)
	if _, err := os.Stat(manifestPath); err == nil {
		return fmt.Errorf("project already initialized: %s exists", manifestPath)
	}
	if err := os.WriteFile(manifestPath, []byte(project.DefaultManifest), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", manifestPath, err)
	}
	created := []string{manifestPath}

	logPath := filepath.Join(target, "main.own")
	if _, err := os.Stat(logPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(logPath, []byte(exampleLog), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", logPath, err)
		}
		created = append(created, logPath)
	}

	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if !quiet {
		for _, p := range created {
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", p)
		}
	}
	return nil
}

// discoverManifest finds the ownck.toml governing target. A broken manifest
// is reported under its diagnostic code so "ownck explain" can describe it.
func discoverManifest(target string) (*project.Manifest, error) {
	manifest, _, err := project.Discover(target)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", diag.ProjBadConfig.ID(), err)
	}
	return manifest, nil
}
