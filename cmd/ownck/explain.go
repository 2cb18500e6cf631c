package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ownck/internal/diag"
)

var explainCmd = &cobra.Command{
	Use:   "explain [CODE]",
	Short: "Describe a diagnostic code",
	Long: `Explain prints what a diagnostic code means and a short log that triggers it.
Without an argument it lists every code.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExplain,
}

type explanation struct {
	text    string
	example string
}

var explanations = map[diag.Code]explanation{
	diag.SynUnexpectedToken: {
		text:    "A document operation has a field the format does not know.",
		example: "- {op: declare, name: a, colour: red}",
	},
	diag.SynUnknownOp: {
		text:    "The line does not start with a known operation.",
		example: "teleport a",
	},
	diag.SynExpectName: {
		text:    "An operation is missing a binding, reference or scope name, or the name is not an identifier.",
		example: "declare",
	},
	diag.SynBadBorrowKind: {
		text:    "Borrows are either shared (shared, ref, &) or exclusive (exclusive, excl, mut, &mut).",
		example: "borrow a sideways",
	},
	diag.SynTrailingTokens: {
		text:    "The operation is complete but the line goes on.",
		example: "use a b",
	},
	diag.SynBadDocument: {
		text:    "The YAML or JSON document is malformed or an operation has no op field.",
		example: "ops: [",
	},
	diag.SynScopeNotOpen: {
		text:    "The operation names a scope that is not open. Only declare opens a scope on demand.",
		example: "declare a\nborrow a in nowhere",
	},
	diag.SynScopeAlreadyOpen: {
		text:    "A scope with this name is already open.",
		example: "enter s\nenter s",
	},
	diag.SynInvalidOp: {
		text: "The operation is structurally invalid.",
	},
	diag.OwnDuplicateBinding: {
		text:    "A live binding with the same name already exists in the target scope. Shadowing in a nested scope is allowed.",
		example: "declare a\ndeclare a",
	},
	diag.OwnUseAfterMove: {
		text:    "The binding gave its value away with move and holds nothing any more.",
		example: "declare a\nmove a -> b\nuse a",
	},
	diag.OwnConflictingBorrow: {
		text: "The operation needs access that an active borrow forbids: an exclusive borrow next to any other borrow, " +
			"moving a borrowed value, or using an owner while it is exclusively borrowed.",
		example: "declare mut a\nborrow a exclusive as w\nborrow a shared",
	},
	diag.OwnDanglingReference: {
		text:    "The reference outlives the value it borrows, usually because the owner's scope ended first.",
		example: "enter outer\nenter inner\ndeclare v\nborrow v shared as r in outer\nend inner\nuse r",
	},
	diag.OwnUnknownBinding: {
		text:    "No live binding has this name: it was never declared, its scope ended or it was released.",
		example: "use ghost",
	},
	diag.OwnImmutableBorrow: {
		text:    "With --require-mut, exclusive borrows need a binding declared mut.",
		example: "declare a\nborrow a exclusive",
	},
	diag.IOLoadFileError: {
		text: "The file could not be read.",
	},
	diag.IOCacheError: {
		text: "The verdict cache could not be written. Checking still works; use --no-cache to silence it.",
	},
	diag.ProjBadConfig: {
		text:    "ownck.toml could not be decoded, has unknown keys or invalid values.",
		example: "[check]\njobs = -1",
	},
	diag.ObsTimings: {
		text: "Phase timings requested with --timings; the note carries the JSON report.",
	},
}

func runExplain(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		for _, c := range diag.Codes() {
			if _, ok := explanations[c]; ok {
				fmt.Fprintf(out, "%-8s %s\n", c.ID(), c.Title())
			}
		}
		return nil
	}
	code, ok := diag.ParseCode(args[0])
	if !ok {
		return fmt.Errorf("unknown diagnostic code %q", args[0])
	}
	writeExplanation(out, code)
	return nil
}

func writeExplanation(out io.Writer, code diag.Code) {
	bold := color.New(color.Bold)
	fmt.Fprintf(out, "%s: %s\n\n", bold.Sprint(code.ID()), code.Title())
	ex, ok := explanations[code]
	if !ok {
		return
	}
	fmt.Fprintln(out, ex.text)
	if ex.example != "" {
		fmt.Fprintln(out, "\nexample:")
		for _, line := range strings.Split(ex.example, "\n") {
			fmt.Fprintf(out, "    %s\n", line)
		}
	}
}
