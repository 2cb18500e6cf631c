package main

import (
	"fmt"
	"os"
	"strings"
)

// uiMode selects the directory progress display.
type uiMode uint8

const (
	uiAuto uiMode = iota
	uiOn
	uiOff
)

var uiModeNames = map[string]uiMode{
	"":      uiAuto,
	"auto":  uiAuto,
	"on":    uiOn,
	"true":  uiOn,
	"off":   uiOff,
	"false": uiOff,
}

func readUIMode(value string) (uiMode, error) {
	mode, ok := uiModeNames[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return uiAuto, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
	return mode, nil
}

// shouldUseTUI decides whether a directory check shows the progress view.
// The view draws on stderr; in watch mode every re-check would redraw it,
// so auto turns it off there.
func shouldUseTUI(mode uiMode, watching bool) bool {
	switch mode {
	case uiOn:
		return true
	case uiOff:
		return false
	}
	return !watching && isTerminal(os.Stderr)
}
