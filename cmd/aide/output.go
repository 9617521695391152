package main

import (
	"fmt"
	"os"
)

// ANSI escape sequences for terminal feedback. All user-facing messages go
// to stderr so command output on stdout stays pipeable.
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + ansiReset
}

// notify prints a glyph-prefixed message in the given color.
func notify(color, glyph, format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(color, glyph+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { notify(ansiGreen, "✓", format, args...) }
func printError(format string, args ...any)   { notify(ansiRed, "✗", format, args...) }
func printWarning(format string, args ...any) { notify(ansiYellow, "⚠", format, args...) }
func printStep(format string, args ...any)    { notify(ansiCyan, "→", format, args...) }

// printStatus prints one "label: value" line of the status report.
func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s %s\n",
		colorize(ansiBold, label+":"), fmt.Sprintf(format, args...))
}
