package utils

import (
	"fmt"
	"io"
	"os"
)

// Debug enables Debugf output. Set from the --debug flag.
var Debug bool

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetOutput redirects progress and diagnostic output, e.g. to cobra's writers.
func SetOutput(out, errOut io.Writer) {
	stdout, stderr = out, errOut
}

// Successf prints a "✓" progress line to stdout.
func Successf(format string, args ...any) {
	fmt.Fprintf(stdout, "✓ "+format+"\n", args...)
}

// Warnf prints a "⚠ Warning:" line to stderr.
func Warnf(format string, args ...any) {
	fmt.Fprintf(stderr, "⚠ Warning: "+format+"\n", args...)
}

// Debugf prints to stderr when Debug is set.
func Debugf(format string, args ...any) {
	if !Debug {
		return
	}
	fmt.Fprintf(stderr, "[debug] "+format+"\n", args...)
}
