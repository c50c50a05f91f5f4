package ui

import (
	"fmt"
	"io"
	"os"
)

// Logo is printed at the top of interactive runs
const Logo = `
  ╦╔═╗╔╦╗╦
  ║║ ╦ ║║║
  ╩╚═╝═╩╝╩═╝  instagram media downloader
`

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func colorize(format string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(format, text)
	}
}

// Output is where the Print helpers write
var Output io.Writer = os.Stdout

// PrintLogo prints the logo in cyan
func PrintLogo() {
	fmt.Fprint(Output, Cyan(Logo))
}

// PrintError prints an error message in red, followed by err if given
func PrintError(msg string, err ...interface{}) {
	if len(err) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, err[0])
	}
	fmt.Fprintln(Output, Red(msg))
}

func PrintSuccess(msg string) {
	fmt.Fprintln(Output, Green(msg))
}

// PrintInfo prints a label/value pair
func PrintInfo(label string, value string) {
	fmt.Fprintf(Output, "%s: %s\n", Cyan(label), Yellow(value))
}

func PrintWarning(msg string, err ...interface{}) {
	if len(err) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, err[0])
	}
	fmt.Fprintln(Output, Yellow(msg))
}

func PrintHighlight(msg string) {
	fmt.Fprintln(Output, Magenta(msg))
}
