// Package ui renders command line output: status lines, crawl progress,
// rate limit notices and the follower table.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Logo printed at the top of interactive runs
const Logo = `
   ★  ╔═╗╔╦╗╔═╗╦═╗╔═╗╔═╗╔═╗╔═╗╦═╗╔═╗  ★
      ╚═╗ ║ ╠═╣╠╦╝║ ╦╠═╣╔═╝║╣ ╠╦╝╚═╗
   ★  ╚═╝ ╩ ╩ ╩╩╚═╚═╝╩ ╩╚═╝╚═╝╩╚═╚═╝  ★
`

var (
	colorCyan    = lipgloss.Color("#00D7FF")
	colorYellow  = lipgloss.Color("#FFD700")
	colorRed     = lipgloss.Color("#FF5F5F")
	colorGreen   = lipgloss.Color("#5FFF87")
	colorMagenta = lipgloss.Color("#FF5FD7")
	colorDim     = lipgloss.Color("#808080")

	cyanStyle    = lipgloss.NewStyle().Foreground(colorCyan)
	yellowStyle  = lipgloss.NewStyle().Foreground(colorYellow)
	redStyle     = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	greenStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	magentaStyle = lipgloss.NewStyle().Foreground(colorMagenta).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(colorDim)
)

// Color helpers
var (
	Cyan    = cyanStyle.Render
	Yellow  = yellowStyle.Render
	Red     = redStyle.Render
	Green   = greenStyle.Render
	Magenta = magentaStyle.Render
	Dim     = dimStyle.Render
)

var (
	mu    sync.Mutex
	out   io.Writer = os.Stdout
	quiet bool
)

// SetOutput redirects all printing. It returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := out
	out = w
	return prev
}

// SetQuiet suppresses everything except errors and the final report
func SetQuiet(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

func printf(force bool, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if quiet && !force {
		return
	}
	fmt.Fprintf(out, format, args...)
}

// PrintLogo prints the logo
func PrintLogo() {
	printf(false, "%s\n", Cyan(Logo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	printf(true, "%s\n", Red(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	printf(false, "%s\n", Green(msg))
}

// PrintInfo prints a label and value pair
func PrintInfo(label string, value string) {
	printf(false, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	printf(false, "%s\n", Yellow(msg))
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	printf(false, "%s\n", Magenta(msg))
}
