package logx

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[97;42m"
	colorWhite  = "\033[90;47m"
	colorYellow = "\033[90;43m"
	colorRed    = "\033[97;41m"
)

// ColorEnabled reports whether stdout is a terminal that should get colored
// output. NO_COLOR disables color everywhere.
func ColorEnabled() bool {
	return colorEnabledFor(os.Stdout)
}

func colorEnabledFor(f *os.File) bool {
	if f == nil || os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func statusColor(code int) string {
	switch {
	case code >= 200 && code < 300:
		return colorGreen
	case code >= 300 && code < 400:
		return colorWhite
	case code >= 400 && code < 500:
		return colorYellow
	default:
		return colorRed
	}
}

// ColorizeStatusWith renders a status code, wrapped in ANSI colors when
// color is set.
func ColorizeStatusWith(code int, color bool) string {
	if !color {
		return fmt.Sprintf("%d", code)
	}
	return fmt.Sprintf("%s %3d %s", statusColor(code), code, colorReset)
}
