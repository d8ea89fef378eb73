package logx

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
)

const timeLayout = "2006/01/02 - 15:04:05"

const (
	colorReset  = "\x1b[0m"
	colorGreen  = "\x1b[97;42m"
	colorWhite  = "\x1b[90;47m"
	colorYellow = "\x1b[90;43m"
	colorRed    = "\x1b[97;41m"
)

// ColorEnabled reports whether stdout is a terminal that takes ANSI colors.
func ColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func ColorizeStatusWith(status int, color bool) string {
	s := fmt.Sprintf("%3d", status)
	if !color {
		return s
	}
	var c string
	switch {
	case status >= 200 && status < 300:
		c = colorGreen
	case status >= 300 && status < 400:
		c = colorWhite
	case status >= 400 && status < 500:
		c = colorYellow
	default:
		c = colorRed
	}
	return c + " " + s + " " + colorReset
}

// FormatLine is the access line used when no format is configured: fixed
// columns followed by the non-empty fields in key order.
func FormatLine(e Entry, color bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[RENDERD] %s | %s | %13v | %15s | %-7s %q",
		e.Time.Format(timeLayout),
		ColorizeStatusWith(e.Status, color),
		e.Latency,
		strings.TrimSpace(e.ClientIP),
		strings.TrimSpace(e.Method),
		e.Path,
	)
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fieldString(e.Fields[k])
		if v == "" {
			continue
		}
		fmt.Fprintf(&b, " %s=%s", k, v)
	}
	return b.String()
}
