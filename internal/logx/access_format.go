package logx

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Entry is one access-log record. Fields carries the per-request extras
// (request id, render outcome) keyed by their log name.
type Entry struct {
	Time     time.Time
	Status   int
	Latency  time.Duration
	ClientIP string
	Method   string
	Path     string
	Fields   map[string]any
}

type entryVar func(e Entry, color bool) string

var entryVars = map[string]entryVar{
	"time_local": func(e Entry, _ bool) string { return e.Time.Format(timeLayout) },
	"status":     func(e Entry, color bool) string { return ColorizeStatusWith(e.Status, color) },
	"latency":    func(e Entry, _ bool) string { return e.Latency.String() },
	"latency_ms": func(e Entry, _ bool) string { return strconv.FormatInt(e.Latency.Milliseconds(), 10) },
	"client_ip":  func(e Entry, _ bool) string { return escapeControl(strings.TrimSpace(e.ClientIP)) },
	"method":     func(e Entry, _ bool) string { return escapeControl(strings.TrimSpace(e.Method)) },
	"path":       func(e Entry, _ bool) string { return escapeControl(e.Path) },
}

// fieldVars are looked up in Entry.Fields.
var fieldVars = map[string]struct{}{
	"request_id":            {},
	"template":              {},
	"final_template":        {},
	"render_strategy":       {},
	"template_interceptors": {},
	"render_interceptors":   {},
	"render_ms":             {},
	"render_error":          {},
}

var accessLogFormatPresets = map[string]string{
	"renderd_combined": "$time_local | $status | $latency | $client_ip | $method $path | request_id=$request_id template=$template final_template=$final_template render_strategy=$render_strategy template_interceptors=$template_interceptors render_interceptors=$render_interceptors render_ms=$render_ms render_error=$render_error",
	"renderd_minimal":  "$time_local | $status | $latency | $method $path | request_id=$request_id template=$template render_strategy=$render_strategy",
}

// segment is either literal text or a variable reference.
type segment struct {
	text  string
	name  string
	entry entryVar
}

// AccessLogFormatter renders entries with an nginx-like "$var" template.
// Unset variables render as "-".
type AccessLogFormatter struct {
	segments []segment
}

// ResolveAccessLogFormat picks the explicit format, else the named preset.
func ResolveAccessLogFormat(format string, preset string) (string, error) {
	if strings.TrimSpace(format) != "" {
		return format, nil
	}
	p := strings.ToLower(strings.TrimSpace(preset))
	if p == "" {
		return "", nil
	}
	out, ok := accessLogFormatPresets[p]
	if !ok {
		return "", fmt.Errorf("invalid access_log_format_preset: %q (known: %s)", preset, strings.Join(AccessLogPresets(), ", "))
	}
	return out, nil
}

// CompileAccessLogFormat parses format. "$$" is a literal dollar and
// "${name}" may be used when a variable is followed by a name character.
// A blank format compiles to a nil formatter.
func CompileAccessLogFormat(format string) (*AccessLogFormatter, error) {
	if strings.TrimSpace(format) == "" {
		return nil, nil
	}
	f := &AccessLogFormatter{}
	rest := format
	pos := 0
	for rest != "" {
		i := strings.IndexByte(rest, '$')
		if i < 0 {
			f.appendText(rest)
			break
		}
		f.appendText(rest[:i])
		pos += i
		dollar := pos
		rest = rest[i+1:]

		var name string
		switch {
		case strings.HasPrefix(rest, "$"):
			f.appendText("$")
			rest = rest[1:]
			pos += 2
			continue
		case strings.HasPrefix(rest, "{"):
			end := strings.IndexByte(rest, '}')
			if end < 0 {
				return nil, fmt.Errorf("invalid access_log_format: unclosed ${ at pos %d", dollar)
			}
			name = rest[1:end]
			rest = rest[end+1:]
			pos += end + 2
		default:
			n := varNameLen(rest)
			name = rest[:n]
			rest = rest[n:]
			pos += n + 1
		}
		if name == "" {
			return nil, fmt.Errorf("invalid access_log_format: missing variable name after '$' at pos %d", dollar)
		}
		seg, err := lookupVar(name)
		if err != nil {
			return nil, err
		}
		f.segments = append(f.segments, seg)
	}
	return f, nil
}

func (f *AccessLogFormatter) appendText(s string) {
	if s == "" {
		return
	}
	if n := len(f.segments); n > 0 && f.segments[n-1].name == "" {
		f.segments[n-1].text += s
		return
	}
	f.segments = append(f.segments, segment{text: s})
}

func varNameLen(s string) int {
	n := 0
	for n < len(s) {
		c := s[n]
		if c != '_' && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			break
		}
		n++
	}
	return n
}

func lookupVar(name string) (segment, error) {
	if fn, ok := entryVars[name]; ok {
		return segment{name: name, entry: fn}, nil
	}
	if _, ok := fieldVars[name]; ok {
		return segment{name: name}, nil
	}
	return segment{}, fmt.Errorf("invalid access_log_format: unknown variable $%s", name)
}

// Format renders e. A nil formatter renders nothing.
func (f *AccessLogFormatter) Format(e Entry, color bool) string {
	if f == nil {
		return ""
	}
	var b strings.Builder
	for _, s := range f.segments {
		if s.name == "" {
			b.WriteString(s.text)
			continue
		}
		var v string
		if s.entry != nil {
			v = strings.TrimSpace(s.entry(e, color))
		} else {
			v = fieldString(e.Fields[s.name])
		}
		if v == "" {
			v = "-"
		}
		b.WriteString(v)
	}
	return b.String()
}

func fieldString(v any) string {
	if v == nil {
		return ""
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "<nil>" {
		return ""
	}
	return escapeControl(s)
}

// escapeControl quotes s when it holds control characters so one entry stays
// on one line.
func escapeControl(s string) string {
	if strings.IndexFunc(s, unicode.IsControl) < 0 {
		return s
	}
	return strconv.Quote(s)
}

// AccessLogAllowedVars lists every variable a format may reference.
func AccessLogAllowedVars() []string {
	keys := make([]string, 0, len(entryVars)+len(fieldVars))
	for k := range entryVars {
		keys = append(keys, k)
	}
	for k := range fieldVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func AccessLogPresets() []string {
	keys := make([]string, 0, len(accessLogFormatPresets))
	for k := range accessLogFormatPresets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
