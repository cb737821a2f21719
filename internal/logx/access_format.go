package logx

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
)

type formatPart struct {
	literal string
	varName string
}

// AccessLogFormatter renders one access log line from a compiled
// $variable template.
type AccessLogFormatter struct {
	parts []formatPart
}

var accessLogFormatPresets = map[string]string{
	"osr_combined": "$time_local | $status | $latency | $client_ip | $method $path | request_id=$request_id endpoint=$endpoint env=$env entity=$entity id=$id target_id=$target_id mode=$mode upstream_status=$upstream_status upstream_url=$upstream_url cached=$cached error=$error",
	"osr_minimal":  "$time_local | $status | $latency | $method $path | request_id=$request_id endpoint=$endpoint entity=$entity mode=$mode upstream_status=$upstream_status",
}

var allowedAccessLogVars = map[string]struct{}{
	"time_local":      {},
	"status":          {},
	"latency":         {},
	"latency_ms":      {},
	"client_ip":       {},
	"method":          {},
	"path":            {},
	"request_id":      {},
	"endpoint":        {},
	"env":             {},
	"entity":          {},
	"id":              {},
	"target_id":       {},
	"mode":            {},
	"upstream_status": {},
	"upstream_url":    {},
	"cached":          {},
	"error":           {},
}

// ResolveAccessLogFormat picks the explicit format, else the named preset.
// Both empty means the built-in line format.
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
		return "", fmt.Errorf("invalid access_log_format_preset: %q", preset)
	}
	return out, nil
}

func CompileAccessLogFormat(format string) (*AccessLogFormatter, error) {
	if strings.TrimSpace(format) == "" {
		return nil, nil
	}
	parts := make([]formatPart, 0, 8)
	var lit strings.Builder

	flushLiteral := func() {
		if lit.Len() == 0 {
			return
		}
		parts = append(parts, formatPart{literal: lit.String()})
		lit.Reset()
	}

	for i := 0; i < len(format); i++ {
		ch := format[i]
		if ch != '$' {
			lit.WriteByte(ch)
			continue
		}
		if i+1 < len(format) && format[i+1] == '$' {
			lit.WriteByte('$')
			i++
			continue
		}
		flushLiteral()
		j := i + 1
		for j < len(format) {
			r := rune(format[j])
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
				break
			}
			j++
		}
		if j == i+1 {
			return nil, fmt.Errorf("invalid access_log_format: missing variable name after '$' at pos %d", i)
		}
		name := format[i+1 : j]
		if _, ok := allowedAccessLogVars[name]; !ok {
			return nil, fmt.Errorf("invalid access_log_format: unknown variable $%s", name)
		}
		parts = append(parts, formatPart{varName: name})
		i = j - 1
	}
	flushLiteral()
	return &AccessLogFormatter{parts: parts}, nil
}

// AccessLogLine is the request-level data available to a log line. Fields
// holds the sync details gathered while handling the request.
type AccessLogLine struct {
	Time     time.Time
	Status   int
	Latency  time.Duration
	ClientIP string
	Method   string
	Path     string
	Fields   map[string]any
}

func (l AccessLogLine) vars(color bool) map[string]string {
	vars := map[string]string{
		"time_local": l.Time.Format("2006/01/02 - 15:04:05"),
		"status":     ColorizeStatusWith(l.Status, color),
		"latency":    l.Latency.String(),
		"latency_ms": fmt.Sprintf("%d", l.Latency.Milliseconds()),
		"client_ip":  strings.TrimSpace(l.ClientIP),
		"method":     strings.TrimSpace(l.Method),
		"path":       l.Path,
	}
	for k, v := range l.Fields {
		s := strings.TrimSpace(fmt.Sprintf("%v", v))
		if s == "" || s == "<nil>" {
			continue
		}
		vars[k] = s
	}
	return vars
}

// Format renders l; unset variables print as '-'.
func (f *AccessLogFormatter) Format(l AccessLogLine, color bool) string {
	if f == nil || len(f.parts) == 0 {
		return ""
	}
	vars := l.vars(color)
	var b strings.Builder
	for _, p := range f.parts {
		if p.literal != "" {
			b.WriteString(p.literal)
			continue
		}
		v := strings.TrimSpace(vars[p.varName])
		if v == "" {
			b.WriteByte('-')
			continue
		}
		b.WriteString(v)
	}
	return b.String()
}

// FormatRequestLineWithColor is the built-in line format: fixed request
// columns followed by the sorted sync fields as key=value pairs.
func FormatRequestLineWithColor(l AccessLogLine, color bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s | %s | %13v | %15s | %-7s %s",
		l.Time.Format("2006/01/02 - 15:04:05"),
		ColorizeStatusWith(l.Status, color),
		l.Latency,
		strings.TrimSpace(l.ClientIP),
		strings.TrimSpace(l.Method),
		l.Path,
	)
	keys := make([]string, 0, len(l.Fields))
	for k := range l.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s := strings.TrimSpace(fmt.Sprintf("%v", l.Fields[k]))
		if s == "" || s == "<nil>" {
			continue
		}
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(s)
	}
	return b.String()
}

func AccessLogAllowedVars() []string {
	keys := make([]string, 0, len(allowedAccessLogVars))
	for k := range allowedAccessLogVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
