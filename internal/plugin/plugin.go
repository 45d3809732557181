// Package plugin implements the monitoring-plugin output contract: the four
// severities, their exit codes and the single status line the scheduler reads.
package plugin

import (
	"fmt"
	"strconv"
	"strings"
)

// Severity is the outcome vocabulary shared with Nagios-compatible schedulers.
type Severity int

const (
	OK Severity = iota
	Warning
	Critical
	Unknown
)

// ExitCode returns the process exit code for the severity.
// Values outside the known set collapse to UNKNOWN.
func (s Severity) ExitCode() int {
	switch s {
	case OK, Warning, Critical:
		return int(s)
	default:
		return int(Unknown)
	}
}

func (s Severity) String() string {
	switch s {
	case OK:
		return "OK"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// PerfValue is a single performance data point rendered as label=value.
type PerfValue struct {
	Label string
	Value float64
}

// Verdict is the final outcome of one check run.
type Verdict struct {
	Severity Severity
	Summary  string
	Perf     []PerfValue
}

// UnknownVerdict builds an UNKNOWN verdict from a formatted summary.
func UnknownVerdict(format string, args ...interface{}) Verdict {
	return Verdict{Severity: Unknown, Summary: fmt.Sprintf(format, args...)}
}

// Render produces the status line and exit code for a verdict.
// Output format: "<SEVERITY> - <summary>[ | label=value ...]".
func Render(v Verdict) (string, int) {
	sev := v.Severity
	if sev.ExitCode() != int(sev) {
		sev = Unknown
	}

	var b strings.Builder
	b.WriteString(sev.String())
	b.WriteString(" - ")
	b.WriteString(sanitize(v.Summary))

	if len(v.Perf) > 0 {
		b.WriteString(" |")
		for _, p := range v.Perf {
			b.WriteByte(' ')
			b.WriteString(perfLabel(p.Label))
			b.WriteByte('=')
			b.WriteString(strconv.FormatFloat(p.Value, 'f', -1, 64))
		}
	}

	return b.String(), sev.ExitCode()
}

// sanitize keeps the summary on one line and free of the perfdata separator.
func sanitize(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "|", "/").Replace(s)
	return strings.TrimSpace(s)
}

// perfLabel quotes labels containing spaces or '=' the way plugin guidelines require.
func perfLabel(label string) string {
	if strings.ContainsAny(label, " ='") {
		return "'" + strings.ReplaceAll(label, "'", "''") + "'"
	}
	return label
}
