// Package report turns execution results into the bounded text returned
// to agents, optionally writing the unabridged output to a sink first.
package report

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/makehand/makehand/internal/runner"
)

// Formatter renders a Result into the response text. When MaxChars is
// positive the combined stream output is cut to that many characters,
// split evenly between stdout and stderr; zero means no limit.
type Formatter struct {
	MaxChars int           // character budget for inline output, 0 = unlimited
	Sink     Sink          // optional full-output sink, nil disables it
	Log      zerolog.Logger
}

// Render produces the report for one run. The sink is written before
// truncation so the advertised file always holds the complete output,
// and a sink failure downgrades to a log entry rather than losing the
// report.
func (f *Formatter) Render(res *runner.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target: %s\n", res.Target)
	fmt.Fprintf(&b, "Exit Code: %d\n", res.ExitCode)
	fmt.Fprintf(&b, "Duration: %.2fs\n\n", res.Duration.Seconds())

	if f.Sink != nil {
		path, err := f.Sink.Write(res)
		if err != nil {
			f.Log.Error().Err(err).Str("target", res.Target).Msg("writing full output failed")
		} else {
			fmt.Fprintf(&b, "Full output written to: %s\n\n", path)
		}
	}

	total := utf8.RuneCountInString(res.Stdout) + utf8.RuneCountInString(res.Stderr)
	if f.MaxChars > 0 && total > f.MaxChars {
		cut := f.MaxChars / 2
		if res.Stdout != "" {
			b.WriteString("STDOUT:\n" + truncate(res.Stdout, cut) + "\n")
		}
		if res.Stderr != "" {
			b.WriteString("STDERR:\n" + truncate(res.Stderr, cut) + "\n")
		}
		fmt.Fprintf(&b, "\nNote: Output exceeded %d characters and was truncated. ", f.MaxChars)
		b.WriteString("Configure targets to log verbose output to files and return summaries instead.\n")
	} else {
		if res.Stdout != "" {
			b.WriteString("STDOUT:\n" + res.Stdout + "\n")
		}
		if res.Stderr != "" {
			b.WriteString("STDERR:\n" + res.Stderr + "\n")
		}
	}
	return b.String()
}

// truncate cuts s to at most max characters and appends a marker naming
// how many were dropped. Counting runes rather than bytes keeps
// multi-byte sequences intact.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + fmt.Sprintf("\n\n... (truncated, %d chars omitted)", len(runes)-max)
}
