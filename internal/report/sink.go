package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/makehand/makehand/internal/runner"
)

// Sink persists the full output of a run and returns where it landed.
type Sink interface {
	Write(res *runner.Result) (string, error)
}

// DiskSink writes one log file per run to a randomized directory that is
// created lazily on the first Write. The random suffix keeps concurrent
// server instances from sharing a directory.
type DiskSink struct {
	mu   sync.Mutex
	base string
	dir  string
	log  zerolog.Logger
}

// NewDiskSink creates a DiskSink rooted under base.
func NewDiskSink(base string, log zerolog.Logger) *DiskSink {
	return &DiskSink{base: base, log: log}
}

// Write stores the complete result as <target>-<unix timestamp>.log.
func (s *DiskSink) Write(res *runner.Result) (string, error) {
	dir, err := s.ensureDir()
	if err != nil {
		return "", err
	}
	ts := res.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	unix := ts.Unix()
	path := filepath.Join(dir, fmt.Sprintf("%s-%d.log", res.Target, unix))
	if err := os.WriteFile(path, []byte(fileContent(res, unix)), 0o644); err != nil {
		return "", fmt.Errorf("writing output for target %q: %w", res.Target, err)
	}
	s.log.Info().Str("target", res.Target).Str("path", path).Msg("wrote full output")
	return path, nil
}

func (s *DiskSink) ensureDir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir != "" {
		return s.dir, nil
	}
	id := uuid.New()
	dir := filepath.Join(s.base, fmt.Sprintf("makehand-%x", id[:4]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	s.dir = dir
	s.log.Info().Str("dir", dir).Msg("created output directory")
	return dir, nil
}

func fileContent(res *runner.Result, ts int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target: %s\n", res.Target)
	fmt.Fprintf(&b, "Exit Code: %d\n", res.ExitCode)
	fmt.Fprintf(&b, "Duration: %.2fs\n", res.Duration.Seconds())
	fmt.Fprintf(&b, "Timestamp: %d\n\n", ts)
	if res.Stdout != "" {
		b.WriteString("STDOUT:\n")
		b.WriteString(res.Stdout)
		b.WriteString("\n\n")
	}
	if res.Stderr != "" {
		b.WriteString("STDERR:\n")
		b.WriteString(res.Stderr)
		b.WriteString("\n")
	}
	return b.String()
}
