// Package runner executes makefile targets as managed child processes
// with timeouts, cancellation, and process-tree cleanup.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/makehand/makehand/internal/makefile"
)

// reapTimeout bounds how long we wait for a killed process to be reaped
// before giving up and reporting it.
const reapTimeout = 5 * time.Second

// targetNamePattern matches names the runner will pass to make. Anything
// else is rejected before a process is spawned.
var targetNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// Runner executes a single makefile target and reports its outcome.
type Runner interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

// Request describes one target execution.
type Request struct {
	Target    string            // target name to run
	Makefile  string            // path to the makefile
	WorkDir   string            // working directory, defaults to the makefile's directory
	Variables map[string]string // extra environment variables for the child
	Timeout   time.Duration     // wall-clock limit, must be positive
}

// InvalidRequestError reports a request rejected before any process was
// started.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string { return e.Reason }

// Make runs targets by spawning the make binary in its own process
// group, so that runaway children can be reclaimed along with make
// itself.
type Make struct {
	log zerolog.Logger
}

// NewMake returns a Runner backed by the system make binary.
func NewMake(log zerolog.Logger) *Make {
	return &Make{log: log}
}

// Run validates req, spawns make, and waits for completion, the timeout,
// or cancellation, whichever comes first. A timeout yields a Result with
// ExitCode -1 rather than an error; cancellation is returned as an error
// wrapping ctx.Err() after the process tree has been killed.
func (m *Make) Run(ctx context.Context, req Request) (*Result, error) {
	if err := m.validate(req); err != nil {
		return nil, err
	}

	workDir := req.WorkDir
	if workDir == "" {
		workDir = filepath.Dir(req.Makefile)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("target %q cancelled: %w", req.Target, err)
	}

	runID := uuid.New().String()
	log := m.log.With().Str("run_id", runID).Str("target", req.Target).Logger()

	cmd := exec.Command("make", "-f", req.Makefile, req.Target)
	cmd.Dir = workDir
	cmd.Env = mergeEnv(req.Variables)
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		log.Error().Err(err).Msg("starting make failed")
		return genericFailure(runID, req.Target, time.Since(start)), nil
	}
	log.Debug().
		Int("pid", cmd.Process.Pid).
		Dur("timeout", req.Timeout).
		Msg("target started")

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(req.Timeout)
	defer timer.Stop()

	select {
	case waitErr := <-done:
		return m.finish(log, req, runID, waitErr, stdout.String(), stderr.String(), time.Since(start))

	case <-timer.C:
		m.kill(log, cmd, done)
		duration := time.Since(start)
		log.Warn().Dur("duration", duration).Msg("target timed out")
		return &Result{
			RunID:     runID,
			Target:    req.Target,
			ExitCode:  -1,
			Stderr:    fmt.Sprintf("Execution timed out after %d seconds", int(req.Timeout.Seconds())),
			Duration:  duration,
			Timestamp: time.Now(),
			TimedOut:  true,
		}, nil

	case <-ctx.Done():
		m.kill(log, cmd, done)
		log.Info().Msg("target cancelled")
		return nil, fmt.Errorf("target %q cancelled: %w", req.Target, ctx.Err())
	}
}

// finish turns the outcome of cmd.Wait into a Result. A non-zero exit
// from the target is a normal result, not an error. The captured streams
// are arbitrary bytes; invalid UTF-8 is substituted so the result is
// always valid text.
func (m *Make) finish(log zerolog.Logger, req Request, runID string, waitErr error, stdout, stderr string, duration time.Duration) (*Result, error) {
	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			log.Error().Err(waitErr).Msg("waiting for make failed")
			return genericFailure(runID, req.Target, duration), nil
		}
		exitCode = exitErr.ExitCode()
	}
	log.Info().
		Int("exit_code", exitCode).
		Dur("duration", duration).
		Msg("target finished")
	return &Result{
		RunID:     runID,
		Target:    req.Target,
		ExitCode:  exitCode,
		Stdout:    strings.ToValidUTF8(stdout, "\uFFFD"),
		Stderr:    strings.ToValidUTF8(stderr, "\uFFFD"),
		Duration:  duration,
		Timestamp: time.Now(),
	}, nil
}

// genericFailure is the result for spawn or wait failures that are not
// the target's own doing. The detail stays in the log; the caller sees
// only a fixed message.
func genericFailure(runID, target string, duration time.Duration) *Result {
	return &Result{
		RunID:     runID,
		Target:    target,
		ExitCode:  -1,
		Stderr:    "Unexpected error during execution",
		Duration:  duration,
		Timestamp: time.Now(),
	}
}

// kill terminates the whole process group and waits a bounded time for
// the child to be reaped so no zombie is left behind.
func (m *Make) kill(log zerolog.Logger, cmd *exec.Cmd, done <-chan error) {
	killProcessGroup(cmd)
	select {
	case <-done:
	case <-time.After(reapTimeout):
		log.Error().Int("pid", cmd.Process.Pid).Msg("process not reaped after kill")
	}
}

func (m *Make) validate(req Request) error {
	if !targetNamePattern.MatchString(req.Target) {
		return &InvalidRequestError{Reason: fmt.Sprintf("invalid target name: %q", req.Target)}
	}

	info, err := os.Stat(req.Makefile)
	if os.IsNotExist(err) {
		return &makefile.NotFoundError{Path: req.Makefile}
	}
	if err != nil {
		return fmt.Errorf("checking makefile %s: %w", req.Makefile, err)
	}
	if !info.Mode().IsRegular() {
		return &InvalidRequestError{Reason: fmt.Sprintf("makefile path is not a file: %s", req.Makefile)}
	}

	if req.Timeout <= 0 {
		return &InvalidRequestError{Reason: fmt.Sprintf("timeout must be positive, got %s", req.Timeout)}
	}
	if req.Timeout > time.Hour {
		m.log.Warn().
			Str("target", req.Target).
			Dur("timeout", req.Timeout).
			Msg("timeout exceeds one hour")
	}

	if req.WorkDir != "" {
		info, err := os.Stat(req.WorkDir)
		if os.IsNotExist(err) {
			return &InvalidRequestError{Reason: fmt.Sprintf("working directory not found: %s", req.WorkDir)}
		}
		if err != nil {
			return fmt.Errorf("checking working directory %s: %w", req.WorkDir, err)
		}
		if !info.IsDir() {
			return &InvalidRequestError{Reason: fmt.Sprintf("working directory is not a directory: %s", req.WorkDir)}
		}
	}
	return nil
}

// mergeEnv layers the request variables over the parent environment.
// Variables are appended in sorted order so later entries override any
// parent value for the same key.
func mergeEnv(variables map[string]string) []string {
	env := os.Environ()
	if len(variables) == 0 {
		return env
	}
	keys := make([]string, 0, len(variables))
	for k := range variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+variables[k])
	}
	return env
}

// DryRun records every request and answers with a canned result. It
// stands in for Make in server tests.
type DryRun struct {
	mu       sync.Mutex
	requests []Request

	Result *Result // returned for every call, Target overwritten; nil yields a zero-exit result
	Err    error   // returned instead of a result when set
}

func (d *DryRun) Run(ctx context.Context, req Request) (*Result, error) {
	d.mu.Lock()
	d.requests = append(d.requests, req)
	d.mu.Unlock()

	if d.Err != nil {
		return nil, d.Err
	}
	if d.Result != nil {
		res := *d.Result
		res.Target = req.Target
		return &res, nil
	}
	return &Result{
		RunID:     uuid.New().String(),
		Target:    req.Target,
		Duration:  time.Millisecond,
		Timestamp: time.Now(),
	}, nil
}

// Requests returns a copy of the requests seen so far.
func (d *DryRun) Requests() []Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Request(nil), d.requests...)
}
