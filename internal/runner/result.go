package runner

import "time"

// Result holds the outcome of one target execution.
type Result struct {
	RunID     string        // unique identifier for this run
	Target    string        // target that was executed
	ExitCode  int           // process exit code, -1 if the process did not exit normally
	Stdout    string        // captured standard output
	Stderr    string        // captured standard error
	Duration  time.Duration // wall-clock time from spawn to completion
	Timestamp time.Time     // when the run finished
	TimedOut  bool          // true if the run was stopped by the timeout
}

// Success reports whether the target completed with a zero exit code.
func (r *Result) Success() bool {
	return r.ExitCode == 0 && !r.TimedOut
}
