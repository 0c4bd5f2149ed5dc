// Package result defines the outcome types of external program runs.
package result

import (
	"fmt"
	"strings"
)

// ExternalFailure describes a program that could not be launched or exited non-zero.
// ExitCode is -1 when the process never started or was killed.
type ExternalFailure struct {
	Program       string
	ExitCode      int
	StderrExcerpt string
	Err           error
}

func (f *ExternalFailure) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", f.Program, f.ExitCode)
	if f.ExitCode < 0 && f.Err != nil {
		msg = fmt.Sprintf("%s could not run: %v", f.Program, f.Err)
	}
	if excerpt := strings.TrimSpace(f.StderrExcerpt); excerpt != "" {
		msg += ": " + excerpt
	}
	return msg
}

func (f *ExternalFailure) Unwrap() error {
	return f.Err
}
