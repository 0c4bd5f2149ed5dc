// Package runner launches external programs described by an ExternalCallSpec.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"autotask/internal/task/sandbox/result"
	"autotask/internal/task/sandbox/spec"
	appErr "autotask/pkg/errors"
	"autotask/pkg/utils/logger"

	"github.com/google/shlex"
	"go.uber.org/zap"
)

const defaultStderrMaxBytes = 2 * 1024

// Runner executes one external call and reports failure as ExternalProcessFailed.
type Runner interface {
	Run(ctx context.Context, callSpec spec.ExternalCallSpec) error
}

// Config controls ExecRunner behavior.
type Config struct {
	// StderrMaxBytes is the size of the stderr tail kept for failures.
	StderrMaxBytes int
	// Timeout bounds a single launch. Zero means no limit.
	Timeout time.Duration
}

// ExecRunner runs programs directly with os/exec. Arguments never pass through a shell.
type ExecRunner struct {
	cfg Config
}

// NewExecRunner creates an ExecRunner.
func NewExecRunner(cfg Config) *ExecRunner {
	if cfg.StderrMaxBytes <= 0 {
		cfg.StderrMaxBytes = defaultStderrMaxBytes
	}
	return &ExecRunner{cfg: cfg}
}

// Run starts the program, waits for it and maps a launch error or non-zero exit to ExternalProcessFailed.
func (r *ExecRunner) Run(ctx context.Context, callSpec spec.ExternalCallSpec) error {
	if callSpec.Program == "" {
		return appErr.New(appErr.ExternalProcessFailed).WithMessage("program is required")
	}
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, callSpec.Program, callSpec.Args...)
	cmd.Dir = callSpec.WorkDir
	if len(callSpec.Env) > 0 {
		cmd.Env = append(os.Environ(), callSpec.Env...)
	}
	stderr := newTailBuffer(r.cfg.StderrMaxBytes)
	cmd.Stderr = stderr

	logger.Debug(ctx, "launch external program",
		zap.String("program", callSpec.Program),
		zap.Strings("args", callSpec.Args),
		zap.String("work_dir", callSpec.WorkDir),
	)
	start := time.Now()
	err := cmd.Run()
	if err == nil {
		logger.Debug(ctx, "external program finished",
			zap.String("program", callSpec.Program),
			zap.Duration("duration", time.Since(start)),
		)
		return nil
	}

	failure := &result.ExternalFailure{
		Program:       callSpec.Program,
		ExitCode:      exitCodeFromErr(err),
		StderrExcerpt: stderr.String(),
		Err:           err,
	}
	logger.Warn(ctx, "external program failed",
		zap.String("program", callSpec.Program),
		zap.Int("exit_code", failure.ExitCode),
		zap.String("stderr", failure.StderrExcerpt),
		zap.Error(err),
	)
	return appErr.Wrapf(failure, appErr.ExternalProcessFailed, "%s", failure.Error()).
		WithDetail("program", callSpec.Program).
		WithDetail("exit_code", failure.ExitCode)
}

func exitCodeFromErr(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// ParseCommand splits a configured command prefix such as "npx prettier@3" into an argument vector.
func ParseCommand(line string) ([]string, error) {
	argv, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", line, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("command is empty")
	}
	return argv, nil
}

// Command builds a call from a parsed prefix plus extra arguments.
func Command(prefix []string, workDir string, args ...string) spec.ExternalCallSpec {
	if len(prefix) == 0 {
		return spec.ExternalCallSpec{WorkDir: workDir, Args: args}
	}
	all := make([]string, 0, len(prefix)+len(args))
	all = append(all, prefix[1:]...)
	all = append(all, args...)
	return spec.ExternalCallSpec{
		Program: prefix[0],
		Args:    all,
		WorkDir: workDir,
	}
}
