// Package service orchestrates task dispatch and sandboxed file reads.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"autotask/internal/task/catalog"
	appErr "autotask/pkg/errors"
	"autotask/pkg/utils/contextkey"
	"autotask/pkg/utils/logger"

	"go.uber.org/zap"
)

const maxLoggedTaskLen = 200

// Outcome classifies a dispatch.
type Outcome string

const (
	OutcomeOK           Outcome = "ok"
	OutcomeInvalid      Outcome = "invalid"
	OutcomeUnrecognized Outcome = "unrecognized"
	OutcomeForbidden    Outcome = "forbidden"
	OutcomeFailed       Outcome = "failed"
)

// Result describes one dispatch. Err is nil only for OutcomeOK.
type Result struct {
	Outcome  Outcome
	Task     string
	Entry    string
	Artifact string
	Duration time.Duration
	Err      error
}

// ErrorCode maps the outcome and its cause to one taxonomy code.
// Failed runs keep the handler's own code, so a missing input, malformed input or remote failure
// surfaces as 404, 422 or 502 rather than a blanket 500.
func (r Result) ErrorCode() appErr.ErrorCode {
	switch r.Outcome {
	case OutcomeOK:
		return appErr.Success
	case OutcomeInvalid:
		return appErr.InvalidParams
	case OutcomeUnrecognized:
		return appErr.TaskUnrecognized
	case OutcomeForbidden:
		return appErr.SandboxAccessDenied
	}
	code := appErr.GetCode(r.Err)
	if code == appErr.Success {
		return appErr.InternalServerError
	}
	return code
}

// Error returns the cause as an *Error carrying the mapped code, or nil on success.
func (r Result) Error() error {
	if r.Outcome == OutcomeOK {
		return nil
	}
	code := r.ErrorCode()
	if r.Err == nil {
		return appErr.New(code)
	}
	if e := appErr.GetError(r.Err); e != nil && e.Code == code {
		return e
	}
	return appErr.Wrapf(r.Err, code, "%s", r.Err.Error())
}

// DispatchService matches a task against the catalog and runs exactly one handler.
type DispatchService struct {
	catalog *catalog.Catalog
}

func NewDispatchService(c *catalog.Catalog) *DispatchService {
	return &DispatchService{catalog: c}
}

// Dispatch classifies and runs task. The handler keeps running when ctx is cancelled,
// since a half-finished run could leave a partial artifact behind.
func (s *DispatchService) Dispatch(ctx context.Context, task string) Result {
	result := Result{Task: task}
	if strings.TrimSpace(task) == "" {
		result.Outcome = OutcomeInvalid
		result.Err = appErr.BadRequest("task is required")
		return result
	}

	entry, ok := s.catalog.Match(task)
	if !ok {
		result.Outcome = OutcomeUnrecognized
		result.Err = appErr.Newf(appErr.TaskUnrecognized, "task not recognized: %s", shorten(task))
		logger.Info(ctx, "task not recognized", zap.String("task", shorten(task)))
		return result
	}
	result.Entry = entry.Name
	result.Artifact = entry.Handler.Artifact()

	runCtx := context.WithoutCancel(context.WithValue(ctx, contextkey.TaskName, entry.Name))
	start := time.Now()
	err := runHandler(runCtx, entry.Handler)
	result.Duration = time.Since(start)
	result.Err = err

	switch {
	case err == nil:
		result.Outcome = OutcomeOK
	case appErr.Is(err, appErr.SandboxAccessDenied):
		result.Outcome = OutcomeForbidden
	default:
		result.Outcome = OutcomeFailed
	}

	fields := []zap.Field{
		zap.String("task", shorten(task)),
		zap.String("entry", entry.Name),
		zap.String("handler", entry.Handler.Name()),
		zap.String("outcome", string(result.Outcome)),
		zap.Duration("duration", result.Duration),
	}
	if err != nil {
		logger.Warn(runCtx, "task failed", append(fields, zap.Error(err))...)
	} else {
		logger.Info(runCtx, "task finished", fields...)
	}
	return result
}

func runHandler(ctx context.Context, h catalog.Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = appErr.Newf(appErr.InternalServerError, "handler %s panicked: %v", h.Name(), r)
		}
	}()
	return h.Run(ctx)
}

func shorten(task string) string {
	if len(task) <= maxLoggedTaskLen {
		return task
	}
	return fmt.Sprintf("%s...(%d bytes)", task[:maxLoggedTaskLen], len(task))
}
