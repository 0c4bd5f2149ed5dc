package handler

import (
	"context"

	"autotask/internal/task/sandbox"
	"autotask/internal/task/sandbox/runner"
)

// RunDatagenConfig describes the data generator invocation.
type RunDatagenConfig struct {
	// UV is the parsed uv command prefix.
	UV        []string
	ScriptURL string
	Email     string
}

// RunDatagen runs the generator script with uv. It populates the sandbox root itself.
type RunDatagen struct {
	meta
	guard  *sandbox.Guard
	runner runner.Runner
	cfg    RunDatagenConfig
}

func NewRunDatagen(guard *sandbox.Guard, r runner.Runner, cfg RunDatagenConfig) *RunDatagen {
	return &RunDatagen{meta: meta{kind: "run-datagen", artifact: "."}, guard: guard, runner: r, cfg: cfg}
}

func (h *RunDatagen) Run(ctx context.Context) error {
	root, err := h.guard.Check(".")
	if err != nil {
		return err
	}
	call := runner.Command(h.cfg.UV, root, "run", h.cfg.ScriptURL, h.cfg.Email, "--root", root)
	return h.runner.Run(ctx, call)
}
