package handler

import (
	"context"

	"autotask/internal/task/sandbox"
	"autotask/internal/task/sandbox/runner"
)

// Arg is one argument of an external call: either a literal or a sandbox path.
// Paths are checked and passed as canonical absolute paths.
type Arg struct {
	Literal string
	Path    string
	isPath  bool
}

// Lit is a literal argument.
func Lit(s string) Arg {
	return Arg{Literal: s}
}

// PathArg is a sandbox-relative path argument.
func PathArg(rel string) Arg {
	return Arg{Path: rel, isPath: true}
}

// ExternalTransformConfig describes a tool invocation.
type ExternalTransformConfig struct {
	// Command is the parsed tool prefix, for example ["npx", "prettier@3.4.2"].
	Command []string
	Args    []Arg
	// Inputs must exist before the tool starts.
	Inputs []string
	Output string
}

// ExternalTransform delegates the transform to another program. Tool failures pass through unchanged.
type ExternalTransform struct {
	meta
	guard  *sandbox.Guard
	runner runner.Runner
	cfg    ExternalTransformConfig
}

func NewExternalTransform(guard *sandbox.Guard, r runner.Runner, cfg ExternalTransformConfig) *ExternalTransform {
	return &ExternalTransform{meta: meta{kind: "external-transform", artifact: cfg.Output}, guard: guard, runner: r, cfg: cfg}
}

func (h *ExternalTransform) Run(ctx context.Context) error {
	for _, in := range h.cfg.Inputs {
		path, err := h.guard.Check(in)
		if err != nil {
			return err
		}
		if err := requireFile(path, in); err != nil {
			return err
		}
	}
	if _, err := prepareOutput(h.guard, h.cfg.Output); err != nil {
		return err
	}
	args, err := resolveArgs(h.guard, h.cfg.Args)
	if err != nil {
		return err
	}
	return h.runner.Run(ctx, runner.Command(h.cfg.Command, h.guard.Root(), args...))
}

func resolveArgs(guard *sandbox.Guard, args []Arg) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if !a.isPath {
			out = append(out, a.Literal)
			continue
		}
		path, err := guard.Check(a.Path)
		if err != nil {
			return nil, err
		}
		out = append(out, path)
	}
	return out, nil
}
