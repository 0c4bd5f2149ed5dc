package handler

import (
	"context"
	"strconv"
	"strings"

	"autotask/internal/task/sandbox"
)

// CountLinesConfig names the input, the literal marker and the artifact.
type CountLinesConfig struct {
	Input  string
	Marker string
	Output string
}

// CountLines writes the number of input lines containing Marker.
type CountLines struct {
	meta
	guard *sandbox.Guard
	cfg   CountLinesConfig
}

func NewCountLines(guard *sandbox.Guard, cfg CountLinesConfig) *CountLines {
	return &CountLines{meta: meta{kind: "count-lines", artifact: cfg.Output}, guard: guard, cfg: cfg}
}

func (h *CountLines) Run(ctx context.Context) error {
	data, err := readInput(h.guard, h.cfg.Input)
	if err != nil {
		return err
	}
	count := 0
	for _, line := range splitLines(data) {
		if strings.Contains(line, h.cfg.Marker) {
			count++
		}
	}
	return writeArtifact(h.guard, h.cfg.Output, []byte(strconv.Itoa(count)))
}
