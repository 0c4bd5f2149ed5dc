package handler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"autotask/internal/task/sandbox"
	"autotask/internal/task/sandbox/spec"
)

func newTestGuard(t *testing.T) *sandbox.Guard {
	t.Helper()
	guard, err := sandbox.NewGuard(t.TempDir())
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	return guard
}

func writeFile(t *testing.T, guard *sandbox.Guard, rel, content string) string {
	t.Helper()
	path := filepath.Join(guard.Root(), rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	return path
}

func readArtifact(t *testing.T, guard *sandbox.Guard, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(guard.Root(), rel))
	if err != nil {
		t.Fatalf("read artifact %s: %v", rel, err)
	}
	return string(data)
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []spec.ExternalCallSpec
	err   error
	// onRun lets a test simulate the program's side effects.
	onRun func(spec.ExternalCallSpec)
}

func (r *fakeRunner) Run(ctx context.Context, callSpec spec.ExternalCallSpec) error {
	r.mu.Lock()
	r.calls = append(r.calls, callSpec)
	r.mu.Unlock()
	if r.onRun != nil {
		r.onRun(callSpec)
	}
	return r.err
}

type fakeCompleter struct {
	answer    string
	err       error
	prompt    string
	imageURL  string
	withImage bool
}

func (c *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	c.prompt = prompt
	return c.answer, c.err
}

func (c *fakeCompleter) CompleteWithImage(ctx context.Context, prompt, imageURL string) (string, error) {
	c.prompt = prompt
	c.imageURL = imageURL
	c.withImage = true
	return c.answer, c.err
}

// fakeEmbedder maps each input to a fixed vector.
type fakeEmbedder struct {
	vectors map[string][]float64
	inputs  []string
}

func (e *fakeEmbedder) Embed(ctx context.Context, inputs []string) ([][]float64, error) {
	e.inputs = inputs
	out := make([][]float64, len(inputs))
	for i, in := range inputs {
		out[i] = e.vectors[in]
	}
	return out, nil
}
