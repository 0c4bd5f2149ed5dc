package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"autotask/internal/task/sandbox/result"
	"autotask/internal/task/sandbox/spec"
	appErr "autotask/pkg/errors"

	"github.com/google/go-cmp/cmp"
)

// TestHelperProcess is not a real test. It is re-executed by helperSpec to act as the external program.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "no helper command")
		os.Exit(2)
	}
	switch args[1] {
	case "exit":
		code, _ := strconv.Atoi(args[2])
		fmt.Fprint(os.Stderr, strings.Join(args[3:], " "))
		os.Exit(code)
	case "touch":
		if err := os.WriteFile(args[2], []byte("ok"), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "noise":
		fmt.Fprint(os.Stderr, strings.Repeat("x", 5000)+"tail-marker")
		os.Exit(1)
	}
	os.Exit(0)
}

func helperSpec(workDir string, args ...string) spec.ExternalCallSpec {
	return spec.ExternalCallSpec{
		Program: os.Args[0],
		Args:    append([]string{"-test.run=TestHelperProcess", "--"}, args...),
		WorkDir: workDir,
		Env:     []string{"GO_WANT_HELPER_PROCESS=1"},
	}
}

func TestExecRunner_Success(t *testing.T) {
	dir := t.TempDir()
	r := NewExecRunner(Config{})

	if err := r.Run(context.Background(), helperSpec(dir, "touch", "out.txt")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	if err != nil {
		t.Fatalf("expected file written in work dir: %v", err)
	}
	if string(data) != "ok" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	r := NewExecRunner(Config{})

	err := r.Run(context.Background(), helperSpec(t.TempDir(), "exit", "3", "bad", "input"))
	if !appErr.Is(err, appErr.ExternalProcessFailed) {
		t.Fatalf("expected ExternalProcessFailed, got %v", err)
	}
	var failure *result.ExternalFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected ExternalFailure in chain, got %T", err)
	}
	if failure.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", failure.ExitCode)
	}
	if failure.StderrExcerpt != "bad input" {
		t.Errorf("StderrExcerpt = %q", failure.StderrExcerpt)
	}
}

func TestExecRunner_MissingProgram(t *testing.T) {
	r := NewExecRunner(Config{})

	err := r.Run(context.Background(), spec.ExternalCallSpec{Program: "definitely-not-a-real-program-xyz"})
	var failure *result.ExternalFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected ExternalFailure, got %v", err)
	}
	if failure.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", failure.ExitCode)
	}
	if appErr.GetCode(err) != appErr.ExternalProcessFailed {
		t.Errorf("code = %v", appErr.GetCode(err))
	}
}

func TestExecRunner_EmptyProgram(t *testing.T) {
	err := NewExecRunner(Config{}).Run(context.Background(), spec.ExternalCallSpec{})
	if !appErr.Is(err, appErr.ExternalProcessFailed) {
		t.Fatalf("expected ExternalProcessFailed, got %v", err)
	}
}

func TestExecRunner_StderrIsTruncatedToTail(t *testing.T) {
	r := NewExecRunner(Config{StderrMaxBytes: 64})

	err := r.Run(context.Background(), helperSpec(t.TempDir(), "noise"))
	var failure *result.ExternalFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected ExternalFailure, got %v", err)
	}
	if len(failure.StderrExcerpt) != 64 {
		t.Errorf("excerpt length = %d, want 64", len(failure.StderrExcerpt))
	}
	if !strings.HasSuffix(failure.StderrExcerpt, "tail-marker") {
		t.Errorf("excerpt should keep the tail, got %q", failure.StderrExcerpt)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    []string
		wantErr bool
	}{
		{name: "single", line: "pandoc", want: []string{"pandoc"}},
		{name: "prefix", line: "npx -y prettier@3.4.2", want: []string{"npx", "-y", "prettier@3.4.2"}},
		{name: "quoted", line: `uv run "my script.py"`, want: []string{"uv", "run", "my script.py"}},
		{name: "empty", line: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCommand: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("argv mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCommand(t *testing.T) {
	got := Command([]string{"npx", "prettier@3"}, "/sandbox", "--write", "format.md")
	want := spec.ExternalCallSpec{
		Program: "npx",
		Args:    []string{"prettier@3", "--write", "format.md"},
		WorkDir: "/sandbox",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("spec mismatch (-want +got):\n%s", diff)
	}
}

func TestTailBuffer(t *testing.T) {
	b := newTailBuffer(5)
	_, _ = b.Write([]byte("abc"))
	_, _ = b.Write([]byte("defg"))
	if got := b.String(); got != "cdefg" {
		t.Fatalf("got %q, want cdefg", got)
	}
	_, _ = b.Write([]byte("0123456789"))
	if got := b.String(); got != "56789" {
		t.Fatalf("got %q, want 56789", got)
	}
}
