package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	appErr "autotask/pkg/errors"

	"github.com/google/go-cmp/cmp"
)

func TestCountLines(t *testing.T) {
	guard := newTestGuard(t)
	writeFile(t, guard, "dates.txt", "2024-01-03 Wednesday\n2024-01-04 Thursday\r\n2024-01-10 Wednesday\nWednesday")
	h := NewCountLines(guard, CountLinesConfig{Input: "dates.txt", Marker: "Wednesday", Output: "dates-wednesdays.txt"})

	if err := h.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	first := readArtifact(t, guard, "dates-wednesdays.txt")
	if first != "3" {
		t.Fatalf("count = %q, want 3", first)
	}
	if err := h.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second := readArtifact(t, guard, "dates-wednesdays.txt"); second != first {
		t.Fatalf("artifact changed between runs: %q then %q", first, second)
	}
	if h.Artifact() != "dates-wednesdays.txt" || h.Name() != "count-lines" {
		t.Errorf("unexpected metadata %s %s", h.Name(), h.Artifact())
	}
}

func TestCountLines_MissingInput(t *testing.T) {
	guard := newTestGuard(t)
	h := NewCountLines(guard, CountLinesConfig{Input: "dates.txt", Marker: "x", Output: "out.txt"})
	if err := h.Run(context.Background()); !appErr.Is(err, appErr.InputNotFound) {
		t.Fatalf("expected InputNotFound, got %v", err)
	}

	writeFile(t, guard, "notes.txt", "a\n")
	h = NewCountLines(guard, CountLinesConfig{Input: "notes.txt/dates.txt", Marker: "x", Output: "out.txt"})
	if err := h.Run(context.Background()); !appErr.Is(err, appErr.InputNotFound) {
		t.Fatalf("file used as a directory: expected InputNotFound, got %v", err)
	}
}

func TestCountLines_EscapingPaths(t *testing.T) {
	guard := newTestGuard(t)
	writeFile(t, guard, "dates.txt", "x\n")
	tests := []CountLinesConfig{
		{Input: "../dates.txt", Marker: "x", Output: "out.txt"},
		{Input: "dates.txt", Marker: "x", Output: "../out.txt"},
		{Input: "dates.txt", Marker: "x", Output: "/tmp/out.txt"},
	}
	for i, cfg := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			err := NewCountLines(guard, cfg).Run(context.Background())
			if !appErr.Is(err, appErr.SandboxAccessDenied) {
				t.Fatalf("expected access denied, got %v", err)
			}
		})
	}
}

func TestSortRecords(t *testing.T) {
	guard := newTestGuard(t)
	writeFile(t, guard, "contacts.json", `[
		{"last_name":"B","first_name":"Y","email":"y@b.com"},
		{"last_name":"A","first_name":"Z"},
		{"last_name":"A","first_name":"A","tags":["<x>"]}
	]`)
	h := NewSortRecords(guard, SortRecordsConfig{Input: "contacts.json", Keys: []string{"last_name", "first_name"}, Output: "contacts-sorted.json"})

	if err := h.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := readArtifact(t, guard, "contacts-sorted.json")

	var got []map[string]interface{}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("artifact is not JSON: %v", err)
	}
	var order [][2]string
	for _, r := range got {
		order = append(order, [2]string{r["last_name"].(string), r["first_name"].(string)})
	}
	want := [][2]string{{"A", "A"}, {"A", "Z"}, {"B", "Y"}}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out, "\n  {\n    \"last_name\": \"A\",\n    \"first_name\": \"A\"") {
		t.Errorf("expected two-space indentation with field order kept, got:\n%s", out)
	}
	if !strings.Contains(out, `"<x>"`) {
		t.Errorf("expected unescaped content, got:\n%s", out)
	}
}

func TestSortRecords_Stable(t *testing.T) {
	guard := newTestGuard(t)
	writeFile(t, guard, "in.json", `[{"k":"b","n":1},{"k":"a","n":2},{"k":"b","n":3},{"k":"a","n":4}]`)
	h := NewSortRecords(guard, SortRecordsConfig{Input: "in.json", Keys: []string{"k"}, Output: "out.json"})
	if err := h.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var got []struct{ N int }
	if err := json.Unmarshal([]byte(readArtifact(t, guard, "out.json")), &got); err != nil {
		t.Fatal(err)
	}
	var ns []int
	for _, r := range got {
		ns = append(ns, r.N)
	}
	if diff := cmp.Diff([]int{2, 4, 1, 3}, ns); diff != "" {
		t.Errorf("stable order mismatch (-want +got):\n%s", diff)
	}
}

func TestSortRecords_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not json", input: `{{`},
		{name: "not array", input: `{"last_name":"A"}`},
		{name: "null", input: `null`},
		{name: "record not object", input: `[1]`},
		{name: "missing key", input: `[{"last_name":"A"}]`},
		{name: "non string key", input: `[{"last_name":"A","first_name":7}]`},
		{name: "null key", input: `[{"last_name":"A","first_name":null}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := newTestGuard(t)
			writeFile(t, guard, "contacts.json", tt.input)
			h := NewSortRecords(guard, SortRecordsConfig{Input: "contacts.json", Keys: []string{"last_name", "first_name"}, Output: "out.json"})
			if err := h.Run(context.Background()); !appErr.Is(err, appErr.MalformedInput) {
				t.Fatalf("expected MalformedInput, got %v", err)
			}
			if _, err := os.Stat(filepath.Join(guard.Root(), "out.json")); !os.IsNotExist(err) {
				t.Error("no artifact expected on failure")
			}
		})
	}
}

func TestRecentFirstLines(t *testing.T) {
	guard := newTestGuard(t)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("logs/log-%02d.log", i)
		path := writeFile(t, guard, name, fmt.Sprintf("first line %d\nsecond line\n", i))
		mtime := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}
	writeFile(t, guard, "logs/notes.txt", "ignored\n")
	h := NewRecentFirstLines(guard, RecentFirstLinesConfig{Dir: "logs", Pattern: "*.log", Limit: 10, Output: "logs-recent.txt"})

	if err := h.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var want strings.Builder
	for i := 11; i >= 2; i-- {
		fmt.Fprintf(&want, "first line %d\n", i)
	}
	if diff := cmp.Diff(want.String(), readArtifact(t, guard, "logs-recent.txt")); diff != "" {
		t.Errorf("artifact mismatch (-want +got):\n%s", diff)
	}
}

func TestRecentFirstLines_TiesAndShortFiles(t *testing.T) {
	guard := newTestGuard(t)
	mtime := time.Now().Add(-time.Minute)
	for name, content := range map[string]string{"b.log": "bee", "a.log": "", "c.log": "sea\r\nmore"} {
		path := writeFile(t, guard, "logs/"+name, content)
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}
	h := NewRecentFirstLines(guard, RecentFirstLinesConfig{Dir: "logs", Pattern: "*.log", Limit: 10, Output: "out.txt"})
	if err := h.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := readArtifact(t, guard, "out.txt"); got != "\nbee\nsea\n" {
		t.Fatalf("artifact = %q", got)
	}
}

func TestRecentFirstLines_MissingDir(t *testing.T) {
	guard := newTestGuard(t)
	h := NewRecentFirstLines(guard, RecentFirstLinesConfig{Dir: "logs", Pattern: "*.log", Limit: 10, Output: "out.txt"})
	if err := h.Run(context.Background()); !appErr.Is(err, appErr.InputNotFound) {
		t.Fatalf("expected InputNotFound, got %v", err)
	}
}

func TestRecentFirstLines_LinkOutsideIsDenied(t *testing.T) {
	guard := newTestGuard(t)
	writeFile(t, guard, "logs/a.log", "a\n")
	outside := filepath.Join(t.TempDir(), "secret.log")
	if err := os.WriteFile(outside, []byte("secret\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(guard.Root(), "logs", "b.log")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	h := NewRecentFirstLines(guard, RecentFirstLinesConfig{Dir: "logs", Pattern: "*.log", Limit: 10, Output: "out.txt"})
	if err := h.Run(context.Background()); !appErr.Is(err, appErr.SandboxAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
}

func TestMarkdownTitles(t *testing.T) {
	guard := newTestGuard(t)
	writeFile(t, guard, "docs/intro.md", "intro text\n# Getting Started  \n# Second\n")
	writeFile(t, guard, "docs/api.md", "## Sub\n#Not a title\n# API & Reference\n")
	writeFile(t, guard, "docs/empty.md", "no titles here\n")
	writeFile(t, guard, "docs/readme.txt", "# Ignored\n")
	writeFile(t, guard, "docs/nested/deep.md", "# Deep\n")
	h := NewMarkdownTitles(guard, MarkdownTitlesConfig{Dir: "docs", Pattern: "*.md", Prefix: "# ", Output: "docs/index.json"})

	if err := h.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := readArtifact(t, guard, "docs/index.json")
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("artifact is not JSON: %v", err)
	}
	want := map[string]string{"intro.md": "Getting Started", "api.md": "API & Reference"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("index mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterCSV(t *testing.T) {
	guard := newTestGuard(t)
	writeFile(t, guard, "data.csv", "\xef\xbb\xbfid,name,status\n1,ada,active\n2,\"lin, jr\",inactive\n3,bo,active\n")
	h := NewFilterCSV(guard, FilterCSVConfig{Input: "data.csv", Column: "status", Value: "active", Output: "filtered.json"})

	if err := h.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := `[{"id":"1","name":"ada","status":"active"},{"id":"3","name":"bo","status":"active"}]` + "\n"
	if diff := cmp.Diff(want, readArtifact(t, guard, "filtered.json")); diff != "" {
		t.Errorf("artifact mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: ""},
		{name: "missing column", content: "id,name\n1,ada\n"},
		{name: "ragged row", content: "id,status\n1,active,extra\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := newTestGuard(t)
			writeFile(t, guard, "data.csv", tt.content)
			h := NewFilterCSV(guard, FilterCSVConfig{Input: "data.csv", Column: "status", Value: "active", Output: "filtered.json"})
			if err := h.Run(context.Background()); !appErr.Is(err, appErr.MalformedInput) {
				t.Fatalf("expected MalformedInput, got %v", err)
			}
		})
	}
}

func TestFilterCSV_NoMatches(t *testing.T) {
	guard := newTestGuard(t)
	writeFile(t, guard, "data.csv", "id,status\n1,inactive\n")
	h := NewFilterCSV(guard, FilterCSVConfig{Input: "data.csv", Column: "status", Value: "active", Output: "filtered.json"})
	if err := h.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := readArtifact(t, guard, "filtered.json"); got != "[]\n" {
		t.Fatalf("artifact = %q", got)
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "a", want: []string{"a"}},
		{in: "a\n", want: []string{"a"}},
		{in: "a\r\nb\n\nc", want: []string{"a", "b", "", "c"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, splitLines([]byte(tt.in))); diff != "" {
			t.Errorf("splitLines(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestWriteArtifact_CreatesParentsAndReplaces(t *testing.T) {
	guard := newTestGuard(t)
	if err := writeArtifact(guard, "a/b/out.txt", []byte("one")); err != nil {
		t.Fatalf("writeArtifact: %v", err)
	}
	if err := writeArtifact(guard, "a/b/out.txt", []byte("two")); err != nil {
		t.Fatalf("writeArtifact: %v", err)
	}
	if got := readArtifact(t, guard, "a/b/out.txt"); got != "two" {
		t.Fatalf("artifact = %q", got)
	}
	entries, err := os.ReadDir(filepath.Join(guard.Root(), "a", "b"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected no leftover temp files, got %d entries", len(entries))
	}
}
