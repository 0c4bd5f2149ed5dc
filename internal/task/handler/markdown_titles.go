package handler

import (
	"context"
	"strings"

	"autotask/internal/task/sandbox"
)

// MarkdownTitlesConfig selects the documents and the title marker.
type MarkdownTitlesConfig struct {
	Dir     string
	Pattern string
	Prefix  string
	Output  string
}

// MarkdownTitles writes a JSON object mapping each matched file name to its first title line.
// Files without a title line are left out.
type MarkdownTitles struct {
	meta
	guard *sandbox.Guard
	cfg   MarkdownTitlesConfig
}

func NewMarkdownTitles(guard *sandbox.Guard, cfg MarkdownTitlesConfig) *MarkdownTitles {
	return &MarkdownTitles{meta: meta{kind: "markdown-titles", artifact: cfg.Output}, guard: guard, cfg: cfg}
}

func (h *MarkdownTitles) Run(ctx context.Context) error {
	files, err := matchFiles(h.guard, h.cfg.Dir, h.cfg.Pattern)
	if err != nil {
		return err
	}
	index := make(map[string]string, len(files))
	for _, f := range files {
		data, err := readChecked(f.path, f.rel)
		if err != nil {
			return err
		}
		if title, ok := findTitle(data, h.cfg.Prefix); ok {
			index[f.name] = title
		}
	}
	out, err := encodeJSON(index, false)
	if err != nil {
		return err
	}
	return writeArtifact(h.guard, h.cfg.Output, out)
}

func findTitle(data []byte, prefix string) (string, bool) {
	for _, line := range splitLines(data) {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
		}
	}
	return "", false
}
