package handler

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"autotask/internal/task/sandbox"
	appErr "autotask/pkg/errors"
)

// RecentFirstLinesConfig selects files in Dir whose names match Pattern.
type RecentFirstLinesConfig struct {
	Dir     string
	Pattern string
	Limit   int
	Output  string
}

// RecentFirstLines writes the first line of the Limit most recently modified files, newest first.
// Ties on modification time are ordered by file name.
type RecentFirstLines struct {
	meta
	guard *sandbox.Guard
	cfg   RecentFirstLinesConfig
}

func NewRecentFirstLines(guard *sandbox.Guard, cfg RecentFirstLinesConfig) *RecentFirstLines {
	return &RecentFirstLines{meta: meta{kind: "recent-first-lines", artifact: cfg.Output}, guard: guard, cfg: cfg}
}

type datedFile struct {
	name    string
	path    string
	modTime time.Time
}

func (h *RecentFirstLines) Run(ctx context.Context) error {
	files, err := matchFiles(h.guard, h.cfg.Dir, h.cfg.Pattern)
	if err != nil {
		return err
	}
	dated := make([]datedFile, 0, len(files))
	for _, f := range files {
		info, err := os.Stat(f.path)
		if err != nil {
			return appErr.Wrapf(err, appErr.InternalServerError, "stat %s failed", f.rel)
		}
		dated = append(dated, datedFile{name: f.name, path: f.path, modTime: info.ModTime()})
	}
	slices.SortFunc(dated, func(a, b datedFile) int {
		if c := b.modTime.Compare(a.modTime); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})
	if h.cfg.Limit > 0 && len(dated) > h.cfg.Limit {
		dated = dated[:h.cfg.Limit]
	}

	var out strings.Builder
	for _, f := range dated {
		line, err := firstLine(f.path)
		if err != nil {
			return appErr.Wrapf(err, appErr.InternalServerError, "read %s failed", f.name)
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return writeArtifact(h.guard, h.cfg.Output, []byte(out.String()))
}

func firstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	reader := bufio.NewReader(f)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

type matchedFile struct {
	name string
	rel  string
	path string
}

// matchFiles lists regular files directly under dir whose names match pattern, sorted by name.
// Each match is checked through the guard, so a link leading out of the sandbox fails the task.
func matchFiles(guard *sandbox.Guard, dir, pattern string) ([]matchedFile, error) {
	dirPath, err := requireDir(guard, dir)
	if err != nil {
		return nil, err
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, appErr.Wrapf(err, appErr.InternalServerError, "invalid pattern %q", pattern)
	}
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InternalServerError, "list %s failed", dir)
	}
	var out []matchedFile
	for _, entry := range entries {
		if ok, _ := filepath.Match(pattern, entry.Name()); !ok {
			continue
		}
		rel := filepath.Join(dir, entry.Name())
		path, err := guard.Check(rel)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		out = append(out, matchedFile{name: entry.Name(), rel: rel, path: path})
	}
	return out, nil
}
