// Package handler implements the task operations. Every handler resolves each path it touches
// through the sandbox guard, performs one transform and writes exactly one artifact.
package handler

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"autotask/internal/task/sandbox"
	appErr "autotask/pkg/errors"
)

// meta carries the parts of the catalog.Handler contract shared by every handler.
type meta struct {
	kind     string
	artifact string
}

func (m meta) Name() string {
	return m.kind
}

func (m meta) Artifact() string {
	return m.artifact
}

// readInput checks rel and reads the whole file.
func readInput(guard *sandbox.Guard, rel string) ([]byte, error) {
	path, err := guard.Check(rel)
	if err != nil {
		return nil, err
	}
	return readChecked(path, rel)
}

func readChecked(path, rel string) ([]byte, error) {
	if err := requireFile(path, rel); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InternalServerError, "read %s failed", rel)
	}
	return data, nil
}

func requireFile(path, rel string) error {
	info, err := os.Stat(path)
	if err != nil {
		if sandbox.IsMissing(err) {
			return appErr.MissingInput(rel)
		}
		return appErr.Wrapf(err, appErr.InternalServerError, "stat %s failed", rel)
	}
	if info.IsDir() {
		return appErr.Malformed(rel, "expected a file, found a directory")
	}
	return nil
}

// requireDir checks rel and verifies it is an existing directory.
func requireDir(guard *sandbox.Guard, rel string) (string, error) {
	path, err := guard.Check(rel)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		if sandbox.IsMissing(err) {
			return "", appErr.MissingInput(rel)
		}
		return "", appErr.Wrapf(err, appErr.InternalServerError, "stat %s failed", rel)
	}
	if !info.IsDir() {
		return "", appErr.Malformed(rel, "expected a directory")
	}
	return path, nil
}

// writeArtifact replaces rel with data. The content is written to a temporary file in the
// same directory and renamed into place, so readers never observe a partial artifact.
func writeArtifact(guard *sandbox.Guard, rel string, data []byte) error {
	path, err := prepareOutput(guard, rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return appErr.Wrapf(err, appErr.InternalServerError, "create %s failed", rel)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return appErr.Wrapf(err, appErr.InternalServerError, "write %s failed", rel)
	}
	if err := tmp.Close(); err != nil {
		return appErr.Wrapf(err, appErr.InternalServerError, "write %s failed", rel)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return appErr.Wrapf(err, appErr.InternalServerError, "chmod %s failed", rel)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return appErr.Wrapf(err, appErr.InternalServerError, "replace %s failed", rel)
	}
	return nil
}

// prepareOutput checks rel and its parent directory and creates the parent when missing.
func prepareOutput(guard *sandbox.Guard, rel string) (string, error) {
	path, err := guard.Check(rel)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(path)
	if _, err := guard.Check(dir); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", appErr.Wrapf(err, appErr.InternalServerError, "create directory for %s failed", rel)
	}
	return path, nil
}

// splitLines splits on newlines, drops carriage returns and the empty tail after a final newline.
func splitLines(data []byte) []string {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// encodeJSON marshals v without HTML escaping. indent selects two-space indentation.
func encodeJSON(v interface{}, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, appErr.Wrapf(err, appErr.InternalServerError, "encode json failed")
	}
	return buf.Bytes(), nil
}
