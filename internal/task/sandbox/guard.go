// Package sandbox confines every file a task touches to a single root directory.
package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	appErr "autotask/pkg/errors"
)

const maxLinkHops = 40

// Guard resolves candidate paths against the sandbox root and rejects escapes.
// A Guard is immutable and safe for concurrent use.
type Guard struct {
	root string
}

// NewGuard creates a Guard for root. The root must exist and be a directory.
func NewGuard(root string) (*Guard, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("sandbox root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve sandbox root failed: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve sandbox root failed: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("stat sandbox root failed: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sandbox root %s is not a directory", resolved)
	}
	return &Guard{root: resolved}, nil
}

// Root returns the canonical sandbox root.
func (g *Guard) Root() string {
	return g.root
}

// Check returns the canonical form of candidate when it resolves to the root or one of its descendants.
// Relative candidates are taken relative to the root. Symlinks are followed, including dangling ones,
// so a path that would be created through a link pointing outside is rejected as well.
func (g *Guard) Check(candidate string) (string, error) {
	path := candidate
	if !filepath.IsAbs(path) {
		path = filepath.Join(g.root, path)
	}
	resolved, err := resolve(filepath.Clean(path), 0)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.SandboxAccessDenied, "cannot resolve %s", candidate).
			WithDetail("path", candidate)
	}
	if !within(g.root, resolved) {
		return "", appErr.AccessDenied(candidate)
	}
	return resolved, nil
}

// Join checks the path formed by joining elem under the root.
func (g *Guard) Join(elem ...string) (string, error) {
	return g.Check(filepath.Join(elem...))
}

// Rel reports path relative to the root, for logs and responses.
func (g *Guard) Rel(path string) string {
	rel, err := filepath.Rel(g.root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// IsMissing reports whether err means the path does not exist, including a
// component that is a regular file rather than a directory.
func IsMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}

// resolve follows symlinks in the longest existing prefix of path and re-appends the rest.
func resolve(path string, hops int) (string, error) {
	if hops > maxLinkHops {
		return "", fmt.Errorf("too many levels of symbolic links: %s", path)
	}
	var rest []string
	current := path
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			return joinRest(resolved, rest), nil
		}
		if !IsMissing(err) {
			return "", err
		}
		if info, lerr := os.Lstat(current); lerr == nil && info.Mode()&fs.ModeSymlink != 0 {
			target, err := os.Readlink(current)
			if err != nil {
				return "", err
			}
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(current), target)
			}
			return resolve(joinRest(filepath.Clean(target), rest), hops+1)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return joinRest(current, rest), nil
		}
		rest = append(rest, filepath.Base(current))
		current = parent
	}
}

// joinRest appends the components collected deepest-first back onto base.
func joinRest(base string, rest []string) string {
	parts := make([]string, 0, len(rest)+1)
	parts = append(parts, base)
	for i := len(rest) - 1; i >= 0; i-- {
		parts = append(parts, rest[i])
	}
	return filepath.Join(parts...)
}
