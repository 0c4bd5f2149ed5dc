package handler

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"autotask/internal/task/sandbox"
	"autotask/internal/task/sandbox/runner"
	appErr "autotask/pkg/errors"
)

// GitCommitConfig describes the repository and the commit to make.
type GitCommitConfig struct {
	// Git is the parsed git command prefix.
	Git         []string
	RepoURL     string
	RepoDir     string
	File        string
	Content     string
	Message     string
	AuthorName  string
	AuthorEmail string
}

// GitCommit clones RepoURL into RepoDir once, writes File and commits it.
type GitCommit struct {
	meta
	guard  *sandbox.Guard
	runner runner.Runner
	cfg    GitCommitConfig
}

func NewGitCommit(guard *sandbox.Guard, r runner.Runner, cfg GitCommitConfig) *GitCommit {
	return &GitCommit{
		meta:   meta{kind: "git-commit", artifact: filepath.ToSlash(filepath.Join(cfg.RepoDir, cfg.File))},
		guard:  guard,
		runner: r,
		cfg:    cfg,
	}
}

func (h *GitCommit) Run(ctx context.Context) error {
	repoPath, err := h.guard.Check(h.cfg.RepoDir)
	if err != nil {
		return err
	}
	gitDir, err := h.guard.Join(h.cfg.RepoDir, ".git")
	if err != nil {
		return err
	}
	if _, err := os.Stat(gitDir); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return appErr.Wrapf(err, appErr.InternalServerError, "stat %s failed", h.cfg.RepoDir)
		}
		clone := runner.Command(h.cfg.Git, h.guard.Root(), "clone", h.cfg.RepoURL, repoPath)
		if err := h.runner.Run(ctx, clone); err != nil {
			return err
		}
	}

	if err := writeArtifact(h.guard, h.Artifact(), []byte(h.cfg.Content)); err != nil {
		return err
	}
	if err := h.runner.Run(ctx, runner.Command(h.cfg.Git, repoPath, "add", "--", h.cfg.File)); err != nil {
		return err
	}
	commit := runner.Command(h.cfg.Git, repoPath,
		"-c", "user.name="+h.cfg.AuthorName,
		"-c", "user.email="+h.cfg.AuthorEmail,
		"commit", "--allow-empty", "-m", h.cfg.Message,
	)
	return h.runner.Run(ctx, commit)
}
