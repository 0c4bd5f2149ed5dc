package service

import (
	"context"
	"os"
	"strings"

	"autotask/internal/task/sandbox"
	appErr "autotask/pkg/errors"
)

// FileService reads files from the sandbox.
type FileService struct {
	guard *sandbox.Guard
}

func NewFileService(guard *sandbox.Guard) *FileService {
	return &FileService{guard: guard}
}

// Read returns the content of rel. Directories count as missing files.
func (s *FileService) Read(ctx context.Context, rel string) ([]byte, error) {
	if strings.TrimSpace(rel) == "" {
		return nil, appErr.BadRequest("path is required")
	}
	path, err := s.guard.Check(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if sandbox.IsMissing(err) {
			return nil, appErr.Newf(appErr.NotFound, "file not found: %s", rel)
		}
		return nil, appErr.Wrapf(err, appErr.InternalServerError, "stat %s failed", rel)
	}
	if info.IsDir() {
		return nil, appErr.Newf(appErr.NotFound, "file not found: %s", rel)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InternalServerError, "read %s failed", rel)
	}
	return data, nil
}
