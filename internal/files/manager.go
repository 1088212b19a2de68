package files

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "gscconsolidate/internal/errors"
)

// Manager writes output files
type Manager struct {
	logger *slog.Logger
}

// NewManager creates a new file manager instance
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger.With(slog.String("component", "files"))}
}

// CreateDirectory creates a directory with all parent directories
func (m *Manager) CreateDirectory(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return apperrors.NewStorageError("failed to create directory", err).WithContext("path", path)
	}
	return nil
}

// WriteAtomic streams write into a temporary file next to path and renames
// it into place once write succeeds, so readers never see a partial file.
func (m *Manager) WriteAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := m.CreateDirectory(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return apperrors.NewStorageError("failed to create temporary file", err).WithContext("path", path)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err = tmp.Sync(); err != nil {
		return apperrors.NewStorageError("failed to sync output file", err).WithContext("path", path)
	}
	if err = tmp.Close(); err != nil {
		return apperrors.NewStorageError("failed to close output file", err).WithContext("path", path)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return apperrors.NewStorageError("failed to move output file into place", err).WithContext("path", path)
	}

	m.logger.Info("output written", slog.String("path", path))
	return nil
}
