package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// PathsConfig contains file system locations. Relative paths resolve
// against the working directory.
type PathsConfig struct {
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
}

// Resolved returns a copy with every path made absolute
func (p PathsConfig) Resolved() (PathsConfig, error) {
	var err error
	out := p
	for _, field := range []*string{&out.OutputDir, &out.LogsDir} {
		if *field, err = filepath.Abs(*field); err != nil {
			return PathsConfig{}, fmt.Errorf("failed to resolve path %s: %w", *field, err)
		}
	}
	return out, nil
}

// EnsureDirectories creates all configured directories if they don't exist
func (p PathsConfig) EnsureDirectories() error {
	logger := slog.Default()

	for _, dir := range []string{p.OutputDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// LogFile is the log file used when logging.file_path is not set
func (p PathsConfig) LogFile() string {
	return filepath.Join(p.LogsDir, LogFileName)
}
