package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo represents information about a discovered input file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	Format  InputFormat
}

// Discovery expands CLI arguments into readable export files
type Discovery struct {
	basePath string
}

// NewDiscovery creates a discovery rooted at basePath for relative arguments
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

func (d *Discovery) resolve(path string) string {
	if filepath.IsAbs(path) || d.basePath == "" {
		return path
	}
	return filepath.Join(d.basePath, path)
}

// FindInputs resolves each path to input files. Files are taken as given and
// must have a supported extension. Directories are scanned non-recursively
// for .csv and .xlsx files, skipping previous consolidation outputs.
// Results are de-duplicated and sorted by path.
func (d *Discovery) FindInputs(paths []string) ([]FileInfo, error) {
	seen := make(map[string]bool)
	var found []FileInfo

	add := func(fi FileInfo) {
		if !seen[fi.Path] {
			seen[fi.Path] = true
			found = append(found, fi)
		}
	}

	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		fullPath := d.resolve(p)

		info, err := os.Stat(fullPath)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", fullPath, err)
		}

		if !info.IsDir() {
			format, err := DetectFormat(fullPath)
			if err != nil {
				return nil, err
			}
			add(FileInfo{Path: fullPath, Name: info.Name(), Size: info.Size(), ModTime: info.ModTime(), Format: format})
			continue
		}

		files, err := d.FindInDirectory(fullPath)
		if err != nil {
			return nil, err
		}
		for _, fi := range files {
			add(fi)
		}
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].Path < found[j].Path
	})
	return found, nil
}

// FindInDirectory lists the supported, not yet consolidated files in dir
func (d *Discovery) FindInDirectory(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		format, err := DetectFormat(name)
		if err != nil || IsConsolidated(name) || strings.HasPrefix(name, "~$") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Format:  format,
		})
	}

	return files, nil
}
