// File: internal/reporting/files.go
package reporting

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const filePrefix = "report_"

// FileName returns the report path for a run finishing at t.
func FileName(dir, format string, t time.Time) string {
	ext := ".json"
	if strings.EqualFold(format, "text") {
		ext = ".txt"
	}
	return filepath.Join(dir, filePrefix+t.Format("20060102_150405")+ext)
}

// maxNameAttempts bounds the suffixes tried when runs finish in the same second.
const maxNameAttempts = 100

// Save writes s into dir and returns the file path. The directory is created
// if needed. An existing report is never overwritten: when the name for the
// finishing second is taken, a numeric suffix is added.
func Save(dir, format string, s Summary) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory %s: %w", dir, err)
	}
	stamp := s.FinishedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}

	f, path, err := createUnique(FileName(dir, format, stamp))
	if err != nil {
		return "", err
	}
	r, err := NewWriter(format, f)
	if err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := r.Write(s); err != nil {
		r.Close()
		return "", err
	}
	if err := r.Close(); err != nil {
		return "", fmt.Errorf("failed to close report %s: %w", path, err)
	}
	return path, nil
}

// createUnique creates base, or base with _2, _3, ... before the extension
// when it already exists.
func createUnique(base string) (*os.File, string, error) {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for n := 1; n <= maxNameAttempts; n++ {
		path := base
		if n > 1 {
			path = fmt.Sprintf("%s_%d%s", stem, n, ext)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("failed to create output file %s: %w", path, err)
		}
	}
	return nil, "", fmt.Errorf("failed to create output file %s: %d names already taken", base, maxNameAttempts)
}

// File is a saved report.
type File struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// List returns up to limit saved reports in dir, newest first. A limit of
// zero or less returns all of them.
func List(dir string, limit int) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read report directory %s: %w", dir, err)
	}

	var files []File
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), filePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, File{Path: filepath.Join(dir, e.Name()), ModTime: info.ModTime(), Size: info.Size()})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Path > files[j].Path
		}
		return files[i].ModTime.After(files[j].ModTime)
	})
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}
