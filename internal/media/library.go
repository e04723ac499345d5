// Package media owns the on-disk artifact directories: uploaded captures and
// synthesized audio history, plus the retention sweep that keeps them bounded.
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Library manages the upload and audio-history directories.
type Library struct {
	uploadDir  string
	historyDir string

	now func() time.Time
}

func NewLibrary(uploadDir, historyDir string) (*Library, error) {
	for _, dir := range []string{uploadDir, historyDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create media dir %s: %w", dir, err)
		}
	}
	return &Library{
		uploadDir:  uploadDir,
		historyDir: historyDir,
		now:        time.Now,
	}, nil
}

func (l *Library) UploadDir() string  { return l.uploadDir }
func (l *Library) HistoryDir() string { return l.historyDir }

// SaveUpload writes an uploaded blob under the upload directory. The name is
// sanitized to its base component so clients cannot write outside the dir.
func (l *Library) SaveUpload(name string, data []byte) (string, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid upload name %q", name)
	}
	path := filepath.Join(l.uploadDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return path, nil
}

// GeneratedName builds a collision-free filename for uploads that arrive
// without one.
func (l *Library) GeneratedName(prefix, ext string) string {
	stamp := l.now().UTC().Format("20060102_150405")
	short := uuid.NewString()[:8]
	return fmt.Sprintf("%s_%s_%s%s", prefix, stamp, short, ext)
}

// RetentionPolicy bounds a managed directory. Zero values disable the
// corresponding bound.
type RetentionPolicy struct {
	MaxAge   time.Duration
	MaxFiles int
}

func (p RetentionPolicy) enabled() bool {
	return p.MaxAge > 0 || p.MaxFiles > 0
}

// StartJanitor sweeps both managed directories on the given interval until
// ctx is cancelled. With a disabled policy it does nothing.
func (l *Library) StartJanitor(ctx context.Context, interval time.Duration, policy RetentionPolicy, onError func(error)) {
	if !policy.enabled() {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := l.Sweep(policy); err != nil && onError != nil {
					onError(err)
				}
			}
		}
	}()
}

// Sweep applies the retention policy to both directories once.
func (l *Library) Sweep(policy RetentionPolicy) error {
	for _, dir := range []string{l.uploadDir, l.historyDir} {
		if err := l.sweepDir(dir, policy); err != nil {
			return err
		}
	}
	return nil
}

type fileAge struct {
	path    string
	modTime time.Time
}

func (l *Library) sweepDir(dir string, policy RetentionPolicy) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read media dir %s: %w", dir, err)
	}

	files := make([]fileAge, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileAge{path: filepath.Join(dir, e.Name()), modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	doomed := make(map[string]bool)
	if policy.MaxAge > 0 {
		cutoff := l.now().Add(-policy.MaxAge)
		for _, f := range files {
			if f.modTime.Before(cutoff) {
				doomed[f.path] = true
			}
		}
	}
	if policy.MaxFiles > 0 {
		kept := 0
		for i := len(files) - 1; i >= 0; i-- {
			if doomed[files[i].path] {
				continue
			}
			kept++
			if kept > policy.MaxFiles {
				doomed[files[i].path] = true
			}
		}
	}

	for path := range doomed {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove expired media %s: %w", path, err)
		}
	}
	return nil
}
