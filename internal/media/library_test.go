package media

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	root := t.TempDir()
	l, err := NewLibrary(filepath.Join(root, "uploads"), filepath.Join(root, "audio_history"))
	if err != nil {
		t.Fatalf("NewLibrary() error = %v", err)
	}
	return l
}

func TestLibraryCreatesDirectories(t *testing.T) {
	l := newTestLibrary(t)
	for _, dir := range []string{l.UploadDir(), l.HistoryDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("Stat(%s) error = %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("%s is not a directory", dir)
		}
	}
}

func TestSaveUploadSanitizesName(t *testing.T) {
	l := newTestLibrary(t)

	path, err := l.SaveUpload("../../etc/passwd", []byte("data"))
	if err != nil {
		t.Fatalf("SaveUpload() error = %v", err)
	}
	if filepath.Dir(path) != l.UploadDir() {
		t.Fatalf("saved outside upload dir: %s", path)
	}
	if filepath.Base(path) != "passwd" {
		t.Fatalf("saved name = %s, want base component only", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "data" {
		t.Fatalf("payload = %q", data)
	}
}

func TestSaveUploadRejectsEmptyName(t *testing.T) {
	l := newTestLibrary(t)
	if _, err := l.SaveUpload("   ", []byte("data")); err == nil {
		t.Fatalf("SaveUpload() error = nil, want invalid name error")
	}
}

func TestSaveUploadRejectsDotNames(t *testing.T) {
	l := newTestLibrary(t)
	// "." and ".." survive filepath.Base and would target the directory
	// itself or its parent.
	for _, name := range []string{".", "..", "../"} {
		if _, err := l.SaveUpload(name, []byte("data")); err == nil {
			t.Fatalf("SaveUpload(%q) error = nil, want invalid name error", name)
		}
	}
}

func TestGeneratedNameIsUnique(t *testing.T) {
	l := newTestLibrary(t)
	a := l.GeneratedName("image", ".jpg")
	b := l.GeneratedName("image", ".jpg")
	if a == b {
		t.Fatalf("GeneratedName() produced duplicate %q", a)
	}
	if !strings.HasPrefix(a, "image_") || !strings.HasSuffix(a, ".jpg") {
		t.Fatalf("GeneratedName() = %q, want image_*.jpg", a)
	}
}

func writeAged(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	mod := time.Now().Add(-age)
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}
	return path
}

func TestSweepRemovesExpiredFiles(t *testing.T) {
	l := newTestLibrary(t)
	old := writeAged(t, l.UploadDir(), "old.jpg", 48*time.Hour)
	fresh := writeAged(t, l.UploadDir(), "fresh.jpg", time.Minute)

	if err := l.Sweep(RetentionPolicy{MaxAge: 24 * time.Hour}); err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expired file still present: %v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh file removed: %v", err)
	}
}

func TestSweepEnforcesMaxFiles(t *testing.T) {
	l := newTestLibrary(t)
	oldest := writeAged(t, l.HistoryDir(), "a.wav", 3*time.Hour)
	middle := writeAged(t, l.HistoryDir(), "b.wav", 2*time.Hour)
	newest := writeAged(t, l.HistoryDir(), "c.wav", time.Hour)

	if err := l.Sweep(RetentionPolicy{MaxFiles: 2}); err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	if _, err := os.Stat(oldest); !os.IsNotExist(err) {
		t.Fatalf("oldest file survived a max-files sweep: %v", err)
	}
	for _, path := range []string{middle, newest} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("kept file removed: %v", err)
		}
	}
}

func TestSweepDisabledPolicyIsNoOp(t *testing.T) {
	l := newTestLibrary(t)
	path := writeAged(t, l.UploadDir(), "keep.jpg", 1000*time.Hour)

	if err := l.Sweep(RetentionPolicy{}); err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file removed by disabled policy: %v", err)
	}
}
