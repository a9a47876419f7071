package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// UploadDir stores incoming recordings under unique names. Files handed out by
// Save and WAVPath stay in use until Remove or Release, and Clean leaves them alone.
type UploadDir struct {
	root string

	mu     sync.Mutex
	active map[string]struct{}
}

// NewUploadDir creates the directory if needed
func NewUploadDir(root string) (*UploadDir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", root, err)
	}
	return &UploadDir{root: root, active: make(map[string]struct{})}, nil
}

// Root returns the directory path
func (u *UploadDir) Root() string {
	return u.root
}

// Save copies r into a new file named after a fresh uuid, keeping the extension
// of the original file name. It returns the path written.
func (u *UploadDir) Save(originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	path := filepath.Join(u.root, "audio_raw_"+uuid.NewString()+ext)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to save upload: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to save upload: %w", err)
	}

	u.acquire(path)
	return path, nil
}

// WAVPath reserves a fresh output path inside the directory for converting
// rawPath. The file itself is not created.
func (u *UploadDir) WAVPath(rawPath string) string {
	base := strings.TrimSuffix(filepath.Base(rawPath), filepath.Ext(rawPath))
	if id, ok := strings.CutPrefix(base, "audio_raw_"); ok {
		base = id
	} else {
		base = base + "_" + uuid.NewString()
	}
	path := filepath.Join(u.root, "audio_"+base+".wav")
	u.acquire(path)
	return path
}

func (u *UploadDir) acquire(path string) {
	u.mu.Lock()
	u.active[path] = struct{}{}
	u.mu.Unlock()
}

// Release marks files as no longer in use without deleting them
func (u *UploadDir) Release(paths ...string) {
	u.mu.Lock()
	for _, p := range paths {
		delete(u.active, p)
	}
	u.mu.Unlock()
}

func (u *UploadDir) inUse(path string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.active[path]
	return ok
}

// Remove deletes the given files, ignoring ones already gone
func (u *UploadDir) Remove(paths ...string) error {
	defer u.Release(paths...)
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

// Clean deletes every regular file in the directory that is not in use and
// returns how many were removed
func (u *UploadDir) Clean() (int, error) {
	entries, err := os.ReadDir(u.root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list %s: %w", u.root, err)
	}

	deleted := 0
	for _, e := range entries {
		path := filepath.Join(u.root, e.Name())
		if !e.Type().IsRegular() || u.inUse(path) {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return deleted, fmt.Errorf("failed to remove %s: %w", e.Name(), err)
		}
		deleted++
	}
	return deleted, nil
}
