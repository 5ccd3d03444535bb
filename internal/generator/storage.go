package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
)

type writeCategory string

const (
	categoryPage     writeCategory = "page"
	categoryAsset    writeCategory = "asset"
	categorySitemap  writeCategory = "sitemap"
	categoryRobots   writeCategory = "robots"
	categoryFeed     writeCategory = "feed"
	categorySearch   writeCategory = "search"
	categoryManifest writeCategory = "manifest"
)

// Storage persists build outputs. Paths are slash separated and relative to
// the output root.
type Storage interface {
	EnsureDir(ctx context.Context, dir string) error
	WriteFile(ctx context.Context, name string, content io.Reader) error
	ReadFile(ctx context.Context, name string) ([]byte, error)
	Exists(ctx context.Context, name string) (bool, error)
	Remove(ctx context.Context, name string) error
	// Clean removes everything under the output root, keeping the root.
	Clean(ctx context.Context) error
}

// FileStorage writes outputs below Root with atomic renames.
type FileStorage struct {
	Root string
}

// NewFileStorage returns a FileStorage rooted at root.
func NewFileStorage(root string) *FileStorage {
	return &FileStorage{Root: filepath.Clean(root)}
}

func (s *FileStorage) resolve(name string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
	if clean == "/" {
		return s.Root, nil
	}
	return filepath.Join(s.Root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (s *FileStorage) EnsureDir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(full, 0o755); err != nil {
		return fmt.Errorf("generator: ensure dir %s: %w", dir, err)
	}
	return nil
}

func (s *FileStorage) WriteFile(ctx context.Context, name string, content io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("generator: ensure dir for %s: %w", name, err)
	}
	if err := atomic.WriteFile(full, content); err != nil {
		return fmt.Errorf("generator: write %s: %w", name, err)
	}
	return nil
}

func (s *FileStorage) ReadFile(_ context.Context, name string) ([]byte, error) {
	full, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

func (s *FileStorage) Exists(_ context.Context, name string) (bool, error) {
	full, err := s.resolve(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (s *FileStorage) Remove(_ context.Context, name string) error {
	full, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("generator: remove %s: %w", name, err)
	}
	return nil
}

func (s *FileStorage) Clean(ctx context.Context) error {
	entries, err := os.ReadDir(s.Root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("generator: clean %s: %w", s.Root, err)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.RemoveAll(filepath.Join(s.Root, entry.Name())); err != nil {
			return fmt.Errorf("generator: clean %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// MemoryStorage keeps outputs in memory. Used for dry runs and tests.
type MemoryStorage struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{files: map[string][]byte{}}
}

func memoryKey(name string) string {
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}

func (s *MemoryStorage) EnsureDir(context.Context, string) error { return nil }

func (s *MemoryStorage) WriteFile(ctx context.Context, name string, content io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[memoryKey(name)] = data
	return nil
}

func (s *MemoryStorage) ReadFile(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[memoryKey(name)]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return bytes.Clone(data), nil
}

func (s *MemoryStorage) Exists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[memoryKey(name)]
	return ok, nil
}

func (s *MemoryStorage) Remove(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, memoryKey(name))
	return nil
}

func (s *MemoryStorage) Clean(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = map[string][]byte{}
	return nil
}

// Files lists stored paths in lexical order.
func (s *MemoryStorage) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.files))
	for name := range s.files {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// writeFileRequest describes a file write routed through the artifact writer.
type writeFileRequest struct {
	Path     string
	Content  []byte
	Category writeCategory
	Checksum string
	Source   string
}

// artifactWriter applies incremental skipping and records what was written.
type artifactWriter struct {
	storage     Storage
	manifest    *buildManifest
	previous    *buildManifest
	incremental bool
	recorder    Recorder

	mu      sync.Mutex
	written int
	skipped int
	dirs    map[string]struct{}
}

func newArtifactWriter(storage Storage, previous, next *buildManifest, incremental bool, recorder Recorder) *artifactWriter {
	return &artifactWriter{
		storage:     storage,
		manifest:    next,
		previous:    previous,
		incremental: incremental,
		recorder:    recorder,
		dirs:        map[string]struct{}{},
	}
}

// WriteFile writes req unless an incremental build finds the same checksum
// already on disk. It reports whether the file was written.
func (w *artifactWriter) WriteFile(ctx context.Context, req writeFileRequest) (bool, error) {
	if strings.TrimSpace(req.Path) == "" {
		return false, errors.New("generator: write requires path")
	}
	if req.Checksum == "" {
		req.Checksum = computeHash(req.Content)
	}
	entry := manifestEntry{
		Output:   req.Path,
		Category: string(req.Category),
		Source:   req.Source,
		Checksum: req.Checksum,
		Size:     int64(len(req.Content)),
	}

	if w.incremental && w.previous.unchanged(entry) {
		exists, err := w.storage.Exists(ctx, req.Path)
		if err != nil {
			return false, err
		}
		if exists {
			w.mu.Lock()
			w.skipped++
			w.manifest.set(entry)
			w.mu.Unlock()
			w.recorder.FileSkipped(string(req.Category))
			return false, nil
		}
	}

	if err := w.ensureDir(ctx, path.Dir(req.Path)); err != nil {
		return false, err
	}
	if err := w.storage.WriteFile(ctx, req.Path, bytes.NewReader(req.Content)); err != nil {
		return false, err
	}
	w.mu.Lock()
	w.written++
	w.manifest.set(entry)
	w.mu.Unlock()
	w.recorder.FileWritten(string(req.Category))
	return true, nil
}

func (w *artifactWriter) ensureDir(ctx context.Context, dir string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" || dir == "." || dir == "/" {
		return nil
	}
	w.mu.Lock()
	if _, ok := w.dirs[dir]; ok {
		w.mu.Unlock()
		return nil
	}
	w.dirs[dir] = struct{}{}
	w.mu.Unlock()
	return w.storage.EnsureDir(ctx, dir)
}
