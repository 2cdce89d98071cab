package assets

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/heightfield/internal/engine/mesh"
	"github.com/Faultbox/heightfield/internal/engine/texture"
	"github.com/Faultbox/heightfield/internal/logger"
)

// FileSource loads assets from a stack of data directories.
// Roots are searched in reverse order (last added = highest priority).
type FileSource struct {
	roots []string
	cache *Cache
	mu    sync.RWMutex
}

var _ Source = (*FileSource)(nil)

// NewFileSource creates a source searching roots. With no roots, paths are
// resolved against the working directory.
func NewFileSource(roots ...string) *FileSource {
	s := &FileSource{cache: NewCache()}
	for _, r := range roots {
		s.AddRoot(r)
	}
	return s
}

// AddRoot adds a data directory with the highest priority.
func (s *FileSource) AddRoot(dir string) {
	s.mu.Lock()
	s.roots = append(s.roots, dir)
	s.mu.Unlock()
}

// Resolve returns the file path for a relative asset path. Absolute paths are
// returned unchanged if they exist.
func (s *FileSource) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrNotFound)
	}
	if filepath.IsAbs(path) {
		if isFile(path) {
			return path, nil
		}
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.roots) == 0 {
		if isFile(path) {
			return path, nil
		}
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	for i := len(s.roots) - 1; i >= 0; i-- {
		full := filepath.Join(s.roots[i], path)
		if isFile(full) {
			return full, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, path)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ReadFile returns the contents of an asset, from the cache when possible.
func (s *FileSource) ReadFile(path string) ([]byte, error) {
	if data, ok := s.cache.Get(path); ok {
		return data, nil
	}

	full, err := s.Resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", full, err)
	}
	s.cache.Set(path, data)
	logger.Named("assets").Debug("asset loaded", zap.String("path", full), zap.Int("bytes", len(data)))
	return data, nil
}

// LoadModel loads a Wavefront OBJ model.
func (s *FileSource) LoadModel(path string) ([]mesh.Data, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".obj" {
		return nil, fmt.Errorf("model %s: unsupported format %q", path, ext)
	}
	data, err := s.ReadFile(path)
	if err != nil {
		return nil, err
	}
	meshes, err := ParseOBJ(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return meshes, nil
}

// LoadImage loads and decodes an image.
func (s *FileSource) LoadImage(path string) (texture.Image, error) {
	data, err := s.ReadFile(path)
	if err != nil {
		return texture.Image{}, err
	}
	return texture.Decode(data, path)
}

// Stats returns the cache hit and miss counts.
func (s *FileSource) Stats() (hits, misses int) {
	return s.cache.Stats()
}

// Close drops cached data.
func (s *FileSource) Close() {
	s.cache.Clear()
}
