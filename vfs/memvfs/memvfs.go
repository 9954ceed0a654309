// Package memvfs is an in-memory implementation of vfs.FS, used by tests
// and by any caller with no durable working tree to back onto. Grounded on
// go-git's use of billy's memfs.New() as the filesystem it drives its own
// worktree tests against.
package memvfs

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/nseba/gitcore/vfs"
)

// FS is a process-local, mutex-guarded working tree held entirely in
// memory.
type FS struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool
}

var _ vfs.FS = (*FS)(nil)

func New() *FS {
	return &FS{files: map[string][]byte{}, dirs: map[string]bool{".": true}}
}

func clean(p string) string {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "."
	}
	return path.Clean(p)
}

func (f *FS) ReadFile(_ context.Context, p string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	data, ok := f.files[clean(p)]
	if !ok {
		return nil, vfs.ErrNotExist
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (f *FS) WriteFile(_ context.Context, p string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	key := clean(p)
	f.files[key] = cp
	for dir := path.Dir(key); dir != "."; dir = path.Dir(dir) {
		f.dirs[dir] = true
	}
	return nil
}

func (f *FS) Mkdir(_ context.Context, p string, recursive bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := clean(p)
	if !recursive {
		parent := path.Dir(key)
		if parent != "." && !f.dirs[parent] {
			return vfs.ErrNotExist
		}
	}
	for dir := key; dir != "."; dir = path.Dir(dir) {
		f.dirs[dir] = true
	}
	return nil
}

func (f *FS) Readdir(_ context.Context, p string) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	key := clean(p)
	if !f.dirs[key] {
		return nil, vfs.ErrNotExist
	}
	seen := map[string]bool{}
	var out []string
	for name := range f.files {
		if path.Dir(name) == key {
			base := path.Base(name)
			if !seen[base] {
				seen[base] = true
				out = append(out, base)
			}
		}
	}
	for dir := range f.dirs {
		if path.Dir(dir) == key && dir != key {
			base := path.Base(dir)
			if !seen[base] {
				seen[base] = true
				out = append(out, base)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *FS) Unlink(_ context.Context, p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := clean(p)
	if _, ok := f.files[key]; !ok {
		return vfs.ErrNotExist
	}
	delete(f.files, key)
	return nil
}

func (f *FS) Rmdir(_ context.Context, p string, recursive bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := clean(p)
	if recursive {
		for name := range f.files {
			if strings.HasPrefix(name, key+"/") {
				delete(f.files, name)
			}
		}
	}
	delete(f.dirs, key)
	return nil
}

func (f *FS) Stat(_ context.Context, p string) (vfs.FileInfo, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	key := clean(p)
	if data, ok := f.files[key]; ok {
		return vfs.FileInfo{Name: path.Base(key), Kind: vfs.KindFile, Size: int64(len(data))}, nil
	}
	if f.dirs[key] {
		return vfs.FileInfo{Name: path.Base(key), Kind: vfs.KindDir}, nil
	}
	return vfs.FileInfo{}, vfs.ErrNotExist
}

// Watch is unsupported: callers fall back to a full status walk, the
// degraded mode vfs.FS's doc comment permits.
func (f *FS) Watch(_ context.Context, _ string, _ func(vfs.Event)) (func(), error) {
	return func() {}, nil
}
