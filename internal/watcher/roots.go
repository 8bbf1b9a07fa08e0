package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// pathWatcher is the part of fsnotify.Watcher the root set needs.
type pathWatcher interface {
	Add(name string) error
	Remove(name string) error
}

// rootSet tracks the watched roots in insertion order and the directories registered
// for each. Callers serialize access.
type rootSet struct {
	recursive bool
	order     []string
	dirs      map[string][]string
}

func newRootSet(recursive bool) *rootSet {
	return &rootSet{recursive: recursive, dirs: make(map[string][]string)}
}

func (s *rootSet) has(root string) bool {
	_, ok := s.dirs[filepath.Clean(root)]
	return ok
}

// add creates root when missing and registers it (and its subdirectories when
// recursive) with pw. Adding a known root is a no-op.
func (s *rootSet) add(pw pathWatcher, root string) error {
	root = filepath.Clean(root)
	if s.has(root) {
		return nil
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}
	dirs, err := s.register(pw, root)
	if err != nil {
		for _, d := range dirs {
			_ = pw.Remove(d)
		}
		return err
	}
	s.order = append(s.order, root)
	s.dirs[root] = dirs
	return nil
}

// register adds dir to pw, walking below it when recursive, and returns what was added.
func (s *rootSet) register(pw pathWatcher, dir string) ([]string, error) {
	if !s.recursive {
		if err := pw.Add(dir); err != nil {
			return nil, err
		}
		return []string{dir}, nil
	}
	var added []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := pw.Add(path); err != nil {
			return err
		}
		added = append(added, path)
		return nil
	})
	return added, err
}

// extend records directories registered after the root was added, such as new subfolders.
func (s *rootSet) extend(dir string, added []string) {
	if root, ok := s.rootOf(dir); ok {
		s.dirs[root] = append(s.dirs[root], added...)
	}
}

// remove unregisters root from pw. Returns false for an unknown root.
func (s *rootSet) remove(pw pathWatcher, root string) bool {
	root = filepath.Clean(root)
	dirs, ok := s.dirs[root]
	if !ok {
		return false
	}
	for _, d := range dirs {
		_ = pw.Remove(d)
	}
	delete(s.dirs, root)
	for i, r := range s.order {
		if r == root {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *rootSet) list() []string {
	return append([]string(nil), s.order...)
}

// rootOf returns the watched root containing path.
func (s *rootSet) rootOf(path string) (string, bool) {
	path = filepath.Clean(path)
	for _, root := range s.order {
		if inDir(root, path) {
			return root, true
		}
	}
	return "", false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
