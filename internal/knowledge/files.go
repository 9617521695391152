// Package knowledge manages the knowledge-file working set attached to an
// assistant profile and inspects the files behind it.
package knowledge

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicate is returned when a path is added twice.
var ErrDuplicate = errors.New("file already added")

// FileSet maps knowledge file paths to their remote file IDs. An ID is nil
// until the file has been uploaded to the backing AI service.
type FileSet struct {
	ids map[string]*string
}

// NewFileSet returns an empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{ids: make(map[string]*string)}
}

// LoadFileSet builds a working copy from a stored profile's knowledge-file
// mapping. The input map is not retained.
func LoadFileSet(stored map[string]*string) *FileSet {
	fs := NewFileSet()
	for path, id := range stored {
		fs.ids[path] = id
	}
	return fs
}

// Add registers a new file path with no remote ID yet.
func (f *FileSet) Add(path string) error {
	if _, ok := f.ids[path]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, path)
	}
	f.ids[path] = nil
	return nil
}

// Remove drops a path from the set, reporting whether it was present.
func (f *FileSet) Remove(path string) bool {
	if _, ok := f.ids[path]; !ok {
		return false
	}
	delete(f.ids, path)
	return true
}

// SetID records the remote file ID assigned after upload.
func (f *FileSet) SetID(path, id string) error {
	if _, ok := f.ids[path]; !ok {
		return fmt.Errorf("unknown knowledge file %q", path)
	}
	f.ids[path] = &id
	return nil
}

// Contains reports whether the path is in the set.
func (f *FileSet) Contains(path string) bool {
	_, ok := f.ids[path]
	return ok
}

// Len returns the number of files in the set.
func (f *FileSet) Len() int {
	return len(f.ids)
}

// Paths returns the file paths in sorted order.
func (f *FileSet) Paths() []string {
	paths := make([]string, 0, len(f.ids))
	for p := range f.ids {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Map returns a copy of the path-to-ID mapping for serialization.
func (f *FileSet) Map() map[string]*string {
	out := make(map[string]*string, len(f.ids))
	for path, id := range f.ids {
		out[path] = id
	}
	return out
}
