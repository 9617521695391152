// Package store persists assistant profiles as JSON config files in a
// single configuration directory, one file per assistant.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aide-tools/aide/internal/profile"
)

// ConfigSuffix is appended to the assistant name to form its file name.
const ConfigSuffix = "_assistant_config.json"

// ErrNotFound is returned when no profile with the requested name exists.
var ErrNotFound = errors.New("assistant not found")

// ErrInvalidName is returned for assistant names that cannot form a safe
// file name inside the config directory.
var ErrInvalidName = errors.New("invalid assistant name")

// validateName rejects names that would escape the config directory when
// joined into a file path.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || name != filepath.Clean(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Store reads and writes assistant profile documents under a config dir.
type Store struct {
	dir  string
	opts profile.DecodeOptions
}

// Open ensures the config directory exists and returns a Store over it.
// opts supplies fallbacks applied when older documents omit fields.
func Open(dir string, opts profile.DecodeOptions) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}
	return &Store{dir: dir, opts: opts}, nil
}

// Dir returns the config directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the config file path for the named assistant.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+ConfigSuffix)
}

// Save validates and writes the profile document. An invalid profile writes
// nothing and returns a *profile.ValidationError. The write is atomic: the
// document lands in a temp file first and is renamed into place.
func (s *Store) Save(p profile.AssistantProfile) error {
	if err := validateName(p.Name); err != nil {
		return err
	}
	data, err := profile.Encode(p)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+p.Name+"-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing profile %q: %w", p.Name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.Path(p.Name)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("saving profile %q: %w", p.Name, err)
	}
	return nil
}

// Get loads the named profile, applying the store's decode fallbacks.
func (s *Store) Get(name string) (profile.AssistantProfile, error) {
	if err := validateName(name); err != nil {
		return profile.AssistantProfile{}, err
	}
	data, err := os.ReadFile(s.Path(name))
	if os.IsNotExist(err) {
		return profile.AssistantProfile{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return profile.AssistantProfile{}, fmt.Errorf("reading profile %q: %w", name, err)
	}

	p, err := profile.Decode(data, s.opts)
	if err != nil {
		return profile.AssistantProfile{}, fmt.Errorf("loading profile %q: %w", name, err)
	}
	return p, nil
}

// Delete removes the named profile's config file.
func (s *Store) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	err := os.Remove(s.Path(name))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return err
}

// Names returns all stored assistant names in sorted order.
func (s *Store) Names() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing config directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ConfigSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ConfigSuffix))
	}
	sort.Strings(names)
	return names, nil
}

// NamesByClientType returns the stored assistant names whose profiles match
// the given client type and assistant subtype. A profile that fails to parse
// is skipped rather than failing the whole listing.
func (s *Store) NamesByClientType(ct profile.ClientType, at profile.AssistantType) ([]string, error) {
	names, err := s.Names()
	if err != nil {
		return nil, err
	}

	var matched []string
	for _, name := range names {
		p, err := s.Get(name)
		if err != nil {
			continue
		}
		if p.ClientType == ct && p.AssistantType == at {
			matched = append(matched, name)
		}
	}
	return matched, nil
}
