package image

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/bacalhau-project/callback-relay/pkg/relayerrors"
)

// Entry is a program the relay knows how to run.
type Entry struct {
	Name   string
	ID     ID
	Binary []byte
}

// NewEntry builds an entry for binary, computing its identifier. Names are
// stored upper-cased.
func NewEntry(name string, binary []byte) Entry {
	return Entry{
		Name:   strings.ToUpper(name),
		ID:     ComputeID(binary),
		Binary: binary,
	}
}

// Registry is an immutable set of images, addressable by name or by ID. It is
// safe for concurrent use.
type Registry struct {
	entries []Entry
	byID    map[ID]int
	byName  map[string]int
}

// NewRegistry returns a registry over entries. Two entries may not share a
// name (ignoring case) or an identifier.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{
		entries: make([]Entry, 0, len(entries)),
		byID:    make(map[ID]int, len(entries)),
		byName:  make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		name := strings.ToUpper(e.Name)
		if name == "" {
			return nil, fmt.Errorf("image %s has no name", e.ID)
		}
		if _, ok := r.byName[name]; ok {
			return nil, fmt.Errorf("duplicate image name %s", name)
		}
		if i, ok := r.byID[e.ID]; ok {
			return nil, fmt.Errorf("images %s and %s share id %s", r.entries[i].Name, name, e.ID)
		}
		e.Name = name
		r.byName[name] = len(r.entries)
		r.byID[e.ID] = len(r.entries)
		r.entries = append(r.entries, e)
	}
	return r, nil
}

// LoadDir builds a registry from every .wasm file in dir. The image name is
// the file name without extension.
func LoadDir(dir string) (*Registry, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.wasm"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	entries := make([]Entry, 0, len(paths))
	for _, path := range paths {
		binary, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading image %s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		entry := NewEntry(name, binary)
		log.Debug().Str("image", entry.Name).Str("id", entry.ID.String()).Str("path", path).Msg("Loaded image")
		entries = append(entries, entry)
	}
	return NewRegistry(entries...)
}

// Resolve finds the entry for selector, which is either a hex encoded image
// ID or a case-insensitive image name. A selector that is not valid hex is
// only compared against names.
func (r *Registry) Resolve(selector string) (Entry, error) {
	if id, err := ParseID(selector); err == nil {
		if i, ok := r.byID[id]; ok {
			return r.entries[i], nil
		}
	}
	if i, ok := r.byName[strings.ToUpper(strings.TrimSpace(selector))]; ok {
		return r.entries[i], nil
	}

	known := r.IDs()
	return Entry{}, relayerrors.New(relayerrors.UnknownImage, "unknown image %s, found: %v", selector, known).
		WithDetail("selector", selector).
		WithDetail("known", strings.Join(known, ","))
}

// ResolveID finds the entry with the given identifier.
func (r *Registry) ResolveID(id ID) (Entry, error) {
	return r.Resolve(id.String())
}

// Entries returns the registered images in registration order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// IDs returns the hex identifiers of all registered images.
func (r *Registry) IDs() []string {
	return lo.Map(r.entries, func(e Entry, _ int) string {
		return e.ID.String()
	})
}

func (r *Registry) Len() int {
	return len(r.entries)
}
