package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"chaincodec/internal/evmabi"
	"chaincodec/internal/schema"
)

// SchemaFileExt is the recognized extension for CSDL schema files.
const SchemaFileExt = ".csdl"

// DirectoryError reports a missing or unreadable schema source path.
type DirectoryError struct {
	Path string
	Err  error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("schema path %s: %v", e.Path, e.Err)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

// Registry maps event selectors to their schemas. A selector collision
// is not an error: the newest schema silently replaces the oldest,
// which lets operators hot-reload schema files. A Registry is mutated
// only while loading; once handed to a decoder it is treated as a
// read-only snapshot and may be shared across goroutines.
type Registry struct {
	order   []common.Hash
	schemas map[common.Hash]schema.Event
}

func New() *Registry {
	return &Registry{schemas: make(map[common.Hash]schema.Event)}
}

// Add inserts a schema, overwriting any previous schema with the same
// selector.
func (r *Registry) Add(ev schema.Event) {
	if _, exists := r.schemas[ev.Selector]; !exists {
		r.order = append(r.order, ev.Selector)
	}
	r.schemas[ev.Selector] = ev
}

// Get looks up a schema by selector.
func (r *Registry) Get(selector common.Hash) (schema.Event, bool) {
	ev, ok := r.schemas[selector]
	return ev, ok
}

// Count returns the number of registered schemas.
func (r *Registry) Count() int {
	return len(r.schemas)
}

// Names returns the registered event names in load order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, sel := range r.order {
		names = append(names, r.schemas[sel].Name)
	}
	return names
}

// LoadFile parses one CSDL file and registers every declaration in it.
// Returns the number of schemas loaded. A malformed declaration fails
// the whole file and registers nothing from it.
func (r *Registry) LoadFile(path string) (int, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return 0, &DirectoryError{Path: path, Err: err}
	}
	events, err := schema.ParseCSDL(string(src))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	for _, ev := range events {
		r.Add(ev)
	}
	return len(events), nil
}

// LoadDirectory walks a directory tree and loads every .csdl file.
// The load is atomic over the directory: the first malformed file
// aborts the whole load with an error naming that file, and the
// registry keeps nothing from the failed pass. Returns the total
// number of schemas loaded.
func (r *Registry) LoadDirectory(dir string) (int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, &DirectoryError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return 0, &DirectoryError{Path: dir, Err: fmt.Errorf("not a directory")}
	}

	staged := New()
	count := 0
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &DirectoryError{Path: path, Err: err}
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), SchemaFileExt) {
			return nil
		}
		n, err := staged.LoadFile(path)
		if err != nil {
			return err
		}
		count += n
		return nil
	})
	if walkErr != nil {
		return 0, walkErr
	}

	for _, sel := range staged.order {
		r.Add(staged.schemas[sel])
	}
	return count, nil
}

// CountSchemas reports how many schemas a directory holds without
// mutating the receiver.
func CountSchemas(dir string) (int, error) {
	return New().LoadDirectory(dir)
}

// Summary is the serializable snapshot of a registry, suitable for
// crossing a process boundary and rehydrating on the decode side.
type Summary struct {
	Schemas []SchemaSummary `json:"schemas"`
}

type SchemaSummary struct {
	Name     string         `json:"name"`
	Selector string         `json:"selector"`
	Params   []ParamSummary `json:"params"`
}

type ParamSummary struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Indexed bool   `json:"indexed"`
}

// Summary snapshots the registry in load order.
func (r *Registry) Summary() Summary {
	out := Summary{Schemas: make([]SchemaSummary, 0, len(r.order))}
	for _, sel := range r.order {
		ev := r.schemas[sel]
		params := make([]ParamSummary, 0, len(ev.Params))
		for _, p := range ev.Params {
			params = append(params, ParamSummary{
				Name:    p.Name,
				Type:    p.Type.String(),
				Indexed: p.Indexed,
			})
		}
		out.Schemas = append(out.Schemas, SchemaSummary{
			Name:     ev.Name,
			Selector: ev.Selector.Hex(),
			Params:   params,
		})
	}
	return out
}

// FromSummary rebuilds a registry from a serialized snapshot. Selectors
// are recomputed from the canonical signature and verified against the
// claimed value, so a tampered or stale summary is rejected instead of
// silently misrouting logs.
func FromSummary(s Summary) (*Registry, error) {
	r := New()
	for _, ss := range s.Schemas {
		params := make([]schema.Param, 0, len(ss.Params))
		for _, ps := range ss.Params {
			ty, err := evmabi.ParseType(ps.Type)
			if err != nil {
				return nil, fmt.Errorf("schema %s, param %s: %w", ss.Name, ps.Name, err)
			}
			params = append(params, schema.Param{Name: ps.Name, Type: ty, Indexed: ps.Indexed})
		}
		ev := schema.New(ss.Name, params)
		if ss.Selector != "" && !strings.EqualFold(ss.Selector, ev.Selector.Hex()) {
			return nil, fmt.Errorf("schema %s: selector mismatch: claimed %s, computed %s",
				ss.Name, ss.Selector, ev.Selector.Hex())
		}
		r.Add(ev)
	}
	return r, nil
}
