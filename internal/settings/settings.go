// Package settings is the durable key-value record behind window geometry.
// Values are addressed by dotted paths ("window.width") and stored as one
// JSON-encoded leaf per row, with a declared defaults record underneath.
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrInvalidPath = errors.New("invalid settings path")

// Backend is the row storage the record lives in.
type Backend interface {
	ListSettings(ctx context.Context) (map[string]string, error)
	SetSetting(ctx context.Context, key, value string) error
	ReplaceSettings(ctx context.Context, key string, values map[string]string) error
}

type Store struct {
	backend  Backend
	defaults map[string]string
}

// New builds a store over backend. defaults is any JSON-encodable record; its
// leaves back every Get that finds nothing stored.
func New(backend Backend, defaults any) (*Store, error) {
	if backend == nil {
		return nil, errors.New("settings backend is required")
	}
	flat := map[string]string{}
	if defaults != nil {
		var err error
		flat, err = flatten("", defaults)
		if err != nil {
			return nil, fmt.Errorf("encode defaults: %w", err)
		}
	}
	return &Store{backend: backend, defaults: flat}, nil
}

// EnsureDefaults persists every default leaf that is not stored yet.
func (s *Store) EnsureDefaults(ctx context.Context) error {
	stored, err := s.backend.ListSettings(ctx)
	if err != nil {
		return err
	}
	for _, key := range sortedKeys(s.defaults) {
		if _, ok := stored[key]; ok {
			continue
		}
		if err := s.backend.SetSetting(ctx, key, s.defaults[key]); err != nil {
			return fmt.Errorf("write default %s: %w", key, err)
		}
	}
	return nil
}

// Get decodes the value at path into out. Stored leaves override defaults one
// field at a time. found is false when neither has anything under path.
func (s *Store) Get(ctx context.Context, path string, out any) (bool, error) {
	if err := validatePath(path); err != nil {
		return false, err
	}
	effective, err := s.Snapshot(ctx)
	if err != nil {
		return false, err
	}

	if raw, ok := effective[path]; ok {
		if err := json.Unmarshal([]byte(raw), out); err != nil {
			return false, fmt.Errorf("decode %s: %w", path, err)
		}
		return true, nil
	}

	tree, ok := subtree(effective, path)
	if !ok {
		return false, nil
	}
	encoded, err := json.Marshal(tree)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(encoded, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

// GetInt returns the integer at path, or fallback when it is missing or not
// an integer.
func (s *Store) GetInt(ctx context.Context, path string, fallback int) (int, error) {
	var value int
	found, err := s.Get(ctx, path, &value)
	if err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return fallback, nil
		}
		return fallback, err
	}
	if !found {
		return fallback, nil
	}
	return value, nil
}

// Set replaces everything stored under path with value.
func (s *Store) Set(ctx context.Context, path string, value any) error {
	if err := validatePath(path); err != nil {
		return err
	}
	leaves, err := flatten(path, value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return s.backend.ReplaceSettings(ctx, path, leaves)
}

// Snapshot returns the effective flattened record: defaults overlaid with
// stored leaves.
func (s *Store) Snapshot(ctx context.Context) (map[string]string, error) {
	stored, err := s.backend.ListSettings(ctx)
	if err != nil {
		return nil, err
	}
	effective := make(map[string]string, len(s.defaults)+len(stored))
	for k, v := range s.defaults {
		effective[k] = v
	}
	for k, v := range stored {
		if !json.Valid([]byte(v)) {
			continue
		}
		effective[k] = v
	}
	return effective, nil
}

func validatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	for _, segment := range strings.Split(path, ".") {
		if strings.TrimSpace(segment) == "" {
			return fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return nil
}

func flatten(prefix string, value any) (map[string]string, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	decoder := json.NewDecoder(bytes.NewReader(encoded))
	decoder.UseNumber()
	var generic any
	if err := decoder.Decode(&generic); err != nil {
		return nil, err
	}
	out := map[string]string{}
	if err := flattenInto(out, prefix, generic); err != nil {
		return nil, err
	}
	return out, nil
}

func flattenInto(out map[string]string, prefix string, value any) error {
	switch typed := value.(type) {
	case nil:
		return nil
	case map[string]any:
		if len(typed) == 0 && prefix != "" {
			out[prefix] = "{}"
			return nil
		}
		for key, child := range typed {
			if strings.Contains(key, ".") || key == "" {
				return fmt.Errorf("%w: key %q", ErrInvalidPath, key)
			}
			if err := flattenInto(out, joinPath(prefix, key), child); err != nil {
				return err
			}
		}
		return nil
	default:
		if prefix == "" {
			return fmt.Errorf("%w: scalar value needs a path", ErrInvalidPath)
		}
		encoded, err := json.Marshal(typed)
		if err != nil {
			return err
		}
		out[prefix] = string(encoded)
		return nil
	}
}

func subtree(flat map[string]string, path string) (map[string]any, bool) {
	prefix := path + "."
	root := map[string]any{}
	found := false
	for _, key := range sortedKeys(flat) {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		var leaf any
		if err := json.Unmarshal([]byte(flat[key]), &leaf); err != nil {
			continue
		}
		insert(root, strings.Split(strings.TrimPrefix(key, prefix), "."), leaf)
		found = true
	}
	return root, found
}

func insert(node map[string]any, segments []string, leaf any) {
	head := segments[0]
	if len(segments) == 1 {
		node[head] = leaf
		return
	}
	child, ok := node[head].(map[string]any)
	if !ok {
		child = map[string]any{}
		node[head] = child
	}
	insert(child, segments[1:], leaf)
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
