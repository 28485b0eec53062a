// Package events loads event records from a directory of YAML files.
package events

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	appLog "onevents/internal/log"
	"onevents/internal/model"
)

// ErrMissingField is returned when a record lacks a required field.
var ErrMissingField = errors.New("missing required field")

// RequiredKeys must be present in every record. A present key may still be
// empty (an event without a street address); city is optional.
var RequiredKeys = []string{"title", "date", "address", "description", "registration_url", "icon"}

// Extensions are the file suffixes treated as event records.
var Extensions = []string{".yml", ".yaml"}

// LoadDir reads every record in dir, in filename order. The first broken
// record aborts the load.
func LoadDir(dir string) ([]model.Event, error) {
	return LoadFS(os.DirFS(dir), dir)
}

// LoadFS is LoadDir over an fs.FS. label prefixes file names in errors and
// in Event.Source.
func LoadFS(fsys fs.FS, label string) ([]model.Event, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read events dir %s: %w", label, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if slices.Contains(Extensions, strings.ToLower(filepath.Ext(e.Name()))) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	out := make([]model.Event, 0, len(names))
	for _, name := range names {
		source := filepath.Join(label, name)
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", source, err)
		}
		ev, err := Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		ev.Source = source
		out = append(out, ev)
	}

	appLog.Info("events loaded", "dir", label, "count", len(out))
	return out, nil
}

// Decode reads and validates a single record.
func Decode(r io.Reader) (model.Event, error) {
	var ev model.Event
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return ev, fmt.Errorf("empty record: %w", ErrMissingField)
		}
		return ev, err
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return ev, fmt.Errorf("line %d: record is not a mapping: %w", root.Line, ErrMissingField)
	}
	if err := requireKeys(root); err != nil {
		return ev, err
	}

	if err := root.Decode(&ev); err != nil {
		return ev, err
	}
	if err := Validate(ev); err != nil {
		return ev, err
	}
	return ev, nil
}

// requireKeys checks key presence on the raw mapping, since the decoded
// struct cannot tell a missing key from an empty value.
func requireKeys(m *yaml.Node) error {
	present := make(map[string]bool, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		present[m.Content[i].Value] = true
	}
	for _, key := range RequiredKeys {
		if !present[key] {
			return fmt.Errorf("%w: %s", ErrMissingField, key)
		}
	}
	return nil
}

// Validate checks the fields every calendar entry depends on. Times are
// only checked for presence here; their format is checked when entries are
// built.
func Validate(ev model.Event) error {
	if strings.TrimSpace(ev.Title) == "" {
		return fmt.Errorf("%w: title", ErrMissingField)
	}
	if ev.Date.IsZero() {
		return fmt.Errorf("%w: date", ErrMissingField)
	}
	for i, s := range ev.Sessions {
		switch {
		case s.Date.IsZero():
			return fmt.Errorf("%w: sessions[%d].date", ErrMissingField, i)
		case s.StartTime == "":
			return fmt.Errorf("%w: sessions[%d].start_time", ErrMissingField, i)
		case s.EndTime == "":
			return fmt.Errorf("%w: sessions[%d].end_time", ErrMissingField, i)
		}
	}
	return nil
}
