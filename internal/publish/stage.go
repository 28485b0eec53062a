package publish

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"onevents/internal/ics"
	appLog "onevents/internal/log"
)

// Staging is an output tree built next to its final location and swapped
// in with renames once complete. Readers of the final directory see either
// the previous run or the new one, never a half-written mix.
type Staging struct {
	Final string
	Dir   string

	written int
}

// NewStaging creates an empty staging directory beside final.
func NewStaging(final string) (*Staging, error) {
	final = filepath.Clean(final)
	parent := filepath.Dir(final)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(parent, "."+filepath.Base(final)+"-staging-*")
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(dir, 0o755); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return &Staging{Final: final, Dir: dir}, nil
}

// Written is the number of files written so far.
func (s *Staging) Written() int { return s.written }

// WriteFile writes data at the slash separated path rel.
func (s *Staging) WriteFile(rel string, data []byte) error {
	target := filepath.Join(s.Dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return err
	}
	s.written++
	return nil
}

// WriteDocument serializes doc, checks that it parses back with every
// entry, and writes it at rel.
func (s *Staging) WriteDocument(rel string, doc ics.Document) error {
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return fmt.Errorf("%s: %w", rel, err)
	}
	parsed, err := ics.ParseDocument(buf.Bytes())
	if err != nil {
		return fmt.Errorf("%s: verify: %w", rel, err)
	}
	if len(parsed) != len(doc.Entries) {
		return fmt.Errorf("%s: verify: %w: %d entries written, %d read back",
			rel, ics.ErrMalformedDocument, len(doc.Entries), len(parsed))
	}
	return s.WriteFile(rel, buf.Bytes())
}

// WritePlan writes every document of p.
func (s *Staging) WritePlan(p *Plan) error {
	for _, f := range p.Files() {
		if err := s.WriteDocument(f.Path, f.Document); err != nil {
			return err
		}
	}
	return nil
}

// Commit replaces Final with the staged tree. The previous tree is moved
// aside first and restored if the swap fails.
func (s *Staging) Commit() error {
	old := s.Final + ".old"
	if err := os.RemoveAll(old); err != nil {
		return err
	}

	hadPrevious := true
	if err := os.Rename(s.Final, old); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("move previous output aside: %w", err)
		}
		hadPrevious = false
	}

	if err := os.Rename(s.Dir, s.Final); err != nil {
		if hadPrevious {
			if rerr := os.Rename(old, s.Final); rerr != nil {
				appLog.Error("restore previous output failed", rerr, "path", s.Final)
			}
		}
		return fmt.Errorf("swap in new output: %w", err)
	}

	if hadPrevious {
		if err := os.RemoveAll(old); err != nil {
			appLog.Error("remove previous output failed", err, "path", old)
		}
	}
	appLog.Info("output published", "path", s.Final, "files", s.written)
	return nil
}

// Discard removes the staging directory. It is safe to call after Commit.
func (s *Staging) Discard() error {
	err := os.RemoveAll(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
