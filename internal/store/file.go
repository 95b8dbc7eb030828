package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File persists each slot as one JSON file under dir. File names are
// "<kind>.json" for unscoped slots and "<kind>__<identity>.json"
// otherwise, so a data dir stays inspectable with plain tools.
type File struct {
	dir string
}

func NewFile(dir string) (*File, error) {
	if strings.TrimSpace(dir) == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".scw", "data")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) Load(_ context.Context, kind, identity string) ([]byte, bool, error) {
	raw, err := os.ReadFile(f.path(kind, identity))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return raw, true, nil
}

func (f *File) Save(_ context.Context, kind, identity string, value []byte) error {
	return os.WriteFile(f.path(kind, identity), value, 0o600)
}

func (f *File) Delete(_ context.Context, kind, identity string) error {
	err := os.Remove(f.path(kind, identity))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (f *File) path(kind, identity string) string {
	name := sanitize(kind)
	if identity != "" {
		name += "__" + sanitize(identity)
	}
	return filepath.Join(f.dir, name+".json")
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
