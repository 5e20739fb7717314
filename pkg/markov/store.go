package markov

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/natefinch/atomic"
)

// Store persists models under a name.
type Store interface {
	Save(ctx context.Context, name string, m *Model) error
	Load(ctx context.Context, name string) (*Model, error)
}

var modelNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidateName reports whether name is usable as a model name in every Store.
func ValidateName(name string) error {
	if !modelNameRegex.MatchString(name) {
		return fmt.Errorf("invalid model name %q", name)
	}
	return nil
}

// FileStore keeps each model as <Dir>/<name>.json.
type FileStore struct {
	Dir string
}

func (s FileStore) path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.Dir, name+".json"), nil
}

// Save writes m atomically, replacing any model already stored under name.
func (s FileStore) Save(ctx context.Context, name string, m *Model) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, m); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("could not create model directory: %w", err)
	}
	if err := atomic.WriteFile(p, &buf); err != nil {
		return fmt.Errorf("could not write model %q: %w", name, err)
	}
	return nil
}

// Load reads the model stored under name.
func (s FileStore) Load(ctx context.Context, name string) (*Model, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	m, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", name, err)
	}
	return m, nil
}
