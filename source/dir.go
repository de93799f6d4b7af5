// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package source // import "github.com/wpprofiler/hookreporter/source"

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Dir reads artifacts from a local directory.
type Dir struct {
	root string
}

var _ Source = (*Dir)(nil)

// NewDir returns a Source for the artifacts in the directory root.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// Root returns the directory the artifacts are read from.
func (d *Dir) Root() string {
	return d.root
}

func (d *Dir) path(name string) string {
	return filepath.Join(d.root, filepath.Base(name))
}

// List returns the artifact file names in the directory in lexical order.
func (d *Dir) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", d.root, err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !IsArtifact(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (d *Dir) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(d.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return f, err
}

func (d *Dir) Remove(_ context.Context, name string) error {
	err := os.Remove(d.path(name))
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
