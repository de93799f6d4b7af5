// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package source provides access to the trace artifacts written by the profiler.
package source // import "github.com/wpprofiler/hookreporter/source"

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const (
	// jsonSuffix marks plain trace artifacts.
	jsonSuffix = ".json"
	// zstdSuffix marks zstd compressed artifacts.
	zstdSuffix = ".zst"
)

// ErrNotFound is returned if an artifact does not exist (anymore).
var ErrNotFound = errors.New("artifact not found")

// Source is a place trace artifacts are read from.
type Source interface {
	// List returns the names of all artifacts currently present.
	List(ctx context.Context) ([]string, error)
	// Open opens the artifact called name. ErrNotFound is returned if it is gone.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Remove deletes the artifact called name. Removing a missing artifact
	// is not an error.
	Remove(ctx context.Context, name string) error
}

// IsArtifact returns true if name looks like a trace artifact.
func IsArtifact(name string) bool {
	return strings.HasSuffix(name, jsonSuffix) ||
		strings.HasSuffix(name, jsonSuffix+zstdSuffix)
}

// ReadArtifact reads the artifact called name from src. Compressed artifacts
// are decompressed.
func ReadArtifact(ctx context.Context, src Source, name string) ([]byte, error) {
	rc, err := src.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if strings.HasSuffix(name, zstdSuffix) {
		dec, err := zstd.NewReader(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader for %s: %w", name, err)
		}
		defer dec.Close()
		r = dec
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}
