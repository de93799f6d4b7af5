// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
}

func TestDirList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.json", []byte(`{}`))
	writeFile(t, dir, "a.json.zst", []byte(`{}`))
	writeFile(t, dir, "notes.txt", []byte(`x`))
	writeFile(t, dir, "c.json.tmp", []byte(`{}`))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o700))

	names, err := NewDir(dir).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json.zst", "b.json"}, names)
}

func TestDirListMissingDirectory(t *testing.T) {
	_, err := NewDir(filepath.Join(t.TempDir(), "gone")).List(context.Background())
	require.Error(t, err)
}

func TestDirOpenAndRemove(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "trace.json", []byte(`{"a":1}`))
	src := NewDir(dir)

	data, err := ReadArtifact(ctx, src, "trace.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))

	require.NoError(t, src.Remove(ctx, "trace.json"))
	_, err = os.Stat(filepath.Join(dir, "trace.json"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = ReadArtifact(ctx, src, "trace.json")
	require.ErrorIs(t, err, ErrNotFound)

	// Removing twice is fine.
	require.NoError(t, src.Remove(ctx, "trace.json"))
}

func TestDirStaysInRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "root")
	require.NoError(t, os.Mkdir(root, 0o700))
	writeFile(t, parent, "outside.json", []byte(`{}`))

	_, err := ReadArtifact(context.Background(), NewDir(root), "../outside.json")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReadArtifactZstd(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := enc.EncodeAll([]byte(`{"collectors":{}}`), nil)
	require.NoError(t, enc.Close())

	dir := t.TempDir()
	writeFile(t, dir, "trace.json.zst", compressed)
	writeFile(t, dir, "broken.json.zst", []byte("not zstd"))

	data, err := ReadArtifact(context.Background(), NewDir(dir), "trace.json.zst")
	require.NoError(t, err)
	assert.JSONEq(t, `{"collectors":{}}`, string(data))

	_, err = ReadArtifact(context.Background(), NewDir(dir), "broken.json.zst")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestIsArtifact(t *testing.T) {
	assert.True(t, IsArtifact("x.json"))
	assert.True(t, IsArtifact("dir/x.json.zst"))
	assert.False(t, IsArtifact("x.zst"))
	assert.False(t, IsArtifact("x.json.lock"))
}
