// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/wpprofiler/hookreporter/schema"
	"github.com/wpprofiler/hookreporter/source"
	"github.com/wpprofiler/hookreporter/store"
)

const traceDocument = `{"request":{"uri":"/"},"collectors":{"hook":{"children":[` +
	`{"hook":"init","time":5,"functions":[{"function":"a","file":"a.php","line":1,"time":2}],` +
	`"children":[{"hook":"load","time":3,"functions":[` +
	`{"function":"a","file":"a.php","line":1,"time":1},` +
	`{"function":"b","file":"b.php","line":7,"time":4}]}]}]},"db":{"queries":2}}}`

type fakeStore struct {
	posts [][]byte
	err   error
}

func (f *fakeStore) Post(_ context.Context, path string, body []byte) ([]byte, error) {
	if path != documentPath {
		return nil, errors.New("unexpected path " + path)
	}
	if f.err != nil {
		return nil, f.err
	}
	f.posts = append(f.posts, body)
	return []byte(`{"result":"created"}`), nil
}

type fakeSchema struct {
	calls int
	err   error
}

func (f *fakeSchema) EnsureSchema(context.Context) error {
	f.calls++
	return f.err
}

// flakySource fails removals while removeErr is set.
type flakySource struct {
	*source.Dir
	removeErr error
}

func (f *flakySource) Remove(ctx context.Context, name string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	return f.Dir.Remove(ctx, name)
}

func writeArtifact(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newPipeline(t *testing.T, src source.Source, st Store, sc SchemaEnsurer) *Pipeline {
	t.Helper()
	p, err := New(src, st, sc, Config{})
	require.NoError(t, err)
	return p
}

func TestProcess(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "trace.json", traceDocument)
	st, sc := &fakeStore{}, &fakeSchema{}
	p := newPipeline(t, source.NewDir(dir), st, sc)

	require.NoError(t, p.Process(context.Background(), "trace.json"))

	assert.Equal(t, 1, sc.calls)
	require.Len(t, st.posts, 1)
	doc := st.posts[0]
	assert.JSONEq(t, `[{"name":"init","functions":["a"],"time":5},`+
		`{"name":"load","functions":["a","b"],"time":3}]`,
		gjson.GetBytes(doc, "collectors.hook").Raw)
	assert.JSONEq(t, `[{"name":"a","line":1,"file":"a.php","count":2,"time":3},`+
		`{"name":"b","line":7,"file":"b.php","count":1,"time":4}]`,
		gjson.GetBytes(doc, "collectors.function").Raw)
	assert.Equal(t, `{"queries":2}`, gjson.GetBytes(doc, "collectors.db").Raw)
	assert.Equal(t, `{"uri":"/"}`, gjson.GetBytes(doc, "request").Raw)

	_, err := os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestProcessMissingArtifact(t *testing.T) {
	st, sc := &fakeStore{}, &fakeSchema{}
	p := newPipeline(t, source.NewDir(t.TempDir()), st, sc)

	require.NoError(t, p.Process(context.Background(), "gone.json"))
	assert.Zero(t, sc.calls)
	assert.Empty(t, st.posts)
}

func TestProcessMalformedArtifact(t *testing.T) {
	for name, content := range map[string]string{
		"no hook collector": `{"collectors":{"query":[]}}`,
		"not json":          `{"collectors":{"hook":`,
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeArtifact(t, dir, "trace.json", content)
			st, sc := &fakeStore{}, &fakeSchema{}
			p := newPipeline(t, source.NewDir(dir), st, sc)

			require.NoError(t, p.Process(context.Background(), "trace.json"))
			assert.Zero(t, sc.calls)
			assert.Empty(t, st.posts)
			assert.FileExists(t, path)
		})
	}
}

func TestProcessSchemaFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "trace.json", traceDocument)
	st := &fakeStore{}
	p := newPipeline(t, source.NewDir(dir), st, &fakeSchema{err: errors.New("forbidden")})

	require.Error(t, p.Process(context.Background(), "trace.json"))
	assert.Empty(t, st.posts)
	assert.FileExists(t, path)
}

func TestProcessSubmitFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "trace.json", traceDocument)
	st := &fakeStore{err: errors.New("503")}
	p := newPipeline(t, source.NewDir(dir), st, &fakeSchema{})

	err := p.Process(context.Background(), "trace.json")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrCleanup)
	assert.FileExists(t, path)

	// A later run submits the artifact.
	st.err = nil
	require.NoError(t, p.Process(context.Background(), "trace.json"))
	assert.Len(t, st.posts, 1)
	assert.NoFileExists(t, path)
}

func TestProcessCleanupFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "trace.json", traceDocument)
	src := &flakySource{Dir: source.NewDir(dir), removeErr: errors.New("read-only")}
	st := &fakeStore{}
	p := newPipeline(t, src, st, &fakeSchema{})

	err := p.Process(context.Background(), "trace.json")
	require.ErrorIs(t, err, ErrCleanup)
	assert.Len(t, st.posts, 1)
	assert.FileExists(t, path)

	// The same content is not submitted again, only the removal is retried.
	err = p.Process(context.Background(), "trace.json")
	require.ErrorIs(t, err, ErrCleanup)

	src.removeErr = nil
	require.NoError(t, p.Process(context.Background(), "trace.json"))
	assert.Len(t, st.posts, 1)
	assert.NoFileExists(t, path)
}

func TestProcessIdenticalContent(t *testing.T) {
	dir := t.TempDir()
	first := writeArtifact(t, dir, "1.json", traceDocument)
	second := writeArtifact(t, dir, "2.json", traceDocument)
	st := &fakeStore{}
	p := newPipeline(t, source.NewDir(dir), st, &fakeSchema{})

	require.NoError(t, p.Process(context.Background(), "1.json"))
	require.NoError(t, p.Process(context.Background(), "2.json"))

	assert.Len(t, st.posts, 2)
	assert.NoFileExists(t, first)
	assert.NoFileExists(t, second)
}

// blockingStore holds every Post until release is closed.
type blockingStore struct {
	started chan struct{}
	release chan struct{}

	mu    sync.Mutex
	posts int
}

func (b *blockingStore) Post(context.Context, string, []byte) ([]byte, error) {
	b.started <- struct{}{}
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	b.posts++
	return []byte(`{"result":"created"}`), nil
}

func TestProcessSameArtifactConcurrently(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "trace.json", traceDocument)
	st := &blockingStore{started: make(chan struct{}, 2), release: make(chan struct{})}
	p := newPipeline(t, source.NewDir(dir), st, &fakeSchema{})

	done := make(chan error, 1)
	go func() {
		done <- p.Process(context.Background(), "trace.json")
	}()
	<-st.started

	// The second call sees the artifact in progress and leaves it alone.
	require.NoError(t, p.Process(context.Background(), "trace.json"))
	assert.FileExists(t, path)

	close(st.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, st.posts)
	assert.NoFileExists(t, path)
}

func TestArtifactKey(t *testing.T) {
	data := []byte(traceDocument)
	assert.Equal(t, artifactKey("1.json", data), artifactKey("1.json", data))
	assert.NotEqual(t, artifactKey("1.json", data), artifactKey("2.json", data))
	assert.NotEqual(t, artifactKey("1.json", data), artifactKey("1.json", []byte("{}")))
}

func TestProcessCompressedArtifact(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := enc.EncodeAll([]byte(traceDocument), nil)
	require.NoError(t, enc.Close())

	dir := t.TempDir()
	path := writeArtifact(t, dir, "trace.json.zst", string(compressed))
	st := &fakeStore{}
	p := newPipeline(t, source.NewDir(dir), st, &fakeSchema{})

	require.NoError(t, p.Process(context.Background(), "trace.json.zst"))
	require.Len(t, st.posts, 1)
	assert.Len(t, gjson.GetBytes(st.posts[0], "collectors.function").Array(), 2)
	assert.NoFileExists(t, path)
}

// TestProcessAgainstStore runs the pipeline against an HTTP store that never
// answers the mapping request with a body.
func TestProcessAgainstStore(t *testing.T) {
	var (
		mu       sync.Mutex
		requests = map[string]int{}
		mappings []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		requests[r.Method+" "+r.URL.Path]++
		if r.Method == http.MethodPut {
			gjson.GetBytes(body, "properties.collectors.properties").ForEach(
				func(key, _ gjson.Result) bool {
					mappings = append(mappings, key.String())
					return true
				})
		}
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"result":"created"}`))
		}
	}))
	defer srv.Close()

	client, err := store.New(store.Config{Endpoint: srv.URL, Index: "profiles"})
	require.NoError(t, err)
	bootstrapper := schema.New(client, "profiles")

	dir := t.TempDir()
	writeArtifact(t, dir, "1.json", traceDocument)
	writeArtifact(t, dir, "2.json", `{"collectors":{"hook":{"children":[]}}}`)
	p := newPipeline(t, source.NewDir(dir), client, bootstrapper)

	require.NoError(t, p.Process(context.Background(), "1.json"))
	require.NoError(t, p.Process(context.Background(), "2.json"))
	require.NoError(t, p.Process(context.Background(), "3.json"))

	assert.True(t, bootstrapper.Present())
	assert.Equal(t, map[string]int{
		"GET /profiles/_mapping": 5,
		"PUT /profiles/_mapping": 4,
		"POST /profiles/_doc":    2,
	}, requests)
	assert.Equal(t, []string{"hook", "function", "query", "db"}, mappings)
}
