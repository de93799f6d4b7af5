// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	for name, tc := range map[string]struct {
		cfg     Config
		wantErr bool
	}{
		"valid":        {cfg: Config{Endpoint: "https://example.com", Index: "app"}},
		"no endpoint":  {cfg: Config{Index: "app"}, wantErr: true},
		"no index":     {cfg: Config{Endpoint: "https://example.com"}, wantErr: true},
		"bad endpoint": {cfg: Config{Endpoint: "://", Index: "app"}, wantErr: true},
	} {
		t.Run(name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestClientRequests(t *testing.T) {
	type request struct {
		method, path, auth, contentType, agent, body string
	}
	var got []request

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, request{
			method:      r.Method,
			path:        r.URL.Path,
			auth:        r.Header.Get("Authorization"),
			contentType: r.Header.Get("Content-Type"),
			agent:       r.Header.Get("User-Agent"),
			body:        string(body),
		})
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c, err := New(Config{
		Endpoint:    srv.URL + "/",
		Index:       "profiles",
		Credentials: "user:secret",
		UserAgent:   "hookreporter/test",
	})
	require.NoError(t, err)

	ctx := context.Background()
	body, err := c.Get(ctx, "_mapping")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	_, err = c.Post(ctx, "/_doc", []byte(`{"a":1}`))
	require.NoError(t, err)
	_, err = c.Put(ctx, "_mapping", []byte(`{"b":2}`))
	require.NoError(t, err)

	// base64("user:secret")
	const auth = "Basic dXNlcjpzZWNyZXQ="
	assert.Equal(t, []request{
		{http.MethodGet, "/profiles/_mapping", auth, "application/json", "hookreporter/test", ""},
		{http.MethodPost, "/profiles/_doc", auth, "application/json", "hookreporter/test",
			`{"a":1}`},
		{http.MethodPut, "/profiles/_mapping", auth, "application/json", "hookreporter/test",
			`{"b":2}`},
	}, got)
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"denied"}`))
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL, Index: "profiles"})
	require.NoError(t, err)

	_, err = c.Post(context.Background(), "_doc", []byte(`{}`))
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
	assert.Equal(t, `{"error":"denied"}`, statusErr.Body)
	assert.Equal(t, http.MethodPost, statusErr.Method)
}

func TestClientEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL, Index: "profiles"})
	require.NoError(t, err)

	body, err := c.Get(context.Background(), "_mapping")
	require.NoError(t, err)
	assert.Empty(t, body)
}
