// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema makes sure that the remote index maps the trace collectors
// as nested documents before any trace is written to it.
package schema // import "github.com/wpprofiler/hookreporter/schema"

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"go.uber.org/multierr"

	"github.com/wpprofiler/hookreporter/metrics"
)

const (
	// mappingPath is the store path for reading and extending the index mapping.
	mappingPath = "_mapping"

	// maxFetchAttempts bounds how often an empty mapping response is retried.
	// It counts every GET including the first, so there are at most four retries.
	maxFetchAttempts = 5
)

// RequiredCollectors lists the document fields that must be mapped as nested.
var RequiredCollectors = []string{"hook", "function", "query", "db"}

// Store is the subset of the store client used for the mapping.
type Store interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Put(ctx context.Context, path string, body []byte) ([]byte, error)
}

// Bootstrapper creates missing collector mappings once per instance.
type Bootstrapper struct {
	store Store
	index string

	// present is set once all required collectors were found or created.
	present atomic.Bool
	// mu serializes the slow path.
	mu sync.Mutex
}

// New returns a Bootstrapper for the mapping of index.
func New(store Store, index string) *Bootstrapper {
	return &Bootstrapper{store: store, index: index}
}

// Present reports whether the schema was confirmed present.
func (b *Bootstrapper) Present() bool {
	return b.present.Load()
}

// EnsureSchema checks the index mapping and creates every missing collector
// mapping. Only the first successful call does remote work, all later calls
// return immediately. If creating a mapping fails, the error is returned and
// the next call checks again.
func (b *Bootstrapper) EnsureSchema(ctx context.Context) error {
	if b.present.Load() {
		return nil
	}
	return b.ensureSlow(ctx)
}

func (b *Bootstrapper) ensureSlow(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A contending call might have finished while we waited for the lock.
	if b.present.Load() {
		return nil
	}

	mapping := b.fetchMapping(ctx)

	var err error
	for _, collector := range missingCollectors(mapping, b.index) {
		log.Infof("Creating nested mapping for collector %s", collector)
		if _, putErr := b.store.Put(ctx, mappingPath, nestedMapping(collector)); putErr != nil {
			err = multierr.Append(err,
				fmt.Errorf("failed to create mapping for %s: %w", collector, putErr))
			continue
		}
		metrics.Add(metrics.IDSchemaFieldsCreated, 1)
	}
	if err != nil {
		return err
	}

	b.present.Store(true)
	return nil
}

// fetchMapping reads the current mapping. Empty or failed responses are retried
// up to maxFetchAttempts times, after which an empty mapping is returned.
func (b *Bootstrapper) fetchMapping(ctx context.Context) []byte {
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		body, err := b.store.Get(ctx, mappingPath)
		if err == nil && len(body) > 0 {
			return body
		}
		metrics.Add(metrics.IDSchemaFetchEmpty, 1)
		if err != nil {
			log.Debugf("Fetching mapping (attempt %d/%d) failed: %v",
				attempt, maxFetchAttempts, err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	log.Warnf("No mapping received after %d attempts, assuming an empty mapping",
		maxFetchAttempts)
	return nil
}

// missingCollectors returns the required collectors that are not mapped as
// nested in mapping.
func missingCollectors(mapping []byte, index string) []string {
	indexMapping := lookupIndex(mapping, index)

	var missing []string
	for _, collector := range RequiredCollectors {
		typ := indexMapping.Get("mappings.properties.collectors.properties." +
			gjson.Escape(collector) + ".type")
		if typ.String() != "nested" {
			missing = append(missing, collector)
		}
	}
	return missing
}

// lookupIndex returns the mapping entry of index. If index is an alias, the
// response is keyed by the concrete index instead, so a sole entry is used.
func lookupIndex(mapping []byte, index string) gjson.Result {
	if !gjson.ValidBytes(mapping) {
		return gjson.Result{}
	}
	root := gjson.ParseBytes(mapping)
	if entry := root.Get(gjson.Escape(index)); entry.Exists() {
		return entry
	}
	entries := root.Map()
	if len(entries) == 1 {
		for _, entry := range entries {
			return entry
		}
	}
	return gjson.Result{}
}

type properties map[string]any

// nestedMapping returns the mapping update that declares collector as nested.
func nestedMapping(collector string) []byte {
	body, _ := json.Marshal(properties{
		"properties": properties{
			"collectors": properties{
				"properties": properties{
					collector: properties{"type": "nested"},
				},
			},
		},
	})
	return body
}
