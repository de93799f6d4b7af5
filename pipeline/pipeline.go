// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline turns trace artifacts into aggregated documents and submits
// them to the remote store.
package pipeline // import "github.com/wpprofiler/hookreporter/pipeline"

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/elastic/go-freelru"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"

	"github.com/wpprofiler/hookreporter/aggregator"
	"github.com/wpprofiler/hookreporter/metrics"
	"github.com/wpprofiler/hookreporter/outcome"
	"github.com/wpprofiler/hookreporter/source"
	"github.com/wpprofiler/hookreporter/trace"
)

const (
	// documentPath is the store path new documents are posted to.
	documentPath = "_doc"

	defaultSubmittedCacheSize = 1024
)

// ErrCleanup is returned if the document was submitted but the artifact could
// not be removed afterwards.
var ErrCleanup = errors.New("failed to remove artifact")

// Store is the subset of the store client used to submit documents.
type Store interface {
	Post(ctx context.Context, path string, body []byte) ([]byte, error)
}

// SchemaEnsurer makes sure the store accepts the aggregated documents.
type SchemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

// Config holds the tunables of a Pipeline.
type Config struct {
	// SubmittedCacheSize is the number of submitted artifacts that are
	// remembered to avoid submitting them twice if their removal failed.
	SubmittedCacheSize uint32
}

// Pipeline processes trace artifacts from one source.
type Pipeline struct {
	source source.Source
	store  Store
	schema SchemaEnsurer

	// mu guards the check-then-add on submitted together with pending.
	mu sync.Mutex
	// submitted holds the keys of artifacts that were submitted during the
	// lifetime of the Pipeline.
	submitted *lru.LRU[uint64, struct{}]
	// pending holds the keys of artifacts that are being processed.
	pending map[uint64]struct{}
}

// hashUint64 is the hash callback of the submitted cache. Keys already are
// xxh3 hashes.
func hashUint64(h uint64) uint32 {
	return uint32(h ^ (h >> 32))
}

// New creates a Pipeline.
func New(src source.Source, store Store, schema SchemaEnsurer, cfg Config) (*Pipeline, error) {
	size := cfg.SubmittedCacheSize
	if size == 0 {
		size = defaultSubmittedCacheSize
	}
	submitted, err := lru.New[uint64, struct{}](size, hashUint64)
	if err != nil {
		return nil, fmt.Errorf("failed to create submitted cache: %w", err)
	}
	return &Pipeline{
		source:    src,
		store:     store,
		schema:    schema,
		submitted: submitted,
		pending:   make(map[uint64]struct{}),
	}, nil
}

// artifactKey identifies an artifact by its name and content. Artifacts with
// the same content but different names are distinct.
func artifactKey(name string, data []byte) uint64 {
	h := xxh3.New()
	_, _ = h.WriteString(name)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(data)
	return h.Sum64()
}

// claim reserves key for processing. It reports whether key was submitted
// before and whether it is being processed right now.
func (p *Pipeline) claim(key uint64) (submitted, busy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.submitted.Contains(key) {
		return true, false
	}
	if _, ok := p.pending[key]; ok {
		return false, true
	}
	p.pending[key] = struct{}{}
	return false, false
}

// release drops the reservation of key and remembers it if it was submitted.
func (p *Pipeline) release(key uint64, submitted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, key)
	if submitted {
		p.submitted.Add(key, struct{}{})
	}
}

// Process aggregates the artifact called name, submits the result and removes
// the artifact. Missing and malformed artifacts are skipped without error.
// If an error is returned, the artifact is left in place unless the error
// wraps ErrCleanup.
func (p *Pipeline) Process(ctx context.Context, name string) error {
	var rec outcome.Recorder
	defer rec.DefaultToFailed()

	logger := log.WithFields(log.Fields{"artifact": name, "run": uuid.NewString()})

	data, err := source.ReadArtifact(ctx, p.source, name)
	if errors.Is(err, source.ErrNotFound) {
		logger.Debug("Artifact is gone, skipping")
		rec.Skipped(metrics.IDArtifactsMissing)
		return nil
	}
	if err != nil {
		return err
	}

	key := artifactKey(name, data)
	submitted, busy := p.claim(key)
	switch {
	case submitted:
		logger.Debug("Artifact was already submitted, removing it")
		rec.Skipped(metrics.IDArtifactsDuplicate)
		return p.remove(ctx, logger, name)
	case busy:
		logger.Debug("Artifact is being processed, skipping")
		rec.Skipped(metrics.IDArtifactsDuplicate)
		return nil
	}
	posted := false
	defer func() { p.release(key, posted) }()

	doc, err := trace.Parse(data)
	if err != nil {
		logger.Debugf("Skipping artifact: %v", err)
		rec.Skipped(metrics.IDArtifactsMalformed)
		return nil
	}

	if err = p.schema.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	res := aggregator.Aggregate(&doc.Root)
	metrics.Add(metrics.IDAggregatesHooks, metrics.MetricValue(len(res.Hooks)))
	metrics.Add(metrics.IDAggregatesFunctions, metrics.MetricValue(len(res.Functions)))

	out, err := doc.WithAggregates(res.Hooks, res.Functions)
	if err != nil {
		return err
	}
	if _, err = p.store.Post(ctx, documentPath, out); err != nil {
		return fmt.Errorf("failed to submit %s: %w", name, err)
	}
	posted = true
	rec.Submitted()
	logger.Infof("Submitted %d hooks and %d functions", len(res.Hooks), len(res.Functions))

	return p.remove(ctx, logger, name)
}

func (p *Pipeline) remove(ctx context.Context, logger *log.Entry, name string) error {
	if err := p.source.Remove(ctx, name); err != nil {
		logger.Warnf("Failed to remove artifact: %v", err)
		metrics.Add(metrics.IDArtifactsCleanupFailed, 1)
		return fmt.Errorf("%w %s: %v", ErrCleanup, name, err)
	}
	return nil
}
