// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package controller // import "github.com/wpprofiler/hookreporter/internal/controller"

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wpprofiler/hookreporter/metrics"
	"github.com/wpprofiler/hookreporter/periodiccaller"
	"github.com/wpprofiler/hookreporter/pipeline"
	"github.com/wpprofiler/hookreporter/schema"
	"github.com/wpprofiler/hookreporter/source"
	"github.com/wpprofiler/hookreporter/store"
	"github.com/wpprofiler/hookreporter/vc"
)

// Processor handles a single artifact.
type Processor interface {
	Process(ctx context.Context, name string) error
}

// Controller is an instance that watches a source and processes the artifacts
// that show up in it.
type Controller struct {
	config    *Config
	source    source.Source
	processor Processor

	rescan   chan struct{}
	stopScan func()

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates a new controller
func New(cfg *Config, opts ...Option) *Controller {
	c := &Controller{
		config:   cfg,
		rescan:   make(chan struct{}),
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		c = opt.applyOption(c)
	}
	return c
}

// Init sets up the source and the processing pipeline, unless they were
// provided as options.
func (c *Controller) Init(ctx context.Context) error {
	if c.source == nil {
		src, err := NewSource(ctx, c.config)
		if err != nil {
			return err
		}
		c.source = src
	}
	if c.processor == nil {
		p, err := NewPipeline(c.source, c.config)
		if err != nil {
			return err
		}
		c.processor = p
	}
	return nil
}

// Start scans the source once and then keeps scanning it periodically in the
// background. The controller should only be started once.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.Init(ctx); err != nil {
		return err
	}

	c.Scan(ctx)
	c.stopScan = periodiccaller.StartWithManualTrigger(ctx, c.config.ScanInterval,
		c.config.ScanJitter, c.rescan, func(ctx context.Context, manual bool) {
			if manual {
				log.Info("Rescan requested")
			}
			c.Scan(ctx)
		})
	log.Infof("Watching for trace artifacts every %v", c.config.ScanInterval)
	return nil
}

// Rescan requests an immediate scan. It returns false if a scan is running.
func (c *Controller) Rescan() bool {
	select {
	case c.rescan <- struct{}{}:
		return true
	default:
		return false
	}
}

// Scan lists the source and processes every artifact found.
func (c *Controller) Scan(ctx context.Context) {
	metrics.Add(metrics.IDScans, 1)

	names, err := c.source.List(ctx)
	if err != nil {
		log.Errorf("Failed to list artifacts: %v", err)
		return
	}
	metrics.Add(metrics.IDScanArtifacts, metrics.MetricValue(len(names)))
	if len(names) == 0 {
		return
	}
	log.Debugf("Found %d artifacts", len(names))

	c.ProcessAll(ctx, names)
}

// ProcessAll processes names with up to Config.Workers in parallel. Names that
// are already being processed are skipped. It returns the number of artifacts
// that failed.
func (c *Controller) ProcessAll(ctx context.Context, names []string) int {
	var g errgroup.Group
	g.SetLimit(max(c.config.Workers, 1))

	failed := make(chan struct{}, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		if !c.acquire(name) {
			log.Debugf("Skipping %s: already in progress", name)
			continue
		}
		g.Go(func() error {
			defer c.release(name)
			if err := c.processor.Process(ctx, name); err != nil {
				if errors.Is(err, pipeline.ErrCleanup) {
					log.Warnf("%v", err)
				} else {
					log.Errorf("Failed to process %s: %v", name, err)
					failed <- struct{}{}
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return len(failed)
}

func (c *Controller) acquire(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inflight[name]; ok {
		return false
	}
	c.inflight[name] = struct{}{}
	return true
}

func (c *Controller) release(name string) {
	c.mu.Lock()
	delete(c.inflight, name)
	c.mu.Unlock()
}

// Shutdown stops the controller
func (c *Controller) Shutdown() {
	log.Info("Stop processing ...")
	if c.stopScan != nil {
		c.stopScan()
	}
	log.Infof("Metrics: %v", metrics.Summary())
}

// NewSource returns the source described by cfg.
func NewSource(ctx context.Context, cfg *Config) (source.Source, error) {
	if cfg.Bucket.Bucket != "" {
		return source.NewBucketFromConfig(ctx, cfg.Bucket)
	}
	if cfg.SourceDir == "" {
		return nil, errors.New("no source configured")
	}
	return source.NewDir(cfg.SourceDir), nil
}

// NewStore returns the store client described by cfg.
func NewStore(cfg *Config) (*store.Client, error) {
	storeCfg := cfg.Store
	if storeCfg.UserAgent == "" {
		storeCfg.UserAgent = vc.UserAgent()
	}
	client, err := store.New(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create store client: %w", err)
	}
	return client, nil
}

// NewPipeline wires a pipeline for src to the store described by cfg.
func NewPipeline(src source.Source, cfg *Config) (*pipeline.Pipeline, error) {
	client, err := NewStore(cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.New(src, client, schema.New(client, cfg.Store.Index), pipeline.Config{
		SubmittedCacheSize: uint32(cfg.SubmittedCacheSize),
	})
}
