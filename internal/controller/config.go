// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package controller // import "github.com/wpprofiler/hookreporter/internal/controller"

import (
	"errors"
	"flag"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wpprofiler/hookreporter/source"
	"github.com/wpprofiler/hookreporter/store"
)

const (
	// MaxWorkers bounds the number of artifacts processed in parallel.
	MaxWorkers = 64
	// minScanInterval keeps scans from hammering the source.
	minScanInterval = 100 * time.Millisecond
)

type Config struct {
	Store store.Config

	// SourceDir is the directory trace artifacts are read from. It is
	// ignored if Bucket.Bucket is set.
	SourceDir string
	Bucket    source.BucketConfig

	ScanInterval       time.Duration
	ScanJitter         float64
	Workers            int
	SubmittedCacheSize uint
	VerboseMode        bool

	Fs *flag.FlagSet
}

// Dump visits all flag sets, and dumps them all to debug
// Used for verbose mode logging.
func (cfg *Config) Dump() {
	if cfg.Fs == nil {
		return
	}
	log.Debug("Config:")
	cfg.Fs.VisitAll(func(f *flag.Flag) {
		if f.Name == "credentials" && f.Value.String() != "" {
			log.Debugf("%s: <redacted>", f.Name)
			return
		}
		log.Debugf("%s: %v", f.Name, f.Value)
	})
}

// Validate runs validations on the provided configuration, and returns errors
// if invalid values were provided.
func (cfg *Config) Validate() error {
	if err := cfg.Store.Validate(); err != nil {
		return err
	}
	return cfg.ValidateSource()
}

// ValidateSource checks the source and scheduling settings only.
func (cfg *Config) ValidateSource() error {
	if cfg.SourceDir == "" && cfg.Bucket.Bucket == "" {
		return errors.New("neither a source directory nor a bucket is configured")
	}
	if cfg.ScanInterval < minScanInterval {
		return fmt.Errorf("scan interval %v is below the minimum of %v",
			cfg.ScanInterval, minScanInterval)
	}
	if cfg.ScanJitter < 0 || cfg.ScanJitter > 1 {
		return fmt.Errorf("scan jitter %v out of range [0..1]", cfg.ScanJitter)
	}
	if cfg.Workers < 1 || cfg.Workers > MaxWorkers {
		return fmt.Errorf("invalid number of workers %d, must be in [1..%d]",
			cfg.Workers, MaxWorkers)
	}
	return nil
}
