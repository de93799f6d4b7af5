// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"time"

	"github.com/peterbourgon/ff/v3"

	"github.com/wpprofiler/hookreporter/internal/controller"
)

const (
	// Default values for CLI flags
	defaultArgIndex        = "profiles"
	defaultArgTimeout      = 30 * time.Second
	defaultArgScanInterval = 10 * time.Second
	defaultArgScanJitter   = 0.2
	defaultArgWorkers      = 4
	defaultArgCacheSize    = 1024
)

// Help strings for command line arguments
var (
	configHelp       = "Path to a plain-text configuration file (one `flag value` per line)."
	endpointHelp     = "Base URL of the search store, e.g. http://localhost:9200."
	indexHelp        = "Name of the index documents are submitted to."
	credentialsHelp  = "Credentials in the form user:password for basic authentication."
	timeoutHelp      = "Timeout for a single request to the store."
	dirHelp          = "Directory trace artifacts are read from."
	bucketHelp       = "S3 bucket trace artifacts are read from. Takes precedence over -dir."
	bucketPrefixHelp = "Key prefix of trace artifacts in the bucket."
	bucketRegionHelp = "Region of the bucket. Defaults to the AWS SDK configuration."
	bucketURLHelp    = "Custom endpoint for S3-compatible object stores."
	pathStyleHelp    = "Use path-style addressing for the bucket."
	scanIntervalHelp = "Interval between two scans of the source."
	scanJitterHelp   = "Jitter applied to the scan interval, in the range [0..1]."
	workersHelp      = "Number of artifacts processed in parallel."
	cacheSizeHelp    = "Number of submitted artifact hashes remembered to avoid duplicates."
	verboseModeHelp  = "Enable verbose logging and debugging capabilities."
)

// parseOptions are shared by all subcommands.
func parseOptions() []ff.Option {
	return []ff.Option{
		ff.WithEnvVarPrefix("HOOKREPORTER"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		// This will ignore configuration file (only) options that the current
		// subcommand does not recognize.
		ff.WithIgnoreUndefined(true),
		ff.WithAllowMissingConfigFile(true),
	}
}

func registerCommonFlags(fs *flag.FlagSet, cfg *controller.Config) {
	fs.String("config", "", configHelp)
	fs.BoolVar(&cfg.VerboseMode, "v", false, "Shorthand for -verbose.")
	fs.BoolVar(&cfg.VerboseMode, "verbose", false, verboseModeHelp)
	cfg.Fs = fs
}

// Please keep the parameters ordered alphabetically in the source-code.
func registerStoreFlags(fs *flag.FlagSet, cfg *controller.Config) {
	fs.StringVar(&cfg.Store.Credentials, "credentials", "", credentialsHelp)
	fs.StringVar(&cfg.Store.Endpoint, "endpoint", "", endpointHelp)
	fs.StringVar(&cfg.Store.Index, "index", defaultArgIndex, indexHelp)
	fs.DurationVar(&cfg.Store.Timeout, "timeout", defaultArgTimeout, timeoutHelp)
}

func registerSourceFlags(fs *flag.FlagSet, cfg *controller.Config) {
	fs.StringVar(&cfg.Bucket.Bucket, "bucket", "", bucketHelp)
	fs.StringVar(&cfg.Bucket.Endpoint, "bucket-endpoint", "", bucketURLHelp)
	fs.BoolVar(&cfg.Bucket.PathStyle, "bucket-path-style", false, pathStyleHelp)
	fs.StringVar(&cfg.Bucket.Prefix, "bucket-prefix", "", bucketPrefixHelp)
	fs.StringVar(&cfg.Bucket.Region, "bucket-region", "", bucketRegionHelp)
	fs.StringVar(&cfg.SourceDir, "dir", "", dirHelp)
}

func registerWorkerFlags(fs *flag.FlagSet, cfg *controller.Config) {
	fs.UintVar(&cfg.SubmittedCacheSize, "cache-size", defaultArgCacheSize, cacheSizeHelp)
	fs.IntVar(&cfg.Workers, "workers", defaultArgWorkers, workersHelp)
}

func registerScanFlags(fs *flag.FlagSet, cfg *controller.Config) {
	fs.DurationVar(&cfg.ScanInterval, "scan-interval", defaultArgScanInterval, scanIntervalHelp)
	fs.Float64Var(&cfg.ScanJitter, "scan-jitter", defaultArgScanJitter, scanJitterHelp)
}
