// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/peterbourgon/ff/v3/ffcli"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/wpprofiler/hookreporter/aggregator"
	"github.com/wpprofiler/hookreporter/internal/controller"
	"github.com/wpprofiler/hookreporter/pipeline"
	"github.com/wpprofiler/hookreporter/schema"
	"github.com/wpprofiler/hookreporter/source"
	"github.com/wpprofiler/hookreporter/trace"
	"github.com/wpprofiler/hookreporter/vc"
)

type processCmd struct {
	cfg controller.Config
}

func newProcessCmd() *ffcli.Command {
	cmd := processCmd{}
	set := flag.NewFlagSet("process", flag.ContinueOnError)
	registerCommonFlags(set, &cmd.cfg)
	registerStoreFlags(set, &cmd.cfg)
	registerWorkerFlags(set, &cmd.cfg)
	return &ffcli.Command{
		Name:       "process",
		ShortUsage: "process [flags] <path>...",
		ShortHelp:  "Aggregate and submit the given trace artifacts",
		FlagSet:    set,
		Options:    parseOptions(),
		Exec:       cmd.exec,
	}
}

func (cmd *processCmd) exec(ctx context.Context, paths []string) error {
	applyVerbose(&cmd.cfg)
	if len(paths) == 0 {
		return controller.NewErrorWithExitCode(
			errors.New("no trace artifacts given"), int(exitParseError))
	}
	if err := cmd.cfg.Store.Validate(); err != nil {
		return controller.NewErrorWithExitCode(err, int(exitParseError))
	}
	if cmd.cfg.Workers < 1 || cmd.cfg.Workers > controller.MaxWorkers {
		return controller.NewErrorWithExitCode(
			fmt.Errorf("invalid number of workers %d", cmd.cfg.Workers), int(exitParseError))
	}

	client, err := controller.NewStore(&cmd.cfg)
	if err != nil {
		return err
	}
	// All directories share the bootstrapper, so the schema is checked once.
	bootstrapper := schema.New(client, cmd.cfg.Store.Index)

	failed := 0
	for dir, names := range groupByDir(paths) {
		src := source.NewDir(dir)
		p, err := pipeline.New(src, client, bootstrapper, pipeline.Config{
			SubmittedCacheSize: uint32(cmd.cfg.SubmittedCacheSize),
		})
		if err != nil {
			return err
		}
		ctlr := controller.New(&cmd.cfg, controller.WithSource(src), controller.WithProcessor(p))
		failed += ctlr.ProcessAll(ctx, names)
	}
	if failed > 0 {
		return controller.NewErrorWithExitCode(
			fmt.Errorf("%d of %d trace artifacts failed", failed, len(paths)), int(exitFailure))
	}
	return nil
}

// groupByDir maps each directory to the base names of the given paths in it.
func groupByDir(paths []string) map[string][]string {
	dirs := make(map[string][]string)
	for _, path := range paths {
		dir := filepath.Dir(path)
		dirs[dir] = append(dirs[dir], filepath.Base(path))
	}
	return dirs
}

type watchCmd struct {
	cfg controller.Config
}

func newWatchCmd() *ffcli.Command {
	cmd := watchCmd{}
	set := flag.NewFlagSet("watch", flag.ContinueOnError)
	registerCommonFlags(set, &cmd.cfg)
	registerStoreFlags(set, &cmd.cfg)
	registerSourceFlags(set, &cmd.cfg)
	registerWorkerFlags(set, &cmd.cfg)
	registerScanFlags(set, &cmd.cfg)
	return &ffcli.Command{
		Name:       "watch",
		ShortUsage: "watch [flags]",
		ShortHelp:  "Periodically process all trace artifacts of a directory or bucket",
		LongHelp: "Scans the source every -scan-interval and processes the artifacts " +
			"found. SIGHUP triggers an immediate scan.",
		FlagSet: set,
		Options: parseOptions(),
		Exec:    cmd.exec,
	}
}

func (cmd *watchCmd) exec(ctx context.Context, _ []string) error {
	applyVerbose(&cmd.cfg)
	if err := cmd.cfg.Validate(); err != nil {
		return controller.NewErrorWithExitCode(err, int(exitParseError))
	}

	// Context to drive the controller until a termination signal arrives.
	mainCtx, mainCancel := signal.NotifyContext(ctx, unix.SIGINT, unix.SIGTERM, unix.SIGABRT)
	defer mainCancel()

	log.Infof("Starting hookreporter %s (revision %s, build timestamp %s)",
		vc.Version(), vc.Revision(), vc.BuildTimestamp())

	ctlr := controller.New(&cmd.cfg)
	if err := ctlr.Start(mainCtx); err != nil {
		return err
	}
	defer ctlr.Shutdown()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, unix.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-mainCtx.Done():
			log.Info("Exiting ...")
			return nil
		case <-hup:
			if !ctlr.Rescan() {
				log.Info("Scan in progress, ignoring SIGHUP")
			}
		}
	}
}

type aggregateCmd struct {
	out     io.Writer
	verbose bool
}

func newAggregateCmd(out io.Writer) *ffcli.Command {
	cmd := aggregateCmd{out: out}
	set := flag.NewFlagSet("aggregate", flag.ContinueOnError)
	set.BoolVar(&cmd.verbose, "v", false, "Shorthand for -verbose.")
	set.BoolVar(&cmd.verbose, "verbose", false, verboseModeHelp)
	return &ffcli.Command{
		Name:       "aggregate",
		ShortUsage: "aggregate <path>",
		ShortHelp:  "Print the aggregated document of a trace artifact without submitting it",
		FlagSet:    set,
		Exec:       cmd.exec,
	}
}

func (cmd *aggregateCmd) exec(ctx context.Context, args []string) error {
	if cmd.verbose {
		log.SetLevel(log.DebugLevel)
	}
	if len(args) != 1 {
		return controller.NewErrorWithExitCode(
			errors.New("expected exactly one trace artifact"), int(exitParseError))
	}

	data, err := source.ReadArtifact(ctx, source.NewDir(filepath.Dir(args[0])),
		filepath.Base(args[0]))
	if err != nil {
		return err
	}
	doc, err := trace.Parse(data)
	if err != nil {
		return err
	}
	result := aggregator.Aggregate(&doc.Root)
	out, err := doc.WithAggregates(result.Hooks, result.Functions)
	if err != nil {
		return err
	}
	log.Debugf("Aggregated %d hooks and %d functions",
		len(result.Hooks), len(result.Functions))

	if _, err = cmd.out.Write(append(out, '\n')); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

type ensureSchemaCmd struct {
	cfg controller.Config
}

func newEnsureSchemaCmd() *ffcli.Command {
	cmd := ensureSchemaCmd{}
	set := flag.NewFlagSet("ensure-schema", flag.ContinueOnError)
	registerCommonFlags(set, &cmd.cfg)
	registerStoreFlags(set, &cmd.cfg)
	return &ffcli.Command{
		Name:       "ensure-schema",
		ShortUsage: "ensure-schema [flags]",
		ShortHelp:  "Create the nested collector mappings that are missing in the index",
		FlagSet:    set,
		Options:    parseOptions(),
		Exec:       cmd.exec,
	}
}

func (cmd *ensureSchemaCmd) exec(ctx context.Context, _ []string) error {
	applyVerbose(&cmd.cfg)
	client, err := controller.NewStore(&cmd.cfg)
	if err != nil {
		return controller.NewErrorWithExitCode(err, int(exitParseError))
	}
	if err := schema.New(client, cmd.cfg.Store.Index).EnsureSchema(ctx); err != nil {
		return err
	}
	log.Infof("Mappings of index %s are present", cmd.cfg.Store.Index)
	return nil
}

func newVersionCmd(out io.Writer) *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "version",
		ShortHelp:  "Show version",
		Exec: func(context.Context, []string) error {
			_, err := fmt.Fprintf(out, "%s (revision %s, build timestamp %s)\n",
				vc.Version(), vc.Revision(), vc.BuildTimestamp())
			return err
		},
	}
}
