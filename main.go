// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// hookreporter aggregates WordPress hook traces and submits them to a search
// store.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"

	"github.com/peterbourgon/ff/v3/ffcli"
	log "github.com/sirupsen/logrus"

	"github.com/wpprofiler/hookreporter/internal/controller"
)

type exitCode int

const (
	exitSuccess exitCode = 0
	exitFailure exitCode = 1

	// Go 'flag' package calls os.Exit(2) on flag parse errors, if ExitOnError is set
	exitParseError exitCode = 2
)

func main() {
	os.Exit(int(mainWithExitCode(context.Background(), os.Args[1:], os.Stdout)))
}

func newRootCmd(out io.Writer) *ffcli.Command {
	return &ffcli.Command{
		Name:       "hookreporter",
		ShortUsage: "hookreporter <subcommand> [flags]",
		ShortHelp:  "Aggregate hook traces and submit them to a search store",
		FlagSet:    flag.NewFlagSet("hookreporter", flag.ContinueOnError),
		Subcommands: []*ffcli.Command{
			newProcessCmd(),
			newWatchCmd(),
			newAggregateCmd(out),
			newEnsureSchemaCmd(),
			newVersionCmd(out),
		},
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
	}
}

func mainWithExitCode(ctx context.Context, args []string, out io.Writer) exitCode {
	log.SetReportCaller(false)
	log.SetFormatter(&log.TextFormatter{})

	root := newRootCmd(out)
	if err := root.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitSuccess
		}
		return parseError("Failure to parse arguments: %v", err)
	}

	if err := root.Run(ctx); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			// The root command without a subcommand prints its usage.
			root.FlagSet.Usage()
			return exitParseError
		}
		var exitErr controller.ErrorWithExitCode
		if errors.As(err, &exitErr) {
			log.Errorf("%v", exitErr)
			return exitCode(exitErr.Code())
		}
		return failure("%v", err)
	}
	return exitSuccess
}

// applyVerbose switches to debug logging if requested and dumps the
// configuration.
func applyVerbose(cfg *controller.Config) {
	if cfg.VerboseMode {
		log.SetLevel(log.DebugLevel)
		// Dump the arguments in debug mode.
		cfg.Dump()
	}
}

func parseError(msg string, args ...interface{}) exitCode {
	log.Errorf(msg, args...)
	return exitParseError
}

func failure(msg string, args ...interface{}) exitCode {
	log.Errorf(msg, args...)
	return exitFailure
}
