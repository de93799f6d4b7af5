// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package outcome records the result of processing one artifact exactly once.
//
// A Recorder is **not** thread safe, use one per artifact.
package outcome // import "github.com/wpprofiler/hookreporter/outcome"

import (
	log "github.com/sirupsen/logrus"

	"github.com/wpprofiler/hookreporter/metrics"
)

// Outcome is the result of processing an artifact.
type Outcome int

const (
	// Pending means that no outcome was recorded yet.
	Pending Outcome = iota
	// Submitted means that the aggregated document was written to the store.
	Submitted
	// Skipped means that there was nothing to submit.
	Skipped
	// Failed means that processing stopped because of an error.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Submitted:
		return "submitted"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Recorder reports one outcome together with the metric describing its cause.
type Recorder struct {
	outcome Outcome
}

// Outcome returns the recorded outcome.
func (r *Recorder) Outcome() Outcome {
	return r.outcome
}

// Submitted records a successful submission.
func (r *Recorder) Submitted() {
	r.record(Submitted, metrics.IDArtifactsSubmitted)
}

// Skipped records that the artifact was skipped for the reason given by id.
func (r *Recorder) Skipped(id metrics.MetricID) {
	r.record(Skipped, id)
}

// Failed records a failure.
func (r *Recorder) Failed() {
	r.record(Failed, metrics.IDArtifactsFailed)
}

// DefaultToFailed records a failure if no outcome was recorded before.
// It is meant to be deferred.
func (r *Recorder) DefaultToFailed() {
	if r.outcome == Pending {
		r.Failed()
	}
}

func (r *Recorder) record(o Outcome, id metrics.MetricID) {
	if r.outcome != Pending {
		log.Errorf("Attempted to record outcome %v after %v", o, r.outcome)
		return
	}
	r.outcome = o
	metrics.Add(id, 1)
}
