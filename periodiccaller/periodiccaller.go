// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package periodiccaller allows periodic calls of functions.
package periodiccaller // import "github.com/wpprofiler/hookreporter/periodiccaller"

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// StartWithJitter starts a timer that calls <callback> every <interval+jitter>
// until <ctx> is canceled or the returned stop function is called. <jitter>,
// [0..1], is used to add +/- jitter to <interval> at every iteration.
// Calls never overlap, and stop waits for a running call to return.
func StartWithJitter(ctx context.Context, interval time.Duration, jitter float64,
	callback func(context.Context)) (stop func()) {
	return StartWithManualTrigger(ctx, interval, jitter, nil,
		func(ctx context.Context, _ bool) { callback(ctx) })
}

// StartWithManualTrigger works like StartWithJitter, additionally every receive
// from <trigger> calls <callback> immediately with manualTrigger set.
func StartWithManualTrigger(ctx context.Context, interval time.Duration, jitter float64,
	trigger <-chan struct{}, callback func(ctx context.Context, manualTrigger bool)) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	timer := time.NewTimer(addJitter(interval, jitter))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer timer.Stop()

		for {
			select {
			case <-timer.C:
				callback(ctx, false)
			case <-trigger:
				callback(ctx, true)
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
			case <-ctx.Done():
				return
			}
			timer.Reset(addJitter(interval, jitter))
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}

// addJitter returns a random duration in [base*(1-jitter), base*(1+jitter)].
func addJitter(base time.Duration, jitter float64) time.Duration {
	if jitter < 0.0 || jitter > 1.0 {
		log.Errorf("Jitter (%f) out of range [0..1].", jitter)
		return base
	}
	return time.Duration((1 + jitter - 2*jitter*rand.Float64()) * float64(base)) //nolint:gosec
}
