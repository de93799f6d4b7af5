// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package controller // import "github.com/wpprofiler/hookreporter/internal/controller"

import "github.com/wpprofiler/hookreporter/source"

type Option interface {
	applyOption(*Controller) *Controller
}
type controllerOptionFunc func(*Controller) *Controller

func (f controllerOptionFunc) applyOption(c *Controller) *Controller {
	return f(c)
}

// WithSource sets the source artifacts are read from.
// This defaults to the directory or bucket named in the Config.
func WithSource(src source.Source) Option {
	return controllerOptionFunc(func(c *Controller) *Controller {
		c.source = src
		return c
	})
}

// WithProcessor sets a custom processor for the artifacts.
// This defaults to a pipeline.Pipeline writing to the configured store.
func WithProcessor(p Processor) Option {
	return controllerOptionFunc(func(c *Controller) *Controller {
		c.processor = p
		return c
	})
}
