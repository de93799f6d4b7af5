// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package aggregator flattens a hook trace into one aggregate per hook name and
// one aggregate per function name.
package aggregator // import "github.com/wpprofiler/hookreporter/aggregator"

import (
	"github.com/wpprofiler/hookreporter/trace"
)

// Result holds the aggregates of a trace, each in order of first occurrence.
type Result struct {
	Hooks     []trace.HookAggregate
	Functions []trace.FunctionAggregate
}

// walker owns the accumulation state of a single Aggregate call.
type walker struct {
	// hookIdx and functionIdx map a name to its position in the result slices.
	hookIdx     map[string]int
	functionIdx map[string]int

	result Result
}

// Aggregate walks the children of root depth-first and sums up hook self times,
// function times and function call counts. The root node itself only serves
// as a container and is not counted.
func Aggregate(root *trace.Node) Result {
	w := walker{
		hookIdx:     make(map[string]int),
		functionIdx: make(map[string]int),
	}
	if root != nil {
		w.walk(root.Children)
	}

	for i := range w.result.Hooks {
		w.result.Hooks[i].Functions = dedup(w.result.Hooks[i].Functions)
	}
	return w.result
}

func (w *walker) walk(nodes []trace.Node) {
	for i := range nodes {
		node := &nodes[i]
		hook := w.hook(node.Hook)
		hook.Time += node.Time

		for _, call := range node.Functions {
			fn := w.function(&call)
			fn.Time += call.Time
			fn.Count++
			hook.Functions = append(hook.Functions, call.Function)
		}
		if node.IsLeaf() {
			continue
		}

		// The recursion may grow w.result.Hooks, hook is stale afterwards.
		w.walk(node.Children)
	}
}

// hook returns the aggregate for name, creating it on first sight.
func (w *walker) hook(name string) *trace.HookAggregate {
	if idx, ok := w.hookIdx[name]; ok {
		return &w.result.Hooks[idx]
	}
	w.hookIdx[name] = len(w.result.Hooks)
	w.result.Hooks = append(w.result.Hooks, trace.HookAggregate{
		Name:      name,
		Functions: []string{},
	})
	return &w.result.Hooks[len(w.result.Hooks)-1]
}

// function returns the aggregate for the called function, creating it on first
// sight. File and line of later calls are ignored.
func (w *walker) function(call *trace.FunctionCall) *trace.FunctionAggregate {
	if idx, ok := w.functionIdx[call.Function]; ok {
		return &w.result.Functions[idx]
	}
	w.functionIdx[call.Function] = len(w.result.Functions)
	w.result.Functions = append(w.result.Functions, trace.FunctionAggregate{
		Name: call.Function,
		File: call.File,
		Line: call.Line,
	})
	return &w.result.Functions[len(w.result.Functions)-1]
}

// dedup removes repeated names, keeping the first occurrence of each.
func dedup(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := names[:0]
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
