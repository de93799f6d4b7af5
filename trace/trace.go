// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package trace holds the in-memory shape of a recorded hook trace and of the
// aggregates that are derived from it.
package trace // import "github.com/wpprofiler/hookreporter/trace"

// Node is one hook invocation of a recorded trace.
type Node struct {
	// Hook is the name of the hook that produced this node.
	Hook string `json:"hook"`
	// Time is the duration attributed directly to this node.
	Time float64 `json:"time"`
	// Functions lists the function calls made while the hook ran, in call order.
	Functions []FunctionCall `json:"functions,omitempty"`
	// Children are the hooks invoked from within this hook.
	Children []Node `json:"children,omitempty"`
}

// IsLeaf returns true if the node neither calls functions nor nests hooks.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0 && len(n.Functions) == 0
}

// FunctionCall is a single timed call of a function from within a hook.
type FunctionCall struct {
	Function string  `json:"function"`
	File     string  `json:"file"`
	Line     int     `json:"line"`
	Time     float64 `json:"time"`
}

// HookAggregate sums up every invocation of one hook name across a trace.
type HookAggregate struct {
	Name string `json:"name"`
	// Functions holds the distinct names of the functions called by the hook.
	Functions []string `json:"functions"`
	// Time is the total self time of all invocations of the hook.
	Time float64 `json:"time"`
}

// FunctionAggregate sums up every call of one function name across a trace.
// File and Line are taken from the first call that was seen.
type FunctionAggregate struct {
	Name  string  `json:"name"`
	Line  int     `json:"line"`
	File  string  `json:"file"`
	Count uint64  `json:"count"`
	Time  float64 `json:"time"`
}
