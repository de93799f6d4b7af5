// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package trace // import "github.com/wpprofiler/hookreporter/trace"

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	// HookPath is where the hook tree lives inside a trace document.
	HookPath = "collectors.hook"
	// FunctionPath is where function aggregates are written to.
	FunctionPath = "collectors.function"
)

// ErrMalformed is returned by Parse if the data does not carry a hook tree.
var ErrMalformed = errors.New("malformed trace document")

// Document is a trace document as written by the profiler. Only the hook tree
// is decoded, everything else is kept as raw bytes.
type Document struct {
	raw []byte

	// Root is the node stored at HookPath. Its own name and time are not part
	// of the recording, only its children are.
	Root Node
}

// Parse decodes the hook tree of a trace document.
func Parse(data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	hook := gjson.GetBytes(data, HookPath)
	if !hook.Exists() || !hook.IsObject() {
		return nil, fmt.Errorf("%w: %s missing", ErrMalformed, HookPath)
	}

	doc := &Document{raw: data}
	if err := json.Unmarshal([]byte(hook.Raw), &doc.Root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return doc, nil
}

// WithAggregates returns a copy of the document where the hook tree is
// replaced by hooks and the function collection is set to functions.
func (d *Document) WithAggregates(hooks []HookAggregate,
	functions []FunctionAggregate) ([]byte, error) {
	if hooks == nil {
		hooks = []HookAggregate{}
	}
	if functions == nil {
		functions = []FunctionAggregate{}
	}

	out, err := sjson.SetBytes(d.raw, HookPath, hooks)
	if err != nil {
		return nil, fmt.Errorf("failed to set %s: %w", HookPath, err)
	}
	out, err = sjson.SetBytes(out, FunctionPath, functions)
	if err != nil {
		return nil, fmt.Errorf("failed to set %s: %w", FunctionPath, err)
	}
	return out, nil
}
