package models

import (
	"strconv"
	"strings"
)

// HandleKind distinguishes input handles from output handles.
type HandleKind string

const (
	HandleKindInput  HandleKind = "input"
	HandleKindOutput HandleKind = "output"
)

// handleSep joins a field name and its positional index in the wire form of a
// handle id: "<field-name>-index:<i>".
const handleSep = "-index:"

// HandleRef addresses one declared input or output of a node spec by field
// name and positional index. Refs are constructed once when specs load and
// carried as values; the string form exists only at the wire boundary.
type HandleRef struct {
	Kind  HandleKind `json:"kind"`
	Name  string     `json:"name"`
	Index int        `json:"index"`
}

// String renders the canonical wire identifier for the handle.
func (h HandleRef) String() string {
	return MakeHandleID(h.Name, h.Index)
}

// MakeHandleID builds the wire identifier for a field at a positional index.
func MakeHandleID(name string, index int) string {
	return name + handleSep + strconv.Itoa(index)
}

// ParseHandleID splits a wire handle identifier into its field name and
// positional index. The field name may itself contain dashes, so the split
// happens at the last separator occurrence.
func ParseHandleID(id string) (string, int, bool) {
	at := strings.LastIndex(id, handleSep)
	if at <= 0 {
		return "", 0, false
	}

	index, err := strconv.Atoi(id[at+len(handleSep):])
	if err != nil || index < 0 {
		return "", 0, false
	}

	return id[:at], index, true
}

// InputHandles returns refs for every declared input, in declaration order.
func (s *NodeSpec) InputHandles() []HandleRef {
	refs := make([]HandleRef, 0, len(s.Inputs))
	for i, in := range s.Inputs {
		refs = append(refs, HandleRef{Kind: HandleKindInput, Name: in.Name, Index: i})
	}

	return refs
}

// OutputHandles returns refs for every declared output, in declaration order.
func (s *NodeSpec) OutputHandles() []HandleRef {
	refs := make([]HandleRef, 0, len(s.Outputs))
	for i, out := range s.Outputs {
		refs = append(refs, HandleRef{Kind: HandleKindOutput, Name: out.Name, Index: i})
	}

	return refs
}
