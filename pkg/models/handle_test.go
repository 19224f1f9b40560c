package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeHandleID(t *testing.T) {
	assert.Equal(t, "prompt-index:0", MakeHandleID("prompt", 0))
	assert.Equal(t, "system-message-index:2", MakeHandleID("system-message", 2))
}

func TestParseHandleID(t *testing.T) {
	testCases := []struct {
		name      string
		id        string
		wantName  string
		wantIndex int
		wantOK    bool
	}{
		{name: "simple", id: "prompt-index:0", wantName: "prompt", wantIndex: 0, wantOK: true},
		{name: "dashed field name", id: "system-message-index:2", wantName: "system-message", wantIndex: 2, wantOK: true},
		{name: "missing separator", id: "prompt", wantOK: false},
		{name: "empty name", id: "-index:0", wantOK: false},
		{name: "non numeric index", id: "prompt-index:x", wantOK: false},
		{name: "negative index", id: "prompt-index:-1", wantOK: false},
		{name: "empty string", id: "", wantOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			name, index, ok := ParseHandleID(tc.id)
			assert.Equal(t, tc.wantOK, ok)

			if tc.wantOK {
				assert.Equal(t, tc.wantName, name)
				assert.Equal(t, tc.wantIndex, index)
			}
		})
	}
}

func TestHandleRef_String_RoundTrip(t *testing.T) {
	ref := HandleRef{Kind: HandleKindInput, Name: "query", Index: 3}

	name, index, ok := ParseHandleID(ref.String())
	require.True(t, ok)
	assert.Equal(t, ref.Name, name)
	assert.Equal(t, ref.Index, index)
}

func TestNodeSpec_Handles(t *testing.T) {
	spec := &NodeSpec{
		Name: "Agent",
		Inputs: []InputSpec{
			{Name: "prompt", TypeDetail: TypeDetail{Type: HandleTypeTextField}},
			{Name: "tools", TypeDetail: TypeDetail{Type: HandleTypeAgentTool}},
		},
		Outputs: []OutputSpec{
			{Name: "response", TypeDetail: TypeDetail{Type: HandleTypeString}},
		},
	}

	inputs := spec.InputHandles()
	require.Len(t, inputs, 2)
	assert.Equal(t, HandleRef{Kind: HandleKindInput, Name: "prompt", Index: 0}, inputs[0])
	assert.Equal(t, "tools-index:1", inputs[1].String())

	outputs := spec.OutputHandles()
	require.Len(t, outputs, 1)
	assert.Equal(t, HandleKindOutput, outputs[0].Kind)
}
