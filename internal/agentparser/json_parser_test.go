// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package agentparser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONParser_MessageToolCallToolResult(t *testing.T) {
	lines := []string{
		`{"type":"message","content":"hi"}`,
		`{"type":"tool_use","id":"a","name":"ls","input":{}}`,
		`{"type":"tool_result","tool_use_id":"a","content":"ok","is_error":false}`,
	}

	p := NewJSONParser()
	var events []Event
	for _, line := range lines {
		events = append(events, p.ParseLine(line)...)
	}
	events = append(events, p.Flush()...)

	require.Len(t, events, 3)
	assert.Equal(t, KindMessage, events[0].Kind)
	assert.Equal(t, KindToolCall, events[1].Kind)
	assert.Equal(t, KindToolResult, events[2].Kind)
	assert.False(t, events[2].OrphanResult)
}

func TestJSONParser_Determinism(t *testing.T) {
	input := `{"type":"message","content":"hi"}` + "\n" +
		`{"type":"tool_use","id":"a","name":"ls","input":{}}` + "\n" +
		`{"type":"tool_result","tool_use_id":"a","content":"ok","is_error":false}` + "\n"

	p1 := NewJSONParser()
	var direct []Event
	for _, line := range strings.Split(strings.TrimRight(input, "\n"), "\n") {
		direct = append(direct, p1.ParseLine(line)...)
	}
	direct = append(direct, p1.Flush()...)

	p2 := NewJSONParser()
	var fromLines []Event
	lineBuf := ""
	for _, b := range []byte(input) {
		if b == '\n' {
			fromLines = append(fromLines, p2.ParseLine(lineBuf)...)
			lineBuf = ""
			continue
		}
		lineBuf += string(b)
	}
	fromLines = append(fromLines, p2.Flush()...)

	require.Len(t, fromLines, len(direct))
	for i := range direct {
		assert.Equal(t, direct[i].Kind, fromLines[i].Kind)
	}
}

func TestJSONParser_OrphanToolResult(t *testing.T) {
	p := NewJSONParser()
	events := p.ParseLine(`{"type":"tool_result","tool_use_id":"unknown","content":"x","is_error":false}`)
	require.Len(t, events, 1)
	assert.True(t, events[0].OrphanResult)
}

func TestJSONParser_MalformedLineYieldsErrorAndContinues(t *testing.T) {
	p := NewJSONParser()
	events := p.ParseLine(`{"type": not valid json`)
	require.Len(t, events, 1)
	assert.Equal(t, KindError, events[0].Kind)

	// Parser keeps working after a malformed line.
	events = p.ParseLine(`{"type":"message","content":"still alive"}`)
	require.Len(t, events, 1)
	assert.Equal(t, KindMessage, events[0].Kind)
}

func TestJSONParser_UnknownTypeBecomesCustom(t *testing.T) {
	p := NewJSONParser()
	events := p.ParseLine(`{"type":"mystery_event","foo":"bar"}`)
	require.Len(t, events, 1)
	assert.Equal(t, KindCustom, events[0].Kind)
	assert.Equal(t, "mystery_event", events[0].EventType)
}

func TestJSONParser_TodoListStructured(t *testing.T) {
	p := NewJSONParser()
	events := p.ParseLine(`{"type":"todo_list","title":"Plan","items":[{"text":"a","status":"done"},{"text":"b","status":"pending"}]}`)
	require.Len(t, events, 1)
	assert.Equal(t, KindStructured, events[0].Kind)
	assert.Equal(t, StructuredTodoList, events[0].StructuredKind)
	assert.Equal(t, 1, events[0].TodoDone)
	assert.Equal(t, 1, events[0].TodoPending)
}

func TestJSONParser_ToolResultEmitsStructuredTodoList(t *testing.T) {
	p := NewJSONParser()
	events := p.ParseLine(`{"type":"tool_result","tool_use_id":"a","content":"{\"title\":\"t\",\"items\":[{\"text\":\"x\",\"status\":\"done\"}]}","is_error":false}`)
	require.Len(t, events, 2)
	assert.Equal(t, KindToolResult, events[0].Kind)
	assert.Equal(t, KindStructured, events[1].Kind)
	assert.Equal(t, StructuredTodoList, events[1].StructuredKind)
}

func TestJSONParser_StreamingTextAccumulates(t *testing.T) {
	p := NewJSONParser()
	p.ParseLine(`{"type":"streaming_text","delta":"Hel","message_id":"m1"}`)
	p.ParseLine(`{"type":"streaming_text","delta":"lo","message_id":"m1"}`)
	events := p.Flush()
	require.Len(t, events, 1)
	assert.Equal(t, "Hello", events[0].Content)
}
