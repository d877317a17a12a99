// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package agentparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewParser_DetectsJSONWithTimestampPrefix(t *testing.T) {
	line := `2025-09-08T19:20:30.123Z {"type":"session"}`
	p := NewParser(line)
	assert.Equal(t, "claude-json", p.AgentType())
}

func TestNewParser_PlainTextFallback(t *testing.T) {
	p := NewParser("Thinking about the problem...")
	assert.Equal(t, "plain", p.AgentType())
}

func TestNewParser_JSONWithoutTypeFallsBackToPlain(t *testing.T) {
	p := NewParser(`{"foo": "bar"}`)
	assert.Equal(t, "plain", p.AgentType())
}

func TestForAgent(t *testing.T) {
	assert.Equal(t, "claude-json", ForAgent("Claude").AgentType())
	assert.Equal(t, "claude-json", ForAgent("claude-json").AgentType())
	assert.Equal(t, "plain", ForAgent("codex-plain").AgentType())
}
