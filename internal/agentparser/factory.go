// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package agentparser

import "strings"

// NewParser inspects firstLine and returns the appropriate Parser. A
// timestamp prefix before the first '{' is tolerated: only the text from
// the first '{' onward is inspected for the JSON signature.
func NewParser(firstLine string) Parser {
	content := firstLine
	if idx := strings.IndexByte(firstLine, '{'); idx >= 0 {
		content = firstLine[idx:]
	}
	if strings.HasPrefix(content, "{") && strings.Contains(content, "\"type\"") {
		return NewJSONParser()
	}
	return NewPlainTextParser()
}

// ForAgent returns the parser appropriate for a named agent CLI, bypassing
// sniffing when the caller already knows which protocol to expect.
func ForAgent(agentType string) Parser {
	switch strings.ToLower(agentType) {
	case "claude", "claude-json":
		return NewJSONParser()
	case "plain", "text":
		return NewPlainTextParser()
	default:
		return NewPlainTextParser()
	}
}
