// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"
	"strings"

	"github.com/wingedpig/agentsbox/internal/agentparser"
)

// formatPreview turns captured pane text into the overview's preview
// lines. When the capture speaks the agent's JSON protocol it is run
// through the streaming parser and rendered one event per line; plain
// pane content (an interactive agent UI, a shell) is shown as-is. max
// bounds the returned slice, keeping the newest lines.
func formatPreview(text string, max int) []string {
	lines := strings.Split(text, "\n")

	first := firstNonEmpty(lines)
	parser := agentparser.NewParser(first)
	if parser.AgentType() != "claude-json" {
		return tail(lines, max)
	}

	var out []string
	for _, line := range lines {
		for _, ev := range parser.ParseLine(line) {
			if s := formatEvent(ev); s != "" {
				out = append(out, s)
			}
		}
	}
	for _, ev := range parser.Flush() {
		if s := formatEvent(ev); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return tail(lines, max)
	}
	return tail(out, max)
}

// formatEvent renders one parsed agent event as a single preview line.
// Events with no sensible one-line form (usage deltas, raw structured
// payloads already covered by their ToolResult) return "".
func formatEvent(ev agentparser.Event) string {
	switch ev.Kind {
	case agentparser.KindSessionInfo:
		return fmt.Sprintf("\x1b[2msession %s (%s)\x1b[0m", ev.SessionID, ev.Model)
	case agentparser.KindMessage:
		return firstLineOf(ev.Content)
	case agentparser.KindStreamingText:
		return firstLineOf(ev.Delta)
	case agentparser.KindThinking:
		return "\x1b[2m" + firstLineOf(ev.Content) + "\x1b[0m"
	case agentparser.KindToolCall:
		return fmt.Sprintf("\x1b[36m⚙ %s\x1b[0m", ev.ToolName)
	case agentparser.KindToolResult:
		if ev.IsError {
			return "\x1b[31m✗ " + firstLineOf(ev.ResultText) + "\x1b[0m"
		}
		return "\x1b[32m✓\x1b[0m " + firstLineOf(ev.ResultText)
	case agentparser.KindError:
		return "\x1b[31m" + firstLineOf(ev.ErrorMessage) + "\x1b[0m"
	case agentparser.KindStructured:
		if ev.StructuredKind == agentparser.StructuredTodoList {
			return fmt.Sprintf("\x1b[2mtodos: %d pending, %d in progress, %d done\x1b[0m",
				ev.TodoPending, ev.TodoInProgress, ev.TodoDone)
		}
		return ""
	default:
		return ""
	}
}

func firstNonEmpty(lines []string) string {
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

func firstLineOf(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func tail(lines []string, max int) []string {
	if len(lines) > max {
		return lines[len(lines)-max:]
	}
	return lines
}
