// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package agentparser converts an AI coding agent's stdout — JSON lines or
// plain text — into a normalized stream of Events suitable for incremental
// UI rendering.
package agentparser

import "encoding/json"

// Kind discriminates the closed set of event variants an agent can produce.
type Kind string

const (
	KindSessionInfo   Kind = "session_info"
	KindThinking      Kind = "thinking"
	KindMessage       Kind = "message"
	KindStreamingText Kind = "streaming_text"
	KindToolCall      Kind = "tool_call"
	KindToolResult    Kind = "tool_result"
	KindError         Kind = "error"
	KindUsage         Kind = "usage"
	KindCustom        Kind = "custom"
	KindStructured    Kind = "structured"
)

// StructuredKind discriminates the richer payloads nested under a
// Structured event.
type StructuredKind string

const (
	StructuredTodoList    StructuredKind = "todo_list"
	StructuredGlobResults StructuredKind = "glob_results"
	StructuredPrettyJSON  StructuredKind = "pretty_json"
)

// McpServerInfo describes one MCP server surfaced in a SessionInfo event.
type McpServerInfo struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// TodoItem is a single entry of a TodoList structured payload.
type TodoItem struct {
	Text   string `json:"text"`
	Status string `json:"status"` // "pending" | "in_progress" | "done"
}

// Event is the unified representation of one thing an agent emitted.
// Exactly one of the Kind-specific field groups below is populated,
// matching which Kind is set.
type Event struct {
	Kind Kind

	// SessionInfo
	Model       string
	Tools       []string
	SessionID   string
	McpServers  []McpServerInfo

	// Thinking / Message / StreamingText
	Content   string
	MessageID string
	Delta     string

	// ToolCall
	ToolCallID   string
	ToolName     string
	ToolInput    json.RawMessage
	ToolDesc     string

	// ToolResult
	ToolUseID    string
	ResultText   string
	IsError      bool
	OrphanResult bool // tool_use_id did not match any known ToolCall

	// Error
	ErrorMessage string
	ErrorCode    string

	// Usage
	InputTokens  int
	OutputTokens int
	CacheTokens  int
	HasCache     bool
	TotalCost    float64
	HasCost      bool

	// Custom
	EventType string
	Data      json.RawMessage

	// Structured
	StructuredKind StructuredKind
	TodoTitle      string
	TodoItems      []TodoItem
	TodoPending    int
	TodoInProgress int
	TodoDone       int
	GlobPaths      []string
	GlobTotal      int
	PrettyJSON     string
}

// ToolCallInfo tracks an in-flight tool call awaiting its result.
type ToolCallInfo struct {
	ID   string
	Name string
}

// State is the parser's mutable, restartable accumulator. It is exported so
// a caller can snapshot/restore it across a parser reset if ever needed, but
// normal use is entirely internal to a Parser implementation.
type State struct {
	CurrentMessage   string
	CurrentMessageID string
	ActiveToolCalls  map[string]ToolCallInfo
	LineBuffer       string
	InThinking       bool
}

func newState() *State {
	return &State{ActiveToolCalls: make(map[string]ToolCallInfo)}
}

// Parser converts raw agent stdout into Events. Implementations are not
// safe for concurrent use.
type Parser interface {
	// ParseLine consumes one line of output (without its trailing newline)
	// and returns zero or more complete events. A malformed line never
	// fails the stream: it yields an Error event and parsing continues.
	ParseLine(line string) []Event
	// Flush drains any buffered partial state at end-of-stream.
	Flush() []Event
	// Reset clears parser state for a fresh run.
	Reset()
	// AgentType self-identifies the parser for diagnostics.
	AgentType() string
}
