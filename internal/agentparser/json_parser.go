// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package agentparser

import (
	"encoding/json"
	"strings"
)

// jsonRecord is the envelope every recognized line is expected to have.
// Fields beyond Type are looked up lazily per variant since their shapes
// differ.
type jsonRecord struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// JSONParser parses an agent's NDJSON stream (one JSON object per line,
// optionally prefixed by an ISO timestamp). The recognized "type" values
// are a closed enumeration; anything else becomes a Custom event.
type JSONParser struct {
	state *State
}

// NewJSONParser returns a fresh JSONParser.
func NewJSONParser() *JSONParser {
	return &JSONParser{state: newState()}
}

func (p *JSONParser) AgentType() string { return "claude-json" }

func (p *JSONParser) Reset() { p.state = newState() }

func (p *JSONParser) Flush() []Event {
	if p.state.CurrentMessage == "" {
		return nil
	}
	ev := Event{Kind: KindMessage, Content: p.state.CurrentMessage, MessageID: p.state.CurrentMessageID}
	p.state.CurrentMessage = ""
	p.state.CurrentMessageID = ""
	return []Event{ev}
}

func (p *JSONParser) ParseLine(line string) []Event {
	content := line
	if idx := strings.IndexByte(line, '{'); idx >= 0 {
		content = line[idx:]
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		return []Event{{Kind: KindError, ErrorMessage: "malformed line: " + err.Error() + ": " + line}}
	}

	raw := []byte(content)
	switch envelope.Type {
	case "session", "system":
		return p.parseSessionInfo(raw)
	case "message":
		return p.parseMessage(raw)
	case "streaming_text", "text_delta":
		return p.parseStreamingText(raw)
	case "tool_use":
		return p.parseToolCall(raw)
	case "tool_result":
		return p.parseToolResult(raw)
	case "usage":
		return p.parseUsage(raw)
	case "thinking":
		return p.parseThinking(raw)
	case "error":
		return p.parseError(raw)
	case "todo_list":
		return p.parseTodoList(raw)
	case "glob_results":
		return p.parseGlobResults(raw)
	case "system_reminder":
		return nil
	default:
		return []Event{{Kind: KindCustom, EventType: envelope.Type, Data: json.RawMessage(raw)}}
	}
}

func (p *JSONParser) parseSessionInfo(raw []byte) []Event {
	var v struct {
		Model      string          `json:"model"`
		Tools      []string        `json:"tools"`
		SessionID  string          `json:"session_id"`
		McpServers []McpServerInfo `json:"mcp_servers"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return []Event{{Kind: KindError, ErrorMessage: "malformed session event: " + err.Error()}}
	}
	return []Event{{
		Kind:       KindSessionInfo,
		Model:      v.Model,
		Tools:      v.Tools,
		SessionID:  v.SessionID,
		McpServers: v.McpServers,
	}}
}

func (p *JSONParser) parseMessage(raw []byte) []Event {
	var v struct {
		Content string `json:"content"`
		ID      string `json:"id"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return []Event{{Kind: KindError, ErrorMessage: "malformed message event: " + err.Error()}}
	}
	return []Event{{Kind: KindMessage, Content: v.Content, MessageID: v.ID}}
}

func (p *JSONParser) parseStreamingText(raw []byte) []Event {
	var v struct {
		Delta     string `json:"delta"`
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return []Event{{Kind: KindError, ErrorMessage: "malformed streaming_text event: " + err.Error()}}
	}
	if v.MessageID != p.state.CurrentMessageID {
		p.state.CurrentMessageID = v.MessageID
		p.state.CurrentMessage = ""
	}
	p.state.CurrentMessage += v.Delta
	return []Event{{Kind: KindStreamingText, Delta: v.Delta, MessageID: v.MessageID}}
}

func (p *JSONParser) parseToolCall(raw []byte) []Event {
	var v struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Input       json.RawMessage `json:"input"`
		Description string          `json:"description"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return []Event{{Kind: KindError, ErrorMessage: "malformed tool_use event: " + err.Error()}}
	}
	p.state.ActiveToolCalls[v.ID] = ToolCallInfo{ID: v.ID, Name: v.Name}
	return []Event{{
		Kind:       KindToolCall,
		ToolCallID: v.ID,
		ToolName:   v.Name,
		ToolInput:  v.Input,
		ToolDesc:   v.Description,
	}}
}

func (p *JSONParser) parseToolResult(raw []byte) []Event {
	var v struct {
		ToolUseID string `json:"tool_use_id"`
		Content   string `json:"content"`
		IsError   bool   `json:"is_error"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return []Event{{Kind: KindError, ErrorMessage: "malformed tool_result event: " + err.Error()}}
	}
	_, known := p.state.ActiveToolCalls[v.ToolUseID]
	delete(p.state.ActiveToolCalls, v.ToolUseID)

	events := []Event{{
		Kind:         KindToolResult,
		ToolUseID:    v.ToolUseID,
		ResultText:   v.Content,
		IsError:      v.IsError,
		OrphanResult: !known,
	}}
	if structured := extractStructured(v.Content); structured != nil {
		events = append(events, *structured)
	}
	return events
}

func (p *JSONParser) parseUsage(raw []byte) []Event {
	var v struct {
		InputTokens  int      `json:"input_tokens"`
		OutputTokens int      `json:"output_tokens"`
		CacheTokens  *int     `json:"cache_tokens"`
		TotalCost    *float64 `json:"total_cost"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return []Event{{Kind: KindError, ErrorMessage: "malformed usage event: " + err.Error()}}
	}
	ev := Event{Kind: KindUsage, InputTokens: v.InputTokens, OutputTokens: v.OutputTokens}
	if v.CacheTokens != nil {
		ev.CacheTokens = *v.CacheTokens
		ev.HasCache = true
	}
	if v.TotalCost != nil {
		ev.TotalCost = *v.TotalCost
		ev.HasCost = true
	}
	return []Event{ev}
}

func (p *JSONParser) parseThinking(raw []byte) []Event {
	var v struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return []Event{{Kind: KindError, ErrorMessage: "malformed thinking event: " + err.Error()}}
	}
	return []Event{{Kind: KindThinking, Content: v.Content}}
}

func (p *JSONParser) parseError(raw []byte) []Event {
	var v struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return []Event{{Kind: KindError, ErrorMessage: "malformed error event: " + err.Error()}}
	}
	return []Event{{Kind: KindError, ErrorMessage: v.Message, ErrorCode: v.Code}}
}

func (p *JSONParser) parseTodoList(raw []byte) []Event {
	var v struct {
		Title string     `json:"title"`
		Items []TodoItem `json:"items"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return []Event{{Kind: KindError, ErrorMessage: "malformed todo_list event: " + err.Error()}}
	}
	return []Event{todoListEvent(v.Title, v.Items)}
}

func (p *JSONParser) parseGlobResults(raw []byte) []Event {
	var v struct {
		Paths []string `json:"paths"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return []Event{{Kind: KindError, ErrorMessage: "malformed glob_results event: " + err.Error()}}
	}
	return []Event{{
		Kind:           KindStructured,
		StructuredKind: StructuredGlobResults,
		GlobPaths:      v.Paths,
		GlobTotal:      len(v.Paths),
	}}
}

func todoListEvent(title string, items []TodoItem) Event {
	var pending, inProgress, done int
	for _, it := range items {
		switch it.Status {
		case "pending":
			pending++
		case "in_progress":
			inProgress++
		case "done":
			done++
		}
	}
	return Event{
		Kind:           KindStructured,
		StructuredKind: StructuredTodoList,
		TodoTitle:      title,
		TodoItems:      items,
		TodoPending:    pending,
		TodoInProgress: inProgress,
		TodoDone:       done,
	}
}

// extractStructured inspects a tool_result's raw content string for one of
// the richer structured shapes (a todo list, a glob/path list), emitted as
// an additional event immediately after the raw ToolResult so renderers can
// opt into nicer presentation without re-parsing the content themselves.
func extractStructured(content string) *Event {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" || trimmed[0] != '{' && trimmed[0] != '[' {
		return nil
	}

	var todo struct {
		Title string     `json:"title"`
		Items []TodoItem `json:"items"`
	}
	if json.Unmarshal([]byte(trimmed), &todo) == nil && len(todo.Items) > 0 {
		ev := todoListEvent(todo.Title, todo.Items)
		return &ev
	}

	var paths []string
	if json.Unmarshal([]byte(trimmed), &paths) == nil && len(paths) > 0 {
		return &Event{Kind: KindStructured, StructuredKind: StructuredGlobResults, GlobPaths: paths, GlobTotal: len(paths)}
	}

	return nil
}
