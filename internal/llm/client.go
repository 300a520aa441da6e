// Package llm talks to the language-understanding providers used for
// structured intent extraction.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNoToolCall is returned when a request named a tool but the model answered
// in free text instead.
var ErrNoToolCall = errors.New("llm: model did not call the requested tool")

// Message is a provider-neutral chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// Tool describes a schema-constrained function the model is forced to call.
type Tool struct {
	Name        string
	Description string
	Parameters  *Schema
}

type Request struct {
	Model       string
	System      []string
	Messages    []Message
	MaxTokens   int32
	Temperature float32
	TopP        float32
	Tool        *Tool
}

type Response struct {
	Text       string
	ToolName   string
	ToolInput  json.RawMessage
	Usage      TokenUsage
	StopReason string
}

// HasToolCall reports whether the model returned structured tool arguments.
func (r Response) HasToolCall() bool {
	return len(r.ToolInput) > 0
}

type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
