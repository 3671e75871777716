package a2a

import (
	"encoding/json"
	"strings"

	"github.com/charmbracelet/log"
)

// MCPContextKey is the metadata key under which formatted MCP context data
// travels with a message.
const MCPContextKey = "mcp_context"

/*
Message represents all non‑artifact communication between client & agent.
The protocol treats the content as opaque; only metadata is interpreted.
*/
type Message struct {
	Role     string         `json:"role"` // "user" or "agent"
	Parts    []Part         `json:"parts"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func NewTextMessage(role string, text string) Message {
	return Message{
		Role: role,
		Parts: []Part{
			{Type: PartTypeText, Text: text},
		},
	}
}

func NewDataMessage(role string, data map[string]any) Message {
	return Message{
		Role: role,
		Parts: []Part{
			{Type: PartTypeData, Data: data},
		},
	}
}

// Validate reports whether the message is usable on the wire.
func (msg *Message) Validate() error {
	if msg.Role == "" {
		return ErrMissingField("role")
	}
	if len(msg.Parts) == 0 {
		return ErrMissingField("parts")
	}
	return nil
}

/*
WithMCPContext returns a copy of the message whose metadata carries the
supplied MCP context under "mcp_context". Existing metadata keys are
preserved; an existing mcp_context entry is overwritten. A context that
cannot be canonicalised is dropped with a warning and the message is
returned unchanged.
*/
func (msg Message) WithMCPContext(mcpContext map[string]any) Message {
	if len(mcpContext) == 0 {
		return msg
	}

	formatted, err := formatMCPContext(mcpContext)

	if err != nil {
		log.Warn("failed to format MCP context, sending message without it", "error", err)
		return msg
	}

	metadata := make(map[string]any, len(msg.Metadata)+1)
	for k, v := range msg.Metadata {
		metadata[k] = v
	}
	metadata[MCPContextKey] = formatted

	msg.Metadata = metadata
	return msg
}

// formatMCPContext canonicalises arbitrary context data through a JSON
// round-trip so the embedded document is always plain JSON types.
func formatMCPContext(mcpContext map[string]any) (map[string]any, error) {
	buf, err := json.Marshal(mcpContext)

	if err != nil {
		return nil, err
	}

	var canonical map[string]any

	if err := json.Unmarshal(buf, &canonical); err != nil {
		return nil, err
	}

	return canonical, nil
}

func (msg *Message) String() string {
	var sb strings.Builder

	for _, part := range msg.Parts {
		sb.WriteString(part.Text)
	}

	return sb.String()
}
