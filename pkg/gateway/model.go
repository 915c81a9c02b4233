package gateway

import (
	"context"
	"errors"
	"iter"
)

// FieldType is the JSON type of a response field.
type FieldType string

const (
	TypeBoolean     FieldType = "boolean"
	TypeNumber      FieldType = "number"
	TypeString      FieldType = "string"
	TypeStringArray FieldType = "string_array"
)

// Field describes one required field of a structured response.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Enum        []string
}

// Schema is the object shape a structured call must return. Every field is
// required.
type Schema struct {
	Fields []Field
}

// Required lists the field names.
func (s Schema) Required() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// StructuredRequest asks the model for a single JSON object.
type StructuredRequest struct {
	Prompt string
	Schema Schema
}

// Role of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior chat message.
type Turn struct {
	Role Role
	Text string
}

// ChatRequest is a chat completion over the prior history.
type ChatRequest struct {
	SystemInstruction string
	History           []Turn
	Message           string
}

// Model is the hosted inference endpoint.
type Model interface {
	// GenerateJSON returns the raw JSON text of one structured response.
	GenerateJSON(ctx context.Context, req StructuredRequest) ([]byte, error)

	// StreamChat yields reply fragments in order. The sequence is consumed
	// once; a non-nil error ends it.
	StreamChat(ctx context.Context, req ChatRequest) iter.Seq2[string, error]
}

var errModelNotConfigured = errors.New("gateway: no model configured")

// OfflineModel is used when no API key is configured. Every call fails as
// a transport error so the service still starts.
type OfflineModel struct{}

// GenerateJSON implements Model.
func (OfflineModel) GenerateJSON(ctx context.Context, req StructuredRequest) ([]byte, error) {
	return nil, errModelNotConfigured
}

// StreamChat implements Model.
func (OfflineModel) StreamChat(ctx context.Context, req ChatRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield("", errModelNotConfigured)
	}
}
