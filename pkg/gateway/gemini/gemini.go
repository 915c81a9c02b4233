// Package gemini adapts the Google Gen AI SDK to gateway.Model.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"arithmitra/pkg/gateway"

	"google.golang.org/genai"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Config selects the endpoint, credentials and model.
type Config struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the defaults without an API key.
func DefaultConfig() Config {
	return Config{Model: DefaultModel}
}

// Client implements gateway.Model over genai.
type Client struct {
	client *genai.Client
	model  string
}

// New creates a client for the Gemini API backend.
func New(ctx context.Context, config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		cc.HTTPOptions.BaseURL = config.BaseURL
	}
	if config.Timeout > 0 {
		timeout := config.Timeout
		cc.HTTPOptions.Timeout = &timeout
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Client{client: client, model: config.Model}, nil
}

// GenerateJSON implements gateway.Model.
func (c *Client) GenerateJSON(ctx context.Context, req gateway.StructuredRequest) ([]byte, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   toSchema(req.Schema),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: generate: %w", err)
	}
	return []byte(resp.Text()), nil
}

// StreamChat implements gateway.Model.
func (c *Client) StreamChat(ctx context.Context, req gateway.ChatRequest) iter.Seq2[string, error] {
	config := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	contents := toContents(req.History, req.Message)

	return func(yield func(string, error) bool) {
		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.model, contents, config) {
			if err != nil {
				yield("", fmt.Errorf("gemini: stream: %w", err))
				return
			}
			if !yield(resp.Text(), nil) {
				return
			}
		}
	}
}

func toSchema(s gateway.Schema) *genai.Schema {
	props := make(map[string]*genai.Schema, len(s.Fields))
	order := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		props[f.Name] = fieldSchema(f)
		order = append(order, f.Name)
	}
	return &genai.Schema{
		Type:             genai.TypeObject,
		Properties:       props,
		Required:         s.Required(),
		PropertyOrdering: order,
	}
}

func fieldSchema(f gateway.Field) *genai.Schema {
	schema := &genai.Schema{Description: f.Description}
	switch f.Type {
	case gateway.TypeBoolean:
		schema.Type = genai.TypeBoolean
	case gateway.TypeNumber:
		schema.Type = genai.TypeNumber
	case gateway.TypeStringArray:
		schema.Type = genai.TypeArray
		schema.Items = &genai.Schema{Type: genai.TypeString}
	default:
		schema.Type = genai.TypeString
	}
	if len(f.Enum) > 0 {
		schema.Enum = f.Enum
	}
	return schema
}

func toContents(history []gateway.Turn, message string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		if turn.Text == "" {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if turn.Role == gateway.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	return append(contents, genai.NewContentFromText(message, genai.RoleUser))
}
