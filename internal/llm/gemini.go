package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"aide/internal/conversation"
	"aide/internal/logging"
)

// slowRequestThreshold is how long a model round-trip may take before the
// api log gets a warning instead of a debug line.
const slowRequestThreshold = 30 * time.Second

// GeminiClient implements Client on top of the Google GenAI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// GeminiConfig configures the Gemini-backed client.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewGeminiClient creates a Gemini-backed client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

// Complete runs a single plain completion.
func (c *GeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(userPrompt, genai.RoleUser),
	}

	cfg := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	timer := logging.StartTimer(logging.CategoryAPI, "Gemini completion")
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	timer.StopWithThreshold(slowRequestThreshold)
	if err != nil {
		return "", fmt.Errorf("GenAI completion failed: %w", err)
	}

	return resp.Text(), nil
}

// Chat runs one conversational turn with tool calling.
func (c *GeminiClient) Chat(ctx context.Context, req ChatRequest) (*Response, error) {
	contents := buildContents(req.Messages)

	cfg := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: buildDeclarations(req.Tools)}}
	}

	logging.API("Gemini chat: %d messages, %d tools", len(contents), len(req.Tools))
	timer := logging.StartTimer(logging.CategoryAPI, "Gemini chat")
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	timer.StopWithThreshold(slowRequestThreshold)
	if err != nil {
		return nil, fmt.Errorf("GenAI chat failed: %w", err)
	}

	out := &Response{}
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				if out.Text != "" {
					out.Text += "\n"
				}
				out.Text += part.Text
			}
			if part.FunctionCall != nil {
				out.ToolCalls = append(out.ToolCalls, ToolCall{
					ID:   part.FunctionCall.ID,
					Name: part.FunctionCall.Name,
					Args: part.FunctionCall.Args,
				})
			}
		}
	}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	logging.APIDebug("Gemini chat done: %d chars text, %d tool calls, %d tokens",
		len(out.Text), len(out.ToolCalls), out.Usage.TotalTokens)
	return out, nil
}

// buildContents maps conversation messages onto GenAI contents. Tool calls
// become function-call parts on model turns; tool returns become
// function-response parts on user turns.
func buildContents(msgs []conversation.Message) []*genai.Content {
	var contents []*genai.Content
	for _, m := range msgs {
		role := genai.RoleUser
		if m.Role == conversation.RoleAssistant {
			role = genai.RoleModel
		}

		content := &genai.Content{Role: role}
		for _, p := range m.Parts {
			switch p.Kind {
			case conversation.PartUserPrompt, conversation.PartText:
				content.Parts = append(content.Parts, &genai.Part{Text: p.Text})
			case conversation.PartToolCall:
				args, ok := p.ArgsMap()
				if !ok {
					args = map[string]any{"raw": p.ArgsText()}
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   p.ToolCallID,
						Name: p.ToolName,
						Args: args,
					},
				})
			case conversation.PartToolReturn:
				content.Parts = append(content.Parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						ID:       p.ToolCallID,
						Name:     p.ToolName,
						Response: map[string]any{"output": p.ContentText()},
					},
				})
			}
		}
		if len(content.Parts) > 0 {
			contents = append(contents, content)
		}
	}
	return contents
}

func buildDeclarations(tools []ToolDefinition) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 t.Name,
			Description:          t.Description,
			ParametersJsonSchema: t.InputSchema,
		})
	}
	return decls
}
