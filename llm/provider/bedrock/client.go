// Package bedrock adapts model.Client to the AWS Bedrock Converse API, for
// use by the llm tier router's bedrock-backed max-tier endpoints (spec
// §4.2, SPEC_FULL §2 "max-tier escalation target").
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithy "github.com/aws/smithy-go"

	"github.com/gobii-run/agentcore/model"
)

// RuntimeClient mirrors the subset of the AWS Bedrock runtime client
// required by the adapter, matching *bedrockruntime.Client so callers can
// pass either the real client or a mock in tests.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Options configures the Bedrock client adapter.
type Options struct {
	Runtime      RuntimeClient
	DefaultModel string
	MaxTokens    int
	Temperature  float32

	SupportsTemperature bool
	SupportsToolChoice  bool
}

// Client implements model.Client on top of AWS Bedrock Converse.
type Client struct {
	runtime RuntimeClient
	opts    Options
}

// New builds a Bedrock-backed model client.
func New(opts Options) (*Client, error) {
	if opts.Runtime == nil {
		return nil, errors.New("bedrock: runtime client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("bedrock: default model identifier is required")
	}
	return &Client{runtime: opts.Runtime, opts: opts}, nil
}

// Complete issues a Converse request and translates the response into the
// provider-agnostic model.Response.
func (c *Client) Complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	input, err := c.prepareInput(req)
	if err != nil {
		return nil, err
	}
	output, err := c.runtime.Converse(ctx, input)
	if err != nil {
		if isRateLimited(err) {
			return nil, fmt.Errorf("%w: %w", model.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("bedrock converse: %w", err)
	}
	return translateResponse(output)
}

// Stream is not implemented by this adapter; the event loop falls back to
// Complete for bedrock-backed endpoints.
func (c *Client) Stream(context.Context, *model.Request) (model.Streamer, error) {
	return nil, model.ErrStreamingUnsupported
}

func (c *Client) prepareInput(req *model.Request) (*bedrockruntime.ConverseInput, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("bedrock: messages are required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.opts.DefaultModel
	}

	messages, system, err := encodeMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	toolConfig, err := encodeTools(req.Tools, req.ToolChoice, c.opts.SupportsToolChoice)
	if err != nil {
		return nil, err
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(modelID),
		Messages: messages,
		System:   system,
	}
	if toolConfig != nil {
		input.ToolConfig = toolConfig
	}

	cfg := &brtypes.InferenceConfiguration{}
	configured := false
	if maxTokens := effectiveMaxTokens(req.MaxTokens, c.opts.MaxTokens); maxTokens > 0 {
		m := int32(maxTokens)
		cfg.MaxTokens = &m
		configured = true
	}
	if c.opts.SupportsTemperature {
		if t := req.Temperature; t > 0 {
			v := t
			cfg.Temperature = &v
			configured = true
		} else if c.opts.Temperature > 0 {
			v := c.opts.Temperature
			cfg.Temperature = &v
			configured = true
		}
	}
	if configured {
		input.InferenceConfig = cfg
	}
	return input, nil
}

func effectiveMaxTokens(requested, fallback int) int {
	if requested > 0 {
		return requested
	}
	return fallback
}

func encodeMessages(msgs []*model.Message) ([]brtypes.Message, []brtypes.SystemContentBlock, error) {
	out := make([]brtypes.Message, 0, len(msgs))
	system := make([]brtypes.SystemContentBlock, 0, len(msgs))

	for _, m := range msgs {
		if m == nil {
			continue
		}
		if m.Role == model.ConversationRoleSystem {
			for _, p := range m.Parts {
				if v, ok := p.(model.TextPart); ok && v.Text != "" {
					system = append(system, &brtypes.SystemContentBlockMemberText{Value: v.Text})
				}
			}
			continue
		}

		blocks := make([]brtypes.ContentBlock, 0, len(m.Parts))
		for _, part := range m.Parts {
			switch v := part.(type) {
			case model.TextPart:
				if v.Text != "" {
					blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: v.Text})
				}
			case model.ToolUsePart:
				if v.Name == "" {
					return nil, nil, errors.New("bedrock: tool_use part missing name")
				}
				blocks = append(blocks, &brtypes.ContentBlockMemberToolUse{
					Value: brtypes.ToolUseBlock{
						ToolUseId: aws.String(v.ID),
						Name:      aws.String(v.Name),
						Input:     document.NewLazyDocument(v.Input),
					},
				})
			case model.ToolResultPart:
				blocks = append(blocks, encodeToolResult(v))
			}
		}
		if len(blocks) == 0 {
			continue
		}
		var role brtypes.ConversationRole
		switch m.Role { //nolint:exhaustive
		case model.ConversationRoleUser:
			role = brtypes.ConversationRoleUser
		case model.ConversationRoleAssistant:
			role = brtypes.ConversationRoleAssistant
		default:
			return nil, nil, fmt.Errorf("bedrock: unsupported message role %q", m.Role)
		}
		out = append(out, brtypes.Message{Role: role, Content: blocks})
	}
	if len(out) == 0 {
		return nil, nil, errors.New("bedrock: at least one user/assistant message is required")
	}
	return out, system, nil
}

func encodeToolResult(v model.ToolResultPart) brtypes.ContentBlock {
	var text string
	switch c := v.Content.(type) {
	case nil:
		text = ""
	case string:
		text = c
	case []byte:
		text = string(c)
	default:
		if data, err := json.Marshal(c); err == nil {
			text = string(data)
		}
	}
	status := brtypes.ToolResultStatusSuccess
	if v.IsError {
		status = brtypes.ToolResultStatusError
	}
	return &brtypes.ContentBlockMemberToolResult{
		Value: brtypes.ToolResultBlock{
			ToolUseId: aws.String(v.ToolUseID),
			Content:   []brtypes.ToolResultContentBlock{&brtypes.ToolResultContentBlockMemberText{Value: text}},
			Status:    status,
		},
	}
}

func encodeTools(defs []*model.ToolDefinition, choice *model.ToolChoice, supportsToolChoice bool) (*brtypes.ToolConfiguration, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	specs := make([]brtypes.Tool, 0, len(defs))
	for _, def := range defs {
		if def == nil || def.Name == "" {
			continue
		}
		specs = append(specs, &brtypes.ToolMemberToolSpec{
			Value: brtypes.ToolSpecification{
				Name:        aws.String(def.Name),
				Description: aws.String(def.Description),
				InputSchema: &brtypes.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(def.InputSchema),
				},
			},
		})
	}
	if len(specs) == 0 {
		return nil, nil
	}
	cfg := &brtypes.ToolConfiguration{Tools: specs}
	if supportsToolChoice && choice != nil {
		switch choice.Mode {
		case model.ToolChoiceModeAny:
			cfg.ToolChoice = &brtypes.ToolChoiceMemberAny{Value: brtypes.AnyToolChoice{}}
		case model.ToolChoiceModeTool:
			if choice.Name == "" {
				return nil, fmt.Errorf("bedrock: tool choice mode %q requires a tool name", choice.Mode)
			}
			cfg.ToolChoice = &brtypes.ToolChoiceMemberTool{Value: brtypes.SpecificToolChoice{Name: aws.String(choice.Name)}}
		}
	}
	return cfg, nil
}

func isRateLimited(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException", "ServiceQuotaExceededException":
			return true
		}
	}
	return false
}

func translateResponse(output *bedrockruntime.ConverseOutput) (*model.Response, error) {
	if output == nil {
		return nil, errors.New("bedrock: converse output is nil")
	}
	resp := &model.Response{}
	member, ok := output.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok || member == nil {
		return resp, nil
	}
	for _, block := range member.Value.Content {
		switch v := block.(type) {
		case *brtypes.ContentBlockMemberText:
			resp.Content = append(resp.Content, model.Message{
				Role:  model.ConversationRoleAssistant,
				Parts: []model.Part{model.TextPart{Text: v.Value}},
			})
		case *brtypes.ContentBlockMemberToolUse:
			payload, err := encodeDocument(v.Value.Input)
			if err != nil {
				return nil, fmt.Errorf("bedrock: decode tool_use input: %w", err)
			}
			resp.ToolCalls = append(resp.ToolCalls, model.ToolCall{
				Name:    aws.ToString(v.Value.Name),
				Payload: payload,
				ID:      aws.ToString(v.Value.ToolUseId),
			})
		}
	}
	if u := output.Usage; u != nil {
		resp.Usage = model.TokenUsage{
			InputTokens:  int(aws.ToInt32(u.InputTokens)),
			OutputTokens: int(aws.ToInt32(u.OutputTokens)),
			TotalTokens:  int(aws.ToInt32(u.TotalTokens)),
		}
	}
	resp.StopReason = string(output.StopReason)
	return resp, nil
}

func encodeDocument(doc document.Interface) (json.RawMessage, error) {
	if doc == nil {
		return json.RawMessage("{}"), nil
	}
	var out any
	if err := doc.UnmarshalSmithyDocument(&out); err != nil {
		return nil, err
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return data, nil
}
