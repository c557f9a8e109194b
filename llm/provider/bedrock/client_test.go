package bedrock_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/require"

	"github.com/gobii-run/agentcore/llm/provider/bedrock"
	"github.com/gobii-run/agentcore/model"
)

// fakeDocument implements document.Interface over an in-memory value, for
// translating a mocked ToolUse input payload without a live AWS document
// encoder.
type fakeDocument struct {
	value any
}

func (d *fakeDocument) UnmarshalSmithyDocument(v any) error {
	data, err := json.Marshal(d.value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (d *fakeDocument) MarshalSmithyDocument() ([]byte, error) {
	return json.Marshal(d.value)
}

type fakeRuntimeClient struct {
	captured *bedrockruntime.ConverseInput
	resp     *bedrockruntime.ConverseOutput
	err      error
}

func (f *fakeRuntimeClient) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.captured = params
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func baseOptions(rt bedrock.RuntimeClient) bedrock.Options {
	return bedrock.Options{
		Runtime:             rt,
		DefaultModel:        "anthropic.claude-3-sonnet",
		MaxTokens:           1024,
		SupportsTemperature: true,
		SupportsToolChoice:  true,
	}
}

func userRequest(text string) *model.Request {
	return &model.Request{
		Messages: []*model.Message{
			{Role: model.ConversationRoleUser, Parts: []model.Part{model.TextPart{Text: text}}},
		},
	}
}

func TestNewRejectsNilRuntimeClient(t *testing.T) {
	t.Parallel()
	_, err := bedrock.New(bedrock.Options{DefaultModel: "m"})
	require.Error(t, err)
}

func TestNewRejectsMissingDefaultModel(t *testing.T) {
	t.Parallel()
	_, err := bedrock.New(bedrock.Options{Runtime: &fakeRuntimeClient{}})
	require.Error(t, err)
}

func TestCompleteTranslatesTextResponse(t *testing.T) {
	t.Parallel()

	fake := &fakeRuntimeClient{resp: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Role: brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: "hello there"},
				},
			},
		},
		Usage: &brtypes.TokenUsage{
			InputTokens:  aws.Int32(10),
			OutputTokens: aws.Int32(5),
			TotalTokens:  aws.Int32(15),
		},
		StopReason: brtypes.StopReasonEndTurn,
	}}
	c, err := bedrock.New(baseOptions(fake))
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), userRequest("hi"))
	require.NoError(t, err)
	require.Len(t, resp.Content, 1)
	require.Equal(t, 10, resp.Usage.InputTokens)
	require.Equal(t, 5, resp.Usage.OutputTokens)
	require.Equal(t, string(brtypes.StopReasonEndTurn), resp.StopReason)
	require.Equal(t, "anthropic.claude-3-sonnet", aws.ToString(fake.captured.ModelId))
}

func TestCompleteTranslatesToolUseResponse(t *testing.T) {
	t.Parallel()

	fake := &fakeRuntimeClient{resp: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberToolUse{
						Value: brtypes.ToolUseBlock{
							ToolUseId: aws.String("call_1"),
							Name:      aws.String("search"),
							Input:     &fakeDocument{value: map[string]any{"q": "golang"}},
						},
					},
				},
			},
		},
	}}
	c, err := bedrock.New(baseOptions(fake))
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), userRequest("find it"))
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	require.Equal(t, "search", resp.ToolCalls[0].Name)
	require.Equal(t, "call_1", resp.ToolCalls[0].ID)
	require.JSONEq(t, `{"q":"golang"}`, string(resp.ToolCalls[0].Payload))
}

func TestCompleteRejectsEmptyMessages(t *testing.T) {
	t.Parallel()

	c, err := bedrock.New(baseOptions(&fakeRuntimeClient{}))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), &model.Request{})
	require.Error(t, err)
}

func TestCompleteReturnsEmptyResponseForNonMessageOutput(t *testing.T) {
	t.Parallel()

	fake := &fakeRuntimeClient{resp: &bedrockruntime.ConverseOutput{}}
	c, err := bedrock.New(baseOptions(fake))
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), userRequest("hi"))
	require.NoError(t, err)
	require.Empty(t, resp.Content)
	require.Empty(t, resp.ToolCalls)
}

func TestStreamReturnsUnsupportedError(t *testing.T) {
	t.Parallel()

	c, err := bedrock.New(baseOptions(&fakeRuntimeClient{}))
	require.NoError(t, err)
	_, err = c.Stream(context.Background(), userRequest("hi"))
	require.ErrorIs(t, err, model.ErrStreamingUnsupported)
}
