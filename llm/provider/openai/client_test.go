package openai_test

import (
	"context"
	"testing"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/require"

	"github.com/gobii-run/agentcore/llm/provider/openai"
	"github.com/gobii-run/agentcore/model"
)

type fakeChatClient struct {
	captured sdk.ChatCompletionNewParams
	resp     *sdk.ChatCompletion
	err      error
}

func (f *fakeChatClient) New(_ context.Context, body sdk.ChatCompletionNewParams, _ ...option.RequestOption) (*sdk.ChatCompletion, error) {
	f.captured = body
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func baseOptions() openai.Options {
	return openai.Options{
		DefaultModel:        "gpt-5",
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

func TestNewRejectsNilChatClient(t *testing.T) {
	t.Parallel()
	_, err := openai.New(nil, baseOptions())
	require.Error(t, err)
}

func TestNewRejectsMissingDefaultModel(t *testing.T) {
	t.Parallel()
	_, err := openai.New(&fakeChatClient{}, openai.Options{})
	require.Error(t, err)
}

func TestCompleteTranslatesTextResponse(t *testing.T) {
	t.Parallel()

	fake := &fakeChatClient{resp: &sdk.ChatCompletion{
		Choices: []sdk.ChatCompletionChoice{
			{
				Message:      sdk.ChatCompletionMessage{Content: "hello there"},
				FinishReason: "stop",
			},
		},
		Usage: sdk.CompletionUsage{PromptTokens: 12, CompletionTokens: 4, TotalTokens: 16},
	}}
	c, err := openai.New(fake, baseOptions())
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), userRequest("hi"))
	require.NoError(t, err)
	require.Len(t, resp.Content, 1)
	require.Equal(t, "stop", resp.StopReason)
	require.Equal(t, 12, resp.Usage.InputTokens)
	require.Equal(t, 4, resp.Usage.OutputTokens)
	require.Equal(t, "gpt-5", string(fake.captured.Model))
}

func TestCompleteTranslatesToolCalls(t *testing.T) {
	t.Parallel()

	fake := &fakeChatClient{resp: &sdk.ChatCompletion{
		Choices: []sdk.ChatCompletionChoice{
			{
				Message: sdk.ChatCompletionMessage{
					ToolCalls: []sdk.ChatCompletionMessageToolCall{
						{
							ID: "call_1",
							Function: sdk.ChatCompletionMessageToolCallFunction{
								Name:      "search",
								Arguments: `{"q":"golang"}`,
							},
						},
					},
				},
			},
		},
	}}
	c, err := openai.New(fake, baseOptions())
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), userRequest("find it"))
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	require.Equal(t, "search", resp.ToolCalls[0].Name)
	require.Equal(t, "call_1", resp.ToolCalls[0].ID)
}

func TestCompleteRejectsEmptyMessages(t *testing.T) {
	t.Parallel()

	c, err := openai.New(&fakeChatClient{}, baseOptions())
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), &model.Request{})
	require.Error(t, err)
}

func TestCompleteReturnsEmptyResponseWhenNoChoices(t *testing.T) {
	t.Parallel()

	fake := &fakeChatClient{resp: &sdk.ChatCompletion{}}
	c, err := openai.New(fake, baseOptions())
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), userRequest("hi"))
	require.NoError(t, err)
	require.Empty(t, resp.Content)
	require.Empty(t, resp.ToolCalls)
}

func TestStreamReturnsUnsupportedError(t *testing.T) {
	t.Parallel()

	c, err := openai.New(&fakeChatClient{}, baseOptions())
	require.NoError(t, err)
	_, err = c.Stream(context.Background(), userRequest("hi"))
	require.ErrorIs(t, err, model.ErrStreamingUnsupported)
}
