package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverseAPI struct {
	out     *bedrockruntime.ConverseOutput
	err     error
	lastReq *bedrockruntime.ConverseInput
}

func (f *fakeConverseAPI) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.lastReq = params
	return f.out, f.err
}

func messageOutput(blocks ...brtypes.ContentBlock) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: blocks,
		}},
		StopReason: brtypes.StopReasonToolUse,
		Usage: &brtypes.TokenUsage{
			InputTokens:  aws.Int32(120),
			OutputTokens: aws.Int32(30),
			TotalTokens:  aws.Int32(150),
		},
	}
}

var testTool = &Tool{
	Name:        "extract_booking_intent",
	Description: "extract",
	Parameters: &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"intent_type": {Type: TypeString, Enum: []string{"SEARCH", "CHAT"}},
		},
		Required: []string{"intent_type"},
	},
}

func TestBedrockClientForcesToolAndDecodesInput(t *testing.T) {
	api := &fakeConverseAPI{out: messageOutput(
		&brtypes.ContentBlockMemberToolUse{Value: brtypes.ToolUseBlock{
			Name:      aws.String("extract_booking_intent"),
			ToolUseId: aws.String("t1"),
			Input:     document.NewLazyDocument(map[string]any{"intent_type": "SEARCH", "location": "Đà Lạt"}),
		}},
	)}
	client := NewBedrockClient(api)

	resp, err := client.Complete(context.Background(), Request{
		Model:       "anthropic.test",
		System:      []string{"system prompt", " "},
		Messages:    []Message{{Role: RoleUser, Content: "tìm khách sạn Đà Lạt"}},
		Temperature: 0.1,
		Tool:        testTool,
	})
	require.NoError(t, err)

	require.NotNil(t, api.lastReq.ToolConfig)
	choice, ok := api.lastReq.ToolConfig.ToolChoice.(*brtypes.ToolChoiceMemberTool)
	require.True(t, ok)
	assert.Equal(t, "extract_booking_intent", aws.ToString(choice.Value.Name))
	assert.Len(t, api.lastReq.System, 1)
	require.NotNil(t, api.lastReq.InferenceConfig)
	assert.InDelta(t, 0.1, aws.ToFloat32(api.lastReq.InferenceConfig.Temperature), 0.0001)

	assert.True(t, resp.HasToolCall())
	assert.Equal(t, "extract_booking_intent", resp.ToolName)
	assert.JSONEq(t, `{"intent_type":"SEARCH","location":"Đà Lạt"}`, string(resp.ToolInput))
	assert.Equal(t, int32(150), resp.Usage.TotalTokens)
}

func TestBedrockClientTextOnlyWithToolIsNoToolCall(t *testing.T) {
	api := &fakeConverseAPI{out: messageOutput(&brtypes.ContentBlockMemberText{Value: "Xin chào"})}
	client := NewBedrockClient(api)

	resp, err := client.Complete(context.Background(), Request{
		Model:    "m",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
		Tool:     testTool,
	})
	assert.ErrorIs(t, err, ErrNoToolCall)
	assert.Equal(t, "Xin chào", resp.Text)
}

func TestBedrockClientPlainCompletion(t *testing.T) {
	api := &fakeConverseAPI{out: messageOutput(&brtypes.ContentBlockMemberText{Value: " hello "})}
	client := NewBedrockClient(api)

	resp, err := client.Complete(context.Background(), Request{
		Model:       "m",
		Temperature: -1,
		Messages: []Message{
			{Role: RoleSystem, Content: "be brief"},
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
			{Role: RoleUser, Content: "again"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
	assert.Nil(t, api.lastReq.ToolConfig)
	assert.Nil(t, api.lastReq.InferenceConfig)
	assert.Len(t, api.lastReq.Messages, 3)
	assert.Len(t, api.lastReq.System, 1)
}

func TestBedrockClientErrors(t *testing.T) {
	client := NewBedrockClient(&fakeConverseAPI{err: errors.New("throttled")})

	_, err := client.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	assert.ErrorContains(t, err, "model id is required")

	_, err = client.Complete(context.Background(), Request{Model: "m", Messages: []Message{{Role: "tool", Content: "x"}}})
	assert.ErrorContains(t, err, "unsupported role")

	_, err = client.Complete(context.Background(), Request{Model: "m", Messages: []Message{{Role: RoleUser, Content: "x"}}})
	assert.ErrorContains(t, err, "throttled")
}
