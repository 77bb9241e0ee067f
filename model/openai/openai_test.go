package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hauntmesh/core"
	"github.com/hupe1980/hauntmesh/model"
)

const completionResponse = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1730000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": null,
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {"name": "ghost_performer__move_ghost", "arguments": "{\"location\":\"attic\"}"}
      }]
    }
  }],
  "usage": {"prompt_tokens": 20, "completion_tokens": 7, "total_tokens": 27}
}`

func TestGenerate(t *testing.T) {
	var body map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionResponse)
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test-key"
		o.BaseURL = srv.URL
	})

	resp, err := model.Collect(context.Background(), m, model.Request{
		Instructions: "You run a haunted house.",
		Contents:     []core.Content{core.NewTextContent("user", "Pick the next prop.")},
		Tools: []model.ToolDefinition{model.NewToolDefinition(
			"ghost_performer__move_ghost",
			"Move the ghost to a new location",
			map[string]any{"type": "object", "properties": map[string]any{"location": map[string]any{"type": "string"}}},
		)},
		ToolChoice: model.ToolChoiceRequired,
	})
	require.NoError(t, err)

	assert.Equal(t, "tool_calls", resp.FinishReason)
	calls := resp.Content.FunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "ghost_performer__move_ghost", calls[0].Name)
	assert.JSONEq(t, `{"location":"attic"}`, calls[0].Arguments)
	assert.Equal(t, 27, resp.Usage.TotalTokens)

	require.NotNil(t, body)
	assert.Equal(t, "required", body["tool_choice"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
}

func TestBuildMessages_ReplaysToolResults(t *testing.T) {
	msgs := buildMessages(model.Request{Contents: []core.Content{
		core.NewTextContent("user", "go"),
		{Role: "assistant", Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c1", Name: "x", Arguments: "{}"}}}},
		{Role: "tool", Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "c1", Name: "x", Response: "done"}}}},
	}})

	require.Len(t, msgs, 3)
	require.NotNil(t, msgs[1].OfAssistant)
	require.NotNil(t, msgs[2].OfTool)
	assert.Equal(t, "c1", msgs[2].OfTool.ToolCallID)
}

func TestToolCallAccumulator(t *testing.T) {
	var acc toolCallAccumulator
	acc.add(1, "b", "fog_machine_tech__trigger_fog", "{")
	acc.add(0, "a", "ghost_performer__move_ghost", `{"location":`)
	acc.add(0, "", "", `"attic"}`)
	acc.add(1, "", "", "}")

	parts := acc.parts()
	require.Len(t, parts, 2)
	first := parts[0].(core.FunctionCallPart).FunctionCall
	assert.Equal(t, "a", first.ID)
	assert.Equal(t, `{"location":"attic"}`, first.Arguments)
	assert.Equal(t, "{}", parts[1].(core.FunctionCallPart).FunctionCall.Arguments)
}
