package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeterSaffarian/replit-propertyrecommender/internal/domain"
)

func testGenerator(serverURL string) *Generator {
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = serverURL + "/v1"
	return newGenerator(cfg, "gpt-4o", 0)
}

func completionWithToolCall(name, arguments string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "gpt-4o",
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]any{
					"role": "assistant",
					"tool_calls": []map[string]any{
						{
							"id":   "call-1",
							"type": "function",
							"function": map[string]any{
								"name":      name,
								"arguments": arguments,
							},
						},
					},
				},
				"finish_reason": "tool_calls",
			},
		},
	}
}

func TestGenerateStructured_ReturnsToolArguments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req["model"])
		assert.NotEmpty(t, req["tools"])

		json.NewEncoder(w).Encode(completionWithToolCall("emit_record", `{"bedrooms":3}`))
	}))
	defer server.Close()

	gen := testGenerator(server.URL)
	raw, err := gen.GenerateStructured(context.Background(),
		[]domain.Message{{Role: "system", Content: "normalize this"}},
		domain.FunctionSpec{Name: "emit_record", Parameters: json.RawMessage(`{"type":"object"}`)},
	)

	require.NoError(t, err)
	assert.JSONEq(t, `{"bedrooms":3}`, string(raw))
}

func TestGenerateStructured_WrongToolName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(completionWithToolCall("something_else", `{}`))
	}))
	defer server.Close()

	gen := testGenerator(server.URL)
	_, err := gen.GenerateStructured(context.Background(), nil,
		domain.FunctionSpec{Name: "emit_record", Parameters: json.RawMessage(`{"type":"object"}`)})

	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
}

func TestGenerateStructured_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	gen := testGenerator(server.URL)
	_, err := gen.GenerateStructured(context.Background(), nil,
		domain.FunctionSpec{Name: "emit_record", Parameters: json.RawMessage(`{"type":"object"}`)})

	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
}
