package interpret

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amikxn/TrialMatchAI/internal/domain"
)

func testClientConfig(baseURL string) domain.InterpreterConfig {
	return domain.InterpreterConfig{
		BaseURL:   baseURL,
		APIKey:    "test-key",
		Model:     "gpt-4o-mini",
		Timeout:   5 * time.Second,
		RateLimit: 100,
	}
}

func chatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	reply := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(reply))
}

func TestClientInterpret_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Contains(t, req.Messages[1].Content, "Stage IV NSCLC")

		chatReply(t, w, `{"stage": ["IV"], "mutation_required": "KRAS G12C",
			"performance_status_max": 1,
			"raw_inclusion": "Stage IV NSCLC with KRAS G12C.",
			"raw_exclusion": ""}`)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))
	result, err := client.Interpret(context.Background(), "Inclusion Criteria: Stage IV NSCLC with KRAS G12C mutation.")
	require.NoError(t, err)

	assert.Equal(t, []string{"IV"}, result.Criteria.Stage)
	single, ok := result.Criteria.MutationRequired.Single()
	assert.True(t, ok)
	assert.Equal(t, "KRAS G12C", single)
	assert.Equal(t, 1, result.Criteria.PerformanceCeiling())
}

func TestClientInterpret_FencedContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, "```json\n{\"stage\": [\"IIIA\"], \"mutation_required\": null, "+
			"\"performance_status_max\": null, \"raw_inclusion\": \"Stage IIIA.\", \"raw_exclusion\": \"\"}\n```")
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))
	result, err := client.Interpret(context.Background(), "Inclusion Criteria: Stage IIIA disease.")
	require.NoError(t, err)

	assert.Equal(t, []string{"IIIA"}, result.Criteria.Stage)
	assert.True(t, result.Criteria.MutationRequired.Absent())
}

func TestClientInterpret_NonJSONContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, "Sorry, I cannot identify any eligibility criteria in this text.")
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))
	_, err := client.Interpret(context.Background(), "some protocol text")

	assert.ErrorIs(t, err, ErrUnparsable)
}

func TestClientInterpret_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "rate limit exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))
	_, err := client.Interpret(context.Background(), "some protocol text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClientInterpret_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error": {"message": "model overloaded", "type": "server_error"}}`))
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))
	_, err := client.Interpret(context.Background(), "some protocol text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestClientInterpret_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))
	_, err := client.Interpret(context.Background(), "some protocol text")

	assert.ErrorIs(t, err, ErrUnparsable)
}

func TestClientInterpret_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(testClientConfig(server.URL))
	_, err := client.Interpret(context.Background(), "some protocol text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "executing interpretation request")
}

func TestClientInterpret_EmptyText(t *testing.T) {
	client := NewClient(testClientConfig("http://localhost:0"))
	_, err := client.Interpret(context.Background(), "   ")

	require.Error(t, err)
	var validationErr *domain.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}
