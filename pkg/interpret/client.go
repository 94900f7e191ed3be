package interpret

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/amikxn/TrialMatchAI/internal/domain"
)

// Client calls the external text-interpretation service over an
// OpenAI-compatible chat-completions endpoint. The service is fallible and
// unavailable-capable: every call carries the configured timeout via the
// HTTP client and the caller's context, and the response is validated
// before any field is trusted.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new interpretation service client
func NewClient(config domain.InterpreterConfig) *Client {
	rps := config.RateLimit
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		model:   config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// chatRequest is the chat-completions request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the subset of the chat-completions response we read.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Interpret sends raw protocol text plus the fixed extraction instruction
// and validates the response into the rule model.
func (c *Client) Interpret(ctx context.Context, rawText string) (*domain.InterpretedCriteria, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, domain.NewValidationError("raw_text", "protocol text cannot be empty", rawText)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	reqBody, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: extractionInstruction},
			{Role: "user", Content: rawText},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding interpretation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("creating interpretation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing interpretation request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading interpretation response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("interpretation service returned status %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return nil, fmt.Errorf("parsing interpretation envelope: %w", err)
	}
	if chat.Error != nil {
		return nil, fmt.Errorf("interpretation service error: %s", chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return nil, ErrUnparsable
	}

	return ParsePayload(chat.Choices[0].Message.Content)
}
