package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type completionRequest struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	JSONOnly    bool
}

// completionProvider is implemented once per backend and selected at
// construction time; the engine only ever sees this interface.
type completionProvider interface {
	Name() string
	Model() string
	// CheckModel verifies the target model is reachable before any batch
	// work starts. Failures here abort the whole run.
	CheckModel(ctx context.Context) error
	Complete(ctx context.Context, req completionRequest) (string, error)
}

func newProvider(cfg Config) completionProvider {
	switch cfg.LLMProvider {
	case "local":
		return newLocalProvider(cfg.LocalBaseURL, cfg.LLMModel)
	default:
		return newAnthropicProvider(cfg.AnthropicAPIKey, cfg.LLMModel)
	}
}

// --- Error classification ---

type errorKind int

const (
	errUnknown errorKind = iota
	errRateLimited
	errContextExceeded
	errInvalidRequest
	errServiceUnavailable
	errModelNotFound
)

func (k errorKind) String() string {
	switch k {
	case errRateLimited:
		return "rate_limited"
	case errContextExceeded:
		return "context_exceeded"
	case errInvalidRequest:
		return "invalid_request"
	case errServiceUnavailable:
		return "service_unavailable"
	case errModelNotFound:
		return "model_not_found"
	default:
		return "unknown"
	}
}

type completionError struct {
	kind   errorKind
	status int
	err    error
}

func (e *completionError) Error() string {
	if e.status != 0 {
		return fmt.Sprintf("completion failed (%s, status %d): %v", e.kind, e.status, e.err)
	}
	return fmt.Sprintf("completion failed (%s): %v", e.kind, e.err)
}

func (e *completionError) Unwrap() error {
	return e.err
}

func (e *completionError) retryable() bool {
	return e.kind == errRateLimited || e.kind == errServiceUnavailable
}

// classifyStatus maps an HTTP-level completion failure to an error kind.
// A 400 whose message mentions the context window is the provider
// telling us the prompt is too large, which the engine handles by
// shrinking the batch.
func classifyStatus(status int, message string, cause error) *completionError {
	if cause == nil {
		cause = errors.New(message)
	}
	switch {
	case status == http.StatusTooManyRequests:
		return &completionError{kind: errRateLimited, status: status, err: cause}
	case status == http.StatusBadRequest && looksLikeContextLimit(message):
		return &completionError{kind: errContextExceeded, status: status, err: cause}
	case status == http.StatusBadRequest:
		return &completionError{kind: errInvalidRequest, status: status, err: cause}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &completionError{kind: errInvalidRequest, status: status, err: cause}
	case status == http.StatusNotFound:
		return &completionError{kind: errModelNotFound, status: status, err: cause}
	case status >= 500:
		return &completionError{kind: errServiceUnavailable, status: status, err: cause}
	default:
		return &completionError{kind: errUnknown, status: status, err: cause}
	}
}

// classifyTransport maps connection-level failures. Refused connections,
// DNS failures and timeouts are transient; a canceled context is left
// unclassified so the caller can tell an abort from a flaky network.
func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &completionError{kind: errServiceUnavailable, err: err}
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return &completionError{kind: errServiceUnavailable, err: err}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &completionError{kind: errServiceUnavailable, err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &completionError{kind: errServiceUnavailable, err: err}
	}
	return &completionError{kind: errUnknown, err: err}
}

var contextLimitPhrases = []string{
	"context length",
	"context window",
	"maximum context",
	"context_length_exceeded",
	"prompt is too long",
	"too many tokens",
	"token limit",
	"exceeds the maximum number of tokens",
}

func looksLikeContextLimit(message string) bool {
	message = strings.ToLower(message)
	for _, phrase := range contextLimitPhrases {
		if strings.Contains(message, phrase) {
			return true
		}
	}
	return false
}

func isContextExceeded(err error) bool {
	var ce *completionError
	if errors.As(err, &ce) && ce.kind == errContextExceeded {
		return true
	}
	return looksLikeContextLimit(err.Error())
}

func isRetryable(err error) bool {
	var ce *completionError
	return errors.As(err, &ce) && ce.retryable()
}

// --- Anthropic ---

type anthropicProvider struct {
	client anthropic.Client
	model  string
}

func newAnthropicProvider(apiKey, model string) *anthropicProvider {
	return &anthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (p *anthropicProvider) Name() string  { return "anthropic" }
func (p *anthropicProvider) Model() string { return p.model }

func (p *anthropicProvider) CheckModel(ctx context.Context) error {
	if _, err := p.client.Models.Get(ctx, p.model, anthropic.ModelGetParams{}); err != nil {
		return classifyAnthropicError(err)
	}
	return nil
}

func (p *anthropicProvider) Complete(ctx context.Context, req completionRequest) (string, error) {
	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(req.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	})
	if err != nil {
		log.Printf("llm anthropic error: %v", err)
		return "", classifyAnthropicError(err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm anthropic response size=%d tokens_in=%d tokens_out=%d",
				len(block.Text), message.Usage.InputTokens, message.Usage.OutputTokens)
			return block.Text, nil
		}
	}
	return "", &completionError{kind: errUnknown, err: errors.New("no text content in Anthropic response")}
}

func classifyAnthropicError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return classifyStatus(apierr.StatusCode, apierr.Error(), err)
	}
	return classifyTransport(err)
}

// --- Local (OpenAI-compatible, e.g. JAN) ---

type localProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

func newLocalProvider(baseURL, model string) *localProvider {
	return &localProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  completionHTTPClient,
	}
}

func (p *localProvider) Name() string  { return "local" }
func (p *localProvider) Model() string { return p.model }

type localModelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (p *localProvider) CheckModel(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+"/v1/models", nil)
	if err != nil {
		return fmt.Errorf("creating models request: %w", err)
	}
	resp, err := externalHTTPClient.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading models response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return classifyStatus(resp.StatusCode, string(body), nil)
	}

	var models localModelsResponse
	if err := json.Unmarshal(body, &models); err != nil {
		return fmt.Errorf("parsing models response: %w", err)
	}
	for _, m := range models.Data {
		if m.ID == p.model {
			return nil
		}
	}
	return &completionError{
		kind: errModelNotFound,
		err:  fmt.Errorf("model %q not loaded on %s", p.model, p.baseURL),
	}
}

type localChatRequest struct {
	Model          string              `json:"model"`
	Messages       []localChatMessage  `json:"messages"`
	Temperature    float64             `json:"temperature"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	ResponseFormat *localMessageFormat `json:"response_format,omitempty"`
}

type localChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type localMessageFormat struct {
	Type string `json:"type"`
}

type localChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *localProvider) Complete(ctx context.Context, req completionRequest) (string, error) {
	chatReq := localChatRequest{
		Model: p.model,
		Messages: []localChatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONOnly {
		chatReq.ResponseFormat = &localMessageFormat{Type: "json_object"}
	}

	bodyBytes, err := json.Marshal(chatReq)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/v1/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		log.Printf("llm local error: %v", err)
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		message := string(respBody)
		var chatResp localChatResponse
		if json.Unmarshal(respBody, &chatResp) == nil && chatResp.Error != nil {
			message = chatResp.Error.Message
		}
		log.Printf("llm local api error status=%d: %s", resp.StatusCode, message)
		return "", classifyStatus(resp.StatusCode, message, nil)
	}

	var chatResp localChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("parsing local response: %w", err)
	}
	if chatResp.Error != nil {
		return "", &completionError{kind: errUnknown, err: errors.New(chatResp.Error.Message)}
	}
	if len(chatResp.Choices) == 0 {
		return "", &completionError{kind: errUnknown, err: errors.New("no choices in local response")}
	}

	if chatResp.Usage != nil {
		log.Printf("llm local response size=%d tokens_in=%d tokens_out=%d",
			len(chatResp.Choices[0].Message.Content), chatResp.Usage.PromptTokens, chatResp.Usage.CompletionTokens)
	}
	return chatResp.Choices[0].Message.Content, nil
}
