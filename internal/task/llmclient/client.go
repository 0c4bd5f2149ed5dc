// Package llmclient calls an OpenAI-compatible proxy for chat completions and embeddings.
package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	appErr "autotask/pkg/errors"
	"autotask/pkg/utils/logger"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

const (
	defaultChatModel      = "gpt-4o-mini"
	defaultEmbeddingModel = "text-embedding-3-small"
	defaultTimeout        = 60 * time.Second
	maxBodyExcerpt        = 2048
)

// Config holds proxy settings.
type Config struct {
	BaseURL        string        `yaml:"baseURL"`
	APIKey         string        `yaml:"apiKey"`
	ChatModel      string        `yaml:"chatModel"`
	EmbeddingModel string        `yaml:"embeddingModel"`
	Timeout        time.Duration `yaml:"timeout"`
}

// Completer produces a text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithImage(ctx context.Context, prompt, imageURL string) (string, error)
}

// Embedder maps texts to vectors, one per input and in input order.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float64, error)
}

// RemoteFailure is a non-2xx response or a body that does not have the expected shape.
// Status is 0 when the request never produced a response.
type RemoteFailure struct {
	Status int
	Body   string
	Err    error
}

func (f *RemoteFailure) Error() string {
	switch {
	case f.Status > 0:
		return fmt.Sprintf("remote call failed with status %d: %s", f.Status, f.Body)
	case f.Err != nil:
		return fmt.Sprintf("remote call failed: %v", f.Err)
	default:
		return "remote call returned a malformed body: " + f.Body
	}
}

func (f *RemoteFailure) Unwrap() error {
	return f.Err
}

// Client implements Completer and Embedder. It never retries.
type Client struct {
	cfg        Config
	chat       openai.ChatCompletionService
	embeddings openai.EmbeddingService
}

// New creates a Client. httpClient may be nil.
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("llm base url is required")
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = defaultChatModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = defaultEmbeddingModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	opts := []option.RequestOption{
		option.WithHTTPClient(httpClient),
		option.WithBaseURL(strings.TrimSpace(cfg.BaseURL)),
		option.WithMaxRetries(0),
	}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}
	return &Client{
		cfg:        cfg,
		chat:       openai.NewChatCompletionService(opts...),
		embeddings: openai.NewEmbeddingService(opts...),
	}, nil
}

// Complete sends prompt as a single user message and returns the first choice, trimmed.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, openai.UserMessage(prompt))
}

// CompleteWithImage sends prompt together with an image, usually a data URL.
func (c *Client) CompleteWithImage(ctx context.Context, prompt, imageURL string) (string, error) {
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: imageURL}),
	}
	return c.complete(ctx, openai.UserMessage(parts))
}

func (c *Client) complete(ctx context.Context, message openai.ChatCompletionMessageParamUnion) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.cfg.ChatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{message},
	}
	var rawBody []byte
	start := time.Now()
	_, err := c.chat.New(ctx, params, option.WithResponseBodyInto(&rawBody))
	if err != nil {
		return "", wrapRequestError(ctx, "chat completion", err)
	}
	logger.Debug(ctx, "chat completion finished",
		zap.String("model", c.cfg.ChatModel),
		zap.Duration("duration", time.Since(start)),
	)
	return parseCompletion(rawBody)
}

// Embed returns one vector per input. Vectors are reordered by the index field of the response.
func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float64, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
	}
	var rawBody []byte
	start := time.Now()
	_, err := c.embeddings.New(ctx, params, option.WithResponseBodyInto(&rawBody))
	if err != nil {
		return nil, wrapRequestError(ctx, "embedding", err)
	}
	logger.Debug(ctx, "embedding finished",
		zap.String("model", c.cfg.EmbeddingModel),
		zap.Int("inputs", len(inputs)),
		zap.Duration("duration", time.Since(start)),
	)
	return parseEmbeddings(rawBody, len(inputs))
}

func wrapRequestError(ctx context.Context, op string, err error) error {
	failure := &RemoteFailure{Err: err}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		failure.Status = apiErr.StatusCode
		failure.Body = excerpt(apiErr.RawJSON())
		if failure.Body == "" {
			failure.Body = excerpt(err.Error())
		}
	}
	logger.Warn(ctx, op+" request failed", zap.Int("status", failure.Status), zap.Error(err))
	return appErr.Wrapf(failure, appErr.RemoteCallFailed, "%s: %s", op, failure.Error()).
		WithDetail("status", failure.Status)
}

func malformed(op string, body []byte, reason string) error {
	failure := &RemoteFailure{Body: excerpt(string(body))}
	return appErr.Wrapf(failure, appErr.RemoteCallFailed, "%s response malformed: %s", op, reason).
		WithDetail("body", failure.Body)
}

type completionPayload struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func parseCompletion(body []byte) (string, error) {
	var payload completionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", malformed("chat completion", body, err.Error())
	}
	if len(payload.Choices) == 0 {
		return "", malformed("chat completion", body, "no choices")
	}
	msg := payload.Choices[0].Message
	if msg == nil || msg.Content == nil {
		return "", malformed("chat completion", body, "choice has no message content")
	}
	return strings.TrimSpace(*msg.Content), nil
}

type embeddingPayload struct {
	Data []struct {
		Index     *int      `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func parseEmbeddings(body []byte, want int) ([][]float64, error) {
	var payload embeddingPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, malformed("embedding", body, err.Error())
	}
	if len(payload.Data) != want {
		return nil, malformed("embedding", body, fmt.Sprintf("expected %d vectors, got %d", want, len(payload.Data)))
	}
	vectors := make([][]float64, want)
	for pos, item := range payload.Data {
		idx := pos
		if item.Index != nil {
			idx = *item.Index
		}
		if idx < 0 || idx >= want || vectors[idx] != nil {
			return nil, malformed("embedding", body, fmt.Sprintf("invalid index %d", idx))
		}
		if len(item.Embedding) == 0 {
			return nil, malformed("embedding", body, fmt.Sprintf("empty vector at index %d", idx))
		}
		vectors[idx] = item.Embedding
	}
	return vectors, nil
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxBodyExcerpt {
		return s[:maxBodyExcerpt]
	}
	return s
}
