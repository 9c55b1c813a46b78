package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/dossier-backend/internal/platform/ctxutil"
	"github.com/yungbote/dossier-backend/internal/platform/httpx"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
)

const (
	DefaultBaseURL    = "https://api.openai.com"
	DefaultModel      = "gpt-4"
	DefaultEmbedModel = "text-embedding-ada-002"

	RoleSystem = "system"
	RoleUser   = "user"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the provider boundary used by the model gateway.
type Client interface {
	// Embed retries transient failures with randomized exponential backoff.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Chat makes exactly one attempt.
	Chat(ctx context.Context, messages []Message) (string, error)
	EmbedModel() string
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	EmbedModel  string
	Timeout     time.Duration
	Temperature *float64

	EmbedMaxAttempts int
	EmbedBackoff     httpx.Backoff
}

type client struct {
	log        *logger.Logger
	cfg        Config
	baseURL    string
	httpClient *http.Client
	sleep      func(context.Context, time.Duration) error
}

type HTTPError struct {
	StatusCode int
	Body       string
	// RetryAfter is the server-requested wait on 429 and 503 responses.
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// TransientProviderError reports that every embedding attempt failed.
type TransientProviderError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *TransientProviderError) Error() string {
	return fmt.Sprintf("openai %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *TransientProviderError) Unwrap() error { return e.Err }

func New(log *logger.Logger, cfg Config) (Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return NewWithHTTPClient(log, cfg, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(log *logger.Logger, cfg Config, httpClient *http.Client) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if strings.TrimSpace(cfg.EmbedModel) == "" {
		cfg.EmbedModel = DefaultEmbedModel
	}
	if cfg.EmbedMaxAttempts <= 0 {
		cfg.EmbedMaxAttempts = 6
	}
	if cfg.EmbedBackoff.Min <= 0 {
		cfg.EmbedBackoff.Min = time.Second
	}
	if cfg.EmbedBackoff.Max <= 0 {
		cfg.EmbedBackoff.Max = 60 * time.Second
	}
	return &client{
		log:        log.With("service", "OpenAIClient"),
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: httpClient,
		sleep:      httpx.Sleep,
	}, nil
}

func (c *client) EmbedModel() string { return c.cfg.EmbedModel }

func (c *client) doOnce(ctx context.Context, method, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		herr := &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
			herr.RetryAfter = httpx.RetryAfterDuration(resp, 0, c.cfg.EmbedBackoff.Max)
		}
		return herr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("openai decode error: %w", err)
	}
	return nil
}

// -------------------- Embeddings --------------------

type embeddingsRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

var errEmptyEmbedding = errors.New("openai returned no embedding")

func (c *client) Embed(ctx context.Context, text string) ([]float32, error) {
	input := strings.TrimSpace(text)
	if input == "" {
		input = " "
	}
	req := embeddingsRequest{Model: c.cfg.EmbedModel, Input: input}

	var lastErr error
	attempts := 0
	for attempts < c.cfg.EmbedMaxAttempts {
		attempts++
		var resp embeddingsResponse
		err := c.doOnce(ctx, http.MethodPost, "/v1/embeddings", req, &resp)
		if err == nil {
			if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
				return nil, errEmptyEmbedding
			}
			vec := make([]float32, len(resp.Data[0].Embedding))
			for i, f := range resp.Data[0].Embedding {
				vec[i] = float32(f)
			}
			return vec, nil
		}
		lastErr = err
		if !httpx.IsRetryableError(err) {
			return nil, err
		}
		if attempts == c.cfg.EmbedMaxAttempts {
			break
		}

		sleepFor := c.cfg.EmbedBackoff.Delay(attempts - 1)
		var herr *HTTPError
		if errors.As(err, &herr) && herr.RetryAfter > sleepFor {
			sleepFor = herr.RetryAfter
		}
		c.log.Warn("OpenAI embedding retrying",
			"attempt", attempts,
			"max_attempts", c.cfg.EmbedMaxAttempts,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if sErr := c.sleep(ctx, sleepFor); sErr != nil {
			return nil, sErr
		}
	}
	return nil, &TransientProviderError{Op: "embed", Attempts: attempts, Err: lastErr}
}

// -------------------- Chat completions --------------------

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *client) Chat(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("openai chat: no messages")
	}
	req := chatRequest{Model: c.cfg.Model, Messages: messages, Temperature: c.cfg.Temperature}
	var resp chatResponse
	if err := c.doOnce(ctx, http.MethodPost, "/v1/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
