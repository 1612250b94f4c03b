// Package openai captions uploaded images through an OpenAI-compatible
// chat completions endpoint.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/movement-studio/internal/core/domain"
	"github.com/kirillkom/movement-studio/internal/infrastructure/caption"
	"github.com/kirillkom/movement-studio/internal/infrastructure/resilience"
)

const defaultMaxTokens = 60

type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      cfg.Model,
		maxTokens:  maxTokens,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Caption asks the model for a short title of the image in the requested
// language. Every failure is reported as domain.ErrCaptionService.
func (c *Client) Caption(ctx context.Context, image []byte, mimeType string, lang domain.Language) (string, error) {
	if c.apiKey == "" {
		return "", domain.WrapError(domain.ErrCaptionService, "caption image", errors.New("api key is not configured"))
	}
	if len(image) == 0 {
		return "", domain.WrapError(domain.ErrCaptionService, "caption image", errors.New("empty image"))
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	request := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: []contentPart{{Type: "text", Text: caption.SystemInstruction(lang)}}},
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: caption.UserInstruction(lang)},
					{Type: "image_url", ImageURL: &imageURL{URL: dataURL(mimeType, image)}},
				},
			},
		},
		MaxTokens: c.maxTokens,
	}

	var response chatResponse
	req := caption.Request{
		Provider:  "openai",
		Operation: "chat completion",
		URL:       c.baseURL + "/chat/completions",
		Header:    http.Header{"Authorization": []string{"Bearer " + c.apiKey}},
		Payload:   request,
	}
	err := caption.Call(ctx, c.executor, "openai.caption", func(callCtx context.Context) error {
		return caption.PostJSON(callCtx, c.httpClient, req, &response)
	})
	if err != nil {
		return "", err
	}

	if len(response.Choices) == 0 {
		return "", domain.WrapError(domain.ErrCaptionService, "caption image", errors.New("no choices in response"))
	}
	text := caption.Clean(response.Choices[0].Message.Content)
	if !caption.Usable(text) {
		return "", domain.WrapError(domain.ErrCaptionService, "caption image", fmt.Errorf("unusable caption %q", text))
	}
	return text, nil
}

func dataURL(mimeType string, image []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
}
