// Package ollama captions uploaded images with a local vision model served by
// Ollama, for installations that run without a hosted API key.
package ollama

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

const defaultNumPredict = 60

type Client struct {
	baseURL    string
	model      string
	numPredict int
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		numPredict: defaultNumPredict,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (c *Client) Caption(ctx context.Context, image []byte, _ string, lang domain.Language) (string, error) {
	if c.baseURL == "" || c.model == "" {
		return "", domain.WrapError(domain.ErrCaptionService, "caption image", errors.New("ollama is not configured"))
	}
	if len(image) == 0 {
		return "", domain.WrapError(domain.ErrCaptionService, "caption image", errors.New("empty image"))
	}

	request := generateRequest{
		Model:   c.model,
		System:  caption.SystemInstruction(lang),
		Prompt:  caption.UserInstruction(lang),
		Images:  []string{base64.StdEncoding.EncodeToString(image)},
		Stream:  false,
		Options: map[string]any{"num_predict": c.numPredict},
	}

	var response generateResponse
	req := caption.Request{
		Provider:  "ollama",
		Operation: "generate",
		URL:       c.baseURL + "/api/generate",
		Payload:   request,
	}
	err := caption.Call(ctx, c.executor, "ollama.caption", func(callCtx context.Context) error {
		return caption.PostJSON(callCtx, c.httpClient, req, &response)
	})
	if err != nil {
		return "", err
	}

	text := caption.Clean(response.Response)
	if !caption.Usable(text) {
		return "", domain.WrapError(domain.ErrCaptionService, "caption image", fmt.Errorf("unusable caption %q", text))
	}
	return text, nil
}
