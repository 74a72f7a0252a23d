// Package openai is a minimal client for the completions and image endpoints.
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

	"github.com/inkwavehq/inkwave/internal/config"
)

var (
	ErrNotConfigured = errors.New("openai_not_configured")
	ErrEmptyResponse = errors.New("openai_empty_response")
)

type Client struct {
	apiKey     string
	baseURL    string
	textModel  string
	imageModel string
	client     *http.Client
}

func NewClient(cfg config.OpenAIConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		client:     &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends a single-turn chat completion and returns the assistant text.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := []chatMessage{}
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	var out chatResponse
	err := c.post(ctx, "/chat/completions", chatRequest{Model: c.textModel, Messages: messages}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// GenerateImage returns the hosted URL of a single generated image.
func (c *Client) GenerateImage(ctx context.Context, prompt, size string) (string, error) {
	if size == "" {
		size = "1024x1024"
	}

	var out imageResponse
	err := c.post(ctx, "/images/generations", imageRequest{
		Model:  c.imageModel,
		Prompt: prompt,
		N:      1,
		Size:   size,
	}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Data) == 0 {
		return "", ErrEmptyResponse
	}
	return out.Data[0].URL, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openai request: status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	return json.Unmarshal(raw, out)
}

func truncate(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + "..."
}
