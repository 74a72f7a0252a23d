// Package domain defines the content generation operations and their
// request/result shapes.
package domain

import (
	"context"
	"errors"
)

type TextRequest struct {
	Prompt string `json:"prompt" binding:"required"`
	Tone   string `json:"tone"`
}

type ImageRequest struct {
	Prompt string `json:"prompt" binding:"required"`
	Size   string `json:"size"`
}

type TranslateRequest struct {
	Text       string `json:"text" binding:"required"`
	TargetLang string `json:"target_lang" binding:"required"`
}

type GrammarRequest struct {
	Text string `json:"text" binding:"required"`
}

type ImproveRequest struct {
	Text  string `json:"text" binding:"required"`
	Style string `json:"style"`
}

// Result carries the generated content together with the post-debit balance.
type Result struct {
	Content          string `json:"content,omitempty"`
	ImageURL         string `json:"image_url,omitempty"`
	CreditsUsed      int64  `json:"credits_used"`
	CreditsRemaining int64  `json:"credits_remaining"`
}

type Service interface {
	GenerateText(ctx context.Context, userID string, req TextRequest) (*Result, error)
	GenerateImage(ctx context.Context, userID string, req ImageRequest) (*Result, error)
	Translate(ctx context.Context, userID string, req TranslateRequest) (*Result, error)
	CheckGrammar(ctx context.Context, userID string, req GrammarRequest) (*Result, error)
	Improve(ctx context.Context, userID string, req ImproveRequest) (*Result, error)
}

var ErrEmptyPrompt = errors.New("empty_prompt")
