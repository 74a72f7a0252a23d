package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/inkwavehq/inkwave/internal/config"
	creditsdomain "github.com/inkwavehq/inkwave/internal/credits/domain"
	generationdomain "github.com/inkwavehq/inkwave/internal/generation/domain"
	"github.com/inkwavehq/inkwave/internal/generation/openai"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Log        *zap.Logger
	Client     *openai.Client
	CreditsSvc creditsdomain.Service
	Costs      *config.CostConfigHolder
}

type Service struct {
	log        *zap.Logger
	client     *openai.Client
	creditsSvc creditsdomain.Service
	costs      *config.CostConfigHolder
}

func NewService(p ServiceParam) generationdomain.Service {
	return &Service{
		log:        p.Log.Named("generation.service"),
		client:     p.Client,
		creditsSvc: p.CreditsSvc,
		costs:      p.Costs,
	}
}

func (s *Service) GenerateText(ctx context.Context, userID string, req generationdomain.TextRequest) (*generationdomain.Result, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, generationdomain.ErrEmptyPrompt
	}

	system := "You are a professional content writer. Produce polished, ready-to-publish copy."
	if tone := strings.TrimSpace(req.Tone); tone != "" {
		system += fmt.Sprintf(" Write in a %s tone.", tone)
	}

	content, err := s.client.Complete(ctx, system, prompt)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, userID, creditsdomain.ActionTextGeneration, "text generation", &generationdomain.Result{Content: content})
}

func (s *Service) GenerateImage(ctx context.Context, userID string, req generationdomain.ImageRequest) (*generationdomain.Result, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, generationdomain.ErrEmptyPrompt
	}

	url, err := s.client.GenerateImage(ctx, prompt, req.Size)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, userID, creditsdomain.ActionImageGeneration, "image generation", &generationdomain.Result{ImageURL: url})
}

func (s *Service) Translate(ctx context.Context, userID string, req generationdomain.TranslateRequest) (*generationdomain.Result, error) {
	text := strings.TrimSpace(req.Text)
	target := strings.TrimSpace(req.TargetLang)
	if text == "" || target == "" {
		return nil, generationdomain.ErrEmptyPrompt
	}

	system := fmt.Sprintf("Translate the user's text into %s. Return only the translation.", target)
	content, err := s.client.Complete(ctx, system, text)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, userID, creditsdomain.ActionTranslation,
		fmt.Sprintf("translation to %s", target), &generationdomain.Result{Content: content})
}

func (s *Service) CheckGrammar(ctx context.Context, userID string, req generationdomain.GrammarRequest) (*generationdomain.Result, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, generationdomain.ErrEmptyPrompt
	}

	system := "Correct the grammar and spelling of the user's text. Return only the corrected text."
	content, err := s.client.Complete(ctx, system, text)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, userID, creditsdomain.ActionGrammarCheck, "grammar check", &generationdomain.Result{Content: content})
}

func (s *Service) Improve(ctx context.Context, userID string, req generationdomain.ImproveRequest) (*generationdomain.Result, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, generationdomain.ErrEmptyPrompt
	}

	system := "Rewrite the user's text to improve clarity, flow and impact while preserving its meaning."
	if style := strings.TrimSpace(req.Style); style != "" {
		system += fmt.Sprintf(" Match a %s style.", style)
	}

	content, err := s.client.Complete(ctx, system, text)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, userID, creditsdomain.ActionContentImprovement, "content improvement", &generationdomain.Result{Content: content})
}

// settle debits the action cost after a successful generation and attaches
// the refreshed balance to the result.
func (s *Service) settle(ctx context.Context, userID string, action creditsdomain.ActionType, description string, result *generationdomain.Result) (*generationdomain.Result, error) {
	balance, err := s.creditsSvc.Consume(ctx, userID, action, description)
	if err != nil {
		return nil, err
	}

	result.CreditsUsed = s.costs.Get().CostFor(string(action))
	result.CreditsRemaining = balance.Remaining()
	return result, nil
}
