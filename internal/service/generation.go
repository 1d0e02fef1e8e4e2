package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iago/blog-generation-back/internal/ai"
	"github.com/iago/blog-generation-back/internal/cache"
	"github.com/iago/blog-generation-back/internal/domain"
	"github.com/iago/blog-generation-back/internal/prompt"
)

const (
	keywordContentLimit  = 2000
	defaultKeywordCount  = 5
	maxKeywordCount      = 20
	maxRewriteTextLength = 20000
)

type GenerationDependencies struct {
	Router  *ai.ModelRouter
	Client  ai.TextGenerator
	Prompts *prompt.Renderer
	Cache   *cache.ResponseCache
	Logger  *zerolog.Logger
}

// GenerationService turns parameters into model calls. It never retries the
// same model; a failed primary call is followed by at most one call to the
// profile's fallback model.
type GenerationService struct {
	router  *ai.ModelRouter
	client  ai.TextGenerator
	prompts *prompt.Renderer
	cache   *cache.ResponseCache
	logger  zerolog.Logger
}

func NewGenerationService(deps GenerationDependencies) *GenerationService {
	if deps.Router == nil {
		deps.Router = ai.NewModelRouter(ai.ModelRouterConfig{})
	}
	if deps.Prompts == nil {
		deps.Prompts = prompt.NewRenderer("")
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewResponseCache(cache.Config{})
	}
	logger := zerolog.Nop()
	if deps.Logger != nil {
		logger = deps.Logger.With().Str("component", "generation").Logger()
	}

	return &GenerationService{
		router:  deps.Router,
		client:  deps.Client,
		prompts: deps.Prompts,
		cache:   deps.Cache,
		logger:  logger,
	}
}

// GenerateArticle returns the markdown article for params.
func (s *GenerationService) GenerateArticle(ctx context.Context, params domain.JobParameters) (string, error) {
	rendered, err := s.prompts.Article(prompt.FromParams(params))
	if err != nil {
		return "", fmt.Errorf("render article prompt: %w", err)
	}

	text, modelID, err := s.generateText(ctx, s.router.Select(ai.TaskArticle), rendered.System, rendered.User)
	if err != nil {
		return "", err
	}

	s.logger.Debug().Str("model", modelID).Int("chars", len(text)).Msg("article generated")
	return text, nil
}

type RewriteInput struct {
	Text        string
	Instruction string
	Tone        string
}

func (s *GenerationService) Rewrite(ctx context.Context, input RewriteInput) (string, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return "", domain.NewValidationError("text", "is required")
	}
	if len([]rune(text)) > maxRewriteTextLength {
		return "", domain.NewValidationError("text", fmt.Sprintf("must be at most %d characters", maxRewriteTextLength))
	}
	instruction, err := prompt.RewriteInstruction(input.Instruction)
	if err != nil {
		return "", err
	}
	tone := strings.TrimSpace(input.Tone)
	if tone == "" {
		tone = string(domain.ToneProfessional)
	}

	signature := cache.BuildSignature(string(ai.TaskRewrite), instruction, tone, text)
	var cached string
	if s.cache.GetJSON(signature, &cached) && cached != "" {
		return cached, nil
	}

	rendered, err := s.prompts.Rewrite(text, instruction, tone)
	if err != nil {
		return "", fmt.Errorf("render rewrite prompt: %w", err)
	}

	result, modelID, err := s.generateText(ctx, s.router.Select(ai.TaskRewrite), "", rendered)
	if err != nil {
		return "", err
	}

	s.cache.SetJSON(signature, modelID, result)
	return result, nil
}

// ExtractKeywords never fails: any problem is logged and yields an empty list.
func (s *GenerationService) ExtractKeywords(ctx context.Context, content string, count int) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return []string{}
	}
	if count <= 0 {
		count = defaultKeywordCount
	}
	if count > maxKeywordCount {
		count = maxKeywordCount
	}
	content = truncateRunes(content, keywordContentLimit)

	signature := cache.BuildSignature(string(ai.TaskKeywords), fmt.Sprint(count), content)
	var cached []string
	if s.cache.GetJSON(signature, &cached) {
		return cached
	}

	rendered, err := s.prompts.Keywords(content, count)
	if err != nil {
		s.logger.Warn().Err(err).Msg("render keywords prompt failed")
		return []string{}
	}

	text, modelID, err := s.generateText(ctx, s.router.Select(ai.TaskKeywords), "", rendered)
	if err != nil {
		s.logger.Warn().Err(err).Str("kind", string(ai.KindOf(err))).Msg("keyword extraction failed")
		return []string{}
	}

	keywords := splitKeywords(text, count)
	s.cache.SetJSON(signature, modelID, keywords)
	return keywords
}

func (s *GenerationService) generateText(
	ctx context.Context,
	profile ai.ModelProfile,
	instructions string,
	input string,
) (string, string, error) {
	if s.client == nil || !s.client.Available() {
		return "", "", ai.ErrProviderUnavailable
	}

	request := ai.GenerateRequest{
		Model:           profile.PrimaryModel,
		Instructions:    instructions,
		Input:           input,
		Temperature:     profile.Temperature,
		MaxOutputTokens: profile.MaxOutputTokens,
	}
	primaryResult, err := s.client.Generate(ctx, request)
	if err == nil {
		return primaryResult.Text, firstNonEmpty(primaryResult.ModelID, profile.PrimaryModel), nil
	}

	if !shouldFallback(ctx, err) || strings.TrimSpace(profile.FallbackModel) == "" || profile.FallbackModel == profile.PrimaryModel {
		return "", "", err
	}

	s.logger.Warn().
		Err(err).
		Str("model", profile.PrimaryModel).
		Str("fallback_model", profile.FallbackModel).
		Msg("primary model failed, trying fallback model")

	request.Model = profile.FallbackModel
	fallbackResult, fallbackErr := s.client.Generate(ctx, request)
	if fallbackErr != nil {
		return "", "", fmt.Errorf("primary model failed: %v; fallback failed: %w", err, fallbackErr)
	}
	return fallbackResult.Text, firstNonEmpty(fallbackResult.ModelID, profile.FallbackModel), nil
}

// shouldFallback skips the fallback model when the caller is gone or the
// provider is not configured at all.
func shouldFallback(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, ai.ErrProviderUnavailable)
}

func splitKeywords(text string, limit int) []string {
	parts := strings.Split(text, ",")
	keywords := make([]string, 0, len(parts))
	for _, part := range parts {
		keyword := strings.TrimSpace(part)
		if keyword == "" {
			continue
		}
		keywords = append(keywords, keyword)
		if len(keywords) >= limit {
			break
		}
	}
	return keywords
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
