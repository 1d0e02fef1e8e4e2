package ai

import "strings"

type TaskKind string

const (
	TaskArticle  TaskKind = "article"
	TaskRewrite  TaskKind = "rewrite"
	TaskKeywords TaskKind = "keywords"
)

type ModelProfile struct {
	PrimaryModel    string
	FallbackModel   string
	Temperature     float64
	MaxOutputTokens int
}

type ModelRouterConfig struct {
	ArticlePrimary  string
	ArticleFallback string

	RewritePrimary  string
	RewriteFallback string

	KeywordsPrimary  string
	KeywordsFallback string
}

type ModelRouter struct {
	config ModelRouterConfig
}

const (
	defaultPrimaryModel  = "claude-3-5-sonnet-latest"
	defaultFallbackModel = "claude-3-5-haiku-latest"
)

func NewModelRouter(config ModelRouterConfig) *ModelRouter {
	if strings.TrimSpace(config.ArticlePrimary) == "" {
		config.ArticlePrimary = defaultPrimaryModel
	}
	if strings.TrimSpace(config.ArticleFallback) == "" {
		config.ArticleFallback = defaultFallbackModel
	}
	if strings.TrimSpace(config.RewritePrimary) == "" {
		config.RewritePrimary = defaultPrimaryModel
	}
	if strings.TrimSpace(config.RewriteFallback) == "" {
		config.RewriteFallback = defaultFallbackModel
	}
	if strings.TrimSpace(config.KeywordsPrimary) == "" {
		config.KeywordsPrimary = defaultFallbackModel
	}
	if strings.TrimSpace(config.KeywordsFallback) == "" {
		config.KeywordsFallback = defaultFallbackModel
	}

	return &ModelRouter{config: config}
}

func (r *ModelRouter) Select(task TaskKind) ModelProfile {
	switch task {
	case TaskRewrite:
		return ModelProfile{
			PrimaryModel:    r.config.RewritePrimary,
			FallbackModel:   r.config.RewriteFallback,
			Temperature:     0.7,
			MaxOutputTokens: 2048,
		}
	case TaskKeywords:
		return ModelProfile{
			PrimaryModel:    r.config.KeywordsPrimary,
			FallbackModel:   r.config.KeywordsFallback,
			Temperature:     0.3,
			MaxOutputTokens: 512,
		}
	default:
		return ModelProfile{
			PrimaryModel:    r.config.ArticlePrimary,
			FallbackModel:   r.config.ArticleFallback,
			Temperature:     0.7,
			MaxOutputTokens: 4096,
		}
	}
}
