package prompt

import (
	"strings"

	"github.com/iago/blog-generation-back/internal/domain"
)

// Options is the resolved prompt configuration for one article.
type Options struct {
	Topic               string
	Tone                string
	ContentTypeLabel    string
	AudienceLabel       string
	WordBudget          string
	IncludeIntroduction bool
	UseBulletPoints     bool
	IncludeConclusion   bool
	IncludeCallToAction bool
	IncludeFAQ          bool
}

var wordBudgets = map[domain.Length]string{
	domain.LengthShort:  "300-500 words",
	domain.LengthMedium: "800-1200 words",
	domain.LengthLong:   "2000+ words",
}

func WordBudget(length domain.Length) string {
	if budget, ok := wordBudgets[length]; ok {
		return budget
	}
	return wordBudgets[domain.LengthMedium]
}

// FromParams expects parameters that already passed intake validation.
func FromParams(params domain.JobParameters) Options {
	params = params.WithDefaults()
	return Options{
		Topic:               params.Topic,
		Tone:                string(params.Tone),
		ContentTypeLabel:    strings.ReplaceAll(string(params.ContentType), "_", " "),
		AudienceLabel:       strings.Join(params.Audience, ", "),
		WordBudget:          WordBudget(params.Length),
		IncludeIntroduction: params.HasSection(domain.SectionIntroduction),
		UseBulletPoints:     params.HasSection(domain.SectionBulletPoints),
		IncludeConclusion:   params.HasSection(domain.SectionConclusion),
		IncludeCallToAction: params.HasSection(domain.SectionCallToAction),
		IncludeFAQ:          params.HasSection(domain.SectionFAQ),
	}
}

type RewriteMode string

const (
	RewriteModeRewrite  RewriteMode = "rewrite"
	RewriteModeExpand   RewriteMode = "expand"
	RewriteModeShorten  RewriteMode = "shorten"
	RewriteModeSimplify RewriteMode = "simplify"
)

var rewriteInstructions = map[RewriteMode]string{
	RewriteModeRewrite:  "Rewrite this text to be more engaging while keeping the same meaning",
	RewriteModeExpand:   "Expand on this text with more detail and examples",
	RewriteModeShorten:  "Make this text more concise without losing key information",
	RewriteModeSimplify: "Simplify this text to make it easier to understand",
}

// RewriteInstruction maps a rewrite mode to the instruction sent to the model.
func RewriteInstruction(mode string) (string, error) {
	instruction, ok := rewriteInstructions[RewriteMode(strings.ToLower(strings.TrimSpace(mode)))]
	if !ok {
		return "", domain.NewValidationError("instruction", "must be one of rewrite, expand, shorten, simplify")
	}
	return instruction, nil
}
