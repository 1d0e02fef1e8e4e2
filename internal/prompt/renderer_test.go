package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iago/blog-generation-back/internal/domain"
)

func TestArticlePromptReflectsParameters(t *testing.T) {
	params := domain.JobParameters{
		Topic:       "Remote Work Tips",
		Tone:        domain.ToneCasual,
		ContentType: domain.ContentTypeHowToGuide,
		Length:      domain.LengthShort,
		Audience:    domain.TagList{"professionals"},
		Sections:    domain.TagList{"bullet_points", "faq_section"},
	}

	article, err := NewRenderer("").Article(FromParams(params))
	if err != nil {
		t.Fatalf("render article: %v", err)
	}

	for _, want := range []string{
		`Write a how-to guide about "Remote Work Tips"`,
		"Tone: casual",
		"Target audience: professionals",
		"Length: 300-500 words",
		"- Use bullet points where appropriate",
		"- Add a FAQ section at the end",
	} {
		if !strings.Contains(article.System, want) {
			t.Fatalf("expected system prompt to contain %q, got:\n%s", want, article.System)
		}
	}
	for _, unwanted := range []string{"engaging introduction", "strong conclusion", "call-to-action"} {
		if strings.Contains(article.System, unwanted) {
			t.Fatalf("system prompt should not contain %q", unwanted)
		}
	}
	if article.User != "Write a comprehensive blog post about: Remote Work Tips" {
		t.Fatalf("unexpected user prompt %q", article.User)
	}
}

func TestDefaultsProduceIntroductionAndConclusion(t *testing.T) {
	options := FromParams(domain.JobParameters{Topic: "Go"})
	if !options.IncludeIntroduction || !options.IncludeConclusion || options.UseBulletPoints {
		t.Fatalf("unexpected default sections %+v", options)
	}
	if options.WordBudget != "800-1200 words" {
		t.Fatalf("unexpected default budget %q", options.WordBudget)
	}
	if options.ContentTypeLabel != "blog post" {
		t.Fatalf("unexpected content type label %q", options.ContentTypeLabel)
	}
}

func TestRendererPrefersOverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "article_user.tmpl"), []byte("Custom: {{.Topic}}"), 0o600); err != nil {
		t.Fatalf("write override: %v", err)
	}

	article, err := NewRenderer(dir).Article(FromParams(domain.JobParameters{Topic: "Go"}))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if article.User != "Custom: Go" {
		t.Fatalf("expected override template, got %q", article.User)
	}
	if !strings.Contains(article.System, "expert content writer") {
		t.Fatalf("missing override should fall back to embedded template")
	}
}

func TestRewriteInstructionVocabulary(t *testing.T) {
	instruction, err := RewriteInstruction(" Shorten ")
	if err != nil {
		t.Fatalf("expected known mode, got %v", err)
	}
	if !strings.Contains(instruction, "concise") {
		t.Fatalf("unexpected instruction %q", instruction)
	}

	_, err = RewriteInstruction("translate")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestKeywordsPrompt(t *testing.T) {
	rendered, err := NewRenderer("").Keywords("some content", 7)
	if err != nil {
		t.Fatalf("render keywords: %v", err)
	}
	if !strings.Contains(rendered, "top 7 most relevant") || !strings.HasSuffix(rendered, "some content") {
		t.Fatalf("unexpected keywords prompt %q", rendered)
	}
}
