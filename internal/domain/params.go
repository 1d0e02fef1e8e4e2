package domain

import (
	"encoding/json"
	"strings"
)

type Tone string

const (
	ToneProfessional  Tone = "professional"
	ToneCasual        Tone = "casual"
	ToneFriendly      Tone = "friendly"
	ToneAuthoritative Tone = "authoritative"
)

type ContentType string

const (
	ContentTypeBlogPost     ContentType = "blog_post"
	ContentTypeHowToGuide   ContentType = "how-to_guide"
	ContentTypeListicle     ContentType = "listicle"
	ContentTypeOpinionPiece ContentType = "opinion_piece"
	ContentTypeTutorial     ContentType = "tutorial"
	ContentTypeCaseStudy    ContentType = "case_study"
)

type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

const (
	AudienceBeginners     = "beginners"
	AudienceProfessionals = "professionals"
	AudienceMixed         = "mixed"
)

const (
	SectionIntroduction = "introduction"
	SectionBulletPoints = "bullet_points"
	SectionConclusion   = "conclusion"
	SectionCallToAction = "call_to_action"
	SectionFAQ          = "faq_section"
)

const MaxTopicLength = 200

// JobParameters is the immutable input of a generation job. The validate tags
// are enforced at intake.
type JobParameters struct {
	Topic       string      `json:"topic" validate:"required,max=200"`
	Tone        Tone        `json:"tone" validate:"oneof=professional casual friendly authoritative"`
	ContentType ContentType `json:"content_type" validate:"oneof=blog_post how-to_guide listicle opinion_piece tutorial case_study"`
	Length      Length      `json:"length" validate:"oneof=short medium long"`
	Audience    TagList     `json:"audience" validate:"min=1,dive,oneof=beginners professionals mixed"`
	Sections    TagList     `json:"sections" validate:"dive,oneof=introduction bullet_points conclusion call_to_action faq_section"`
}

// WithDefaults fills absent optional fields the same way intake does.
func (p JobParameters) WithDefaults() JobParameters {
	p.Topic = strings.TrimSpace(p.Topic)
	if p.Tone == "" {
		p.Tone = ToneProfessional
	}
	if p.ContentType == "" {
		p.ContentType = ContentTypeBlogPost
	}
	if p.Length == "" {
		p.Length = LengthMedium
	}
	if len(p.Audience) == 0 {
		p.Audience = TagList{AudienceBeginners}
	}
	// An empty list or an empty string both mean "not chosen".
	if len(p.Sections) == 0 {
		p.Sections = TagList{SectionIntroduction, SectionConclusion}
	}
	return p
}

// HasSection reports whether the section flag was requested.
func (p JobParameters) HasSection(section string) bool {
	for _, value := range p.Sections {
		if value == section {
			return true
		}
	}
	return false
}

// TagList accepts either a JSON array of strings or a comma-separated string.
type TagList []string

func (t *TagList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*t = nil
		return nil
	}

	var values []string
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &values); err != nil {
			return err
		}
	} else {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		values = strings.Split(raw, ",")
	}

	*t = ParseTagList(values)
	return nil
}

// ParseTagList normalizes, deduplicates and drops empty tags.
func ParseTagList(values []string) TagList {
	result := make(TagList, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		normalized := strings.ToLower(strings.TrimSpace(value))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}
	return result
}

// CSV is the storage form used by the relational backend.
func (t TagList) CSV() string {
	return strings.Join(t, ",")
}
