// Package artifact derives the initial blog post fields from generated markdown.
package artifact

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	MaxTitleLength = 255
	MaxSlugBase    = 60
	ExcerptLength  = 200
	WordsPerMinute = 200
)

var (
	titlePattern    = regexp.MustCompile(`(?m)^#[ \t]+(.+?)[ \t]*$`)
	slugSeparators  = regexp.MustCompile(`[^a-z0-9]+`)
	excerptMarkupRe = regexp.MustCompile(`[#*]`)
)

// Fields are the derived values a new post starts with.
type Fields struct {
	Title              string
	Slug               string
	WordCount          int
	ReadingTimeMinutes int
	Excerpt            string
}

// Materialize is deterministic for the same content, topic and createdAt.
func Materialize(content, topic string, createdAt time.Time) Fields {
	title := ExtractTitle(content, topic)
	words := WordCount(content)
	return Fields{
		Title:              title,
		Slug:               Slug(title, createdAt),
		WordCount:          words,
		ReadingTimeMinutes: ReadingTime(words),
		Excerpt:            Excerpt(content),
	}
}

// ExtractTitle returns the first level-1 heading, or fallback when none exists.
func ExtractTitle(content, fallback string) string {
	title := strings.TrimSpace(fallback)
	if match := titlePattern.FindStringSubmatch(content); len(match) == 2 {
		if heading := strings.TrimSpace(match[1]); heading != "" {
			title = heading
		}
	}
	return truncateRunes(title, MaxTitleLength)
}

// Slug builds "<base>-<unix millis>", where base is the title folded to ASCII.
func Slug(title string, createdAt time.Time) string {
	return SlugBase(title) + "-" + strconv.FormatInt(createdAt.UnixMilli(), 10)
}

// SlugBase lower-cases, collapses non-alphanumeric runs into single hyphens and
// truncates to MaxSlugBase characters.
func SlugBase(title string) string {
	folded := strings.ToLower(foldDiacritics(title))
	base := strings.Trim(slugSeparators.ReplaceAllString(folded, "-"), "-")
	if len(base) > MaxSlugBase {
		base = strings.TrimRight(base[:MaxSlugBase], "-")
	}
	if base == "" {
		return "post"
	}
	return base
}

func foldDiacritics(value string) string {
	chain := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(chain, value)
	if err != nil {
		return value
	}
	return folded
}

// WordCount counts whitespace-delimited tokens.
func WordCount(content string) int {
	return len(strings.Fields(content))
}

// ReadingTime is ceil(words / WordsPerMinute); zero words give zero minutes.
func ReadingTime(words int) int {
	if words <= 0 {
		return 0
	}
	return (words + WordsPerMinute - 1) / WordsPerMinute
}

// DisplayReadingTime is the value shown to readers: never below one minute.
func DisplayReadingTime(minutes int) int {
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Excerpt takes the first ExcerptLength characters and strips heading and emphasis markers.
func Excerpt(content string) string {
	return excerptMarkupRe.ReplaceAllString(truncateRunes(content, ExcerptLength), "")
}

func truncateRunes(value string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for index := range value {
		if count == limit {
			return value[:index]
		}
		count++
	}
	return value
}
