package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/amikxn/TrialMatchAI/internal/domain"
)

// Section headings recognized in protocol documents. Both bare-keyword
// headings ("Inclusion Criteria") and numbered-section headings
// ("6.1 Inclusion Criteria") are supported; matching is case-insensitive.
var (
	inclusionHeadingRe = regexp.MustCompile(`(?i)(?:\d+(?:\.\d+)*\s+)?inclusion criteria\s*:?`)
	exclusionHeadingRe = regexp.MustCompile(`(?i)(?:\d+(?:\.\d+)*\s+)?exclusion criteria\s*:?`)
)

// ExtractorConfig controls how a captured section is segmented into
// discrete criterion strings.
type ExtractorConfig struct {
	// ItemDelimiters end a criterion. A period delimiter does not split
	// when both neighbors are digits, so version and dose tokens such as
	// "RECIST 1.1" survive segmentation.
	ItemDelimiters []string
	// BulletPrefixes are stripped from the front of each item.
	BulletPrefixes []string
}

// DefaultExtractorConfig returns the delimiter set used for the common
// protocol templates.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		ItemDelimiters: []string{".", ";", "•"},
		BulletPrefixes: []string{"•", "-", "–", "*", "◦"},
	}
}

// ExtractorService is the deterministic criteria-extraction strategy:
// heading location, section capture and delimiter segmentation, with no
// external calls and no hidden state.
type ExtractorService struct {
	logger *logrus.Logger
	config ExtractorConfig
}

// NewExtractorService creates a new deterministic extractor
func NewExtractorService(logger *logrus.Logger, config ExtractorConfig) *ExtractorService {
	if len(config.ItemDelimiters) == 0 {
		config = DefaultExtractorConfig()
	}
	return &ExtractorService{logger: logger, config: config}
}

// Extract segments raw protocol text into inclusion and exclusion criterion
// lists. Missing headings yield empty lists for that side; that is an empty
// result, not an error. If segmentation panics on pathological input the
// failure is reported and an empty document returned.
func (e *ExtractorService) Extract(rawText string) (result domain.ExtractedCriteria) {
	result = domain.ExtractedCriteria{Inclusion: []string{}, Exclusion: []string{}}

	defer func() {
		if r := recover(); r != nil {
			matchErr := domain.NewMatchError(domain.ErrExtraction,
				"criteria extraction failed on unreadable input", fmt.Sprint(r), "")
			e.logger.WithError(matchErr).Warn("Degrading to empty criteria document")
			result = domain.ExtractedCriteria{Inclusion: []string{}, Exclusion: []string{}}
		}
	}()

	text := NormalizeText(rawText)
	if text == "" {
		return result
	}

	if span, ok := captureSection(text, inclusionHeadingRe, exclusionHeadingRe); ok {
		result.Inclusion = e.segment(span)
	}
	if span, ok := captureSection(text, exclusionHeadingRe, inclusionHeadingRe); ok {
		result.Exclusion = e.segment(span)
	}

	e.logger.WithFields(logrus.Fields{
		"inclusion_items": len(result.Inclusion),
		"exclusion_items": len(result.Exclusion),
	}).Debug("Completed deterministic extraction")

	return result
}

// captureSection returns the text between a section's heading and the next
// recognized heading (or end of document).
func captureSection(text string, heading, nextHeading *regexp.Regexp) (string, bool) {
	loc := heading.FindStringIndex(text)
	if loc == nil {
		return "", false
	}

	span := text[loc[1]:]
	if next := nextHeading.FindStringIndex(span); next != nil {
		span = span[:next[0]]
	}
	return span, true
}

// segment splits a captured span into discrete criterion strings, strips
// bullet characters and whitespace, and drops empty items.
func (e *ExtractorService) segment(span string) []string {
	marked := span
	for _, delim := range e.config.ItemDelimiters {
		if delim == "." {
			marked = markPeriods(marked)
			continue
		}
		marked = strings.ReplaceAll(marked, delim, "\x00")
	}

	items := []string{}
	for _, piece := range strings.Split(marked, "\x00") {
		item := e.stripBullets(piece)
		if item == "" || !hasLetter(item) {
			// Numbering stubs ("1", "a)") left over from delimiter splits.
			continue
		}
		items = append(items, item)
	}
	return items
}

// markPeriods replaces sentence-ending periods with the split sentinel.
// A period between two digits is part of a decimal or version token
// ("RECIST 1.1", "3.5 g/dL") and is left alone.
func markPeriods(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r != '.' {
			continue
		}
		if i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
			continue
		}
		runes[i] = '\x00'
	}
	return string(runes)
}

// hasLetter reports whether an item contains at least one letter.
func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// enumPrefixRe matches leading list numbering such as "1)", "(a)" or "iii)".
var enumPrefixRe = regexp.MustCompile(`^\(?[0-9ivxa-d]{1,4}\)\s*`)

// stripBullets removes leading bullet characters, list numbering and
// surrounding whitespace from one item.
func (e *ExtractorService) stripBullets(item string) string {
	item = strings.TrimSpace(item)
	for changed := true; changed; {
		changed = false
		for _, prefix := range e.config.BulletPrefixes {
			if strings.HasPrefix(item, prefix) {
				item = strings.TrimSpace(strings.TrimPrefix(item, prefix))
				changed = true
			}
		}
		if stripped := enumPrefixRe.ReplaceAllString(item, ""); stripped != item {
			item = strings.TrimSpace(stripped)
			changed = true
		}
	}
	return item
}

// NormalizeText collapses document-layer artifacts so the same protocol
// renders consistently regardless of source formatting: control and
// non-printable residue from font encodings is dropped and runs of
// whitespace (including newlines) collapse into single spaces.
func NormalizeText(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	lastSpace := false
	for _, r := range raw {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}

	return strings.TrimSpace(b.String())
}
