package metadata

import (
	"strings"
	"unicode"
)

// Parser converts raw model output into a Record. Implementations never fail;
// missing fields degrade to the sentinel values.
type Parser interface {
	Parse(text string) Record
}

// Field markers recognised in model output, in prompt order.
const (
	MarkerTitle       = "TITLE:"
	MarkerDescription = "DESCRIPTION:"
	MarkerAltText     = "ALT_TEXT:"
	MarkerKeywords    = "KEYWORDS:"
	MarkerBoard       = "BOARD:"
)

var markers = []string{MarkerTitle, MarkerDescription, MarkerAltText, MarkerKeywords, MarkerBoard}

// Markers parses the line-oriented "TITLE: ... BOARD: ..." format. A value
// ends at the nearest other marker after it, so marker text appearing inside
// a value cuts that value short.
type Markers struct{}

// Parse implements Parser.
func (Markers) Parse(text string) Record {
	return Parse(text)
}

// Parse extracts a Record from marker-formatted text.
func Parse(text string) Record {
	keywords := splitKeywords(extract(text, MarkerKeywords))
	r := Record{
		Title:          extract(text, MarkerTitle),
		Description:    extract(text, MarkerDescription),
		AltText:        extract(text, MarkerAltText),
		Keywords:       keywords,
		Hashtags:       Hashtags(keywords),
		PinterestBoard: extract(text, MarkerBoard),
	}
	return r.withFallbacks()
}

// extract returns the cleaned value following key, or "" when key is absent.
func extract(text, key string) string {
	start := strings.Index(text, key)
	if start < 0 {
		return ""
	}
	from := start + len(key)
	end := len(text)
	for _, m := range markers {
		if m == key {
			continue
		}
		if i := strings.Index(text[from:], m); i >= 0 && from+i < end {
			end = from + i
		}
	}
	return clean(text[from:end])
}

// clean drops "---" separators, surrounding whitespace, then any run of
// leading or trailing quote characters.
func clean(v string) string {
	v = strings.ReplaceAll(v, "---", "")
	v = strings.TrimSpace(v)
	v = strings.TrimLeft(v, `"'`)
	return strings.TrimRight(v, `"'`)
}

func splitKeywords(raw string) []string {
	keywords := []string{}
	if raw == "" {
		return keywords
	}
	for _, piece := range strings.Split(raw, ",") {
		if k := clean(piece); k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
