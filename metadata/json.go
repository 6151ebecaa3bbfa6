package metadata

import (
	"encoding/json"
	"strings"
)

// JSON parses model output that was asked for a JSON object, optionally
// wrapped in a ```json fence. When the payload does not decode, Fallback
// handles the raw text instead (Markers when nil).
type JSON struct {
	Fallback Parser
}

// Parse implements Parser.
func (p JSON) Parse(text string) Record {
	var r Record
	if err := json.Unmarshal([]byte(stripFence(text)), &r); err != nil {
		fb := p.Fallback
		if fb == nil {
			fb = Markers{}
		}
		return fb.Parse(text)
	}
	r.Title = clean(r.Title)
	r.Description = clean(r.Description)
	r.AltText = clean(r.AltText)
	r.PinterestBoard = clean(r.PinterestBoard)
	keywords := make([]string, 0, len(r.Keywords))
	for _, k := range r.Keywords {
		if k = clean(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	r.Keywords = keywords
	if len(r.Hashtags) != len(keywords) {
		r.Hashtags = Hashtags(keywords)
	}
	return r.withFallbacks()
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
