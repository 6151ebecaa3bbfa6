// Package metadata turns the free-text answer of a vision model into the
// marketing metadata stored with every image: title, description, alt text,
// keywords, hashtags and a Pinterest board.
package metadata

import "strings"

// Sentinel values substituted when a field cannot be extracted. Consumers
// detect a failed analysis by comparing Title against FailedTitle.
const (
	FailedTitle       = "AI Analysis Failed"
	FailedDescription = "Could not generate description."
)

// Record is the parsed metadata for one image. A Record produced by a Parser
// always has a non-empty Title, Description and AltText.
type Record struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	AltText        string   `json:"alt_text"`
	Keywords       []string `json:"keywords"`
	Hashtags       []string `json:"hashtags"`
	PinterestBoard string   `json:"pinterest_board"`
}

// Failed reports whether the record carries the failure sentinel title.
func (r Record) Failed() bool {
	return r.Title == FailedTitle
}

// Hashtags derives one hashtag per keyword: all whitespace removed, lowercased
// and prefixed with '#'. Punctuation is kept.
func Hashtags(keywords []string) []string {
	tags := make([]string, 0, len(keywords))
	for _, k := range keywords {
		tags = append(tags, "#"+strings.ToLower(stripSpace(k)))
	}
	return tags
}

// withFallbacks fills empty required fields. Order matters: alt text falls
// back to the title after the title itself has been defaulted.
func (r Record) withFallbacks() Record {
	if r.Title == "" {
		r.Title = FailedTitle
	}
	if r.Description == "" {
		r.Description = FailedDescription
	}
	if r.AltText == "" {
		r.AltText = r.Title
	}
	if r.Keywords == nil {
		r.Keywords = []string{}
	}
	if r.Hashtags == nil {
		r.Hashtags = []string{}
	}
	return r
}
