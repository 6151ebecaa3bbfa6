package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormed = `TITLE: "Golden Hour Magic: Cozy Autumn Cabin Retreat"
---
DESCRIPTION: Step into a warm cabin wrapped in amber light.
---
ALT_TEXT: A wooden cabin surrounded by orange trees at sunset
---
KEYWORDS: cozy cabin decor, autumn getaway ideas, rustic home inspiration
---
BOARD: Cabin Life
---`

func TestParseWellFormed(t *testing.T) {
	got := Parse(wellFormed)

	assert.Equal(t, "Golden Hour Magic: Cozy Autumn Cabin Retreat", got.Title)
	assert.Equal(t, "Step into a warm cabin wrapped in amber light.", got.Description)
	assert.Equal(t, "A wooden cabin surrounded by orange trees at sunset", got.AltText)
	assert.Equal(t, []string{"cozy cabin decor", "autumn getaway ideas", "rustic home inspiration"}, got.Keywords)
	assert.Equal(t, []string{"#cozycabindecor", "#autumngetawayideas", "#rustichomeinspiration"}, got.Hashtags)
	assert.Equal(t, "Cabin Life", got.PinterestBoard)
}

func TestParseKeepsPipeDelimiters(t *testing.T) {
	got := Parse("TITLE: Bright Loft\n|||\nBOARD: Loft Living")

	assert.Equal(t, "Bright Loft\n|||", got.Title)
	assert.Equal(t, "Loft Living", got.PinterestBoard)
}

func TestParseRecoversValuesBetweenMarkers(t *testing.T) {
	text := "TITLE: A title DESCRIPTION: A description ALT_TEXT: Alt KEYWORDS: one, two BOARD: Home Decor"
	got := Parse(text)

	assert.Equal(t, Record{
		Title:          "A title",
		Description:    "A description",
		AltText:        "Alt",
		Keywords:       []string{"one", "two"},
		Hashtags:       []string{"#one", "#two"},
		PinterestBoard: "Home Decor",
	}, got)
}

func TestParseEmptyInputFallsBack(t *testing.T) {
	got := Parse("")

	assert.Equal(t, FailedTitle, got.Title)
	assert.Equal(t, FailedDescription, got.Description)
	assert.Equal(t, got.Title, got.AltText)
	assert.NotNil(t, got.Keywords)
	assert.Empty(t, got.Keywords)
	assert.NotNil(t, got.Hashtags)
	assert.Empty(t, got.Hashtags)
	assert.Equal(t, "", got.PinterestBoard)
	assert.True(t, got.Failed())
}

func TestParseAltTextFallsBackToTitle(t *testing.T) {
	got := Parse("TITLE: Sunny Kitchen DESCRIPTION: Bright and airy.")

	assert.Equal(t, "Sunny Kitchen", got.AltText)
	assert.False(t, got.Failed())
}

func TestParseAltTextFallsBackToSentinelTitle(t *testing.T) {
	got := Parse("DESCRIPTION: only a description")

	assert.Equal(t, FailedTitle, got.Title)
	assert.Equal(t, FailedTitle, got.AltText)
	assert.Equal(t, "only a description", got.Description)
}

func TestParseOutOfOrderMarkers(t *testing.T) {
	got := Parse("BOARD: Garden Ideas TITLE: Spring Beds KEYWORDS: tulips")

	assert.Equal(t, "Spring Beds", got.Title)
	assert.Equal(t, "Garden Ideas", got.PinterestBoard)
	assert.Equal(t, []string{"tulips"}, got.Keywords)
}

func TestParseCleansSeparatorsAndQuotes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"double quotes", `TITLE: "Quoted"`, "Quoted"},
		{"single quotes", `TITLE: 'Quoted'`, "Quoted"},
		{"quote runs", `TITLE: ""'Quoted'""`, "Quoted"},
		{"separator", "TITLE: --- Dashed ---", "Dashed"},
		{"inner quotes kept", `TITLE: "It's "here""`, `It's "here`},
		{"only quotes", `TITLE: """"`, FailedTitle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.input).Title)
		})
	}
}

func TestParseKeywordsDropEmptyAndKeepDuplicates(t *testing.T) {
	got := Parse(`KEYWORDS: "a", , b ,a,'' ,  `)

	assert.Equal(t, []string{"a", "b", "a"}, got.Keywords)
	assert.Equal(t, []string{"#a", "#b", "#a"}, got.Hashtags)
}

func TestParseMarkerInsideValueTruncates(t *testing.T) {
	got := Parse("TITLE: Pin it to BOARD: later DESCRIPTION: d")

	assert.Equal(t, "Pin it to", got.Title)
	assert.Equal(t, "later", got.PinterestBoard)
}

func TestHashtags(t *testing.T) {
	got := Hashtags([]string{"Cozy Fall Decor", "DIY-Crafts"})
	assert.Equal(t, []string{"#cozyfalldecor", "#diy-crafts"}, got)

	got = Hashtags([]string{"tab\tand nbsp"})
	assert.Equal(t, []string{"#tabandnbsp"}, got)
}

func TestParseIsDeterministic(t *testing.T) {
	a := Parse(wellFormed)
	b := Parse(wellFormed)
	require.Equal(t, a, b)
}

func TestMarkersImplementsParser(t *testing.T) {
	var p Parser = Markers{}
	assert.Equal(t, Parse(wellFormed), p.Parse(wellFormed))
}
