// Package presets holds social platform image sizes and resizes images to fit them.
package presets

// Preset is a target box for a platform's image slot.
type Preset struct {
	Key         string `json:"key"`
	Platform    string `json:"platform"`
	Type        string `json:"type"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	AspectRatio string `json:"aspectRatio"`
}

// Original is the key of the general-purpose upload size.
const Original = "original"

// All lists the presets in display order.
var All = []Preset{
	{Key: Original, Platform: "General", Type: "Original (Optimized)", Width: 1920, Height: 1920, AspectRatio: "N/A"},

	{Key: "fb_post", Platform: "Facebook", Type: "Post (Recommended)", Width: 1200, Height: 630, AspectRatio: "1.91:1"},
	{Key: "fb_square", Platform: "Facebook", Type: "Post (Square)", Width: 1080, Height: 1080, AspectRatio: "1:1"},
	{Key: "fb_story", Platform: "Facebook", Type: "Story / Reel", Width: 1080, Height: 1920, AspectRatio: "9:16"},

	{Key: "ig_square", Platform: "Instagram", Type: "Post (Square)", Width: 1080, Height: 1080, AspectRatio: "1:1"},
	{Key: "ig_portrait", Platform: "Instagram", Type: "Post (Portrait)", Width: 1080, Height: 1350, AspectRatio: "4:5"},
	{Key: "ig_landscape", Platform: "Instagram", Type: "Post (Landscape)", Width: 1080, Height: 566, AspectRatio: "1.91:1"},
	{Key: "ig_story", Platform: "Instagram", Type: "Story / Reel", Width: 1080, Height: 1920, AspectRatio: "9:16"},

	{Key: "tt_video", Platform: "TikTok", Type: "Video / Thumbnail", Width: 1080, Height: 1920, AspectRatio: "9:16"},

	{Key: "pin_standard", Platform: "Pinterest", Type: "Pin (Standard)", Width: 1000, Height: 1500, AspectRatio: "2:3"},

	{Key: "yt_shorts", Platform: "YouTube", Type: "Shorts Thumbnail", Width: 1080, Height: 1920, AspectRatio: "9:16"},
}

// Lookup finds a preset by key.
func Lookup(key string) (Preset, bool) {
	for _, p := range All {
		if p.Key == key {
			return p, true
		}
	}
	return Preset{}, false
}

// Group is the presets of one platform.
type Group struct {
	Platform string
	Presets  []Preset
}

// Grouped returns presets grouped by platform, platforms in first-seen order.
func Grouped() []Group {
	var groups []Group
	idx := map[string]int{}
	for _, p := range All {
		i, ok := idx[p.Platform]
		if !ok {
			i = len(groups)
			idx[p.Platform] = i
			groups = append(groups, Group{Platform: p.Platform})
		}
		groups[i].Presets = append(groups[i].Presets, p)
	}
	return groups
}
