package presets

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func TestLookup(t *testing.T) {
	p, ok := Lookup("pin_standard")
	if !ok {
		t.Fatal("pin_standard not found")
	}
	if p.Width != 1000 || p.Height != 1500 || p.AspectRatio != "2:3" {
		t.Errorf("unexpected preset %+v", p)
	}
	if _, ok := Lookup("nope"); ok {
		t.Error("expected unknown key to be missing")
	}
}

func TestKeysUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range All {
		if seen[p.Key] {
			t.Errorf("duplicate key %q", p.Key)
		}
		seen[p.Key] = true
	}
}

func TestGrouped(t *testing.T) {
	groups := Grouped()
	want := []string{"General", "Facebook", "Instagram", "TikTok", "Pinterest", "YouTube"}
	if len(groups) != len(want) {
		t.Fatalf("got %d groups, want %d", len(groups), len(want))
	}
	total := 0
	for i, g := range groups {
		if g.Platform != want[i] {
			t.Errorf("group %d = %q, want %q", i, g.Platform, want[i])
		}
		total += len(g.Presets)
	}
	if total != len(All) {
		t.Errorf("grouped %d presets, want %d", total, len(All))
	}
	if len(groups[2].Presets) != 4 {
		t.Errorf("instagram has %d presets, want 4", len(groups[2].Presets))
	}
}

func TestFit(t *testing.T) {
	fb, _ := Lookup("fb_post")
	story, _ := Lookup("ig_story")

	tests := []struct {
		name         string
		w, h         int
		p            Preset
		wantW, wantH int
	}{
		{"landscape into wide box", 2400, 1200, fb, 1200, 600},
		{"square into wide box", 1000, 1000, fb, 630, 630},
		{"upscales small image", 540, 960, story, 1080, 1920},
		{"portrait into tall box", 3000, 4000, story, 1080, 1440},
		{"zero size", 0, 10, fb, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := Fit(tt.w, tt.h, tt.p)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("Fit(%d,%d) = %dx%d, want %dx%d", tt.w, tt.h, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestShrinkKeepsSmallImages(t *testing.T) {
	orig, _ := Lookup(Original)
	if w, h := Shrink(800, 600, orig); w != 800 || h != 600 {
		t.Errorf("Shrink = %dx%d, want 800x600", w, h)
	}
	if w, h := Shrink(3840, 1920, orig); w != 1920 || h != 960 {
		t.Errorf("Shrink = %dx%d, want 1920x960", w, h)
	}
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestResize(t *testing.T) {
	p, _ := Lookup("ig_square")
	data, size, err := Resize(bytes.NewReader(testPNG(t, 200, 100)), p)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if size != image.Pt(1080, 540) {
		t.Errorf("size = %v, want 1080x540", size)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not jpeg: %v", err)
	}
	if cfg.Width != 1080 || cfg.Height != 540 {
		t.Errorf("jpeg is %dx%d", cfg.Width, cfg.Height)
	}
}

func TestOptimizeInvalidInput(t *testing.T) {
	if _, _, err := Optimize(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("expected decode error")
	}
}
