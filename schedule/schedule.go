// Package schedule spreads completed images over a posting calendar and
// produces rows ready for a CSV export.
package schedule

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/eringen/alchemy/metadata"
)

// StatusComplete marks an image whose metadata is ready to be scheduled.
const StatusComplete = "complete"

// DefaultBoard is used when an image has no Pinterest board.
const DefaultBoard = "General"

const dayMillis = 24 * 60 * 60 * 1000

// ErrInvalidCadence is returned when days or posts per day is below one, or
// when their product does not fit in an int.
var ErrInvalidCadence = errors.New("schedule: days and posts per day must be at least 1 and their product must fit in an int")

// Source is an image offered for scheduling.
type Source struct {
	ImageURL string
	Metadata metadata.Record
	Status   string
}

// Cadence describes how many posts go out and when the first one does.
type Cadence struct {
	Start       time.Time
	Days        int
	PostsPerDay int
}

// Valid reports ErrInvalidCadence for cadences Generate refuses.
func (c Cadence) Valid() error {
	if c.Days < 1 || c.PostsPerDay < 1 {
		return ErrInvalidCadence
	}
	if c.Days > math.MaxInt/c.PostsPerDay {
		return ErrInvalidCadence
	}
	return nil
}

// Required is the number of images the cadence consumes. It is only
// meaningful when Valid returns nil.
func (c Cadence) Required() int {
	return c.Days * c.PostsPerDay
}

// Item is one scheduled post. Title, Description and AltText are already
// quoted for CSV output.
type Item struct {
	PublishDate    string `json:"publish_date"`
	PublishTime    string `json:"publish_time"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	AltText        string `json:"alt_text"`
	Keywords       string `json:"keywords"`
	Hashtags       string `json:"hashtags"`
	PinterestBoard string `json:"pinterest_board"`
	ImageURL       string `json:"image_url"`
}

// InsufficientItemsError reports that a cadence needs more images than are ready.
type InsufficientItemsError struct {
	Required  int
	Available int
}

func (e *InsufficientItemsError) Error() string {
	return fmt.Sprintf("You need %d images for this schedule, but you only have %d ready.", e.Required, e.Available)
}

// Eligible returns the complete items in their original order.
func Eligible(items []Source) []Source {
	out := make([]Source, 0, len(items))
	for _, it := range items {
		if it.Status == StatusComplete {
			out = append(out, it)
		}
	}
	return out
}

// Generate assigns the first c.Required() items to evenly spaced slots
// starting at midnight of c.Start in its own location. The gap is one day
// divided by PostsPerDay; the cursor keeps accumulating across days and never
// snaps back to a midnight, so fractional milliseconds carry over.
// Callers pass eligible items only (see Eligible).
func Generate(items []Source, c Cadence) ([]Item, error) {
	if err := c.Valid(); err != nil {
		return nil, err
	}
	required := c.Required()
	if len(items) < required {
		return nil, &InsufficientItemsError{Required: required, Available: len(items)}
	}

	loc := c.Start.Location()
	y, m, d := c.Start.Date()
	cursor := float64(time.Date(y, m, d, 0, 0, 0, 0, loc).UnixMilli())
	gap := float64(dayMillis) / float64(c.PostsPerDay)

	out := make([]Item, 0, required)
	for i := 0; i < required; i++ {
		at := time.UnixMilli(int64(cursor)).In(loc)
		out = append(out, newItem(items[i], at))
		cursor += gap
	}
	return out, nil
}

func newItem(src Source, at time.Time) Item {
	md := src.Metadata
	board := md.PinterestBoard
	if board == "" {
		board = DefaultBoard
	}
	return Item{
		PublishDate:    at.Format(time.DateOnly),
		PublishTime:    at.Format(time.TimeOnly),
		Title:          quote(md.Title),
		Description:    quote(md.Description),
		AltText:        quote(md.AltText),
		Keywords:       strings.Join(md.Keywords, ", "),
		Hashtags:       strings.Join(md.Hashtags, " "),
		PinterestBoard: board,
		ImageURL:       src.ImageURL,
	}
}

// quote doubles embedded quotes and wraps the value, CSV style.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
