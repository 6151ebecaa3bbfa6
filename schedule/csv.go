package schedule

import (
	"bufio"
	"io"
	"strings"
	"time"
)

// Header is the fixed first row of an exported schedule.
const Header = "publish_date,publish_time,title,description,alt_text,keywords,hashtags,pinterest_board,image_url"

// Fields returns the item's values in Header order.
func (it Item) Fields() []string {
	return []string{
		it.PublishDate,
		it.PublishTime,
		it.Title,
		it.Description,
		it.AltText,
		it.Keywords,
		it.Hashtags,
		it.PinterestBoard,
		it.ImageURL,
	}
}

// WriteCSV writes Header and one line per item, separated by "\n".
// Title, description and alt text are emitted as produced by Generate; any
// other field that would break the row is quoted here.
func WriteCSV(w io.Writer, items []Item) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(Header)
	for _, it := range items {
		bw.WriteByte('\n')
		for i, f := range it.Fields() {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteString(field(f, i))
		}
	}
	return bw.Flush()
}

// FileName is the download name for a schedule exported at now.
func FileName(now time.Time) string {
	return "alchemy_schedule_" + now.Format(time.DateOnly) + ".csv"
}

// preQuoted lists the Fields indexes that Generate already quoted.
var preQuoted = map[int]bool{2: true, 3: true, 4: true}

func field(v string, idx int) string {
	if preQuoted[idx] || !strings.ContainsAny(v, ",\"\r\n") {
		return v
	}
	return quote(v)
}
