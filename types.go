package alchemy

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/eringen/alchemy/metadata"
	"github.com/eringen/alchemy/schedule"
)

// Image processing states.
const (
	StatusProcessing = "processing"
	StatusComplete   = schedule.StatusComplete
	StatusFailed     = "failed"
)

// UserQuota is the storage allowance per user in bytes.
const UserQuota int64 = 500 << 20

// Image is an uploaded file and the metadata generated for it.
type Image struct {
	bun.BaseModel `bun:"table:images,alias:i"`

	ID        string          `bun:",pk" json:"id"`
	UserID    string          `bun:",notnull" json:"userId"`
	Filename  string          `bun:",notnull" json:"filename"`
	URL       string          `bun:",notnull" json:"url"`
	Status    string          `bun:",notnull" json:"status"`
	Metadata  metadata.Record `bun:"metadata,type:json" json:"metadata"`
	Error     string          `bun:",nullzero" json:"error,omitempty"`
	Size      int64           `bun:",notnull" json:"size"`
	Link      string          `bun:",nullzero" json:"link,omitempty"`
	CreatedAt time.Time       `bun:",notnull" json:"createdAt"`
}

// ExpiresAt is when cleanup removes the image.
func (img Image) ExpiresAt(ttl time.Duration) time.Time {
	return img.CreatedAt.Add(ttl)
}

// Source converts the image into scheduler input. baseURL prefixes relative URLs.
func (img Image) Source(baseURL string) schedule.Source {
	url := img.URL
	if len(url) > 0 && url[0] == '/' {
		url = baseURL + url
	}
	return schedule.Source{ImageURL: url, Metadata: img.Metadata, Status: img.Status}
}

// Listing is the JSON body of the image list endpoint.
type Listing struct {
	Images    []Image `json:"images"`
	TotalSize int64   `json:"totalSize"`
	UserQuota int64   `json:"userQuota"`
}
