package listings

import (
	"context"
	"strings"
	"time"
)

// Listing is a published group-buy post.
type Listing struct {
	ID            string     `json:"id"`
	Platform      string     `json:"platform"`
	OrderLink     string     `json:"order_link"`
	Title         string     `json:"title"`
	CoverImageURL string     `json:"cover_image_url"`
	Price         *float64   `json:"price,omitempty"`
	OriginalPrice *float64   `json:"original_price,omitempty"`
	GroupSize     int        `json:"group_size"`
	JoinedCount   int        `json:"joined_count"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	IsSubsidized  bool       `json:"is_subsidized"`
	PublishedAt   time.Time  `json:"published_at"`
}

// Store is the listing backend: exact-link lookup plus create.
type Store interface {
	// FindByLink returns the listing published with exactly this order link,
	// or nil when there is none.
	FindByLink(ctx context.Context, link string) (*Listing, error)
	// Create stores l and returns the id assigned to it.
	Create(ctx context.Context, l *Listing) (string, error)
}

// NormalizeLink trims the link used as the duplicate key.
func NormalizeLink(link string) string {
	return strings.TrimSpace(link)
}
