package draft

import (
	"time"

	"github.com/pintuan-hub/publisher/internal/extraction"
	"github.com/pintuan-hub/publisher/internal/listings"
)

// Composer builds the listing payload from recognised fields.
type Composer struct {
	Platform         string
	DefaultGroupSize int
	Now              func() time.Time
}

func (c Composer) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Compose fills absent optional fields with defaults: group size falls back to
// DefaultGroupSize, joined count to 1, and the end time stays unset.
func (c Composer) Compose(rec extraction.Record, link, coverURL string) *listings.Listing {
	now := c.now().UTC()

	groupSize := c.DefaultGroupSize
	if groupSize <= 0 {
		groupSize = 3
	}
	if rec.GroupSize != nil && *rec.GroupSize > 0 {
		groupSize = *rec.GroupSize
	}

	joined := 1
	if rec.MissingCount != nil {
		joined = min(max(groupSize-*rec.MissingCount, 0), groupSize)
	}

	l := &listings.Listing{
		Platform:      c.Platform,
		OrderLink:     listings.NormalizeLink(link),
		Title:         rec.Title,
		CoverImageURL: coverURL,
		Price:         rec.Price,
		OriginalPrice: rec.OriginalPrice,
		GroupSize:     groupSize,
		JoinedCount:   joined,
		IsSubsidized:  rec.IsSubsidized,
		PublishedAt:   now,
	}
	if rec.RemainingHours != nil && *rec.RemainingHours > 0 {
		end := now.Add(time.Duration(*rec.RemainingHours * float64(time.Hour)))
		l.EndTime = &end
	}
	return l
}
