package extraction

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
)

// Record is the normalised field set recognised on a group-buy screenshot.
// Nil pointers mean the service did not return a usable value.
type Record struct {
	Title          string   `json:"title" yaml:"title"`
	Price          *float64 `json:"price,omitempty" yaml:"price,omitempty"`
	OriginalPrice  *float64 `json:"original_price,omitempty" yaml:"original_price,omitempty"`
	GroupSize      *int     `json:"group_size,omitempty" yaml:"group_size,omitempty"`
	MissingCount   *int     `json:"missing_count,omitempty" yaml:"missing_count,omitempty"`
	RemainingHours *float64 `json:"remaining_hours,omitempty" yaml:"remaining_hours,omitempty"`
	IsSubsidized   bool     `json:"is_subsidized" yaml:"is_subsidized"`
}

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// ParseLoose reads a JSON object out of a model reply. The whole text is
// tried first, then the outermost {...} block. Nil means nothing parsed.
func ParseLoose(text string) map[string]interface{} {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(text), &raw); err == nil {
		return raw
	}

	block := jsonObject.FindString(text)
	if block == "" {
		return nil
	}
	raw = nil
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return nil
	}
	return raw
}

// Normalize converts a loosely typed reply into a Record. Any field with the
// wrong type is dropped rather than failing the whole reply.
func Normalize(raw map[string]interface{}) Record {
	var rec Record
	if raw == nil {
		return rec
	}

	if s, ok := raw["title"].(string); ok {
		rec.Title = strings.TrimSpace(s)
	}
	rec.Price = number(raw["price"])
	rec.OriginalPrice = number(raw["original_price"])
	rec.GroupSize = integer(raw["group_size"])
	rec.MissingCount = integer(raw["missing_count"])
	rec.RemainingHours = number(raw["remaining_hours"])

	switch v := raw["is_baiyi_butie"].(type) {
	case bool:
		rec.IsSubsidized = v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "y":
			rec.IsSubsidized = true
		}
	}

	return rec
}

func number(v interface{}) *float64 {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func integer(v interface{}) *int {
	f := number(v)
	if f == nil || *f != math.Trunc(*f) {
		return nil
	}
	n := int(*f)
	return &n
}
