package draft

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/pintuan-hub/publisher/internal/codescan"
	"github.com/pintuan-hub/publisher/internal/extraction"
)

// CodeStatus tracks the code scan for the current image
type CodeStatus string

const (
	CodeIdle     CodeStatus = "idle"
	CodeScanning CodeStatus = "scanning"
	CodeSuccess  CodeStatus = "success"
	CodeFailed   CodeStatus = "failed"
)

// Image is one user-selected screenshot. Ref identifies it for staleness checks.
type Image struct {
	Ref      string
	Data     []byte
	MimeType string
	Source   codescan.ImageSource
}

// NewImage decodes data and tags it with a fresh ref.
func NewImage(data []byte, mimeType string) (*Image, error) {
	src, _, err := codescan.DecodeRaster(data)
	if err != nil {
		return nil, err
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return &Image{
		Ref:      uuid.NewString(),
		Data:     data,
		MimeType: mimeType,
		Source:   src,
	}, nil
}

func (i *Image) String() string {
	return fmt.Sprintf("image %s (%s, %d bytes)", i.Ref, i.MimeType, len(i.Data))
}

// Duplicate holds the duplicate-listing state of a Draft.
type Duplicate struct {
	Checking         bool   `json:"checking" yaml:"checking"`
	MatchedListingID string `json:"matched_listing_id,omitempty" yaml:"matched_listing_id,omitempty"`
	// LastPromptedCodeValue stops the duplicate prompt from firing twice for one link.
	LastPromptedCodeValue string `json:"last_prompted_code_value,omitempty" yaml:"last_prompted_code_value,omitempty"`
}

// Draft is one in-progress publish attempt. Readiness is derived and is
// rewritten after every change; nothing sets it directly.
type Draft struct {
	ID                 string             `json:"id" yaml:"id"`
	ImageRef           string             `json:"image_ref,omitempty" yaml:"image_ref,omitempty"`
	CodeStatus         CodeStatus         `json:"code_status" yaml:"code_status"`
	CodeValue          string             `json:"code_value,omitempty" yaml:"code_value,omitempty"`
	Extraction         *extraction.Record `json:"extraction,omitempty" yaml:"extraction,omitempty"`
	ExtractionError    string             `json:"extraction_error,omitempty" yaml:"extraction_error,omitempty"`
	ExtractionInFlight bool               `json:"extraction_in_flight" yaml:"extraction_in_flight"`
	Duplicate          Duplicate          `json:"duplicate" yaml:"duplicate"`
	Submitting         bool               `json:"submitting" yaml:"submitting"`
	Readiness          Readiness          `json:"readiness" yaml:"readiness"`
}

// initial returns the empty draft for id
func initial(id string) Draft {
	d := Draft{ID: id, CodeStatus: CodeIdle}
	d.Readiness = Derive(d)
	return d
}
