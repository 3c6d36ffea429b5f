package draft

import "errors"

var (
	// ErrNotReady is returned by Submit when the draft cannot be submitted.
	ErrNotReady = errors.New("draft is not ready to submit")
	// ErrDuplicate is returned by Submit when the pre-submit check finds a listing with the same link.
	ErrDuplicate = errors.New("listing already exists")
	// ErrDuplicateCheckFailed means the pre-submit lookup itself failed.
	ErrDuplicateCheckFailed = errors.New("duplicate check failed")
	// ErrUploadFailed means the cover image could not be stored.
	ErrUploadFailed = errors.New("image upload failed")
	// ErrSubmitFailed means the backend rejected the listing.
	ErrSubmitFailed = errors.New("listing submission failed")
)
