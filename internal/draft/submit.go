package draft

import (
	"context"
	"fmt"
	"log/slog"
)

const errImageReplaced = "image was replaced"

// Submit publishes the draft. Readiness is checked again here rather than
// trusted from the caller. The duplicate lookup is repeated first so a listing
// published since recognition still blocks this one. On success the draft is
// reset and the new listing id returned; on failure the draft keeps its
// recognised fields so the user can retry without scanning again. Nothing is
// uploaded or created once the image has been replaced.
func (s *Session) Submit(ctx context.Context) (string, error) {
	s.mu.Lock()
	d := s.draft
	if !Derive(d).CanSubmit {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrNotReady, d.Readiness.Hint)
	}
	img := s.image
	ref, code, rec := d.ImageRef, d.CodeValue, *d.Extraction

	s.draft.Duplicate.Checking = true
	s.draft.Submitting = true
	s.draft.Readiness = Derive(s.draft)
	s.mu.Unlock()

	log := slog.With("draft_id", d.ID, "image_ref", ref, "link", code)

	matched, err := s.p.checker.Check(ctx, code)
	if err != nil {
		s.apply(ref, func(d *Draft, fx *effects) {
			d.Duplicate.Checking = false
			d.Submitting = false
			fx.notice(NoticeDuplicateCheckFailed, "could not check for an existing listing, please try again")
		})
		log.Error("Pre-submit duplicate check failed", "err", err)
		return "", fmt.Errorf("%w: %w", ErrDuplicateCheckFailed, err)
	}
	if matched != "" {
		s.apply(ref, func(d *Draft, fx *effects) {
			d.Duplicate.Checking = false
			d.Submitting = false
			d.Duplicate.MatchedListingID = matched
			promptOnce(d, fx)
		})
		log.Info("Submission blocked by duplicate listing", "listing_id", matched)
		return "", fmt.Errorf("%w: listing %s", ErrDuplicate, matched)
	}
	current := s.apply(ref, func(d *Draft, fx *effects) {
		d.Duplicate.Checking = false
	})
	if !current {
		log.Info("Submission dropped, image was replaced")
		return "", fmt.Errorf("%w: %s", ErrNotReady, errImageReplaced)
	}

	uploadCtx, cancel := s.p.withTimeout(ctx)
	coverURL, err := s.p.assets.Upload(uploadCtx, img.Data, img.MimeType)
	cancel()
	if err != nil {
		s.apply(ref, func(d *Draft, fx *effects) {
			d.Submitting = false
			fx.notice(NoticeUploadFailed, "image upload failed, please try again")
		})
		log.Error("Cover upload failed", "err", err)
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	if s.currentRef() != ref {
		log.Info("Submission dropped after upload, image was replaced", "cover_image_url", coverURL)
		return "", fmt.Errorf("%w: %s", ErrNotReady, errImageReplaced)
	}

	listing := s.p.composer.Compose(rec, code, coverURL)

	createCtx, cancel := s.p.withTimeout(ctx)
	id, err := s.p.store.Create(createCtx, listing)
	cancel()
	if err != nil {
		s.apply(ref, func(d *Draft, fx *effects) {
			d.Submitting = false
			fx.notice(NoticeSubmitFailed, "publishing failed, please try again")
		})
		log.Error("Listing create failed", "err", err)
		return "", fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}

	reset := s.apply(ref, func(d *Draft, fx *effects) {
		*d = initial(d.ID)
		s.image = nil
		fx.notice(NoticeSubmitted, "published")
	})
	if !reset {
		log.Warn("Listing created for a replaced image", "listing_id", id)
	}

	log.Info("Listing published", "listing_id", id, "cover_image_url", coverURL)
	return id, nil
}
