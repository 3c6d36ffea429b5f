package draft

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pintuan-hub/publisher/internal/assets"
	"github.com/pintuan-hub/publisher/internal/codescan"
	"github.com/pintuan-hub/publisher/internal/extraction"
	"github.com/pintuan-hub/publisher/internal/listings"
	"golang.org/x/sync/errgroup"
)

// Locator finds the order link code in an image
type Locator interface {
	Locate(ctx context.Context, src codescan.ImageSource) (string, error)
}

// Extractor recognises listing fields in an image
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (*extraction.Record, error)
}

// Config wires a Pipeline to its collaborators.
type Config struct {
	Locator   Locator
	Extractor Extractor
	Listings  listings.Store
	Assets    assets.Uploader
	Composer  Composer
	// Timeout bounds each backend and storage call. Zero disables it.
	Timeout time.Duration
}

// Pipeline holds the collaborators shared by every Session.
type Pipeline struct {
	locator   Locator
	extractor Extractor
	checker   *DuplicateChecker
	store     listings.Store
	assets    assets.Uploader
	composer  Composer
	timeout   time.Duration
}

func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{
		locator:   cfg.Locator,
		extractor: cfg.Extractor,
		checker:   NewDuplicateChecker(cfg.Listings, cfg.Timeout),
		store:     cfg.Listings,
		assets:    cfg.Assets,
		composer:  cfg.Composer,
		timeout:   cfg.Timeout,
	}
}

func (p *Pipeline) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

type NoticeKind string

const (
	NoticeCodeNotFound         NoticeKind = "code_not_found"
	NoticeCodeFailed           NoticeKind = "code_failed"
	NoticeExtractionFailed     NoticeKind = "extraction_failed"
	NoticeDuplicateCheckFailed NoticeKind = "duplicate_check_failed"
	NoticeUploadFailed         NoticeKind = "upload_failed"
	NoticeSubmitFailed         NoticeKind = "submit_failed"
	NoticeSubmitted            NoticeKind = "submitted"
)

// Notice is a non-blocking message for the user.
type Notice struct {
	DraftID string     `json:"draft_id" yaml:"draft_id"`
	Kind    NoticeKind `json:"kind" yaml:"kind"`
	Message string     `json:"message" yaml:"message"`
}

// DuplicatePrompt offers navigation to the listing that already uses CodeValue.
type DuplicatePrompt struct {
	DraftID   string `json:"draft_id" yaml:"draft_id"`
	CodeValue string `json:"code_value" yaml:"code_value"`
	ListingID string `json:"listing_id" yaml:"listing_id"`
}

type SessionOption func(*Session)

// WithID sets the draft id; a random one is used otherwise.
func WithID(id string) SessionOption {
	return func(s *Session) { s.draft.ID = id }
}

func WithNotifier(fn func(Notice)) SessionOption {
	return func(s *Session) { s.notify = fn }
}

func WithDuplicatePrompt(fn func(DuplicatePrompt)) SessionOption {
	return func(s *Session) { s.prompt = fn }
}

// Session owns one Draft. Every result is applied as a single transition under
// the lock and is dropped when it belongs to an image that was replaced.
type Session struct {
	p *Pipeline

	mu     sync.Mutex
	draft  Draft
	image  *Image
	cancel context.CancelFunc

	notify func(Notice)
	prompt func(DuplicatePrompt)
}

func (p *Pipeline) NewSession(opts ...SessionOption) *Session {
	s := &Session{p: p, draft: initial(uuid.NewString())}
	for _, opt := range opts {
		opt(s)
	}
	s.draft = initial(s.draft.ID)
	return s
}

// Snapshot returns a copy of the current draft.
func (s *Session) Snapshot() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

type effects struct {
	notices []Notice
	prompts []DuplicatePrompt
}

func (fx *effects) notice(kind NoticeKind, msg string) {
	fx.notices = append(fx.notices, Notice{Kind: kind, Message: msg})
}

// apply runs fn against the draft if it still holds image ref, then derives
// readiness. Callbacks fire after the lock is released.
func (s *Session) apply(ref string, fn func(d *Draft, fx *effects)) bool {
	s.mu.Lock()
	if ref == "" || s.draft.ImageRef != ref {
		id := s.draft.ID
		s.mu.Unlock()
		slog.Debug("Discarding result for superseded image", "draft_id", id, "image_ref", ref)
		return false
	}

	var fx effects
	fn(&s.draft, &fx)
	s.draft.Readiness = Derive(s.draft)
	id := s.draft.ID
	s.mu.Unlock()

	for _, n := range fx.notices {
		n.DraftID = id
		if s.notify != nil {
			s.notify(n)
		}
	}
	for _, p := range fx.prompts {
		p.DraftID = id
		if s.prompt != nil {
			s.prompt(p)
		}
	}
	return true
}

func (s *Session) currentRef() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.ImageRef
}

// SelectImage resets the draft to img and starts code location and field
// extraction concurrently. Work still running for a previous image is
// cancelled and its results are ignored. The returned channel closes once
// recognition for img has settled.
func (s *Session) SelectImage(ctx context.Context, img *Image) <-chan struct{} {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel

	d := initial(s.draft.ID)
	d.ImageRef = img.Ref
	d.CodeStatus = CodeScanning
	d.ExtractionInFlight = true
	d.Readiness = Derive(d)
	s.draft = d
	s.image = img
	s.mu.Unlock()

	slog.Info("Image selected", "draft_id", d.ID, "image_ref", img.Ref, "mime_type", img.MimeType, "bytes", len(img.Data))

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		s.recognize(ctx, img)
	}()
	return done
}

func (s *Session) recognize(ctx context.Context, img *Image) {
	var g errgroup.Group

	g.Go(func() error {
		code, err := s.p.locator.Locate(ctx, img.Source)
		if s.resolveCode(img.Ref, code, err) {
			matched, err := s.p.checker.Check(ctx, code)
			s.resolveDuplicate(img.Ref, code, matched, err)
		}
		return nil
	})

	g.Go(func() error {
		rec, err := s.p.extractor.Extract(ctx, img.Data, img.MimeType)
		s.resolveExtraction(img.Ref, rec, err)
		return nil
	})

	_ = g.Wait()
}

// resolveCode reports whether the automatic duplicate check should start.
func (s *Session) resolveCode(ref, code string, err error) bool {
	check := false
	s.apply(ref, func(d *Draft, fx *effects) {
		switch {
		case err == nil && code != "":
			d.CodeStatus, d.CodeValue = CodeSuccess, code
			d.Duplicate.Checking = true
			check = true
			slog.Info("Order link decoded", "draft_id", d.ID, "link", code)
		case err == nil || errors.Is(err, codescan.ErrNotFound):
			d.CodeStatus, d.CodeValue = CodeFailed, ""
			fx.notice(NoticeCodeNotFound, HintCodeNotFound)
			slog.Info("No order link code found", "draft_id", d.ID)
		default:
			d.CodeStatus, d.CodeValue = CodeFailed, ""
			fx.notice(NoticeCodeFailed, "code scan failed, please try another image")
			slog.Error("Code scan failed", "draft_id", d.ID, "err", err)
		}
	})
	return check
}

func (s *Session) resolveExtraction(ref string, rec *extraction.Record, err error) {
	s.apply(ref, func(d *Draft, fx *effects) {
		d.ExtractionInFlight = false
		if err != nil {
			d.Extraction = nil
			d.ExtractionError = extraction.UserMessage(err)
			fx.notice(NoticeExtractionFailed, d.ExtractionError)
			slog.Warn("Extraction failed", "draft_id", d.ID, "kind", extraction.Kind(err), "err", err)
			return
		}
		d.Extraction = rec
		d.ExtractionError = ""
	})
}

func (s *Session) resolveDuplicate(ref, code, matched string, err error) {
	s.apply(ref, func(d *Draft, fx *effects) {
		if d.CodeValue != code {
			return
		}
		d.Duplicate.Checking = false
		if err != nil {
			fx.notice(NoticeDuplicateCheckFailed, "could not check for an existing listing")
			slog.Error("Duplicate check failed", "draft_id", d.ID, "link", code, "err", err)
			return
		}
		d.Duplicate.MatchedListingID = matched
		if matched != "" {
			slog.Info("Duplicate listing found", "draft_id", d.ID, "link", code, "listing_id", matched)
			promptOnce(d, fx)
		}
	})
}

// promptOnce surfaces the duplicate prompt unless it was already shown for
// the current code value.
func promptOnce(d *Draft, fx *effects) {
	if d.Duplicate.LastPromptedCodeValue == d.CodeValue {
		return
	}
	d.Duplicate.LastPromptedCodeValue = d.CodeValue
	fx.prompts = append(fx.prompts, DuplicatePrompt{
		CodeValue: d.CodeValue,
		ListingID: d.Duplicate.MatchedListingID,
	})
}

// DismissDuplicate closes the duplicate prompt. The match stays, so the draft
// remains blocked, but the prompt is not shown again for this link.
func (s *Session) DismissDuplicate() {
	s.apply(s.currentRef(), func(d *Draft, fx *effects) {
		if d.Duplicate.MatchedListingID != "" {
			d.Duplicate.LastPromptedCodeValue = d.CodeValue
		}
	})
}

// RearmDuplicatePrompt lets the next duplicate resolution prompt again for the
// current link.
func (s *Session) RearmDuplicatePrompt() {
	s.apply(s.currentRef(), func(d *Draft, fx *effects) {
		d.Duplicate.LastPromptedCodeValue = ""
	})
}
