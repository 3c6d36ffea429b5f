package draft

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pintuan-hub/publisher/internal/codescan"
	"github.com/pintuan-hub/publisher/internal/extraction"
	"github.com/pintuan-hub/publisher/internal/listings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource names an image; the fakes below script results by that name.
type fakeSource string

func (fakeSource) Size() (int, int) { return 100, 100 }
func (fakeSource) ReadRegion(image.Rectangle, int, int) ([]byte, error) {
	return nil, errors.New("not readable")
}

type result struct {
	code string
	rec  *extraction.Record
	err  error
	gate chan struct{}
}

type fakeLocator struct{ results map[string]result }

func (f *fakeLocator) Locate(ctx context.Context, src codescan.ImageSource) (string, error) {
	r := f.results[string(src.(fakeSource))]
	if r.gate != nil {
		<-r.gate
	}
	return r.code, r.err
}

type fakeExtractor struct{ results map[string]result }

func (f *fakeExtractor) Extract(ctx context.Context, data []byte, mimeType string) (*extraction.Record, error) {
	r := f.results[string(data)]
	if r.gate != nil {
		<-r.gate
	}
	return r.rec, r.err
}

// scriptedStore answers FindByLink from a queue of matches; an empty queue
// means no match. Calls numbered in gates block until released.
type scriptedStore struct {
	mu      sync.Mutex
	matches []string
	findErr error
	finds   int
	gates   map[int]chan struct{}
	entered chan int
	creates atomic.Int32
	created []*listings.Listing
	err     error
}

func (s *scriptedStore) FindByLink(ctx context.Context, link string) (*listings.Listing, error) {
	s.mu.Lock()
	s.finds++
	n := s.finds
	gate := s.gates[n]
	match := ""
	if len(s.matches) > 0 {
		match, s.matches = s.matches[0], s.matches[1:]
	}
	s.mu.Unlock()

	if s.entered != nil {
		s.entered <- n
	}
	if gate != nil {
		<-gate
	}
	if s.findErr != nil {
		return nil, s.findErr
	}
	if match == "" {
		return nil, nil
	}
	return &listings.Listing{ID: match, OrderLink: link}, nil
}

func (s *scriptedStore) Create(ctx context.Context, l *listings.Listing) (string, error) {
	s.creates.Add(1)
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, l)
	return "p-new", nil
}

type fakeUploader struct {
	calls   atomic.Int32
	err     error
	entered chan struct{}
	gate    chan struct{}
}

func (f *fakeUploader) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	f.calls.Add(1)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.example/covers/" + string(data) + ".jpg", nil
}

type recorder struct {
	mu      sync.Mutex
	notices []Notice
	prompts []DuplicatePrompt
}

func (r *recorder) notice(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) prompt(p DuplicatePrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, p)
}

func (r *recorder) promptCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.prompts)
}

type harness struct {
	locator   *fakeLocator
	extractor *fakeExtractor
	store     *scriptedStore
	uploader  *fakeUploader
	rec       *recorder
	session   *Session
}

func newHarness() *harness {
	h := &harness{
		locator:   &fakeLocator{results: map[string]result{}},
		extractor: &fakeExtractor{results: map[string]result{}},
		store:     &scriptedStore{gates: map[int]chan struct{}{}},
		uploader:  &fakeUploader{},
		rec:       &recorder{},
	}
	p := NewPipeline(Config{
		Locator:   h.locator,
		Extractor: h.extractor,
		Listings:  h.store,
		Assets:    h.uploader,
		Composer:  Composer{Platform: "pinduoduo", DefaultGroupSize: 3},
		Timeout:   time.Second,
	})
	h.session = p.NewSession(WithID("d1"), WithNotifier(h.rec.notice), WithDuplicatePrompt(h.rec.prompt))
	return h
}

// script sets the recognition outcome for the image called name.
func (h *harness) script(name, code, title string) *Image {
	h.locator.results[name] = result{code: code}
	if code == "" {
		h.locator.results[name] = result{err: codescan.ErrNotFound}
	}
	h.extractor.results[name] = result{rec: &extraction.Record{Title: title}}
	if title == "" {
		h.extractor.results[name] = result{err: extraction.ErrSoftFailure}
	}
	return testImage(name)
}

func testImage(name string) *Image {
	return &Image{Ref: "ref-" + name, Data: []byte(name), MimeType: "image/jpeg", Source: fakeSource(name)}
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("recognition did not settle")
	}
}

func TestEndToEndSubmit(t *testing.T) {
	h := newHarness()
	img := h.script("A", "L1", "T1")

	waitDone(t, h.session.SelectImage(context.Background(), img))

	d := h.session.Snapshot()
	assert.Equal(t, StateSuccess, d.Readiness.State)
	assert.True(t, d.Readiness.CanSubmit)
	assert.Equal(t, "L1", d.CodeValue)
	assert.Equal(t, "T1", d.Extraction.Title)

	id, err := h.session.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "p-new", id)

	d = h.session.Snapshot()
	assert.Equal(t, initial("d1"), d)
	assert.Equal(t, StateIdle, d.Readiness.State)

	require.Len(t, h.store.created, 1)
	created := h.store.created[0]
	assert.Equal(t, "L1", created.OrderLink)
	assert.Equal(t, "T1", created.Title)
	assert.Equal(t, 3, created.GroupSize)
	assert.Equal(t, "https://cdn.example/covers/A.jpg", created.CoverImageURL)
	assert.Equal(t, 2, h.store.finds)
	assert.Equal(t, NoticeSubmitted, h.rec.notices[len(h.rec.notices)-1].Kind)
}

func TestReplacingImageDiscardsLateResults(t *testing.T) {
	h := newHarness()
	gate := make(chan struct{})
	h.locator.results["A"] = result{code: "L-old", gate: gate}
	h.extractor.results["A"] = result{rec: &extraction.Record{Title: "T-old"}, gate: gate}
	h.script("B", "L-new", "T-new")

	doneA := h.session.SelectImage(context.Background(), testImage("A"))
	assert.Equal(t, StateProcessing, h.session.Snapshot().Readiness.State)

	doneB := h.session.SelectImage(context.Background(), testImage("B"))
	waitDone(t, doneB)

	close(gate)
	waitDone(t, doneA)

	d := h.session.Snapshot()
	assert.Equal(t, "ref-B", d.ImageRef)
	assert.Equal(t, "L-new", d.CodeValue)
	assert.Equal(t, "T-new", d.Extraction.Title)
	assert.Equal(t, StateSuccess, d.Readiness.State)
	// only image B's link was ever looked up
	assert.Equal(t, 1, h.store.finds)
}

func TestReplacingImageResetsDuplicateState(t *testing.T) {
	h := newHarness()
	h.store.matches = []string{"p-1"}
	waitDone(t, h.session.SelectImage(context.Background(), h.script("A", "L1", "T1")))
	assert.Equal(t, StateDuplicate, h.session.Snapshot().Readiness.State)
	assert.Equal(t, 1, h.rec.promptCount())

	// same link on a new image: the prompt is armed again
	h.store.matches = []string{"p-1"}
	waitDone(t, h.session.SelectImage(context.Background(), h.script("B", "L1", "T1")))
	d := h.session.Snapshot()
	assert.Equal(t, "p-1", d.Duplicate.MatchedListingID)
	assert.Equal(t, 2, h.rec.promptCount())
}

func TestDuplicatePromptFiresOncePerValue(t *testing.T) {
	h := newHarness()
	h.store.matches = []string{"p-1"}
	waitDone(t, h.session.SelectImage(context.Background(), h.script("A", "L1", "T1")))

	d := h.session.Snapshot()
	assert.Equal(t, StateDuplicate, d.Readiness.State)
	assert.False(t, d.Readiness.CanSubmit)
	assert.Equal(t, "L1", d.Duplicate.LastPromptedCodeValue)
	require.Equal(t, 1, h.rec.promptCount())
	assert.Equal(t, DuplicatePrompt{DraftID: "d1", CodeValue: "L1", ListingID: "p-1"}, h.rec.prompts[0])

	// a second resolution for the same value stays silent
	h.session.resolveDuplicate("ref-A", "L1", "p-1", nil)
	assert.Equal(t, 1, h.rec.promptCount())

	h.session.DismissDuplicate()
	d = h.session.Snapshot()
	assert.Equal(t, "p-1", d.Duplicate.MatchedListingID)
	assert.Equal(t, StateDuplicate, d.Readiness.State)
	h.session.resolveDuplicate("ref-A", "L1", "p-1", nil)
	assert.Equal(t, 1, h.rec.promptCount())

	h.session.RearmDuplicatePrompt()
	h.session.resolveDuplicate("ref-A", "L1", "p-1", nil)
	assert.Equal(t, 2, h.rec.promptCount())

	_, err := h.session.Submit(context.Background())
	require.ErrorIs(t, err, ErrNotReady)
	assert.Zero(t, h.store.creates.Load())
}

func TestSubmitRecheckCatchesRace(t *testing.T) {
	h := newHarness()
	// no match at recognition time, a match by the time the user submits
	h.store.matches = []string{"", "p-race"}
	waitDone(t, h.session.SelectImage(context.Background(), h.script("A", "L1", "T1")))
	require.True(t, h.session.Snapshot().Readiness.CanSubmit)

	_, err := h.session.Submit(context.Background())
	require.ErrorIs(t, err, ErrDuplicate)

	assert.Zero(t, h.store.creates.Load())
	assert.Zero(t, h.uploader.calls.Load())
	d := h.session.Snapshot()
	assert.Equal(t, StateDuplicate, d.Readiness.State)
	assert.Equal(t, "p-race", d.Duplicate.MatchedListingID)
	assert.False(t, d.Submitting)
	assert.Equal(t, 1, h.rec.promptCount())
}

func TestConcurrentSubmitCreatesOnce(t *testing.T) {
	h := newHarness()
	waitDone(t, h.session.SelectImage(context.Background(), h.script("A", "L1", "T1")))

	release := make(chan struct{})
	h.store.gates[2] = release
	h.store.entered = make(chan int, 4)

	type outcome struct {
		id  string
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		id, err := h.session.Submit(context.Background())
		first <- outcome{id, err}
	}()
	require.Equal(t, 2, <-h.store.entered)

	d := h.session.Snapshot()
	assert.True(t, d.Duplicate.Checking)
	assert.False(t, d.Readiness.CanSubmit)

	_, err := h.session.Submit(context.Background())
	require.ErrorIs(t, err, ErrNotReady)

	close(release)
	got := <-first
	require.NoError(t, got.err)
	assert.Equal(t, "p-new", got.id)
	assert.Equal(t, int32(1), h.store.creates.Load())
}

func TestSubmitDroppedWhenImageReplacedDuringCheck(t *testing.T) {
	h := newHarness()
	waitDone(t, h.session.SelectImage(context.Background(), h.script("A", "L1", "T1")))

	release := make(chan struct{})
	h.store.gates[2] = release
	h.store.entered = make(chan int, 4)

	errc := make(chan error, 1)
	go func() {
		_, err := h.session.Submit(context.Background())
		errc <- err
	}()
	require.Equal(t, 2, <-h.store.entered)

	waitDone(t, h.session.SelectImage(context.Background(), h.script("B", "L2", "T2")))
	close(release)

	require.ErrorIs(t, <-errc, ErrNotReady)
	assert.Zero(t, h.uploader.calls.Load())
	assert.Zero(t, h.store.creates.Load())

	d := h.session.Snapshot()
	assert.Equal(t, "ref-B", d.ImageRef)
	assert.Equal(t, "L2", d.CodeValue)
	assert.True(t, d.Readiness.CanSubmit)
}

func TestSubmitDroppedWhenImageReplacedDuringUpload(t *testing.T) {
	h := newHarness()
	waitDone(t, h.session.SelectImage(context.Background(), h.script("A", "L1", "T1")))

	h.uploader.entered = make(chan struct{}, 1)
	h.uploader.gate = make(chan struct{})

	errc := make(chan error, 1)
	go func() {
		_, err := h.session.Submit(context.Background())
		errc <- err
	}()
	<-h.uploader.entered

	waitDone(t, h.session.SelectImage(context.Background(), h.script("B", "L2", "T2")))
	close(h.uploader.gate)

	require.ErrorIs(t, <-errc, ErrNotReady)
	assert.Equal(t, int32(1), h.uploader.calls.Load())
	assert.Zero(t, h.store.creates.Load())
	assert.Equal(t, "ref-B", h.session.Snapshot().ImageRef)
}

func TestAutomaticDuplicateLookupFailureLeavesDraftSubmittable(t *testing.T) {
	h := newHarness()
	h.store.findErr = errors.New("connection reset")
	waitDone(t, h.session.SelectImage(context.Background(), h.script("A", "L1", "T1")))

	d := h.session.Snapshot()
	assert.False(t, d.Duplicate.Checking)
	assert.Empty(t, d.Duplicate.MatchedListingID)
	assert.True(t, d.Readiness.CanSubmit)
	assert.Zero(t, h.rec.promptCount())

	h.rec.mu.Lock()
	defer h.rec.mu.Unlock()
	require.Len(t, h.rec.notices, 1)
	assert.Equal(t, NoticeDuplicateCheckFailed, h.rec.notices[0].Kind)
}

func TestUploadFailureKeepsDraft(t *testing.T) {
	h := newHarness()
	h.uploader.err = errors.New("bucket missing")
	waitDone(t, h.session.SelectImage(context.Background(), h.script("A", "L1", "T1")))
	before := h.session.Snapshot()

	_, err := h.session.Submit(context.Background())
	require.ErrorIs(t, err, ErrUploadFailed)
	assert.Zero(t, h.store.creates.Load())

	after := h.session.Snapshot()
	assert.Equal(t, before, after)
	assert.True(t, after.Readiness.CanSubmit)
	assert.Equal(t, NoticeUploadFailed, h.rec.notices[len(h.rec.notices)-1].Kind)
}

func TestCreateFailureKeepsDraft(t *testing.T) {
	h := newHarness()
	h.store.err = errors.New("constraint violation")
	waitDone(t, h.session.SelectImage(context.Background(), h.script("A", "L1", "T1")))

	_, err := h.session.Submit(context.Background())
	require.ErrorIs(t, err, ErrSubmitFailed)

	d := h.session.Snapshot()
	assert.Equal(t, "L1", d.CodeValue)
	assert.True(t, d.Readiness.CanSubmit)

	// retry succeeds without scanning again
	h.store.err = nil
	id, err := h.session.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "p-new", id)
}

func TestSubmitDuplicateLookupFailure(t *testing.T) {
	h := newHarness()
	waitDone(t, h.session.SelectImage(context.Background(), h.script("A", "L1", "T1")))
	h.store.findErr = errors.New("connection reset")

	_, err := h.session.Submit(context.Background())
	require.ErrorIs(t, err, ErrDuplicateCheckFailed)
	assert.Zero(t, h.store.creates.Load())
	assert.True(t, h.session.Snapshot().Readiness.CanSubmit)
}

func TestCodeNotFound(t *testing.T) {
	h := newHarness()
	waitDone(t, h.session.SelectImage(context.Background(), h.script("A", "", "T1")))

	d := h.session.Snapshot()
	assert.Equal(t, CodeFailed, d.CodeStatus)
	assert.Empty(t, d.CodeValue)
	assert.Equal(t, StateFailed, d.Readiness.State)
	assert.Equal(t, HintCodeNotFound, d.Readiness.Hint)
	assert.Zero(t, h.store.finds)
	require.NotEmpty(t, h.rec.notices)
	assert.Equal(t, NoticeCodeNotFound, h.rec.notices[0].Kind)
}

func TestCodeScanErrorIsDistinctFromNotFound(t *testing.T) {
	h := newHarness()
	h.script("A", "L1", "T1")
	h.locator.results["A"] = result{err: errors.New("decoder crashed")}
	waitDone(t, h.session.SelectImage(context.Background(), testImage("A")))

	d := h.session.Snapshot()
	assert.Equal(t, CodeFailed, d.CodeStatus)
	assert.Equal(t, StateFailed, d.Readiness.State)
	assert.Equal(t, NoticeCodeFailed, h.rec.notices[0].Kind)
}

func TestExtractionErrorHint(t *testing.T) {
	h := newHarness()
	h.script("A", "", "")
	h.extractor.results["A"] = result{err: extraction.ErrServiceBusy}
	waitDone(t, h.session.SelectImage(context.Background(), testImage("A")))

	d := h.session.Snapshot()
	assert.Nil(t, d.Extraction)
	assert.Equal(t, extraction.UserMessage(extraction.ErrServiceBusy), d.ExtractionError)
	assert.Equal(t, StateFailed, d.Readiness.State)
	assert.Equal(t, d.ExtractionError, d.Readiness.Hint)
}

func TestSubmitWithoutImage(t *testing.T) {
	h := newHarness()
	_, err := h.session.Submit(context.Background())
	require.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, StateIdle, h.session.Snapshot().Readiness.State)
}
