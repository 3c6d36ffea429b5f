package handlers

import (
	"errors"
	"net/http"
	"sort"

	"github.com/pintuan-hub/publisher/internal/draft"
	"github.com/pintuan-hub/publisher/internal/storage"
)

type draftResponse struct {
	Draft   draft.Draft             `json:"draft"`
	Notices []draft.Notice          `json:"notices"`
	Prompts []draft.DuplicatePrompt `json:"duplicate_prompts"`
}

func respond(entry *storage.Entry) draftResponse {
	notices, prompts := entry.Drain()
	if notices == nil {
		notices = []draft.Notice{}
	}
	if prompts == nil {
		prompts = []draft.DuplicatePrompt{}
	}
	return draftResponse{
		Draft:   entry.Session.Snapshot(),
		Notices: notices,
		Prompts: prompts,
	}
}

func (h *Handler) HandleListDrafts(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessionStore.GetAll()
	list := make([]draft.Draft, 0, len(sessions))
	for _, entry := range sessions {
		list = append(list, entry.Session.Snapshot())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	h.writeJSON(w, list)
}

// HandleCreateDraft opens a draft. When the request carries an image the
// draft starts recognising it right away.
func (h *Handler) HandleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var img *draft.Image
	if hasImage(r) {
		var ok bool
		if img, ok = h.readImage(w, r); !ok {
			return
		}
	}

	entry := h.sessionStore.Open(h.pipeline)
	if img != nil {
		h.selectImage(r, entry, img)
	}
	h.writeJSONStatus(w, http.StatusCreated, respond(entry))
}

func (h *Handler) HandleGetDraft(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, respond(entry))
}

// HandleSelectImage replaces the draft image. Pass wait=true to block until
// recognition has settled.
func (h *Handler) HandleSelectImage(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	img, ok := h.readImage(w, r)
	if !ok {
		return
	}
	h.selectImage(r, entry, img)
	h.writeJSON(w, respond(entry))
}

func (h *Handler) selectImage(r *http.Request, entry *storage.Entry, img *draft.Image) {
	done := entry.Session.SelectImage(h.ctx, img)
	if r.URL.Query().Get("wait") != "true" {
		return
	}
	select {
	case <-done:
	case <-r.Context().Done():
	}
}

// HandleSubmit publishes the draft. A published draft is closed; its final
// state and notices are in this response.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	listingID, err := entry.Session.Submit(r.Context())
	if err != nil {
		h.writeError(w, err.Error(), submitStatus(err))
		return
	}

	resp := respond(entry)
	h.sessionStore.Delete(resp.Draft.ID)
	h.writeJSON(w, struct {
		ListingID string `json:"listing_id"`
		draftResponse
	}{listingID, resp})
}

func submitStatus(err error) int {
	switch {
	case errors.Is(err, draft.ErrNotReady), errors.Is(err, draft.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, draft.ErrDuplicateCheckFailed):
		return http.StatusServiceUnavailable
	case errors.Is(err, draft.ErrUploadFailed), errors.Is(err, draft.ErrSubmitFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) HandleDismissDuplicate(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	entry.Session.DismissDuplicate()
	h.writeJSON(w, respond(entry))
}

func (h *Handler) HandleRearmDuplicate(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	entry.Session.RearmDuplicatePrompt()
	h.writeJSON(w, respond(entry))
}
