package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pintuan-hub/publisher/internal/draft"
	"github.com/pintuan-hub/publisher/internal/images"
)

const maxUploadSize = images.MaxSize

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func isJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

// hasImage reports whether the request carries an image upload or URL.
func hasImage(r *http.Request) bool {
	return isMultipart(r) || (isJSON(r) && r.ContentLength != 0)
}

// readImage reads the image from a JSON {"image_url": ...} body or from the
// "files" or "file" form field.
func (h *Handler) readImage(w http.ResponseWriter, r *http.Request) (*draft.Image, bool) {
	if isJSON(r) {
		return h.readImageURL(w, r)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1024*1024)

	file, header, err := r.FormFile("files")
	if err != nil {
		file, header, err = r.FormFile("file")
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return nil, false
		}
	}
	defer file.Close()

	fileData, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	if len(fileData) >= maxUploadSize {
		h.writeError(w, "File too large (max 10MB)", http.StatusRequestEntityTooLarge)
		return nil, false
	}

	img, err := draft.NewImage(fileData, header.Header.Get("Content-Type"))
	if err != nil {
		h.writeError(w, "Unsupported image: "+err.Error(), http.StatusUnsupportedMediaType)
		return nil, false
	}

	slog.Info("Image received", "filename", header.Filename, "image_ref", img.Ref, "bytes", len(fileData))
	return img, true
}

func (h *Handler) readImageURL(w http.ResponseWriter, r *http.Request) (*draft.Image, bool) {
	var request struct {
		ImageURL string `json:"image_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	if !images.IsURL(request.ImageURL) {
		h.writeError(w, "image_url must be an http(s) URL", http.StatusBadRequest)
		return nil, false
	}

	data, mimeType, err := h.fetcher.Download(r.Context(), request.ImageURL)
	if err != nil {
		code := http.StatusBadGateway
		if errors.Is(err, images.ErrTooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		h.writeError(w, "Failed to fetch image URL: "+err.Error(), code)
		return nil, false
	}

	img, err := draft.NewImage(data, mimeType)
	if err != nil {
		h.writeError(w, "Unsupported image: "+err.Error(), http.StatusUnsupportedMediaType)
		return nil, false
	}

	slog.Info("Image fetched", "url", request.ImageURL, "image_ref", img.Ref, "bytes", len(data))
	return img, true
}
