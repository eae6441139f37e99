package handlers

import (
	"log/slog"
	"net/http"

	"github.com/kouprey/storefront/internal/eventlog"
	"github.com/kouprey/storefront/internal/media"
)

const maxUploadSize = 20 << 20 // 20MB per request

type UploadHandler struct {
	Uploader *media.Uploader
	Events   *eventlog.Recorder
}

// Upload stores every file in the "files" field. A failure part way through
// removes what was already stored.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "File too large or invalid form")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "No files uploaded")
		return
	}

	stored := make([]media.Stored, 0, len(files))
	rollback := func() {
		for _, s := range stored {
			if err := h.Uploader.Store.Delete(r.Context(), s.Key); err != nil {
				slog.Warn("Failed to remove partial upload", "key", s.Key, "error", err)
			}
		}
	}

	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			rollback()
			writeError(w, http.StatusBadRequest, "Could not read "+fh.Filename)
			return
		}
		s, err := h.Uploader.Save(r.Context(), fh.Filename, fh.Header.Get("Content-Type"), f)
		f.Close()
		if err != nil {
			rollback()
			h.Events.Error(r.Context(), "upload: "+err.Error())
			writeError(w, http.StatusBadRequest, "Failed to process "+fh.Filename)
			return
		}
		stored = append(stored, *s)
	}

	slog.Info("Files uploaded", "count", len(stored))
	writeJSON(w, http.StatusOK, map[string]any{"files": stored})
}
