package handlers

import (
	"net/http"
	"strconv"

	"github.com/camden-git/pathclassifier/repository"
	"github.com/go-chi/chi/v5"
)

type ImageHandler struct {
	Images *repository.ImageRepository
}

// ServeThumbnail writes the stored JPEG thumbnail. The content hash doubles as the ETag since
// an image row never changes once written.
func (h *ImageHandler) ServeThumbnail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "image_id"), 10, 64)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid image ID")
		return
	}

	img, err := h.Images.GetByID(r.Context(), uint(id))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if len(img.Thumbnail) == 0 {
		WriteAPIError(w, http.StatusNotFound, CodeNotFound, "Thumbnail not available")
		return
	}

	etag := `"` + img.ContentHash + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, max-age=86400, immutable")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Thumbnail)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Thumbnail)
}
