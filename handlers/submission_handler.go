package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/camden-git/pathclassifier/query"
	"github.com/camden-git/pathclassifier/services"
	"github.com/go-chi/chi/v5"
)

const defaultMaxUploadBytes = 20 << 20

type SubmissionHandler struct {
	Submissions    *services.SubmissionService
	Search         *services.SearchService
	MaxUploadBytes int64
}

// Create classifies an uploaded image. Multipart fields: image (file), labels (comma
// separated, optional) and expected_label (optional).
func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		WriteAPIError(w, http.StatusUnauthorized, CodeUnauthenticated, "Authentication required")
		return
	}

	maxBytes := h.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteAPIError(w, http.StatusRequestEntityTooLarge, CodeInvalidRequest, fmt.Sprintf("Upload exceeds %d bytes", maxBytes))
			return
		}
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Expected a multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("image")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "An image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Failed to read the uploaded image")
		return
	}

	submission, err := h.Submissions.Submit(r.Context(), services.SubmitRequest{
		Data:          data,
		Labels:        r.FormValue("labels"),
		ExpectedLabel: r.FormValue("expected_label"),
		Filename:      header.Filename,
		UserID:        user.ID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSubmissionDTO(submission))
}

type searchRequest struct {
	MinDate       string              `json:"min_date"`
	MaxDate       string              `json:"max_date"`
	ExpectedLabel string              `json:"expected_label"`
	Labels        []query.LabelFilter `json:"labels"`
}

// SearchSubmissions takes the filters as a JSON body and the page as ?page=N.
func (h *SubmissionHandler) SearchSubmissions(w http.ResponseWriter, r *http.Request) {
	var body searchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request payload: "+err.Error())
		return
	}

	filters := query.Filters{ExpectedLabel: body.ExpectedLabel, Labels: body.Labels}
	if err := parseDates(&filters, body.MinDate, body.MaxDate); err != nil {
		writeServiceError(w, err)
		return
	}
	h.respondPage(w, r, filters)
}

// ListSubmissions is the browser form variant: label_0..label_4 with min_N/max_N, expected,
// min_date and max_date as query parameters.
func (h *SubmissionHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := query.Filters{ExpectedLabel: q.Get("expected")}
	if err := parseDates(&filters, q.Get("min_date"), q.Get("max_date")); err != nil {
		writeServiceError(w, err)
		return
	}

	for i := 0; i < query.MaxLabelFilters; i++ {
		label := strings.TrimSpace(q.Get(fmt.Sprintf("label_%d", i)))
		if label == "" {
			continue
		}
		lf := query.LabelFilter{Label: label}
		var err error
		if lf.Min, err = parseScore(q.Get(fmt.Sprintf("min_%d", i))); err != nil {
			writeServiceError(w, err)
			return
		}
		if lf.Max, err = parseScore(q.Get(fmt.Sprintf("max_%d", i))); err != nil {
			writeServiceError(w, err)
			return
		}
		filters.Labels = append(filters.Labels, lf)
	}
	h.respondPage(w, r, filters)
}

func (h *SubmissionHandler) respondPage(w http.ResponseWriter, r *http.Request, filters query.Filters) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			WriteAPIError(w, http.StatusNotFound, CodeNotFound, "Invalid page.")
			return
		}
		page = n
	}

	res, err := h.Search.Search(r.Context(), filters, page)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageDTO(r, res))
}

// GetSubmission returns one submission by id.
func (h *SubmissionHandler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "submission_id"), 10, 64)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid submission ID")
		return
	}
	submission, err := h.Search.Get(r.Context(), uint(id))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSubmissionDTO(submission))
}

func parseDates(f *query.Filters, minRaw, maxRaw string) error {
	var err error
	if f.MinDate, err = query.ParseDate(minRaw, false); err != nil {
		return err
	}
	if f.MaxDate, err = query.ParseDate(maxRaw, true); err != nil {
		return err
	}
	return nil
}

func parseScore(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", query.ErrInvalidFilter, raw)
	}
	return &v, nil
}
