package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/camden-git/pathclassifier/classifier"
	"github.com/camden-git/pathclassifier/query"
	"github.com/camden-git/pathclassifier/services"
	"gorm.io/gorm"
)

// Error codes used in API error responses.
const (
	CodeInvalidRequest   = "invalid_request"
	CodeInvalidImage     = "invalid_image"
	CodeInvalidFilter    = "invalid_filter"
	CodeUnauthenticated  = "unauthenticated"
	CodeForbidden        = "forbidden"
	CodeNotFound         = "not_found"
	CodeConflict         = "conflict"
	CodeModelUnavailable = "model_unavailable"
	CodeModelError       = "model_error"
	CodeInternal         = "internal_error"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// writeServiceError maps a domain error to its HTTP status. Unexpected errors are logged and
// reported without their internals.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidImage):
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidImage, err.Error())
	case errors.Is(err, services.ErrInvalidInput):
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
	case errors.Is(err, query.ErrInvalidFilter):
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidFilter, err.Error())
	case errors.Is(err, query.ErrInvalidPage):
		WriteAPIError(w, http.StatusNotFound, CodeNotFound, "Invalid page.")
	case errors.Is(err, gorm.ErrRecordNotFound):
		WriteAPIError(w, http.StatusNotFound, CodeNotFound, "Not found.")
	case errors.Is(err, classifier.ErrModelUnavailable):
		log.Printf("handlers: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, CodeModelUnavailable, "The classification model is unavailable.")
	case errors.Is(err, services.ErrClassification):
		log.Printf("handlers: %v", err)
		WriteAPIError(w, http.StatusBadGateway, CodeModelError, "The classification model failed.")
	default:
		log.Printf("handlers: internal error: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, CodeInternal, "Internal server error.")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("Error encoding JSON response: %v", err)
		}
	}
}
