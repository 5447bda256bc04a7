package handlers

import (
	"net/http"
	"sort"

	"github.com/camden-git/pathclassifier/repository"
	"github.com/facette/natsort"
)

type LabelHandler struct {
	Labels *repository.LabelRepository
}

// ListLabels returns every known label in natural order, so "grade 2" sorts before "grade 10".
func (h *LabelHandler) ListLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := h.Labels.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	sort.SliceStable(labels, func(i, j int) bool {
		return natsort.Compare(labels[i].Text, labels[j].Text)
	})

	out := make([]LabelDTO, 0, len(labels))
	for i := range labels {
		out = append(out, *newLabelDTO(&labels[i]))
	}
	writeJSON(w, http.StatusOK, out)
}
