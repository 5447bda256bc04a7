package handlers

import (
	"net/http"

	"github.com/camden-git/pathclassifier/permissions"
)

// PermissionHandler serves static data, so it has no dependencies.
type PermissionHandler struct{}

// ListPermissionDefinitions serves the statically defined permission groups.
func (h *PermissionHandler) ListPermissionDefinitions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, permissions.DefinedPermissionGroups)
}

// ListPermissionKeys serves just the keys of all defined permissions.
func (h *PermissionHandler) ListPermissionKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, permissions.GetAllPermissionKeys())
}
