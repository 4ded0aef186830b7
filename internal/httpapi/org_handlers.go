package httpapi

import (
	"fmt"
	"net/http"

	"tasktrack.org/internal/audit"
	"tasktrack.org/internal/tracker"
)

type createOrganizationRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
}

func (a *API) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r); !ok {
		return
	}
	orgs, err := a.svc.ListOrganizations(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orgs)
}

func (a *API) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req createOrganizationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	org, err := a.svc.CreateOrganization(r.Context(), actor, tracker.NewOrganization{Name: req.Name, ParentID: req.ParentID})
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r, audit.EventOrganizationCreated, map[string]any{"organization_id": org.ID, "name": org.Name})
	w.Header().Set("Location", fmt.Sprintf("/organizations/%d", org.ID))
	writeJSON(w, http.StatusCreated, org)
}

func (a *API) handleDeleteOrganization(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.svc.DeleteOrganization(r.Context(), actor, id); err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r, audit.EventOrganizationDeleted, map[string]any{"organization_id": id})
	w.WriteHeader(http.StatusNoContent)
}
