package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"tasktrack.org/internal/audit"
	"tasktrack.org/internal/auth"
	"tasktrack.org/internal/obs"
	"tasktrack.org/internal/tracker"
)

type promoteRequest struct {
	Role string `json:"role"`
}

type registerRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	Role           string `json:"role"`
	OrganizationID *int64 `json:"organization_id"`
}

// profileResponse is the current actor plus the expiry of the presented token.
type profileResponse struct {
	auth.Actor
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *API) handlePromote(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req promoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Role) == "" {
		writeError(w, r, http.StatusBadRequest, "role is required")
		return
	}
	user, err := a.svc.Promote(r.Context(), actor, id, req.Role)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r, audit.EventRolePromoted, map[string]any{"user_id": user.ID, "role": string(user.Role)})
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r); !ok {
		return
	}
	users, err := a.svc.ListUsers(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// handleRegister is public; an authenticated privileged caller may grant a role.
func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var caller *auth.Actor
	if actor, ok := auth.ActorFromContext(r.Context()); ok {
		caller = &actor
	}
	user, err := a.svc.Register(r.Context(), caller, tracker.Registration{
		Username:       req.Username,
		Password:       req.Password,
		Role:           req.Role,
		OrganizationID: req.OrganizationID,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r, audit.EventUserRegistered, map[string]any{"user_id": user.ID, "role": string(user.Role)})
	w.Header().Set("Location", fmt.Sprintf("/users/%d", user.ID))
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "username and password are required")
		return
	}
	user, err := a.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleError(w, r, err)
		return
	}
	token, err := a.auth.Issue(user.Actor())
	if err != nil {
		handleError(w, r, err)
		return
	}
	ctx := auth.ContextWithActor(r.Context(), user.Actor())
	if err := audit.LogEvent(ctx, audit.EventLogin, nil); err != nil {
		logAuditFailure(r, audit.EventLogin, err)
	}
	writeJSON(w, http.StatusOK, token)
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	resp := profileResponse{Actor: actor}
	if token, ok := auth.TokenFromContext(r.Context()); ok {
		if claims, err := a.auth.Parse(token); err == nil && claims.ExpiresAt != nil {
			exp := claims.ExpiresAt.Time.UTC()
			resp.TokenExpiresAt = &exp
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func logAuditFailure(r *http.Request, event string, err error) {
	obs.Logger().Warn().Err(err).Str("event", event).Str("request_id", RequestIDFromContext(r.Context())).Msg("audit log failed")
}
