package http

import (
	"net/http"

	"cashbook/internal/core"
	applog "cashbook/internal/log"
	"cashbook/internal/services"
)

type roleRequest struct {
	Role core.Role `json:"role"`
}

type disabledRequest struct {
	Disabled bool `json:"disabled"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Admin.ListUsers(r.Context())
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(users).Write(w)
}

func (s *Server) handleSetRole(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	var req roleRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	if err := s.svc.Admin.SetRole(r.Context(), currentUser(r), id, req.Role); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "User role changed",
		"target_user_id", id,
		"role", req.Role)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleSetDisabled(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	var req disabledRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	if err := s.svc.Admin.SetDisabled(r.Context(), currentUser(r), id, req.Disabled); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "User access changed",
		"target_user_id", id,
		"disabled", req.Disabled)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListInvites(w http.ResponseWriter, r *http.Request) {
	invites, err := s.svc.Admin.ListInvites(r.Context())
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	if invites == nil {
		invites = []core.Invite{}
	}
	NewJSONResponse().Body(invites).Write(w)
}

func (s *Server) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	var req services.InviteRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	inv, err := s.svc.Admin.CreateInvite(r.Context(), currentUser(r), req)
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(inv).Write(w)
}

func (s *Server) handleRevokeInvite(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Admin.RevokeInvite(r.Context(), r.PathValue("code")); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Admin.Settings(r.Context())
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(st).Write(w)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var st core.Settings
	if err := DecodeJSON(w, r, &st); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	updated, err := s.svc.Admin.UpdateSettings(r.Context(), st)
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Admin.Stats(r.Context())
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(stats).Write(w)
}
