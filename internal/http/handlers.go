package http

import (
	"net/http"
	"strconv"

	"cashbook/internal/core"
)

const defaultNotificationLimit = 50

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Categories.List(r.Context(), currentUser(r))
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(cats).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var c core.Category
	if err := DecodeJSON(w, r, &c); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	c.Name = sanitizeInput(c.Name)

	created, err := s.svc.Categories.Create(r.Context(), currentUser(r), c)
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	var c core.Category
	if err := DecodeJSON(w, r, &c); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	c.ID = id
	c.Name = sanitizeInput(c.Name)

	updated, err := s.svc.Categories.Update(r.Context(), currentUser(r), c)
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err == nil {
		err = s.svc.Categories.Delete(r.Context(), currentUser(r), id)
	}
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleListNotifications lists the caller's scheduled and past notifications
// so a client can mirror them as local notifications.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := defaultNotificationLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			ErrorFrom(r, fieldErr("limit", core.ErrValidation)).Write(w)
			return
		}
		limit = n
	}
	ns, err := s.svc.Scheduler.List(r.Context(), currentUser(r), limit)
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	if ns == nil {
		ns = []core.Notification{}
	}
	NewJSONResponse().Body(ns).Write(w)
}
