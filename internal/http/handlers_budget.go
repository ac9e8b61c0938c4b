package http

import (
	"net/http"

	"cashbook/internal/core"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	bs, err := s.svc.Budgets.List(r.Context(), currentUser(r))
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	if bs == nil {
		bs = []core.Budget{}
	}
	NewJSONResponse().Body(bs).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var b core.Budget
	if err := DecodeJSON(w, r, &b); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	created, err := s.svc.Budgets.Create(r.Context(), currentUser(r), b)
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	var b core.Budget
	if err := DecodeJSON(w, r, &b); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	b.ID = id

	updated, err := s.svc.Budgets.Update(r.Context(), currentUser(r), b)
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err == nil {
		err = s.svc.Budgets.Delete(r.Context(), currentUser(r), id)
	}
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleBudgetStatus reports spending against every budget for the period
// containing ?date=, today by default.
func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	day := core.DateOf(s.now())
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			ErrorFrom(r, fieldErr("date", err)).Write(w)
			return
		}
		day = d
	}
	st, err := s.svc.Budgets.Status(r.Context(), currentUser(r), day)
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(st).Write(w)
}
