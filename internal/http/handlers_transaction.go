package http

import (
	"net/http"

	"cashbook/internal/core"
	applog "cashbook/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	page, err := s.svc.Transactions.List(r.Context(), currentUser(r), f)
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(page).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := DecodeJSON(w, r, &t); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	t.Description = sanitizeInput(t.Description)

	created, err := s.svc.Transactions.Create(r.Context(), currentUser(r), t)
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction created",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldTransactionID, created.ID)
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	t, err := s.svc.Transactions.Get(r.Context(), currentUser(r), id)
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(t).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	var t core.Transaction
	if err := DecodeJSON(w, r, &t); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	t.ID = id
	t.Description = sanitizeInput(t.Description)

	updated, err := s.svc.Transactions.Update(r.Context(), currentUser(r), t)
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err == nil {
		err = s.svc.Transactions.Delete(r.Context(), currentUser(r), id)
	}
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
