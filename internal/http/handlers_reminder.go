package http

import (
	"net/http"

	"cashbook/internal/core"
	applog "cashbook/internal/log"
	"cashbook/internal/services"
)

func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
	rs, err := s.svc.Reminders.List(r.Context(), currentUser(r), r.URL.Query().Get("status"))
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	if rs == nil {
		rs = []core.Reminder{}
	}
	NewJSONResponse().Body(rs).Write(w)
}

func (s *Server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	var rem core.Reminder
	if err := DecodeJSON(w, r, &rem); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	rem.Title = sanitizeInput(rem.Title)

	created, err := s.svc.Reminders.Create(r.Context(), currentUser(r), rem)
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
}

func (s *Server) handleGetReminder(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	rem, err := s.svc.Reminders.Get(r.Context(), currentUser(r), id)
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(rem).Write(w)
}

func (s *Server) handleUpdateReminder(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	var rem core.Reminder
	if err := DecodeJSON(w, r, &rem); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	rem.ID = id
	rem.Title = sanitizeInput(rem.Title)

	updated, err := s.svc.Reminders.Update(r.Context(), currentUser(r), rem)
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err == nil {
		err = s.svc.Reminders.Delete(r.Context(), currentUser(r), id)
	}
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleCompleteReminder turns a reminder into a transaction. The body is
// optional; date defaults to today and amount to the reminder's amount.
func (s *Server) handleCompleteReminder(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	var req services.CompleteRequest
	if r.ContentLength != 0 {
		if err := DecodeJSON(w, r, &req); err != nil {
			ErrorFrom(r, err).Write(w)
			return
		}
	}
	if req.Date.IsZero() {
		req.Date = core.DateOf(s.now())
	}

	res, err := s.svc.Reminders.Complete(r.Context(), currentUser(r), id, req)
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Reminder completed",
		applog.FieldOperation, applog.OpComplete,
		applog.FieldReminderID, id,
		applog.FieldTransactionID, res.Transaction.ID)
	NewJSONResponse().Body(res).Write(w)
}
