package http

import (
	"net/http"
	"strconv"

	"cashbook/internal/core"
)

func (s *Server) handleMonthDashboard(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	sum, err := s.svc.Dashboard.Month(r.Context(), currentUser(r), p.Year, p.Month)
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(sum).Write(w)
}

func (s *Server) handleYearDashboard(w http.ResponseWriter, r *http.Request) {
	year := s.now().Year()
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1970 || y > 2200 {
			ErrorFrom(r, fieldErr("year", core.ErrValidation)).Write(w)
			return
		}
		year = y
	}
	d, err := s.svc.Dashboard.Year(r.Context(), currentUser(r), year)
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(d).Write(w)
}
