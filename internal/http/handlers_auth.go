package http

import (
	"net/http"
	"time"

	"cashbook/internal/core"
	applog "cashbook/internal/log"
	"cashbook/internal/services"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      core.User `json:"user"`
}

type passwordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type deviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	req.Name = sanitizeInput(req.Name)
	req.InviteCode = sanitizeInput(req.InviteCode)

	u, err := s.svc.Auth.Register(r.Context(), req)
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(u).Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}

	sess, u, err := s.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Login rejected",
			applog.FieldOperation, applog.OpLogin,
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldError, err.Error())
		ErrorFrom(r, err).Write(w)
		return
	}

	setSessionCookie(w, r, sess)
	NewJSONResponse().Body(loginResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		User:      u,
	}).Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	if err := s.svc.Auth.Logout(r.Context(), p.Session.Token); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	clearSessionCookie(w, r)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	NewJSONResponse().Body(p.User).Write(w)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	p, _ := principalFrom(r.Context())
	if err := s.svc.Auth.ChangePassword(r.Context(), p.User.ID, p.Session.Token, req.OldPassword, req.NewPassword); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	if err := s.svc.Auth.RegisterDevice(r.Context(), currentUser(r), req.Token, req.Platform); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleUnregisterDevice(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Auth.UnregisterDevice(r.Context(), currentUser(r), r.PathValue("token")); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
