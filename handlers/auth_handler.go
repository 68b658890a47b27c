package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"idealtransport/models"
	"idealtransport/services"
)

type AuthHandler struct {
	Service *services.AuthService
	Logger  *slog.Logger
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	u, err := h.Service.Register(r.Context(), &in)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// Token takes the OAuth2 password form: username carries the email.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, r, h.Logger, badRequest("Invalid form body: %s", err.Error()))
		return
	}
	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")

	fields := map[string]string{}
	if username == "" {
		fields["username"] = "is required"
	}
	if password == "" {
		fields["password"] = "is required"
	}
	if len(fields) > 0 {
		writeError(w, r, h.Logger, &requestError{detail: "Request validation failed", fields: fields})
		return
	}

	tok, err := h.Service.Login(r.Context(), username, password)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, tok)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Logout(r.Context(), bearerToken(r)); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.Logger)
	if !ok {
		return
	}
	u, err := h.Service.Me(r.Context(), p)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type dashboardResponse struct {
	Message string            `json:"message"`
	User    *models.Principal `json:"user"`
}

// Dashboard greets the signed-in user.
func (h *AuthHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.Logger)
	if !ok {
		return
	}
	name := p.FullName
	if name == "" {
		name = p.Email
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		Message: "Welcome to your dashboard, " + name + "!",
		User:    p,
	})
}
