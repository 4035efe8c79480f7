package handler

import (
	"net"
	"net/http"

	"github.com/mmeshcher/foodshare/internal/middleware"
	"github.com/mmeshcher/foodshare/internal/model"
	"github.com/mmeshcher/foodshare/internal/service"
)

type signupRequest struct {
	Email     string         `json:"email"`
	Password  string         `json:"password"`
	UserData  model.UserData `json:"userData"`
	IPAddress string         `json:"ip_address"`
}

type signupResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// clientIP возвращает адрес клиента: адрес сокета либо, за доверенным прокси,
// адрес из заголовков. Адрес из тела запроса используется, только если адрес
// соединения определить не удалось.
func clientIP(r *http.Request, fallback string) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if net.ParseIP(host) != nil {
		return host
	}
	return fallback
}

// Signup регистрирует пользователя с ограничением частоты попыток.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.service.Signup(r.Context(), service.SignupRequest{
		Email:     req.Email,
		Password:  req.Password,
		UserData:  req.UserData,
		IPAddress: clientIP(r, req.IPAddress),
	})
	if err != nil {
		h.writeServiceError(w, r, "signup", err)
		return
	}

	writeJSON(w, http.StatusOK, signupResponse{
		Success: true,
		Message: "Account created successfully",
		User:    u,
	})
}

// Login выполняет вход и устанавливает cookie сессии.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, "login", err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, session)
	writeJSON(w, http.StatusOK, session)
}

// Logout удаляет cookie сессии.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Session возвращает профиль текущего пользователя.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	u, err := h.service.Session(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, "session", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}
