package handler

import "net/http"

// Dashboard возвращает сводку для личного кабинета.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	sum, err := h.service.UserSummary(r.Context(), a)
	if err != nil {
		h.writeServiceError(w, r, "dashboard", err)
		return
	}

	writeJSON(w, http.StatusOK, sum)
}

// AdminStats возвращает сводку по платформе.
func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	stats, err := h.service.PlatformStats(r.Context(), a)
	if err != nil {
		h.writeServiceError(w, r, "platform stats", err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
