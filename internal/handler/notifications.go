package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListNotifications возвращает уведомления текущего пользователя.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	list, err := h.service.ListNotifications(r.Context(), a.ID)
	if err != nil {
		h.writeServiceError(w, r, "list notifications", err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// ReadNotification помечает уведомление прочитанным.
func (h *Handler) ReadNotification(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	n, err := h.service.MarkNotificationRead(r.Context(), a.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "read notification", err)
		return
	}

	writeJSON(w, http.StatusOK, n)
}

// ReadAllNotifications помечает прочитанными все уведомления.
func (h *Handler) ReadAllNotifications(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	count, err := h.service.MarkAllNotificationsRead(r.Context(), a.ID)
	if err != nil {
		h.writeServiceError(w, r, "read all notifications", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"updated": count})
}

// DeleteNotification удаляет уведомление.
func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteNotification(r.Context(), a.ID, chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, "delete notification", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
