package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/foodshare/internal/service"
	"github.com/mmeshcher/foodshare/internal/validation"
)

const maxImageSize = 10 << 20

// BrowseListings возвращает каталог доступных объявлений.
func (h *Handler) BrowseListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := service.ListingQuery{
		Category: q.Get("category"),
		Location: q.Get("location"),
		Search:   q.Get("search"),
	}
	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		query.Limit = limit
	}

	listings, err := h.service.BrowseListings(r.Context(), query)
	if err != nil {
		h.writeServiceError(w, r, "browse listings", err)
		return
	}

	writeJSON(w, http.StatusOK, listings)
}

// CreateListing публикует объявление текущего донора.
func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var in validation.ListingInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	l, err := h.service.CreateListing(r.Context(), a, in)
	if err != nil {
		h.writeServiceError(w, r, "create listing", err)
		return
	}

	writeJSON(w, http.StatusCreated, l)
}

// MyListings возвращает объявления текущего донора.
func (h *Handler) MyListings(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	listings, err := h.service.ListingsByDonor(r.Context(), a.ID)
	if err != nil {
		h.writeServiceError(w, r, "donor listings", err)
		return
	}

	writeJSON(w, http.StatusOK, listings)
}

type claimRequest struct {
	QuantityRequested *int   `json:"quantity_requested"`
	Notes             string `json:"notes"`
}

// ClaimListing бронирует объявление.
func (h *Handler) ClaimListing(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req claimRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.service.Claim(r.Context(), a, chi.URLParam(r, "id"), service.ClaimInput{
		QuantityRequested: req.QuantityRequested,
		Notes:             req.Notes,
	})
	if err != nil {
		h.writeServiceError(w, r, "claim listing", err)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// CompleteListing завершает забронированное объявление.
func (h *Handler) CompleteListing(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	l, err := h.service.MarkCompleted(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "complete listing", err)
		return
	}

	writeJSON(w, http.StatusOK, l)
}

// UploadImage принимает изображение в поле image формы multipart.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize)
	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	l, err := h.service.AttachImage(r.Context(), a, chi.URLParam(r, "id"), file)
	if err != nil {
		h.writeServiceError(w, r, "upload image", err)
		return
	}

	writeJSON(w, http.StatusCreated, l)
}

// DeleteImage удаляет изображение, переданное в параметре url.
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	imageURL := r.URL.Query().Get("url")
	if imageURL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	l, err := h.service.RemoveImage(r.Context(), a, chi.URLParam(r, "id"), imageURL)
	if err != nil {
		h.writeServiceError(w, r, "delete image", err)
		return
	}

	writeJSON(w, http.StatusOK, l)
}
