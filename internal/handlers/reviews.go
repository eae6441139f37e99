package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/kouprey/storefront/internal/eventlog"
	"github.com/kouprey/storefront/internal/models"
	"github.com/kouprey/storefront/internal/store"
)

const maxReviews = 100

type ReviewHandler struct {
	Store  *store.Store
	Events *eventlog.Recorder
}

type reviewInput struct {
	ProductID   string `json:"productId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Rating      int    `json:"rating"`
	Title       string `json:"title"`
	Content     string `json:"content"`
}

func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	productID := strings.TrimSpace(r.URL.Query().Get("productId"))
	if productID == "" {
		writeError(w, http.StatusBadRequest, "productId parameter required")
		return
	}

	reviews, err := h.Store.ListReviews(r.Context(), productID, maxReviews)
	if err != nil {
		h.Events.Error(r.Context(), "list_reviews: "+err.Error())
		writeError(w, http.StatusInternalServerError, "Failed to fetch reviews")
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in reviewInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	rv := &models.Review{
		ProductID:   strings.TrimSpace(in.ProductID),
		DisplayName: strings.TrimSpace(in.DisplayName),
		Email:       strings.TrimSpace(in.Email),
		Rating:      in.Rating,
		Title:       strings.TrimSpace(in.Title),
		Content:     strings.TrimSpace(in.Content),
		CreatedAt:   time.Now().UTC(),
	}
	if rv.ProductID == "" || rv.DisplayName == "" || rv.Content == "" || rv.Rating == 0 {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if rv.Rating < 1 || rv.Rating > 5 {
		writeError(w, http.StatusBadRequest, "Rating must be between 1 and 5")
		return
	}

	if err := h.Store.AddReview(r.Context(), rv); err != nil {
		h.Events.Error(r.Context(), "create_review: "+err.Error())
		writeError(w, http.StatusInternalServerError, "Failed to submit review")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Review submitted successfully"})
}
