package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kouprey/storefront/internal/eventlog"
	"github.com/kouprey/storefront/internal/models"
	"github.com/kouprey/storefront/internal/store"
)

type ProductHandler struct {
	Store  *store.Store
	Events *eventlog.Recorder
	now    func() time.Time
}

func (h *ProductHandler) clock() time.Time {
	if h.now != nil {
		return h.now()
	}
	return time.Now().UTC()
}

// productInput uses pointers where a zero value is legal but absence is not.
type productInput struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Category     string           `json:"category"`
	Subcategory  string           `json:"subcategory"`
	Price        *decimal.Decimal `json:"price"`
	Discount     decimal.Decimal  `json:"discount"`
	Sizes        []string         `json:"sizes"`
	Stock        *int             `json:"stock"`
	Availability string           `json:"availability"`
	Image        string           `json:"image"`
	Images       []string         `json:"images"`
	Color        string           `json:"color"`
	Description  string           `json:"description"`
}

func (in productInput) missing() bool {
	return strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Category) == "" ||
		in.Price == nil || in.Stock == nil || strings.TrimSpace(in.Availability) == ""
}

func (in productInput) product(id string, now time.Time) *models.Product {
	p := &models.Product{
		ID:           id,
		Name:         strings.TrimSpace(in.Name),
		Category:     strings.TrimSpace(in.Category),
		Subcategory:  strings.TrimSpace(in.Subcategory),
		Price:        *in.Price,
		Discount:     in.Discount,
		Sizes:        in.Sizes,
		Stock:        *in.Stock,
		Availability: models.ResolveAvailability(*in.Stock, in.Availability),
		Image:        in.Image,
		Images:       in.Images,
		Color:        in.Color,
		Description:  in.Description,
		UpdatedAt:    now,
	}
	if p.Sizes == nil {
		p.Sizes = []string{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Image == "" && len(p.Images) > 0 {
		p.Image = p.Images[0]
	}
	return p
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.ListProducts(r.Context())
	if err != nil {
		h.Events.Error(r.Context(), "list_products: "+err.Error())
		writeError(w, http.StatusInternalServerError, "Failed to load products")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		h.Events.Error(r.Context(), "get_product: "+err.Error())
		writeError(w, http.StatusInternalServerError, "Failed to load product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in productInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.missing() {
		writeError(w, http.StatusBadRequest, "Missing required product fields")
		return
	}

	now := h.clock()
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = fmt.Sprintf("kouprey-%06d", now.UnixMilli()%1_000_000)
	}
	p := in.product(id, now)

	err := h.Store.CreateProduct(r.Context(), p)
	if errors.Is(err, store.ErrDuplicate) {
		writeError(w, http.StatusConflict, "Product ID already exists")
		return
	}
	if err != nil {
		h.Events.Error(r.Context(), "create_product: "+err.Error())
		writeError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}

	slog.Info("Product created", "product_id", p.ID, "availability", p.Availability)
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in productInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.missing() {
		writeError(w, http.StatusBadRequest, "Missing required product fields")
		return
	}

	p := in.product(chi.URLParam(r, "id"), h.clock())
	err := h.Store.UpdateProduct(r.Context(), p)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		h.Events.Error(r.Context(), "update_product: "+err.Error())
		writeError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.Store.DeleteProduct(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		h.Events.Error(r.Context(), "delete_product: "+err.Error())
		writeError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
