package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/kouprey/storefront/internal/eventlog"
	"github.com/kouprey/storefront/internal/store"
)

type HomeHandler struct {
	Store     *store.Store
	Templates *TemplateCache
	Events    *eventlog.Recorder
	Brand     string
}

func (h *HomeHandler) Index(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.ListProducts(r.Context())
	if err != nil {
		h.Events.Error(r.Context(), "home: "+err.Error())
		http.Error(w, "Error fetching products", http.StatusInternalServerError)
		return
	}

	h.Templates.Render(w, http.StatusOK, "home.html", map[string]any{
		"Brand":    h.Brand,
		"Products": products,
	})
}

// Track looks orders up by ?id= or, failing that, ?phone=.
func (h *HomeHandler) Track(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	phone := strings.TrimSpace(r.URL.Query().Get("phone"))
	data := map[string]any{
		"ID":       id,
		"Phone":    phone,
		"Searched": id != "" || phone != "",
	}

	found := []trackedOrder{}
	switch {
	case id != "":
		order, err := h.Store.GetOrder(r.Context(), id)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			h.Events.Error(r.Context(), "track_page: "+err.Error())
			http.Error(w, "Error fetching order", http.StatusInternalServerError)
			return
		}
		if order != nil {
			found = append(found, toTracked(*order))
		}
	case phone != "":
		list, err := h.Store.OrdersByPhone(r.Context(), phone)
		if err != nil {
			h.Events.Error(r.Context(), "track_page: "+err.Error())
			http.Error(w, "Error fetching orders", http.StatusInternalServerError)
			return
		}
		for _, o := range list {
			found = append(found, toTracked(o))
		}
	}
	data["Orders"] = found

	h.Templates.Render(w, http.StatusOK, "track.html", data)
}
