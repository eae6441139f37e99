package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kouprey/storefront/internal/eventlog"
	"github.com/kouprey/storefront/internal/models"
	"github.com/kouprey/storefront/internal/orders"
	"github.com/kouprey/storefront/internal/store"
)

type OrderHandler struct {
	Store  *store.Store
	Orders *orders.Service
	Events *eventlog.Recorder
}

// trackedOrder is what the public tracking endpoints reveal.
type trackedOrder struct {
	ID              string               `json:"id"`
	CustomerName    string               `json:"customer_name"`
	CustomerPhone   string               `json:"customer_phone"`
	ShippingAddress string               `json:"shipping_address"`
	Total           decimal.Decimal      `json:"total"`
	Status          models.OrderStatus   `json:"status"`
	PaymentStatus   models.PaymentStatus `json:"payment_status"`
	ShippingID      string               `json:"shipping_id"`
	CreatedAt       time.Time            `json:"created_at"`
}

func toTracked(o models.Order) trackedOrder {
	return trackedOrder{
		ID:              o.ID,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		ShippingAddress: o.ShippingAddress,
		Total:           o.Total,
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
		ShippingID:      o.ShippingID,
		CreatedAt:       o.CreatedAt,
	}
}

// decodeOrderRequest accepts JSON, or a form whose items field holds JSON.
func decodeOrderRequest(w http.ResponseWriter, r *http.Request) (orders.Request, error) {
	var req orders.Request
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" || ct == "" {
		err := decodeJSON(w, r, &req)
		return req, err
	}

	if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return req, err
	}
	req = orders.Request{
		CustomerName:    r.FormValue("customer_name"),
		CustomerEmail:   r.FormValue("customer_email"),
		CustomerPhone:   r.FormValue("customer_phone"),
		ShippingAddress: r.FormValue("shipping_address"),
		Status:          models.OrderStatus(r.FormValue("status")),
		PaymentStatus:   models.PaymentStatus(r.FormValue("payment_status")),
		PaymentGateway:  r.FormValue("payment_gateway"),
		PayUTxnID:       r.FormValue("payu_txn_id"),
	}
	if raw := r.FormValue("items"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Items); err != nil {
			return req, err
		}
	}
	return req, nil
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := decodeOrderRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order payload")
		return
	}

	order, err := h.Orders.Create(r.Context(), req)
	switch {
	case err == nil:
		slog.Info("Order created", "order_id", order.ID, "total", order.Total.StringFixed(2), "status", order.Status)
		writeJSON(w, http.StatusCreated, map[string]string{"id": order.ID})
	case errors.Is(err, orders.ErrMissingDetails):
		writeError(w, http.StatusBadRequest, "Missing order details")
	case errors.Is(err, orders.ErrInvalidItem), errors.Is(err, orders.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusConflict, "An order already exists for this transaction")
	default:
		h.Events.Error(r.Context(), "create_order: "+err.Error())
		writeError(w, http.StatusInternalServerError, "Failed to create order")
	}
}

// List returns all orders newest first. With ?page= the result is paged
// (?limit=, default 20) and X-Total-Count carries the full count.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := 0, 0
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			page = 1
		}
		limit, err = strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit < 1 {
			limit = 20
		}
		offset = (page - 1) * limit
	}

	list, err := h.Store.ListOrders(r.Context(), limit, offset)
	if err != nil {
		h.Events.Error(r.Context(), "list_orders: "+err.Error())
		writeError(w, http.StatusInternalServerError, "Failed to load orders")
		return
	}
	total, err := h.Store.CountOrders(r.Context())
	if err != nil {
		h.Events.Error(r.Context(), "count_orders: "+err.Error())
		writeError(w, http.StatusInternalServerError, "Failed to load orders")
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	writeJSON(w, http.StatusOK, list)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.Store.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}
	if err != nil {
		h.Events.Error(r.Context(), "get_order: "+err.Error())
		writeError(w, http.StatusInternalServerError, "Failed to load order")
		return
	}
	if order.Items == nil {
		order.Items = []models.OrderItem{}
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) Track(w http.ResponseWriter, r *http.Request) {
	order, err := h.Store.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}
	if err != nil {
		h.Events.Error(r.Context(), "track_order: "+err.Error())
		writeError(w, http.StatusInternalServerError, "Failed to track order")
		return
	}
	writeJSON(w, http.StatusOK, toTracked(*order))
}

func (h *OrderHandler) TrackByPhone(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.OrdersByPhone(r.Context(), chi.URLParam(r, "phone"))
	if err != nil {
		h.Events.Error(r.Context(), "track_orders: "+err.Error())
		writeError(w, http.StatusInternalServerError, "Failed to track orders")
		return
	}
	out := make([]trackedOrder, 0, len(list))
	for _, o := range list {
		out = append(out, toTracked(o))
	}
	writeJSON(w, http.StatusOK, out)
}

type updateOrderRequest struct {
	Status     models.OrderStatus `json:"status"`
	ShippingID string             `json:"shipping_id"`
}

func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "Status required")
		return
	}

	id := chi.URLParam(r, "id")
	status, err := h.Orders.UpdateFulfillment(r.Context(), id, req.Status, req.ShippingID)
	switch {
	case err == nil:
		p, _ := principalFrom(r.Context())
		slog.Info("Order updated", "order_id", id, "status", status, "by", p.Email)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": status})
	case errors.Is(err, orders.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, orders.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.Events.Error(r.Context(), "update_order: "+err.Error())
		writeError(w, http.StatusInternalServerError, "Failed to update order")
	}
}
