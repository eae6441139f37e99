package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/kouprey/storefront/internal/eventlog"
	"github.com/kouprey/storefront/internal/orders"
	"github.com/kouprey/storefront/internal/payment"
)

// PaymentHandler receives the provider's browser redirects after payment.
type PaymentHandler struct {
	Reconciler *payment.Reconciler
	Templates  *TemplateCache
	Events     *eventlog.Recorder
}

const maxCallbackBody = 10 << 20

// callbackFields flattens a form, multipart or JSON body. Any other content
// type yields an empty set.
func callbackFields(w http.ResponseWriter, r *http.Request) payment.Fields {
	fields := payment.Fields{}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	r.Body = http.MaxBytesReader(w, r.Body, maxCallbackBody)

	switch ct {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxCallbackBody); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			slog.Warn("Unreadable callback form", "error", err)
			return fields
		}
		for k, v := range r.PostForm {
			if len(v) > 0 {
				fields[k] = v[0]
			}
		}
	case "application/json":
		var raw map[string]any
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			slog.Warn("Unreadable callback JSON", "error", err)
			return fields
		}
		for k, v := range raw {
			switch val := v.(type) {
			case nil:
			case string:
				fields[k] = val
			default:
				fields[k] = fmt.Sprint(val)
			}
		}
	}
	return fields
}

func (h *PaymentHandler) Success(w http.ResponseWriter, r *http.Request) {
	fields := callbackFields(w, r)

	res, err := h.Reconciler.HandleSuccess(r.Context(), fields)
	switch {
	case err == nil:
		slog.Info("Payment reconciled", "order_id", res.OrderID, "created", res.Created, "txnid", fields.Get("txnid"))
		h.Templates.Render(w, http.StatusOK, "payment_success.html", map[string]any{"OrderID": res.OrderID})
	case errors.Is(err, payment.ErrMissingItems):
		h.renderError(w, http.StatusBadRequest, "Missing order items.")
	case errors.Is(err, payment.ErrUntrustedCallback):
		h.renderError(w, http.StatusBadRequest, "Payment could not be verified.")
	case errors.Is(err, orders.ErrMissingDetails), errors.Is(err, orders.ErrInvalidItem), errors.Is(err, orders.ErrInvalidStatus):
		h.renderError(w, http.StatusBadRequest, "Invalid order data.")
	default:
		slog.Error("Payment success handling failed", "txnid", fields.Get("txnid"), "error", err)
		h.Events.Error(r.Context(), "payu_success: "+err.Error())
		h.renderError(w, http.StatusInternalServerError, "Payment success handling failed.")
	}
}

func (h *PaymentHandler) Failure(w http.ResponseWriter, r *http.Request) {
	fields := callbackFields(w, r)
	h.Reconciler.HandleFailure(r.Context(), fields)
	h.Templates.Render(w, http.StatusOK, "payment_failure.html", nil)
}

func (h *PaymentHandler) renderError(w http.ResponseWriter, status int, msg string) {
	h.Templates.Render(w, status, "error.html", map[string]any{
		"Title":   http.StatusText(status),
		"Message": msg,
	})
}
