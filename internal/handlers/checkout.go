package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"

	"github.com/kouprey/storefront/internal/eventlog"
	"github.com/kouprey/storefront/internal/payment"
)

type CheckoutHandler struct {
	Initiator *payment.Initiator
	Templates *TemplateCache
	Events    *eventlog.Recorder
	Brand     string
}

var checkoutFields = []string{"full_name", "email", "phone", "address_line", "landmark", "city", "state", "zip"}

func (h *CheckoutHandler) Form(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "", map[string]string{}, r.URL.Query().Get("cart"))
}

func (h *CheckoutHandler) render(w http.ResponseWriter, r *http.Request, status int, errMsg string, values map[string]string, cart string) {
	h.Templates.Render(w, status, "checkout.html", map[string]any{
		"Brand":     h.Brand,
		"CsrfField": csrf.TemplateField(r),
		"Error":     errMsg,
		"Values":    values,
		"Cart":      cart,
	})
}

func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "Invalid form data.", map[string]string{}, "")
		return
	}
	values := make(map[string]string, len(checkoutFields))
	for _, f := range checkoutFields {
		values[f] = strings.TrimSpace(r.PostFormValue(f))
	}
	cartRaw := r.PostFormValue("cart")

	var cart []payment.CartLine
	if err := json.Unmarshal([]byte(cartRaw), &cart); err != nil {
		h.render(w, r, http.StatusBadRequest, "Your bag could not be read. Please add the items again.", values, cartRaw)
		return
	}

	handoff, err := h.Initiator.Begin(r.Context(), payment.CheckoutRequest{
		Cart:        cart,
		FullName:    values["full_name"],
		Email:       values["email"],
		Phone:       values["phone"],
		AddressLine: values["address_line"],
		Landmark:    values["landmark"],
		City:        values["city"],
		State:       values["state"],
		Zip:         values["zip"],
	})
	switch {
	case err == nil:
	case errors.Is(err, payment.ErrInvalidCart):
		h.render(w, r, http.StatusBadRequest, "Your bag is empty or has an invalid item.", values, cartRaw)
		return
	case errors.Is(err, payment.ErrMissingBuyer):
		h.render(w, r, http.StatusBadRequest, "Please fill in your name, email and address.", values, cartRaw)
		return
	case errors.Is(err, payment.ErrGatewayNotConfigured):
		slog.Error("Checkout attempted without PayU credentials")
		h.render(w, r, http.StatusServiceUnavailable, "Online payment is not available right now.", values, cartRaw)
		return
	case errors.Is(err, payment.ErrOrderUnavailable):
		h.Events.Error(r.Context(), "checkout: "+err.Error())
		h.render(w, r, http.StatusServiceUnavailable, "Unable to start PayU order. Please try again.", values, cartRaw)
		return
	default:
		h.Events.Error(r.Context(), "checkout: "+err.Error())
		h.render(w, r, http.StatusInternalServerError, "Something went wrong. Please try again.", values, cartRaw)
		return
	}

	slog.Info("Checkout started", "order_id", handoff.OrderID, "txnid", handoff.TxnID, "amount", handoff.Amount)

	nonce := newNonce()
	w.Header().Set("Content-Security-Policy", strings.Replace(defaultCSP, "script-src 'self'", "script-src 'self' 'nonce-"+nonce+"'", 1))
	w.Header().Set("Cache-Control", "no-store")
	h.Templates.Render(w, http.StatusOK, "payu_redirect.html", map[string]any{
		"ActionURL": template.URL(handoff.ActionURL),
		"Fields":    handoff.Fields,
		"Nonce":     nonce,
	})
}

func newNonce() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		slog.Error("Failed to read random bytes", "error", err)
	}
	return base64.StdEncoding.EncodeToString(b)
}
