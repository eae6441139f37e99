package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/kouprey/storefront/internal/models"
)

func TestCreateOrderValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		mutate  func(map[string]any)
		want    int
		wantErr string
	}{
		{"valid", func(map[string]any) {}, http.StatusCreated, ""},
		{"missing name", func(b map[string]any) { b["customer_name"] = " " }, http.StatusBadRequest, "Missing order details"},
		{"missing address", func(b map[string]any) { delete(b, "shipping_address") }, http.StatusBadRequest, "Missing order details"},
		{"no items", func(b map[string]any) { b["items"] = []any{} }, http.StatusBadRequest, "Missing order details"},
		{"unknown status", func(b map[string]any) { b["status"] = "lost" }, http.StatusBadRequest, ""},
		{"zero quantity", func(b map[string]any) {
			b["items"] = []map[string]any{{"product_id": "p", "product_name": "P", "quantity": 0, "price": 10}}
		}, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := sampleOrder()
			tt.mutate(body)
			rec := env.json(http.MethodPost, "/api/orders", body, nil)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if tt.wantErr != "" {
				if got := decodeBody[map[string]string](t, rec)["error"]; got != tt.wantErr {
					t.Errorf("expected error %q, got %q", tt.wantErr, got)
				}
			}
		})
	}
}

func TestCreateOrderDuplicateTxn(t *testing.T) {
	env := newTestEnv(t)

	body := sampleOrder()
	body["payment_gateway"] = "payu"
	body["payu_txn_id"] = "TXN1700000000001"
	env.createOrder(body)

	rec := env.json(http.MethodPost, "/api/orders", body, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a repeated transaction, got %d", rec.Code)
	}
}

func TestCreateOrderFromForm(t *testing.T) {
	env := newTestEnv(t)

	rec := env.form("/api/orders", map[string][]string{
		"customer_name":    {"Asha Rao"},
		"shipping_address": {"12 MG Road"},
		"items":            {`[{"product_id":"p1","product_name":"Scarf","quantity":1,"price":250}]`},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	id := decodeBody[map[string]string](t, rec)["id"]

	order, err := env.store.GetOrder(t.Context(), id)
	if err != nil {
		t.Fatal(err)
	}
	if order.Total.String() != "250" || len(order.Items) != 1 {
		t.Errorf("unexpected order %+v", order)
	}
}

func TestStaffOrderRoutes(t *testing.T) {
	env := newTestEnv(t)
	id := env.createOrder(sampleOrder())

	if rec := env.json(http.MethodGet, "/api/orders", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a session, got %d", rec.Code)
	}

	staff := env.loginStore()

	rec := env.json(http.MethodGet, "/api/orders?page=1&limit=5", nil, staff)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Total-Count") != "1" {
		t.Errorf("expected X-Total-Count 1, got %q", rec.Header().Get("X-Total-Count"))
	}
	list := decodeBody[[]models.Order](t, rec)
	if len(list) != 1 || list[0].ID != id {
		t.Fatalf("unexpected order list %+v", list)
	}

	rec = env.json(http.MethodGet, "/api/orders/"+id, nil, staff)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeBody[models.Order](t, rec); len(got.Items) != 1 || got.CustomerEmail != "asha@example.com" {
		t.Errorf("unexpected order %+v", got)
	}

	if rec := env.json(http.MethodGet, "/api/orders/ORD-missing", nil, staff); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	env := newTestEnv(t)
	id := env.createOrder(sampleOrder())
	staff := env.loginStore()

	steps := []struct {
		name       string
		path       string
		body       map[string]string
		wantCode   int
		wantStatus models.OrderStatus
	}{
		{"status required", "/api/orders/" + id, map[string]string{}, http.StatusBadRequest, ""},
		{"unknown status", "/api/orders/" + id, map[string]string{"status": "lost"}, http.StatusBadRequest, ""},
		{"pack", "/api/orders/" + id, map[string]string{"status": "packed"}, http.StatusOK, models.StatusPacked},
		{"backwards", "/api/orders/" + id, map[string]string{"status": "pending"}, http.StatusConflict, ""},
		{"shipping id promotes", "/api/orders/" + id, map[string]string{"status": "packed", "shipping_id": "AWB123"}, http.StatusOK, models.StatusShipped},
		{"deliver", "/api/orders/" + id, map[string]string{"status": "delivered"}, http.StatusOK, models.StatusDelivered},
		{"cannot cancel delivered", "/api/orders/" + id, map[string]string{"status": "canceled"}, http.StatusConflict, ""},
		{"unknown order", "/api/orders/ORD-missing", map[string]string{"status": "packed"}, http.StatusNotFound, ""},
	}

	for _, s := range steps {
		rec := env.json(http.MethodPut, s.path, s.body, staff)
		if rec.Code != s.wantCode {
			t.Fatalf("%s: expected %d, got %d: %s", s.name, s.wantCode, rec.Code, rec.Body.String())
		}
		if s.wantStatus != "" {
			if got := decodeBody[map[string]any](t, rec)["status"]; got != string(s.wantStatus) {
				t.Fatalf("%s: expected status %s, got %v", s.name, s.wantStatus, got)
			}
		}
	}

	order, err := env.store.GetOrder(t.Context(), id)
	if err != nil {
		t.Fatal(err)
	}
	if order.Status != models.StatusDelivered || order.ShippingID != "AWB123" {
		t.Errorf("unexpected final order %+v", order)
	}
}

func TestPublicTracking(t *testing.T) {
	env := newTestEnv(t)
	id := env.createOrder(sampleOrder())

	rec := env.json(http.MethodGet, "/api/orders/track/"+id, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "customer_email") {
		t.Errorf("tracking view leaked the email: %s", rec.Body.String())
	}

	rec = env.json(http.MethodGet, "/api/orders/track/phone/9876543210", nil, nil)
	if got := decodeBody[[]map[string]any](t, rec); len(got) != 1 || got[0]["id"] != id {
		t.Errorf("unexpected phone lookup %v", got)
	}

	if rec := env.json(http.MethodGet, "/api/orders/track/ORD-missing", nil, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	page := env.do(httptestGet("/track?phone=9876543210"), nil)
	if page.Code != http.StatusOK || !strings.Contains(page.Body.String(), id) {
		t.Errorf("track page did not list %s: %d", id, page.Code)
	}
}
