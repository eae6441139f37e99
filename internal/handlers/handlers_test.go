package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"github.com/kouprey/storefront/internal/eventlog"
	"github.com/kouprey/storefront/internal/media"
	"github.com/kouprey/storefront/internal/models"
	"github.com/kouprey/storefront/internal/orders"
	"github.com/kouprey/storefront/internal/payment"
	"github.com/kouprey/storefront/internal/store"
)

const (
	testMasterEmail    = "owner@kouprey.test"
	testMasterPassword = "master-pass"
)

type testEnv struct {
	t         *testing.T
	store     *store.Store
	events    *eventlog.Recorder
	uploadDir string
	handler   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(store.Migrations()); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	templates := NewTemplateCache()
	if err := templates.Load(Templates()); err != nil {
		t.Fatalf("Failed to load templates: %v", err)
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := eventlog.NewRecorder(db, nil, quiet)
	svc := orders.NewService(db)
	initiator := payment.NewInitiator(svc, payment.GatewayConfig{
		Name:        "payu",
		Key:         "testkey",
		Salt:        "testsalt",
		ActionURL:   "https://test.payu.in/_payment",
		SuccessURL:  "http://localhost/payu/success",
		FailureURL:  "http://localhost/payu/failure",
		ProductInfo: "Kouprey order",
	})
	reconciler := payment.NewReconciler(svc, events, "payu", quiet)

	uploadDir := t.TempDir()
	blobs, err := media.NewLocalStore(uploadDir)
	if err != nil {
		t.Fatalf("Failed to create blob store: %v", err)
	}

	masterHash, err := bcrypt.GenerateFromPassword([]byte(testMasterPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	sessionStore := sessions.NewCookieStore(bytes.Repeat([]byte("k"), 32))
	rt := &Router{
		Home:      &HomeHandler{Store: db, Templates: templates, Events: events, Brand: "Kouprey"},
		Checkout:  &CheckoutHandler{Initiator: initiator, Templates: templates, Events: events, Brand: "Kouprey"},
		Payment:   &PaymentHandler{Reconciler: reconciler, Templates: templates, Events: events},
		Orders:    &OrderHandler{Store: db, Orders: svc, Events: events},
		Products:  &ProductHandler{Store: db, Events: events},
		Reviews:   &ReviewHandler{Store: db, Events: events},
		Uploads:   &UploadHandler{Uploader: media.NewUploader(blobs, "/uploads"), Events: events},
		Health:    &HealthHandler{Store: db, Events: events, Started: time.Now().UTC()},
		Hash:      &HashHandler{Signer: payment.SHA512Signer{}},
		Sessions:  sessionStore,
		UploadDir: uploadDir,
		Auth: &AuthHandler{
			Store:              db,
			SessionStore:       sessionStore,
			MasterEmail:        testMasterEmail,
			MasterPasswordHash: masterHash,
		},
		LoginLimiter: NewRateLimiter(t.Context(), 100, time.Minute),
	}

	return &testEnv{t: t, store: db, events: events, uploadDir: uploadDir, handler: rt.Routes()}
}

func (e *testEnv) do(req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) json(method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	e.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			e.t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return e.do(req, cookies)
}

func (e *testEnv) form(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req, nil)
}

func (e *testEnv) login(path, email, password string) []*http.Cookie {
	e.t.Helper()
	rec := e.json(http.MethodPost, path, map[string]string{"email": email, "password": password}, nil)
	if rec.Code != http.StatusOK {
		e.t.Fatalf("login %s: expected 200, got %d: %s", email, rec.Code, rec.Body.String())
	}
	return rec.Result().Cookies()
}

func (e *testEnv) loginMaster() []*http.Cookie {
	return e.login("/api/master/login", testMasterEmail, testMasterPassword)
}

func (e *testEnv) loginStore() []*http.Cookie {
	e.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("staff-pass"), bcrypt.MinCost)
	if err != nil {
		e.t.Fatal(err)
	}
	if err := e.store.CreateUser(e.t.Context(), "staff@kouprey.test", string(hash), models.RoleStore); err != nil {
		e.t.Fatalf("Failed to create staff user: %v", err)
	}
	return e.login("/api/store/login", "staff@kouprey.test", "staff-pass")
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func sampleOrder() map[string]any {
	return map[string]any{
		"customer_name":    "Asha Rao",
		"customer_email":   "asha@example.com",
		"customer_phone":   "9876543210",
		"shipping_address": "12 MG Road, Bengaluru, KA 560001",
		"items": []map[string]any{
			{"product_id": "kouprey-000101", "product_name": "Linen Shirt", "size": "M", "quantity": 2, "price": 499.5},
		},
	}
}

func (e *testEnv) createOrder(body map[string]any) string {
	e.t.Helper()
	rec := e.json(http.MethodPost, "/api/orders", body, nil)
	if rec.Code != http.StatusCreated {
		e.t.Fatalf("create order: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	return decodeBody[map[string]string](e.t, rec)["id"]
}

func httptestGet(path string) *http.Request {
	return httptest.NewRequest(http.MethodGet, path, nil)
}
