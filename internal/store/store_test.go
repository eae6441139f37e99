package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kouprey/storefront/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Migrate(Migrations()); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return s
}

func testOrder(id, txn string, createdAt time.Time) *models.Order {
	items := []models.OrderItem{
		{OrderID: id, ProductID: "p1", ProductName: "Kurta", Size: "M", Quantity: 2, Price: decimal.RequireFromString("499.5")},
		{OrderID: id, ProductID: "p2", ProductName: "Scarf", Quantity: 1, Price: decimal.NewFromInt(150)},
	}
	return &models.Order{
		ID:              id,
		CustomerName:    "Asha",
		CustomerEmail:   "asha@example.com",
		CustomerPhone:   "9999999999",
		ShippingAddress: "12 MG Road, Pune",
		Total:           models.SumItems(items),
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentPending,
		PaymentGateway:  "payu",
		PayUTxnID:       txn,
		CreatedAt:       createdAt,
		Items:           items,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.Migrate(Migrations()); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

func TestCreateAndGetOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	if err := s.CreateOrder(ctx, testOrder("ORD-1", "TXN1", now)); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	got, err := s.GetOrder(ctx, "ORD-1")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if !got.Total.Equal(decimal.NewFromInt(1149)) {
		t.Errorf("total = %s, want 1149", got.Total)
	}
	if len(got.Items) != 2 || got.Items[0].ProductID != "p1" || got.Items[0].Quantity != 2 {
		t.Errorf("unexpected items: %+v", got.Items)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, now)
	}

	if _, err := s.GetOrder(ctx, "ORD-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDuplicateTxnIsRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.CreateOrder(ctx, testOrder("ORD-1", "TXN1", now)); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	err := s.CreateOrder(ctx, testOrder("ORD-2", "TXN1", now))
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	// The failed insert must not leave orphan items behind.
	var n int
	if err := s.DB.QueryRow(`SELECT COUNT(*) FROM order_items WHERE order_id = 'ORD-2'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected no items for rejected order, got %d", n)
	}

	// Orders without a txn id never collide.
	if err := s.CreateOrder(ctx, testOrder("ORD-3", "", now)); err != nil {
		t.Fatalf("CreateOrder without txn: %v", err)
	}
	if err := s.CreateOrder(ctx, testOrder("ORD-4", "", now)); err != nil {
		t.Fatalf("second CreateOrder without txn: %v", err)
	}

	found, err := s.FindOrderByTxn(ctx, "payu", "TXN1")
	if err != nil || found.ID != "ORD-1" {
		t.Fatalf("FindOrderByTxn: %v %+v", err, found)
	}
	if _, err := s.FindOrderByTxn(ctx, "payu", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty txn should not match, got %v", err)
	}
}

func TestApplyPayment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.CreateOrder(ctx, testOrder("ORD-1", "TXN1", time.Now().UTC())); err != nil {
		t.Fatal(err)
	}

	u := PaymentUpdate{
		CustomerName:    "Asha Rao",
		CustomerEmail:   "asha@example.com",
		ShippingAddress: "New address",
		Status:          models.StatusPacked,
		PaymentStatus:   models.PaymentPaid,
		PaymentGateway:  "payu",
		PayUTxnID:       "TXN1",
	}
	for i := 0; i < 2; i++ {
		if err := s.ApplyPayment(ctx, "ORD-1", u); err != nil {
			t.Fatalf("ApplyPayment #%d: %v", i, err)
		}
	}

	got, err := s.GetOrder(ctx, "ORD-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusPacked || got.PaymentStatus != models.PaymentPaid || got.CustomerName != "Asha Rao" {
		t.Fatalf("payment not applied: %+v", got)
	}
	if !got.Total.Equal(decimal.NewFromInt(1149)) || len(got.Items) != 2 {
		t.Fatalf("total or items changed: %s %d", got.Total, len(got.Items))
	}

	if err := s.ApplyPayment(ctx, "ORD-missing", u); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyPaymentWithoutTxnKeepsKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.CreateOrder(ctx, testOrder("ORD-1", "TXN1", time.Now().UTC())); err != nil {
		t.Fatal(err)
	}

	err := s.ApplyPayment(ctx, "ORD-1", PaymentUpdate{
		CustomerName:   "Asha",
		Status:         models.StatusPacked,
		PaymentStatus:  models.PaymentPaid,
		PaymentGateway: "payu",
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.FindOrderByTxn(ctx, "payu", "TXN1")
	if err != nil {
		t.Fatalf("order no longer found by its txn: %v", err)
	}
	if got.ID != "ORD-1" || got.PaymentStatus != models.PaymentPaid {
		t.Fatalf("unexpected order %+v", got)
	}
}

func TestUpdateFulfillmentKeepsShippingID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.CreateOrder(ctx, testOrder("ORD-1", "TXN1", time.Now().UTC())); err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		status     models.OrderStatus
		shippingID string
		want       string
	}{
		{models.StatusShipped, "AWB1", "AWB1"},
		{models.StatusDelivered, "", "AWB1"},
		{models.StatusDelivered, "AWB2", "AWB2"},
	}
	for _, st := range steps {
		if err := s.UpdateFulfillment(ctx, "ORD-1", st.status, st.shippingID); err != nil {
			t.Fatal(err)
		}
		got, err := s.GetOrder(ctx, "ORD-1")
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != st.status || got.ShippingID != st.want {
			t.Fatalf("after %s/%q: got %s/%q", st.status, st.shippingID, got.Status, got.ShippingID)
		}
	}
}

func TestMigrateFailureIsNotRecorded(t *testing.T) {
	s := newTestStore(t)
	bad := fstest.MapFS{
		"900_broken.sql": {Data: []byte("ALTER TABLE orders ADD COLUMN customer_name TEXT;")},
	}
	if err := s.Migrate(bad); err == nil {
		t.Fatal("expected the failing migration to be reported")
	}
	if isApplied(s.DB, "900_broken.sql") {
		t.Error("failed migration must not be recorded as applied")
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i, id := range []string{"ORD-1", "ORD-2", "ORD-3"} {
		o := testOrder(id, "", base.Add(time.Duration(i)*time.Minute))
		if id == "ORD-2" {
			o.CustomerPhone = "1111"
		}
		if err := s.CreateOrder(ctx, o); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.ListOrders(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "ORD-3" || all[2].ID != "ORD-1" {
		t.Fatalf("unexpected order: %v", ids(all))
	}

	page, err := s.ListOrders(ctx, 1, 1)
	if err != nil || len(page) != 1 || page[0].ID != "ORD-2" {
		t.Fatalf("unexpected page: %v %v", ids(page), err)
	}

	count, err := s.CountOrders(ctx)
	if err != nil || count != 3 {
		t.Fatalf("CountOrders = %d, %v", count, err)
	}

	byPhone, err := s.OrdersByPhone(ctx, "1111")
	if err != nil || len(byPhone) != 1 || byPhone[0].ID != "ORD-2" {
		t.Fatalf("OrdersByPhone: %v %v", ids(byPhone), err)
	}

	if err := s.UpdateFulfillment(ctx, "ORD-1", models.StatusShipped, "AWB1"); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyPayment(ctx, "ORD-3", PaymentUpdate{Status: models.StatusPacked, PaymentStatus: models.PaymentPaid}); err != nil {
		t.Fatal(err)
	}
	unpaid, err := s.UnpaidOrders(ctx, 10)
	if err != nil || len(unpaid) != 2 {
		t.Fatalf("UnpaidOrders: %v %v", ids(unpaid), err)
	}
}

func ids(orders []models.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func TestSystemLogs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i, msg := range []string{"boot", "payu_success txnid=TXN1", "payu_failure txnid=TXN2", "db: slow"} {
		e := models.LogEntry{Level: "info", Message: msg, CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := s.InsertLog(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := s.RecentLogs(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 || recent[0].Message != "payu_success txnid=TXN1" || recent[2].Message != "db: slow" {
		t.Fatalf("unexpected recent logs: %+v", recent)
	}

	at, err := s.LastLogWithPrefix(ctx, "payu_")
	if err != nil {
		t.Fatal(err)
	}
	if want := base.Add(2 * time.Second); !at.Equal(want) {
		t.Fatalf("last payu event at %v, want %v", at, want)
	}
	if _, err := s.LastLogWithPrefix(ctx, "nothing_"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUsersAndAudit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, "staff@example.com", "hash", models.RoleStore); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateUser(ctx, "staff@example.com", "hash", models.RoleStore); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	u, err := s.GetUserByEmail(ctx, "staff@example.com")
	if err != nil || u == nil || u.Role != models.RoleStore {
		t.Fatalf("GetUserByEmail: %+v %v", u, err)
	}
	if u, err := s.GetUserByEmail(ctx, "nobody@example.com"); err != nil || u != nil {
		t.Fatalf("expected nil user, got %+v %v", u, err)
	}

	if err := s.UpdateUserPassword(ctx, "staff@example.com", models.RoleMaster, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("role mismatch should be not found, got %v", err)
	}
	if err := s.DeleteUser(ctx, "staff@example.com", models.RoleStore); err != nil {
		t.Fatal(err)
	}

	if err := s.AddAuditLog(ctx, "master@example.com", "delete_store_user", "staff@example.com", ""); err != nil {
		t.Fatal(err)
	}
	logs, err := s.ListAuditLogs(ctx, 100)
	if err != nil || len(logs) != 1 || logs[0].Action != "delete_store_user" {
		t.Fatalf("ListAuditLogs: %+v %v", logs, err)
	}
}

func TestProductsAndStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &models.Product{
		ID: "p1", Name: "Kurta", Category: "women", Price: decimal.NewFromInt(999),
		Sizes: []string{"S", "M"}, Stock: 5, Availability: "low_stock",
		Images: []string{"/uploads/a.jpg"}, UpdatedAt: time.Now().UTC(),
	}
	if err := s.CreateProduct(ctx, p); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateProduct(ctx, p); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	got, err := s.GetProduct(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Sizes) != 2 || len(got.Images) != 1 || !got.Price.Equal(decimal.NewFromInt(999)) {
		t.Fatalf("unexpected product %+v", got)
	}

	order := testOrder("ORD-1", "TXN1", time.Now().UTC())
	order.PaymentStatus = models.PaymentPaid
	order.Status = models.StatusPacked
	if err := s.CreateOrder(ctx, order); err != nil {
		t.Fatal(err)
	}

	stats, err := s.GetDashboardStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalProducts != 1 || stats.TotalOrders != 1 || !stats.PaidRevenue.Equal(decimal.NewFromInt(1149)) {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.OrdersByStatus["packed"] != 1 {
		t.Fatalf("unexpected status counts %+v", stats.OrdersByStatus)
	}

	if err := s.DeleteProduct(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteProduct(ctx, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReviews(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i, pid := range []string{"p1", "p1", "p2", "p1"} {
		rv := &models.Review{
			ProductID:   pid,
			DisplayName: "Asha",
			Email:       "asha@example.com",
			Rating:      i + 1,
			Content:     "Good",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.AddReview(ctx, rv); err != nil {
			t.Fatal(err)
		}
		if rv.ID == 0 {
			t.Fatal("expected generated id")
		}
	}

	got, err := s.ListReviews(ctx, "p1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Rating != 4 || got[1].Rating != 2 {
		t.Fatalf("expected newest two p1 reviews, got %+v", got)
	}
	if got[0].Email != "asha@example.com" {
		t.Errorf("email not stored: %+v", got[0])
	}

	none, err := s.ListReviews(ctx, "missing", 10)
	if err != nil || none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil list, got %v %v", none, err)
	}
}
