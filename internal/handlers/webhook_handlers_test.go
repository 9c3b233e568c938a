package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"database/sql/driver"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// newWebhookRouter builds a router with only the webhook route mounted. The
// handlers carry a nil DB: any test that reaches a database call would panic,
// which is exactly the point for the reject-before-mutation cases.
func newWebhookRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &Handlers{}
	router := gin.New()
	router.POST("/v1/webhooks/paystack", h.PaystackWebhook)
	return router
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaystackWebhookRejectsInvalidSignature(t *testing.T) {
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_secret")
	router := newWebhookRouter()

	body := []byte(`{"event":"charge.success","data":{"amount":1000000,"reference":"order-abc","metadata":{"type":"direct_payment","order_id":1}}}`)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set("x-paystack-signature", signBody("wrong_secret", body))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad signature, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPaystackWebhookRejectsMissingSignature(t *testing.T) {
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_secret")
	router := newWebhookRouter()

	body := []byte(`{"event":"charge.success"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/paystack", bytes.NewReader(body))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing signature, got %d", w.Code)
	}
}

func TestPaystackWebhookIgnoresOtherEvents(t *testing.T) {
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_secret")
	router := newWebhookRouter()

	body := []byte(`{"event":"charge.failed","data":{"reference":"order-abc"}}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set("x-paystack-signature", signBody("sk_test_secret", body))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for ignored event, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPaystackWebhookIgnoresUnknownMetadataType(t *testing.T) {
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_secret")
	router := newWebhookRouter()

	body := []byte(`{"event":"charge.success","data":{"amount":1000,"reference":"x","metadata":{"type":"subscription"}}}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set("x-paystack-signature", signBody("sk_test_secret", body))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown metadata type, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPaystackWebhookRejectsMalformedJSON(t *testing.T) {
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_secret")
	router := newWebhookRouter()

	body := []byte(`{"event":`)
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set("x-paystack-signature", signBody("sk_test_secret", body))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed payload, got %d", w.Code)
	}
}

// postSignedWebhook signs body with the configured secret and delivers it.
func postSignedWebhook(router *gin.Engine, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set("x-paystack-signature", signBody("sk_test_secret", body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func newStubWebhookRouter(conn *stubConn) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &Handlers{DB: newStubDB(conn)}
	router := gin.New()
	router.POST("/v1/webhooks/paystack", h.PaystackWebhook)
	return router
}

func TestPaystackWebhookReplayIsNoOp(t *testing.T) {
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_secret")

	// The conditional update matches nothing because the order is already
	// Paid; the follow-up lookup confirms it.
	conn := &stubConn{
		execResults: map[string]stubResult{
			"UPDATE orders": {rowsAffected: 0},
		},
		queryRows: map[string]func() *stubRows{
			"SELECT payment_status": func() *stubRows {
				return &stubRows{
					columns: []string{"payment_status"},
					values:  [][]driver.Value{{"Paid"}},
				}
			},
		},
	}
	router := newStubWebhookRouter(conn)

	body := []byte(`{"event":"charge.success","data":{"amount":2500000,"reference":"order-abc","metadata":{"type":"direct_payment","order_id":7}}}`)
	w := postSignedWebhook(router, body)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for replayed event, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Order already processed") {
		t.Fatalf("expected already-processed acknowledgement, got %s", w.Body.String())
	}
	if enqueues := conn.execsMatching("INSERT INTO outbox_jobs"); len(enqueues) != 0 {
		t.Fatalf("replayed event enqueued %d jobs, want 0", len(enqueues))
	}
}

func TestPaystackWebhookWalletFundingWritesNoTransactionRow(t *testing.T) {
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_secret")

	conn := &stubConn{}
	router := newStubWebhookRouter(conn)

	body := []byte(`{"event":"charge.success","data":{"amount":500000,"reference":"fund-abc","metadata":{"type":"wallet_funding","user_id":3,"wallet_id":5}}}`)
	w := postSignedWebhook(router, body)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	credits := conn.execsMatching("UPDATE wallets")
	if len(credits) != 1 {
		t.Fatalf("expected exactly one wallet credit, got %d", len(credits))
	}
	// A plain top-up credits the balance and nothing else.
	if writes := conn.execsMatching("INSERT INTO transactions"); len(writes) != 0 {
		t.Fatalf("wallet funding wrote %d transaction rows, want 0", len(writes))
	}
}

func TestPaystackWebhookDirectPaymentScopedByUser(t *testing.T) {
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_secret")

	// The event names a user that does not own the order: the scoped update
	// matches nothing and the scoped lookup finds nothing either.
	conn := &stubConn{
		execResults: map[string]stubResult{
			"UPDATE orders": {rowsAffected: 0},
		},
	}
	router := newStubWebhookRouter(conn)

	body := []byte(`{"event":"charge.success","data":{"amount":2500000,"reference":"order-abc","metadata":{"type":"direct_payment","order_id":7,"user_id":99}}}`)
	w := postSignedWebhook(router, body)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a user/order mismatch, got %d: %s", w.Code, w.Body.String())
	}

	updates := conn.execsMatching("UPDATE orders")
	if len(updates) != 1 {
		t.Fatalf("expected one order update attempt, got %d", len(updates))
	}
	if !strings.Contains(updates[0].query, "AND user_id = ?") {
		t.Fatalf("order update is not scoped by user: %s", updates[0].query)
	}
	lastArg := updates[0].args[len(updates[0].args)-1]
	if lastArg != int64(99) {
		t.Fatalf("expected user scope argument 99, got %v", lastArg)
	}
	if enqueues := conn.execsMatching("INSERT INTO outbox_jobs"); len(enqueues) != 0 {
		t.Fatalf("mismatched event enqueued %d jobs, want 0", len(enqueues))
	}
}

func TestPaystackWebhookDirectPaymentEnqueuesSideEffects(t *testing.T) {
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_secret")

	conn := &stubConn{
		queryRows: map[string]func() *stubRows{
			"SELECT user_id, reference, total": func() *stubRows {
				return &stubRows{
					columns: []string{"user_id", "reference", "total"},
					values:  [][]driver.Value{{int64(3), "order-abc", 25000.0}},
				}
			},
		},
	}
	router := newStubWebhookRouter(conn)

	body := []byte(`{"event":"charge.success","data":{"amount":2500000,"reference":"order-abc","metadata":{"type":"direct_payment","order_id":7,"user_id":3}}}`)
	w := postSignedWebhook(router, body)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	enqueues := conn.execsMatching("INSERT INTO outbox_jobs")
	if len(enqueues) != 3 {
		t.Fatalf("expected cashback, email and push jobs, got %d enqueues", len(enqueues))
	}
	references := map[string]bool{}
	for _, call := range enqueues {
		// enqueueJob binds (job_type, reference, payload, status, ...).
		references[call.args[1].(string)] = true
	}
	for _, want := range []string{"cashback:order-abc", "email:order-abc", "push:order-abc"} {
		if !references[want] {
			t.Fatalf("missing job reference %q in %v", want, references)
		}
	}
}

func TestCashbackAmountFor(t *testing.T) {
	tests := []struct {
		name      string
		subtotal  float64
		threshold float64
		rate      float64
		want      float64
	}{
		{"below threshold earns nothing", 9999.99, 10000, 0.02, 0},
		{"at threshold earns rate", 10000, 10000, 0.02, 200},
		{"above threshold", 25000, 10000, 0.02, 500},
		{"rounds to two decimals", 10001, 10000, 0.02, 200.02},
		{"zero rate", 50000, 10000, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cashbackAmountFor(tt.subtotal, tt.threshold, tt.rate)
			if got != tt.want {
				t.Fatalf("cashbackAmountFor(%v, %v, %v) = %v, want %v",
					tt.subtotal, tt.threshold, tt.rate, got, tt.want)
			}
		})
	}
}

func TestCashbackConfigDefaults(t *testing.T) {
	t.Setenv("CASHBACK_THRESHOLD", "")
	t.Setenv("CASHBACK_RATE", "")

	if got := cashbackThreshold(); got != defaultCashbackThreshold {
		t.Fatalf("expected default threshold, got %v", got)
	}
	if got := cashbackRate(); got != defaultCashbackRate {
		t.Fatalf("expected default rate, got %v", got)
	}

	t.Setenv("CASHBACK_THRESHOLD", "5000")
	t.Setenv("CASHBACK_RATE", "0.05")
	if got := cashbackThreshold(); got != 5000 {
		t.Fatalf("expected threshold override, got %v", got)
	}
	if got := cashbackRate(); got != 0.05 {
		t.Fatalf("expected rate override, got %v", got)
	}

	// Out-of-range values fall back to the defaults.
	t.Setenv("CASHBACK_RATE", "1.5")
	if got := cashbackRate(); got != defaultCashbackRate {
		t.Fatalf("expected default for out-of-range rate, got %v", got)
	}
}
