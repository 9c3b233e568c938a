package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := "sk_test_abc123"
	body := []byte(`{"event":"charge.success","data":{"amount":200000}}`)

	if !VerifySignature(secret, body, sign(secret, body)) {
		t.Fatal("valid signature rejected")
	}
	if VerifySignature(secret, body, sign("wrong-secret", body)) {
		t.Fatal("signature from wrong secret accepted")
	}
	if VerifySignature(secret, append(body, ' '), sign(secret, body)) {
		t.Fatal("signature over different body accepted")
	}
	if VerifySignature(secret, body, "") {
		t.Fatal("empty signature accepted")
	}
}

func TestMinorUnitConversion(t *testing.T) {
	// 200000 kobo is 2000 naira.
	if got := FromMinorUnits(200000); got != 2000 {
		t.Fatalf("FromMinorUnits(200000) = %v, want 2000", got)
	}
	if got := ToMinorUnits(2000); got != 200000 {
		t.Fatalf("ToMinorUnits(2000) = %d, want 200000", got)
	}
	// Fractional naira survives the round trip.
	if got := ToMinorUnits(99.99); got != 9999 {
		t.Fatalf("ToMinorUnits(99.99) = %d, want 9999", got)
	}
}

func TestEventDecoding(t *testing.T) {
	raw := []byte(`{
		"event": "charge.success",
		"data": {
			"amount": 200000,
			"reference": "ref-1",
			"status": "success",
			"metadata": {"type": "wallet_funding", "wallet_id": 9, "user_id": 3}
		}
	}`)

	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if event.Event != "charge.success" {
		t.Fatalf("event type: got %q", event.Event)
	}
	if event.Data.Metadata.Type != "wallet_funding" {
		t.Fatalf("metadata type: got %q", event.Data.Metadata.Type)
	}
	if event.Data.Metadata.WalletID == nil || *event.Data.Metadata.WalletID != 9 {
		t.Fatal("wallet_id not decoded")
	}
	if event.Data.Metadata.OrderID != nil {
		t.Fatal("order_id should be nil for wallet_funding")
	}
}

func TestInitializeTransaction(t *testing.T) {
	var gotReq initializeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/initialize" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk_test_abc123" {
			t.Fatalf("missing bearer auth, got %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/abc","access_code":"abc","reference":"ref-1"}}`))
	}))
	defer server.Close()

	client := NewClient("sk_test_abc123")
	client.BaseURL = server.URL

	url, err := client.InitializeTransaction("shopper@example.com", 2500, "ref-1", Metadata{Type: "wallet_funding"})
	if err != nil {
		t.Fatalf("InitializeTransaction returned error: %v", err)
	}
	if url != "https://checkout.paystack.com/abc" {
		t.Fatalf("authorization URL: got %q", url)
	}
	if gotReq.Amount != 250000 {
		t.Fatalf("amount should be sent in kobo: got %d want 250000", gotReq.Amount)
	}
}

func TestInitializeTransactionAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":false,"message":"Invalid key"}`))
	}))
	defer server.Close()

	client := NewClient("sk_bad")
	client.BaseURL = server.URL

	if _, err := client.InitializeTransaction("shopper@example.com", 100, "ref-2", Metadata{}); err == nil {
		t.Fatal("expected error for status=false response")
	}
}
