package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tobi-ade/storefront-golang/internal/models"
	"github.com/tobi-ade/storefront-golang/internal/paystack"
)

const maxWebhookBodyBytes = 1 << 20 // 1 MiB

// PaystackWebhook receives payment events from the provider. The signature
// is verified over the raw body before anything else happens; an invalid
// signature gets a 401 with no state change.
func (h *Handlers) PaystackWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	secret := os.Getenv("PAYSTACK_SECRET_KEY")
	signature := c.GetHeader(paystack.SignatureHeader)
	if !paystack.VerifySignature(secret, body, signature) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	var event paystack.Event
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event payload"})
		return
	}

	// Only successful charges change state. Everything else is acknowledged
	// so the provider stops redelivering it.
	if event.Event != "charge.success" {
		c.JSON(http.StatusOK, gin.H{"message": "Event ignored"})
		return
	}

	switch event.Data.Metadata.Type {
	case "wallet_funding":
		h.handleWalletFunding(c, event.Data)
	case "direct_payment":
		h.handleDirectPayment(c, event.Data)
	default:
		log.Printf("webhook: unknown metadata type %q on reference %s", event.Data.Metadata.Type, event.Data.Reference)
		c.JSON(http.StatusOK, gin.H{"message": "Event ignored"})
	}
}

// handleWalletFunding credits the wallet named in the event metadata. The
// credit is a single atomic increment; no transaction row is written for a
// plain top-up.
func (h *Handlers) handleWalletFunding(c *gin.Context, data paystack.EventData) {
	amount := paystack.FromMinorUnits(data.Amount)

	var walletID int64
	switch {
	case data.Metadata.WalletID != nil:
		walletID = *data.Metadata.WalletID
	case data.Metadata.UserID != nil:
		err := h.DB.QueryRow(`SELECT id FROM wallets WHERE user_id = ?`, *data.Metadata.UserID).Scan(&walletID)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Event metadata names no wallet"})
		return
	}

	if err := creditWallet(h.DB, walletID, amount); err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to credit wallet"})
		return
	}

	log.Printf("webhook: credited wallet %d with %.2f (reference %s)", walletID, amount, data.Reference)
	c.JSON(http.StatusOK, gin.H{"message": "Wallet funded"})
}

// handleDirectPayment marks the order in the event metadata as paid and
// enqueues the post-payment side effects. The status flip and the enqueue
// share one transaction, and the flip is conditional on the order not
// already being paid, so a redelivered event cannot double anything.
func (h *Handlers) handleDirectPayment(c *gin.Context, data paystack.EventData) {
	if data.Metadata.OrderID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Event metadata names no order"})
		return
	}
	orderID := *data.Metadata.OrderID

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	// 1. --- Flip the order to Paid, but only once ---
	// When the metadata names a user the flip is scoped to that owner, so
	// an event carrying the wrong user cannot touch someone else's order.
	update := `
		UPDATE orders SET payment_status = ?, updated_at = ?
		WHERE id = ? AND payment_status <> ?`
	updateArgs := []any{models.PaymentStatusPaid, time.Now(), orderID, models.PaymentStatusPaid}
	if data.Metadata.UserID != nil {
		update += ` AND user_id = ?`
		updateArgs = append(updateArgs, *data.Metadata.UserID)
	}
	result, err := tx.Exec(update, updateArgs...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
		return
	}
	affected, err := result.RowsAffected()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
		return
	}
	if affected == 0 {
		lookup := `SELECT payment_status FROM orders WHERE id = ?`
		lookupArgs := []any{orderID}
		if data.Metadata.UserID != nil {
			lookup += ` AND user_id = ?`
			lookupArgs = append(lookupArgs, *data.Metadata.UserID)
		}
		var status string
		err := tx.QueryRow(lookup, lookupArgs...).Scan(&status)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order already processed"})
		return
	}

	var userID int64
	var orderRef string
	var total float64
	err = tx.QueryRow(`SELECT user_id, reference, total FROM orders WHERE id = ?`, orderID).
		Scan(&userID, &orderRef, &total)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	// 2. --- Enqueue the side effects ---
	// Each job reference is derived from the order reference, so even a
	// race that gets past the conditional update cannot enqueue twice.
	if cashback := cashbackAmountFor(total, cashbackThreshold(), cashbackRate()); cashback > 0 {
		payload := cashbackJobPayload{UserID: userID, OrderID: orderID, Amount: cashback}
		if err := enqueueJob(tx, models.JobTypeCashback, "cashback:"+orderRef, payload); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue cashback"})
			return
		}
	}

	emailJob := emailJobPayload{UserID: userID, OrderID: orderID, OrderRef: orderRef, Total: total}
	if err := enqueueJob(tx, models.JobTypeEmail, "email:"+orderRef, emailJob); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue email"})
		return
	}

	pushJob := pushJobPayload{
		UserID: userID,
		Title:  "Payment received",
		Body:   fmt.Sprintf("Your order %s has been paid. Total: %.2f", orderRef, total),
	}
	if err := enqueueJob(tx, models.JobTypePush, "push:"+orderRef, pushJob); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue push"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit payment"})
		return
	}

	log.Printf("webhook: order %d marked paid (reference %s)", orderID, orderRef)
	c.JSON(http.StatusOK, gin.H{"message": "Order marked as paid"})
}

// enqueueJob inserts an outbox row inside the caller's transaction. A
// duplicate reference is treated as already enqueued.
func enqueueJob(tx *sql.Tx, jobType, reference string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = tx.Exec(`
		INSERT INTO outbox_jobs (job_type, reference, payload, status, attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)
		ON DUPLICATE KEY UPDATE id = id`,
		jobType, reference, string(raw), models.JobStatusPending, now, now)
	return err
}

const (
	defaultCashbackThreshold = 10000
	defaultCashbackRate      = 0.02
)

func cashbackThreshold() float64 {
	if raw := os.Getenv("CASHBACK_THRESHOLD"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 {
			return v
		}
	}
	return defaultCashbackThreshold
}

func cashbackRate() float64 {
	if raw := os.Getenv("CASHBACK_RATE"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 && v <= 1 {
			return v
		}
	}
	return defaultCashbackRate
}

// cashbackAmountFor returns the cashback an order subtotal earns, rounded to
// two decimal places. Subtotals below the threshold earn nothing.
func cashbackAmountFor(subtotal, threshold, rate float64) float64 {
	if subtotal < threshold {
		return 0
	}
	return math.Round(subtotal*rate*100) / 100
}
