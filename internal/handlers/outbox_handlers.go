package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tobi-ade/storefront-golang/internal/models"
	"github.com/tobi-ade/storefront-golang/internal/push"
)

const maxJobAttempts = 5

type cashbackJobPayload struct {
	UserID  int64   `json:"user_id"`
	OrderID int64   `json:"order_id"`
	Amount  float64 `json:"amount"`
}

type emailJobPayload struct {
	UserID   int64   `json:"user_id"`
	OrderID  int64   `json:"order_id"`
	OrderRef string  `json:"order_ref"`
	Total    float64 `json:"total"`
}

type pushJobPayload struct {
	UserID int64  `json:"user_id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// ProcessPendingJobs drains a batch of pending outbox jobs. It is called
// from the background ticker in main; failures are retried on later ticks
// until the attempt budget runs out.
func (h *Handlers) ProcessPendingJobs() {
	rows, err := h.DB.Query(`
		SELECT id, job_type, reference, payload, attempts
		FROM outbox_jobs
		WHERE status = ?
		ORDER BY created_at ASC
		LIMIT 20`, models.JobStatusPending)
	if err != nil {
		log.Printf("outbox: failed to query pending jobs: %v", err)
		return
	}

	var jobs []models.OutboxJob
	for rows.Next() {
		var job models.OutboxJob
		if err := rows.Scan(&job.ID, &job.JobType, &job.Reference, &job.Payload, &job.Attempts); err != nil {
			rows.Close()
			log.Printf("outbox: failed to scan job: %v", err)
			return
		}
		jobs = append(jobs, job)
	}
	rows.Close()

	for _, job := range jobs {
		if err := h.runJob(job); err != nil {
			h.markJobFailed(job, err)
			continue
		}
		h.markJobDone(job)
	}
}

func (h *Handlers) runJob(job models.OutboxJob) error {
	switch job.JobType {
	case models.JobTypeCashback:
		return h.processCashbackJob(job)
	case models.JobTypeEmail:
		return h.processEmailJob(job)
	case models.JobTypePush:
		return h.processPushJob(job)
	default:
		return fmt.Errorf("unknown job type %q", job.JobType)
	}
}

func (h *Handlers) markJobDone(job models.OutboxJob) {
	_, err := h.DB.Exec(`
		UPDATE outbox_jobs SET status = ?, attempts = attempts + 1, updated_at = ? WHERE id = ?`,
		models.JobStatusDone, time.Now(), job.ID)
	if err != nil {
		log.Printf("outbox: failed to mark job %d done: %v", job.ID, err)
	}
}

func (h *Handlers) markJobFailed(job models.OutboxJob, jobErr error) {
	log.Printf("outbox: job %d (%s %s) attempt %d failed: %v",
		job.ID, job.JobType, job.Reference, job.Attempts+1, jobErr)

	status := models.JobStatusPending
	if job.Attempts+1 >= maxJobAttempts {
		status = models.JobStatusFailed
	}
	_, err := h.DB.Exec(`
		UPDATE outbox_jobs SET status = ?, attempts = attempts + 1, last_error = ?, updated_at = ?
		WHERE id = ?`,
		status, jobErr.Error(), time.Now(), job.ID)
	if err != nil {
		log.Printf("outbox: failed to record job %d failure: %v", job.ID, err)
	}
}

// processCashbackJob credits the cashback to the user's wallet, records the
// transaction and leaves a notification, all in one transaction. The
// transaction reference is the job reference, so a replay of an already
// credited job fails on the unique index instead of crediting twice.
func (h *Handlers) processCashbackJob(job models.OutboxJob) error {
	var payload cashbackJobPayload
	if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
		return fmt.Errorf("bad cashback payload: %w", err)
	}

	tx, err := h.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var walletID int64
	if err := tx.QueryRow(`SELECT id FROM wallets WHERE user_id = ?`, payload.UserID).Scan(&walletID); err != nil {
		return fmt.Errorf("wallet lookup for user %d: %w", payload.UserID, err)
	}

	if err := creditWallet(tx, walletID, payload.Amount); err != nil {
		return fmt.Errorf("credit wallet %d: %w", walletID, err)
	}

	now := time.Now()
	_, err = tx.Exec(`
		INSERT INTO transactions (wallet_id, user_id, type, amount, reference, note, created_at)
		VALUES (?, ?, 'cashback', ?, ?, ?, ?)`,
		walletID, payload.UserID, payload.Amount, job.Reference,
		fmt.Sprintf("Cashback for order %d", payload.OrderID), now)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			// Already credited by an earlier attempt that failed after
			// commit. Nothing left to do.
			return nil
		}
		return fmt.Errorf("record cashback transaction: %w", err)
	}

	message := fmt.Sprintf("You earned %.2f cashback on your order.", payload.Amount)
	if err := addNotification(tx, payload.UserID, message, nil); err != nil {
		return fmt.Errorf("cashback notification: %w", err)
	}

	return tx.Commit()
}

// processEmailJob sends the order confirmation email. A missing mailer is
// not an error; the job completes as a no-op.
func (h *Handlers) processEmailJob(job models.OutboxJob) error {
	if h.Mailer == nil {
		log.Printf("outbox: mailer not configured, skipping email job %d", job.ID)
		return nil
	}

	var payload emailJobPayload
	if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
		return fmt.Errorf("bad email payload: %w", err)
	}

	var userEmail, fullName string
	if err := h.DB.QueryRow(`SELECT email, full_name FROM users WHERE id = ?`, payload.UserID).
		Scan(&userEmail, &fullName); err != nil {
		return fmt.Errorf("user lookup for email job: %w", err)
	}

	subject := fmt.Sprintf("Order %s confirmed", payload.OrderRef)
	body := fmt.Sprintf(
		"<h2>Thank you, %s!</h2><p>Your payment for order <strong>%s</strong> was received.</p><p>Total: %.2f</p>",
		fullName, payload.OrderRef, payload.Total)

	return h.Mailer.Send(userEmail, subject, body)
}

// processPushJob fans the notification out to the user's registered devices
// and prunes tokens the provider reports as dead.
func (h *Handlers) processPushJob(job models.OutboxJob) error {
	var payload pushJobPayload
	if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
		return fmt.Errorf("bad push payload: %w", err)
	}

	// The in-app notification is written even when push delivery is off.
	tx, err := h.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := addNotification(tx, payload.UserID, payload.Body, nil); err != nil {
		return fmt.Errorf("push notification row: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if h.Push == nil {
		return nil
	}

	rows, err := h.DB.Query(`SELECT token FROM fcm_tokens WHERE user_id = ?`, payload.UserID)
	if err != nil {
		return fmt.Errorf("token lookup: %w", err)
	}
	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			rows.Close()
			return err
		}
		tokens = append(tokens, token)
	}
	rows.Close()

	invalid, err := h.Push.SendMulticast(tokens, push.Message{Title: payload.Title, Body: payload.Body})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}

	for _, token := range invalid {
		if _, err := h.DB.Exec(`DELETE FROM fcm_tokens WHERE token = ?`, token); err != nil {
			log.Printf("outbox: failed to prune dead token: %v", err)
		}
	}
	return nil
}
