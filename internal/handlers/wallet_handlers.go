package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tobi-ade/storefront-golang/internal/models"
	"github.com/tobi-ade/storefront-golang/internal/paystack"
)

// GetMyWallet returns the caller's wallet balance and recent transactions.
func (h *Handlers) GetMyWallet(c *gin.Context) {
	userID := c.MustGet("userID").(int64)

	var wallet models.Wallet
	err := h.DB.QueryRow(`
		SELECT id, user_id, balance, created_at, updated_at
		FROM wallets WHERE user_id = ?`, userID).
		Scan(&wallet.ID, &wallet.UserID, &wallet.Balance, &wallet.CreatedAt, &wallet.UpdatedAt)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	rows, err := h.DB.Query(`
		SELECT id, wallet_id, user_id, type, amount, reference, note, created_at
		FROM transactions WHERE user_id = ?
		ORDER BY created_at DESC LIMIT 20`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query transactions"})
		return
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(
			&t.ID, &t.WalletID, &t.UserID, &t.Type, &t.Amount,
			&t.Reference, &t.Note, &t.CreatedAt,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan transaction"})
			return
		}
		transactions = append(transactions, t)
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet":       wallet,
		"transactions": transactions,
	})
}

// FundWalletInput is the JSON body for POST /v1/wallet/fund.
type FundWalletInput struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// FundWallet starts a payment-provider checkout to top up the caller's
// wallet. The actual credit happens when the provider's webhook confirms the
// charge.
func (h *Handlers) FundWallet(c *gin.Context) {
	userID := c.MustGet("userID").(int64)

	var input FundWalletInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 1. --- Resolve the wallet and the customer email ---
	var walletID int64
	var userEmail string
	err := h.DB.QueryRow(`
		SELECT w.id, u.email FROM wallets w
		JOIN users u ON u.id = w.user_id
		WHERE w.user_id = ?`, userID).Scan(&walletID, &userEmail)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	// 2. --- Initialize the provider transaction ---
	reference := fmt.Sprintf("fund-%s", uuid.NewString())
	authURL, err := h.Paystack.InitializeTransaction(userEmail, input.Amount, reference, paystack.Metadata{
		Type:     "wallet_funding",
		UserID:   &userID,
		WalletID: &walletID,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to initialize payment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorization_url": authURL,
		"reference":         reference,
	})
}

// creditWallet applies a balance increase as a single atomic UPDATE so
// concurrent credits never lose an increment. Returns sql.ErrNoRows when the
// wallet does not exist.
func creditWallet(ex interface {
	Exec(query string, args ...any) (sql.Result, error)
}, walletID int64, amount float64) error {
	result, err := ex.Exec(`
		UPDATE wallets SET balance = balance + ?, updated_at = ? WHERE id = ?`,
		amount, time.Now(), walletID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
