package handlers

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tobi-ade/storefront-golang/internal/auth"
	"github.com/tobi-ade/storefront-golang/internal/models"
)

// RegisterUserInput is the JSON body for POST /v1/register.
type RegisterUserInput struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register creates a customer account together with its wallet.
func (h *Handlers) Register(c *gin.Context) {
	var input RegisterUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	now := time.Now()
	result, err := tx.Exec(`
		INSERT INTO users (role, email, password_hash, full_name, created_at, updated_at)
		VALUES ('customer', ?, ?, ?, ?, ?)`,
		input.Email, password.Hash, input.FullName, now, now)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	userID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get new user ID"})
		return
	}

	// Every account gets a wallet row up front so webhook credits never
	// race against wallet creation.
	_, err = tx.Exec(`
		INSERT INTO wallets (user_id, balance, created_at, updated_at)
		VALUES (?, 0, ?, ?)`,
		userID, now, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create wallet"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit registration"})
		return
	}

	token, err := auth.GenerateToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created",
		"userId":  userID,
		"token":   token,
	})
}

// LoginInput is the JSON body for POST /v1/login. GuestID is optional; when
// present the guest cart is merged into the user's cart as part of login.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	GuestID  string `json:"guest_id"`
}

// Login authenticates a user, issues a token and reconciles any guest cart
// carried over from before sign-in.
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	err := h.DB.QueryRow(`
		SELECT id, role, email, password_hash, full_name FROM users WHERE email = ?`,
		input.Email).Scan(&user.ID, &user.Role, &user.Email, &user.PasswordHash, &user.FullName)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	password := models.Password{Hash: user.PasswordHash}
	matches, err := password.Matches(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify password"})
		return
	}
	if !matches {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	// Guest cart reconciliation happens exactly once, here. A failed merge
	// does not fail the login; the guest cart stays intact for a retry.
	mergeStatus := "no-guest-cart"
	if input.GuestID != "" {
		status, err := h.mergeGuestCartIntoUserCart(input.GuestID, user.ID)
		if err != nil {
			mergeStatus = "merge-failed"
		} else {
			mergeStatus = status
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Login successful",
		"token":        token,
		"merge_status": mergeStatus,
		"user": gin.H{
			"id":       user.ID,
			"email":    user.Email,
			"fullName": user.FullName,
			"role":     user.Role,
		},
	})
}
