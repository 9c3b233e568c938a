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

// Checkout snapshots the user's cart into a pending order and starts a
// payment-provider checkout for the total. The order flips to Paid only when
// the provider's webhook confirms the charge.
func (h *Handlers) Checkout(c *gin.Context) {
	userID := c.MustGet("userID").(int64)

	var userEmail string
	err := h.DB.QueryRow(`SELECT email FROM users WHERE id = ?`, userID).Scan(&userEmail)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	// 1. --- Snapshot the cart ---
	rows, err := tx.Query(`
		SELECT ci.product_id, ci.bundle_id, ci.option_json, ci.quantity, ci.unit_price
		FROM cart_items ci
		JOIN carts ca ON ca.id = ci.cart_id
		WHERE ca.user_id = ?`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query cart"})
		return
	}

	var items []models.OrderItem
	var total float64
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ProductID, &item.BundleID, &item.OptionJSON, &item.Quantity, &item.UnitPrice); err != nil {
			rows.Close()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan cart item"})
			return
		}
		total += float64(item.Quantity) * item.UnitPrice
		items = append(items, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read cart"})
		return
	}

	if len(items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
		return
	}

	// 2. --- Create the pending order ---
	now := time.Now()
	reference := fmt.Sprintf("order-%s", uuid.NewString())
	result, err := tx.Exec(`
		INSERT INTO orders (user_id, reference, payment_status, total, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userID, reference, models.PaymentStatusPending, total, now, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}
	orderID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get order ID"})
		return
	}

	for _, item := range items {
		_, err := tx.Exec(`
			INSERT INTO order_items (order_id, product_id, bundle_id, option_json, quantity, unit_price, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			orderID, item.ProductID, item.BundleID, item.OptionJSON, item.Quantity, item.UnitPrice, now)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order items"})
			return
		}
	}

	// 3. --- Empty the cart ---
	_, err = tx.Exec(`
		DELETE ci FROM cart_items ci
		JOIN carts ca ON ca.id = ci.cart_id
		WHERE ca.user_id = ?`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit order"})
		return
	}

	// 4. --- Start the provider checkout ---
	// The order is already committed as Pending; a provider failure here
	// leaves it payable through a retry rather than losing it.
	authURL, err := h.Paystack.InitializeTransaction(userEmail, total, reference, paystack.Metadata{
		Type:    "direct_payment",
		UserID:  &userID,
		OrderID: &orderID,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Order created but payment initialization failed",
			"orderId": orderID,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"orderId":           orderID,
		"reference":         reference,
		"total":             total,
		"authorization_url": authURL,
	})
}

// GetMyOrders lists the caller's orders, newest first.
func (h *Handlers) GetMyOrders(c *gin.Context) {
	userID := c.MustGet("userID").(int64)

	rows, err := h.DB.Query(`
		SELECT id, user_id, reference, payment_status, total, created_at, updated_at
		FROM orders WHERE user_id = ?
		ORDER BY created_at DESC`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query orders"})
		return
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.Reference, &o.PaymentStatus, &o.Total,
			&o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan order"})
			return
		}
		orders = append(orders, o)
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetOrderDetails returns one order with its items, scoped to the caller.
func (h *Handlers) GetOrderDetails(c *gin.Context) {
	userID := c.MustGet("userID").(int64)
	orderID := c.Param("id")

	var order models.Order
	err := h.DB.QueryRow(`
		SELECT id, user_id, reference, payment_status, total, created_at, updated_at
		FROM orders WHERE id = ? AND user_id = ?`, orderID, userID).
		Scan(&order.ID, &order.UserID, &order.Reference, &order.PaymentStatus,
			&order.Total, &order.CreatedAt, &order.UpdatedAt)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	rows, err := h.DB.Query(`
		SELECT id, order_id, product_id, bundle_id, option_json, quantity, unit_price
		FROM order_items WHERE order_id = ?`, order.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query order items"})
		return
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.BundleID,
			&item.OptionJSON, &item.Quantity, &item.UnitPrice,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan order item"})
			return
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{"order": order, "items": items})
}
