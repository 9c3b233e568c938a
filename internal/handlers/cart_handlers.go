package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tobi-ade/storefront-golang/internal/cart"
	"github.com/tobi-ade/storefront-golang/internal/models"
)

// getOrCreateCartID resolves the user's cart row inside a transaction,
// creating it on first use.
func getOrCreateCartID(tx *sql.Tx, userID int64) (int64, error) {
	var id int64
	err := tx.QueryRow(`SELECT id FROM carts WHERE user_id = ?`, userID).Scan(&id)
	if err == sql.ErrNoRows {
		now := time.Now()
		result, insErr := tx.Exec(`
			INSERT INTO carts (user_id, created_at, updated_at) VALUES (?, ?, ?)`,
			userID, now, now)
		if insErr != nil {
			return 0, insErr
		}
		return result.LastInsertId()
	}
	return id, err
}

// GetMyCart returns the authenticated user's cart lines.
func (h *Handlers) GetMyCart(c *gin.Context) {
	userID := c.MustGet("userID").(int64)

	rows, err := h.DB.Query(`
		SELECT ci.id, ci.cart_id, ci.product_id, ci.bundle_id, ci.option_json,
		       ci.option_key, ci.quantity, ci.unit_price, ci.created_at
		FROM cart_items ci
		JOIN carts ca ON ca.id = ci.cart_id
		WHERE ca.user_id = ?
		ORDER BY ci.created_at ASC`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query cart items"})
		return
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(
			&item.ID, &item.CartID, &item.ProductID, &item.BundleID, &item.OptionJSON,
			&item.OptionKey, &item.Quantity, &item.UnitPrice, &item.CreatedAt,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan cart item"})
			return
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// AddCartItemInput is the JSON body for POST /v1/cart/items.
type AddCartItemInput struct {
	ProductID *int64            `json:"product_id"`
	BundleID  *int64            `json:"bundle_id"`
	Quantity  int               `json:"quantity" binding:"required,gt=0"`
	UnitPrice float64           `json:"unit_price" binding:"gte=0"`
	Option    map[string]string `json:"option"`
}

// AddCartItem appends a line to the user's cart, or increments the quantity
// when a line with the same identity already exists.
func (h *Handlers) AddCartItem(c *gin.Context) {
	userID := c.MustGet("userID").(int64)

	var input AddCartItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if (input.ProductID == nil) == (input.BundleID == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Exactly one of product_id or bundle_id must be set"})
		return
	}

	optionKey := cart.OptionKey(input.Option)
	var optionJSON *string
	if len(input.Option) > 0 {
		raw, err := json.Marshal(input.Option)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid option payload"})
			return
		}
		s := string(raw)
		optionJSON = &s
	}

	unitPrice := input.UnitPrice
	if input.ProductID != nil {
		err := h.DB.QueryRow(`SELECT price FROM products WHERE id = ?`, *input.ProductID).Scan(&unitPrice)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if len(input.Option) == 1 {
			for optName := range input.Option {
				var optPrice float64
				err := h.DB.QueryRow(`
					SELECT price FROM product_options WHERE product_id = ? AND name = ?`,
					*input.ProductID, optName).Scan(&optPrice)
				if err == nil {
					unitPrice = optPrice
				}
			}
		}
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	cartID, err := getOrCreateCartID(tx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve cart"})
		return
	}

	result, err := tx.Exec(`
		UPDATE cart_items SET quantity = quantity + ?
		WHERE cart_id = ? AND product_id <=> ? AND bundle_id <=> ? AND option_key = ?`,
		input.Quantity, cartID, input.ProductID, input.BundleID, optionKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart item"})
		return
	}

	affected, err := result.RowsAffected()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart item"})
		return
	}
	if affected == 0 {
		now := time.Now()
		_, err = tx.Exec(`
			INSERT INTO cart_items
				(cart_id, product_id, bundle_id, option_json, option_key, quantity, unit_price, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			cartID, input.ProductID, input.BundleID, optionJSON, optionKey,
			input.Quantity, unitPrice, now, now)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add cart item"})
			return
		}
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit cart update"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item added to cart"})
}

// UpdateCartItemInput is the JSON body for PUT /v1/cart/items/:id.
type UpdateCartItemInput struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// UpdateCartItem sets the quantity of one line, scoped to the caller's cart.
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	userID := c.MustGet("userID").(int64)
	itemID := c.Param("id")

	var input UpdateCartItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.DB.Exec(`
		UPDATE cart_items ci
		JOIN carts ca ON ca.id = ci.cart_id
		SET ci.quantity = ?
		WHERE ci.id = ? AND ca.user_id = ?`,
		input.Quantity, itemID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart item"})
		return
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Quantity updated"})
}

// RemoveCartItem deletes one line from the caller's cart.
func (h *Handlers) RemoveCartItem(c *gin.Context) {
	userID := c.MustGet("userID").(int64)
	itemID := c.Param("id")

	result, err := h.DB.Exec(`
		DELETE ci FROM cart_items ci
		JOIN carts ca ON ca.id = ci.cart_id
		WHERE ci.id = ? AND ca.user_id = ?`,
		itemID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove cart item"})
		return
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item removed"})
}

// ClearCart removes every line from the caller's cart.
func (h *Handlers) ClearCart(c *gin.Context) {
	userID := c.MustGet("userID").(int64)

	_, err := h.DB.Exec(`
		DELETE ci FROM cart_items ci
		JOIN carts ca ON ca.id = ci.cart_id
		WHERE ca.user_id = ?`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// MergeGuestCartInput is the JSON body for POST /v1/cart/merge.
type MergeGuestCartInput struct {
	GuestID string `json:"guest_id" binding:"required"`
}

// MergeGuestCart folds a guest cart into the authenticated user's cart.
// Exposed for clients that sign in through a flow that bypasses Login.
func (h *Handlers) MergeGuestCart(c *gin.Context) {
	userID := c.MustGet("userID").(int64)

	var input MergeGuestCartInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := h.mergeGuestCartIntoUserCart(input.GuestID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to merge guest cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"merge_status": status})
}

// mergeGuestCartIntoUserCart reconciles a guest cart into a user cart in a
// single transaction. Lines with the same identity (product or bundle plus
// option key) have their quantities summed; everything else carries over
// unchanged. Either every line lands and the guest cart is deleted, or
// nothing changes.
func (h *Handlers) mergeGuestCartIntoUserCart(guestID string, userID int64) (string, error) {
	tx, err := h.DB.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	// 1. --- Load the guest cart ---
	var guestCartRowID int64
	err = tx.QueryRow(`SELECT id FROM guest_carts WHERE guest_id = ?`, guestID).Scan(&guestCartRowID)
	if err == sql.ErrNoRows {
		return "no-guest-cart", nil
	}
	if err != nil {
		return "", err
	}

	guestLines, guestMeta, err := loadGuestLines(tx, guestCartRowID)
	if err != nil {
		return "", err
	}

	if len(guestLines) == 0 {
		if _, err := tx.Exec(`DELETE FROM guest_carts WHERE id = ?`, guestCartRowID); err != nil {
			return "", err
		}
		if err := tx.Commit(); err != nil {
			return "", err
		}
		return "guest-cart-empty", nil
	}

	// 2. --- Load the user cart and merge in memory ---
	cartID, err := getOrCreateCartID(tx, userID)
	if err != nil {
		return "", err
	}

	userLines, userMeta, err := loadUserLines(tx, cartID)
	if err != nil {
		return "", err
	}

	merged := cart.MergeLines(userLines, guestLines)

	// Option JSON travels by line identity. User entries win so an existing
	// line keeps its stored payload.
	optionJSON := make(map[string]*string, len(merged))
	for key, raw := range guestMeta {
		optionJSON[key] = raw
	}
	for key, raw := range userMeta {
		optionJSON[key] = raw
	}

	// 3. --- Replace the user cart with the merged lines ---
	if _, err := tx.Exec(`DELETE FROM cart_items WHERE cart_id = ?`, cartID); err != nil {
		return "", err
	}

	now := time.Now()
	for _, line := range merged {
		_, err := tx.Exec(`
			INSERT INTO cart_items
				(cart_id, product_id, bundle_id, option_json, option_key, quantity, unit_price, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			cartID, line.ProductID, line.BundleID, optionJSON[line.Key()], line.OptionKey,
			line.Quantity, line.UnitPrice, now, now)
		if err != nil {
			return "", err
		}
	}

	// 4. --- Retire the guest cart ---
	if _, err := tx.Exec(`DELETE FROM guest_cart_items WHERE cart_id = ?`, guestCartRowID); err != nil {
		return "", err
	}
	if _, err := tx.Exec(`DELETE FROM guest_carts WHERE id = ?`, guestCartRowID); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return "merged-success", nil
}

func loadGuestLines(tx *sql.Tx, guestCartRowID int64) ([]cart.Line, map[string]*string, error) {
	rows, err := tx.Query(`
		SELECT product_id, bundle_id, option_json, option_key, quantity, unit_price
		FROM guest_cart_items WHERE cart_id = ? ORDER BY added_at ASC`, guestCartRowID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	return scanLines(rows)
}

func loadUserLines(tx *sql.Tx, cartID int64) ([]cart.Line, map[string]*string, error) {
	rows, err := tx.Query(`
		SELECT product_id, bundle_id, option_json, option_key, quantity, unit_price
		FROM cart_items WHERE cart_id = ? ORDER BY created_at ASC`, cartID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	return scanLines(rows)
}

func scanLines(rows *sql.Rows) ([]cart.Line, map[string]*string, error) {
	var lines []cart.Line
	meta := make(map[string]*string)
	for rows.Next() {
		var line cart.Line
		var optionJSON *string
		if err := rows.Scan(
			&line.ProductID, &line.BundleID, &optionJSON,
			&line.OptionKey, &line.Quantity, &line.UnitPrice,
		); err != nil {
			return nil, nil, err
		}
		lines = append(lines, line)
		if optionJSON != nil {
			meta[line.Key()] = optionJSON
		}
	}
	return lines, meta, rows.Err()
}
