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

// guestCartID resolves a guest cart row by its opaque guest ID. Returns
// sql.ErrNoRows when the guest has no cart yet.
func guestCartID(db *sql.DB, guestID string) (int64, error) {
	var id int64
	err := db.QueryRow(`SELECT id FROM guest_carts WHERE guest_id = ?`, guestID).Scan(&id)
	return id, err
}

// getOrCreateGuestCartID is the tx-scoped variant used by writes.
func getOrCreateGuestCartID(tx *sql.Tx, guestID string) (int64, error) {
	var id int64
	err := tx.QueryRow(`SELECT id FROM guest_carts WHERE guest_id = ?`, guestID).Scan(&id)
	if err == sql.ErrNoRows {
		result, insErr := tx.Exec(`
			INSERT INTO guest_carts (guest_id, created_at) VALUES (?, ?)`,
			guestID, time.Now())
		if insErr != nil {
			return 0, insErr
		}
		return result.LastInsertId()
	}
	return id, err
}

func requireGuestID(c *gin.Context) (string, bool) {
	guestID := c.Query("guest_id")
	if guestID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "guest_id query parameter is required"})
		return "", false
	}
	return guestID, true
}

// GetGuestCart returns the guest's cart items. A guest with no cart row gets
// an empty list, not a 404.
func (h *Handlers) GetGuestCart(c *gin.Context) {
	guestID, ok := requireGuestID(c)
	if !ok {
		return
	}

	cartID, err := guestCartID(h.DB, guestID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusOK, gin.H{"items": []models.GuestCartItem{}})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	rows, err := h.DB.Query(`
		SELECT id, cart_id, product_id, bundle_id, option_json, option_key,
		       quantity, unit_price, product_name, product_slug, product_image, added_at
		FROM guest_cart_items
		WHERE cart_id = ?
		ORDER BY added_at ASC`, cartID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query cart items"})
		return
	}
	defer rows.Close()

	items := []models.GuestCartItem{}
	for rows.Next() {
		var item models.GuestCartItem
		if err := rows.Scan(
			&item.ID, &item.CartID, &item.ProductID, &item.BundleID,
			&item.OptionJSON, &item.OptionKey, &item.Quantity, &item.UnitPrice,
			&item.ProductName, &item.ProductSlug, &item.ProductImage, &item.AddedAt,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan cart item"})
			return
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// AddGuestCartItemInput is the JSON body for POST /v1/guest/cart/items.
// Exactly one of ProductID and BundleID must be set. For products the price
// and display fields are taken from the catalog; for bundles the client
// supplies them.
type AddGuestCartItemInput struct {
	ProductID    *int64            `json:"product_id"`
	BundleID     *int64            `json:"bundle_id"`
	Quantity     int               `json:"quantity" binding:"required,gt=0"`
	UnitPrice    float64           `json:"unit_price" binding:"gte=0"`
	Option       map[string]string `json:"option"`
	ProductName  string            `json:"product_name"`
	ProductSlug  string            `json:"product_slug"`
	ProductImage *string           `json:"product_image"`
}

// AddGuestCartItem appends a line to the guest cart, or increments the
// quantity when a line with the same identity already exists.
func (h *Handlers) AddGuestCartItem(c *gin.Context) {
	guestID, ok := requireGuestID(c)
	if !ok {
		return
	}

	var input AddGuestCartItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if (input.ProductID == nil) == (input.BundleID == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Exactly one of product_id or bundle_id must be set"})
		return
	}

	// 1. --- Resolve the line's identity and display fields ---
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
	name := input.ProductName
	slugVal := input.ProductSlug
	image := ""
	if input.ProductImage != nil {
		image = *input.ProductImage
	}

	if input.ProductID != nil {
		var p models.Product
		err := h.DB.QueryRow(`
			SELECT id, name, slug, price, image FROM products WHERE id = ?`,
			*input.ProductID).Scan(&p.ID, &p.Name, &p.Slug, &p.Price, &p.Image)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		// Catalog values win over whatever the client sent.
		name, slugVal = p.Name, p.Slug
		image = ""
		if p.Image != nil {
			image = *p.Image
		}
		unitPrice = p.Price
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

	// 2. --- Upsert the cart line ---
	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	cartID, err := getOrCreateGuestCartID(tx, guestID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve guest cart"})
		return
	}

	result, err := tx.Exec(`
		UPDATE guest_cart_items SET quantity = quantity + ?
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
		_, err = tx.Exec(`
			INSERT INTO guest_cart_items
				(cart_id, product_id, bundle_id, option_json, option_key,
				 quantity, unit_price, product_name, product_slug, product_image, added_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			cartID, input.ProductID, input.BundleID, optionJSON, optionKey,
			input.Quantity, unitPrice, name, slugVal, image, time.Now())
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

// UpdateGuestCartItemInput is the JSON body for PUT /v1/guest/cart/items/:id.
type UpdateGuestCartItemInput struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// UpdateGuestCartItem sets the quantity of one line, scoped to the guest's
// own cart so one guest cannot touch another's items.
func (h *Handlers) UpdateGuestCartItem(c *gin.Context) {
	guestID, ok := requireGuestID(c)
	if !ok {
		return
	}
	itemID := c.Param("id")

	var input UpdateGuestCartItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.DB.Exec(`
		UPDATE guest_cart_items gi
		JOIN guest_carts gc ON gc.id = gi.cart_id
		SET gi.quantity = ?
		WHERE gi.id = ? AND gc.guest_id = ?`,
		input.Quantity, itemID, guestID)
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

// RemoveGuestCartItem deletes one line from the guest cart.
func (h *Handlers) RemoveGuestCartItem(c *gin.Context) {
	guestID, ok := requireGuestID(c)
	if !ok {
		return
	}
	itemID := c.Param("id")

	result, err := h.DB.Exec(`
		DELETE gi FROM guest_cart_items gi
		JOIN guest_carts gc ON gc.id = gi.cart_id
		WHERE gi.id = ? AND gc.guest_id = ?`,
		itemID, guestID)
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

// ClearGuestCart removes every line from the guest cart.
func (h *Handlers) ClearGuestCart(c *gin.Context) {
	guestID, ok := requireGuestID(c)
	if !ok {
		return
	}

	_, err := h.DB.Exec(`
		DELETE gi FROM guest_cart_items gi
		JOIN guest_carts gc ON gc.id = gi.cart_id
		WHERE gc.guest_id = ?`, guestID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// GetGuestCartSummary returns the item count and subtotal, for the header
// cart badge.
func (h *Handlers) GetGuestCartSummary(c *gin.Context) {
	guestID, ok := requireGuestID(c)
	if !ok {
		return
	}

	var count int
	var subtotal float64
	err := h.DB.QueryRow(`
		SELECT COALESCE(SUM(gi.quantity), 0), COALESCE(SUM(gi.quantity * gi.unit_price), 0)
		FROM guest_cart_items gi
		JOIN guest_carts gc ON gc.id = gi.cart_id
		WHERE gc.guest_id = ?`, guestID).Scan(&count, &subtotal)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute summary"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"item_count": count, "subtotal": subtotal})
}
