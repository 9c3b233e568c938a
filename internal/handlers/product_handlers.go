package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tobi-ade/storefront-golang/internal/models"
)

// ListProducts returns the catalog, optionally filtered by a search term
// and a category slug.
func (h *Handlers) ListProducts(c *gin.Context) {
	query := `
		SELECT p.id, p.category_id, p.name, p.slug, p.description, p.price,
		       p.stock_status, p.image, p.created_at, p.updated_at
		FROM products p`
	var args []any
	var where []string

	if search := c.Query("q"); search != "" {
		where = append(where, "p.name LIKE ?")
		args = append(args, "%"+search+"%")
	}
	if categorySlug := c.Query("category"); categorySlug != "" {
		query += ` JOIN categories cat ON cat.id = p.category_id`
		where = append(where, "cat.slug = ?")
		args = append(args, categorySlug)
	}

	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY p.name ASC LIMIT 100"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query products"})
		return
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(
			&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.Description, &p.Price,
			&p.StockStatus, &p.Image, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan product"})
			return
		}
		products = append(products, p)
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// GetProductBySlug returns one product with its options.
func (h *Handlers) GetProductBySlug(c *gin.Context) {
	productSlug := c.Param("slug")

	var p models.Product
	err := h.DB.QueryRow(`
		SELECT id, category_id, name, slug, description, price, stock_status, image, created_at, updated_at
		FROM products WHERE slug = ?`, productSlug).
		Scan(&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.Description, &p.Price,
			&p.StockStatus, &p.Image, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	rows, err := h.DB.Query(`
		SELECT id, product_id, name, price, stock_status, created_at, updated_at
		FROM product_options WHERE product_id = ? ORDER BY price ASC`, p.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query options"})
		return
	}
	defer rows.Close()

	p.Options = []models.ProductOption{}
	for rows.Next() {
		var opt models.ProductOption
		if err := rows.Scan(
			&opt.ID, &opt.ProductID, &opt.Name, &opt.Price,
			&opt.StockStatus, &opt.CreatedAt, &opt.UpdatedAt,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan option"})
			return
		}
		p.Options = append(p.Options, opt)
	}

	c.JSON(http.StatusOK, gin.H{"product": p})
}
