package handlers

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"github.com/tobi-ade/storefront-golang/internal/ai"
	"github.com/tobi-ade/storefront-golang/internal/importer"
	"github.com/tobi-ade/storefront-golang/internal/models"
)

const (
	maxImportFileBytes = 8 << 20 // 8 MiB
	fallbackCategory   = "General"
)

// ImportPriceSheet ingests an .xlsx price sheet. Rows upsert products and
// their options; products absent from the sheet are flipped to out of stock
// at the end. Admin only.
func (h *Handlers) ImportPriceSheet(c *gin.Context) {
	// 1. --- Validate the upload ---
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A file upload named 'file' is required"})
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".xlsx") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only .xlsx files are accepted"})
		return
	}
	if fileHeader.Size > maxImportFileBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File exceeds the 8 MiB limit"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open uploaded file"})
		return
	}
	defer file.Close()

	// 2. --- Parse the workbook ---
	records, skipped, err := importer.ParseWorkbook(file, fileHeader.Size)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 3. --- Upsert row by row ---
	// Each record gets its own transaction so one broken row cannot take
	// the rest of the sheet down with it.
	created, updated := 0, 0
	seenNames := make([]string, 0, len(records))
	for _, record := range records {
		wasCreated, err := h.upsertImportedProduct(c.Request.Context(), record)
		if err != nil {
			log.Printf("import: skipping %q: %v", record.Name, err)
			skipped++
			continue
		}
		seenNames = append(seenNames, record.Name)
		if wasCreated {
			created++
		} else {
			updated++
		}
	}

	// 4. --- Flip everything the sheet no longer lists ---
	outOfStock, err := h.markUnlistedOutOfStock(seenNames)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Import applied but stock reconciliation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"created":      created,
		"updated":      updated,
		"skipped":      skipped,
		"out_of_stock": outOfStock,
	})
}

// upsertImportedProduct applies one sheet record inside its own transaction.
// Returns true when a new product row was created.
func (h *Handlers) upsertImportedProduct(ctx context.Context, record importer.Record) (bool, error) {
	tx, err := h.DB.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	now := time.Now()

	// Category match is case-insensitive; unknown categories are created,
	// blank ones fall back to the default.
	categoryName := strings.TrimSpace(record.Category)
	if categoryName == "" {
		categoryName = fallbackCategory
	}
	var categoryID int64
	err = tx.QueryRow(`SELECT id FROM categories WHERE LOWER(name) = LOWER(?)`, categoryName).Scan(&categoryID)
	if err == sql.ErrNoRows {
		result, insErr := tx.Exec(`
			INSERT INTO categories (name, slug) VALUES (?, ?)`,
			categoryName, slug.Make(categoryName))
		if insErr != nil {
			return false, insErr
		}
		categoryID, err = result.LastInsertId()
	}
	if err != nil {
		return false, err
	}

	// Products match by exact name.
	var productID int64
	wasCreated := false
	err = tx.QueryRow(`SELECT id FROM products WHERE name = ?`, record.Name).Scan(&productID)
	switch {
	case err == sql.ErrNoRows:
		description := record.Description
		if description == "" {
			description = h.describeProduct(ctx, record.Name, categoryName)
		}
		result, insErr := tx.Exec(`
			INSERT INTO products (category_id, name, slug, description, price, stock_status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			categoryID, record.Name, slug.Make(record.Name), description,
			record.Price, models.StockStatusInStock, now, now)
		if insErr != nil {
			return false, insErr
		}
		productID, err = result.LastInsertId()
		if err != nil {
			return false, err
		}
		wasCreated = true
	case err != nil:
		return false, err
	default:
		_, err = tx.Exec(`
			UPDATE products SET category_id = ?, price = ?, stock_status = ?, updated_at = ?
			WHERE id = ?`,
			categoryID, record.Price, models.StockStatusInStock, now, productID)
		if err != nil {
			return false, err
		}
		if record.Description != "" {
			if _, err := tx.Exec(`UPDATE products SET description = ? WHERE id = ?`, record.Description, productID); err != nil {
				return false, err
			}
		}
	}

	// Merge options: sheet prices win, options missing from the sheet are
	// preserved, new names are appended.
	existing, err := loadProductOptions(tx, productID)
	if err != nil {
		return false, err
	}
	for _, opt := range importer.MergeOptions(existing, record.Options) {
		_, err := tx.Exec(`
			INSERT INTO product_options (product_id, name, price, stock_status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE price = VALUES(price), stock_status = VALUES(stock_status), updated_at = VALUES(updated_at)`,
			productID, opt.Name, opt.Price, models.StockStatusInStock, now, now)
		if err != nil {
			return false, err
		}
	}

	return wasCreated, tx.Commit()
}

func loadProductOptions(tx *sql.Tx, productID int64) ([]importer.Option, error) {
	rows, err := tx.Query(`SELECT name, price FROM product_options WHERE product_id = ?`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var options []importer.Option
	for rows.Next() {
		var opt importer.Option
		if err := rows.Scan(&opt.Name, &opt.Price); err != nil {
			return nil, err
		}
		options = append(options, opt)
	}
	return options, rows.Err()
}

// describeProduct asks the AI service for copy and falls back to the
// deterministic template when the service is off or errors.
func (h *Handlers) describeProduct(ctx context.Context, name, category string) string {
	if h.AI != nil {
		description, err := h.AI.GenerateDescription(ctx, name, category)
		if err == nil {
			return description
		}
		log.Printf("import: description generation failed for %q: %v", name, err)
	}
	return ai.FallbackDescription(name, category)
}

// markUnlistedOutOfStock flips every product whose name the sheet did not
// mention to out of stock, in one batched statement. An import that produced
// no valid rows leaves the catalog alone.
func (h *Handlers) markUnlistedOutOfStock(seenNames []string) (int64, error) {
	if len(seenNames) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?, ", len(seenNames)-1) + "?"
	args := make([]any, 0, len(seenNames)+2)
	args = append(args, models.StockStatusOutOfStock, time.Now())
	for _, name := range seenNames {
		args = append(args, name)
	}

	result, err := h.DB.Exec(`
		UPDATE products SET stock_status = ?, updated_at = ?
		WHERE name NOT IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
