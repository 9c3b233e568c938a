package models

import "time"

// Stock statuses for products and options. The import pipeline flips
// products absent from the latest sheet to out_of_stock.
const (
	StockStatusInStock    = "in_stock"
	StockStatusOutOfStock = "out_of_stock"
)

// Product is the model for the 'products' table.
type Product struct {
	ID          int64   `json:"id" db:"id"`
	CategoryID  int64   `json:"categoryId" db:"category_id"`
	Name        string  `json:"name" db:"name"`
	Slug        string  `json:"slug" db:"slug"`
	Description string  `json:"description" db:"description"`
	Price       float64 `json:"price" db:"price"`
	StockStatus string  `json:"stockStatus" db:"stock_status"`
	Image       *string `json:"image,omitempty" db:"image"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Populated manually on detail reads, not a DB column.
	Options []ProductOption `json:"options,omitempty" db:"-"`
}

// ProductOption is a priced variant of a product (e.g. a size), from the
// 'product_options' table. Options carry their own price and stock flag.
type ProductOption struct {
	ID          int64     `json:"id" db:"id"`
	ProductID   int64     `json:"productId" db:"product_id"`
	Name        string    `json:"name" db:"name"`
	Price       float64   `json:"price" db:"price"`
	StockStatus string    `json:"stockStatus" db:"stock_status"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Category is the model for the 'categories' table.
type Category struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}
