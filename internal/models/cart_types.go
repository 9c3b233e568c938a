package models

import "time"

// Cart is the model for the 'carts' table (one per authenticated user).
type Cart struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// CartItem is the model for the 'cart_items' table.
// A line is identified by (product_id, bundle_id, option_key); exactly one of
// ProductID or BundleID is set. OptionKey is the canonical form of OptionJSON
// and is what merge/upsert logic compares.
type CartItem struct {
	ID         int64     `json:"id" db:"id"`
	CartID     int64     `json:"cartId" db:"cart_id"`
	ProductID  *int64    `json:"productId,omitempty" db:"product_id"`
	BundleID   *int64    `json:"bundleId,omitempty" db:"bundle_id"`
	OptionJSON *string   `json:"option,omitempty" db:"option_json"`
	OptionKey  string    `json:"-" db:"option_key"`
	Quantity   int       `json:"quantity" db:"quantity"`
	UnitPrice  float64   `json:"unitPrice" db:"unit_price"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// GuestCart is the model for the 'guest_carts' table. The guest_id is a
// client-generated identifier for a visitor without an account.
type GuestCart struct {
	ID        int64     `json:"id" db:"id"`
	GuestID   string    `json:"guestId" db:"guest_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// GuestCartItem mirrors CartItem plus the denormalized display metadata the
// storefront shows before the visitor signs in.
type GuestCartItem struct {
	ID           int64   `json:"id" db:"id"`
	CartID       int64   `json:"cartId" db:"cart_id"`
	ProductID    *int64  `json:"productId,omitempty" db:"product_id"`
	BundleID     *int64  `json:"bundleId,omitempty" db:"bundle_id"`
	OptionJSON   *string `json:"option,omitempty" db:"option_json"`
	OptionKey    string  `json:"-" db:"option_key"`
	Quantity     int     `json:"quantity" db:"quantity"`
	UnitPrice    float64 `json:"unitPrice" db:"unit_price"`
	ProductName  string  `json:"productName" db:"product_name"`
	ProductSlug  string  `json:"productSlug" db:"product_slug"`
	ProductImage string  `json:"productImage" db:"product_image"`

	AddedAt time.Time `json:"addedAt" db:"added_at"`
}
