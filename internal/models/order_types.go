package models

import "time"

// Payment statuses for orders. The only transition the webhook performs is
// Pending -> Paid, guarded by a conditional update.
const (
	PaymentStatusPending = "Pending"
	PaymentStatusPaid    = "Paid"
	PaymentStatusFailed  = "Failed"
)

// Order is the model for the 'orders' table.
type Order struct {
	ID            int64     `json:"id" db:"id"`
	UserID        int64     `json:"userId" db:"user_id"`
	Reference     string    `json:"reference" db:"reference"`
	PaymentStatus string    `json:"paymentStatus" db:"payment_status"`
	Total         float64   `json:"total" db:"total"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// OrderItem is the model for the 'order_items' table.
type OrderItem struct {
	ID         int64     `json:"id" db:"id"`
	OrderID    int64     `json:"orderId" db:"order_id"`
	ProductID  *int64    `json:"productId,omitempty" db:"product_id"`
	BundleID   *int64    `json:"bundleId,omitempty" db:"bundle_id"`
	OptionJSON *string   `json:"option,omitempty" db:"option_json"`
	Quantity   int       `json:"quantity" db:"quantity"`
	UnitPrice  float64   `json:"unitPrice" db:"unit_price"` // price at the time of purchase
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}
