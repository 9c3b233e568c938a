package models

import "time"

// Wallet is the model for the 'wallets' table. Balance is only ever mutated
// by an atomic "balance = balance + ?" update, never read-then-write.
type Wallet struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	Balance   float64   `json:"balance" db:"balance"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Transaction is the append-only record of a wallet balance change.
// Reference is unique so a replayed job cannot insert a duplicate row.
type Transaction struct {
	ID        int64     `json:"id" db:"id"`
	WalletID  int64     `json:"walletId" db:"wallet_id"`
	UserID    int64     `json:"userId" db:"user_id"`
	Type      string    `json:"type" db:"type"` // cashback, funding, order
	Amount    float64   `json:"amount" db:"amount"`
	Reference string    `json:"reference" db:"reference"`
	Note      string    `json:"note" db:"note"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
