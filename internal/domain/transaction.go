package domain

import (
	"context"
	"time"

	"campus-market/internal/errors"
)

type TransactionStatus int16

const (
	TransactionPending   TransactionStatus = 0
	TransactionPaid      TransactionStatus = 1
	TransactionCancelled TransactionStatus = 2
)

func (s TransactionStatus) String() string {
	switch s {
	case TransactionPending:
		return "pending"
	case TransactionPaid:
		return "paid"
	case TransactionCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (s TransactionStatus) Valid() bool {
	return s >= TransactionPending && s <= TransactionCancelled
}

type Transaction struct {
	ID        string            `json:"transaction_id"`
	Amount    Cents             `json:"amount"`
	BuyerID   string            `json:"buyer_id"`
	SellerID  string            `json:"seller_id"`
	ProductID string            `json:"product_id"`
	Status    TransactionStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// IsParty reports whether the user is the buyer or the seller.
func (t *Transaction) IsParty(userID string) bool {
	return userID == t.BuyerID || userID == t.SellerID
}

// TransactionView is a transaction joined with both parties, the product and
// its category.
type TransactionView struct {
	Transaction
	BuyerUsername    string `json:"buyer_username"`
	SellerUsername   string `json:"seller_username"`
	ProductName      string `json:"product_name"`
	ProductImagePath string `json:"product_image_path"`
	CategoryName     string `json:"category_name"`
}

type CounterpartyRole string

const (
	RoleBuyer  CounterpartyRole = "buyer"
	RoleSeller CounterpartyRole = "seller"
)

// Counterparty returns the other party's username and role as seen by viewer.
func (v *TransactionView) Counterparty(viewerID string) (string, CounterpartyRole) {
	switch viewerID {
	case v.BuyerID:
		return v.SellerUsername, RoleSeller
	case v.SellerID:
		return v.BuyerUsername, RoleBuyer
	default:
		return "", ""
	}
}

// TransactionFilter narrows a user's transaction history.
type TransactionFilter struct {
	Status     *TransactionStatus
	CategoryID *int64
	From       *time.Time
	To         *time.Time
}

func (f TransactionFilter) Validate() error {
	if f.Status != nil && !f.Status.Valid() {
		return errors.ErrInvalidInput.WithDetails("status must be between 0 and 2")
	}
	if f.CategoryID != nil && *f.CategoryID <= 0 {
		return errors.ErrInvalidInput.WithDetails("category_id must be positive")
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return errors.ErrInvalidInput.WithDetails("start_date must not be after end_date")
	}
	return nil
}

type TransactionRepository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	GetTransactionForUpdate(ctx context.Context, id string) (*Transaction, error)
	GetTransactionView(ctx context.Context, id string) (*TransactionView, error)
	HasPendingForProduct(ctx context.Context, productID string) (bool, error)
	ExistsForProduct(ctx context.Context, productID string) (bool, error)
	UpdateTransactionStatus(ctx context.Context, id string, status TransactionStatus) error
	ListForUser(ctx context.Context, userID string, filter TransactionFilter, page Page) ([]TransactionView, int64, error)
}
