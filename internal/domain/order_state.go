package domain

import (
	"time"

	"campus-market/internal/errors"
)

// productTransitions lists, for each product status, the statuses it may move
// to. Unavailable is the lock held by a pending transaction.
var productTransitions = map[ProductStatus][]ProductStatus{
	ProductListed: {
		ProductUnavailable, // order placed
		ProductWithdrawn,   // seller withdraws
	},
	ProductUnavailable: {
		ProductSold,   // order paid
		ProductListed, // order cancelled
	},
	ProductWithdrawn: {
		ProductListed, // seller relists an untransacted product
	},
	ProductSold: {},
}

var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionPending: {
		TransactionPaid,
		TransactionCancelled,
	},
	TransactionPaid:      {},
	TransactionCancelled: {},
}

func CanTransitionProduct(from, to ProductStatus) bool {
	for _, s := range productTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func CanTransitionTransaction(from, to TransactionStatus) bool {
	for _, s := range transactionTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CheckPlaceOrder validates an order by buyerID against the locked product.
func CheckPlaceOrder(product *Product, buyerID string, hasPending bool) error {
	if product.SellerID == buyerID {
		return errors.ErrSelfPurchase
	}
	if product.Status != ProductListed {
		return errors.ErrNotPurchasable.WithDetails("status " + product.Status.String())
	}
	if hasPending {
		return errors.ErrAlreadyOrdered
	}
	return nil
}

// NewOrder builds the pending transaction for a purchase. The amount is the
// price at this moment and is never recalculated.
func NewOrder(product *Product, buyerID string, now time.Time) *Transaction {
	return &Transaction{
		ID:        NewTransactionID(),
		Amount:    product.Price,
		BuyerID:   buyerID,
		SellerID:  product.SellerID,
		ProductID: product.ID,
		Status:    TransactionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CheckPay validates payment of tx by payerID.
func CheckPay(tx *Transaction, payerID string) error {
	if tx.BuyerID != payerID {
		return errors.ErrNotAuthorized
	}
	if !CanTransitionTransaction(tx.Status, TransactionPaid) {
		return errors.ErrInvalidTxState.WithDetails("status " + tx.Status.String())
	}
	return nil
}

// CheckCancel validates cancellation of tx by either party.
func CheckCancel(tx *Transaction, actorID string) error {
	if !tx.IsParty(actorID) {
		return errors.ErrNotAuthorized
	}
	if !CanTransitionTransaction(tx.Status, TransactionCancelled) {
		return errors.ErrInvalidTxState.WithDetails("status " + tx.Status.String())
	}
	return nil
}

// CheckLockedProduct verifies that the product referenced by a pending
// transaction can leave the Unavailable lock for target.
func CheckLockedProduct(product *Product, target ProductStatus) error {
	if product.Status != ProductUnavailable || !CanTransitionProduct(product.Status, target) {
		return errors.ErrInvalidStatusChange.WithDetails(
			"product " + product.ID + " is " + product.Status.String())
	}
	return nil
}

// CheckWithdraw validates withdrawal of a listing by ownerID. transacted
// reports whether any transaction, whatever its status, references the
// product.
func CheckWithdraw(product *Product, ownerID string, transacted bool) error {
	if product.SellerID != ownerID {
		return errors.ErrNotAuthorized
	}
	return checkSellerTransition(product, ProductWithdrawn, transacted)
}

// CheckSellerStatusChange validates a status change requested by the seller
// through a product update. Only Listed and Withdrawn can be requested;
// the other statuses belong to the order flow.
func CheckSellerStatusChange(product *Product, target ProductStatus, transacted bool) error {
	if target == product.Status {
		return nil
	}
	if target != ProductListed && target != ProductWithdrawn {
		return errors.ErrInvalidStatusChange.WithDetails("status " + target.String() + " is set by orders")
	}
	return checkSellerTransition(product, target, transacted)
}

func checkSellerTransition(product *Product, target ProductStatus, transacted bool) error {
	if transacted {
		return errors.ErrAlreadyTransacted
	}
	if !CanTransitionProduct(product.Status, target) {
		return errors.ErrInvalidStatusChange.WithDetails(
			product.Status.String() + " to " + target.String())
	}
	return nil
}
