package service

import (
	"context"
	"log/slog"
	"time"

	"campus-market/internal/domain"
	"campus-market/internal/errors"
)

// OrderService drives products and transactions through the order state
// machine. Every operation runs as one unit of work on the store.
type OrderService struct {
	store       domain.Store
	maxPageSize int
	now         func() time.Time
	logger      *slog.Logger
}

func NewOrderService(store domain.Store, maxPageSize int, logger *slog.Logger) *OrderService {
	return &OrderService{
		store:       store,
		maxPageSize: maxPageSize,
		now:         utcNow,
		logger:      logger,
	}
}

// PlaceOrder creates a pending transaction for a listed product and locks the
// product by marking it unavailable. The amount is the price at this moment.
func (s *OrderService) PlaceOrder(ctx context.Context, productID, buyerID string) (*domain.Transaction, error) {
	if err := domain.ValidateProductID(productID); err != nil {
		return nil, err
	}

	s.logger.Info("Placing order", "product_id", productID, "buyer_id", buyerID)

	var order *domain.Transaction
	err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
		product, err := tx.Products().GetProductForOrder(ctx, productID)
		if err != nil {
			return err
		}

		pending, err := tx.Transactions().HasPendingForProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := domain.CheckPlaceOrder(product, buyerID, pending); err != nil {
			return err
		}

		order = domain.NewOrder(product, buyerID, s.now())
		if err := tx.Transactions().CreateTransaction(ctx, order); err != nil {
			return err
		}
		return tx.Products().UpdateProductStatus(ctx, productID, domain.ProductUnavailable)
	})
	if err != nil {
		s.logger.Warn("Order rejected", "product_id", productID, "buyer_id", buyerID, "error", err)
		return nil, err
	}

	s.logger.Info("Order placed successfully",
		"transaction_id", order.ID,
		"product_id", productID,
		"amount", order.Amount.String())
	return order, nil
}

// Pay settles a pending transaction. Only the buyer may pay.
func (s *OrderService) Pay(ctx context.Context, transactionID, payerID string) (*domain.Transaction, error) {
	s.logger.Info("Processing payment", "transaction_id", transactionID, "payer_id", payerID)

	paid, err := s.settle(ctx, transactionID, domain.TransactionPaid, domain.ProductSold, func(t *domain.Transaction) error {
		return domain.CheckPay(t, payerID)
	})
	if err != nil {
		s.logger.Warn("Payment rejected", "transaction_id", transactionID, "error", err)
		return nil, err
	}

	s.logger.Info("Payment completed successfully", "transaction_id", transactionID, "product_id", paid.ProductID)
	return paid, nil
}

// CancelOrder abandons a pending transaction and lists the product again.
// Either party may cancel.
func (s *OrderService) CancelOrder(ctx context.Context, transactionID, actorID string) (*domain.Transaction, error) {
	s.logger.Info("Cancelling order", "transaction_id", transactionID, "actor_id", actorID)

	cancelled, err := s.settle(ctx, transactionID, domain.TransactionCancelled, domain.ProductListed, func(t *domain.Transaction) error {
		return domain.CheckCancel(t, actorID)
	})
	if err != nil {
		s.logger.Warn("Cancellation rejected", "transaction_id", transactionID, "error", err)
		return nil, err
	}

	s.logger.Info("Order cancelled", "transaction_id", transactionID, "product_id", cancelled.ProductID)
	return cancelled, nil
}

// settle moves a pending transaction to txStatus and its product out of the
// unavailable lock to productStatus, both or neither.
func (s *OrderService) settle(
	ctx context.Context,
	transactionID string,
	txStatus domain.TransactionStatus,
	productStatus domain.ProductStatus,
	check func(*domain.Transaction) error,
) (*domain.Transaction, error) {
	if err := domain.ValidateTransactionID(transactionID); err != nil {
		return nil, err
	}

	var settled *domain.Transaction
	err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
		t, err := tx.Transactions().GetTransactionForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if err := check(t); err != nil {
			return err
		}

		product, err := tx.Products().GetProductForUpdate(ctx, t.ProductID)
		if err != nil {
			return err
		}
		if err := domain.CheckLockedProduct(product, productStatus); err != nil {
			return err
		}

		if err := tx.Transactions().UpdateTransactionStatus(ctx, t.ID, txStatus); err != nil {
			return err
		}
		if err := tx.Products().UpdateProductStatus(ctx, product.ID, productStatus); err != nil {
			return err
		}

		t.Status = txStatus
		t.UpdatedAt = s.now()
		settled = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

// GetTransaction returns a transaction to one of its parties.
func (s *OrderService) GetTransaction(ctx context.Context, transactionID, requesterID string) (*domain.TransactionView, error) {
	if err := domain.ValidateTransactionID(transactionID); err != nil {
		return nil, err
	}

	view, err := s.store.Transactions().GetTransactionView(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !view.IsParty(requesterID) {
		s.logger.Warn("Transaction requested by non-party", "transaction_id", transactionID, "user_id", requesterID)
		return nil, errors.ErrNotAuthorized
	}
	return view, nil
}

// ListMyTransactions returns the user's transactions as buyer or seller,
// newest first.
func (s *OrderService) ListMyTransactions(ctx context.Context, userID string, filter domain.TransactionFilter, page domain.Page) (*domain.PageResult[domain.TransactionView], error) {
	if err := page.Validate(s.maxPageSize); err != nil {
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	items, total, err := s.store.Transactions().ListForUser(ctx, userID, filter, page)
	if err != nil {
		return nil, err
	}
	return newPageResult(items, total, page), nil
}
