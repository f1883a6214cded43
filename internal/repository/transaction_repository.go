package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"
	"strings"

	"campus-market/internal/domain"
	"campus-market/internal/errors"
)

const transactionColumns = `t.id, t.amount, t.buyer_id, t.seller_id, t.product_id, t.status, t.created_at, t.updated_at`

const transactionViewSelect = `
	SELECT ` + transactionColumns + `, b.username, s.username, p.name, p.image_path, c.name
	FROM transactions t
	JOIN users b ON b.id = t.buyer_id
	JOIN users s ON s.id = t.seller_id
	JOIN products p ON p.id = t.product_id
	JOIN categories c ON c.id = p.category_id`

type transactionRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransactionRepository(db SQLExecutor, logger *slog.Logger) domain.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *transactionRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions
		(id, amount, buyer_id, seller_id, product_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		tx.ID,
		int64(tx.Amount),
		tx.BuyerID,
		tx.SellerID,
		tx.ProductID,
		tx.Status,
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	if err != nil {
		if mapped := mapPQError(err); mapped != nil {
			logMapped(r.logger, "Transaction insert rejected", mapped, "product_id", tx.ProductID)
			return mapped
		}
		r.logger.Error("Failed to create transaction",
			"buyer_id", tx.BuyerID,
			"product_id", tx.ProductID,
			"amount", tx.Amount.String(),
			"error", err)
		return errors.Internal("failed to create transaction", err)
	}

	r.logger.Info("Transaction created successfully", "transaction_id", tx.ID)
	return nil
}

func (r *transactionRepository) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return r.getTransaction(ctx, id, "")
}

func (r *transactionRepository) GetTransactionForUpdate(ctx context.Context, id string) (*domain.Transaction, error) {
	return r.getTransaction(ctx, id, " FOR UPDATE")
}

func (r *transactionRepository) getTransaction(ctx context.Context, id, lock string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions t WHERE t.id = $1` + lock

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrTransactionNotFound
		}
		r.logger.Error("Failed to get transaction", "transaction_id", id, "error", err)
		return nil, errors.Internal("failed to get transaction", err)
	}

	return tx, nil
}

func (r *transactionRepository) GetTransactionView(ctx context.Context, id string) (*domain.TransactionView, error) {
	view, err := scanTransactionView(r.db.QueryRowContext(ctx, transactionViewSelect+` WHERE t.id = $1`, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrTransactionNotFound
		}
		r.logger.Error("Failed to get transaction", "transaction_id", id, "error", err)
		return nil, errors.Internal("failed to get transaction", err)
	}

	return view, nil
}

func (r *transactionRepository) HasPendingForProduct(ctx context.Context, productID string) (bool, error) {
	return r.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE product_id = $1 AND status = $2)`,
		productID, domain.TransactionPending)
}

func (r *transactionRepository) ExistsForProduct(ctx context.Context, productID string) (bool, error) {
	return r.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE product_id = $1)`,
		productID)
}

func (r *transactionRepository) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var found bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		r.logger.Error("Failed to check transactions", "error", err)
		return false, errors.Internal("failed to check transactions", err)
	}
	return found, nil
}

func (r *transactionRepository) UpdateTransactionStatus(ctx context.Context, id string, status domain.TransactionStatus) error {
	query := `UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update transaction status",
			"transaction_id", id, "status", status, "error", err)
		return errors.Internal("failed to update transaction status", err)
	}

	if err := expectOneRow(result, errors.ErrTransactionNotFound); err != nil {
		return err
	}

	r.logger.Info("Transaction status updated", "transaction_id", id, "status", status.String())
	return nil
}

func (r *transactionRepository) ListForUser(ctx context.Context, userID string, filter domain.TransactionFilter, page domain.Page) ([]domain.TransactionView, int64, error) {
	var args queryArgs
	user := args.add(userID)
	where := []string{"(t.buyer_id = " + user + " OR t.seller_id = " + user + ")"}

	if filter.Status != nil {
		where = append(where, "t.status = "+args.add(*filter.Status))
	}
	if filter.CategoryID != nil {
		where = append(where, "p.category_id = "+args.add(*filter.CategoryID))
	}
	if filter.From != nil {
		where = append(where, "t.created_at >= "+args.add(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "t.created_at <= "+args.add(*filter.To))
	}
	clause := strings.Join(where, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM transactions t JOIN products p ON p.id = t.product_id WHERE ` + clause
	if err := r.db.QueryRowContext(ctx, countQuery, args.values...).Scan(&total); err != nil {
		r.logger.Error("Failed to count transactions", "user_id", userID, "error", err)
		return nil, 0, errors.Internal("failed to count transactions", err)
	}

	query := transactionViewSelect + ` WHERE ` + clause +
		` ORDER BY t.created_at DESC, t.id DESC LIMIT ` + args.add(page.Limit()) +
		` OFFSET ` + args.add(page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args.values...)
	if err != nil {
		r.logger.Error("Failed to list transactions", "user_id", userID, "error", err)
		return nil, 0, errors.Internal("failed to list transactions", err)
	}
	defer rows.Close()

	views := []domain.TransactionView{}
	for rows.Next() {
		view, err := scanTransactionView(rows)
		if err != nil {
			return nil, 0, errors.Internal("failed to scan transaction", err)
		}
		views = append(views, *view)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Internal("failed to list transactions", err)
	}

	return views, total, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var amount int64

	err := row.Scan(
		&t.ID,
		&amount,
		&t.BuyerID,
		&t.SellerID,
		&t.ProductID,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Amount = domain.Cents(amount)
	return &t, nil
}

func scanTransactionView(row rowScanner) (*domain.TransactionView, error) {
	var v domain.TransactionView
	var amount int64

	err := row.Scan(
		&v.ID,
		&amount,
		&v.BuyerID,
		&v.SellerID,
		&v.ProductID,
		&v.Status,
		&v.CreatedAt,
		&v.UpdatedAt,
		&v.BuyerUsername,
		&v.SellerUsername,
		&v.ProductName,
		&v.ProductImagePath,
		&v.CategoryName,
	)
	if err != nil {
		return nil, err
	}

	v.Amount = domain.Cents(amount)
	return &v, nil
}
