package memstore

import (
	"context"
	"sort"

	"campus-market/internal/domain"
	"campus-market/internal/errors"
)

type transactionRepository struct {
	s *Store
}

func (r *transactionRepository) CreateTransaction(_ context.Context, tx *domain.Transaction) error {
	return r.s.locked(func(st *state) error {
		if tx.Status == domain.TransactionPending && hasPending(st, tx.ProductID) {
			return errors.ErrAlreadyOrdered
		}
		st.transactions[tx.ID] = *tx
		r.s.logger.Info("Transaction created successfully", "transaction_id", tx.ID)
		return nil
	})
}

func (r *transactionRepository) GetTransaction(_ context.Context, id string) (*domain.Transaction, error) {
	var found domain.Transaction
	err := r.s.locked(func(st *state) error {
		t, ok := st.transactions[id]
		if !ok {
			return errors.ErrTransactionNotFound
		}
		found = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *transactionRepository) GetTransactionForUpdate(ctx context.Context, id string) (*domain.Transaction, error) {
	return r.GetTransaction(ctx, id)
}

func (r *transactionRepository) GetTransactionView(_ context.Context, id string) (*domain.TransactionView, error) {
	var view domain.TransactionView
	err := r.s.locked(func(st *state) error {
		t, ok := st.transactions[id]
		if !ok {
			return errors.ErrTransactionNotFound
		}
		view = transactionView(st, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (r *transactionRepository) HasPendingForProduct(_ context.Context, productID string) (bool, error) {
	var found bool
	err := r.s.locked(func(st *state) error {
		found = hasPending(st, productID)
		return nil
	})
	return found, err
}

func (r *transactionRepository) ExistsForProduct(_ context.Context, productID string) (bool, error) {
	var found bool
	err := r.s.locked(func(st *state) error {
		for _, t := range st.transactions {
			if t.ProductID == productID {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

func (r *transactionRepository) UpdateTransactionStatus(_ context.Context, id string, status domain.TransactionStatus) error {
	return r.s.locked(func(st *state) error {
		t, ok := st.transactions[id]
		if !ok {
			return errors.ErrTransactionNotFound
		}
		t.Status = status
		t.UpdatedAt = r.s.now().UTC()
		st.transactions[id] = t
		r.s.logger.Info("Transaction status updated", "transaction_id", id, "status", status.String())
		return nil
	})
}

func (r *transactionRepository) ListForUser(_ context.Context, userID string, filter domain.TransactionFilter, page domain.Page) ([]domain.TransactionView, int64, error) {
	var views []domain.TransactionView
	var total int64

	err := r.s.locked(func(st *state) error {
		matched := []domain.Transaction{}
		for _, t := range st.transactions {
			if t.IsParty(userID) && matchTransaction(st, t, filter) {
				matched = append(matched, t)
			}
		}

		sort.Slice(matched, func(i, j int) bool {
			a, b := matched[i], matched[j]
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		})

		total = int64(len(matched))
		views = []domain.TransactionView{}
		for _, t := range paginate(matched, page) {
			views = append(views, transactionView(st, t))
		}
		return nil
	})
	return views, total, err
}

func matchTransaction(st *state, t domain.Transaction, filter domain.TransactionFilter) bool {
	if filter.Status != nil && t.Status != *filter.Status {
		return false
	}
	if filter.CategoryID != nil && st.products[t.ProductID].CategoryID != *filter.CategoryID {
		return false
	}
	if filter.From != nil && t.CreatedAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && t.CreatedAt.After(*filter.To) {
		return false
	}
	return true
}

func hasPending(st *state, productID string) bool {
	for _, t := range st.transactions {
		if t.ProductID == productID && t.Status == domain.TransactionPending {
			return true
		}
	}
	return false
}

func transactionView(st *state, t domain.Transaction) domain.TransactionView {
	view := domain.TransactionView{Transaction: t}
	view.BuyerUsername = st.users[t.BuyerID].Username
	view.SellerUsername = st.users[t.SellerID].Username
	if p, ok := st.products[t.ProductID]; ok {
		view.ProductName = p.Name
		view.ProductImagePath = p.ImagePath
		if c, ok := findCategory(st, p.CategoryID); ok {
			view.CategoryName = c.Name
		}
	}
	return view
}
