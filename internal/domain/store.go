package domain

import "context"

// Store groups the repositories behind one unit of work. Repositories returned
// from the Store passed to WithTransaction's callback share its transaction;
// a non-nil error from the callback rolls every write back.
type Store interface {
	Users() UserRepository
	Categories() CategoryRepository
	Products() ProductRepository
	Transactions() TransactionRepository
	WithTransaction(ctx context.Context, fn func(Store) error) error
}
