// Package memstore keeps the marketplace in process memory. It serializes
// every unit of work behind one mutex, which makes it suitable for tests and
// single-instance demos.
package memstore

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"campus-market/internal/domain"
)

type state struct {
	users        map[string]domain.User
	categories   []domain.Category
	products     map[string]domain.Product
	transactions map[string]domain.Transaction
}

func (s *state) clone() *state {
	return &state{
		users:        maps.Clone(s.users),
		categories:   s.categories,
		products:     maps.Clone(s.products),
		transactions: maps.Clone(s.transactions),
	}
}

// DefaultCategories matches the rows seeded by the SQL migrations.
var DefaultCategories = []domain.Category{
	{ID: 1, Name: "Books", Description: "Textbooks, novels and course notes"},
	{ID: 2, Name: "Electronics", Description: "Phones, laptops and accessories"},
	{ID: 3, Name: "Daily Necessities", Description: "Household and dormitory items"},
	{ID: 4, Name: "Sports", Description: "Sports equipment and outdoor gear"},
	{ID: 5, Name: "Clothing", Description: "Clothes, shoes and bags"},
	{ID: 6, Name: "Other", Description: "Everything else"},
}

type Store struct {
	mu     *sync.Mutex
	data   **state
	inTx   bool
	now    func() time.Time
	logger *slog.Logger
}

var _ domain.Store = (*Store)(nil)

func NewStore(logger *slog.Logger) *Store {
	now := time.Now().UTC()
	categories := make([]domain.Category, len(DefaultCategories))
	for i, c := range DefaultCategories {
		c.CreatedAt = now
		categories[i] = c
	}

	data := &state{
		users:        map[string]domain.User{},
		categories:   categories,
		products:     map[string]domain.Product{},
		transactions: map[string]domain.Transaction{},
	}

	return &Store{
		mu:     &sync.Mutex{},
		data:   &data,
		now:    time.Now,
		logger: logger,
	}
}

func (s *Store) Users() domain.UserRepository { return &userRepository{s} }
func (s *Store) Categories() domain.CategoryRepository { return &categoryRepository{s} }
func (s *Store) Products() domain.ProductRepository { return &productRepository{s} }
func (s *Store) Transactions() domain.TransactionRepository { return &transactionRepository{s} }

// WithTransaction holds the store lock for the whole callback and restores the
// previous state when fn fails or panics.
func (s *Store) WithTransaction(_ context.Context, fn func(domain.Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := (*s.data).clone()
	txStore := &Store{
		mu:     s.mu,
		data:   s.data,
		inTx:   true,
		now:    s.now,
		logger: s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			*s.data = snapshot
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		*s.data = snapshot
		return err
	}
	return nil
}

// locked runs fn against the current state, taking the lock unless the store
// already runs inside WithTransaction.
func (s *Store) locked(fn func(*state) error) error {
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(*s.data)
}
