package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"campus-market/internal/domain"
	"campus-market/internal/errors"
)

// Store provides a unified interface for all repository operations with transaction support
type Store struct {
	db       DB
	executor SQLExecutor
	inTx     bool
	logger   *slog.Logger
}

var _ domain.Store = (*Store)(nil)

// NewStore creates a new Store instance
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		db:       db,
		executor: db,
		logger:   logger,
	}
}

func (s *Store) Users() domain.UserRepository {
	return NewUserRepository(s.executor, s.logger)
}

func (s *Store) Categories() domain.CategoryRepository {
	return NewCategoryRepository(s.executor, s.logger)
}

func (s *Store) Products() domain.ProductRepository {
	return NewProductRepository(s.executor, s.logger)
}

func (s *Store) Transactions() domain.TransactionRepository {
	return NewTransactionRepository(s.executor, s.logger)
}

// WithTransaction executes fn within a database transaction. Calls made on a
// Store that is already transactional join the running transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(domain.Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("Failed to begin transaction", "error", err)
		return errors.Internal("failed to begin transaction", err)
	}

	txStore := &Store{
		db:       s.db,
		executor: &TxWrapper{Tx: tx},
		inTx:     true,
		logger:   s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if mapped := mapPQError(err); mapped != nil {
			return mapped
		}
		s.logger.Error("Failed to commit transaction", "error", err)
		return errors.Internal("failed to commit transaction", err)
	}
	return nil
}
