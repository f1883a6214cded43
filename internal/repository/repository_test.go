package repository

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"campus-market/internal/domain"
	"campus-market/internal/errors"
	"campus-market/migrations"
)

type RepositoryTestSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	db        *sql.DB
	store     *Store
	ctx       context.Context
}

func TestRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping repository tests in short mode")
	}
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) SetupSuite() {
	s.ctx = context.Background()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	container, err := tcpostgres.Run(s.ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("campus_market"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("password"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err, "failed to start postgres container")
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.db, err = sql.Open("postgres", connStr)
	s.Require().NoError(err)
	s.Require().NoError(migrations.Apply(s.ctx, s.db, logger))

	s.store = NewStore(s.db, logger)
}

func (s *RepositoryTestSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		s.NoError(s.container.Terminate(s.ctx))
	}
}

func (s *RepositoryTestSuite) SetupTest() {
	_, err := s.db.ExecContext(s.ctx, `TRUNCATE transactions, products, users`)
	s.Require().NoError(err)
}

func (s *RepositoryTestSuite) createUser(username, phone, card string) *domain.User {
	user := &domain.User{
		ID:           domain.NewUserID(),
		Username:     username,
		PasswordHash: "hash",
		Phone:        phone,
		CampusCard:   card,
		CreatedAt:    time.Now().UTC(),
	}
	s.Require().NoError(s.store.Users().CreateUser(s.ctx, user))
	return user
}

func (s *RepositoryTestSuite) createProduct(seller *domain.User, name string, price domain.Cents, categoryID int64) *domain.Product {
	now := time.Now().UTC()
	product := &domain.Product{
		ID:         domain.NewProductID(),
		Name:       name,
		Price:      price,
		SellerID:   seller.ID,
		CategoryID: categoryID,
		Status:     domain.ProductListed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.Require().NoError(s.store.Products().CreateProduct(s.ctx, product))
	return product
}

func (s *RepositoryTestSuite) TestUserUniqueness() {
	alice := s.createUser("alice", "13800000001", "A001")

	found, err := s.store.Users().GetUserByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(alice.ID, found.ID)

	dup := &domain.User{ID: domain.NewUserID(), Username: "alice", PasswordHash: "x", Phone: "13800000002", CampusCard: "A002", CreatedAt: time.Now()}
	s.ErrorIs(s.store.Users().CreateUser(s.ctx, dup), errors.ErrDuplicateUsername)

	dup = &domain.User{ID: domain.NewUserID(), Username: "bob", PasswordHash: "x", Phone: "13800000001", CampusCard: "A002", CreatedAt: time.Now()}
	s.ErrorIs(s.store.Users().CreateUser(s.ctx, dup), errors.ErrDuplicatePhone)

	dup = &domain.User{ID: domain.NewUserID(), Username: "bob", PasswordHash: "x", Phone: "13800000002", CampusCard: "A001", CreatedAt: time.Now()}
	s.ErrorIs(s.store.Users().CreateUser(s.ctx, dup), errors.ErrDuplicateCampusCard)

	_, err = s.store.Users().GetUserByID(s.ctx, domain.NewUserID())
	s.ErrorIs(err, errors.ErrUserNotFound)
}

func (s *RepositoryTestSuite) TestUpdateUserContact() {
	alice := s.createUser("alice", "13800000001", "A001")
	s.createUser("bob", "13800000002", "B001")

	s.Require().NoError(s.store.Users().UpdateUserContact(s.ctx, alice.ID, "13900000001", "A009"))
	found, err := s.store.Users().GetUserByID(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Equal("13900000001", found.Phone)
	s.Equal("A009", found.CampusCard)

	s.ErrorIs(s.store.Users().UpdateUserContact(s.ctx, alice.ID, "13800000002", "A009"), errors.ErrDuplicatePhone)
	s.ErrorIs(s.store.Users().UpdateUserContact(s.ctx, domain.NewUserID(), "13700000000", "Z1"), errors.ErrUserNotFound)
}

func (s *RepositoryTestSuite) TestCategoriesSeeded() {
	categories, err := s.store.Categories().ListCategories(s.ctx)
	s.Require().NoError(err)
	s.NotEmpty(categories)

	_, err = s.store.Categories().GetCategory(s.ctx, 9999)
	s.ErrorIs(err, errors.ErrCategoryNotFound)
}

func (s *RepositoryTestSuite) TestCreateProductUnknownCategory() {
	seller := s.createUser("seller", "13800000001", "S001")
	product := &domain.Product{
		ID: domain.NewProductID(), Name: "Lamp", Price: 100, SellerID: seller.ID,
		CategoryID: 9999, Status: domain.ProductListed, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	s.ErrorIs(s.store.Products().CreateProduct(s.ctx, product), errors.ErrCategoryNotFound)
}

func (s *RepositoryTestSuite) TestListAvailableFilters() {
	seller := s.createUser("seller", "13800000001", "S001")
	viewer := s.createUser("viewer", "13800000002", "V001")

	cheap := s.createProduct(seller, "Calculus book", 1500, 1)
	s.createProduct(seller, "Desk lamp", 4000, 3)
	s.createProduct(seller, "100%_cotton", 2500, 5)
	own := s.createProduct(viewer, "Calculus notes", 500, 1)
	withdrawn := s.createProduct(seller, "Calculus old", 100, 1)
	s.Require().NoError(s.store.Products().UpdateProductStatus(s.ctx, withdrawn.ID, domain.ProductWithdrawn))

	page := domain.Page{Number: 1, Size: 10}

	views, total, err := s.store.Products().ListAvailable(s.ctx, domain.ProductFilter{Keyword: "calculus"}, page)
	s.Require().NoError(err)
	s.EqualValues(2, total)
	s.Len(views, 2)

	views, total, err = s.store.Products().ListAvailable(s.ctx,
		domain.ProductFilter{Keyword: "calculus", ExcludeSellerID: viewer.ID}, page)
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Equal(cheap.ID, views[0].ID)
	s.Equal("seller", views[0].SellerUsername)
	s.NotEmpty(views[0].CategoryName)

	views, _, err = s.store.Products().ListAvailable(s.ctx, domain.ProductFilter{Keyword: "%_"}, page)
	s.Require().NoError(err)
	s.Require().Len(views, 1)
	s.Equal("100%_cotton", views[0].Name)

	minPrice, maxPrice := domain.Cents(1000), domain.Cents(3000)
	views, total, err = s.store.Products().ListAvailable(s.ctx,
		domain.ProductFilter{MinPrice: &minPrice, MaxPrice: &maxPrice, Sort: domain.SortPriceDesc}, page)
	s.Require().NoError(err)
	s.EqualValues(2, total)
	s.Equal(domain.Cents(2500), views[0].Price)
	s.Equal(domain.Cents(1500), views[1].Price)

	views, total, err = s.store.Products().ListAvailable(s.ctx, domain.ProductFilter{}, domain.Page{Number: 2, Size: 3})
	s.Require().NoError(err)
	s.EqualValues(4, total)
	s.Len(views, 1)

	mine, total, err := s.store.Products().ListBySeller(s.ctx, viewer.ID, page)
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Equal(own.ID, mine[0].ID)
}

func (s *RepositoryTestSuite) TestOnePendingOrderPerProduct() {
	seller := s.createUser("seller", "13800000001", "S001")
	buyer := s.createUser("buyer", "13800000002", "B001")
	product := s.createProduct(seller, "Bike", 20000, 4)

	first := domain.NewOrder(product, buyer.ID, time.Now().UTC())
	s.Require().NoError(s.store.Transactions().CreateTransaction(s.ctx, first))

	second := domain.NewOrder(product, buyer.ID, time.Now().UTC())
	s.ErrorIs(s.store.Transactions().CreateTransaction(s.ctx, second), errors.ErrAlreadyOrdered)

	pending, err := s.store.Transactions().HasPendingForProduct(s.ctx, product.ID)
	s.Require().NoError(err)
	s.True(pending)

	s.Require().NoError(s.store.Transactions().UpdateTransactionStatus(s.ctx, first.ID, domain.TransactionCancelled))
	pending, err = s.store.Transactions().HasPendingForProduct(s.ctx, product.ID)
	s.Require().NoError(err)
	s.False(pending)

	exists, err := s.store.Transactions().ExistsForProduct(s.ctx, product.ID)
	s.Require().NoError(err)
	s.True(exists)
}

func (s *RepositoryTestSuite) TestGetProductForOrderDoesNotWait() {
	seller := s.createUser("seller", "13800000001", "S001")
	product := s.createProduct(seller, "Guitar", 30000, 6)

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- s.store.WithTransaction(s.ctx, func(tx domain.Store) error {
			if _, err := tx.Products().GetProductForUpdate(s.ctx, product.ID); err != nil {
				close(locked)
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()

	<-locked
	err := s.store.WithTransaction(s.ctx, func(tx domain.Store) error {
		_, err := tx.Products().GetProductForOrder(s.ctx, product.ID)
		return err
	})
	s.ErrorIs(err, errors.ErrConcurrentModification)

	close(release)
	s.Require().NoError(<-done)
}

func (s *RepositoryTestSuite) TestWithTransactionRollsBack() {
	seller := s.createUser("seller", "13800000001", "S001")
	product := s.createProduct(seller, "Chair", 800, 3)

	err := s.store.WithTransaction(s.ctx, func(tx domain.Store) error {
		if err := tx.Products().UpdateProductStatus(s.ctx, product.ID, domain.ProductUnavailable); err != nil {
			return err
		}
		return errors.ErrNotPurchasable
	})
	s.ErrorIs(err, errors.ErrNotPurchasable)

	found, err := s.store.Products().GetProduct(s.ctx, product.ID)
	s.Require().NoError(err)
	s.Equal(domain.ProductListed, found.Status)
}

func (s *RepositoryTestSuite) TestTransactionViewsAndHistory() {
	seller := s.createUser("seller", "13800000001", "S001")
	buyer := s.createUser("buyer", "13800000002", "B001")
	book := s.createProduct(seller, "Book", 1200, 1)
	phone := s.createProduct(seller, "Phone", 99900, 2)

	bookOrder := domain.NewOrder(book, buyer.ID, time.Now().UTC().Add(-time.Hour))
	s.Require().NoError(s.store.Transactions().CreateTransaction(s.ctx, bookOrder))
	s.Require().NoError(s.store.Transactions().UpdateTransactionStatus(s.ctx, bookOrder.ID, domain.TransactionPaid))

	phoneOrder := domain.NewOrder(phone, buyer.ID, time.Now().UTC())
	s.Require().NoError(s.store.Transactions().CreateTransaction(s.ctx, phoneOrder))

	view, err := s.store.Transactions().GetTransactionView(s.ctx, bookOrder.ID)
	s.Require().NoError(err)
	s.Equal("buyer", view.BuyerUsername)
	s.Equal("seller", view.SellerUsername)
	s.Equal("Book", view.ProductName)
	s.Equal(domain.TransactionPaid, view.Status)
	s.Equal(domain.Cents(1200), view.Amount)

	page := domain.Page{Number: 1, Size: 10}
	views, total, err := s.store.Transactions().ListForUser(s.ctx, seller.ID, domain.TransactionFilter{}, page)
	s.Require().NoError(err)
	s.EqualValues(2, total)
	s.Equal(phoneOrder.ID, views[0].ID)

	paid := domain.TransactionPaid
	views, total, err = s.store.Transactions().ListForUser(s.ctx, buyer.ID, domain.TransactionFilter{Status: &paid}, page)
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Equal(bookOrder.ID, views[0].ID)

	category := int64(2)
	views, _, err = s.store.Transactions().ListForUser(s.ctx, buyer.ID, domain.TransactionFilter{CategoryID: &category}, page)
	s.Require().NoError(err)
	s.Require().Len(views, 1)
	s.Equal(phoneOrder.ID, views[0].ID)

	outsider := s.createUser("outsider", "13800000003", "O001")
	_, total, err = s.store.Transactions().ListForUser(s.ctx, outsider.ID, domain.TransactionFilter{}, page)
	s.Require().NoError(err)
	s.Zero(total)
}
