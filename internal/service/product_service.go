package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"campus-market/internal/domain"
	"campus-market/internal/errors"
)

type ProductService struct {
	store       domain.Store
	maxPageSize int
	now         func() time.Time
	logger      *slog.Logger
}

func NewProductService(store domain.Store, maxPageSize int, logger *slog.Logger) *ProductService {
	return &ProductService{
		store:       store,
		maxPageSize: maxPageSize,
		now:         utcNow,
		logger:      logger,
	}
}

func (s *ProductService) CreateProduct(ctx context.Context, sellerID string, input domain.ProductInput) (*domain.ProductView, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)

	s.logger.Info("Creating product", "seller_id", sellerID, "name", input.Name, "price", input.Price.String())

	if err := input.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.Categories().GetCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	now := s.now()
	product := &domain.Product{
		ID:          domain.NewProductID(),
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		SellerID:    sellerID,
		CategoryID:  input.CategoryID,
		ImagePath:   input.ImagePath,
		Status:      domain.ProductListed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Products().CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	return s.store.Products().GetProductView(ctx, product.ID)
}

func (s *ProductService) GetProduct(ctx context.Context, productID string) (*domain.ProductView, error) {
	if err := domain.ValidateProductID(productID); err != nil {
		return nil, err
	}
	return s.store.Products().GetProductView(ctx, productID)
}

// UpdateProduct applies a seller's partial edit. A status in the patch goes
// through the same checks as WithdrawListing; the other fields never affect
// transactions already created for the product.
func (s *ProductService) UpdateProduct(ctx context.Context, productID, sellerID string, patch domain.ProductPatch) (*domain.ProductView, error) {
	if err := domain.ValidateProductID(productID); err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	if patch.Empty() {
		return nil, errors.ErrInvalidInput.WithDetails("no fields to update")
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
		product, err := tx.Products().GetProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if product.SellerID != sellerID {
			return errors.ErrNotAuthorized
		}

		if patch.CategoryID != nil {
			if _, err := tx.Categories().GetCategory(ctx, *patch.CategoryID); err != nil {
				return err
			}
		}

		if patch.Status != nil && *patch.Status != product.Status {
			transacted, err := tx.Transactions().ExistsForProduct(ctx, productID)
			if err != nil {
				return err
			}
			if err := domain.CheckSellerStatusChange(product, *patch.Status, transacted); err != nil {
				return err
			}
			product.Status = *patch.Status
		}

		patch.ApplyFields(product)
		product.UpdatedAt = s.now()

		return tx.Products().UpdateProduct(ctx, product)
	})
	if err != nil {
		s.logger.Warn("Product update rejected", "product_id", productID, "seller_id", sellerID, "error", err)
		return nil, err
	}

	s.logger.Info("Product updated successfully", "product_id", productID)
	return s.store.Products().GetProductView(ctx, productID)
}

// WithdrawListing takes a listed product off the market. Products that any
// transaction has referenced, even a cancelled one, cannot be withdrawn.
func (s *ProductService) WithdrawListing(ctx context.Context, productID, ownerID string) (*domain.Product, error) {
	if err := domain.ValidateProductID(productID); err != nil {
		return nil, err
	}

	s.logger.Info("Withdrawing listing", "product_id", productID, "owner_id", ownerID)

	var withdrawn *domain.Product
	err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
		product, err := tx.Products().GetProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if product.SellerID != ownerID {
			return errors.ErrNotAuthorized
		}

		transacted, err := tx.Transactions().ExistsForProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := domain.CheckWithdraw(product, ownerID, transacted); err != nil {
			return err
		}

		if err := tx.Products().UpdateProductStatus(ctx, productID, domain.ProductWithdrawn); err != nil {
			return err
		}

		product.Status = domain.ProductWithdrawn
		product.UpdatedAt = s.now()
		withdrawn = product
		return nil
	})
	if err != nil {
		s.logger.Warn("Withdraw rejected", "product_id", productID, "error", err)
		return nil, err
	}

	s.logger.Info("Listing withdrawn", "product_id", productID)
	return withdrawn, nil
}

// ListAvailable returns listed products. When requesterID is set the
// requester's own listings are left out.
func (s *ProductService) ListAvailable(ctx context.Context, filter domain.ProductFilter, page domain.Page, requesterID string) (*domain.PageResult[domain.ProductView], error) {
	if err := page.Validate(s.maxPageSize); err != nil {
		return nil, err
	}
	filter.Keyword = strings.TrimSpace(filter.Keyword)
	if filter.Sort == "" {
		filter.Sort = domain.SortNewest
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	filter.ExcludeSellerID = requesterID

	items, total, err := s.store.Products().ListAvailable(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	return newPageResult(items, total, page), nil
}

func (s *ProductService) ListMyProducts(ctx context.Context, sellerID string, page domain.Page) (*domain.PageResult[domain.ProductView], error) {
	if err := page.Validate(s.maxPageSize); err != nil {
		return nil, err
	}

	items, total, err := s.store.Products().ListBySeller(ctx, sellerID, page)
	if err != nil {
		return nil, err
	}
	return newPageResult(items, total, page), nil
}

func (s *ProductService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.store.Categories().ListCategories(ctx)
}
