package memstore

import (
	"context"
	"sort"
	"strings"

	"campus-market/internal/domain"
	"campus-market/internal/errors"
)

type productRepository struct {
	s *Store
}

func (r *productRepository) CreateProduct(_ context.Context, product *domain.Product) error {
	return r.s.locked(func(st *state) error {
		if _, ok := findCategory(st, product.CategoryID); !ok {
			return errors.ErrCategoryNotFound
		}
		if _, ok := st.users[product.SellerID]; !ok {
			return errors.ErrUserNotFound
		}
		st.products[product.ID] = *product
		r.s.logger.Info("Product created successfully", "product_id", product.ID, "seller_id", product.SellerID)
		return nil
	})
}

func (r *productRepository) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	var found domain.Product
	err := r.s.locked(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return errors.ErrProductNotFound
		}
		found = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

// Units of work never overlap here, so row locks reduce to plain reads.
func (r *productRepository) GetProductForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	return r.GetProduct(ctx, id)
}

func (r *productRepository) GetProductForOrder(ctx context.Context, id string) (*domain.Product, error) {
	return r.GetProduct(ctx, id)
}

func (r *productRepository) GetProductView(_ context.Context, id string) (*domain.ProductView, error) {
	var view domain.ProductView
	err := r.s.locked(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return errors.ErrProductNotFound
		}
		view = productView(st, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (r *productRepository) UpdateProduct(_ context.Context, product *domain.Product) error {
	return r.s.locked(func(st *state) error {
		if _, ok := st.products[product.ID]; !ok {
			return errors.ErrProductNotFound
		}
		if _, ok := findCategory(st, product.CategoryID); !ok {
			return errors.ErrCategoryNotFound
		}
		st.products[product.ID] = *product
		return nil
	})
}

func (r *productRepository) UpdateProductStatus(_ context.Context, id string, status domain.ProductStatus) error {
	return r.s.locked(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return errors.ErrProductNotFound
		}
		p.Status = status
		p.UpdatedAt = r.s.now().UTC()
		st.products[id] = p
		r.s.logger.Info("Product status updated", "product_id", id, "status", status.String())
		return nil
	})
}

func (r *productRepository) ListAvailable(_ context.Context, filter domain.ProductFilter, page domain.Page) ([]domain.ProductView, int64, error) {
	keyword := strings.ToLower(filter.Keyword)
	return r.list(filter.Sort, page, func(p domain.Product) bool {
		switch {
		case p.Status != domain.ProductListed:
			return false
		case keyword != "" && !strings.Contains(strings.ToLower(p.Name), keyword):
			return false
		case filter.CategoryID != nil && p.CategoryID != *filter.CategoryID:
			return false
		case filter.MinPrice != nil && p.Price < *filter.MinPrice:
			return false
		case filter.MaxPrice != nil && p.Price > *filter.MaxPrice:
			return false
		case filter.ExcludeSellerID != "" && p.SellerID == filter.ExcludeSellerID:
			return false
		}
		return true
	})
}

func (r *productRepository) ListBySeller(_ context.Context, sellerID string, page domain.Page) ([]domain.ProductView, int64, error) {
	return r.list(domain.SortNewest, page, func(p domain.Product) bool {
		return p.SellerID == sellerID
	})
}

func (r *productRepository) list(order domain.ProductSort, page domain.Page, keep func(domain.Product) bool) ([]domain.ProductView, int64, error) {
	var views []domain.ProductView
	var total int64

	err := r.s.locked(func(st *state) error {
		matched := []domain.Product{}
		for _, p := range st.products {
			if keep(p) {
				matched = append(matched, p)
			}
		}
		sortProducts(matched, order)

		total = int64(len(matched))
		views = []domain.ProductView{}
		for _, p := range paginate(matched, page) {
			views = append(views, productView(st, p))
		}
		return nil
	})
	return views, total, err
}

func sortProducts(products []domain.Product, order domain.ProductSort) {
	newer := func(a, b domain.Product) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	}

	sort.Slice(products, func(i, j int) bool {
		a, b := products[i], products[j]
		switch order {
		case domain.SortPriceAsc:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		case domain.SortPriceDesc:
			if a.Price != b.Price {
				return a.Price > b.Price
			}
		}
		return newer(a, b)
	})
}

func paginate[T any](items []T, page domain.Page) []T {
	start := page.Offset()
	if start < 0 || start >= len(items) {
		return nil
	}
	end := len(items)
	if page.Limit() < end-start {
		end = start + page.Limit()
	}
	return items[start:end]
}

func productView(st *state, p domain.Product) domain.ProductView {
	view := domain.ProductView{Product: p}
	if seller, ok := st.users[p.SellerID]; ok {
		view.SellerUsername = seller.Username
		view.SellerPhone = seller.Phone
	}
	if c, ok := findCategory(st, p.CategoryID); ok {
		view.CategoryName = c.Name
	}
	return view
}
