package domain

import (
	"context"
	"time"
	"unicode/utf8"

	"campus-market/internal/errors"
)

type ProductStatus int16

const (
	ProductUnavailable ProductStatus = 0
	ProductListed      ProductStatus = 1
	ProductSold        ProductStatus = 2
	ProductWithdrawn   ProductStatus = 3
)

func (s ProductStatus) String() string {
	switch s {
	case ProductUnavailable:
		return "unavailable"
	case ProductListed:
		return "listed"
	case ProductSold:
		return "sold"
	case ProductWithdrawn:
		return "withdrawn"
	default:
		return "unknown"
	}
}

func (s ProductStatus) Valid() bool {
	return s >= ProductUnavailable && s <= ProductWithdrawn
}

type Product struct {
	ID          string        `json:"product_id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Price       Cents         `json:"price"`
	SellerID    string        `json:"seller_id"`
	CategoryID  int64         `json:"category_id"`
	ImagePath   string        `json:"image_path"`
	Status      ProductStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ProductView is a product joined with its seller and category.
type ProductView struct {
	Product
	SellerUsername string `json:"seller_username"`
	SellerPhone    string `json:"seller_phone"`
	CategoryName   string `json:"category_name"`
}

// ProductInput carries the seller-editable fields of a new listing.
type ProductInput struct {
	Name        string
	Description string
	Price       Cents
	CategoryID  int64
	ImagePath   string
}

func (in ProductInput) Validate() error {
	if err := validateProductName(in.Name); err != nil {
		return err
	}
	if err := validateDescription(in.Description); err != nil {
		return err
	}
	if err := validatePrice(in.Price); err != nil {
		return err
	}
	if err := validateCategoryID(in.CategoryID); err != nil {
		return err
	}
	return validateImagePath(in.ImagePath)
}

// ProductPatch lists the optional fields of a product update. Nil fields are
// left unchanged.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *Cents
	CategoryID  *int64
	ImagePath   *string
	Status      *ProductStatus
}

func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil &&
		p.CategoryID == nil && p.ImagePath == nil && p.Status == nil
}

// Validate checks each present field with the rules used on creation.
func (p ProductPatch) Validate() error {
	if p.Name != nil {
		if err := validateProductName(*p.Name); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := validateDescription(*p.Description); err != nil {
			return err
		}
	}
	if p.Price != nil {
		if err := validatePrice(*p.Price); err != nil {
			return err
		}
	}
	if p.CategoryID != nil {
		if err := validateCategoryID(*p.CategoryID); err != nil {
			return err
		}
	}
	if p.ImagePath != nil {
		if err := validateImagePath(*p.ImagePath); err != nil {
			return err
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		return errors.ErrInvalidInput.WithDetails("status must be between 0 and 3")
	}
	return nil
}

// ApplyFields copies the non-status fields of the patch onto the product.
// Status changes go through CheckSellerStatusChange.
func (p ProductPatch) ApplyFields(product *Product) {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.CategoryID != nil {
		product.CategoryID = *p.CategoryID
	}
	if p.ImagePath != nil {
		product.ImagePath = *p.ImagePath
	}
}

func validateProductName(name string) error {
	if n := utf8.RuneCountInString(name); n < 1 || n > 20 {
		return errors.ErrInvalidInput.WithDetails("name must be 1 to 20 characters")
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > 500 {
		return errors.ErrInvalidInput.WithDetails("description must be at most 500 characters")
	}
	return nil
}

func validatePrice(price Cents) error {
	if price < 0 || price > MaxPrice {
		return errors.ErrInvalidPrice.WithDetails("price out of range")
	}
	return nil
}

func validateCategoryID(id int64) error {
	if id <= 0 {
		return errors.ErrInvalidInput.WithDetails("category_id must be positive")
	}
	return nil
}

func validateImagePath(path string) error {
	if len(path) > 255 {
		return errors.ErrInvalidInput.WithDetails("image_path must be at most 255 bytes")
	}
	return nil
}

type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
)

func ParseProductSort(s string) (ProductSort, error) {
	switch ProductSort(s) {
	case "":
		return SortNewest, nil
	case SortNewest, SortPriceAsc, SortPriceDesc:
		return ProductSort(s), nil
	default:
		return "", errors.ErrInvalidInput.WithDetails("sort must be newest, price_asc or price_desc")
	}
}

// ProductFilter narrows the catalog of listed products.
type ProductFilter struct {
	Keyword         string
	CategoryID      *int64
	MinPrice        *Cents
	MaxPrice        *Cents
	Sort            ProductSort
	ExcludeSellerID string
}

func (f ProductFilter) Validate() error {
	if f.CategoryID != nil && *f.CategoryID <= 0 {
		return errors.ErrInvalidInput.WithDetails("category_id must be positive")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return errors.ErrInvalidInput.WithDetails("min_price must not exceed max_price")
	}
	_, err := ParseProductSort(string(f.Sort))
	return err
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, product *Product) error
	GetProduct(ctx context.Context, id string) (*Product, error)
	// GetProductForUpdate locks the product row until the surrounding
	// transaction ends, waiting for other holders.
	GetProductForUpdate(ctx context.Context, id string) (*Product, error)
	// GetProductForOrder locks the product row without waiting and reports
	// contention as errors.ErrConcurrentModification.
	GetProductForOrder(ctx context.Context, id string) (*Product, error)
	GetProductView(ctx context.Context, id string) (*ProductView, error)
	UpdateProduct(ctx context.Context, product *Product) error
	UpdateProductStatus(ctx context.Context, id string, status ProductStatus) error
	ListAvailable(ctx context.Context, filter ProductFilter, page Page) ([]ProductView, int64, error)
	ListBySeller(ctx context.Context, sellerID string, page Page) ([]ProductView, int64, error)
}
