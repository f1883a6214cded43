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

const productColumns = `p.id, p.name, p.description, p.price, p.seller_id, p.category_id,
	p.image_path, p.status, p.created_at, p.updated_at`

const productViewSelect = `
	SELECT ` + productColumns + `, u.username, u.phone, c.name
	FROM products p
	JOIN users u ON u.id = p.seller_id
	JOIN categories c ON c.id = p.category_id`

type productRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewProductRepository(db SQLExecutor, logger *slog.Logger) domain.ProductRepository {
	return &productRepository{
		db:     db,
		logger: logger,
	}
}

func (r *productRepository) CreateProduct(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products
		(id, name, description, price, seller_id, category_id, image_path, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		int64(product.Price),
		product.SellerID,
		product.CategoryID,
		product.ImagePath,
		product.Status,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		if mapped := mapPQError(err); mapped != nil {
			return mapped
		}
		r.logger.Error("Failed to create product", "seller_id", product.SellerID, "error", err)
		return errors.Internal("failed to create product", err)
	}

	r.logger.Info("Product created successfully", "product_id", product.ID, "seller_id", product.SellerID)
	return nil
}

func (r *productRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return r.getProduct(ctx, id, "")
}

func (r *productRepository) GetProductForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	return r.getProduct(ctx, id, " FOR UPDATE")
}

func (r *productRepository) GetProductForOrder(ctx context.Context, id string) (*domain.Product, error) {
	return r.getProduct(ctx, id, " FOR UPDATE NOWAIT")
}

func (r *productRepository) getProduct(ctx context.Context, id, lock string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1` + lock

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrProductNotFound
		}
		if mapped := mapPQError(err); mapped != nil {
			logMapped(r.logger, "Product read rejected", mapped, "product_id", id)
			return nil, mapped
		}
		r.logger.Error("Failed to get product", "product_id", id, "error", err)
		return nil, errors.Internal("failed to get product", err)
	}

	return product, nil
}

func (r *productRepository) GetProductView(ctx context.Context, id string) (*domain.ProductView, error) {
	view, err := scanProductView(r.db.QueryRowContext(ctx, productViewSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrProductNotFound
		}
		r.logger.Error("Failed to get product", "product_id", id, "error", err)
		return nil, errors.Internal("failed to get product", err)
	}

	return view, nil
}

func (r *productRepository) UpdateProduct(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, category_id = $4,
			image_path = $5, status = $6, updated_at = $7
		WHERE id = $8
	`

	result, err := r.db.ExecContext(ctx, query,
		product.Name,
		product.Description,
		int64(product.Price),
		product.CategoryID,
		product.ImagePath,
		product.Status,
		product.UpdatedAt,
		product.ID,
	)
	if err != nil {
		if mapped := mapPQError(err); mapped != nil {
			return mapped
		}
		r.logger.Error("Failed to update product", "product_id", product.ID, "error", err)
		return errors.Internal("failed to update product", err)
	}

	if err := expectOneRow(result, errors.ErrProductNotFound); err != nil {
		return err
	}

	r.logger.Info("Product updated", "product_id", product.ID)
	return nil
}

func (r *productRepository) UpdateProductStatus(ctx context.Context, id string, status domain.ProductStatus) error {
	query := `UPDATE products SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update product status", "product_id", id, "status", status, "error", err)
		return errors.Internal("failed to update product status", err)
	}

	if err := expectOneRow(result, errors.ErrProductNotFound); err != nil {
		return err
	}

	r.logger.Info("Product status updated", "product_id", id, "status", status.String())
	return nil
}

func (r *productRepository) ListAvailable(ctx context.Context, filter domain.ProductFilter, page domain.Page) ([]domain.ProductView, int64, error) {
	var args queryArgs
	where := []string{"p.status = " + args.add(domain.ProductListed)}

	if filter.Keyword != "" {
		where = append(where, "p.name ILIKE "+args.add("%"+escapeLike(filter.Keyword)+"%"))
	}
	if filter.CategoryID != nil {
		where = append(where, "p.category_id = "+args.add(*filter.CategoryID))
	}
	if filter.MinPrice != nil {
		where = append(where, "p.price >= "+args.add(int64(*filter.MinPrice)))
	}
	if filter.MaxPrice != nil {
		where = append(where, "p.price <= "+args.add(int64(*filter.MaxPrice)))
	}
	if filter.ExcludeSellerID != "" {
		where = append(where, "p.seller_id <> "+args.add(filter.ExcludeSellerID))
	}

	return r.listViews(ctx, strings.Join(where, " AND "), productOrderBy(filter.Sort), args, page)
}

func (r *productRepository) ListBySeller(ctx context.Context, sellerID string, page domain.Page) ([]domain.ProductView, int64, error) {
	var args queryArgs
	where := "p.seller_id = " + args.add(sellerID)

	return r.listViews(ctx, where, "p.created_at DESC, p.id DESC", args, page)
}

func (r *productRepository) listViews(ctx context.Context, where, orderBy string, args queryArgs, page domain.Page) ([]domain.ProductView, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM products p WHERE ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args.values...).Scan(&total); err != nil {
		r.logger.Error("Failed to count products", "error", err)
		return nil, 0, errors.Internal("failed to count products", err)
	}

	query := productViewSelect + ` WHERE ` + where + ` ORDER BY ` + orderBy +
		` LIMIT ` + args.add(page.Limit()) + ` OFFSET ` + args.add(page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args.values...)
	if err != nil {
		r.logger.Error("Failed to list products", "error", err)
		return nil, 0, errors.Internal("failed to list products", err)
	}
	defer rows.Close()

	views := []domain.ProductView{}
	for rows.Next() {
		view, err := scanProductView(rows)
		if err != nil {
			return nil, 0, errors.Internal("failed to scan product", err)
		}
		views = append(views, *view)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Internal("failed to list products", err)
	}

	return views, total, nil
}

func productOrderBy(sort domain.ProductSort) string {
	switch sort {
	case domain.SortPriceAsc:
		return "p.price ASC, p.created_at DESC, p.id DESC"
	case domain.SortPriceDesc:
		return "p.price DESC, p.created_at DESC, p.id DESC"
	default:
		return "p.created_at DESC, p.id DESC"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes the keyword match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var price int64

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&price,
		&p.SellerID,
		&p.CategoryID,
		&p.ImagePath,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Price = domain.Cents(price)
	return &p, nil
}

func scanProductView(row rowScanner) (*domain.ProductView, error) {
	var v domain.ProductView
	var price int64

	err := row.Scan(
		&v.ID,
		&v.Name,
		&v.Description,
		&price,
		&v.SellerID,
		&v.CategoryID,
		&v.ImagePath,
		&v.Status,
		&v.CreatedAt,
		&v.UpdatedAt,
		&v.SellerUsername,
		&v.SellerPhone,
		&v.CategoryName,
	)
	if err != nil {
		return nil, err
	}

	v.Price = domain.Cents(price)
	return &v, nil
}
