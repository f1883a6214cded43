package handler

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"campus-market/internal/auth"
	"campus-market/internal/domain"
	"campus-market/internal/errors"
	"campus-market/internal/service"
)

type ProductHandler struct {
	productService *service.ProductService
	options        Options
}

func NewProductHandler(productService *service.ProductService, options Options) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		options:        options,
	}
}

// CreateProductRequest accepts the price as a JSON number or a decimal string.
type CreateProductRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	CategoryID  int64       `json:"category_id"`
	ImagePath   string      `json:"image_path"`
}

type UpdateProductRequest struct {
	Name        *string      `json:"name"`
	Description *string      `json:"description"`
	Price       *json.Number `json:"price"`
	CategoryID  *int64       `json:"category_id"`
	ImagePath   *string      `json:"image_path"`
	Status      *int         `json:"status"`
}

func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.productService.ListCategories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	response := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		response = append(response, CategoryResponse{ID: c.ID, Name: c.Name, Description: c.Description})
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	price, err := domain.ParseCents(req.Price.String())
	if err != nil {
		writeError(w, err)
		return
	}

	view, err := h.productService.CreateProduct(r.Context(), auth.UserIDFrom(r.Context()), domain.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		CategoryID:  req.CategoryID,
		ImagePath:   req.ImagePath,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.options.productViewResponse(view))
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	view, err := h.productService.GetProduct(r.Context(), mux.Vars(r)["product_id"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.options.productViewResponse(view))
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	patch := domain.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		ImagePath:   req.ImagePath,
	}
	if req.Price != nil {
		price, err := domain.ParseCents(req.Price.String())
		if err != nil {
			writeError(w, err)
			return
		}
		patch.Price = &price
	}
	if req.Status != nil {
		if *req.Status < 0 || *req.Status > int(domain.ProductWithdrawn) {
			writeError(w, errors.ErrInvalidInput.WithDetails("status must be between 0 and 3"))
			return
		}
		status := domain.ProductStatus(*req.Status)
		patch.Status = &status
	}

	view, err := h.productService.UpdateProduct(r.Context(), mux.Vars(r)["product_id"], auth.UserIDFrom(r.Context()), patch)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.options.productViewResponse(view))
}

func (h *ProductHandler) WithdrawListing(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.WithdrawListing(r.Context(), mux.Vars(r)["product_id"], auth.UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.options.productResponse(product))
}

func (h *ProductHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := parsePage(q, h.options.DefaultPageSize)
	if err != nil {
		writeError(w, err)
		return
	}

	filter, err := parseProductFilter(q)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.productService.ListAvailable(r.Context(), filter, page, auth.UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newListResponse(result, h.options.productViewResponse))
}

func (h *ProductHandler) ListMyProducts(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r.URL.Query(), h.options.DefaultPageSize)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.productService.ListMyProducts(r.Context(), auth.UserIDFrom(r.Context()), page)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newListResponse(result, h.options.productViewResponse))
}

func parseProductFilter(values url.Values) (domain.ProductFilter, error) {
	var filter domain.ProductFilter
	var err error

	filter.Keyword = values.Get("keyword")
	if filter.CategoryID, err = parseOptionalInt64(values, "category_id"); err != nil {
		return filter, err
	}
	if filter.MinPrice, err = parseOptionalCents(values, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = parseOptionalCents(values, "max_price"); err != nil {
		return filter, err
	}
	filter.Sort, err = domain.ParseProductSort(values.Get("sort"))
	return filter, err
}
