package handler

import (
	"time"

	"campus-market/internal/domain"
)

type UserResponse struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	Phone      string    `json:"phone"`
	CampusCard string    `json:"campus_card"`
	CreatedAt  time.Time `json:"created_at"`
}

func newUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		UserID:     u.ID,
		Username:   u.Username,
		Phone:      u.Phone,
		CampusCard: u.CampusCard,
		CreatedAt:  u.CreatedAt,
	}
}

type CategoryResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ProductResponse carries money as a decimal string in major units.
type ProductResponse struct {
	ProductID      string    `json:"product_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Price          string    `json:"price"`
	SellerID       string    `json:"seller_id"`
	SellerUsername string    `json:"seller_username,omitempty"`
	SellerPhone    string    `json:"seller_phone,omitempty"`
	CategoryID     int64     `json:"category_id"`
	CategoryName   string    `json:"category_name,omitempty"`
	ImageURL       string    `json:"image_url"`
	Status         int       `json:"status"`
	StatusLabel    string    `json:"status_label"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (o Options) productResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.String(),
		SellerID:    p.SellerID,
		CategoryID:  p.CategoryID,
		ImageURL:    imageURL(o.ImageBaseURL, p.ImagePath),
		Status:      int(p.Status),
		StatusLabel: p.Status.String(),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (o Options) productViewResponse(v *domain.ProductView) ProductResponse {
	resp := o.productResponse(&v.Product)
	resp.SellerUsername = v.SellerUsername
	resp.SellerPhone = v.SellerPhone
	resp.CategoryName = v.CategoryName
	return resp
}

type TransactionResponse struct {
	TransactionID        string    `json:"transaction_id"`
	Amount               string    `json:"amount"`
	Status               int       `json:"status"`
	StatusLabel          string    `json:"status_label"`
	BuyerID              string    `json:"buyer_id"`
	SellerID             string    `json:"seller_id"`
	ProductID            string    `json:"product_id"`
	ProductName          string    `json:"product_name,omitempty"`
	ProductImageURL      string    `json:"product_image_url,omitempty"`
	CategoryName         string    `json:"category_name,omitempty"`
	CounterpartyUsername string    `json:"counterparty_username,omitempty"`
	CounterpartyRole     string    `json:"counterparty_role,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func transactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID: t.ID,
		Amount:        t.Amount.String(),
		Status:        int(t.Status),
		StatusLabel:   t.Status.String(),
		BuyerID:       t.BuyerID,
		SellerID:      t.SellerID,
		ProductID:     t.ProductID,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func (o Options) transactionViewResponse(v *domain.TransactionView, viewerID string) TransactionResponse {
	resp := transactionResponse(&v.Transaction)
	resp.ProductName = v.ProductName
	resp.ProductImageURL = imageURL(o.ImageBaseURL, v.ProductImagePath)
	resp.CategoryName = v.CategoryName

	name, role := v.Counterparty(viewerID)
	resp.CounterpartyUsername = name
	resp.CounterpartyRole = string(role)
	return resp
}

type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func newListResponse[S, T any](result *domain.PageResult[S], convert func(*S) T) ListResponse[T] {
	items := make([]T, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, convert(&result.Items[i]))
	}
	return ListResponse[T]{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page.Number,
		PageSize:   result.Page.Size,
		TotalPages: result.TotalPages(),
	}
}
