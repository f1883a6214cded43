package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"campus-market/internal/auth"
	"campus-market/internal/domain"
	"campus-market/internal/errors"
	"campus-market/internal/service"
)

type TransactionHandler struct {
	orderService *service.OrderService
	options      Options
}

func NewTransactionHandler(orderService *service.OrderService, options Options) *TransactionHandler {
	return &TransactionHandler{
		orderService: orderService,
		options:      options,
	}
}

type PlaceOrderRequest struct {
	ProductID string `json:"product_id"`
}

func (h *TransactionHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ProductID == "" {
		writeError(w, errors.ErrInvalidInput.WithDetails("product_id is required"))
		return
	}

	buyerID := auth.UserIDFrom(r.Context())
	order, err := h.orderService.PlaceOrder(r.Context(), req.ProductID, buyerID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.writeTransaction(w, r, http.StatusCreated, order, buyerID)
}

func (h *TransactionHandler) Pay(w http.ResponseWriter, r *http.Request) {
	payerID := auth.UserIDFrom(r.Context())
	paid, err := h.orderService.Pay(r.Context(), mux.Vars(r)["transaction_id"], payerID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.writeTransaction(w, r, http.StatusOK, paid, payerID)
}

func (h *TransactionHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	actorID := auth.UserIDFrom(r.Context())
	cancelled, err := h.orderService.CancelOrder(r.Context(), mux.Vars(r)["transaction_id"], actorID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.writeTransaction(w, r, http.StatusOK, cancelled, actorID)
}

func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	viewerID := auth.UserIDFrom(r.Context())
	view, err := h.orderService.GetTransaction(r.Context(), mux.Vars(r)["transaction_id"], viewerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.options.transactionViewResponse(view, viewerID))
}

func (h *TransactionHandler) ListMyTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	viewerID := auth.UserIDFrom(r.Context())

	page, err := parsePage(q, h.options.DefaultPageSize)
	if err != nil {
		writeError(w, err)
		return
	}

	var filter domain.TransactionFilter
	status, err := parseOptionalInt64(q, "status")
	if err != nil {
		writeError(w, err)
		return
	}
	if status != nil {
		if *status < 0 || *status > int64(domain.TransactionCancelled) {
			writeError(w, errors.ErrInvalidInput.WithDetails("status must be between 0 and 2"))
			return
		}
		s := domain.TransactionStatus(*status)
		filter.Status = &s
	}
	if filter.CategoryID, err = parseOptionalInt64(q, "category_id"); err != nil {
		writeError(w, err)
		return
	}
	if filter.From, err = parseOptionalDate(q, "start_date", false); err != nil {
		writeError(w, err)
		return
	}
	if filter.To, err = parseOptionalDate(q, "end_date", true); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.orderService.ListMyTransactions(r.Context(), viewerID, filter, page)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newListResponse(result, func(v *domain.TransactionView) TransactionResponse {
		return h.options.transactionViewResponse(v, viewerID)
	}))
}

// writeTransaction answers with the joined view of a transaction the state
// machine just changed, falling back to the bare record if the lookup fails.
func (h *TransactionHandler) writeTransaction(w http.ResponseWriter, r *http.Request, status int, t *domain.Transaction, viewerID string) {
	view, err := h.orderService.GetTransaction(r.Context(), t.ID, viewerID)
	if err != nil {
		writeJSON(w, status, transactionResponse(t))
		return
	}
	writeJSON(w, status, h.options.transactionViewResponse(view, viewerID))
}
