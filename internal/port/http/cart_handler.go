package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type AddItemRequest struct {
	ProductID string            `json:"product_id" validate:"required,ne=metadata"`
	Quantity  int               `json:"quantity" validate:"required,min=1,linequantity"`
	Variants  map[string]string `json:"variants,omitempty"`
}

type UpdateItemRequest struct {
	// Quantity <= 0 removes the item.
	Quantity *int `json:"quantity" validate:"required,linequantity"`
}

type MergeRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

type SummaryRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type TotalsResponse struct {
	Cart   *entity.CartView `json:"cart"`
	Totals entity.Totals    `json:"totals"`
}

type CartHandler struct {
	carts    service.CartService
	summary  service.SummaryService
	validate *validator.Validate
	log      logger.Logger
}

// NewCartHandler builds the cart routes. maxLineQuantity bounds request
// quantities; zero uses entity.DefaultMaxLineQuantity.
func NewCartHandler(carts service.CartService, summary service.SummaryService, log logger.Logger, maxLineQuantity int) *CartHandler {
	if maxLineQuantity <= 0 {
		maxLineQuantity = entity.DefaultMaxLineQuantity
	}
	validate := validator.New()
	validate.RegisterAlias("linequantity", fmt.Sprintf("max=%d", maxLineQuantity))
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &CartHandler{
		carts:    carts,
		summary:  summary,
		validate: validate,
		log:      log.Named("CartHTTPHandler"),
	}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Route("/api/cart", func(r chi.Router) {
		r.Get("/", h.handleGetCart)
		r.Delete("/", h.handleClearCart)
		r.Get("/count", h.handleGetCount)
		r.Get("/totals", h.handleGetTotals)
		r.Post("/items", h.handleAddItem)
		r.Put("/items/{productID}", h.handleUpdateItem)
		r.Delete("/items/{productID}", h.handleRemoveItem)
		r.Post("/merge", h.handleMerge)
		r.Post("/summary", h.handleSendSummary)
	})
}

func (h *CartHandler) identity(w http.ResponseWriter, r *http.Request) (entity.Identity, bool) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		h.log.Error("Identity missing from request context")
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return entity.Identity{}, false
	}
	return identity, true
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler may continue.
func (h *CartHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	return h.decodeBody(w, r, dst, false)
}

// decodeOptional is decode for endpoints where an empty body means an empty request.
func (h *CartHandler) decodeOptional(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	return h.decodeBody(w, r, dst, true)
}

func (h *CartHandler) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, allowEmpty bool) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil && !(allowEmpty && errors.Is(err, io.EOF)) {
		h.log.Debugf("Failed to decode request body for %s: %v", r.URL.Path, err)
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error:   "validation failed",
				Details: formatValidationErrors(validationErrors),
			})
			return false
		}
		h.log.Errorf("Unexpected validation error for %s: %v", r.URL.Path, err)
		respondWithError(w, http.StatusInternalServerError, "internal validation error")
		return false
	}
	return true
}

func (h *CartHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	code := mapErrorToStatusCode(err)
	if code >= http.StatusInternalServerError {
		h.log.Errorw("Cart operation failed", "operation", op, "path", r.URL.Path, "error", err)
	} else {
		h.log.Debugf("Cart operation %s rejected: %v", op, err)
	}
	respondWithError(w, code, clientMessage(code, err))
}

func (h *CartHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	view, err := h.carts.GetCart(r.Context(), identity)
	if err != nil {
		h.fail(w, r, "get_cart", err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

func (h *CartHandler) handleGetCount(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	count, err := h.carts.GetCartCount(r.Context(), identity)
	if err != nil {
		h.fail(w, r, "get_count", err)
		return
	}
	respondWithJSON(w, http.StatusOK, CountResponse{Count: count})
}

func (h *CartHandler) handleGetTotals(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	view, err := h.carts.GetCart(r.Context(), identity)
	if err != nil {
		h.fail(w, r, "get_totals", err)
		return
	}
	respondWithJSON(w, http.StatusOK, TotalsResponse{Cart: view, Totals: h.carts.ComputeTotals(view)})
}

func (h *CartHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req AddItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.carts.AddItem(r.Context(), identity, req.ProductID, req.Quantity, req.Variants)
	if err != nil {
		h.fail(w, r, "add_item", err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

func (h *CartHandler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req UpdateItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.carts.UpdateItem(r.Context(), identity, chi.URLParam(r, "productID"), *req.Quantity)
	if err != nil {
		h.fail(w, r, "update_item", err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

func (h *CartHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	view, err := h.carts.RemoveItem(r.Context(), identity, chi.URLParam(r, "productID"))
	if err != nil {
		h.fail(w, r, "remove_item", err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

func (h *CartHandler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	view, err := h.carts.ClearCart(r.Context(), identity)
	if err != nil {
		h.fail(w, r, "clear_cart", err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// handleMerge folds a guest cart into the caller's user cart. The guest
// session defaults to the one on the request.
func (h *CartHandler) handleMerge(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	if !identity.IsAuthenticated() {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req MergeRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}
	guestSessionID := req.SessionID
	if guestSessionID == "" {
		guestSessionID = identity.SessionID
	}

	view, err := h.carts.MergeGuestIntoUser(r.Context(), guestSessionID, identity.UserID)
	if err != nil {
		h.fail(w, r, "merge", err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

func (h *CartHandler) handleSendSummary(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req SummaryRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.summary.SendCartSummary(r.Context(), identity, req.Email); err != nil {
		h.fail(w, r, "send_summary", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
