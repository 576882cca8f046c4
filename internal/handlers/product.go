package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"cafemenu-cache/internal/catalog"
	"cafemenu-cache/pkg/api"
)

// ProductHandler serves the product search endpoint.
type ProductHandler struct {
	products *catalog.ProductService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewProductHandler(products *catalog.ProductService, logger *zap.Logger) *ProductHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductHandler{
		products: products,
		validate: validator.New(),
		logger:   logger,
	}
}

// Search handles GET /api/products/search?q=&tenantId=. Search terms
// shorter than three characters are rejected before touching the cache.
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := strconv.Atoi(r.URL.Query().Get("tenantId"))
	query := api.SearchQuery{
		Term:     r.URL.Query().Get("q"),
		TenantID: tenantID,
	}
	if err := h.validate.Struct(query); err != nil {
		api.Error(w, http.StatusBadRequest, "q must be at least 3 characters and tenantId a positive integer")
		return
	}

	products, err := h.products.Search(r.Context(), query.Term, query.TenantID)
	if err != nil {
		handleServiceError(w, err, h.logger)
		return
	}
	if products == nil {
		products = []catalog.Product{}
	}
	api.Success(w, http.StatusOK, products)
}
