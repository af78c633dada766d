package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/inventory-sync-manager/internal/api/dto"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/catalog"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/explorer"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/platform"
)

// ProductsHandler handles the product table: filter, sort and selection.
type ProductsHandler struct {
	*Base
	dash Dashboard
}

// NewProductsHandler creates a new products handler.
func NewProductsHandler(dash Dashboard, logger *slog.Logger) *ProductsHandler {
	return &ProductsHandler{
		Base: NewBase(logger),
		dash: dash,
	}
}

// Get handles GET /api/products.
func (h *ProductsHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, toProductViewResponse(h.dash.Products()))
}

// SetFilter handles PUT /api/products/filter.
func (h *ProductsHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var req dto.ProductFilterRequest
	if !h.ReadJSON(w, r, &req) {
		return
	}

	filter, err := requestToFilter(req)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	view, err := h.dash.SetProductFilter(filter)
	if err != nil {
		h.WriteDomainError(w, err, "filter field")
		return
	}
	h.WriteJSON(w, http.StatusOK, toProductViewResponse(view))
}

// Sort handles POST /api/products/sort.
func (h *ProductsHandler) Sort(w http.ResponseWriter, r *http.Request) {
	var req dto.SortRequest
	if !h.ReadJSON(w, r, &req) {
		return
	}

	view, err := h.dash.SortProducts(req.Field)
	if err != nil {
		h.WriteDomainError(w, err, "sort field")
		return
	}
	h.WriteJSON(w, http.StatusOK, toProductViewResponse(view))
}

// Toggle handles POST /api/products/{id}/toggle. Unknown ids leave the
// selection unchanged.
func (h *ProductsHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("product id is required"))
		return
	}
	h.WriteJSON(w, http.StatusOK, toProductViewResponse(h.dash.ToggleProduct(id)))
}

// ToggleAll handles POST /api/products/toggle-all.
func (h *ProductsHandler) ToggleAll(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, toProductViewResponse(h.dash.ToggleAllProducts()))
}

// Refresh handles POST /api/products/refresh.
func (h *ProductsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.dash.RefreshProducts(); err != nil {
		h.WriteDomainError(w, err, "products")
		return
	}
	h.WriteJSON(w, http.StatusOK, toProductViewResponse(h.dash.Products()))
}

func requestToFilter(req dto.ProductFilterRequest) (explorer.FilterSpec, error) {
	filter := explorer.FilterSpec{
		catalog.FieldSearch:   explorer.Contains(req.Search),
		catalog.FieldCategory: equalsOrAll(req.Category, "all-categories"),
		catalog.FieldStatus:   equalsOrAll(req.Status, "all-statuses"),
		catalog.FieldPlatform: explorer.Equals(""),
	}

	p := strings.TrimSpace(req.Platform)
	if p == "" || strings.EqualFold(p, explorer.AllValue) {
		return filter, nil
	}
	id, err := platform.Parse(p)
	if err != nil {
		return nil, err
	}
	// no product is listed on the synthetic platform; it means "any"
	if id != platform.All {
		filter[catalog.FieldPlatform] = explorer.Equals(id)
	}
	return filter, nil
}

// equalsOrAll is an exact match, inactive for the dashboard's "all-..."
// select value.
func equalsOrAll(v, all string) explorer.Equals {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, all) {
		return explorer.Equals("")
	}
	return explorer.Equals(v)
}

func filterToRequest(filter explorer.FilterSpec) dto.ProductFilterRequest {
	text := func(field string) string {
		switch c := filter[field].(type) {
		case explorer.Contains:
			return string(c)
		case explorer.Equals:
			return string(c)
		}
		return ""
	}
	return dto.ProductFilterRequest{
		Search:   text(catalog.FieldSearch),
		Category: text(catalog.FieldCategory),
		Status:   text(catalog.FieldStatus),
		Platform: text(catalog.FieldPlatform),
	}
}
