package dto

// ProductResponse represents a catalog product.
type ProductResponse struct {
	ID         string   `json:"id"`
	SKU        string   `json:"sku"`
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	Inventory  int      `json:"inventory"`
	Price      float64  `json:"price"`
	SyncStatus string   `json:"sync_status"`
	LastSynced *string  `json:"last_synced,omitempty"`
	Platforms  []string `json:"platforms"`
	Selected   bool     `json:"selected"`
}

// ProductFilterRequest replaces the product filter. Empty fields and "all"
// match every product.
type ProductFilterRequest struct {
	Search   string `json:"search"`
	Category string `json:"category"`
	Status   string `json:"status" validate:"omitempty,oneof=all all-statuses synced pending error"`
	Platform string `json:"platform"`
}

// SortRequest toggles the sort on a field.
type SortRequest struct {
	Field string `json:"field" validate:"required"`
}

// SortResponse is the active sort.
type SortResponse struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// ProductViewResponse is the state of the product table.
type ProductViewResponse struct {
	Products      []ProductResponse    `json:"products"`
	Count         int                  `json:"count"`
	Total         int                  `json:"total"`
	Categories    []string             `json:"categories"`
	Filter        ProductFilterRequest `json:"filter"`
	Sort          SortResponse         `json:"sort"`
	Selected      []string             `json:"selected"`
	SelectedCount int                  `json:"selected_count"`
	AllSelected   bool                 `json:"all_selected"`
}
