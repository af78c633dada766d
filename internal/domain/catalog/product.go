// Package catalog defines the products shown in the product data view and
// the explorer schema used to filter and sort them.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/eshaffer321/inventory-sync-manager/internal/domain/explorer"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/platform"
)

// SyncStatus is the synchronization state of a product.
type SyncStatus string

const (
	StatusSynced  SyncStatus = "synced"
	StatusPending SyncStatus = "pending"
	StatusError   SyncStatus = "error"
)

// Product is a catalog entry from the source system.
type Product struct {
	ID         string        `json:"id" yaml:"id"`
	SKU        string        `json:"sku" yaml:"sku"`
	Name       string        `json:"name" yaml:"name"`
	Category   string        `json:"category" yaml:"category"`
	Inventory  int           `json:"inventory" yaml:"inventory"`
	Price      float64       `json:"price" yaml:"price"`
	SyncStatus SyncStatus    `json:"sync_status" yaml:"sync_status"`
	LastSynced *time.Time    `json:"last_synced,omitempty" yaml:"last_synced,omitempty"`
	Platforms  []platform.ID `json:"platforms" yaml:"platforms"`
}

// Validate checks the fields a product needs before it is stored.
func (p Product) Validate() error {
	var problems []string
	if strings.TrimSpace(p.ID) == "" {
		problems = append(problems, "id is required")
	}
	if strings.TrimSpace(p.SKU) == "" {
		problems = append(problems, "sku is required")
	}
	if p.Inventory < 0 {
		problems = append(problems, "inventory cannot be negative")
	}
	if p.Price < 0 {
		problems = append(problems, "price cannot be negative")
	}
	switch p.SyncStatus {
	case StatusSynced, StatusPending, StatusError:
	default:
		problems = append(problems, fmt.Sprintf("invalid sync status %q", p.SyncStatus))
	}
	for _, id := range p.Platforms {
		if !platform.IsKnown(id) {
			problems = append(problems, fmt.Sprintf("unknown platform %q", id))
		}
	}
	if len(problems) > 0 {
		return errors.New("invalid product " + p.ID + ": " + strings.Join(problems, ", "))
	}
	return nil
}

// ListedOn reports whether the product is published on the platform.
func (p Product) ListedOn(id platform.ID) bool {
	return slices.Contains(p.Platforms, id)
}

// Filter and sort field names of the product view.
const (
	FieldSearch    = "search"
	FieldCategory  = "category"
	FieldStatus    = "status"
	FieldPlatform  = "platform"
	SortSKU        = "sku"
	SortName       = "name"
	SortCategory   = "category"
	SortInventory  = "inventory"
	SortPrice      = "price"
	SortSyncStatus = "syncStatus"
	SortLastSynced = "lastSynced"
	SortPlatforms  = "platforms"
)

// DefaultSort is the order of a freshly opened product view.
var DefaultSort = explorer.SortSpec{Field: SortName, Direction: explorer.Ascending}

// Schema describes how products are filtered and sorted. Sorting by
// platforms orders by how many platforms a product is listed on, and a
// product that was never synced sorts before every synced one.
var Schema = explorer.NewSchema(func(p Product) string { return p.ID }).
	Text(FieldSearch,
		func(p Product) string { return p.SKU },
		func(p Product) string { return p.Name }).
	Enum(FieldCategory, func(p Product) string { return p.Category }).
	Enum(FieldStatus, func(p Product) string { return string(p.SyncStatus) }).
	Members(FieldPlatform, platformIDs).
	Sort(SortSKU, explorer.Ordered(func(p Product) string { return p.SKU })).
	Sort(SortName, explorer.Ordered(func(p Product) string { return p.Name })).
	Sort(SortCategory, explorer.Ordered(func(p Product) string { return p.Category })).
	Sort(SortInventory, explorer.Ordered(func(p Product) int { return p.Inventory })).
	Sort(SortPrice, explorer.Ordered(func(p Product) float64 { return p.Price })).
	Sort(SortSyncStatus, explorer.Ordered(func(p Product) string { return string(p.SyncStatus) })).
	Sort(SortLastSynced, explorer.OptionalTime(lastSynced)).
	Sort(SortPlatforms, explorer.Cardinality(func(p Product) []platform.ID { return p.Platforms }))

// NewExplorer returns an empty product view sorted by name.
func NewExplorer() *explorer.Explorer[Product] {
	e, _ := explorer.New(Schema, DefaultSort)
	return e
}

// Categories returns the distinct categories of products, sorted.
func Categories(products []Product) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, p := range products {
		if _, ok := seen[p.Category]; ok || p.Category == "" {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out
}

func platformIDs(p Product) []string {
	out := make([]string, len(p.Platforms))
	for i, id := range p.Platforms {
		out[i] = string(id)
	}
	return out
}

func lastSynced(p Product) (time.Time, bool) {
	if p.LastSynced == nil {
		return time.Time{}, false
	}
	return *p.LastSynced, true
}
