// Package platform identifies the e-commerce platforms product data is
// synchronized to.
package platform

import (
	"fmt"
	"strings"
)

// ID identifies a target e-commerce platform.
type ID string

const (
	LojaIntegrada ID = "loja-integrada"
	WooCommerce   ID = "woocommerce"

	// All is used on synthetic log entries that concern every platform at once,
	// such as a manually stopped sync.
	All ID = "all-platforms"
)

// Known returns the platforms a sync can target, in display order.
func Known() []ID {
	return []ID{LojaIntegrada, WooCommerce}
}

// IsKnown reports whether id is a sync target.
func IsKnown(id ID) bool {
	return id == LojaIntegrada || id == WooCommerce
}

// Parse accepts either the identifier or the display name of a platform.
func Parse(s string) (ID, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(LojaIntegrada), "loja integrada":
		return LojaIntegrada, nil
	case string(WooCommerce):
		return WooCommerce, nil
	case string(All), "all platforms":
		return All, nil
	}
	return "", fmt.Errorf("unknown platform: %q", s)
}

// DisplayName returns the human-readable platform name.
func (id ID) DisplayName() string {
	switch id {
	case LojaIntegrada:
		return "Loja Integrada"
	case WooCommerce:
		return "WooCommerce"
	case All:
		return "All Platforms"
	}
	return string(id)
}

func (id ID) String() string {
	return string(id)
}
