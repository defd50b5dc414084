package domain

import "fmt"

// Platform identifies the external system an App is bound to
type Platform string

const (
	PlatformShopify     Platform = "Shopify"
	PlatformHubSpot     Platform = "HubSpot"
	PlatformGoogleDrive Platform = "google_drive"
)

// ModuleType is the record family being synchronized
type ModuleType string

const (
	ModuleProduct  ModuleType = "product"
	ModuleCustomer ModuleType = "customer"
	ModuleOrder    ModuleType = "order"
	ModuleAll      ModuleType = "all"
)

// ParseModuleType validates a module selector coming from a request
func ParseModuleType(s string) (ModuleType, error) {
	m := ModuleType(s)
	switch m {
	case ModuleProduct, ModuleCustomer, ModuleOrder, ModuleAll:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown module %q", ErrBadRequest, s)
}

// Expand returns the concrete modules covered by a selector in run order.
// Orders come last because they reference customers and products.
func (m ModuleType) Expand() []ModuleType {
	if m == ModuleAll {
		return []ModuleType{ModuleCustomer, ModuleProduct, ModuleOrder}
	}
	return []ModuleType{m}
}

// IsRecord reports whether m names a single record family
func (m ModuleType) IsRecord() bool {
	return m == ModuleProduct || m == ModuleCustomer || m == ModuleOrder
}
