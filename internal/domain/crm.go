package domain

// CRM object type names on the target platform
const (
	ObjectContacts  = "contacts"
	ObjectProducts  = "products"
	ObjectDeals     = "deals"
	ObjectLineItems = "line_items"
	ObjectNotes     = "notes"
)

// CRMObjectFor maps a record module to its target CRM object type
func CRMObjectFor(m ModuleType) string {
	switch m {
	case ModuleCustomer:
		return ObjectContacts
	case ModuleProduct:
		return ObjectProducts
	case ModuleOrder:
		return ObjectDeals
	}
	return ""
}

// PostalAddress is a billing or shipping address as reported by the source shop
type PostalAddress struct {
	Address1 string
	Address2 string
	City     string
	Country  string
	Phone    string
	Zip      string
	Province string
}

// Tracking is one shipment tracking entry of a fulfillment
type Tracking struct {
	Company string
	Number  string
	URL     string
}

// Shipment is the first fulfillment of an order
type Shipment struct {
	CreatedAt string
	Tracking  []Tracking
}

// PurchasedProduct is a product found on a customer's most recent order
type PurchasedProduct struct {
	Title       string
	Price       string
	ImageURL    string
	URL         string
	ProductType string
	Vendor      string
	Tags        []string
}

// RecentOrder is the customer's most recent order
type RecentOrder struct {
	ID                 string
	Name               string
	ConfirmationNumber string
	FulfillmentStatus  string
	FinancialStatus    string
	Shipment           *Shipment
	Billing            *PostalAddress
	Shipping           *PostalAddress
	// Products holds up to three products, newest line item first
	Products []PurchasedProduct
}

// CustomerDetails is the extra customer data copied to the CRM after a sync
type CustomerDetails struct {
	Tags           []string
	Note           string
	EmailMarketing string
	SmsMarketing   string
	LastOrder      *RecentOrder
	// UnpaidOrders counts pending or authorized orders, capped by the lookup page size
	UnpaidOrders int
}

// ProductDetails is the extra product data copied to the CRM after a sync
type ProductDetails struct {
	Tags              []string
	Vendor            string
	Status            string
	ProductType       string
	OnlineStoreURL    string
	Category          string
	Collections       []string
	PublishedChannels []string
	TaxesIncluded     bool
	// HasVariant is false for a product without variants; the variant fields are then empty
	HasVariant           bool
	RequiresShipping     bool
	Barcode              string
	Weight               string
	CountryOfOrigin      string
	HarmonizedSystemCode string
}

// OrderDetails is the extra order data copied to the CRM after a sync
type OrderDetails struct {
	ID                string
	Name              string
	Note              string
	Tags              []string
	PaymentGateways   []string
	FinancialStatus   string
	FulfillmentStatus string
	Shipment          *Shipment
	Billing           *PostalAddress
	Shipping          *PostalAddress
	ShippingTitle     string
	// Money amounts are decimal strings in shop currency, empty when absent
	TotalPrice    string
	ShippingPrice string
	TotalTax      string
	TotalDiscount string
	TotalRefunded string
}
