package normalizer

import (
	"encoding/json"
	"fmt"
	"strings"

	"shopify-hubspot-sync/internal/domain"
)

type restAddress struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Name        string `json:"name"`
	Company     string `json:"company"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	City        string `json:"city"`
	Province    string `json:"province"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
	Zip         string `json:"zip"`
	Phone       string `json:"phone"`
	Default     bool   `json:"default"`
}

type restCustomer struct {
	ID            flexString    `json:"id"`
	Email         string        `json:"email"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	Phone         string        `json:"phone"`
	Note          string        `json:"note"`
	Currency      string        `json:"currency"`
	VerifiedEmail bool          `json:"verified_email"`
	CreatedAt     string        `json:"created_at"`
	Addresses     []restAddress `json:"addresses"`
}

type restVariant struct {
	Price             flexFloat `json:"price"`
	SKU               string    `json:"sku"`
	InventoryQuantity int       `json:"inventory_quantity"`
	Taxable           *bool     `json:"taxable"`
	Weight            flexFloat `json:"weight"`
}

type restProduct struct {
	ID          flexString    `json:"id"`
	Title       string        `json:"title"`
	BodyHTML    string        `json:"body_html"`
	ProductType string        `json:"product_type"`
	Vendor      string        `json:"vendor"`
	Status      string        `json:"status"`
	Tags        string        `json:"tags"`
	CreatedAt   string        `json:"created_at"`
	Variants    []restVariant `json:"variants"`
	Images      []struct {
		Src string `json:"src"`
	} `json:"images"`
}

type restLineItem struct {
	ProductID flexString `json:"product_id"`
	Title     string     `json:"title"`
	Price     flexFloat  `json:"price"`
	Quantity  int        `json:"quantity"`
	SKU       string     `json:"sku"`
	Taxable   bool       `json:"taxable"`
}

type restOrder struct {
	ID                    flexString     `json:"id"`
	Name                  string         `json:"name"`
	Customer              *restCustomer  `json:"customer"`
	LineItems             []restLineItem `json:"line_items"`
	TotalPrice            flexFloat      `json:"total_price"`
	TaxesIncluded         bool           `json:"taxes_included"`
	TotalTax              flexFloat      `json:"total_tax"`
	TotalDiscounts        flexFloat      `json:"total_discounts"`
	TotalShippingPriceSet struct {
		ShopMoney struct {
			Amount flexFloat `json:"amount"`
		} `json:"shop_money"`
	} `json:"total_shipping_price_set"`
	ShippingAddress     *restAddress `json:"shipping_address"`
	FinancialStatus     string       `json:"financial_status"`
	PaymentGatewayNames []string     `json:"payment_gateway_names"`
	ShippingLines       []struct {
		Title string `json:"title"`
	} `json:"shipping_lines"`
	Currency  string `json:"currency"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Note      string `json:"note"`
}

func (a restAddress) toCommon() domain.CommonAddress {
	return domain.CommonAddress{
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		FullName:    a.Name,
		Company:     a.Company,
		Address1:    a.Address1,
		Address2:    a.Address2,
		City:        a.City,
		Province:    a.Province,
		Country:     a.Country,
		CountryCode: a.CountryCode,
		Zip:         a.Zip,
		Phone:       a.Phone,
		Default:     a.Default,
	}
}

func (c *restCustomer) toCommon() *domain.CommonCustomer {
	addresses := make([]domain.CommonAddress, 0, len(c.Addresses))
	phones := make([]string, 0, len(c.Addresses))
	for _, a := range c.Addresses {
		addresses = append(addresses, a.toCommon())
		phones = append(phones, a.Phone)
	}
	return &domain.CommonCustomer{
		ID:            string(c.ID),
		Platform:      string(domain.PlatformShopify),
		Email:         c.Email,
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		FullName:      joinName(c.FirstName, c.LastName),
		Phone:         firstPhone(c.Phone, phones...),
		Note:          c.Note,
		VerifiedEmail: c.VerifiedEmail,
		Currency:      c.Currency,
		CreatedAt:     c.CreatedAt,
		Addresses:     addresses,
	}
}

// CustomerFromWebhook normalizes a customers/create or customers/update body
func CustomerFromWebhook(payload []byte) (*domain.CommonCustomer, error) {
	var raw restCustomer
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse customer payload: %w", err)
	}
	return raw.toCommon(), nil
}

// ProductFromWebhook normalizes a products/create or products/update body
func ProductFromWebhook(payload []byte) (*domain.CommonProduct, error) {
	var raw restProduct
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse product payload: %w", err)
	}

	product := &domain.CommonProduct{
		ID:          string(raw.ID),
		Platform:    string(domain.PlatformShopify),
		Name:        raw.Title,
		Description: raw.BodyHTML,
		Type:        raw.ProductType,
		Vendor:      raw.Vendor,
		Status:      strings.EqualFold(raw.Status, "active"),
		Tags:        splitTags(raw.Tags),
		CreatedAt:   raw.CreatedAt,
		Images:      make([]string, 0, len(raw.Images)),
	}
	for _, img := range raw.Images {
		if img.Src != "" {
			product.Images = append(product.Images, img.Src)
		}
	}
	if len(raw.Variants) > 0 {
		v := raw.Variants[0]
		product.Price = float64(v.Price)
		product.SKU = v.SKU
		product.Quantity = v.InventoryQuantity
		product.Inventory = v.InventoryQuantity
		product.Taxable = v.Taxable == nil || *v.Taxable
		product.Weight = float64(v.Weight)
	}
	return product, nil
}

// OrderFromWebhook normalizes an orders/updated body.
// Line items without a product id (custom sales) are dropped.
func OrderFromWebhook(payload []byte) (*domain.CommonOrder, error) {
	var raw restOrder
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse order payload: %w", err)
	}

	order := &domain.CommonOrder{
		ID:            string(raw.ID),
		Title:         raw.Name,
		Platform:      string(domain.PlatformShopify),
		Products:      make([]domain.CommonProduct, 0, len(raw.LineItems)),
		TotalPrice:    float64(raw.TotalPrice),
		Taxable:       raw.TaxesIncluded,
		Tax:           float64(raw.TotalTax),
		ShippingCost:  float64(raw.TotalShippingPriceSet.ShopMoney.Amount),
		IsPaid:        raw.FinancialStatus == PaidStatus,
		PaymentMethod: strings.Join(raw.PaymentGatewayNames, ", "),
		TotalDiscount: float64(raw.TotalDiscounts),
		Currency:      raw.Currency,
		CreatedAt:     raw.CreatedAt,
		UpdatedAt:     raw.UpdatedAt,
		Notes:         raw.Note,
	}
	if len(raw.ShippingLines) > 0 {
		order.ShippingMethod = raw.ShippingLines[0].Title
	}
	if raw.ShippingAddress != nil {
		addr := raw.ShippingAddress.toCommon()
		addr.Default = false
		order.ShippingAddress = &addr
	}
	if raw.Customer != nil && raw.Customer.ID != "" {
		order.Customer = raw.Customer.toCommon()
	}
	for _, item := range raw.LineItems {
		if item.ProductID == "" {
			continue
		}
		order.Products = append(order.Products, domain.CommonProduct{
			ID:       string(item.ProductID),
			Platform: string(domain.PlatformShopify),
			Name:     item.Title,
			Price:    float64(item.Price),
			Quantity: item.Quantity,
			SKU:      item.SKU,
			Status:   true,
			Taxable:  item.Taxable,
			Tags:     []string{},
			Images:   []string{},
		})
	}
	return order, nil
}
