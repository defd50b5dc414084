package normalizer

import (
	"encoding/json"
	"fmt"

	"shopify-hubspot-sync/internal/domain"
)

type gqlAddress struct {
	Address1      string `json:"address1"`
	Address2      string `json:"address2"`
	City          string `json:"city"`
	Province      string `json:"province"`
	Country       string `json:"country"`
	CountryCodeV2 string `json:"countryCodeV2"`
	Zip           string `json:"zip"`
	Phone         string `json:"phone"`
	Company       string `json:"company"`
}

type gqlCustomer struct {
	ID             string       `json:"id"`
	FirstName      string       `json:"firstName"`
	LastName       string       `json:"lastName"`
	Email          string       `json:"email"`
	Phone          string       `json:"phone"`
	Note           string       `json:"note"`
	CreatedAt      string       `json:"createdAt"`
	DefaultAddress *gqlAddress  `json:"defaultAddress"`
	Addresses      []gqlAddress `json:"addresses"`
}

type gqlMoney struct {
	ShopMoney struct {
		Amount flexFloat `json:"amount"`
	} `json:"shopMoney"`
}

type gqlProduct struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Status          string   `json:"status"`
	CreatedAt       string   `json:"createdAt"`
	DescriptionHTML string   `json:"descriptionHtml"`
	ProductType     string   `json:"productType"`
	Vendor          string   `json:"vendor"`
	Tags            []string `json:"tags"`
	Variants        struct {
		Edges []struct {
			Node gqlVariant `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
	Images struct {
		Edges []struct {
			Node struct {
				URL string `json:"url"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"images"`
}

type gqlVariant struct {
	ID                string    `json:"id"`
	SKU               string    `json:"sku"`
	Price             flexFloat `json:"price"`
	InventoryQuantity int       `json:"inventoryQuantity"`
}

type gqlLineItem struct {
	Product *struct {
		ID              string `json:"id"`
		Title           string `json:"title"`
		DescriptionHTML string `json:"descriptionHtml"`
	} `json:"product"`
	Variant  *gqlVariant `json:"variant"`
	Quantity int         `json:"quantity"`
	TaxLines []struct {
		Price flexFloat `json:"price"`
	} `json:"taxLines"`
}

type gqlOrder struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	CreatedAt       string       `json:"createdAt"`
	UpdatedAt       string       `json:"updatedAt"`
	Note            string       `json:"note"`
	CurrencyCode    string       `json:"currencyCode"`
	Unpaid          bool         `json:"unpaid"`
	TotalPriceSet   gqlMoney     `json:"totalPriceSet"`
	Customer        *gqlCustomer `json:"customer"`
	ShippingAddress *gqlAddress  `json:"shippingAddress"`
	LineItems       struct {
		Edges []struct {
			Node gqlLineItem `json:"node"`
		} `json:"edges"`
	} `json:"lineItems"`
}

func (a gqlAddress) toCommon(first, last string, isDefault bool) domain.CommonAddress {
	return domain.CommonAddress{
		FirstName:   first,
		LastName:    last,
		FullName:    joinName(first, last),
		Company:     a.Company,
		Address1:    a.Address1,
		Address2:    a.Address2,
		City:        a.City,
		Province:    a.Province,
		Country:     a.Country,
		CountryCode: a.CountryCodeV2,
		Zip:         a.Zip,
		Phone:       a.Phone,
		Default:     isDefault,
	}
}

// mergeAddresses puts the default address first and drops any other address
// that repeats it by address1 and zip. Only the first entry is marked default.
func mergeAddresses(def *gqlAddress, others []gqlAddress) []gqlAddress {
	merged := make([]gqlAddress, 0, len(others)+1)
	if def != nil {
		merged = append(merged, *def)
	}
	for _, a := range others {
		if def != nil && a.Address1 == def.Address1 && a.Zip == def.Zip {
			continue
		}
		merged = append(merged, a)
	}
	return merged
}

func (c *gqlCustomer) toCommon() *domain.CommonCustomer {
	raw := mergeAddresses(c.DefaultAddress, c.Addresses)
	addresses := make([]domain.CommonAddress, 0, len(raw))
	phones := make([]string, 0, len(raw))
	for i, a := range raw {
		addresses = append(addresses, a.toCommon(c.FirstName, c.LastName, i == 0))
		phones = append(phones, a.Phone)
	}
	return &domain.CommonCustomer{
		ID:        ExtractID(c.ID),
		Platform:  string(domain.PlatformShopify),
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		FullName:  joinName(c.FirstName, c.LastName),
		Phone:     firstPhone(c.Phone, phones...),
		Note:      c.Note,
		CreatedAt: c.CreatedAt,
		Addresses: addresses,
	}
}

// CustomerFromNode normalizes one node of a bulk customers page
func CustomerFromNode(node json.RawMessage) (*domain.CommonCustomer, error) {
	var raw gqlCustomer
	if err := json.Unmarshal(node, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse customer node: %w", err)
	}
	return raw.toCommon(), nil
}

// ProductFromNode normalizes one node of a bulk products page
func ProductFromNode(node json.RawMessage) (*domain.CommonProduct, error) {
	var raw gqlProduct
	if err := json.Unmarshal(node, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse product node: %w", err)
	}

	product := &domain.CommonProduct{
		ID:          ExtractID(raw.ID),
		Platform:    string(domain.PlatformShopify),
		Name:        raw.Title,
		Description: raw.DescriptionHTML,
		Type:        raw.ProductType,
		Vendor:      raw.Vendor,
		Status:      raw.Status == "ACTIVE",
		Tags:        raw.Tags,
		CreatedAt:   raw.CreatedAt,
		SKU:         DefaultSKU,
		Images:      make([]string, 0, len(raw.Images.Edges)),
	}
	if product.Tags == nil {
		product.Tags = []string{}
	}
	for _, edge := range raw.Images.Edges {
		if edge.Node.URL != "" {
			product.Images = append(product.Images, edge.Node.URL)
		}
	}
	if len(raw.Variants.Edges) > 0 {
		v := raw.Variants.Edges[0].Node
		product.Price = float64(v.Price)
		product.Quantity = v.InventoryQuantity
		product.Inventory = v.InventoryQuantity
		if v.SKU != "" {
			product.SKU = v.SKU
		}
	}
	return product, nil
}

// OrderFromNode normalizes one node of a bulk orders page.
// Line items without a product are skipped.
func OrderFromNode(node json.RawMessage) (*domain.CommonOrder, error) {
	var raw gqlOrder
	if err := json.Unmarshal(node, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse order node: %w", err)
	}

	order := &domain.CommonOrder{
		ID:         ExtractID(raw.ID),
		Title:      raw.Name,
		Platform:   string(domain.PlatformShopify),
		Products:   make([]domain.CommonProduct, 0, len(raw.LineItems.Edges)),
		TotalPrice: float64(raw.TotalPriceSet.ShopMoney.Amount),
		IsPaid:     !raw.Unpaid,
		Currency:   raw.CurrencyCode,
		CreatedAt:  raw.CreatedAt,
		UpdatedAt:  raw.UpdatedAt,
		Notes:      raw.Note,
	}
	if raw.Customer != nil && raw.Customer.ID != "" {
		c := raw.Customer
		order.Customer = &domain.CommonCustomer{
			ID:        ExtractID(c.ID),
			Platform:  string(domain.PlatformShopify),
			Email:     c.Email,
			FirstName: c.FirstName,
			LastName:  c.LastName,
			FullName:  joinName(c.FirstName, c.LastName),
			Phone:     c.Phone,
			Addresses: []domain.CommonAddress{},
		}
	}
	if raw.ShippingAddress != nil {
		addr := raw.ShippingAddress.toCommon("", "", false)
		order.ShippingAddress = &addr
	}

	for _, edge := range raw.LineItems.Edges {
		item := edge.Node
		if item.Product == nil || item.Product.ID == "" {
			continue
		}
		var tax float64
		for _, t := range item.TaxLines {
			tax += float64(t.Price)
		}
		product := domain.CommonProduct{
			ID:          ExtractID(item.Product.ID),
			Platform:    string(domain.PlatformShopify),
			Name:        item.Product.Title,
			Description: item.Product.DescriptionHTML,
			Quantity:    item.Quantity,
			Status:      true,
			Taxable:     len(item.TaxLines) > 0,
			Tax:         tax,
			Tags:        []string{},
			Images:      []string{},
		}
		if item.Variant != nil {
			product.Price = float64(item.Variant.Price)
			product.SKU = item.Variant.SKU
			product.Inventory = item.Variant.InventoryQuantity
		}
		order.Tax += tax
		order.Taxable = order.Taxable || product.Taxable
		order.Products = append(order.Products, product)
	}
	return order, nil
}
