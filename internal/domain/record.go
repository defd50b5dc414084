package domain

// CommonAddress is a postal address in the platform-neutral shape
type CommonAddress struct {
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	Company     string `json:"company,omitempty"`
	Address1    string `json:"address1,omitempty"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city,omitempty"`
	Province    string `json:"province,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	Zip         string `json:"zip,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Default     bool   `json:"default"`
}

// CommonCustomer is a customer in the platform-neutral shape
type CommonCustomer struct {
	ID            string          `json:"id"`
	Platform      string          `json:"platform"`
	Email         string          `json:"email,omitempty"`
	FirstName     string          `json:"first_name,omitempty"`
	LastName      string          `json:"last_name,omitempty"`
	FullName      string          `json:"full_name,omitempty"`
	Phone         string          `json:"phone,omitempty"`
	Note          string          `json:"note,omitempty"`
	VerifiedEmail bool            `json:"verified_email"`
	Currency      string          `json:"currency,omitempty"`
	CreatedAt     string          `json:"created_at,omitempty"`
	Addresses     []CommonAddress `json:"addresses"`
}

// PrimaryAddress returns the default address, else the first one, else nil
func (c *CommonCustomer) PrimaryAddress() *CommonAddress {
	for i := range c.Addresses {
		if c.Addresses[i].Default {
			return &c.Addresses[i]
		}
	}
	if len(c.Addresses) > 0 {
		return &c.Addresses[0]
	}
	return nil
}

// CommonProduct is a product (or an order line) in the platform-neutral shape
type CommonProduct struct {
	ID          string   `json:"id"`
	Platform    string   `json:"platform"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Type        string   `json:"type,omitempty"`
	Vendor      string   `json:"vendor,omitempty"`
	Status      bool     `json:"status"`
	Tags        []string `json:"tags"`
	Price       float64  `json:"price"`
	SKU         string   `json:"sku,omitempty"`
	Quantity    int      `json:"quantity"`
	Inventory   int      `json:"inventory"`
	Taxable     bool     `json:"taxable"`
	Tax         float64  `json:"tax"`
	Images      []string `json:"images"`
	Weight      float64  `json:"weight,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// CommonOrder is an order in the platform-neutral shape
type CommonOrder struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Platform        string          `json:"platform"`
	Customer        *CommonCustomer `json:"customer,omitempty"`
	Products        []CommonProduct `json:"products"`
	TotalPrice      float64         `json:"total_price"`
	Taxable         bool            `json:"taxable"`
	Tax             float64         `json:"tax"`
	ShippingCost    float64         `json:"shipping_cost"`
	ShippingAddress *CommonAddress  `json:"shipping_address,omitempty"`
	IsPaid          bool            `json:"is_paid"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	TotalDiscount   float64         `json:"total_discount"`
	ShippingMethod  string          `json:"shipping_method,omitempty"`
	Currency        string          `json:"currency,omitempty"`
	CreatedAt       string          `json:"created_at,omitempty"`
	UpdatedAt       string          `json:"updated_at,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}
