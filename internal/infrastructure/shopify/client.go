package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"shopify-hubspot-sync/internal/domain"
	"shopify-hubspot-sync/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// DefaultRetries is how often go-shopify retries a throttled or failed request
const DefaultRetries = 3

type client struct {
	app        goshopify.App
	apiVersion string
	retries    int
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures the Shopify client adapter
type Option func(*client)

// WithHTTPClient sends every Admin API call through hc
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.httpClient = hc }
}

// WithRetries overrides DefaultRetries
func WithRetries(n int) Option {
	return func(c *client) { c.retries = n }
}

// NewClient creates a new Shopify client adapter
func NewClient(apiKey, apiSecret, apiVersion string, logger zerolog.Logger, opts ...Option) ports.ShopifyClient {
	c := &client{
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		apiVersion: apiVersion,
		retries:    DefaultRetries,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// createClient is a helper to create a goshopify client for one shop
func (c *client) createClient(creds *domain.ShopifyCredentials) (*goshopify.Client, error) {
	if creds == nil || creds.ShopURL == "" || creds.Token == "" {
		return nil, fmt.Errorf("%w: shopify credentials are incomplete", domain.ErrUnauthorized)
	}
	opts := []goshopify.Option{goshopify.WithRetry(c.retries)}
	if c.apiVersion != "" {
		opts = append(opts, goshopify.WithVersion(c.apiVersion))
	}
	if c.httpClient != nil {
		opts = append(opts, goshopify.WithHTTPClient(c.httpClient))
	}
	client, err := goshopify.NewClient(c.app, creds.ShopDomain(), creds.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// Bulk paging

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type connection struct {
	PageInfo pageInfo `json:"pageInfo"`
	Edges    []struct {
		Node json.RawMessage `json:"node"`
	} `json:"edges"`
}

func pageQueryFor(module domain.ModuleType) (query, string, error) {
	switch module {
	case domain.ModuleCustomer:
		return customersPageQuery, "customers", nil
	case domain.ModuleProduct:
		return productsPageQuery, "products", nil
	case domain.ModuleOrder:
		return ordersPageQuery, "orders", nil
	}
	return query{}, "", fmt.Errorf("%w: no bulk query for module %q", domain.ErrBadRequest, module)
}

func (c *client) QueryPage(ctx context.Context, creds *domain.ShopifyCredentials, module domain.ModuleType, pageSize int, cursor string, filter domain.DateFilter) (*domain.Page, error) {
	q, root, err := pageQueryFor(module)
	if err != nil {
		return nil, err
	}
	client, err := c.createClient(creds)
	if err != nil {
		return nil, err
	}

	vars := map[string]interface{}{"first": pageSize}
	if cursor != "" {
		vars["after"] = cursor
	}
	if s := filter.Query(); s != "" {
		vars["query"] = s
	}

	var resp map[string]connection
	if err := client.GraphQL.Query(ctx, q.text, vars, &resp); err != nil {
		return nil, classifyError("query "+q.name, err)
	}

	conn := resp[root]
	page := &domain.Page{
		Nodes:       make([]json.RawMessage, 0, len(conn.Edges)),
		EndCursor:   conn.PageInfo.EndCursor,
		HasNextPage: conn.PageInfo.HasNextPage,
	}
	for _, e := range conn.Edges {
		page.Nodes = append(page.Nodes, e.Node)
	}

	c.logger.Debug().
		Str("shop", creds.ShopDomain()).
		Str("module", string(module)).
		Int("records", len(page.Nodes)).
		Bool("has_next_page", page.HasNextPage).
		Msg("Fetched source page")

	return page, nil
}

// Custom fields

func (c *client) GetMetafields(ctx context.Context, creds *domain.ShopifyCredentials, module domain.ModuleType, recordID string) ([]domain.Metafield, error) {
	id, err := parseID(recordID)
	if err != nil {
		return nil, err
	}
	client, err := c.createClient(creds)
	if err != nil {
		return nil, err
	}

	var metafields []goshopify.Metafield
	switch module {
	case domain.ModuleCustomer:
		metafields, err = client.Customer.ListMetafields(ctx, id, nil)
	case domain.ModuleProduct:
		metafields, err = client.Product.ListMetafields(ctx, id, nil)
	case domain.ModuleOrder:
		metafields, err = client.Order.ListMetafields(ctx, id, nil)
	default:
		return nil, fmt.Errorf("%w: module %q has no metafields", domain.ErrBadRequest, module)
	}
	if err != nil {
		return nil, classifyError("list metafields", err)
	}

	out := make([]domain.Metafield, 0, len(metafields))
	for _, m := range metafields {
		out = append(out, domain.Metafield{Key: m.Key, Value: metafieldValue(m.Value)})
	}
	return out, nil
}

// metafieldValue renders a metafield value as the text Shopify stores
func metafieldValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func ownerTypeFor(module domain.ModuleType) (string, error) {
	switch module {
	case domain.ModuleCustomer:
		return "CUSTOMER", nil
	case domain.ModuleProduct:
		return "PRODUCT", nil
	case domain.ModuleOrder:
		return "ORDER", nil
	}
	return "", fmt.Errorf("%w: module %q has no metafield definitions", domain.ErrBadRequest, module)
}

func (c *client) GetMetafieldDefinitions(ctx context.Context, creds *domain.ShopifyCredentials, module domain.ModuleType) ([]domain.CatalogField, error) {
	ownerType, err := ownerTypeFor(module)
	if err != nil {
		return nil, err
	}
	client, err := c.createClient(creds)
	if err != nil {
		return nil, err
	}

	var resp struct {
		MetafieldDefinitions struct {
			Edges []struct {
				Node struct {
					Key         string `json:"key"`
					Name        string `json:"name"`
					Description string `json:"description"`
					Namespace   string `json:"namespace"`
					Type        struct {
						Name string `json:"name"`
					} `json:"type"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"metafieldDefinitions"`
	}
	vars := map[string]interface{}{"ownerType": ownerType}
	if err := client.GraphQL.Query(ctx, metafieldDefinitionsQuery.text, vars, &resp); err != nil {
		return nil, classifyError("query "+metafieldDefinitionsQuery.name, err)
	}

	fields := make([]domain.CatalogField, 0, len(resp.MetafieldDefinitions.Edges))
	for _, e := range resp.MetafieldDefinitions.Edges {
		fields = append(fields, domain.CatalogField{
			Name:        e.Node.Key,
			Label:       e.Node.Name,
			Description: e.Node.Description,
			Type:        e.Node.Type.Name,
		})
	}
	return fields, nil
}

// Permissions

func (c *client) GetAccessScopes(ctx context.Context, creds *domain.ShopifyCredentials) ([]string, error) {
	client, err := c.createClient(creds)
	if err != nil {
		return nil, err
	}
	scopes, err := client.AccessScopes.List(ctx, nil)
	if err != nil {
		return nil, classifyError("list access scopes", err)
	}
	handles := make([]string, 0, len(scopes))
	for _, s := range scopes {
		handles = append(handles, s.Handle)
	}
	return handles, nil
}

// Webhook API

func (c *client) CreateWebhook(ctx context.Context, creds *domain.ShopifyCredentials, topic string, address string) (string, error) {
	client, err := c.createClient(creds)
	if err != nil {
		return "", err
	}
	webhook := goshopify.Webhook{
		Topic:   topic,
		Address: address,
		Format:  "json",
	}
	created, err := client.Webhook.Create(ctx, webhook)
	if err != nil {
		return "", classifyError("create webhook "+topic, err)
	}

	c.logger.Info().
		Str("shop", creds.ShopDomain()).
		Str("topic", topic).
		Uint64("webhook_id", created.Id).
		Msg("Registered webhook")

	return strconv.FormatUint(created.Id, 10), nil
}

func (c *client) DeleteWebhook(ctx context.Context, creds *domain.ShopifyCredentials, webhookID string) error {
	id, err := parseID(webhookID)
	if err != nil {
		return err
	}
	client, err := c.createClient(creds)
	if err != nil {
		return err
	}
	if err := client.Webhook.Delete(ctx, id); err != nil {
		return classifyError("delete webhook", err)
	}
	return nil
}

// Enrichment lookups

func gid(kind, id string) string {
	if strings.HasPrefix(id, "gid://") {
		return id
	}
	return fmt.Sprintf("gid://shopify/%s/%s", kind, id)
}

type edgesOf[T any] struct {
	Edges []struct {
		Node T `json:"node"`
	} `json:"edges"`
}

type moneyNode struct {
	ShopMoney struct {
		Amount string `json:"amount"`
	} `json:"shopMoney"`
}

func (m *moneyNode) amount() string {
	if m == nil {
		return ""
	}
	return m.ShopMoney.Amount
}

type addressNode struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Country  string `json:"country"`
	Phone    string `json:"phone"`
	Zip      string `json:"zip"`
	Province string `json:"province"`
}

func (a *addressNode) toDomain() *domain.PostalAddress {
	if a == nil {
		return nil
	}
	addr := domain.PostalAddress(*a)
	return &addr
}

type fulfillmentNode struct {
	CreatedAt    string `json:"createdAt"`
	TrackingInfo []struct {
		Company string `json:"company"`
		Number  string `json:"number"`
		URL     string `json:"url"`
	} `json:"trackingInfo"`
}

func firstShipment(fulfillments []fulfillmentNode) *domain.Shipment {
	if len(fulfillments) == 0 {
		return nil
	}
	f := fulfillments[0]
	shipment := &domain.Shipment{CreatedAt: f.CreatedAt}
	for _, t := range f.TrackingInfo {
		shipment.Tracking = append(shipment.Tracking, domain.Tracking{Company: t.Company, Number: t.Number, URL: t.URL})
	}
	return shipment
}

type lastOrderNode struct {
	ID                       string            `json:"id"`
	Name                     string            `json:"name"`
	ConfirmationNumber       string            `json:"confirmationNumber"`
	DisplayFulfillmentStatus string            `json:"displayFulfillmentStatus"`
	DisplayFinancialStatus   string            `json:"displayFinancialStatus"`
	Fulfillments             []fulfillmentNode `json:"fulfillments"`
	BillingAddress           *addressNode      `json:"billingAddress"`
	ShippingAddress          *addressNode      `json:"shippingAddress"`
	LineItems                edgesOf[struct {
		Product *struct {
			Title          string   `json:"title"`
			Tags           []string `json:"tags"`
			Vendor         string   `json:"vendor"`
			ProductType    string   `json:"productType"`
			OnlineStoreURL string   `json:"onlineStoreUrl"`
			Images         edgesOf[struct {
				Src string `json:"src"`
			}] `json:"images"`
		} `json:"product"`
		Variant *struct {
			Price string `json:"price"`
		} `json:"variant"`
	}] `json:"lineItems"`
}

func (o *lastOrderNode) toDomain() *domain.RecentOrder {
	order := &domain.RecentOrder{
		ID:                 o.ID,
		Name:               o.Name,
		ConfirmationNumber: o.ConfirmationNumber,
		FulfillmentStatus:  o.DisplayFulfillmentStatus,
		FinancialStatus:    o.DisplayFinancialStatus,
		Shipment:           firstShipment(o.Fulfillments),
		Billing:            o.BillingAddress.toDomain(),
		Shipping:           o.ShippingAddress.toDomain(),
	}
	for _, e := range o.LineItems.Edges {
		// custom line items carry no product
		if e.Node.Product == nil {
			continue
		}
		p := e.Node.Product
		bought := domain.PurchasedProduct{
			Title:       p.Title,
			URL:         p.OnlineStoreURL,
			ProductType: p.ProductType,
			Vendor:      p.Vendor,
			Tags:        p.Tags,
		}
		if e.Node.Variant != nil {
			bought.Price = e.Node.Variant.Price
		}
		if len(p.Images.Edges) > 0 {
			bought.ImageURL = p.Images.Edges[0].Node.Src
		}
		order.Products = append(order.Products, bought)
	}
	return order
}

func (c *client) GetCustomerDetails(ctx context.Context, creds *domain.ShopifyCredentials, customerID string) (*domain.CustomerDetails, error) {
	client, err := c.createClient(creds)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Customer *struct {
			Tags                  []string `json:"tags"`
			Note                  string   `json:"note"`
			EmailMarketingConsent *struct {
				MarketingState string `json:"marketingState"`
			} `json:"emailMarketingConsent"`
			SmsMarketingConsent *struct {
				MarketingState string `json:"marketingState"`
			} `json:"smsMarketingConsent"`
			LastOrder    edgesOf[lastOrderNode] `json:"lastOrder"`
			UnpaidOrders edgesOf[struct {
				ID string `json:"id"`
			}] `json:"unpaidOrders"`
		} `json:"customer"`
	}
	vars := map[string]interface{}{"id": gid("Customer", customerID)}
	if err := client.GraphQL.Query(ctx, customerDetailsQuery.text, vars, &resp); err != nil {
		return nil, classifyError("query "+customerDetailsQuery.name, err)
	}
	if resp.Customer == nil {
		return nil, fmt.Errorf("%w: customer %s", domain.ErrNotFound, customerID)
	}

	cust := resp.Customer
	details := &domain.CustomerDetails{
		Tags:         cust.Tags,
		Note:         cust.Note,
		UnpaidOrders: len(cust.UnpaidOrders.Edges),
	}
	if cust.EmailMarketingConsent != nil {
		details.EmailMarketing = cust.EmailMarketingConsent.MarketingState
	}
	if cust.SmsMarketingConsent != nil {
		details.SmsMarketing = cust.SmsMarketingConsent.MarketingState
	}
	if len(cust.LastOrder.Edges) > 0 {
		details.LastOrder = cust.LastOrder.Edges[0].Node.toDomain()
	}
	return details, nil
}

func (c *client) GetProductDetails(ctx context.Context, creds *domain.ShopifyCredentials, productID string) (*domain.ProductDetails, error) {
	client, err := c.createClient(creds)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Shop struct {
			TaxesIncluded bool `json:"taxesIncluded"`
		} `json:"shop"`
		Product *struct {
			Tags           []string `json:"tags"`
			Vendor         string   `json:"vendor"`
			Status         string   `json:"status"`
			ProductType    string   `json:"productType"`
			OnlineStoreURL string   `json:"onlineStoreUrl"`
			Category       *struct {
				Name string `json:"name"`
			} `json:"category"`
			Collections edgesOf[struct {
				Title string `json:"title"`
			}] `json:"collections"`
			Publications edgesOf[struct {
				IsPublished bool `json:"isPublished"`
				Channel     struct {
					Name string `json:"name"`
				} `json:"channel"`
			}] `json:"publications"`
			Variants edgesOf[struct {
				Barcode       string `json:"barcode"`
				InventoryItem struct {
					RequiresShipping     bool   `json:"requiresShipping"`
					CountryCodeOfOrigin  string `json:"countryCodeOfOrigin"`
					HarmonizedSystemCode string `json:"harmonizedSystemCode"`
					Measurement          *struct {
						Weight *struct {
							Value json.Number `json:"value"`
							Unit  string      `json:"unit"`
						} `json:"weight"`
					} `json:"measurement"`
				} `json:"inventoryItem"`
			}] `json:"variants"`
		} `json:"product"`
	}
	vars := map[string]interface{}{"id": gid("Product", productID)}
	if err := client.GraphQL.Query(ctx, productDetailsQuery.text, vars, &resp); err != nil {
		return nil, classifyError("query "+productDetailsQuery.name, err)
	}
	if resp.Product == nil {
		return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, productID)
	}

	p := resp.Product
	details := &domain.ProductDetails{
		Tags:           p.Tags,
		Vendor:         p.Vendor,
		Status:         p.Status,
		ProductType:    p.ProductType,
		OnlineStoreURL: p.OnlineStoreURL,
		TaxesIncluded:  resp.Shop.TaxesIncluded,
	}
	if p.Category != nil {
		details.Category = p.Category.Name
	}
	for _, e := range p.Collections.Edges {
		details.Collections = append(details.Collections, e.Node.Title)
	}
	for _, e := range p.Publications.Edges {
		if e.Node.IsPublished {
			details.PublishedChannels = append(details.PublishedChannels, e.Node.Channel.Name)
		}
	}
	if len(p.Variants.Edges) > 0 {
		v := p.Variants.Edges[0].Node
		details.HasVariant = true
		details.Barcode = v.Barcode
		details.RequiresShipping = v.InventoryItem.RequiresShipping
		details.CountryOfOrigin = v.InventoryItem.CountryCodeOfOrigin
		details.HarmonizedSystemCode = v.InventoryItem.HarmonizedSystemCode
		if m := v.InventoryItem.Measurement; m != nil && m.Weight != nil {
			details.Weight = fmt.Sprintf("%s %s", m.Weight.Value, m.Weight.Unit)
		}
	}
	return details, nil
}

func (c *client) GetOrderDetails(ctx context.Context, creds *domain.ShopifyCredentials, orderID string) (*domain.OrderDetails, error) {
	client, err := c.createClient(creds)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Order *struct {
			ID                       string            `json:"id"`
			Name                     string            `json:"name"`
			Note                     string            `json:"note"`
			Tags                     []string          `json:"tags"`
			PaymentGatewayNames      []string          `json:"paymentGatewayNames"`
			DisplayFinancialStatus   string            `json:"displayFinancialStatus"`
			DisplayFulfillmentStatus string            `json:"displayFulfillmentStatus"`
			TotalPriceSet            *moneyNode        `json:"totalPriceSet"`
			TotalTaxSet              *moneyNode        `json:"totalTaxSet"`
			TotalDiscountsSet        *moneyNode        `json:"totalDiscountsSet"`
			TotalRefundedSet         *moneyNode        `json:"totalRefundedSet"`
			Fulfillments             []fulfillmentNode `json:"fulfillments"`
			BillingAddress           *addressNode      `json:"billingAddress"`
			ShippingAddress          *addressNode      `json:"shippingAddress"`
			ShippingLine             *struct {
				Title            string     `json:"title"`
				OriginalPriceSet *moneyNode `json:"originalPriceSet"`
			} `json:"shippingLine"`
		} `json:"order"`
	}
	vars := map[string]interface{}{"id": gid("Order", orderID)}
	if err := client.GraphQL.Query(ctx, orderDetailsQuery.text, vars, &resp); err != nil {
		return nil, classifyError("query "+orderDetailsQuery.name, err)
	}
	if resp.Order == nil {
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, orderID)
	}

	o := resp.Order
	details := &domain.OrderDetails{
		ID:                o.ID,
		Name:              o.Name,
		Note:              o.Note,
		Tags:              o.Tags,
		PaymentGateways:   o.PaymentGatewayNames,
		FinancialStatus:   o.DisplayFinancialStatus,
		FulfillmentStatus: o.DisplayFulfillmentStatus,
		Shipment:          firstShipment(o.Fulfillments),
		Billing:           o.BillingAddress.toDomain(),
		Shipping:          o.ShippingAddress.toDomain(),
		TotalPrice:        o.TotalPriceSet.amount(),
		TotalTax:          o.TotalTaxSet.amount(),
		TotalDiscount:     o.TotalDiscountsSet.amount(),
		TotalRefunded:     o.TotalRefundedSet.amount(),
	}
	if o.ShippingLine != nil {
		details.ShippingTitle = o.ShippingLine.Title
		details.ShippingPrice = o.ShippingLine.OriginalPriceSet.amount()
	}
	return details, nil
}

func parseID(id string) (uint64, error) {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid shopify id %q", domain.ErrBadRequest, id)
	}
	return n, nil
}
