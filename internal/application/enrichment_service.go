package application

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"shopify-hubspot-sync/internal/domain"
	"shopify-hubspot-sync/internal/ports"

	"github.com/rs/zerolog"
)

// EnrichmentService copies source details the upsert does not carry onto the CRM record
type EnrichmentService struct {
	shopify     ports.ShopifyClient
	hubspot     ports.HubSpotClient
	credentials ports.CredentialProvider
	logger      zerolog.Logger
}

var _ RecordHook = (*EnrichmentService)(nil)

// NewEnrichmentService creates a new enrichment service
func NewEnrichmentService(
	shopify ports.ShopifyClient,
	hubspot ports.HubSpotClient,
	credentials ports.CredentialProvider,
	logger zerolog.Logger,
) *EnrichmentService {
	return &EnrichmentService{
		shopify:     shopify,
		hubspot:     hubspot,
		credentials: credentials,
		logger:      logger,
	}
}

// AfterSync enriches one freshly synced record
func (s *EnrichmentService) AfterSync(ctx context.Context, p *domain.Pairing, module domain.ModuleType, sourceID, targetID string) error {
	source, err := domain.ShopifyCredentialsOf(p.Source)
	if err != nil {
		return err
	}
	target, err := domain.HubspotCredentialsOf(p.Target)
	if err != nil {
		return err
	}
	token, err := s.credentials.GetValidToken(ctx, p.Target)
	if err != nil {
		return err
	}
	key := func(name string) string { return name + "_" + target.KeyPrefix() }

	switch module {
	case domain.ModuleCustomer:
		return s.enrichCustomer(ctx, source, token, key, sourceID, targetID)
	case domain.ModuleProduct:
		return s.enrichProduct(ctx, source, token, key, sourceID, targetID)
	case domain.ModuleOrder:
		return s.enrichOrder(ctx, source, token, key, sourceID, targetID)
	}
	return nil
}

// notAvailable fills enrichment properties the source has no value for
const notAvailable = "N/A"

// maxUnpaidOrders is the largest unpaid order count written as a plain number
const maxUnpaidOrders = 99

func (s *EnrichmentService) enrichCustomer(ctx context.Context, source *domain.ShopifyCredentials, token string, key func(string) string, sourceID, contactID string) error {
	details, err := s.shopify.GetCustomerDetails(ctx, source, sourceID)
	if err != nil {
		return fmt.Errorf("failed to fetch customer details: %w", err)
	}

	if err := s.hubspot.Update(ctx, token, domain.ObjectContacts, contactID, customerProperties(details, key)); err != nil {
		return fmt.Errorf("failed to enrich contact: %w", err)
	}

	note := details.Note
	if strings.TrimSpace(note) == "" {
		return nil
	}
	has, err := s.hubspot.HasNote(ctx, token, contactID, note)
	if err != nil {
		return fmt.Errorf("failed to check contact notes: %w", err)
	}
	if has {
		s.logger.Debug().Str("contact_id", contactID).Msg("Contact already has this note")
		return nil
	}
	if err := s.hubspot.CreateNote(ctx, token, contactID, note); err != nil {
		return fmt.Errorf("failed to create contact note: %w", err)
	}
	return nil
}

func customerProperties(d *domain.CustomerDetails, key func(string) string) map[string]string {
	props := map[string]string{
		key("email_subscription"):  orNA(d.EmailMarketing),
		key("sms_subscription"):    orNA(d.SmsMarketing),
		key("tag"):                 joinOrNA(d.Tags),
		key("unpaid_orders_count"): unpaidCount(d.UnpaidOrders),
	}

	order := d.LastOrder
	if order == nil {
		order = &domain.RecentOrder{}
	}
	props[key("last_order_fulfillment_status")] = orNA(order.FulfillmentStatus)
	props[key("last_order_number")] = orNA(order.ConfirmationNumber)
	props[key("last_order_source")] = orderAdminURL(order.ID)
	props[key("last_order_status")] = orNA(order.FinancialStatus)
	addShipment(props, key, "last_order_", order.Shipment)
	addAddress(props, key, "billing_", order.Billing)
	addAddress(props, key, "shipping_", order.Shipping)

	products := order.Products
	for i := 0; i < 3; i++ {
		var p domain.PurchasedProduct
		if i < len(products) {
			p = products[i]
		}
		prefix := fmt.Sprintf("last_products_bought_product_%d_", i+1)
		props[key(prefix+"name")] = orNA(p.Title)
		props[key(prefix+"price")] = orNA(p.Price)
		props[key(prefix+"image_url")] = orNA(p.ImageURL)
		props[key(prefix+"url")] = orNA(p.URL)
	}

	var titles, types, vendors, tags []string
	var html strings.Builder
	for _, p := range products {
		titles = append(titles, p.Title)
		types = append(types, orNA(p.ProductType))
		vendors = append(vendors, orNA(p.Vendor))
		tags = append(tags, p.Tags...)
		fmt.Fprintf(&html, `<div><img src="%s" alt="%s" width="50"><p>%s - %s</p></div>`, orNA(p.ImageURL), p.Title, p.Title, p.Price)
	}
	categories := joinOrNA(unique(types))
	boughtTitles := joinOrNA(titles)
	props[key("last_categories_bought")] = categories
	props[key("last_vendors_bought")] = joinOrNA(unique(vendors))
	props[key("last_total_number_of_products_bought")] = strconv.Itoa(len(products))
	props[key("shopify_product_tags")] = joinOrNA(unique(tags))
	props[key("last_products_bought")] = boughtTitles
	props[key("last_products_bought_html")] = orNA(html.String())
	props[key("categories_bought")] = categories
	props[key("product_types_bought")] = categories
	props[key("products_bought")] = boughtTitles
	props[key("last_product_bought")] = props[key("last_products_bought_product_1_name")]
	props[key("last_product_types_bought")] = categories
	return props
}

func (s *EnrichmentService) enrichProduct(ctx context.Context, source *domain.ShopifyCredentials, token string, key func(string) string, sourceID, productID string) error {
	details, err := s.shopify.GetProductDetails(ctx, source, sourceID)
	if err != nil {
		return fmt.Errorf("failed to fetch product details: %w", err)
	}
	if err := s.hubspot.Update(ctx, token, domain.ObjectProducts, productID, productProperties(details, key)); err != nil {
		return fmt.Errorf("failed to enrich product: %w", err)
	}
	return nil
}

func productProperties(d *domain.ProductDetails, key func(string) string) map[string]string {
	isPhysical, barcode := notAvailable, notAvailable
	if d.HasVariant {
		isPhysical, barcode = "no", d.Barcode
		if d.RequiresShipping {
			isPhysical = "yes"
		}
	}
	return map[string]string{
		key("tag"):            strings.Join(d.Tags, ", "),
		key("chargetax"):      strconv.FormatBool(d.TaxesIncluded),
		key("isphysical"):     isPhysical,
		key("barcode"):        barcode,
		key("vendor"):         d.Vendor,
		key("shop"):           orNA(d.OnlineStoreURL),
		key("status"):         orNA(d.Status),
		key("publish"):        joinOrNA(d.PublishedChannels),
		key("category"):       orNA(d.Category),
		key("shoping_weight"): orNA(d.Weight),
		key("country"):        orNA(d.CountryOfOrigin),
		key("collection"):     joinOrNA(d.Collections),
		key("hsc"):            orNA(d.HarmonizedSystemCode),
		key("type"):           orNA(d.ProductType),
	}
}

func (s *EnrichmentService) enrichOrder(ctx context.Context, source *domain.ShopifyCredentials, token string, key func(string) string, sourceID, dealID string) error {
	details, err := s.shopify.GetOrderDetails(ctx, source, sourceID)
	if err != nil {
		return fmt.Errorf("failed to fetch order details: %w", err)
	}
	if err := s.hubspot.Update(ctx, token, domain.ObjectDeals, dealID, orderProperties(details, sourceID, key)); err != nil {
		return fmt.Errorf("failed to enrich deal: %w", err)
	}
	return nil
}

func orderProperties(d *domain.OrderDetails, sourceID string, key func(string) string) map[string]string {
	total := parseAmount(d.TotalPrice)
	shipping := parseAmount(d.ShippingPrice)
	tax := parseAmount(d.TotalTax)

	payment := ""
	if len(d.PaymentGateways) > 0 {
		payment = d.PaymentGateways[0]
	}
	shipmentDate := ""
	if d.Shipment != nil {
		shipmentDate = d.Shipment.CreatedAt
	}

	props := map[string]string{
		key("fulfillment_status"): orNA(d.FulfillmentStatus),
		key("order_id"):           orNA(d.ID),
		key("order_notes"):        orNA(d.Note),
		key("order_number"):       orNA(d.Name),
		key("order_source"):       orderAdminURL(sourceID),
		key("order_status"):       orNA(d.FinancialStatus),
		key("order_tags"):         joinOrNA(d.Tags),
		key("payment_title"):      orNA(payment),
		key("shipment_carrier"):   orNA(d.ShippingTitle),
		key("shipment_date"):      orNA(shipmentDate),

		key("order_values"):         formatAmount(total - shipping - tax),
		key("discounts"):            orZero(d.TotalDiscount),
		key("gross_value_of_order"): orZero(d.TotalPrice),
		key("net_value_of_order"):   formatAmount(total - tax),
		key("refund_amount"):        orZero(d.TotalRefunded),
		key("shipping"):             orZero(d.ShippingPrice),
		key("tax"):                  orZero(d.TotalTax),
	}
	trackingNumbers, trackingURLs := trackingFields(d.Shipment)
	props[key("order_tracking_number")] = trackingNumbers
	props[key("order_tracking_url")] = trackingURLs
	addAddress(props, key, "billing_", d.Billing)
	addAddress(props, key, "shipping_", d.Shipping)
	return props
}

func addAddress(props map[string]string, key func(string) string, prefix string, a *domain.PostalAddress) {
	if a == nil {
		a = &domain.PostalAddress{}
	}
	props[key(prefix+"address_line_1")] = orNA(a.Address1)
	props[key(prefix+"address_line_2")] = orNA(a.Address2)
	props[key(prefix+"city")] = orNA(a.City)
	props[key(prefix+"country")] = orNA(a.Country)
	props[key(prefix+"phone")] = orNA(a.Phone)
	props[key(prefix+"postal_code")] = orNA(a.Zip)
	props[key(prefix+"state")] = orNA(a.Province)
}

func addShipment(props map[string]string, key func(string) string, prefix string, shipment *domain.Shipment) {
	var carriers []string
	date := ""
	if shipment != nil {
		date = shipment.CreatedAt
		for _, t := range shipment.Tracking {
			carriers = append(carriers, t.Company)
		}
	}
	numbers, urls := trackingFields(shipment)
	props[key(prefix+"shipment_carrier")] = joinOrNA(carriers)
	props[key(prefix+"shipment_date")] = orNA(date)
	props[key(prefix+"tracking_number")] = numbers
	props[key(prefix+"tracking_url")] = urls
}

func trackingFields(shipment *domain.Shipment) (numbers, urls string) {
	var n, u []string
	if shipment != nil {
		for _, t := range shipment.Tracking {
			n = append(n, t.Number)
			u = append(u, t.URL)
		}
	}
	return joinOrNA(n), joinOrNA(u)
}

// orderAdminURL links an order id (numeric or gid) to the shop admin
func orderAdminURL(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	if id == "" {
		return notAvailable
	}
	return "https://admin.shopify.com/orders/" + id
}

func unpaidCount(n int) string {
	if n < maxUnpaidOrders {
		return strconv.Itoa(n)
	}
	return strconv.Itoa(maxUnpaidOrders) + "+"
}

func orNA(v string) string {
	if v == "" {
		return notAvailable
	}
	return v
}

func orZero(v string) string {
	if v == "" {
		return "0"
	}
	return v
}

// joinOrNA joins the non-empty values with ", "
func joinOrNA(values []string) string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return notAvailable
	}
	return strings.Join(kept, ", ")
}

// unique keeps the first occurrence of every value
func unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func parseAmount(v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}
