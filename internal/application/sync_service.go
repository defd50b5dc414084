package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"shopify-hubspot-sync/internal/domain"
	"shopify-hubspot-sync/internal/infrastructure/metrics"
	"shopify-hubspot-sync/internal/infrastructure/worker"
	"shopify-hubspot-sync/internal/ports"

	"github.com/rs/zerolog"
)

const (
	dealStageWon       = "closedwon"
	dealStageQualified = "qualifiedtobuy"
	dealTypeExisting   = "existingbusiness"
	dealTypeNew        = "newbusiness"
	dealPipeline       = "default"
	dealToContactType  = "deal_to_contact"
	productTypeStocked = "inventory"
)

// RecordHook runs on the background queue after a record was written to the target
type RecordHook interface {
	AfterSync(ctx context.Context, p *domain.Pairing, module domain.ModuleType, sourceID, targetID string) error
}

type namedHook struct {
	name string
	hook RecordHook
}

// SyncService upserts normalized records into the target CRM keyed by id_<prefix>
type SyncService struct {
	hubspot     ports.HubSpotClient
	credentials ports.CredentialProvider
	connectRepo ports.ConnectRepository
	syncLogRepo ports.SyncLogRepository
	tasks       ports.TaskQueue
	hooks       []namedHook
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSyncService creates a new sync service
func NewSyncService(
	hubspot ports.HubSpotClient,
	credentials ports.CredentialProvider,
	connectRepo ports.ConnectRepository,
	syncLogRepo ports.SyncLogRepository,
	tasks ports.TaskQueue,
	logger zerolog.Logger,
) *SyncService {
	return &SyncService{
		hubspot:     hubspot,
		credentials: credentials,
		connectRepo: connectRepo,
		syncLogRepo: syncLogRepo,
		tasks:       tasks,
		logger:      logger,
		now:         time.Now,
	}
}

// AddHook registers a background follow-up run after every successful record sync
func (s *SyncService) AddHook(name string, hook RecordHook) {
	s.hooks = append(s.hooks, namedHook{name: name, hook: hook})
}

// target is the resolved write side of one sync call
type target struct {
	token  string
	prefix string
	shop   string
}

func (t *target) key(name string) string {
	return name + "_" + t.prefix
}

func (s *SyncService) resolveTarget(ctx context.Context, p *domain.Pairing) (*target, error) {
	creds, err := domain.HubspotCredentialsOf(p.Target)
	if err != nil {
		return nil, err
	}
	token, err := s.credentials.GetValidToken(ctx, p.Target)
	if err != nil {
		if !errors.Is(err, domain.ErrUnauthorized) {
			err = fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
		}
		return nil, err
	}
	return &target{token: token, prefix: creds.KeyPrefix(), shop: string(p.Source.Platform)}, nil
}

// upsert searches the object by its namespaced key and patches it, or creates it when absent.
// created reports which branch ran.
func (s *SyncService) upsert(ctx context.Context, t *target, object, sourceID string, props, createOnly map[string]string) (id string, created bool, err error) {
	id, err = s.hubspot.FindByKey(ctx, t.token, object, t.key("id"), sourceID)
	if err != nil {
		return "", false, fmt.Errorf("failed to search %s: %w", object, err)
	}
	if id != "" {
		if err := s.hubspot.Update(ctx, t.token, object, id, props); err != nil {
			return "", false, fmt.Errorf("failed to update %s %s: %w", object, id, err)
		}
		return id, false, nil
	}

	for k, v := range createOnly {
		props[k] = v
	}
	id, err = s.hubspot.Create(ctx, t.token, object, props)
	if err != nil {
		return "", false, fmt.Errorf("failed to create %s: %w", object, err)
	}
	return id, true, nil
}

// outcome carries what is logged for one record
type outcome struct {
	module   domain.ModuleType
	sourceID string
	label    string
	payload  interface{}
	counted  bool
}

// run executes one record sync and converts any failure into a logged outcome
func (s *SyncService) run(ctx context.Context, p *domain.Pairing, o outcome, fn func(ctx context.Context, t *target) (string, error)) string {
	start := s.now()
	targetID, err := func() (id string, err error) {
		defer func() {
			if pe := worker.Recovered(recover()); pe != nil {
				err = pe
			}
		}()
		t, err := s.resolveTarget(ctx, p)
		if err != nil {
			return "", err
		}
		return fn(ctx, t)
	}()
	metrics.RecordDuration.WithLabelValues(string(o.module)).Observe(s.now().Sub(start).Seconds())

	if err != nil {
		s.recordFailure(ctx, p, o, err)
		return ""
	}
	s.recordSuccess(ctx, p, o, targetID)
	return targetID
}

func (s *SyncService) recordSuccess(ctx context.Context, p *domain.Pairing, o outcome, targetID string) {
	metrics.RecordsTotal.WithLabelValues(string(o.module), metrics.StatusSuccess).Inc()

	for _, h := range s.hooks {
		hook := h.hook
		name := fmt.Sprintf("%s:%s:%s", h.name, o.module, o.sourceID)
		s.tasks.Submit(name, func(ctx context.Context) error {
			return hook.AfterSync(ctx, p, o.module, o.sourceID, targetID)
		})
	}

	if o.counted {
		if counter, ok := domain.CounterFor(o.module); ok {
			if err := s.connectRepo.IncrementCounter(ctx, p.Connect.ID, counter); err != nil {
				s.logger.Error().Err(err).Str("connect_id", p.Connect.ID).Str("counter", string(counter)).Msg("Failed to increment counter")
			}
		}
	}

	s.writeLog(ctx, &domain.SyncLog{
		Status:    true,
		ConnectID: p.Connect.ID,
		UserID:    p.Connect.UserID,
		Module:    o.module,
		Message:   fmt.Sprintf("%s synced to %s", o.module, targetID),
		Label:     o.label,
		CreatedAt: s.now(),
	})
}

func (s *SyncService) recordFailure(ctx context.Context, p *domain.Pairing, o outcome, err error) {
	metrics.RecordsTotal.WithLabelValues(string(o.module), metrics.StatusFailure).Inc()

	var pe *worker.PanicError
	if errors.As(err, &pe) {
		s.logger.Error().
			Err(err).
			Str("connect_id", p.Connect.ID).
			Str("module", string(o.module)).
			Str("source_id", o.sourceID).
			Bytes("stack", pe.Stack).
			Msg("Record sync panicked")
	} else {
		s.logger.Warn().
			Err(err).
			Str("connect_id", p.Connect.ID).
			Str("module", string(o.module)).
			Str("source_id", o.sourceID).
			Msg("Record sync failed")
	}

	s.writeLog(ctx, &domain.SyncLog{
		Status:    false,
		ConnectID: p.Connect.ID,
		UserID:    p.Connect.UserID,
		Module:    o.module,
		Payload:   o.payload,
		Message:   err.Error(),
		Label:     o.label,
		CreatedAt: s.now(),
	})
}

func (s *SyncService) writeLog(ctx context.Context, entry *domain.SyncLog) {
	if err := s.syncLogRepo.LogSync(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("connect_id", entry.ConnectID).Msg("Failed to write sync log")
	}
}

// Products

// SyncProduct upserts a product and returns its CRM id, or "" on failure
func (s *SyncService) SyncProduct(ctx context.Context, p *domain.Pairing, product *domain.CommonProduct) string {
	return s.syncProduct(ctx, p, product, true)
}

func (s *SyncService) syncProduct(ctx context.Context, p *domain.Pairing, product *domain.CommonProduct, counted bool) string {
	o := outcome{module: domain.ModuleProduct, sourceID: product.ID, label: productLabel(product), payload: product, counted: counted}
	return s.run(ctx, p, o, func(ctx context.Context, t *target) (string, error) {
		id, _, err := s.upsert(ctx, t, domain.ObjectProducts, product.ID, syncProductProperties(t, product), nil)
		return id, err
	})
}

func productLabel(p *domain.CommonProduct) string {
	sku := p.SKU
	if sku == "" {
		sku = "No SKU"
	}
	return p.Name + " - " + sku
}

func syncProductProperties(t *target, p *domain.CommonProduct) map[string]string {
	return map[string]string{
		"name":            p.Name,
		"description":     p.Description,
		"price":           formatAmount(p.Price),
		"hs_images":       strings.Join(p.Images, ","),
		"hs_product_type": productTypeStocked,
		t.key("sku"):      p.SKU,
		t.key("id"):       p.ID,
		t.key("shop"):     p.Vendor,
		t.key("quantity"): strconv.Itoa(p.Inventory),
	}
}

// Customers

// SyncCustomer upserts a contact and returns its CRM id, or "" on failure
func (s *SyncService) SyncCustomer(ctx context.Context, p *domain.Pairing, customer *domain.CommonCustomer) string {
	return s.syncCustomer(ctx, p, customer, true)
}

func (s *SyncService) syncCustomer(ctx context.Context, p *domain.Pairing, customer *domain.CommonCustomer, counted bool) string {
	o := outcome{module: domain.ModuleCustomer, sourceID: customer.ID, label: customerLabel(customer), payload: customer, counted: counted}
	return s.run(ctx, p, o, func(ctx context.Context, t *target) (string, error) {
		id, _, err := s.upsert(ctx, t, domain.ObjectContacts, customer.ID, syncCustomerProperties(t, customer), nil)
		return id, err
	})
}

func customerLabel(c *domain.CommonCustomer) string {
	email := c.Email
	if email == "" {
		email = "No Email"
	}
	return c.FullName + " - " + email
}

func syncCustomerProperties(t *target, c *domain.CommonCustomer) map[string]string {
	props := map[string]string{
		"firstname":   c.FirstName,
		"lastname":    c.LastName,
		"email":       c.Email,
		"phone":       c.Phone,
		t.key("shop"): t.shop,
		t.key("id"):   c.ID,
		t.key("tag"):  "",
	}
	if addr := c.PrimaryAddress(); addr != nil {
		props["address"] = strings.TrimSpace(addr.Address1 + " " + addr.Address2)
		props["zip"] = addr.Zip
		props["city"] = addr.City
		props["country"] = addr.Country
		props["company"] = addr.Company
	}
	return props
}

// Orders

// SyncOrder upserts the order's customer, its products and then the deal itself.
// Line item and contact associations are rebuilt from scratch on every call.
func (s *SyncService) SyncOrder(ctx context.Context, p *domain.Pairing, order *domain.CommonOrder) string {
	o := outcome{module: domain.ModuleOrder, sourceID: order.ID, label: order.ID, payload: order, counted: true}

	contactID := ""
	if order.Customer != nil && order.Customer.ID != "" {
		contactID = s.syncCustomer(ctx, p, order.Customer, false)
	}

	lines := make([]orderLine, 0, len(order.Products))
	for i := range order.Products {
		product := &order.Products[i]
		if product.ID == "" {
			continue
		}
		if id := s.syncProduct(ctx, p, product, false); id != "" {
			lines = append(lines, orderLine{productID: id, product: product})
		}
	}

	return s.run(ctx, p, o, func(ctx context.Context, t *target) (string, error) {
		dealID, _, err := s.upsert(ctx, t, domain.ObjectDeals, order.ID, s.dealProperties(t, order), dealCreateProperties(t, order))
		if err != nil {
			return "", err
		}
		if err := s.rebuildLineItems(ctx, t, dealID, lines); err != nil {
			return "", err
		}
		if contactID != "" {
			if err := s.relinkContact(ctx, t, dealID, contactID); err != nil {
				return "", err
			}
		}
		return dealID, nil
	})
}

type orderLine struct {
	productID string
	product   *domain.CommonProduct
}

func (s *SyncService) dealProperties(t *target, o *domain.CommonOrder) map[string]string {
	stage := dealStageQualified
	if o.IsPaid {
		stage = dealStageWon
	}
	dealType := dealTypeNew
	if o.Customer != nil && o.Customer.ID != "" {
		dealType = dealTypeExisting
	}
	closeDate := o.CreatedAt
	if closeDate == "" {
		closeDate = s.now().UTC().Format(time.RFC3339)
	}
	name := o.Title
	if name == "" {
		name = o.ID
	}

	return map[string]string{
		"dealname":    name,
		"amount":      formatAmount(o.TotalPrice),
		"dealstage":   stage,
		"closedate":   closeDate,
		"dealtype":    dealType,
		t.key("id"):   o.ID,
		t.key("shop"): t.shop,
	}
}

func dealCreateProperties(t *target, o *domain.CommonOrder) map[string]string {
	payment := "Un Paid"
	if o.IsPaid {
		payment = "Paid"
	}
	return map[string]string{
		"pipeline":       dealPipeline,
		t.key("payment"): payment,
	}
}

func (s *SyncService) rebuildLineItems(ctx context.Context, t *target, dealID string, lines []orderLine) error {
	existing, err := s.hubspot.ListAssociations(ctx, t.token, domain.ObjectDeals, dealID, domain.ObjectLineItems)
	if err != nil {
		return fmt.Errorf("failed to list line items: %w", err)
	}
	if err := s.hubspot.ArchiveAssociations(ctx, t.token, domain.ObjectDeals, dealID, domain.ObjectLineItems, existing); err != nil {
		return fmt.Errorf("failed to archive line items: %w", err)
	}

	for _, line := range lines {
		props := map[string]string{
			"hs_product_id": line.productID,
			"quantity":      strconv.Itoa(line.product.Quantity),
			"price":         formatAmount(line.product.Price),
		}
		lineItemID, err := s.hubspot.Create(ctx, t.token, domain.ObjectLineItems, props)
		if err != nil {
			return fmt.Errorf("failed to create line item: %w", err)
		}
		if err := s.hubspot.AssociateLineItem(ctx, t.token, lineItemID, dealID); err != nil {
			return fmt.Errorf("failed to associate line item %s: %w", lineItemID, err)
		}
	}
	return nil
}

func (s *SyncService) relinkContact(ctx context.Context, t *target, dealID, contactID string) error {
	existing, err := s.hubspot.ListAssociations(ctx, t.token, domain.ObjectDeals, dealID, domain.ObjectContacts)
	if err != nil {
		return fmt.Errorf("failed to list deal contacts: %w", err)
	}
	if err := s.hubspot.ArchiveAssociations(ctx, t.token, domain.ObjectDeals, dealID, domain.ObjectContacts, existing); err != nil {
		return fmt.Errorf("failed to archive deal contacts: %w", err)
	}
	if err := s.hubspot.CreateAssociation(ctx, t.token, domain.ObjectDeals, dealID, domain.ObjectContacts, contactID, dealToContactType); err != nil {
		return fmt.Errorf("failed to associate contact: %w", err)
	}
	return nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
