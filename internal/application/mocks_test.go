package application

import (
	"context"
	"sync"
	"time"

	"shopify-hubspot-sync/internal/domain"
	"shopify-hubspot-sync/internal/ports"

	"github.com/stretchr/testify/mock"
)

// MockShopifyClient is a mock implementation of ports.ShopifyClient
type MockShopifyClient struct {
	mock.Mock
}

var _ ports.ShopifyClient = (*MockShopifyClient)(nil)

func (m *MockShopifyClient) QueryPage(ctx context.Context, creds *domain.ShopifyCredentials, module domain.ModuleType, pageSize int, cursor string, filter domain.DateFilter) (*domain.Page, error) {
	args := m.Called(ctx, creds, module, pageSize, cursor, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Page), args.Error(1)
}

func (m *MockShopifyClient) GetMetafields(ctx context.Context, creds *domain.ShopifyCredentials, module domain.ModuleType, recordID string) ([]domain.Metafield, error) {
	args := m.Called(ctx, creds, module, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Metafield), args.Error(1)
}

func (m *MockShopifyClient) GetMetafieldDefinitions(ctx context.Context, creds *domain.ShopifyCredentials, module domain.ModuleType) ([]domain.CatalogField, error) {
	args := m.Called(ctx, creds, module)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CatalogField), args.Error(1)
}

func (m *MockShopifyClient) GetAccessScopes(ctx context.Context, creds *domain.ShopifyCredentials) ([]string, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockShopifyClient) CreateWebhook(ctx context.Context, creds *domain.ShopifyCredentials, topic string, address string) (string, error) {
	args := m.Called(ctx, creds, topic, address)
	return args.String(0), args.Error(1)
}

func (m *MockShopifyClient) DeleteWebhook(ctx context.Context, creds *domain.ShopifyCredentials, webhookID string) error {
	args := m.Called(ctx, creds, webhookID)
	return args.Error(0)
}

func (m *MockShopifyClient) GetCustomerDetails(ctx context.Context, creds *domain.ShopifyCredentials, customerID string) (*domain.CustomerDetails, error) {
	args := m.Called(ctx, creds, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CustomerDetails), args.Error(1)
}

func (m *MockShopifyClient) GetProductDetails(ctx context.Context, creds *domain.ShopifyCredentials, productID string) (*domain.ProductDetails, error) {
	args := m.Called(ctx, creds, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductDetails), args.Error(1)
}

func (m *MockShopifyClient) GetOrderDetails(ctx context.Context, creds *domain.ShopifyCredentials, orderID string) (*domain.OrderDetails, error) {
	args := m.Called(ctx, creds, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrderDetails), args.Error(1)
}

// MockHubSpotClient is a mock implementation of ports.HubSpotClient
type MockHubSpotClient struct {
	mock.Mock
}

var _ ports.HubSpotClient = (*MockHubSpotClient)(nil)

func (m *MockHubSpotClient) FindByKey(ctx context.Context, token, object, key, value string) (string, error) {
	args := m.Called(ctx, token, object, key, value)
	return args.String(0), args.Error(1)
}

func (m *MockHubSpotClient) Create(ctx context.Context, token, object string, props map[string]string) (string, error) {
	args := m.Called(ctx, token, object, props)
	return args.String(0), args.Error(1)
}

func (m *MockHubSpotClient) Update(ctx context.Context, token, object, id string, props map[string]string) error {
	args := m.Called(ctx, token, object, id, props)
	return args.Error(0)
}

func (m *MockHubSpotClient) ListAssociations(ctx context.Context, token, fromObject, fromID, toObject string) ([]string, error) {
	args := m.Called(ctx, token, fromObject, fromID, toObject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockHubSpotClient) ArchiveAssociations(ctx context.Context, token, fromObject, fromID, toObject string, toIDs []string) error {
	args := m.Called(ctx, token, fromObject, fromID, toObject, toIDs)
	return args.Error(0)
}

func (m *MockHubSpotClient) CreateAssociation(ctx context.Context, token, fromObject, fromID, toObject, toID, assocType string) error {
	args := m.Called(ctx, token, fromObject, fromID, toObject, toID, assocType)
	return args.Error(0)
}

func (m *MockHubSpotClient) AssociateLineItem(ctx context.Context, token, lineItemID, dealID string) error {
	args := m.Called(ctx, token, lineItemID, dealID)
	return args.Error(0)
}

func (m *MockHubSpotClient) CreateNote(ctx context.Context, token, contactID, body string) error {
	args := m.Called(ctx, token, contactID, body)
	return args.Error(0)
}

func (m *MockHubSpotClient) HasNote(ctx context.Context, token, contactID, body string) (bool, error) {
	args := m.Called(ctx, token, contactID, body)
	return args.Bool(0), args.Error(1)
}

func (m *MockHubSpotClient) ListProperties(ctx context.Context, token, object string) ([]ports.CRMProperty, error) {
	args := m.Called(ctx, token, object)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ports.CRMProperty), args.Error(1)
}

func (m *MockHubSpotClient) CreateProperty(ctx context.Context, token, object string, prop ports.CRMProperty) error {
	args := m.Called(ctx, token, object, prop)
	return args.Error(0)
}

func (m *MockHubSpotClient) ValidateToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// MockAppRepository is a mock implementation of ports.AppRepository
type MockAppRepository struct {
	mock.Mock
}

var _ ports.AppRepository = (*MockAppRepository)(nil)

func (m *MockAppRepository) GetApp(ctx context.Context, id string) (*domain.App, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.App), args.Error(1)
}

func (m *MockAppRepository) ListAppsByUser(ctx context.Context, userID string) ([]*domain.App, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.App), args.Error(1)
}

func (m *MockAppRepository) SaveApp(ctx context.Context, app *domain.App) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *MockAppRepository) UpdateCredentials(ctx context.Context, appID string, creds domain.PlatformCredential) error {
	args := m.Called(ctx, appID, creds)
	return args.Error(0)
}

func (m *MockAppRepository) SetActive(ctx context.Context, appID string, active bool) error {
	args := m.Called(ctx, appID, active)
	return args.Error(0)
}

func (m *MockAppRepository) AddWebhookIDs(ctx context.Context, appID string, webhookIDs []string) error {
	args := m.Called(ctx, appID, webhookIDs)
	return args.Error(0)
}

func (m *MockAppRepository) ClearWebhookIDs(ctx context.Context, appID string) error {
	args := m.Called(ctx, appID)
	return args.Error(0)
}

// MockTokenRefresher is a mock implementation of ports.TokenRefresher
type MockTokenRefresher struct {
	mock.Mock
}

func (m *MockTokenRefresher) Refresh(ctx context.Context, creds domain.PlatformCredential) (domain.PlatformCredential, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.PlatformCredential), args.Error(1)
}

// MockPairingValidator is a mock implementation of PairingValidator
type MockPairingValidator struct {
	mock.Mock
}

func (m *MockPairingValidator) ValidatePairing(ctx context.Context, p *domain.Pairing) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// MockLocker is a mock implementation of ports.Locker that runs fn unless an error is configured
type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	args := m.Called(ctx, key, ttl)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn()
}

// staticTokens hands out the stored token of every App without refreshing
type staticTokens struct {
	err error
}

func (s staticTokens) GetValidToken(_ context.Context, app *domain.App) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return app.Credentials.AccessToken(), nil
}

// inlineQueue runs submitted tasks immediately and records their names and errors
type inlineQueue struct {
	mu     sync.Mutex
	names  []string
	errs   []error
	reject bool
}

func (q *inlineQueue) Submit(name string, task func(ctx context.Context) error) bool {
	if q.reject {
		return false
	}
	err := task(context.Background())
	q.mu.Lock()
	defer q.mu.Unlock()
	q.names = append(q.names, name)
	if err != nil {
		q.errs = append(q.errs, err)
	}
	return true
}

func (q *inlineQueue) Names() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.names...)
}

// memSyncLogs records sync log entries
type memSyncLogs struct {
	mu      sync.Mutex
	entries []*domain.SyncLog
}

func (l *memSyncLogs) LogSync(_ context.Context, entry *domain.SyncLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *memSyncLogs) Entries() []*domain.SyncLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*domain.SyncLog(nil), l.entries...)
}
