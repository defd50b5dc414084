package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"shopify-hubspot-sync/internal/config"
	"shopify-hubspot-sync/internal/domain"
	"shopify-hubspot-sync/internal/infrastructure/metrics"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func customerNode(id int, email string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"id":"gid://shopify/Customer/%d","email":%q,"firstName":"C","lastName":"%d"}`, id, email, id))
}

type migrationFixture struct {
	sync      *syncFixture
	shopify   *MockShopifyClient
	validator *MockPairingValidator
	service   *MigrationService
	delays    []time.Duration
	mu        sync.Mutex
}

func newMigrationFixture(locker *MockLocker) *migrationFixture {
	sf := newSyncFixture()
	f := &migrationFixture{
		sync:      sf,
		shopify:   new(MockShopifyClient),
		validator: new(MockPairingValidator),
	}
	apps := newMemApps(sf.pairing.Source, sf.pairing.Target)
	f.service = NewMigrationService(sf.connects, apps, f.shopify, sf.service, f.validator, nil, config.DefaultBatchConfig(), zerolog.Nop())
	if locker != nil {
		f.service.locker = locker
	}
	f.service.pageSize = 2
	f.service.sleep = func(_ context.Context, d time.Duration) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.delays = append(f.delays, d)
	}
	return f
}

func TestMigrationService_CustomersAcrossPages(t *testing.T) {
	f := newMigrationFixture(nil)
	f.validator.On("ValidatePairing", mock.Anything, mock.Anything).Return(nil)
	f.shopify.On("QueryPage", mock.Anything, mock.Anything, domain.ModuleCustomer, 2, "", domain.DateFilter{}).
		Return(&domain.Page{Nodes: []json.RawMessage{customerNode(1, "a@x.io"), customerNode(2, "b@x.io")}, EndCursor: "c1", HasNextPage: true}, nil).Once()
	f.shopify.On("QueryPage", mock.Anything, mock.Anything, domain.ModuleCustomer, 2, "c1", domain.DateFilter{}).
		Return(&domain.Page{Nodes: []json.RawMessage{customerNode(3, "c@x.io")}, EndCursor: "c2", HasNextPage: false}, nil).Once()

	err := f.service.Migrate(context.Background(), "user-1", "connect-1", domain.ModuleCustomer, domain.DateFilter{})
	require.NoError(t, err)

	f.shopify.AssertNumberOfCalls(t, "QueryPage", 2)
	assert.Equal(t, 3, f.sync.crm.Calls("Create:contacts"))

	snapshot := f.sync.connects.Snapshot("connect-1")
	assert.Equal(t, 3, snapshot.MigratedContacts)
	assert.False(t, snapshot.IsSyncing)
	assert.Equal(t, []string{"reset:migratedContacts", "syncing:true", "inc:migratedContacts", "inc:migratedContacts", "inc:migratedContacts", "syncing:false"}, f.sync.connects.Events())
	// the batch that finishes the last page is not followed by a pause
	assert.Equal(t, []time.Duration{400 * time.Millisecond}, f.delays)
}

func TestMigrationService_PausesBetweenBatchesOfLastPage(t *testing.T) {
	f := newMigrationFixture(nil)
	f.service.batches.CommonSize = 1
	f.validator.On("ValidatePairing", mock.Anything, mock.Anything).Return(nil)
	f.shopify.On("QueryPage", mock.Anything, mock.Anything, domain.ModuleCustomer, 2, "", domain.DateFilter{}).
		Return(&domain.Page{Nodes: []json.RawMessage{customerNode(1, "a@x.io"), customerNode(2, "b@x.io")}}, nil).Once()

	require.NoError(t, f.service.Migrate(context.Background(), "user-1", "connect-1", domain.ModuleCustomer, domain.DateFilter{}))

	assert.Equal(t, []time.Duration{400 * time.Millisecond}, f.delays)
}

// panickingSyncer blows up on one customer id and syncs the rest
type panickingSyncer struct {
	RecordSyncer
	badID string
}

func (s panickingSyncer) SyncCustomer(ctx context.Context, p *domain.Pairing, customer *domain.CommonCustomer) string {
	if customer.ID == s.badID {
		panic("index out of range")
	}
	return s.RecordSyncer.SyncCustomer(ctx, p, customer)
}

func TestMigrationService_RecordPanicIsLoggedAndCounted(t *testing.T) {
	f := newMigrationFixture(nil)
	var buf bytes.Buffer
	f.service.syncer = panickingSyncer{RecordSyncer: f.sync.service, badID: "2"}
	f.service.logger = zerolog.New(&buf)
	failures := metrics.RecordsTotal.WithLabelValues(string(domain.ModuleCustomer), metrics.StatusFailure)
	before := counterValue(t, failures)
	f.validator.On("ValidatePairing", mock.Anything, mock.Anything).Return(nil)
	f.shopify.On("QueryPage", mock.Anything, mock.Anything, domain.ModuleCustomer, 2, "", domain.DateFilter{}).
		Return(&domain.Page{Nodes: []json.RawMessage{customerNode(1, "a@x.io"), customerNode(2, "b@x.io")}}, nil).Once()

	require.NoError(t, f.service.Migrate(context.Background(), "user-1", "connect-1", domain.ModuleCustomer, domain.DateFilter{}))

	assert.Equal(t, 1, f.sync.connects.Snapshot("connect-1").MigratedContacts)
	assert.Equal(t, before+1, counterValue(t, failures))
	logged := buf.String()
	assert.Contains(t, logged, "Record task panicked")
	assert.Contains(t, logged, `"connect_id":"connect-1"`)
	assert.Contains(t, logged, `"module":"customer"`)
	assert.Contains(t, logged, `"stack":`)
}

func TestMigrationService_RerunIsIdempotent(t *testing.T) {
	f := newMigrationFixture(nil)
	f.validator.On("ValidatePairing", mock.Anything, mock.Anything).Return(nil)
	f.shopify.On("QueryPage", mock.Anything, mock.Anything, domain.ModuleCustomer, 2, "", domain.DateFilter{}).
		Return(&domain.Page{Nodes: []json.RawMessage{customerNode(1, "a@x.io")}}, nil)

	require.NoError(t, f.service.Migrate(context.Background(), "user-1", "connect-1", domain.ModuleCustomer, domain.DateFilter{}))
	require.NoError(t, f.service.Migrate(context.Background(), "user-1", "connect-1", domain.ModuleCustomer, domain.DateFilter{}))

	assert.Len(t, f.sync.crm.Records(domain.ObjectContacts), 1)
	assert.Equal(t, 1, f.sync.connects.Snapshot("connect-1").MigratedContacts)
}

func TestMigrationService_PassesDateFilter(t *testing.T) {
	f := newMigrationFixture(nil)
	filter := domain.DateFilter{From: "2024-01-01", To: "2024-02-01"}
	f.validator.On("ValidatePairing", mock.Anything, mock.Anything).Return(nil)
	f.shopify.On("QueryPage", mock.Anything, mock.Anything, domain.ModuleProduct, 2, "", filter).
		Return(&domain.Page{}, nil).Once()

	require.NoError(t, f.service.Migrate(context.Background(), "user-1", "connect-1", domain.ModuleProduct, filter))
	f.shopify.AssertExpectations(t)
}

func TestMigrationService_AllResetsEveryCounterFirst(t *testing.T) {
	f := newMigrationFixture(nil)
	f.sync.connects.connects["connect-1"].MigratedContacts = 10
	f.sync.connects.connects["connect-1"].MigratedOrders = 4
	f.validator.On("ValidatePairing", mock.Anything, mock.Anything).Return(nil)
	for _, m := range []domain.ModuleType{domain.ModuleCustomer, domain.ModuleProduct, domain.ModuleOrder} {
		f.shopify.On("QueryPage", mock.Anything, mock.Anything, m, 2, "", domain.DateFilter{}).Return(&domain.Page{}, nil).Once()
	}

	require.NoError(t, f.service.Migrate(context.Background(), "user-1", "connect-1", domain.ModuleAll, domain.DateFilter{}))

	events := f.sync.connects.Events()
	require.GreaterOrEqual(t, len(events), 4)
	assert.Equal(t, []string{"reset:migratedContacts", "reset:migratedProducts", "reset:migratedOrders", "syncing:true"}, events[:4])
	snapshot := f.sync.connects.Snapshot("connect-1")
	assert.Zero(t, snapshot.MigratedContacts)
	assert.Zero(t, snapshot.MigratedOrders)
	f.shopify.AssertExpectations(t)
}

func TestMigrationService_PageErrorClearsSyncing(t *testing.T) {
	f := newMigrationFixture(nil)
	f.validator.On("ValidatePairing", mock.Anything, mock.Anything).Return(nil)
	f.shopify.On("QueryPage", mock.Anything, mock.Anything, domain.ModuleOrder, 2, "", domain.DateFilter{}).
		Return(nil, fmt.Errorf("%w: shopify down", domain.ErrNetwork))

	err := f.service.Migrate(context.Background(), "user-1", "connect-1", domain.ModuleOrder, domain.DateFilter{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNetwork))
	assert.False(t, f.sync.connects.Snapshot("connect-1").IsSyncing)
}

func TestMigrationService_PanicClearsSyncing(t *testing.T) {
	f := newMigrationFixture(nil)
	f.validator.On("ValidatePairing", mock.Anything, mock.Anything).Return(nil)
	f.shopify.On("QueryPage", mock.Anything, mock.Anything, domain.ModuleCustomer, 2, "", domain.DateFilter{}).
		Run(func(mock.Arguments) { panic("boom") })

	assert.Panics(t, func() {
		_ = f.service.Migrate(context.Background(), "user-1", "connect-1", domain.ModuleCustomer, domain.DateFilter{})
	})
	assert.False(t, f.sync.connects.Snapshot("connect-1").IsSyncing)
}

func TestMigrationService_UndecodableNodeIsSkipped(t *testing.T) {
	f := newMigrationFixture(nil)
	f.validator.On("ValidatePairing", mock.Anything, mock.Anything).Return(nil)
	f.shopify.On("QueryPage", mock.Anything, mock.Anything, domain.ModuleCustomer, 2, "", domain.DateFilter{}).
		Return(&domain.Page{Nodes: []json.RawMessage{json.RawMessage(`[1,2]`), customerNode(5, "e@x.io")}}, nil)

	require.NoError(t, f.service.Migrate(context.Background(), "user-1", "connect-1", domain.ModuleCustomer, domain.DateFilter{}))
	assert.Equal(t, 1, f.sync.connects.Snapshot("connect-1").MigratedContacts)
}

func TestMigrationService_ValidationFailureMutatesNothing(t *testing.T) {
	f := newMigrationFixture(nil)
	f.validator.On("ValidatePairing", mock.Anything, mock.Anything).Return(fmt.Errorf("%w: missing scopes read_orders", domain.ErrBadRequest))

	err := f.service.Migrate(context.Background(), "user-1", "connect-1", domain.ModuleAll, domain.DateFilter{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	assert.Empty(t, f.sync.connects.Events())
	f.shopify.AssertNumberOfCalls(t, "QueryPage", 0)
}

func TestMigrationService_UnknownConnect(t *testing.T) {
	f := newMigrationFixture(nil)

	err := f.service.Migrate(context.Background(), "user-1", "missing", domain.ModuleAll, domain.DateFilter{})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = f.service.Migrate(context.Background(), "someone-else", "connect-1", domain.ModuleAll, domain.DateFilter{})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestMigrationService_LockHeld(t *testing.T) {
	locker := new(MockLocker)
	locker.On("WithLock", mock.Anything, "migration:connect-1", MigrationLockTTL).
		Return(fmt.Errorf("%w: migration already running", domain.ErrConflict))
	f := newMigrationFixture(locker)
	f.validator.On("ValidatePairing", mock.Anything, mock.Anything).Return(nil)

	err := f.service.Migrate(context.Background(), "user-1", "connect-1", domain.ModuleCustomer, domain.DateFilter{})

	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Empty(t, f.sync.connects.Events())
}

func TestMigrationService_LockAcquired(t *testing.T) {
	locker := new(MockLocker)
	locker.On("WithLock", mock.Anything, "migration:connect-1", MigrationLockTTL).Return(nil)
	f := newMigrationFixture(locker)
	f.validator.On("ValidatePairing", mock.Anything, mock.Anything).Return(nil)
	f.shopify.On("QueryPage", mock.Anything, mock.Anything, domain.ModuleCustomer, 2, "", domain.DateFilter{}).Return(&domain.Page{}, nil)

	require.NoError(t, f.service.Migrate(context.Background(), "user-1", "connect-1", domain.ModuleCustomer, domain.DateFilter{}))
	locker.AssertExpectations(t)
}

func TestMigrationService_BatchFor(t *testing.T) {
	s := &MigrationService{batches: config.DefaultBatchConfig()}

	size, delay := s.batchFor(domain.ModuleOrder)
	assert.Equal(t, 2, size)
	assert.Equal(t, 8*time.Second, delay)

	size, delay = s.batchFor(domain.ModuleProduct)
	assert.Equal(t, 5, size)
	assert.Equal(t, 500*time.Millisecond, delay)

	size, delay = s.batchFor(domain.ModuleCustomer)
	assert.Equal(t, 5, size)
	assert.Equal(t, 400*time.Millisecond, delay)
}
