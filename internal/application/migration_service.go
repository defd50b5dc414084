package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shopify-hubspot-sync/internal/application/normalizer"
	"shopify-hubspot-sync/internal/config"
	"shopify-hubspot-sync/internal/domain"
	"shopify-hubspot-sync/internal/infrastructure/metrics"
	"shopify-hubspot-sync/internal/infrastructure/worker"
	"shopify-hubspot-sync/internal/ports"

	"github.com/rs/zerolog"
)

// MigrationLockTTL bounds how long a crashed run can keep a Connect locked.
// A live run keeps extending the lock until it returns.
const MigrationLockTTL = 10 * time.Minute

// RecordSyncer is the part of the sync engine a migration drives
type RecordSyncer interface {
	SyncCustomer(ctx context.Context, p *domain.Pairing, customer *domain.CommonCustomer) string
	SyncProduct(ctx context.Context, p *domain.Pairing, product *domain.CommonProduct) string
	SyncOrder(ctx context.Context, p *domain.Pairing, order *domain.CommonOrder) string
}

// MigrationService pages a source dataset through the sync engine in throttled batches
type MigrationService struct {
	connectRepo ports.ConnectRepository
	appRepo     ports.AppRepository
	shopify     ports.ShopifyClient
	syncer      RecordSyncer
	validator   PairingValidator
	locker      ports.Locker
	batches     config.BatchConfig
	pageSize    int
	logger      zerolog.Logger
	sleep       func(ctx context.Context, d time.Duration)
}

// NewMigrationService creates a new migration service. locker may be nil.
func NewMigrationService(
	connectRepo ports.ConnectRepository,
	appRepo ports.AppRepository,
	shopify ports.ShopifyClient,
	syncer RecordSyncer,
	validator PairingValidator,
	locker ports.Locker,
	batches config.BatchConfig,
	logger zerolog.Logger,
) *MigrationService {
	return &MigrationService{
		connectRepo: connectRepo,
		appRepo:     appRepo,
		shopify:     shopify,
		syncer:      syncer,
		validator:   validator,
		locker:      locker,
		batches:     batches,
		pageSize:    domain.PageSize,
		logger:      logger,
		sleep:       sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Migrate copies every record of module (or all modules) from the Connect's source to its target.
// Individual record failures are logged by the sync engine and never end the run.
func (s *MigrationService) Migrate(ctx context.Context, userID, connectID string, module domain.ModuleType, filter domain.DateFilter) error {
	pairing, err := loadPairing(ctx, s.connectRepo, s.appRepo, userID, connectID)
	if err != nil {
		return err
	}
	if err := s.validator.ValidatePairing(ctx, pairing); err != nil {
		return err
	}

	if s.locker == nil {
		return s.run(ctx, pairing, module, filter)
	}
	return s.locker.WithLock(ctx, "migration:"+connectID, MigrationLockTTL, func() error {
		return s.run(ctx, pairing, module, filter)
	})
}

func (s *MigrationService) run(ctx context.Context, p *domain.Pairing, module domain.ModuleType, filter domain.DateFilter) (err error) {
	connectID := p.Connect.ID
	modules := module.Expand()

	counters := make([]domain.Counter, 0, len(modules))
	for _, m := range modules {
		if c, ok := domain.CounterFor(m); ok {
			counters = append(counters, c)
		}
	}
	if err := s.connectRepo.ResetCounters(ctx, connectID, counters); err != nil {
		return fmt.Errorf("failed to reset counters: %w", err)
	}
	if err := s.connectRepo.SetSyncing(ctx, connectID, true); err != nil {
		return fmt.Errorf("failed to mark connect syncing: %w", err)
	}

	// isSyncing must be cleared even when the run panics
	defer func() {
		if clearErr := s.connectRepo.SetSyncing(context.WithoutCancel(ctx), connectID, false); clearErr != nil {
			s.logger.Error().Err(clearErr).Str("connect_id", connectID).Msg("Failed to clear syncing flag")
			if err == nil {
				err = fmt.Errorf("failed to clear syncing flag: %w", clearErr)
			}
		}
	}()

	s.logger.Info().
		Str("connect_id", connectID).
		Str("module", string(module)).
		Str("from", filter.From).
		Str("to", filter.To).
		Msg("Migration started")

	for _, m := range modules {
		n, modErr := s.migrateModule(ctx, p, m, filter)
		if modErr != nil {
			metrics.MigrationsTotal.WithLabelValues(string(m), metrics.StatusFailure).Inc()
			s.logger.Error().Err(modErr).Str("connect_id", connectID).Str("module", string(m)).Msg("Module migration failed")
			return modErr
		}
		metrics.MigrationsTotal.WithLabelValues(string(m), metrics.StatusSuccess).Inc()
		s.logger.Info().Str("connect_id", connectID).Str("module", string(m)).Int("records", n).Msg("Module migration finished")
	}
	return nil
}

// migrateModule runs the page loop for one module and returns how many records were dispatched
func (s *MigrationService) migrateModule(ctx context.Context, p *domain.Pairing, module domain.ModuleType, filter domain.DateFilter) (int, error) {
	creds, err := domain.ShopifyCredentialsOf(p.Source)
	if err != nil {
		return 0, err
	}

	size, delay := s.batchFor(module)
	dispatched := 0
	cursor := ""
	for {
		page, err := s.shopify.QueryPage(ctx, creds, module, s.pageSize, cursor, filter)
		if err != nil {
			return dispatched, fmt.Errorf("failed to fetch %s page: %w", module, err)
		}

		last := !page.HasNextPage || page.EndCursor == ""
		batches := worker.Chunk(s.normalizePage(p, module, page.Nodes), size)
		for i, batch := range batches {
			_, errs := worker.RunBatch(ctx, batch, func(ctx context.Context, task recordTask) string {
				return task(ctx)
			})
			s.reportPanics(p, module, errs)
			dispatched += len(batch)
			if !last || i < len(batches)-1 {
				s.sleep(ctx, delay)
			}
		}

		if last {
			return dispatched, nil
		}
		cursor = page.EndCursor
	}
}

// reportPanics logs and counts every record task that panicked instead of returning
func (s *MigrationService) reportPanics(p *domain.Pairing, module domain.ModuleType, errs []error) {
	for _, err := range errs {
		var pe *worker.PanicError
		if !errors.As(err, &pe) {
			continue
		}
		metrics.RecordsTotal.WithLabelValues(string(module), metrics.StatusFailure).Inc()
		s.logger.Error().
			Err(err).
			Str("connect_id", p.Connect.ID).
			Str("module", string(module)).
			Bytes("stack", pe.Stack).
			Msg("Record task panicked")
	}
}

// recordTask syncs one normalized record and returns its CRM id
type recordTask func(ctx context.Context) string

// normalizePage maps every node of a page before any of them is dispatched.
// Nodes that fail to decode are logged and skipped.
func (s *MigrationService) normalizePage(p *domain.Pairing, module domain.ModuleType, nodes []json.RawMessage) []recordTask {
	tasks := make([]recordTask, 0, len(nodes))
	for _, node := range nodes {
		var task recordTask
		switch module {
		case domain.ModuleCustomer:
			c, err := normalizer.CustomerFromNode(node)
			if err != nil {
				s.logSkipped(p, module, err)
				continue
			}
			task = func(ctx context.Context) string { return s.syncer.SyncCustomer(ctx, p, c) }
		case domain.ModuleProduct:
			pr, err := normalizer.ProductFromNode(node)
			if err != nil {
				s.logSkipped(p, module, err)
				continue
			}
			task = func(ctx context.Context) string { return s.syncer.SyncProduct(ctx, p, pr) }
		case domain.ModuleOrder:
			o, err := normalizer.OrderFromNode(node)
			if err != nil {
				s.logSkipped(p, module, err)
				continue
			}
			task = func(ctx context.Context) string { return s.syncer.SyncOrder(ctx, p, o) }
		default:
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks
}

func (s *MigrationService) logSkipped(p *domain.Pairing, module domain.ModuleType, err error) {
	s.logger.Warn().Err(err).Str("connect_id", p.Connect.ID).Str("module", string(module)).Msg("Skipping undecodable source record")
}

func (s *MigrationService) batchFor(module domain.ModuleType) (int, time.Duration) {
	switch module {
	case domain.ModuleOrder:
		return s.batches.OrderSize, s.batches.OrderDelay
	case domain.ModuleProduct:
		return s.batches.CommonSize, s.batches.ProductDelay
	default:
		return s.batches.CommonSize, s.batches.CustomerDelay
	}
}
