package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"shopify-hubspot-sync/internal/domain"
	"shopify-hubspot-sync/internal/ports"

	"github.com/rs/zerolog"
)

const (
	customFieldType      = "string"
	customFieldFieldType = "text"
)

// MetafieldService discovers custom fields on both platforms and copies mapped values between synced records
type MetafieldService struct {
	appRepo       ports.AppRepository
	connectRepo   ports.ConnectRepository
	fieldRepo     ports.FieldRepository
	moduleAppRepo ports.ModuleAppRepository
	shopify       ports.ShopifyClient
	hubspot       ports.HubSpotClient
	credentials   ports.CredentialProvider
	mapping       *FieldMappingService
	logger        zerolog.Logger
}

var _ RecordHook = (*MetafieldService)(nil)

// NewMetafieldService creates a new metafield service
func NewMetafieldService(
	appRepo ports.AppRepository,
	connectRepo ports.ConnectRepository,
	fieldRepo ports.FieldRepository,
	moduleAppRepo ports.ModuleAppRepository,
	shopify ports.ShopifyClient,
	hubspot ports.HubSpotClient,
	credentials ports.CredentialProvider,
	mapping *FieldMappingService,
	logger zerolog.Logger,
) *MetafieldService {
	return &MetafieldService{
		appRepo:       appRepo,
		connectRepo:   connectRepo,
		fieldRepo:     fieldRepo,
		moduleAppRepo: moduleAppRepo,
		shopify:       shopify,
		hubspot:       hubspot,
		credentials:   credentials,
		mapping:       mapping,
		logger:        logger,
	}
}

// AfterSync runs the metafield transfer for a freshly synced record
func (s *MetafieldService) AfterSync(ctx context.Context, p *domain.Pairing, module domain.ModuleType, sourceID, targetID string) error {
	return s.TransferMetafields(ctx, p, module, sourceID, targetID)
}

// TransferMetafields copies the values of mapped source metafields onto the target record
func (s *MetafieldService) TransferMetafields(ctx context.Context, p *domain.Pairing, module domain.ModuleType, sourceID, targetID string) error {
	if !p.Connect.SyncMetafield {
		return nil
	}

	pairs, err := s.mappedPairs(ctx, p, module)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return nil
	}

	creds, err := domain.ShopifyCredentialsOf(p.Source)
	if err != nil {
		return err
	}
	metafields, err := s.shopify.GetMetafields(ctx, creds, module, sourceID)
	if err != nil {
		return fmt.Errorf("failed to fetch metafields: %w", err)
	}
	values := make(map[string]string, len(metafields))
	for _, m := range metafields {
		values[m.Key] = m.Value
	}

	props := make(map[string]string)
	for source, target := range pairs {
		if v := resolveMetafieldValue(values[source]); v != "" {
			props[target] = v
		}
	}
	if len(props) == 0 {
		return nil
	}

	token, err := s.credentials.GetValidToken(ctx, p.Target)
	if err != nil {
		return err
	}
	if err := s.hubspot.Update(ctx, token, domain.CRMObjectFor(module), targetID, props); err != nil {
		return fmt.Errorf("failed to write metafields: %w", err)
	}

	s.logger.Debug().
		Str("connect_id", p.Connect.ID).
		Str("module", string(module)).
		Str("target_id", targetID).
		Int("fields", len(props)).
		Msg("Metafields transferred")
	return nil
}

// mappedPairs returns source field name to target field name for every mapped pair of the Connect
func (s *MetafieldService) mappedPairs(ctx context.Context, p *domain.Pairing, module domain.ModuleType) (map[string]string, error) {
	sourceFields, err := s.moduleFields(ctx, p.Source.ID, p.Connect.ID, module)
	if err != nil {
		return nil, err
	}
	targetFields, err := s.moduleFields(ctx, p.Target.ID, p.Connect.ID, module)
	if err != nil {
		return nil, err
	}

	targetByID := make(map[string]*domain.Field, len(targetFields))
	for _, f := range targetFields {
		targetByID[f.ID] = f
	}

	pairs := make(map[string]string)
	for _, f := range sourceFields {
		if f.MappingField == "" {
			continue
		}
		if partner, ok := targetByID[f.MappingField]; ok {
			pairs[f.Name] = partner.Name
		}
	}
	return pairs, nil
}

func (s *MetafieldService) moduleFields(ctx context.Context, appID, connectID string, module domain.ModuleType) ([]*domain.Field, error) {
	moduleApp, err := s.moduleAppRepo.GetModuleApp(ctx, appID, module)
	if err != nil {
		return nil, fmt.Errorf("failed to load module app: %w", err)
	}
	if moduleApp == nil || len(moduleApp.FieldIDs) == 0 {
		return nil, nil
	}
	fields, err := s.fieldRepo.ListFields(ctx, moduleApp.FieldIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load module fields: %w", err)
	}
	scoped := fields[:0]
	for _, f := range fields {
		if f.ConnectID == connectID {
			scoped = append(scoped, f)
		}
	}
	return scoped, nil
}

// resolveMetafieldValue unwraps values stored as JSON objects with a non-null "value" member
func resolveMetafieldValue(raw string) string {
	if raw == "" {
		return ""
	}
	var wrapped struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err != nil || len(wrapped.Value) == 0 || string(wrapped.Value) == "null" {
		return raw
	}
	var s string
	if err := json.Unmarshal(wrapped.Value, &s); err == nil {
		return s
	}
	return string(wrapped.Value)
}

// Field discovery

// SyncFieldsInModule reconciles the stored fields of one App, Connect and module with the live platform catalog.
// Fields gone from the platform are deleted after their partners are released.
func (s *MetafieldService) SyncFieldsInModule(ctx context.Context, userID, appID, connectID string, module domain.ModuleType) ([]*domain.Field, error) {
	if !module.IsRecord() {
		return nil, fmt.Errorf("%w: module %q has no custom fields", domain.ErrBadRequest, module)
	}
	app, connect, err := s.scope(ctx, userID, appID, connectID)
	if err != nil {
		return nil, err
	}

	live, err := s.catalog(ctx, app, module)
	if err != nil {
		return nil, err
	}
	local, err := s.fieldRepo.ListScoped(ctx, app.ID, connect.ID, module)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored fields: %w", err)
	}

	liveByName := make(map[string]domain.CatalogField, len(live))
	for _, f := range live {
		liveByName[f.Name] = f
	}
	localByName := make(map[string]*domain.Field, len(local))

	var kept []*domain.Field
	var removed []string
	for _, f := range local {
		if _, ok := liveByName[f.Name]; ok {
			localByName[f.Name] = f
			kept = append(kept, f)
			continue
		}
		if f.MappingField != "" {
			if err := s.mapping.release(ctx, f); err != nil {
				return nil, err
			}
		}
		removed = append(removed, f.ID)
	}

	var added []*domain.Field
	for _, c := range live {
		if _, ok := localByName[c.Name]; ok {
			continue
		}
		localByName[c.Name] = nil
		added = append(added, &domain.Field{
			AppID:       app.ID,
			ConnectID:   connect.ID,
			UserID:      connect.UserID,
			ModuleType:  module,
			Name:        c.Name,
			Label:       c.Label,
			Description: c.Description,
			Type:        c.Type,
		})
	}

	if err := s.fieldRepo.DeleteFields(ctx, removed); err != nil {
		return nil, err
	}
	if err := s.fieldRepo.InsertFields(ctx, added); err != nil {
		return nil, err
	}
	if err := s.saveModuleApp(ctx, app, module, removed, added); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("app_id", app.ID).
		Str("connect_id", connect.ID).
		Str("module", string(module)).
		Int("kept", len(kept)).
		Int("added", len(added)).
		Int("removed", len(removed)).
		Msg("Custom fields synchronized")

	return append(kept, added...), nil
}

func (s *MetafieldService) saveModuleApp(ctx context.Context, app *domain.App, module domain.ModuleType, removed []string, added []*domain.Field) error {
	moduleApp, err := s.moduleAppRepo.GetModuleApp(ctx, app.ID, module)
	if err != nil {
		return fmt.Errorf("failed to load module app: %w", err)
	}
	if moduleApp == nil {
		moduleApp = &domain.ModuleApp{
			AppID:       app.ID,
			DisplayName: app.Name,
			Type:        module,
			Platform:    app.Platform,
		}
	}

	gone := make(map[string]struct{}, len(removed))
	for _, id := range removed {
		gone[id] = struct{}{}
	}
	ids := make([]string, 0, len(moduleApp.FieldIDs)+len(added))
	for _, id := range moduleApp.FieldIDs {
		if _, ok := gone[id]; !ok {
			ids = append(ids, id)
		}
	}
	for _, f := range added {
		ids = append(ids, f.ID)
	}
	moduleApp.FieldIDs = ids

	if err := s.moduleAppRepo.SaveModuleApp(ctx, moduleApp); err != nil {
		return fmt.Errorf("failed to save module app: %w", err)
	}
	return nil
}

// catalog reads the live custom field catalog of an App
func (s *MetafieldService) catalog(ctx context.Context, app *domain.App, module domain.ModuleType) ([]domain.CatalogField, error) {
	switch app.Platform {
	case domain.PlatformShopify:
		creds, err := domain.ShopifyCredentialsOf(app)
		if err != nil {
			return nil, err
		}
		fields, err := s.shopify.GetMetafieldDefinitions(ctx, creds, module)
		if err != nil {
			return nil, fmt.Errorf("failed to read shopify metafield definitions: %w", err)
		}
		return fields, nil

	case domain.PlatformHubSpot:
		creds, err := domain.HubspotCredentialsOf(app)
		if err != nil {
			return nil, err
		}
		token, err := s.credentials.GetValidToken(ctx, app)
		if err != nil {
			return nil, err
		}
		props, err := s.hubspot.ListProperties(ctx, token, domain.CRMObjectFor(module))
		if err != nil {
			return nil, fmt.Errorf("failed to read hubspot properties: %w", err)
		}
		suffix := "_" + creds.KeyPrefix() + "custom"
		var fields []domain.CatalogField
		for _, p := range props {
			if p.HubspotDefined || !strings.HasSuffix(p.Name, suffix) {
				continue
			}
			fields = append(fields, domain.CatalogField{
				Name:        p.Name,
				Label:       p.Label,
				Description: p.Description,
				Type:        p.Type,
			})
		}
		return fields, nil
	}
	return nil, fmt.Errorf("%w: platform %s has no custom field catalog", domain.ErrBadRequest, app.Platform)
}

// scope loads an App and a Connect of the user and checks the App is one side of the Connect
func (s *MetafieldService) scope(ctx context.Context, userID, appID, connectID string) (*domain.App, *domain.Connect, error) {
	app, err := loadApp(ctx, s.appRepo, userID, appID)
	if err != nil {
		return nil, nil, err
	}
	connect, err := loadConnect(ctx, s.connectRepo, userID, connectID)
	if err != nil {
		return nil, nil, err
	}
	if !connect.Involves(app.ID) {
		return nil, nil, fmt.Errorf("%w: app %s is not part of connect %s", domain.ErrBadRequest, app.ID, connect.ID)
	}
	return app, connect, nil
}

// GetFields lists the stored fields of one App, Connect and module
func (s *MetafieldService) GetFields(ctx context.Context, userID, appID, connectID string, module domain.ModuleType) ([]*domain.Field, error) {
	app, connect, err := s.scope(ctx, userID, appID, connectID)
	if err != nil {
		return nil, err
	}
	fields, err := s.fieldRepo.ListScoped(ctx, app.ID, connect.ID, module)
	if err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	return fields, nil
}

// ToggleMetafieldSync flips the Connect's syncMetafield flag and returns the new value
func (s *MetafieldService) ToggleMetafieldSync(ctx context.Context, userID, connectID string) (bool, error) {
	connect, err := loadConnect(ctx, s.connectRepo, userID, connectID)
	if err != nil {
		return false, err
	}
	enabled := !connect.SyncMetafield
	if err := s.connectRepo.SetSyncMetafield(ctx, connect.ID, enabled); err != nil {
		return false, fmt.Errorf("failed to toggle metafield sync: %w", err)
	}
	return enabled, nil
}

// CreateCustomField creates a namespaced text property on a HubSpot App and re-runs discovery for the module
func (s *MetafieldService) CreateCustomField(ctx context.Context, userID, appID, connectID string, module domain.ModuleType, name, description string) ([]*domain.Field, error) {
	if !module.IsRecord() {
		return nil, fmt.Errorf("%w: module %q has no custom fields", domain.ErrBadRequest, module)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: field name is required", domain.ErrBadRequest)
	}
	app, _, err := s.scope(ctx, userID, appID, connectID)
	if err != nil {
		return nil, err
	}
	creds, err := domain.HubspotCredentialsOf(app)
	if err != nil {
		return nil, err
	}
	token, err := s.credentials.GetValidToken(ctx, app)
	if err != nil {
		return nil, err
	}

	prefix := creds.KeyPrefix()
	object := domain.CRMObjectFor(module)
	prop := ports.CRMProperty{
		Name:        customPropertyName(name, prefix),
		Label:       prefix + "-" + name,
		Description: description,
		Type:        customFieldType,
		FieldType:   customFieldFieldType,
		GroupName:   strings.TrimSuffix(object, "s") + "information",
	}
	if err := s.hubspot.CreateProperty(ctx, token, object, prop); err != nil {
		return nil, fmt.Errorf("failed to create hubspot property: %w", err)
	}

	s.logger.Info().Str("app_id", app.ID).Str("property", prop.Name).Msg("Custom field created")
	return s.SyncFieldsInModule(ctx, userID, appID, connectID, module)
}

func customPropertyName(name, prefix string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_") + "_" + prefix + "custom"
}
