package application

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"shopify-hubspot-sync/internal/domain"
	"shopify-hubspot-sync/internal/ports"
)

// memConnects is an in-memory ports.ConnectRepository recording every mutation
type memConnects struct {
	mu       sync.Mutex
	connects map[string]*domain.Connect
	deleted  map[string]bool
	events   []string
	seq      int
}

var _ ports.ConnectRepository = (*memConnects)(nil)

func newMemConnects(connects ...*domain.Connect) *memConnects {
	r := &memConnects{connects: map[string]*domain.Connect{}, deleted: map[string]bool{}}
	for _, c := range connects {
		cp := *c
		r.connects[c.ID] = &cp
	}
	return r
}

func (r *memConnects) Snapshot(id string) domain.Connect {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.connects[id]
}

func (r *memConnects) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *memConnects) with(id string, fn func(c *domain.Connect)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.connects[id]
	if !ok || r.deleted[id] {
		return fmt.Errorf("%w: connect %s", domain.ErrNotFound, id)
	}
	fn(c)
	return nil
}

func (r *memConnects) Create(_ context.Context, c *domain.Connect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	c.ID = "connect-" + strconv.Itoa(r.seq)
	cp := *c
	r.connects[c.ID] = &cp
	return nil
}

func (r *memConnects) Get(_ context.Context, id string) (*domain.Connect, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.connects[id]
	if !ok || r.deleted[id] {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *memConnects) ListByUser(_ context.Context, userID string) ([]*domain.Connect, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Connect
	for id, c := range r.connects {
		if c.UserID == userID && !r.deleted[id] {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memConnects) FindPair(_ context.Context, userID, appA, appB string) (*domain.Connect, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.connects {
		if r.deleted[id] || c.UserID != userID {
			continue
		}
		if (c.FromAppID == appA && c.ToAppID == appB) || (c.FromAppID == appB && c.ToAppID == appA) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memConnects) CountByApp(_ context.Context, appID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, c := range r.connects {
		if !r.deleted[id] && c.Involves(appID) {
			n++
		}
	}
	return n, nil
}

func (r *memConnects) SetActive(_ context.Context, id string, active bool) error {
	return r.with(id, func(c *domain.Connect) {
		c.IsActive = active
		r.events = append(r.events, fmt.Sprintf("active:%t", active))
	})
}

func (r *memConnects) SetSyncing(_ context.Context, id string, syncing bool) error {
	return r.with(id, func(c *domain.Connect) {
		c.IsSyncing = syncing
		r.events = append(r.events, fmt.Sprintf("syncing:%t", syncing))
	})
}

func (r *memConnects) SetSyncMetafield(_ context.Context, id string, enabled bool) error {
	return r.with(id, func(c *domain.Connect) { c.SyncMetafield = enabled })
}

func (r *memConnects) UpdateName(_ context.Context, id string, name string) error {
	return r.with(id, func(c *domain.Connect) { c.Name = name })
}

func (r *memConnects) ResetCounters(_ context.Context, id string, counters []domain.Counter) error {
	return r.with(id, func(c *domain.Connect) {
		for _, counter := range counters {
			switch counter {
			case domain.CounterContacts:
				c.MigratedContacts = 0
			case domain.CounterProducts:
				c.MigratedProducts = 0
			case domain.CounterOrders:
				c.MigratedOrders = 0
			}
			r.events = append(r.events, "reset:"+string(counter))
		}
	})
}

func (r *memConnects) IncrementCounter(_ context.Context, id string, counter domain.Counter) error {
	return r.with(id, func(c *domain.Connect) {
		switch counter {
		case domain.CounterContacts:
			c.MigratedContacts++
		case domain.CounterProducts:
			c.MigratedProducts++
		case domain.CounterOrders:
			c.MigratedOrders++
		}
		r.events = append(r.events, "inc:"+string(counter))
	})
}

func (r *memConnects) SoftDelete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted[id] = true
	return nil
}

// memApps is an in-memory ports.AppRepository
type memApps struct {
	mu   sync.Mutex
	apps map[string]*domain.App
}

var _ ports.AppRepository = (*memApps)(nil)

func newMemApps(apps ...*domain.App) *memApps {
	r := &memApps{apps: map[string]*domain.App{}}
	for _, a := range apps {
		r.apps[a.ID] = a
	}
	return r
}

func (r *memApps) App(id string) *domain.App {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.apps[id]
}

func (r *memApps) GetApp(_ context.Context, id string) (*domain.App, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.apps[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	cp.WebhookIDs = append([]string(nil), a.WebhookIDs...)
	return &cp, nil
}

func (r *memApps) ListAppsByUser(_ context.Context, userID string) ([]*domain.App, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.App
	for _, a := range r.apps {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memApps) SaveApp(_ context.Context, app *domain.App) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps[app.ID] = app
	return nil
}

func (r *memApps) update(id string, fn func(a *domain.App)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.apps[id]
	if !ok {
		return fmt.Errorf("%w: app %s", domain.ErrNotFound, id)
	}
	fn(a)
	return nil
}

func (r *memApps) UpdateCredentials(_ context.Context, id string, creds domain.PlatformCredential) error {
	return r.update(id, func(a *domain.App) { a.Credentials = creds })
}

func (r *memApps) SetActive(_ context.Context, id string, active bool) error {
	return r.update(id, func(a *domain.App) { a.IsActive = active })
}

func (r *memApps) AddWebhookIDs(_ context.Context, id string, ids []string) error {
	return r.update(id, func(a *domain.App) { a.WebhookIDs = append(a.WebhookIDs, ids...) })
}

func (r *memApps) ClearWebhookIDs(_ context.Context, id string) error {
	return r.update(id, func(a *domain.App) { a.WebhookIDs = nil })
}

// memFields is an in-memory ports.FieldRepository and ports.ModuleAppRepository
type memFields struct {
	mu         sync.Mutex
	fields     map[string]*domain.Field
	moduleApps map[string]*domain.ModuleApp
	seq        int
}

var (
	_ ports.FieldRepository     = (*memFields)(nil)
	_ ports.ModuleAppRepository = (*memFields)(nil)
)

func newMemFields(fields ...*domain.Field) *memFields {
	r := &memFields{fields: map[string]*domain.Field{}, moduleApps: map[string]*domain.ModuleApp{}}
	for _, f := range fields {
		cp := *f
		r.fields[f.ID] = &cp
	}
	return r
}

func (r *memFields) Field(id string) *domain.Field {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.fields[id]
	if !ok {
		return nil
	}
	cp := *f
	return &cp
}

func (r *memFields) GetField(_ context.Context, id string) (*domain.Field, error) {
	return r.Field(id), nil
}

func (r *memFields) ListFields(_ context.Context, ids []string) ([]*domain.Field, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Field
	for _, id := range ids {
		if f, ok := r.fields[id]; ok {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memFields) ListScoped(_ context.Context, appID, connectID string, module domain.ModuleType) ([]*domain.Field, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Field
	for _, f := range r.fields {
		if f.AppID == appID && f.ConnectID == connectID && f.ModuleType == module {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memFields) InsertFields(_ context.Context, fields []*domain.Field) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range fields {
		r.seq++
		f.ID = "new-" + strconv.Itoa(r.seq)
		cp := *f
		r.fields[f.ID] = &cp
	}
	return nil
}

func (r *memFields) DeleteFields(_ context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.fields, id)
	}
	return nil
}

func (r *memFields) UpdateMapping(_ context.Context, id string, isUsed bool, mappingField string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.fields[id]
	if !ok {
		return fmt.Errorf("%w: field %s", domain.ErrNotFound, id)
	}
	f.IsUsed = isUsed
	f.MappingField = mappingField
	return nil
}

func (r *memFields) GetModuleApp(_ context.Context, appID string, module domain.ModuleType) (*domain.ModuleApp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.moduleApps[appID+"/"+string(module)]
	if !ok {
		return nil, nil
	}
	cp := *m
	cp.FieldIDs = append([]string(nil), m.FieldIDs...)
	return &cp, nil
}

func (r *memFields) SaveModuleApp(_ context.Context, m *domain.ModuleApp) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.moduleApps[m.AppID+"/"+string(m.Type)] = &cp
	return nil
}

// fakeCRM is an in-memory ports.HubSpotClient keeping records, associations and call counts
type fakeCRM struct {
	mu           sync.Mutex
	records      map[string]map[string]map[string]string
	associations map[string][]string
	calls        map[string]int
	archived     map[string][]string
	seq          int
	failCreate   map[string]error
	panicFind    map[string]interface{}
}

var _ ports.HubSpotClient = (*fakeCRM)(nil)

func newFakeCRM() *fakeCRM {
	return &fakeCRM{
		records:      map[string]map[string]map[string]string{},
		associations: map[string][]string{},
		calls:        map[string]int{},
		archived:     map[string][]string{},
		failCreate:   map[string]error{},
		panicFind:    map[string]interface{}{},
	}
}

func assocKey(fromObject, fromID, toObject string) string {
	return fromObject + "/" + fromID + "/" + toObject
}

func (c *fakeCRM) Calls(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func (c *fakeCRM) Records(object string) map[string]map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]map[string]string{}
	for id, props := range c.records[object] {
		cp := map[string]string{}
		for k, v := range props {
			cp[k] = v
		}
		out[id] = cp
	}
	return out
}

func (c *fakeCRM) Associated(fromObject, fromID, toObject string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.associations[assocKey(fromObject, fromID, toObject)]...)
}

func (c *fakeCRM) FindByKey(_ context.Context, _, object, key, value string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["FindByKey:"+object]++
	if v, ok := c.panicFind[object]; ok {
		panic(v)
	}
	for id, props := range c.records[object] {
		if props[key] == value {
			return id, nil
		}
	}
	return "", nil
}

func (c *fakeCRM) Create(_ context.Context, _, object string, props map[string]string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["Create:"+object]++
	if err := c.failCreate[object]; err != nil {
		return "", err
	}
	c.seq++
	id := strconv.Itoa(1000 + c.seq)
	if c.records[object] == nil {
		c.records[object] = map[string]map[string]string{}
	}
	cp := map[string]string{}
	for k, v := range props {
		cp[k] = v
	}
	c.records[object][id] = cp
	return id, nil
}

func (c *fakeCRM) Update(_ context.Context, _, object, id string, props map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["Update:"+object]++
	rec, ok := c.records[object][id]
	if !ok {
		return fmt.Errorf("%w: no %s %s", domain.ErrUpstreamRejected, object, id)
	}
	for k, v := range props {
		rec[k] = v
	}
	return nil
}

func (c *fakeCRM) ListAssociations(_ context.Context, _, fromObject, fromID, toObject string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["ListAssociations:"+toObject]++
	return append([]string(nil), c.associations[assocKey(fromObject, fromID, toObject)]...), nil
}

func (c *fakeCRM) ArchiveAssociations(_ context.Context, _, fromObject, fromID, toObject string, toIDs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["ArchiveAssociations:"+toObject]++
	key := assocKey(fromObject, fromID, toObject)
	drop := map[string]bool{}
	for _, id := range toIDs {
		drop[id] = true
	}
	var kept []string
	for _, id := range c.associations[key] {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	c.associations[key] = kept
	c.archived[key] = append(c.archived[key], toIDs...)
	return nil
}

func (c *fakeCRM) CreateAssociation(_ context.Context, _, fromObject, fromID, toObject, toID, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["CreateAssociation:"+toObject]++
	key := assocKey(fromObject, fromID, toObject)
	c.associations[key] = append(c.associations[key], toID)
	return nil
}

func (c *fakeCRM) AssociateLineItem(_ context.Context, _, lineItemID, dealID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["AssociateLineItem"]++
	key := assocKey(domain.ObjectDeals, dealID, domain.ObjectLineItems)
	c.associations[key] = append(c.associations[key], lineItemID)
	return nil
}

func (c *fakeCRM) CreateNote(_ context.Context, _, contactID, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["CreateNote"]++
	key := assocKey(domain.ObjectContacts, contactID, domain.ObjectNotes)
	c.associations[key] = append(c.associations[key], body)
	return nil
}

func (c *fakeCRM) HasNote(_ context.Context, _, contactID, body string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, note := range c.associations[assocKey(domain.ObjectContacts, contactID, domain.ObjectNotes)] {
		if note == body {
			return true, nil
		}
	}
	return false, nil
}

func (c *fakeCRM) ListProperties(_ context.Context, _, _ string) ([]ports.CRMProperty, error) {
	return nil, nil
}

func (c *fakeCRM) CreateProperty(_ context.Context, _, _ string, _ ports.CRMProperty) error {
	return nil
}

func (c *fakeCRM) ValidateToken(_ context.Context, _ string) error {
	return nil
}
