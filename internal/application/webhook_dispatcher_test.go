package application

import (
	"context"
	"errors"
	"testing"

	"shopify-hubspot-sync/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	topics []string
	events []*domain.WebhookEvent
	err    error
}

func (h *stubHandler) CanHandle(topic string) bool {
	for _, t := range h.topics {
		if t == topic {
			return true
		}
	}
	return false
}

func (h *stubHandler) Handle(_ context.Context, event *domain.WebhookEvent) error {
	h.events = append(h.events, event)
	return h.err
}

func newDispatcherFixture(active bool) (*WebhookDispatcher, *inlineQueue, *stubHandler, *stubHandler) {
	p := testPairing()
	p.Connect.IsActive = active
	tasks := &inlineQueue{}
	d := NewWebhookDispatcher(newMemConnects(p.Connect), newMemApps(p.Source, p.Target), tasks, zerolog.Nop())
	orders := &stubHandler{topics: []string{"orders/create", "orders/updated"}}
	customers := &stubHandler{topics: []string{"customers/update"}}
	d.RegisterHandler(orders)
	d.RegisterHandler(customers)
	return d, tasks, orders, customers
}

var validTarget = WebhookTarget{ConnectID: "connect-1", FromAppID: "shop-app", ToAppID: "crm-app"}

func TestWebhookDispatcher_RoutesToMatchingHandler(t *testing.T) {
	d, tasks, orders, customers := newDispatcherFixture(true)

	err := d.Receive(context.Background(), validTarget, "orders/updated", "acme.myshopify.com", []byte(`{"id":1}`))
	require.NoError(t, err)

	require.Len(t, orders.events, 1)
	assert.Empty(t, customers.events)
	event := orders.events[0]
	assert.Equal(t, "orders/updated", event.Topic)
	assert.Equal(t, "acme.myshopify.com", event.Shop)
	assert.Equal(t, "connect-1", event.Pairing.Connect.ID)
	assert.Equal(t, "crm-app", event.Pairing.Target.ID)
	assert.Equal(t, []string{"webhook:orders/updated"}, tasks.Names())
}

func TestWebhookDispatcher_DropsUnroutableDeliveries(t *testing.T) {
	tests := []struct {
		name   string
		active bool
		target WebhookTarget
	}{
		{name: "unknown connect", active: true, target: WebhookTarget{ConnectID: "missing", FromAppID: "shop-app", ToAppID: "crm-app"}},
		{name: "mismatched apps", active: true, target: WebhookTarget{ConnectID: "connect-1", FromAppID: "crm-app", ToAppID: "shop-app"}},
		{name: "inactive connect", active: false, target: validTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, tasks, orders, _ := newDispatcherFixture(tt.active)

			err := d.Receive(context.Background(), tt.target, "orders/create", "acme.myshopify.com", []byte(`{}`))

			require.NoError(t, err)
			assert.Empty(t, orders.events)
			assert.Empty(t, tasks.Names())
		})
	}
}

func TestWebhookDispatcher_QueueFull(t *testing.T) {
	d, tasks, orders, _ := newDispatcherFixture(true)
	tasks.reject = true

	err := d.Receive(context.Background(), validTarget, "orders/create", "acme.myshopify.com", []byte(`{}`))

	assert.True(t, errors.Is(err, ErrQueueFull))
	assert.Empty(t, orders.events)
}

func TestWebhookDispatcher_Dispatch(t *testing.T) {
	d, _, orders, customers := newDispatcherFixture(true)
	orders.err = errors.New("bad payload")
	customers.topics = append(customers.topics, "orders/create")

	err := d.Dispatch(context.Background(), &domain.WebhookEvent{Topic: "orders/create"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad payload")
	assert.Len(t, orders.events, 1)
	assert.Len(t, customers.events, 1)

	assert.NoError(t, d.Dispatch(context.Background(), &domain.WebhookEvent{Topic: "shop/update"}))
}
