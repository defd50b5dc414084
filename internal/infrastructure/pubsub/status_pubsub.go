package pubsub

import (
	"context"
	"fmt"
	"sync"

	"shopify-hubspot-sync/internal/domain"

	"github.com/rs/zerolog"
)

// StatusChannel is one subscription to Connect status snapshots
type StatusChannel struct {
	ID        string
	ConnectID string
	Events    chan *domain.ConnectStatus
	Done      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
}

// StatusPubSub fans Connect status snapshots out to live subscribers
type StatusPubSub struct {
	mu       sync.RWMutex
	channels map[string]*StatusChannel
	logger   zerolog.Logger
	nextID   int64
	idMu     sync.Mutex
}

// NewStatusPubSub creates a new status pub/sub
func NewStatusPubSub(logger zerolog.Logger) *StatusPubSub {
	return &StatusPubSub{
		channels: make(map[string]*StatusChannel),
		logger:   logger,
	}
}

// Subscribe opens a channel receiving snapshots for one Connect.
// The subscription ends when ctx is cancelled.
func (ps *StatusPubSub) Subscribe(ctx context.Context, connectID string) *StatusChannel {
	ps.idMu.Lock()
	ps.nextID++
	id := fmt.Sprintf("status-%d", ps.nextID)
	ps.idMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	channel := &StatusChannel{
		ID:        id,
		ConnectID: connectID,
		Events:    make(chan *domain.ConnectStatus, 10),
		Done:      make(chan struct{}),
		ctx:       subCtx,
		cancel:    cancel,
	}

	ps.mu.Lock()
	ps.channels[id] = channel
	ps.mu.Unlock()

	ps.logger.Debug().
		Str("channelId", id).
		Str("connectId", connectID).
		Msg("Status subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(id)
	}()

	return channel
}

// Unsubscribe removes a subscription channel
func (ps *StatusPubSub) Unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.Events)
	close(channel.Done)
	channel.cancel()
	delete(ps.channels, channelID)

	ps.logger.Debug().Str("channelId", channelID).Msg("Status subscription removed")
}

// Publish delivers a snapshot to every subscriber of its Connect without blocking
func (ps *StatusPubSub) Publish(status *domain.ConnectStatus) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, channel := range ps.channels {
		if channel.ConnectID != status.ConnectID {
			continue
		}
		select {
		case channel.Events <- status:
		case <-channel.ctx.Done():
		default:
			ps.logger.Warn().
				Str("channelId", channel.ID).
				Str("connectId", status.ConnectID).
				Msg("Channel buffer full, dropping status")
		}
	}
}

// Subscribers returns the number of live subscriptions
func (ps *StatusPubSub) Subscribers() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.channels)
}
