package sse

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	redisclient "github.com/openclaw/checkin-kiosk-go/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second
	clientBufferSize  = 100
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// PubSub is the slice of the Redis client the broker needs.
type PubSub interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

type Client struct {
	EventID string
	Events  chan Event
	Done    chan struct{}
}

// Broker fans check-ins published on Redis out to every screen watching
// the same event, across all server instances.
type Broker struct {
	redis   PubSub
	clients map[string]map[*Client]bool // eventID -> set of clients
	subs    map[string]context.Context  // eventID -> live Redis subscription
	cancels map[string]context.CancelFunc
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewBroker(redisClient PubSub) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:   redisClient,
		clients: make(map[string]map[*Client]bool),
		subs:    make(map[string]context.Context),
		cancels: make(map[string]context.CancelFunc),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (b *Broker) Subscribe(eventID string) *Client {
	client := &Client{
		EventID: eventID,
		Events:  make(chan Event, clientBufferSize),
		Done:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.clients[eventID] == nil {
		b.clients[eventID] = make(map[*Client]bool)
		subCtx, cancel := context.WithCancel(b.ctx)
		b.subs[eventID] = subCtx
		b.cancels[eventID] = cancel
		go b.subscribeToRedis(subCtx, eventID)
	}
	b.clients[eventID][client] = true
	clientCount := len(b.clients[eventID])
	b.mu.Unlock()

	log.Info().
		Str("eventId", eventID).
		Int("clientCount", clientCount).
		Msg("sse client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clients, ok := b.clients[client.EventID]; ok {
		if !clients[client] {
			return
		}
		delete(clients, client)
		close(client.Done)

		if len(clients) == 0 {
			delete(b.clients, client.EventID)
			b.stopSubscription(client.EventID)
		}

		log.Info().
			Str("eventId", client.EventID).
			Int("clientCount", len(clients)).
			Msg("sse client unsubscribed")
	}
}

func (b *Broker) Publish(ctx context.Context, eventID string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return b.redis.Publish(ctx, redisclient.CheckinChannel(eventID), data).Err()
}

// stopSubscription ends the Redis subscription of an event with no clients
// left. Callers hold b.mu.
func (b *Broker) stopSubscription(eventID string) {
	if cancel, ok := b.cancels[eventID]; ok {
		cancel()
	}
	delete(b.cancels, eventID)
	delete(b.subs, eventID)
}

func (b *Broker) subscribeToRedis(ctx context.Context, eventID string) {
	channel := redisclient.CheckinChannel(eventID)
	pubsub := b.redis.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Debug().
		Str("eventId", eventID).
		Str("channel", channel).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal event")
				continue
			}

			b.broadcast(ctx, eventID, event)
		}
	}
}

// broadcast delivers only for the event's current subscription, so a
// subscription being torn down cannot duplicate events for new clients.
func (b *Broker) broadcast(ctx context.Context, eventID string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if ctx.Err() != nil || b.subs[eventID] != ctx {
		return
	}

	for client := range b.clients[eventID] {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("eventId", eventID).
				Msg("client event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, clients := range b.clients {
		for client := range clients {
			close(client.Done)
		}
	}
	b.clients = make(map[string]map[*Client]bool)
	for eventID := range b.cancels {
		b.stopSubscription(eventID)
	}
}

func (b *Broker) ClientCount(eventID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[eventID])
}

func (b *Broker) TotalClients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, clients := range b.clients {
		total += len(clients)
	}
	return total
}

// SubscriptionCount is the number of events with a live Redis subscription.
func (b *Broker) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
