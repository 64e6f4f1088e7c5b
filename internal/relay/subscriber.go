package relay

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"copytrade-monitor/internal/domain"
	"copytrade-monitor/internal/events"
)

const keepAliveInterval = 30 * time.Second

// subscribeClient is the slice of redis.Client the subscriber needs.
type subscribeClient interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
	Ping(ctx context.Context) *redis.StatusCmd
}

// Subscriber consumes the relay topics and re-emits inbound messages as
// local bus events. It owns its own client, independent of the
// publisher's.
type Subscriber struct {
	client        subscribeClient
	bus           *events.Bus
	logger        *log.Logger
	probeInterval time.Duration
}

// SubscriberOption configures a Subscriber.
type SubscriberOption func(*Subscriber)

// WithSubscriberLogger sets the subscriber's logger.
func WithSubscriberLogger(logger *log.Logger) SubscriberOption {
	return func(s *Subscriber) { s.logger = logger }
}

// WithProbeInterval overrides the keep-alive probe interval.
func WithProbeInterval(d time.Duration) SubscriberOption {
	return func(s *Subscriber) { s.probeInterval = d }
}

// NewSubscriber creates a relay subscriber that re-emits on bus.
func NewSubscriber(client subscribeClient, bus *events.Bus, opts ...SubscriberOption) *Subscriber {
	s := &Subscriber{
		client:        client,
		bus:           bus,
		logger:        log.Default(),
		probeInterval: keepAliveInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run opens one multiplexed subscription over all relay topics and
// dispatches inbound messages until ctx is cancelled. Malformed
// payloads are logged and dropped; they never terminate the loop.
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx,
		TopicSettings,
		TopicTrackedWallets,
		TopicPriceUpdates,
		TopicSolPriceUpdates,
	)
	defer pubsub.Close()

	// Forces the subscribe round-trip so a dead server surfaces here
	// instead of as a silent empty stream.
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	s.logger.Printf("[relay] subscribed to %s, %s, %s, %s",
		TopicSettings, TopicTrackedWallets, TopicPriceUpdates, TopicSolPriceUpdates)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.dispatch(msg.Channel, []byte(msg.Payload))
		}
	}
}

// dispatch parses one inbound payload per its topic and re-emits it on
// the bus.
func (s *Subscriber) dispatch(topic string, payload []byte) {
	switch topic {
	case TopicSettings:
		var settings domain.CopyTradeSettings
		if err := json.Unmarshal(payload, &settings); err != nil {
			s.logger.Printf("[relay] drop malformed settings payload: %v", err)
			return
		}
		s.bus.Publish(events.NewSettingsUpdated(settings))

	case TopicTrackedWallets:
		var update trackedWalletPayload
		if err := json.Unmarshal(payload, &update); err != nil {
			s.logger.Printf("[relay] drop malformed tracked_wallets payload: %v", err)
			return
		}
		changeType, ok := changeForAction(update.Action)
		if !ok {
			s.logger.Printf("[relay] drop tracked_wallets payload with unknown action %q", update.Action)
			return
		}
		// Newly added addresses come from the outside and must be real
		// public keys; lifecycle actions reference addresses already
		// accepted and pass through as-is.
		if changeType == domain.WalletAdded {
			if err := domain.ValidateSolanaAddress(update.WalletAddress); err != nil {
				s.logger.Printf("[relay] drop tracked_wallets add with invalid address %q: %v", update.WalletAddress, err)
				return
			}
		}
		change := domain.NewWalletStateChange(update.WalletAddress, changeType).
			WithDetails(json.RawMessage(payload))
		s.bus.Publish(events.NewWalletStateChanged(change))

	case TopicPriceUpdates:
		var update domain.PriceUpdate
		if err := json.Unmarshal(payload, &update); err != nil {
			s.logger.Printf("[relay] drop malformed price_updates payload: %v", err)
			return
		}
		s.bus.Publish(events.NewPriceUpdated(update))

	case TopicSolPriceUpdates:
		var update domain.SolPriceUpdate
		if err := json.Unmarshal(payload, &update); err != nil {
			s.logger.Printf("[relay] drop malformed sol_price_updates payload: %v", err)
			return
		}
		s.bus.Publish(events.NewSolPriceUpdated(update))

	default:
		s.logger.Printf("[relay] drop message on unexpected topic %q", topic)
	}
}

// changeForAction is the inverse of ActionForChange.
func changeForAction(action string) (domain.WalletStateChangeType, bool) {
	switch action {
	case ActionAdd:
		return domain.WalletAdded, true
	case ActionArchive:
		return domain.WalletArchived, true
	case ActionUnarchive:
		return domain.WalletUnarchived, true
	case ActionDelete:
		return domain.WalletDeleted, true
	default:
		return "", false
	}
}

// RunKeepAlive probes the subscriber's client every 30s. When a probe
// fails the loop exits without resubscribing; the failure is only
// surfaced in the log.
func (s *Subscriber) RunKeepAlive(ctx context.Context) {
	ticker := time.NewTicker(s.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.client.Ping(ctx).Err(); err != nil {
				s.logger.Printf("[relay] keep-alive ping failed, prober exiting: %v", err)
				return
			}
		}
	}
}
