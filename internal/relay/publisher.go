// Package relay bridges the in-process event bus to Redis pub/sub so
// that sibling processes converge on the same settings and wallet state
// without polling a shared database. Publish and subscribe sides use
// independent clients; a publish failure never touches the subscribe
// stream.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"copytrade-monitor/internal/domain"
)

// Relay topic names. Stable wire contract shared with sibling processes.
const (
	TopicSettings        = "settings"
	TopicTrackedWallets  = "tracked_wallets"
	TopicPriceUpdates    = "price_updates"
	TopicSolPriceUpdates = "sol_price_updates"
)

// Wallet actions carried on the tracked_wallets topic.
const (
	ActionAdd       = "add"
	ActionArchive   = "archive"
	ActionUnarchive = "unarchive"
	ActionDelete    = "delete"
)

const (
	publishMaxRetries = 5
	publishRetryDelay = time.Second
)

// ActionForChange maps a wallet lifecycle transition to its wire action.
// The second return is false for transitions that have no wire action.
func ActionForChange(t domain.WalletStateChangeType) (string, bool) {
	switch t {
	case domain.WalletAdded:
		return ActionAdd, true
	case domain.WalletArchived:
		return ActionArchive, true
	case domain.WalletUnarchived:
		return ActionUnarchive, true
	case domain.WalletDeleted:
		return ActionDelete, true
	default:
		return "", false
	}
}

// publishClient is the slice of redis.Client the publisher needs.
type publishClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Publisher serializes events and publishes them on their relay topic.
type Publisher struct {
	client     publishClient
	logger     *log.Logger
	retryDelay time.Duration
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithPublisherLogger sets the publisher's logger.
func WithPublisherLogger(logger *log.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

// WithPublishRetryDelay overrides the fixed delay between publish retries.
func WithPublishRetryDelay(d time.Duration) PublisherOption {
	return func(p *Publisher) { p.retryDelay = d }
}

// NewPublisher creates a relay publisher over the given client.
func NewPublisher(client publishClient, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		client:     client,
		logger:     log.Default(),
		retryDelay: publishRetryDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// publish serializes payload and publishes it on topic. On transport
// error it retries up to publishMaxRetries times with a fixed delay,
// then fails with an error aggregating the attempts.
func (p *Publisher) publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}

	var lastErr error
	for attempt := 0; attempt <= publishMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("publish %s: %w", topic, ctx.Err())
			case <-time.After(p.retryDelay):
			}
		}

		if err := p.client.Publish(ctx, topic, data).Err(); err != nil {
			lastErr = err
			p.logger.Printf("[relay] publish %s attempt %d/%d failed: %v",
				topic, attempt+1, publishMaxRetries+1, err)
			continue
		}
		return nil
	}
	return fmt.Errorf("publish %s failed after %d retries: %w", topic, publishMaxRetries, lastErr)
}

// PublishSettingsUpdate publishes the full settings value on the
// settings topic.
func (p *Publisher) PublishSettingsUpdate(ctx context.Context, settings domain.CopyTradeSettings) error {
	return p.publish(ctx, TopicSettings, settings)
}

// settingsDeletePayload announces removal of a wallet's settings.
type settingsDeletePayload struct {
	TrackedWalletID uuid.UUID `json:"tracked_wallet_id"`
	Deleted         bool      `json:"deleted"`
}

// PublishSettingsDelete announces that the settings row for a tracked
// wallet was removed.
func (p *Publisher) PublishSettingsDelete(ctx context.Context, trackedWalletID uuid.UUID) error {
	return p.publish(ctx, TopicSettings, settingsDeletePayload{
		TrackedWalletID: trackedWalletID,
		Deleted:         true,
	})
}

// trackedWalletPayload is the tracked_wallets wire shape.
type trackedWalletPayload struct {
	WalletAddress string     `json:"wallet_address"`
	Action        string     `json:"action"`
	IsActive      bool       `json:"is_active"`
	ID            *uuid.UUID `json:"id"`
}

// PublishTrackedWalletUpdate publishes a wallet lifecycle transition.
func (p *Publisher) PublishTrackedWalletUpdate(ctx context.Context, walletAddress, action string, isActive bool, id *uuid.UUID) error {
	return p.publish(ctx, TopicTrackedWallets, trackedWalletPayload{
		WalletAddress: walletAddress,
		Action:        action,
		IsActive:      isActive,
		ID:            id,
	})
}

// walletAddressPayload is the address-only tracked_wallets wire shape.
type walletAddressPayload struct {
	WalletAddress string `json:"wallet_address"`
	Action        string `json:"action"`
}

// PublishWalletAddressUpdate publishes an address-only wallet update.
func (p *Publisher) PublishWalletAddressUpdate(ctx context.Context, walletAddress, action string) error {
	return p.publish(ctx, TopicTrackedWallets, walletAddressPayload{
		WalletAddress: walletAddress,
		Action:        action,
	})
}

// PublishPriceUpdate publishes the full price update on the
// price_updates topic.
func (p *Publisher) PublishPriceUpdate(ctx context.Context, update domain.PriceUpdate) error {
	return p.publish(ctx, TopicPriceUpdates, update)
}

// PublishSolPriceUpdate publishes a SOL/USD quote on the
// sol_price_updates topic.
func (p *Publisher) PublishSolPriceUpdate(ctx context.Context, update domain.SolPriceUpdate) error {
	return p.publish(ctx, TopicSolPriceUpdates, update)
}
