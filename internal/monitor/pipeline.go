package monitor

import (
	"context"
	"errors"
	"log"
	"time"

	"copytrade-monitor/internal/domain"
)

const (
	pipelineQueueSize    = 1024
	pipelineIdleInterval = 100 * time.Millisecond
)

// TradeHandler processes one observed trade.
type TradeHandler interface {
	Process(ctx context.Context, trade domain.ObservedTrade) error
}

// Pipeline is the single-consumer FIFO between the feed and the
// orchestrator. The consumer races the next queued item against a
// 100ms idle tick so cancellation is observed promptly even when the
// feed is silent.
type Pipeline struct {
	queue   chan domain.ObservedTrade
	handler TradeHandler
	logger  *log.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger sets the pipeline's logger.
func WithPipelineLogger(logger *log.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = logger }
}

// WithQueueSize overrides the queue capacity.
func WithQueueSize(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.queue = make(chan domain.ObservedTrade, n)
		}
	}
}

// NewPipeline creates a pipeline feeding handler.
func NewPipeline(handler TradeHandler, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		queue:   make(chan domain.ObservedTrade, pipelineQueueSize),
		handler: handler,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enqueue queues a trade for processing. It fails instead of blocking
// when the consumer has fallen a full queue behind.
func (p *Pipeline) Enqueue(trade domain.ObservedTrade) error {
	select {
	case p.queue <- trade:
		return nil
	default:
		return errors.New("pipeline queue full")
	}
}

// Run consumes the queue until ctx is cancelled. Processing errors are
// logged and never stop the loop; a single failed trade must not stall
// the ones behind it.
func (p *Pipeline) Run(ctx context.Context) {
	idle := time.NewTicker(pipelineIdleInterval)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case trade := <-p.queue:
			if err := p.handler.Process(ctx, trade); err != nil {
				var procErr *ProcessingError
				if errors.As(err, &procErr) {
					p.logger.Printf("[pipeline] %v", procErr)
				} else {
					p.logger.Printf("[pipeline] process %s: %v", trade.Signature, err)
				}
			}
		case <-idle.C:
			// No work; loop to re-check cancellation.
		}
	}
}

// QueueDepth reports the number of queued, unprocessed trades.
func (p *Pipeline) QueueDepth() int {
	return len(p.queue)
}
