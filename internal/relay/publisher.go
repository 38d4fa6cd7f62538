package relay

import (
	"context"
	"errors"
	"sync"

	"live-bidding/internal/models"
	"live-bidding/internal/statestore"
	"live-bidding/utils"

	"github.com/redis/go-redis/v9"
	"github.com/smallnest/chanx"
)

// DefaultMaxLen caps the relay stream. Consumers only read new entries, so
// the stream is a short window rather than a log.
const DefaultMaxLen = 10000

// PublishedFunc observes the outcome of every XADD
type PublishedFunc func(env Envelope, id string, err error)

// Publisher forwards locally committed states to a Redis stream so other
// instances can reconcile their caches.
type Publisher struct {
	client     *redis.Client
	stream     string
	instanceID string
	maxLen     int64
	published  PublishedFunc

	mu       sync.Mutex
	upstream *chanx.UnboundedChan[Envelope]
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool
}

// PublisherOption configures a Publisher
type PublisherOption func(*Publisher)

// WithMaxLen sets the approximate stream length cap
func WithMaxLen(n int64) PublisherOption {
	return func(p *Publisher) {
		p.maxLen = n
	}
}

// WithPublishedFunc registers a callback run after each XADD
func WithPublishedFunc(fn PublishedFunc) PublisherOption {
	return func(p *Publisher) {
		p.published = fn
	}
}

// NewPublisher creates a Publisher writing to stream on behalf of instanceID
func NewPublisher(client *redis.Client, stream, instanceID string, opts ...PublisherOption) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("relay: redis client cannot be nil")
	}
	if stream == "" {
		return nil, errors.New("relay: stream cannot be empty")
	}
	if instanceID == "" {
		return nil, errors.New("relay: instance id cannot be empty")
	}

	p := &Publisher{
		client:     client,
		stream:     stream,
		instanceID: instanceID,
		maxLen:     DefaultMaxLen,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Start launches the stream writer
func (p *Publisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.upstream = chanx.NewUnboundedChan[Envelope](ctx, 64)
	p.cancel = cancel
	p.running = true

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case env, ok := <-p.upstream.Out:
				if !ok {
					return
				}
				p.write(ctx, env)
			}
		}
	}()
	utils.Info("relay: publisher started", map[string]any{"stream": p.stream, "instance_id": p.instanceID})
}

func (p *Publisher) write(ctx context.Context, env Envelope) {
	values, err := EncodeEnvelope(env)
	if err != nil {
		utils.Error("relay: encode failed", map[string]any{"item_id": env.State.ItemID, "error": err.Error()})
		p.notify(env, "", err)
		return
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		// the store of record still converges the other instances
		utils.Error("relay: publish failed", map[string]any{
			"item_id": env.State.ItemID,
			"version": env.State.Version,
			"error":   err.Error(),
		})
		p.notify(env, "", err)
		return
	}

	utils.Debug("relay: state published", map[string]any{"item_id": env.State.ItemID, "version": env.State.Version, "message_id": id})
	p.notify(env, id, nil)
}

func (p *Publisher) notify(env Envelope, id string, err error) {
	if p.published != nil {
		p.published(env, id, err)
	}
}

// Publish queues state for the stream. It never blocks on Redis.
func (p *Publisher) Publish(state models.ItemBidState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return ErrRelayClosed
	}
	p.upstream.In <- Envelope{Origin: p.instanceID, State: state}
	return nil
}

// OnCommit is a store commit hook that relays local commits only
func (p *Publisher) OnCommit(state models.ItemBidState, origin statestore.Origin) {
	if origin != statestore.OriginLocal {
		return
	}
	if err := p.Publish(state); err != nil {
		utils.Warn("relay: dropping commit", map[string]any{"item_id": state.ItemID, "version": state.Version, "error": err.Error()})
	}
}

// Close stops the writer. Queued states are dropped.
func (p *Publisher) Close() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	utils.Info("relay: publisher stopped", map[string]any{"stream": p.stream})
}
