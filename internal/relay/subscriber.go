package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"live-bidding/internal/models"
	"live-bidding/utils"

	"github.com/jpillora/backoff"
	"github.com/redis/go-redis/v9"
)

// Reconciler applies states committed by other instances
type Reconciler interface {
	Reconcile(state models.ItemBidState) bool
}

// Subscriber reads the relay stream and reconciles foreign commits into the
// local store, which rebroadcasts them to local subscribers.
type Subscriber struct {
	client       *redis.Client
	stream       string
	instanceID   string
	target       Reconciler
	blockTimeout time.Duration
	batch        int64
	retry        *backoff.Backoff

	mu      sync.Mutex
	lastID  string
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// SubscriberOption configures a Subscriber
type SubscriberOption func(*Subscriber)

// WithBlockTimeout sets how long one XREAD waits for new entries
func WithBlockTimeout(d time.Duration) SubscriberOption {
	return func(s *Subscriber) {
		s.blockTimeout = d
	}
}

// WithRetryBackoff sets the pause bounds after a failed read
func WithRetryBackoff(min, max time.Duration) SubscriberOption {
	return func(s *Subscriber) {
		s.retry.Min = min
		s.retry.Max = max
	}
}

// NewSubscriber creates a Subscriber for stream that ignores instanceID's own entries
func NewSubscriber(client *redis.Client, stream, instanceID string, target Reconciler, opts ...SubscriberOption) (*Subscriber, error) {
	if client == nil {
		return nil, errors.New("relay: redis client cannot be nil")
	}
	if stream == "" {
		return nil, errors.New("relay: stream cannot be empty")
	}
	if target == nil {
		return nil, errors.New("relay: reconcile target cannot be nil")
	}

	s := &Subscriber{
		client:       client,
		stream:       stream,
		instanceID:   instanceID,
		target:       target,
		blockTimeout: time.Second,
		batch:        64,
		retry:        &backoff.Backoff{Min: 100 * time.Millisecond, Max: 5 * time.Second, Factor: 2, Jitter: true},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start positions the cursor at the newest stream entry and launches the
// reader goroutine. Every entry added after Start is read.
func (s *Subscriber) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true
	s.lastID = s.seed(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			messages, err := s.fetch(ctx)
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				delay := s.retry.Duration()
				utils.Error("relay: read failed", map[string]any{"stream": s.stream, "delay": delay.String(), "error": err.Error()})
				select {
				case <-ctx.Done():
					return
				case <-time.After(delay):
				}
				continue
			}
			s.retry.Reset()

			for _, message := range messages {
				s.apply(message)
			}
		}
	}()
	utils.Info("relay: subscriber started", map[string]any{"stream": s.stream, "instance_id": s.instanceID})
}

// seed returns the ID of the newest entry, or the current time in ms when the
// stream is empty or unreadable.
func (s *Subscriber) seed(ctx context.Context) string {
	seedCtx, cancel := context.WithTimeout(ctx, s.blockTimeout)
	defer cancel()

	entries, err := s.client.XRevRangeN(seedCtx, s.stream, "+", "-", 1).Result()
	switch {
	case err != nil:
		utils.Warn("relay: cannot read stream tail, starting from now", map[string]any{"stream": s.stream, "error": err.Error()})
	case len(entries) > 0:
		return entries[0].ID
	}
	return fmt.Sprintf("%d-0", time.Now().UnixMilli())
}

func (s *Subscriber) fetch(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := s.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{s.stream, s.lastID},
		Count:   s.batch,
		Block:   s.blockTimeout,
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, redis.Nil
	}

	messages := streams[0].Messages
	s.lastID = messages[len(messages)-1].ID
	return messages, nil
}

func (s *Subscriber) apply(message redis.XMessage) {
	if origin, _ := message.Values[fieldOrigin].(string); origin == s.instanceID {
		return
	}

	env, err := DecodeEnvelope(message.Values)
	if err != nil {
		utils.Warn("relay: skipping entry", map[string]any{"message_id": message.ID, "error": err.Error()})
		return
	}
	if env.Origin == s.instanceID {
		return
	}

	applied := s.target.Reconcile(env.State)
	utils.Debug("relay: foreign commit received", map[string]any{
		"message_id": message.ID,
		"origin":     env.Origin,
		"item_id":    env.State.ItemID,
		"version":    env.State.Version,
		"applied":    applied,
	})
}

// Close stops the reader and waits for it to exit
func (s *Subscriber) Close() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	utils.Info("relay: subscriber stopped", map[string]any{"stream": s.stream})
}
