package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisStore provides project-scoped Redis persistence for runs.
// All keys and channels are namespaced with the project name.
// The store is thread-safe and can be used concurrently from multiple goroutines.
type RedisStore struct {
	rdb     *redis.Client
	project string
}

var (
	_ Store   = (*RedisStore)(nil)
	_ Watcher = (*RedisStore)(nil)
)

// NewRedisStore creates a store for the given project.
// Returns an error if project is empty.
func NewRedisStore(redisOpts *redis.Options, project string) (*RedisStore, error) {
	if project == "" {
		return nil, fmt.Errorf("project name cannot be empty")
	}

	return &RedisStore{
		rdb:     redis.NewClient(redisOpts),
		project: project,
	}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// SaveRun writes the run hash, indexes it by creation time and publishes the
// full run JSON to echoplan:{project}:run_events.
func (s *RedisStore) SaveRun(ctx context.Context, r *Run) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid run: %w", err)
	}

	hash, err := RunToHash(r)
	if err != nil {
		return fmt.Errorf("failed to serialize run: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, RunKey(s.project, r.ID), hash)
	pipe.ZAdd(ctx, RunIndexKey(s.project), redis.Z{Score: float64(r.CreatedAtMs), Member: r.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write run to Redis: %w", err)
	}

	runJSON, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal run for event: %w", err)
	}
	if err := s.rdb.Publish(ctx, RunEventsChannel(s.project), runJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish run event: %w", err)
	}

	return nil
}

// GetRun retrieves a run by its full ID.
func (s *RedisStore) GetRun(ctx context.Context, id string) (*Run, error) {
	hashData, err := s.rdb.HGetAll(ctx, RunKey(s.project, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	r, err := HashToRun(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize run: %w", err)
	}
	return r, nil
}

// ListRuns reads the index within the filter's time bounds and fetches each run.
// Index entries whose hash has disappeared are skipped.
func (s *RedisStore) ListRuns(ctx context.Context, f Filter) ([]*Run, error) {
	rangeBy := &redis.ZRangeBy{Min: "-inf", Max: "+inf"}
	if f.SinceMs > 0 {
		rangeBy.Min = strconv.FormatInt(f.SinceMs, 10)
	}
	if f.UntilMs > 0 {
		rangeBy.Max = strconv.FormatInt(f.UntilMs, 10)
	}
	ids, err := s.rdb.ZRangeByScore(ctx, RunIndexKey(s.project), rangeBy).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run index: %w", err)
	}

	runs := make([]*Run, 0, len(ids))
	for _, id := range ids {
		r, err := s.GetRun(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if f.Match(r) {
			runs = append(runs, r)
		}
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAtMs < runs[j].CreatedAtMs })
	return runs, nil
}

// RunIDs returns every indexed run ID, oldest first.
func (s *RedisStore) RunIDs(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.ZRange(ctx, RunIndexKey(s.project), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run index: %w", err)
	}
	return ids, nil
}

// Subscription represents an active Pub/Sub subscription to run events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *Run
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of saved runs.
// The channel is closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *Run {
	return s.events
}

// Errors returns the channel of subscription errors.
// The subscription continues after errors; the offending message is skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeRunEvents subscribes to run events for this project.
// Events are delivered on a buffered channel (size 10). Redis Pub/Sub is
// at-most-once: runs saved while nobody listens are not replayed.
func (s *RedisStore) SubscribeRunEvents(ctx context.Context) (*Subscription, error) {
	pubsub := s.rdb.Subscribe(ctx, RunEventsChannel(s.project))

	// Wait for the subscription to be confirmed so no event published after
	// this call returns is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to run events: %w", err)
	}

	eventsChan := make(chan *Run, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var r Run
				if err := json.Unmarshal([]byte(msg.Payload), &r); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal run event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &r:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
