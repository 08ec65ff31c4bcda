package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Backend names.
const (
	BackendNone   = "none"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Defaults applied by the config layer.
const (
	DefaultProject    = "default"
	DefaultRedisAddr  = "localhost:6379"
	DefaultSQLitePath = ".echoplan/runs.db"
)

var (
	// ErrNotFound indicates no run has the requested ID.
	ErrNotFound = errors.New("store: run not found")
	// ErrDisabled indicates the configured backend is "none".
	ErrDisabled = errors.New("store: no backend configured")
	// ErrNoEvents indicates the backend cannot stream run events.
	ErrNoEvents = errors.New("store: backend does not publish run events")
)

// Store persists runs. Implementations are safe for concurrent use.
type Store interface {
	// SaveRun writes a run; saving the same run twice is safe.
	SaveRun(ctx context.Context, r *Run) error
	// GetRun returns the run with the full ID, or an error matching IsNotFound.
	GetRun(ctx context.Context, id string) (*Run, error)
	// ListRuns returns matching runs, oldest first.
	ListRuns(ctx context.Context, f Filter) ([]*Run, error)
	// RunIDs returns every stored run ID, oldest first.
	RunIDs(ctx context.Context) ([]string, error)
	Close() error
}

// Watcher is implemented by backends that stream newly saved runs.
type Watcher interface {
	SubscribeRunEvents(ctx context.Context) (*Subscription, error)
}

// Options selects and configures a backend.
type Options struct {
	Backend    string
	RedisAddr  string
	SQLitePath string
	Project    string
}

// Open connects to the configured backend. A "none" backend fails with ErrDisabled.
func Open(ctx context.Context, opts Options) (Store, error) {
	project := opts.Project
	if project == "" {
		project = DefaultProject
	}
	switch opts.Backend {
	case BackendRedis:
		s, err := NewRedisStore(&redis.Options{Addr: opts.RedisAddr}, project)
		if err != nil {
			return nil, err
		}
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.RedisAddr, err)
		}
		return s, nil
	case BackendSQLite:
		return NewSQLiteStore(opts.SQLitePath)
	case "", BackendNone:
		return nil, ErrDisabled
	}
	return nil, fmt.Errorf("unknown store backend: %s", opts.Backend)
}

// Subscribe streams newly saved runs from s, or fails with ErrNoEvents when
// the backend does not publish them.
func Subscribe(ctx context.Context, s Store) (*Subscription, error) {
	w, ok := s.(Watcher)
	if !ok {
		return nil, ErrNoEvents
	}
	return w.SubscribeRunEvents(ctx)
}

// IsNotFound reports whether err means the run does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, redis.Nil)
}
