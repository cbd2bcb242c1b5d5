package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"repogator.app/relay/common/arangodb"
	"repogator.app/relay/core/config"
	"repogator.app/relay/internal/dispatch"
	"repogator.app/relay/internal/knowledge"
	"repogator.app/relay/internal/notify"
	"repogator.app/relay/internal/processor"
	"repogator.app/relay/internal/queue"
	"repogator.app/relay/internal/store"
)

const consumerSuffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Deps are the connections the binary already owns.
type Deps struct {
	Stores   *store.Stores
	Redis    *redis.Client
	Producer queue.Producer
	Resolver dispatch.CredentialResolver
}

// Pipeline is the dispatch side of the relay: the recovery scan, the worker
// pool and the retention sweeper, plus the optional knowledge and
// notification backends they use.
type Pipeline struct {
	consumer   *queue.RedisConsumer
	dispatcher *dispatch.Dispatcher
	recovery   *dispatch.RecoveryScanner
	sweeper    *dispatch.Sweeper
	readiness  *dispatch.Readiness

	arango   arangodb.Client
	natsConn *nats.Conn

	shutdownTimeout time.Duration
	started         bool
}

func New(ctx context.Context, cfg config.Config, deps Deps) (*Pipeline, error) {
	consumerName, err := ConsumerName(cfg.Pipeline.RedisConsumer)
	if err != nil {
		return nil, fmt.Errorf("generating consumer name: %w", err)
	}

	consumer, err := queue.NewRedisConsumer(ctx, deps.Redis, queue.ConsumerConfig{
		Stream:    cfg.Pipeline.RedisStream,
		Group:     cfg.Pipeline.RedisGroup,
		Consumer:  consumerName,
		DLQStream: cfg.Pipeline.RedisDLQStream,
		Block:     2 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("creating consumer: %w", err)
	}
	slog.InfoContext(ctx, "stream consumer ready",
		"stream", cfg.Pipeline.RedisStream,
		"group", cfg.Pipeline.RedisGroup,
		"consumer", consumerName)

	p := &Pipeline{
		consumer:        consumer,
		readiness:       &dispatch.Readiness{},
		shutdownTimeout: cfg.Dispatch.ShutdownTimeout,
	}

	var lookup knowledge.Lookup
	if cfg.ArangoDB.Enabled() {
		client, err := connectArango(ctx, cfg.ArangoDB)
		if err != nil {
			slog.WarnContext(ctx, "knowledge lookup disabled", "error", err)
		} else {
			p.arango = client
			lookup = knowledge.NewArangoLookup(client)
			slog.InfoContext(ctx, "knowledge lookup enabled", "database", cfg.ArangoDB.Database)
		}
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.NATS.Enabled() {
		conn, err := notify.Connect(cfg.NATS.URL)
		if err != nil {
			slog.WarnContext(ctx, "lifecycle notifications disabled", "error", err)
		} else {
			p.natsConn = conn
			notifier = notify.NewNATSNotifier(conn, cfg.NATS.SubjectPrefix)
			slog.InfoContext(ctx, "lifecycle notifications enabled", "subject_prefix", cfg.NATS.SubjectPrefix)
		}
	}

	events := deps.Stores.Events()

	p.dispatcher = dispatch.New(dispatch.Deps{
		Consumer:  consumer,
		Producer:  deps.Producer,
		Events:    events,
		Runs:      deps.Stores.ProcessorRuns(),
		Registry:  processor.DefaultRegistry(processor.DefaultClientFactory),
		Resolver:  deps.Resolver,
		Knowledge: lookup,
		Notifier:  notifier,
	}, dispatch.Config{
		Workers:          cfg.Dispatch.Workers,
		ProcessorTimeout: cfg.Dispatch.ProcessorTimeout,
	})

	releaser := queue.NewStaleReleaser(deps.Redis, queue.StaleReleaserConfig{
		Stream:  cfg.Pipeline.RedisStream,
		Group:   cfg.Pipeline.RedisGroup,
		MinIdle: cfg.Pipeline.RedisStaleIdle,
	})
	p.recovery = dispatch.NewRecoveryScanner(events, deps.Producer, deps.Resolver, releaser, p.readiness, dispatch.RecoveryConfig{
		ClaimTimeout: cfg.Dispatch.ClaimTimeout(),
		Interval:     cfg.Dispatch.RecoveryInterval,
	})
	p.sweeper = dispatch.NewSweeper(events, cfg.Retention.Window(), cfg.Retention.Interval)

	return p, nil
}

// Readiness flips once Start has finished the recovery scan.
func (p *Pipeline) Readiness() *dispatch.Readiness {
	return p.readiness
}

// Start runs the recovery scan to completion and then launches the workers,
// the sweeper and the periodic rescan. ctx bounds only the startup scan.
func (p *Pipeline) Start(ctx context.Context) error {
	recovered, err := p.recovery.Run(ctx)
	if err != nil {
		return fmt.Errorf("recovery scan: %w", err)
	}
	slog.InfoContext(ctx, "recovery complete", "requeued", recovered)

	p.started = true

	// In-flight items finish on their own context; Shutdown stops new pops.
	go func() {
		if err := p.dispatcher.Run(context.Background()); err != nil {
			slog.Error("dispatcher stopped with error", "error", err)
		}
	}()
	go p.sweeper.Run(context.Background())
	go p.recovery.Watch(context.Background())

	return nil
}

// Shutdown stops popping, waits for in-flight events up to the shutdown
// timeout and releases the backends.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	var errs []error

	if p.started {
		stopCtx, cancel := context.WithTimeout(ctx, p.shutdownTimeout)
		if err := p.dispatcher.Stop(stopCtx); err != nil {
			errs = append(errs, err)
		}
		cancel()
		p.sweeper.Stop()
		p.recovery.Stop()
	}

	if err := p.consumer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing consumer: %w", err))
	}
	if p.natsConn != nil {
		if err := p.natsConn.Drain(); err != nil {
			errs = append(errs, fmt.Errorf("draining nats: %w", err))
		}
	}
	if p.arango != nil {
		if err := p.arango.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing arangodb: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ConsumerName makes the stream consumer unique per process so two replicas
// never share a pending list.
func ConsumerName(base string) (string, error) {
	suffix, err := gonanoid.Generate(consumerSuffixAlphabet, 8)
	if err != nil {
		return "", err
	}
	if base == "" {
		base = "relay"
	}
	return base + "-" + suffix, nil
}

func connectArango(ctx context.Context, cfg config.ArangoDBConfig) (arangodb.Client, error) {
	client, err := arangodb.New(ctx, arangodb.Config{
		URL:      cfg.URL,
		Username: cfg.Username,
		Password: cfg.Password,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}
	if err := client.EnsureDatabase(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := client.EnsureCollection(ctx, knowledge.Collection); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
