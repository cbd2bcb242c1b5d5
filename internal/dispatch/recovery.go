package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"repogator.app/relay/common/logger"
	"repogator.app/relay/internal/model"
	"repogator.app/relay/internal/queue"
	"repogator.app/relay/internal/store"
)

// StaleReleaser drops queue entries a crashed consumer never acknowledged.
// *queue.StaleReleaser satisfies it.
type StaleReleaser interface {
	Release(ctx context.Context) (int, error)
}

// RecoveryConfig bounds what the scanner considers orphaned.
type RecoveryConfig struct {
	// ClaimTimeout is how long a processing event may go without a terminal
	// write before it is presumed orphaned. It must exceed the processor
	// timeout plus the terminal write retries, or a scan started by another
	// replica would re-queue an event that is still running.
	ClaimTimeout time.Duration
	// Interval between rescans after startup. Zero disables them.
	Interval time.Duration
}

func (c RecoveryConfig) withDefaults() RecoveryConfig {
	if c.ClaimTimeout <= 0 {
		c.ClaimTimeout = 10 * time.Minute
	}
	return c
}

// RecoveryScanner re-enqueues events left received or processing by a process
// that is gone. Run must finish before workers start popping; Watch then
// picks up claims that outlive ClaimTimeout later on.
type RecoveryScanner struct {
	events    store.EventStore
	producer  queue.Producer
	resolver  CredentialResolver
	releaser  StaleReleaser
	readiness *Readiness
	cfg       RecoveryConfig

	stopOnce  sync.Once
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewRecoveryScanner wires the scanner. releaser, resolver and readiness may be nil.
func NewRecoveryScanner(events store.EventStore, producer queue.Producer, resolver CredentialResolver, releaser StaleReleaser, readiness *Readiness, cfg RecoveryConfig) *RecoveryScanner {
	return &RecoveryScanner{
		events:    events,
		producer:  producer,
		resolver:  resolver,
		releaser:  releaser,
		readiness: readiness,
		cfg:       cfg.withDefaults(),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run is the startup scan. It pushes one item per received event and per
// processing event claimed longer than ClaimTimeout ago, and returns how many
// were pushed. Readiness is marked only when every one made it onto the queue.
func (r *RecoveryScanner) Run(ctx context.Context) (int, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "relay.dispatch.recovery"})

	if r.releaser != nil {
		released, err := r.releaser.Release(ctx)
		if err != nil {
			slog.WarnContext(ctx, "failed to release stale queue entries", "error", err)
		} else if released > 0 {
			slog.InfoContext(ctx, "released stale queue entries", "count", released)
		}
	}

	pushed, err := r.scan(ctx, store.IncompleteFilter{ProcessingAge: r.cfg.ClaimTimeout})
	if err != nil {
		return pushed, err
	}
	if r.readiness != nil {
		r.readiness.MarkReady()
	}
	return pushed, nil
}

// Watch rescans every Interval until Stop or ctx is done. Received events
// younger than ClaimTimeout are skipped since their original item is most
// likely still queued.
func (r *RecoveryScanner) Watch(ctx context.Context) {
	defer close(r.stoppedCh)

	if r.cfg.Interval <= 0 {
		return
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "relay.dispatch.recovery"})

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
		}

		filter := store.IncompleteFilter{
			ReceivedAge:   r.cfg.ClaimTimeout,
			ProcessingAge: r.cfg.ClaimTimeout,
		}
		if _, err := r.scan(ctx, filter); err != nil {
			slog.ErrorContext(ctx, "recovery rescan failed", "error", err)
		}
	}
}

// Stop ends Watch. Call it only after Watch was started.
func (r *RecoveryScanner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.stoppedCh
}

func (r *RecoveryScanner) scan(ctx context.Context, filter store.IncompleteFilter) (int, error) {
	events, err := r.events.FindIncomplete(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("scanning incomplete events: %w", err)
	}

	var (
		pushed int
		errs   []error
	)
	for i := range events {
		event := &events[i]

		// Credentials are resolved fresh: whatever was snapshotted at ingest
		// died with the previous process.
		snapshot := r.resolve(ctx, event.TenantID)

		item := queue.NewItem(event, snapshot, "")
		if err := r.producer.Push(ctx, item); err != nil {
			errs = append(errs, fmt.Errorf("event %d: %w", event.ID, err))
			continue
		}
		pushed++
	}

	if len(events) > 0 || len(errs) > 0 {
		slog.InfoContext(ctx, "recovery scan finished", "incomplete", len(events), "requeued", pushed)
	}

	if len(errs) > 0 {
		return pushed, fmt.Errorf("requeueing recovered events: %w", errors.Join(errs...))
	}
	return pushed, nil
}

// resolve returns nil when no usable set exists; the dispatcher then resolves
// again and records the failure on the event.
func (r *RecoveryScanner) resolve(ctx context.Context, tenantID *int64) *model.CredentialSet {
	if r.resolver == nil {
		return nil
	}
	creds, err := r.resolver.Resolve(ctx, tenantID)
	if err != nil {
		slog.DebugContext(ctx, "no credential snapshot for recovered event", "error", err)
		return nil
	}
	return &creds
}
