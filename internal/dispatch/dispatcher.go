package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"repogator.app/relay/common/id"
	"repogator.app/relay/common/logger"
	"repogator.app/relay/internal/credentials"
	"repogator.app/relay/internal/knowledge"
	"repogator.app/relay/internal/model"
	"repogator.app/relay/internal/notify"
	"repogator.app/relay/internal/processor"
	"repogator.app/relay/internal/queue"
	"repogator.app/relay/internal/store"
)

var (
	ErrUnsupportedKind  = errors.New("unsupported event kind")
	ErrProcessorTimeout = errors.New("processor timed out")
	ErrProcessorPanic   = errors.New("processor panic")
)

// CredentialResolver is satisfied by *credentials.Resolver.
type CredentialResolver interface {
	Resolve(ctx context.Context, tenantID *int64) (model.CredentialSet, error)
}

type Config struct {
	Workers          int
	ProcessorTimeout time.Duration
	// RequeueDelay is the pause before an item whose claim hit a storage
	// error is pushed back.
	RequeueDelay time.Duration
	// MaxAttempts bounds resumed attempts caused by transient errors after a claim.
	MaxAttempts int32
	// TerminalRetries is how often a completed/failed write is tried.
	TerminalRetries int
	TerminalBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.ProcessorTimeout <= 0 {
		c.ProcessorTimeout = 5 * time.Minute
	}
	if c.RequeueDelay <= 0 {
		c.RequeueDelay = time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.TerminalRetries <= 0 {
		c.TerminalRetries = 3
	}
	if c.TerminalBackoff <= 0 {
		c.TerminalBackoff = 200 * time.Millisecond
	}
	return c
}

type Deps struct {
	Consumer  queue.Consumer
	Producer  queue.Producer
	Events    store.EventStore
	Runs      store.ProcessorRunStore
	Registry  *processor.Registry
	Resolver  CredentialResolver
	Knowledge knowledge.Lookup
	Notifier  notify.Notifier
}

// Dispatcher drives events from received to a terminal status. Every status
// change goes through the event store's guarded transitions; the dispatcher
// never trusts a queue item over the stored row.
type Dispatcher struct {
	deps Deps
	cfg  Config

	stopOnce  sync.Once
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(deps Deps, cfg Config) *Dispatcher {
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	return &Dispatcher{
		deps:      deps,
		cfg:       cfg.withDefaults(),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run starts the workers and blocks until Stop is called or ctx is done.
// In-flight items are finished with ctx, so cancel it only to abandon them.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer close(d.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "relay.dispatch"})

	popCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-d.stopCh:
			cancel()
		case <-popCtx.Done():
		}
	}()

	slog.InfoContext(ctx, "dispatcher started",
		"workers", d.cfg.Workers,
		"processor_timeout", d.cfg.ProcessorTimeout,
		"kinds", d.deps.Registry.Kinds())

	var wg sync.WaitGroup
	for i := 1; i <= d.cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			d.work(logger.WithLogFields(ctx, logger.LogFields{WorkerID: &workerID}), popCtx)
		}(i)
	}
	wg.Wait()

	slog.InfoContext(ctx, "dispatcher stopped")
	return nil
}

// Stop stops popping and waits for in-flight items until ctx is done.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() { close(d.stopCh) })
	select {
	case <-d.stoppedCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight events: %w", ctx.Err())
	}
}

func (d *Dispatcher) work(ctx, popCtx context.Context) {
	for {
		item, err := d.deps.Consumer.Pop(popCtx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) || popCtx.Err() != nil {
				return
			}
			slog.ErrorContext(ctx, "pop failed", "error", err)
			if sleep(popCtx, time.Second) != nil {
				return
			}
			continue
		}

		d.handleSafe(ctx, item)
	}
}

func (d *Dispatcher) handleSafe(ctx context.Context, item *queue.Item) {
	defer func() {
		if r := recover(); r != nil {
			// The stored status decides what happens next; recovery picks up
			// the event if it was left non-terminal.
			slog.ErrorContext(ctx, "panic recovered in item handling",
				"panic", r,
				"event_id", item.EventID)
			d.ack(ctx, item)
		}
	}()
	d.Handle(ctx, item)
}

// Handle processes one item end to end and acknowledges it. Exported so the
// dispatch path can be driven without the worker loop.
func (d *Dispatcher) Handle(ctx context.Context, item *queue.Item) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		EventID:    &item.EventID,
		DeliveryID: &item.DeliveryID,
		TenantID:   item.TenantID,
		EventKind:  logger.Ptr(string(item.Kind)),
		MessageID:  &item.MessageID,
	})

	sc := logger.StartSpanFromTraceID(ctx, item.TraceID, "dispatch.handle_item",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.Int64("event.id", item.EventID),
			attribute.Int("event.attempt", int(item.Attempt)),
		))
	defer sc.End()
	ctx = sc.Context()

	event, err := d.deps.Events.MarkProcessing(ctx, item.EventID, item.Attempt)
	if err != nil {
		if errors.Is(err, store.ErrInvalidTransition) || errors.Is(err, store.ErrNotFound) {
			// Duplicate or stale item: someone else holds or finished the event.
			slog.InfoContext(ctx, "stale item skipped", "attempt", item.Attempt, "reason", err)
			d.ack(ctx, item)
			return
		}
		sc.RecordError(err)
		slog.ErrorContext(ctx, "claim failed, requeueing", "error", err)
		d.requeue(ctx, item, item.Attempt)
		return
	}

	slog.InfoContext(ctx, "event claimed", "attempt", event.Attempts)

	out := d.execute(ctx, event, item)
	switch out.verdict {
	case verdictAbandon:
		// Shutdown interrupted the processor: leave the event processing for
		// the next recovery pass.
		slog.WarnContext(ctx, "dispatch abandoned, event left for recovery")
		return
	case verdictRetry:
		d.requeue(ctx, item, item.Attempt+1)
		return
	}

	d.finish(ctx, event.ID, out)
	d.ack(ctx, item)
}

// maxReasonLen caps the failure reason stored on an event row.
const maxReasonLen = 2000

type verdict int

const (
	verdictCompleted verdict = iota
	verdictFailed
	// verdictRetry resumes the claimed event under the next attempt number.
	verdictRetry
	verdictAbandon
)

type outcome struct {
	reason  string
	verdict verdict
}

func failed(reason string) outcome {
	return outcome{verdict: verdictFailed, reason: reason}
}

func (d *Dispatcher) execute(ctx context.Context, event *model.Event, item *queue.Item) outcome {
	p, ok := d.deps.Registry.Lookup(event.Kind)
	if !ok {
		return failed(fmt.Sprintf("%v: %s", ErrUnsupportedKind, event.Kind))
	}

	creds, err := d.credentials(ctx, event, item)
	if err != nil {
		if errors.Is(err, credentials.ErrNoCredentials) {
			return failed(err.Error())
		}
		if item.Attempt >= d.cfg.MaxAttempts {
			return failed(fmt.Sprintf("resolving credentials: %v", err))
		}
		slog.WarnContext(ctx, "credential resolution failed, retrying later", "error", err)
		return outcome{verdict: verdictRetry}
	}

	in := processor.Input{
		Event:       event,
		Credentials: creds,
		Knowledge:   knowledge.NewHandle(d.deps.Knowledge, event.TenantID),
	}

	run := d.startRun(ctx, event, p.Name())
	result, abandon := d.invoke(ctx, p, in)
	if abandon {
		return outcome{verdict: verdictAbandon}
	}
	d.finishRun(ctx, run, result)

	if !result.Success {
		reason := result.Reason
		if reason == "" {
			reason = p.Name() + " failed without a reason"
		}
		return failed(reason)
	}
	return outcome{verdict: verdictCompleted}
}

// credentials prefers the enqueue-time snapshot and resolves fresh otherwise.
func (d *Dispatcher) credentials(ctx context.Context, event *model.Event, item *queue.Item) (model.CredentialSet, error) {
	if item.Credentials != nil && item.Credentials.Usable() {
		return *item.Credentials, nil
	}
	if d.deps.Resolver == nil {
		return model.CredentialSet{}, fmt.Errorf("%w: no resolver configured", credentials.ErrNoCredentials)
	}
	return d.deps.Resolver.Resolve(ctx, event.TenantID)
}

// invoke runs the processor in its own goroutine so a hang becomes a timeout
// and a panic becomes a failure.
func (d *Dispatcher) invoke(ctx context.Context, p processor.Processor, in processor.Input) (processor.Result, bool) {
	runCtx, cancel := context.WithTimeout(ctx, d.cfg.ProcessorTimeout)
	defer cancel()

	done := make(chan processor.Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(ctx, "processor panicked", "processor", p.Name(), "panic", r)
				done <- processor.Failed(fmt.Sprintf("%v: %v", ErrProcessorPanic, r))
			}
		}()
		done <- p.Process(runCtx, in)
	}()

	start := time.Now()
	select {
	case res := <-done:
		// A failure caused by the abandon can win the race against runCtx.Done.
		if !res.Success && ctx.Err() != nil {
			return processor.Result{}, true
		}
		slog.InfoContext(ctx, "processor finished",
			"processor", p.Name(),
			"success", res.Success,
			"duration_ms", time.Since(start).Milliseconds())
		return res, false
	case <-runCtx.Done():
		if ctx.Err() != nil {
			return processor.Result{}, true
		}
		return processor.Failed(fmt.Sprintf("%v after %s", ErrProcessorTimeout, d.cfg.ProcessorTimeout)), false
	}
}

func (d *Dispatcher) startRun(ctx context.Context, event *model.Event, name string) *model.ProcessorRun {
	if d.deps.Runs == nil {
		return nil
	}
	run, err := d.deps.Runs.Create(ctx, &model.ProcessorRun{
		ID:        id.New(),
		EventID:   event.ID,
		Processor: name,
		Attempt:   event.Attempts,
		Status:    model.ProcessorRunStatusRunning,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to record processor run", "error", err)
		return nil
	}
	return run
}

func (d *Dispatcher) finishRun(ctx context.Context, run *model.ProcessorRun, result processor.Result) {
	if run == nil {
		return
	}
	run.Output = result.Output
	run.PromptTokens = int32(result.PromptTokens)
	run.CompletionTokens = int32(result.CompletionTokens)
	if result.Success {
		run.Status = model.ProcessorRunStatusSucceeded
	} else {
		run.Status = model.ProcessorRunStatusFailed
		reason := logger.Truncate(result.Reason, maxReasonLen)
		run.Error = &reason
	}
	if err := d.deps.Runs.Finish(context.WithoutCancel(ctx), run); err != nil {
		slog.WarnContext(ctx, "failed to finish processor run", "error", err, "run_id", run.ID)
	}
}

// finish writes the terminal status. It runs detached from cancellation so a
// shutdown does not drop an outcome the processor already produced.
func (d *Dispatcher) finish(ctx context.Context, eventID int64, out outcome) {
	success := out.verdict == verdictCompleted
	reason := logger.Truncate(out.reason, maxReasonLen)
	writeCtx := context.WithoutCancel(ctx)

	var err error
	for attempt := 1; attempt <= d.cfg.TerminalRetries; attempt++ {
		var event *model.Event
		if success {
			event, err = d.deps.Events.MarkCompleted(writeCtx, eventID)
		} else {
			event, err = d.deps.Events.MarkFailed(writeCtx, eventID, reason)
		}
		if err == nil {
			if success {
				slog.InfoContext(ctx, "event completed")
			} else {
				slog.WarnContext(ctx, "event failed", "reason", reason)
			}
			d.deps.Notifier.EventFinished(writeCtx, event)
			return
		}
		if errors.Is(err, store.ErrInvalidTransition) || errors.Is(err, store.ErrNotFound) {
			slog.WarnContext(ctx, "terminal write rejected", "error", err)
			return
		}
		slog.WarnContext(ctx, "terminal write failed", "error", err, "attempt", attempt)
		if attempt < d.cfg.TerminalRetries {
			_ = sleep(writeCtx, d.cfg.TerminalBackoff*time.Duration(attempt))
		}
	}
	slog.ErrorContext(ctx, "giving up on terminal write, event left processing for recovery", "error", err)
}

func (d *Dispatcher) requeue(ctx context.Context, item *queue.Item, attempt int32) {
	if sleep(ctx, d.cfg.RequeueDelay) != nil {
		return
	}

	next := *item
	next.MessageID = ""
	next.Attempt = attempt
	if err := d.deps.Producer.Push(ctx, next); err != nil {
		// Leave the original unacked; recovery covers it.
		slog.ErrorContext(ctx, "requeue failed", "error", err)
		return
	}
	d.ack(ctx, item)
}

func (d *Dispatcher) ack(ctx context.Context, item *queue.Item) {
	if err := d.deps.Consumer.Ack(context.WithoutCancel(ctx), item); err != nil {
		slog.WarnContext(ctx, "ack failed", "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
