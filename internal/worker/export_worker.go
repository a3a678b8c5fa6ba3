package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/obligation"
	"bilancio/internal/sheets"

	"golang.org/x/sync/errgroup"
)

// Source is the read side the worker exports from.
type Source interface {
	Households(ctx context.Context) ([]string, error)
	Summary(ctx context.Context, household string, key core.MonthKey) (obligation.Summary, error)
	Projection(ctx context.Context, household string, anchor core.CalendarDay, horizon int, hyp *obligation.Hypothetical) ([]obligation.ProjectionMonth, error)
	Today() core.CalendarDay
}

type Config struct {
	// PollInterval is how often pending households are exported (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of households exported per cycle (default: 10)
	BatchSize int

	// MaxRetries is how many failed exports are tolerated before a household
	// is dropped until its next change (default: 3)
	MaxRetries int

	// Parallelism bounds concurrent exports in a full sweep (default: 4)
	Parallelism int
}

func DefaultConfig() Config {
	return Config{
		PollInterval: 10 * time.Second,
		BatchSize:    10,
		MaxRetries:   3,
		Parallelism:  4,
	}
}

// ExportWorker recomputes household summaries and projections after changes
// and pushes them to the exporter. Change messages only mark a household as
// pending; bursts of changes collapse into one export per poll cycle.
type ExportWorker struct {
	source   Source
	exporter sheets.SummaryExporter
	config   Config

	mu      sync.Mutex
	pending map[string]int // household -> failed attempts
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportWorker(source Source, exporter sheets.SummaryExporter, config Config) *ExportWorker {
	def := DefaultConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	if config.Parallelism <= 0 {
		config.Parallelism = def.Parallelism
	}
	return &ExportWorker{
		source:   source,
		exporter: exporter,
		config:   config,
		pending:  make(map[string]int),
	}
}

// HandleChangeMessage marks the household of msg for export.
func (w *ExportWorker) HandleChangeMessage(ctx context.Context, msg *amqp.HouseholdChangedMessage) error {
	slog.DebugContext(ctx, "Household change received",
		"household", msg.Household,
		"collection", msg.Collection)
	w.Mark(msg.Household)
	return nil
}

// Mark queues household for the next export cycle.
func (w *ExportWorker) Mark(household string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.pending[household]; !ok {
		w.pending[household] = 0
	}
}

// Pending returns the queued households, sorted.
func (w *ExportWorker) Pending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.pending))
	for h := range w.pending {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// ExportHousehold exports the current month summary and the projection from
// today.
func (w *ExportWorker) ExportHousehold(ctx context.Context, household string) error {
	today := w.source.Today()
	key := today.MonthIndex().Key()

	sum, err := w.source.Summary(ctx, household, key)
	if err != nil {
		return fmt.Errorf("build summary: %w", err)
	}
	months, err := w.source.Projection(ctx, household, today, 0, nil)
	if err != nil {
		return fmt.Errorf("build projection: %w", err)
	}
	if err := w.exporter.ExportSummary(ctx, household, sum); err != nil {
		return fmt.Errorf("export summary: %w", err)
	}
	if err := w.exporter.ExportProjection(ctx, household, months); err != nil {
		return fmt.Errorf("export projection: %w", err)
	}
	return nil
}

// ExportAll exports every household, a bounded number at a time. It is run
// at startup to recover from changes missed while the worker was down.
func (w *ExportWorker) ExportAll(ctx context.Context) error {
	names, err := w.source.Households(ctx)
	if err != nil {
		return fmt.Errorf("list households: %w", err)
	}
	if len(names) == 0 {
		slog.InfoContext(ctx, "No households to export on startup")
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.Parallelism)

	var mu sync.Mutex
	failed := 0
	for _, name := range names {
		name := name
		g.Go(func() error {
			if err := w.ExportHousehold(gctx, name); err != nil {
				slog.ErrorContext(gctx, "Failed to export household", "household", name, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
				w.Mark(name)
			}
			return nil
		})
	}
	_ = g.Wait()

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(names),
		"exported", len(names)-failed,
		"errors", failed)
	return nil
}

// Start begins the export loop. Returns an error if already running.
func (w *ExportWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("export worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)

	slog.InfoContext(ctx, "Export worker started",
		"poll_interval", w.config.PollInterval,
		"batch_size", w.config.BatchSize)
	return nil
}

// Stop stops the loop and waits for the current cycle to finish.
func (w *ExportWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Export worker stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

func (w *ExportWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *ExportWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessPending(ctx)
		}
	}
}

// ProcessPending exports up to BatchSize pending households. Failures stay
// pending until MaxRetries is reached.
func (w *ExportWorker) ProcessPending(ctx context.Context) int {
	batch := w.takeBatch()
	if len(batch) == 0 {
		return 0
	}

	slog.DebugContext(ctx, "Processing export batch", "count", len(batch))

	exported := 0
	for _, household := range batch {
		if ctx.Err() != nil {
			w.requeue(household.name, household.attempts)
			continue
		}
		if err := w.ExportHousehold(ctx, household.name); err != nil {
			w.handleFailure(ctx, household.name, household.attempts, err)
			continue
		}
		exported++
		slog.InfoContext(ctx, "Exported household", "household", household.name)
	}
	return exported
}

type pendingExport struct {
	name     string
	attempts int
}

func (w *ExportWorker) takeBatch() []pendingExport {
	w.mu.Lock()
	defer w.mu.Unlock()

	names := make([]string, 0, len(w.pending))
	for h := range w.pending {
		names = append(names, h)
	}
	sort.Strings(names)
	if len(names) > w.config.BatchSize {
		names = names[:w.config.BatchSize]
	}

	batch := make([]pendingExport, 0, len(names))
	for _, h := range names {
		batch = append(batch, pendingExport{name: h, attempts: w.pending[h]})
		delete(w.pending, h)
	}
	return batch
}

func (w *ExportWorker) requeue(household string, attempts int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	// A change that arrived meanwhile resets the attempt count.
	if _, ok := w.pending[household]; !ok {
		w.pending[household] = attempts
	}
}

func (w *ExportWorker) handleFailure(ctx context.Context, household string, attempts int, err error) {
	attempts++
	slog.WarnContext(ctx, "Export failed",
		"household", household,
		"attempt", attempts,
		"error", err)

	if attempts >= w.config.MaxRetries {
		slog.ErrorContext(ctx, "Export failed permanently after max retries",
			"household", household,
			"attempts", attempts)
		return
	}
	w.requeue(household, attempts)
}
