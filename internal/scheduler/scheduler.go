package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/elonfeng/aiscout/internal/logging"
	"github.com/elonfeng/aiscout/internal/pipeline"
	"github.com/elonfeng/aiscout/internal/store"
	"github.com/elonfeng/aiscout/pkg/alert"
	"github.com/elonfeng/aiscout/pkg/classify"
	"github.com/elonfeng/aiscout/pkg/product"
	"github.com/elonfeng/aiscout/pkg/ranking"
	"github.com/elonfeng/aiscout/pkg/search"
	"github.com/elonfeng/aiscout/pkg/signal"
	"github.com/elonfeng/aiscout/pkg/source"
)

// Options wires the scheduler. Resolver, Classifier and Alerts are optional.
type Options struct {
	Store      store.Store
	Sources    []source.Source
	Reconciler *pipeline.Reconciler
	Resolver   *source.WebsiteResolver
	Classifier *classify.Classifier
	Alerts     *alert.Manager
	Weekly     ranking.WeeklyOptions

	CollectInterval   time.Duration
	ReconcileInterval time.Duration
	Logger            *log.Logger
	Now               func() time.Time
}

// CollectReport counts the outcome of one collection round.
type CollectReport struct {
	Collected  int             `json:"collected"`
	Added      int             `json:"added"`
	Failed     []string        `json:"failed,omitempty"`
	Resolved   int             `json:"websites_resolved"`
	Unresolved int             `json:"websites_unresolved"`
	Classify   classify.Report `json:"classify"`
}

// Scheduler runs periodic collection, reconciliation and alerting.
type Scheduler struct {
	opts   Options
	logger *log.Logger
	now    func() time.Time
}

// New creates a new scheduler.
func New(opts Options) *Scheduler {
	if opts.CollectInterval == 0 {
		opts.CollectInterval = 6 * time.Hour
	}
	if opts.ReconcileInterval == 0 {
		opts.ReconcileInterval = 24 * time.Hour
	}
	if opts.Reconciler == nil {
		opts.Reconciler = pipeline.New(opts.Store, nil, nil, opts.Logger)
	}
	s := &Scheduler{opts: opts, logger: opts.Logger, now: opts.Now}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	collectTicker := time.NewTicker(s.opts.CollectInterval)
	reconcileTicker := time.NewTicker(s.opts.ReconcileInterval)
	defer collectTicker.Stop()
	defer reconcileTicker.Stop()

	s.logger.Info("initial collection")
	s.collect(ctx)
	s.logger.Info("initial reconcile")
	s.reconcile(ctx)

	s.logger.Info("scheduler running",
		"collect_every", s.opts.CollectInterval, "reconcile_every", s.opts.ReconcileInterval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-collectTicker.C:
			s.collect(ctx)
		case <-reconcileTicker.C:
			s.reconcile(ctx)
		}
	}
}

func (s *Scheduler) collect(ctx context.Context) {
	rep, err := s.Collect(ctx)
	if err != nil {
		s.logger.Error("collect failed", "err", err)
		return
	}
	s.logger.Info("collected", "records", rep.Collected, "added", rep.Added, "failed_sources", len(rep.Failed))
}

func (s *Scheduler) reconcile(ctx context.Context) {
	if _, err := s.opts.Reconciler.Run(ctx, pipeline.Options{Now: s.now().UTC()}); err != nil {
		s.logger.Error("reconcile failed", "err", err)
		return
	}
	if _, err := s.Alert(ctx); err != nil {
		s.logger.Error("alert failed", "err", err)
	}
}

// Collect pulls every source once, resolves missing websites, merges the
// result into the stored collection and classifies what lacks categories.
// A failing source is logged and skipped.
func (s *Scheduler) Collect(ctx context.Context) (CollectReport, error) {
	var rep CollectReport
	var incoming []product.Product
	for _, src := range s.opts.Sources {
		records, err := src.Collect(ctx)
		if err != nil {
			s.logger.Warn("source failed", "source", src.Name(), "err", err)
			rep.Failed = append(rep.Failed, src.Name())
			continue
		}
		s.logger.Debug("source collected", "source", src.Name(), "records", len(records))
		incoming = append(incoming, records...)
	}
	rep.Collected = len(incoming)

	if s.opts.Resolver != nil {
		rep.Resolved, rep.Unresolved = s.opts.Resolver.Apply(ctx, incoming)
	}

	existing, err := s.opts.Store.Load(ctx)
	if err != nil {
		return rep, fmt.Errorf("load products: %w", err)
	}
	merged, added := pipeline.Merge(existing, incoming, s.now())
	rep.Added = added

	if s.opts.Classifier != nil {
		cr, err := s.opts.Classifier.Classify(ctx, merged)
		rep.Classify = cr
		if err != nil {
			s.logger.Warn("classify failed", "err", err)
		}
	}

	if err := s.opts.Store.Save(ctx, merged); err != nil {
		return rep, fmt.Errorf("save products: %w", err)
	}
	return rep, nil
}

// Alert broadcasts weekly dark horses that were never alerted and stamps
// them. Returns how many were sent.
func (s *Scheduler) Alert(ctx context.Context) (int, error) {
	if s.opts.Alerts == nil || !s.opts.Alerts.HasNotifiers() {
		return 0, nil
	}
	records, err := s.opts.Store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load products: %w", err)
	}

	now := s.now().UTC()
	picks := alert.Unalerted(ranking.WeeklyDarkHorses(search.Products(records), s.opts.Weekly, now))
	if len(picks) == 0 {
		return 0, nil
	}

	n := alert.NewDarkHorseNotification(signal.WeekKey(now), picks)
	if err := s.opts.Alerts.Broadcast(ctx, n); err != nil {
		return 0, fmt.Errorf("broadcast: %w", err)
	}

	ids := make([]string, 0, len(picks))
	for _, p := range picks {
		ids = append(ids, p.ID)
	}
	sent := alert.MarkAlerted(records, ids, now)
	if err := s.opts.Store.Save(ctx, records); err != nil {
		return sent, fmt.Errorf("save alerted: %w", err)
	}
	s.logger.Info("alerted", "products", sent, "week", n.Week)
	return sent, nil
}
