package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/catalogapi/internal/domain"
	"github.com/yourorg/catalogapi/internal/observability/metrics"
)

// TagPruner removes tag-set members whose value keys have already expired.
type TagPruner interface {
	PruneTagSets(ctx context.Context, tags []string) (int64, error)
}

// Janitor periodically prunes the redis tag sets. Value keys expire by TTL
// on their own, but the tag sets holding their names carry no TTL and would
// grow without bound otherwise.
type Janitor struct {
	pruner   TagPruner
	logger   *slog.Logger
	interval time.Duration
	tags     []string
}

// NewJanitor creates a new tag-set janitor
func NewJanitor(pruner TagPruner, logger *slog.Logger, interval time.Duration) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		pruner:   pruner,
		logger:   logger,
		interval: interval,
		tags: []string{
			domain.KindCustomer.Tag,
			domain.KindUser.Tag,
			domain.KindProduct.Tag,
		},
	}
}

// Start begins the janitor loop. It runs in a goroutine until ctx is
// cancelled.
func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("cache janitor started", slog.Duration("interval", j.interval))

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("cache janitor stopped")
			return
		case <-ticker.C:
			j.prune(ctx)
		}
	}
}

func (j *Janitor) prune(ctx context.Context) {
	pruned, err := j.pruner.PruneTagSets(ctx, j.tags)
	if err != nil {
		j.logger.Warn("tag set pruning failed", slog.String("error", err.Error()))
		return
	}
	if pruned > 0 {
		metrics.ObserveJanitorPruned(pruned)
		j.logger.Debug("pruned dead tag set members", slog.Int64("count", pruned))
	}
}
