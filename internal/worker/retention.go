package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/repository"
	"github.com/jwalitptl/password-policy/pkg/logger"
	"github.com/jwalitptl/password-policy/pkg/policy"
)

// RetentionSweeper trims stored histories to their configured limit. Histories normally
// stay within the limit on every password change; the sweep catches accounts whose limit
// was lowered since their last change.
type RetentionSweeper struct {
	accounts  repository.AccountRepository
	history   repository.PasswordHistoryRepository
	registry  *policy.Registry
	interval  time.Duration
	batchSize int
	logger    *logger.Logger
}

func NewRetentionSweeper(
	accounts repository.AccountRepository,
	history repository.PasswordHistoryRepository,
	registry *policy.Registry,
	interval time.Duration,
	batchSize int,
	log *logger.Logger,
) *RetentionSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionSweeper{
		accounts:  accounts,
		history:   history,
		registry:  registry,
		interval:  interval,
		batchSize: batchSize,
		logger:    log,
	}
}

// Start sweeps once immediately, then on every interval until ctx is done.
func (w *RetentionSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.Sweep(ctx); err != nil {
			w.logger.Error(err, "Password history sweep failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep walks every configured account type and deletes history rows beyond the limit. It
// returns the number of rows deleted.
func (w *RetentionSweeper) Sweep(ctx context.Context) (int64, error) {
	var total int64
	for _, cfg := range w.registry.Configs() {
		n, err := w.sweepType(ctx, cfg)
		total += n
		if err != nil {
			return total, err
		}
	}
	if total > 0 {
		w.logger.Info("Trimmed password histories", "deleted", total)
	}
	return total, nil
}

func (w *RetentionSweeper) sweepType(ctx context.Context, cfg *policy.Config) (int64, error) {
	var deleted int64
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		pagination := model.Pagination{Page: page, PageSize: w.batchSize}
		accounts, err := w.accounts.List(ctx, cfg.AccountType(), pagination)
		if err != nil {
			if errors.Is(err, repository.ErrUnknownEntity) {
				return deleted, nil
			}
			return deleted, fmt.Errorf("failed to list %s accounts: %w", cfg.AccountType(), err)
		}

		for _, a := range accounts {
			n, err := w.sweepAccount(ctx, a, cfg.HistoryLimit())
			if err != nil {
				return deleted, err
			}
			deleted += n
		}
		if len(accounts) < pagination.Limit() {
			return deleted, nil
		}
	}
}

func (w *RetentionSweeper) sweepAccount(ctx context.Context, a model.Principal, limit int) (int64, error) {
	id, err := uuid.Parse(a.AccountID())
	if err != nil {
		return 0, fmt.Errorf("invalid account id %q: %w", a.AccountID(), err)
	}
	rows, err := w.history.ListByAccount(ctx, a.AccountType(), id)
	if err != nil {
		return 0, fmt.Errorf("failed to list history of %s %s: %w", a.AccountType(), id, err)
	}
	if len(rows) <= limit {
		return 0, nil
	}

	entries := make([]policy.HistoryEntry, len(rows))
	for i, r := range rows {
		entries[i] = r
	}
	stale := policy.SelectStaleEntries(entries, limit)
	ids := make([]uuid.UUID, 0, len(stale))
	for _, e := range stale {
		ids = append(ids, e.(*model.PasswordHistory).ID)
	}

	n, err := w.history.Delete(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete history of %s %s: %w", a.AccountType(), id, err)
	}
	return n, nil
}
