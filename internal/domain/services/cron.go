package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/folivafy/folivafy/internal/domain/apierrors"
	"github.com/folivafy/folivafy/internal/domain/auth"
	"github.com/folivafy/folivafy/internal/domain/hooks"
	"github.com/folivafy/folivafy/internal/domain/repositories"
	"github.com/folivafy/folivafy/internal/infrastructure/database/models"
	"github.com/folivafy/folivafy/pkg/logger"
)

// CronUserID is the fixed principal cron-driven changes are attributed to.
var CronUserID = uuid.MustParse("cdf5c014-a59a-409e-a40a-56644cd6bad5")

// CronUserName is the display name of the cron principal.
const CronUserName = "System Timer"

const (
	// DefaultCronInterval is the tick period when no interval is configured.
	DefaultCronInterval = time.Minute
	// cronStartupDelay lets the process finish wiring before the first run.
	cronStartupDelay = 8 * time.Second
	// cronBatchSize caps the documents one registration handles per run.
	cronBatchSize = 100
)

// CronDriver wakes up periodically, matches each registered cron hook's
// selector against its collection and runs the hook per document, each in
// its own transaction. Trigger forces an extra run without waiting for the
// next tick.
type CronDriver struct {
	store     repositories.Store
	registry  *hooks.Registry
	data      *DataService
	log       *logger.Logger
	interval  time.Duration
	immediate chan struct{}
}

func NewCronDriver(store repositories.Store, registry *hooks.Registry, data *DataService, log *logger.Logger, interval time.Duration) *CronDriver {
	if interval <= 0 {
		interval = DefaultCronInterval
	}
	return &CronDriver{
		store:    store,
		registry: registry,
		data:     data,
		log:      log.Named("cron"),
		interval: interval,
		// Capacity one: a pending trigger coalesces further triggers.
		immediate: make(chan struct{}, 1),
	}
}

// Trigger requests an immediate cron run. Never blocks; a run already
// pending absorbs the request.
func (c *CronDriver) Trigger() {
	select {
	case c.immediate <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is canceled.
func (c *CronDriver) Run(ctx context.Context) {
	c.log.Info("cron driver starting", "interval", c.interval.String())

	select {
	case <-ctx.Done():
		return
	case <-time.After(cronStartupDelay):
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("cron driver stopped")
			return
		case <-ticker.C:
		case <-c.immediate:
		}
		c.RunOnce(ctx)
	}
}

// RunOnce executes every registration once. Exported so tests and
// maintenance tooling can drive the cron synchronously.
func (c *CronDriver) RunOnce(ctx context.Context) {
	again := false
	for _, reg := range c.registry.CronHooks() {
		rerun, err := c.runRegistration(ctx, reg)
		if err != nil {
			c.log.Error("cron job failed", "job", reg.JobName, "error", err)
			continue
		}
		again = again || rerun
	}
	if again {
		c.Trigger()
	}
}

func (c *CronDriver) runRegistration(ctx context.Context, reg hooks.CronRegistration) (bool, error) {
	collection, err := c.store.Collections().GetByName(ctx, reg.CollectionName)
	if err != nil {
		if apierrors.IsKind(err, apierrors.KindNotFound) {
			// The collection may be created later; not an error.
			return false, nil
		}
		return false, err
	}

	filter := reg.Selector.ToFilter(time.Now().UTC())
	_, rows, err := c.store.Documents().CountAndList(ctx, repositories.DocumentListQuery{
		CollectionID: collection.ID,
		Filter:       &filter,
		Deleted:      repositories.IncludeDeleted,
		Limit:        cronBatchSize,
	})
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}

	triggerAgain := false
	for i := range rows {
		rerun, err := c.processDocument(ctx, reg, rows[i].ID)
		if err != nil {
			c.log.Error("cron document failed",
				"job", reg.JobName, "document", rows[i].ID, "error", err)
			continue
		}
		triggerAgain = triggerAgain || rerun
	}
	return triggerAgain, nil
}

// processDocument runs the hook for one document in its own transaction.
// The document is re-read under lock; if it vanished since selection the
// run is a no-op.
func (c *CronDriver) processDocument(ctx context.Context, reg hooks.CronRegistration, documentID uuid.UUID) (bool, error) {
	caller := auth.NewCaller(CronUserID, CronUserName, nil)
	triggerAgain := false

	err := c.store.WithTransaction(ctx, func(tx repositories.Store) error {
		row, err := tx.Documents().LockForUpdate(ctx, documentID)
		if err != nil {
			if apierrors.IsKind(err, apierrors.KindNotFound) {
				return nil
			}
			return err
		}

		result, err := reg.Hook.OnDefaultInterval(ctx, &hooks.CronContext{
			Before: documentToItem(row),
			After:  documentToItem(row),
			Data:   c.data,
		})
		if err != nil {
			return err
		}
		if result == nil {
			return nil
		}

		if result.Document.IsStore() {
			document := result.Document.Document()
			if err := tx.Documents().UpdateFields(ctx, row.ID, models.JSONB(document.F)); err != nil {
				return err
			}
			if err := appendSyntheticEvent(ctx, tx, row.ID, caller, false); err != nil {
				return err
			}
		}
		if err := appendHookEvents(ctx, tx, CronUserID, result.Events); err != nil {
			return err
		}
		// The cron principal never recomputes defaults; only an explicit
		// replacement touches grants.
		if result.Grants.Mode() == hooks.GrantsReplace {
			if err := tx.Grants().Replace(ctx, row.ID, result.Grants.Grants()); err != nil {
				return err
			}
		}
		if err := enqueueMails(ctx, tx, CronUserID, result.Mails); err != nil {
			return err
		}
		triggerAgain = result.TriggerCron
		return nil
	})
	return triggerAgain, err
}
