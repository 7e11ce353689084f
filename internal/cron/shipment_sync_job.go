package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/shipdesk/shipdesk-backend/internal/shipments"
	pkgerrors "github.com/shipdesk/shipdesk-backend/pkg/errors"
	"github.com/shipdesk/shipdesk-backend/pkg/logger"
	"github.com/shipdesk/shipdesk-backend/pkg/metrics"
)

const (
	shipmentSyncJobName   = "shipment_status_sync"
	defaultSyncStaleAfter = 30 * time.Minute
	defaultSyncBatchSize  = 100
	defaultSyncMaxPerRun  = 1000
	syncResultUpdated     = "updated"
	syncResultUnchanged   = "unchanged"
	syncResultSkipped     = "skipped"
	syncResultFailed      = "failed"
)

type shipmentRefresher interface {
	Refresh(ctx context.Context, ownerID, shipmentID uuid.UUID) (*shipments.ShipmentDTO, error)
}

// ShipmentSyncParams configure the shipment status sync job.
type ShipmentSyncParams struct {
	Lister     shipments.InFlightLister
	Refresher  shipmentRefresher
	Metrics    *metrics.CronJobMetrics
	Logger     *logger.Logger
	StaleAfter time.Duration
	BatchSize  int
	MaxPerRun  int
	Now        func() time.Time
}

// ShipmentSyncJob polls the carrier for shipments that have not reached a
// terminal status and were not refreshed recently.
type ShipmentSyncJob struct {
	lister     shipments.InFlightLister
	refresher  shipmentRefresher
	metrics    *metrics.CronJobMetrics
	logg       *logger.Logger
	staleAfter time.Duration
	batchSize  int
	maxPerRun  int
	now        func() time.Time
}

func NewShipmentSyncJob(params ShipmentSyncParams) (*ShipmentSyncJob, error) {
	if params.Lister == nil {
		return nil, fmt.Errorf("in-flight lister required")
	}
	if params.Refresher == nil {
		return nil, fmt.Errorf("shipment refresher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	job := &ShipmentSyncJob{
		lister:     params.Lister,
		refresher:  params.Refresher,
		metrics:    params.Metrics,
		logg:       params.Logger,
		staleAfter: params.StaleAfter,
		batchSize:  params.BatchSize,
		maxPerRun:  params.MaxPerRun,
		now:        params.Now,
	}
	if job.staleAfter <= 0 {
		job.staleAfter = defaultSyncStaleAfter
	}
	if job.batchSize <= 0 {
		job.batchSize = defaultSyncBatchSize
	}
	if job.maxPerRun <= 0 {
		job.maxPerRun = defaultSyncMaxPerRun
	}
	if job.now == nil {
		job.now = time.Now
	}
	return job, nil
}

func (j *ShipmentSyncJob) Name() string { return shipmentSyncJobName }

// Run refreshes every stale in-flight shipment once, up to maxPerRun. Owners
// whose carrier settings are gone are skipped; other failures are collected
// and reported together after the run.
func (j *ShipmentSyncJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.staleAfter)
	var (
		afterID uuid.UUID
		visited int
		failed  int
		errs    error
		counts  = map[string]int{}
	)

	for visited < j.maxPerRun {
		limit := j.batchSize
		if remaining := j.maxPerRun - visited; remaining < limit {
			limit = remaining
		}
		rows, err := j.lister.ListInFlight(ctx, cutoff, afterID, limit)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("list in-flight shipments: %w", err))
		}
		for _, row := range rows {
			if ctx.Err() != nil {
				return multierr.Append(errs, ctx.Err())
			}
			result, err := j.refreshOne(ctx, row.UserID, row.ID, row.Status.String())
			counts[result]++
			j.metrics.IncSyncItem(result)
			if err != nil {
				failed++
				errs = multierr.Append(errs, fmt.Errorf("shipment %s: %w", row.ID, err))
			}
		}
		visited += len(rows)
		if len(rows) < limit {
			break
		}
		afterID = rows[len(rows)-1].ID
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"visited":   visited,
		"updated":   counts[syncResultUpdated],
		"unchanged": counts[syncResultUnchanged],
		"skipped":   counts[syncResultSkipped],
		"failed":    failed,
	}), "shipment_sync.summary")

	if errs != nil {
		return fmt.Errorf("%d of %d shipments failed to refresh: %w", failed, visited, errs)
	}
	return nil
}

func (j *ShipmentSyncJob) refreshOne(ctx context.Context, ownerID, shipmentID uuid.UUID, previous string) (string, error) {
	dto, err := j.refresher.Refresh(ctx, ownerID, shipmentID)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeConfiguration) {
			j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
				"owner_id":    ownerID.String(),
				"shipment_id": shipmentID.String(),
			}), "shipment_sync.carrier_not_configured")
			return syncResultSkipped, nil
		}
		return syncResultFailed, err
	}
	if dto.Status.String() != previous {
		return syncResultUpdated, nil
	}
	return syncResultUnchanged, nil
}
