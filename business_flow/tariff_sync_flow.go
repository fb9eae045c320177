package businessflow

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/wbtools/tariffs-keeper/app/dto"
	"github.com/wbtools/tariffs-keeper/metrics"
	"github.com/wbtools/tariffs-keeper/models"
	"github.com/wbtools/tariffs-keeper/repository"
	"github.com/wbtools/tariffs-keeper/utils"
)

// TariffFetcher is the slice of the WB client the sync flow needs.
// A nil response with a nil error means the attempt budget was exhausted
// or a terminal client error occurred; only unexpected internal faults
// surface as errors.
type TariffFetcher interface {
	FetchTariffs(ctx context.Context) (*dto.TariffsBoxResponse, error)
}

// TariffSyncFlow runs one fetch-transform-persist round
type TariffSyncFlow interface {
	// SyncOnce reports true when at least one record was fetched and
	// durably written. It never panics past its own boundary.
	SyncOnce(ctx context.Context) bool
}

// TariffSyncFlowImpl implements TariffSyncFlow
type TariffSyncFlowImpl struct {
	fetcher       TariffFetcher
	repo          repository.TariffRepository
	cache         *redis.Client // optional; nil disables invalidation
	logger        *log.Logger
	retentionDays int
}

// NewTariffSyncFlow creates the pipeline orchestrator. cache may be nil.
func NewTariffSyncFlow(
	fetcher TariffFetcher,
	repo repository.TariffRepository,
	cache *redis.Client,
	logger *log.Logger,
	retentionDays int,
) TariffSyncFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &TariffSyncFlowImpl{
		fetcher:       fetcher,
		repo:          repo,
		cache:         cache,
		logger:        logger,
		retentionDays: retentionDays,
	}
}

func (f *TariffSyncFlowImpl) SyncOnce(ctx context.Context) (ok bool) {
	runID := uuid.New().String()[:8]

	defer func() {
		if r := recover(); r != nil {
			f.logger.Printf("sync %s: recovered from panic: %v", runID, r)
			ok = false
		}
	}()

	f.logger.Printf("sync %s: starting tariff fetch and save", runID)

	resp, err := f.fetcher.FetchTariffs(ctx)
	if err != nil {
		f.logger.Printf("sync %s: fetch failed: %v", runID, err)
		return false
	}
	if resp == nil {
		f.logger.Printf("sync %s: no payload from WB API", runID)
		return false
	}

	drafts, err := transformResponse(resp, utils.UTCNow())
	if err != nil {
		f.logger.Printf("sync %s: transform skipped: %v", runID, err)
		return false
	}
	if len(drafts) == 0 {
		f.logger.Printf("sync %s: %v", runID, ErrNoTariffData)
		return false
	}

	start := time.Now()
	if err := f.repo.UpsertBatch(ctx, drafts); err != nil {
		f.logger.Printf("sync %s: upsert failed: %v", runID, err)
		return false
	}
	metrics.ObserveDBOperation("upsert_batch", time.Since(start))
	metrics.RecordTariffsProcessed(len(drafts))

	f.invalidateSnapshotCache(ctx, runID)
	f.sweepRetention(ctx, runID)

	f.logger.Printf("sync %s: persisted %d tariff records", runID, len(drafts))
	return true
}

// invalidateSnapshotCache drops the cached latest snapshot so the next
// export reads the fresh rows. Best effort.
func (f *TariffSyncFlowImpl) invalidateSnapshotCache(ctx context.Context, runID string) {
	if f.cache == nil {
		return
	}
	if err := f.cache.Del(ctx, snapshotCacheKey).Err(); err != nil {
		f.logger.Printf("sync %s: snapshot cache invalidation failed: %v", runID, err)
	}
}

// sweepRetention removes rows past the retention threshold. The batch is
// already durable at this point, so a failed sweep does not flip the
// run outcome.
func (f *TariffSyncFlowImpl) sweepRetention(ctx context.Context, runID string) {
	if f.retentionDays <= 0 {
		return
	}
	start := time.Now()
	removed, err := f.repo.DeleteOlderThan(ctx, f.retentionDays)
	if err != nil {
		f.logger.Printf("sync %s: retention sweep failed: %v", runID, err)
		return
	}
	metrics.ObserveDBOperation("delete_older_than", time.Since(start))
	if removed > 0 {
		f.logger.Printf("sync %s: retention sweep removed %d records older than %d days", runID, removed, f.retentionDays)
	}
}

// transformResponse flattens one upstream payload into tariff rows.
// Every row carries the run's calendar day and the payload's shared
// validity window. A payload without its data envelope or warehouse
// list yields ErrInvalidResponseShape.
func transformResponse(resp *dto.TariffsBoxResponse, asOf time.Time) ([]*models.Tariff, error) {
	if resp == nil || resp.Response == nil || resp.Response.Data == nil || resp.Response.Data.WarehouseList == nil {
		return nil, ErrInvalidResponseShape
	}

	data := resp.Response.Data
	date := utils.DateOnly(asOf)
	dtNextBox := parseUpstreamTime(data.DtNextBox)
	dtTillMax := parseUpstreamTime(data.DtTillMax)

	tariffs := make([]*models.Tariff, 0, len(data.WarehouseList))
	for i := range data.WarehouseList {
		wh := &data.WarehouseList[i]

		// The ranking coefficient reflects whichever side (delivery or
		// storage) is currently more restrictive.
		coefficient := max(
			ParseCoefficientExpr(wh.BoxDeliveryCoefExpr),
			ParseCoefficientExpr(wh.BoxStorageCoefExpr),
		)

		boxType := wh.BoxTypeName
		if boxType == "" {
			boxType = models.BoxTypeFallback
		}

		raw, err := json.Marshal(wh)
		if err != nil {
			raw = []byte("{}")
		}

		tariffs = append(tariffs, &models.Tariff{
			Date:          date,
			WarehouseName: wh.WarehouseName,
			BoxType:       boxType,
			Coefficient:   coefficient,
			DtNextBox:     dtNextBox,
			DtTillMax:     dtTillMax,
			DeliveryBase:  NormalizeDecimal(wh.BoxDeliveryBase),
			DeliveryLiter: NormalizeDecimal(wh.BoxDeliveryLiter),
			StorageBase:   NormalizeDecimal(wh.BoxStorageBase),
			StorageLiter:  NormalizeDecimal(wh.BoxStorageLiter),
			RawData:       raw,
		})
	}

	return tariffs, nil
}

// parseUpstreamTime reads a WB timestamp, which arrives either as a full
// RFC3339 instant or a bare calendar day. Absent or malformed values map
// to nil, never to an error.
func parseUpstreamTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, utils.DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return utils.ToPtr(t.UTC())
		}
	}
	return nil
}
