package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wbtools/tariffs-keeper/app/dto"
	"github.com/wbtools/tariffs-keeper/metrics"
	"github.com/wbtools/tariffs-keeper/models"
	"github.com/wbtools/tariffs-keeper/repository"
	"github.com/wbtools/tariffs-keeper/utils"
	"github.com/xuri/excelize/v2"
)

const snapshotCacheKey = "tariffs:latest_snapshot"

// TariffExportFlow republishes the latest tariff snapshot into XLSX
// workbooks for business consumption.
type TariffExportFlow interface {
	// ExportLatest rewrites every configured workbook with the current
	// snapshot. Per-workbook failures are tolerated; the error is
	// non-nil only when nothing useful happened.
	ExportLatest(ctx context.Context) error
}

// TariffExportFlowImpl implements TariffExportFlow
type TariffExportFlowImpl struct {
	repo      repository.TariffRepository
	cache     *redis.Client // optional read-through cache of the snapshot
	cacheTTL  time.Duration
	outputDir string
	workbooks []string
	logger    *log.Logger
}

// NewTariffExportFlow creates the snapshot export flow. cache may be nil.
func NewTariffExportFlow(
	repo repository.TariffRepository,
	cache *redis.Client,
	cacheTTL time.Duration,
	outputDir string,
	workbooks []string,
	logger *log.Logger,
) TariffExportFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &TariffExportFlowImpl{
		repo:      repo,
		cache:     cache,
		cacheTTL:  cacheTTL,
		outputDir: outputDir,
		workbooks: workbooks,
		logger:    logger,
	}
}

func (f *TariffExportFlowImpl) ExportLatest(ctx context.Context) error {
	if len(f.workbooks) == 0 {
		return ErrExportNotConfigured
	}

	start := time.Now()
	defer func() {
		metrics.ObserveSheetsExportDuration(time.Since(start))
	}()

	rows, err := f.latestSnapshotRows(ctx)
	if err != nil {
		metrics.RecordSheetsExport("error")
		return err
	}
	if len(rows) == 0 {
		metrics.RecordSheetsExport("error")
		return ErrEmptySnapshot
	}

	if err := os.MkdirAll(f.outputDir, 0o755); err != nil {
		metrics.RecordSheetsExport("error")
		return fmt.Errorf("failed to create export directory %s: %w", f.outputDir, err)
	}

	var succeeded, failed int
	for _, name := range f.workbooks {
		path := filepath.Join(f.outputDir, name)
		if err := writeSnapshotWorkbook(path, rows); err != nil {
			failed++
			f.logger.Printf("export: workbook %s failed: %v", path, err)
			continue
		}
		succeeded++
	}

	f.logger.Printf("export: snapshot with %d rows written to %d workbooks (%d failed)", len(rows), succeeded, failed)

	if succeeded == 0 {
		metrics.RecordSheetsExport("error")
		return fmt.Errorf("all %d workbook exports failed", failed)
	}

	metrics.RecordSheetsExport("success")
	return nil
}

// latestSnapshotRows reads the six-column projection, through the cache
// when one is configured. Cache faults degrade to a direct read.
func (f *TariffExportFlowImpl) latestSnapshotRows(ctx context.Context) ([]dto.SnapshotRow, error) {
	if f.cache != nil {
		if payload, err := f.cache.Get(ctx, snapshotCacheKey).Bytes(); err == nil {
			var rows []dto.SnapshotRow
			if err := json.Unmarshal(payload, &rows); err == nil {
				return rows, nil
			}
		}
	}

	start := time.Now()
	tariffs, err := f.repo.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}
	metrics.ObserveDBOperation("latest", time.Since(start))

	rows := BuildSnapshotRows(tariffs)

	if f.cache != nil && len(rows) > 0 {
		if payload, err := json.Marshal(rows); err == nil {
			if err := f.cache.Set(ctx, snapshotCacheKey, payload, f.cacheTTL).Err(); err != nil {
				f.logger.Printf("export: snapshot cache write failed: %v", err)
			}
		}
	}

	return rows, nil
}

// BuildSnapshotRows maps tariff records, already ordered by coefficient
// ascending, into the fixed export projection.
func BuildSnapshotRows(tariffs []*models.Tariff) []dto.SnapshotRow {
	rows := make([]dto.SnapshotRow, 0, len(tariffs))
	for _, t := range tariffs {
		rows = append(rows, dto.SnapshotRow{
			WarehouseName: t.WarehouseName,
			BoxType:       t.BoxType,
			Coefficient:   strconv.FormatFloat(t.Coefficient, 'f', -1, 64),
			Date:          utils.FormatDate(t.Date),
			DtNextBox:     utils.FormatDatePtr(t.DtNextBox),
			DtTillMax:     utils.FormatDatePtr(t.DtTillMax),
		})
	}
	return rows
}

var snapshotHeader = []string{"Склад", "Тип коробки", "Коэффициент", "Дата обновления", "Дата следующей коробки", "Дата до максимума"}

// writeSnapshotWorkbook rewrites one XLSX file with the snapshot sheet.
func writeSnapshotWorkbook(path string, rows []dto.SnapshotRow) error {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	xl.SetSheetName(xl.GetSheetName(0), utils.SnapshotSheetName)

	if err := xl.SetSheetRow(utils.SnapshotSheetName, "A1", &snapshotHeader); err != nil {
		return err
	}

	for i, row := range rows {
		record := []string{
			row.WarehouseName,
			row.BoxType,
			row.Coefficient,
			row.Date,
			row.DtNextBox,
			row.DtTillMax,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := xl.SetSheetRow(utils.SnapshotSheetName, cell, &record); err != nil {
			return err
		}
	}

	return xl.SaveAs(path)
}
