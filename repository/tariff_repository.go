package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wbtools/tariffs-keeper/models"
	"github.com/wbtools/tariffs-keeper/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TariffRepositoryImpl implements TariffRepository
type TariffRepositoryImpl struct {
	*BaseRepository[models.Tariff, models.TariffFilter]
}

// NewTariffRepository creates a new repository for tariff records
func NewTariffRepository(db *gorm.DB) TariffRepository {
	return &TariffRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Tariff, models.TariffFilter](db),
	}
}

// upsertMergeColumns is the field subset refreshed on a natural-key
// conflict. id and created_at stay untouched.
var upsertMergeColumns = []string{
	"coefficient",
	"dt_next_box",
	"dt_till_max",
	"delivery_base",
	"delivery_liter",
	"storage_base",
	"storage_liter",
	"raw_data",
	"updated_at",
}

// UpsertBatch inserts or merges tariff rows keyed on (date, warehouse_name, box_type).
func (r *TariffRepositoryImpl) UpsertBatch(ctx context.Context, tariffs []*models.Tariff) error {
	if len(tariffs) == 0 {
		return nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	now := utils.UTCNow()
	for _, t := range tariffs {
		t.UpdatedAt = now
	}

	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "date"},
			{Name: "warehouse_name"},
			{Name: "box_type"},
		},
		DoUpdates: clause.AssignmentColumns(upsertMergeColumns),
	}).CreateInBatches(tariffs, 100).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %d tariff records: %w", len(tariffs), err)
	}

	return nil
}

// ByDate returns tariffs for one calendar day ordered by coefficient ascending.
func (r *TariffRepositoryImpl) ByDate(ctx context.Context, date time.Time) ([]*models.Tariff, error) {
	db := r.getDB(ctx)

	var rows []*models.Tariff
	err := db.
		Where("date = ?", utils.DateOnly(date)).
		Order("coefficient ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find tariffs for date %s: %w", utils.FormatDate(date), err)
	}

	return rows, nil
}

// Latest returns the full snapshot for the most recent stored date.
// An empty table is a designed empty result, not an error.
func (r *TariffRepositoryImpl) Latest(ctx context.Context) ([]*models.Tariff, error) {
	db := r.getDB(ctx)

	var maxDate sql.NullTime
	err := db.Model(&models.Tariff{}).
		Select("MAX(date)").
		Scan(&maxDate).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve latest tariff date: %w", err)
	}
	if !maxDate.Valid {
		return []*models.Tariff{}, nil
	}

	return r.ByDate(ctx, maxDate.Time)
}

// AllDates returns distinct stored dates, newest first.
func (r *TariffRepositoryImpl) AllDates(ctx context.Context) ([]time.Time, error) {
	db := r.getDB(ctx)

	var dates []time.Time
	err := db.Model(&models.Tariff{}).
		Distinct("date").
		Order("date DESC").
		Pluck("date", &dates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tariff dates: %w", err)
	}

	return dates, nil
}

// DeleteOlderThan removes rows dated strictly before (today - days).
func (r *TariffRepositoryImpl) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		days = utils.DefaultRetentionDays
	}

	cutoff := utils.UTCToday().AddDate(0, 0, -days)

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	res := db.Where("date < ?", cutoff).Delete(&models.Tariff{})
	if res.Error != nil {
		err = fmt.Errorf("failed to delete tariffs older than %d days: %w", days, res.Error)
		return 0, err
	}

	return res.RowsAffected, nil
}
