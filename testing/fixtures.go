// Package testing provides test utilities and database setup for the tariff keeper
package testing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wbtools/tariffs-keeper/models"
	"github.com/wbtools/tariffs-keeper/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestTariff persists a tariff row for the given day and warehouse
func (tf *TestFixtures) CreateTestTariff(date time.Time, warehouseName, boxType string, coefficient float64) (*models.Tariff, error) {
	raw, _ := json.Marshal(map[string]string{"warehouseName": warehouseName})

	tariff := &models.Tariff{
		Date:          utils.DateOnly(date),
		WarehouseName: warehouseName,
		BoxType:       boxType,
		Coefficient:   coefficient,
		DtNextBox:     utils.ToPtr(utils.DateOnly(date).AddDate(0, 0, 1)),
		DtTillMax:     utils.ToPtr(utils.DateOnly(date).AddDate(0, 0, 7)),
		DeliveryBase:  "48",
		DeliveryLiter: "11.2",
		StorageBase:   "0.14",
		StorageLiter:  "0.07",
		RawData:       raw,
	}

	if err := tf.DB.DB.Create(tariff).Error; err != nil {
		return nil, fmt.Errorf("failed to create test tariff: %w", err)
	}

	return tariff, nil
}

// CreateTestDay persists one tariff row per warehouse name for a single day,
// with coefficients spaced 0.5 apart starting at the given base.
func (tf *TestFixtures) CreateTestDay(date time.Time, baseCoefficient float64, warehouses ...string) ([]*models.Tariff, error) {
	tariffs := make([]*models.Tariff, 0, len(warehouses))
	for i, wh := range warehouses {
		t, err := tf.CreateTestTariff(date, wh, models.BoxTypeFallback, baseCoefficient+float64(i)*0.5)
		if err != nil {
			return nil, err
		}
		tariffs = append(tariffs, t)
	}
	return tariffs, nil
}
