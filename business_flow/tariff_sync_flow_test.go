package businessflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbtools/tariffs-keeper/app/dto"
	"github.com/wbtools/tariffs-keeper/models"
	"github.com/wbtools/tariffs-keeper/utils"
)

type stubFetcher struct {
	resp *dto.TariffsBoxResponse
	err  error
}

func (s *stubFetcher) FetchTariffs(ctx context.Context) (*dto.TariffsBoxResponse, error) {
	return s.resp, s.err
}

// stubTariffRepo records calls; methods not under test are no-ops.
type stubTariffRepo struct {
	upserted    []*models.Tariff
	upsertErr   error
	latest      []*models.Tariff
	deleteCalls int
	deleteDays  int
}

func (s *stubTariffRepo) ByID(ctx context.Context, id uint) (*models.Tariff, error) { return nil, nil }
func (s *stubTariffRepo) Save(ctx context.Context, entity *models.Tariff) error     { return nil }
func (s *stubTariffRepo) SaveBatch(ctx context.Context, entities []*models.Tariff) error {
	return nil
}

func (s *stubTariffRepo) UpsertBatch(ctx context.Context, tariffs []*models.Tariff) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserted = append(s.upserted, tariffs...)
	return nil
}

func (s *stubTariffRepo) ByDate(ctx context.Context, date time.Time) ([]*models.Tariff, error) {
	return s.latest, nil
}

func (s *stubTariffRepo) Latest(ctx context.Context) ([]*models.Tariff, error) {
	return s.latest, nil
}

func (s *stubTariffRepo) AllDates(ctx context.Context) ([]time.Time, error) { return nil, nil }

func (s *stubTariffRepo) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	s.deleteCalls++
	s.deleteDays = days
	return 0, nil
}

func sampleResponse() *dto.TariffsBoxResponse {
	return &dto.TariffsBoxResponse{
		Response: &dto.TariffsBoxEnvelope{
			Data: &dto.TariffsBoxData{
				DtNextBox: "2026-09-01",
				DtTillMax: "2026-09-15",
				WarehouseList: []dto.WarehouseTariff{
					{
						WarehouseName:       "Коледино",
						BoxTypeName:         "Короба",
						BoxDeliveryCoefExpr: "160",
						BoxStorageCoefExpr:  "115",
						BoxDeliveryBase:     "48",
						BoxDeliveryLiter:    "11,2",
						BoxStorageBase:      "0,14",
						BoxStorageLiter:     "0,07",
					},
					{
						WarehouseName:       "Электросталь",
						BoxDeliveryCoefExpr: "125",
						BoxStorageCoefExpr:  "130",
						BoxDeliveryBase:     "40",
						BoxDeliveryLiter:    "9,8",
						BoxStorageBase:      "",
						BoxStorageLiter:     "-",
					},
				},
			},
		},
	}
}

func TestSyncOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("PersistsTransformedBatch", func(t *testing.T) {
		repo := &stubTariffRepo{}
		flow := NewTariffSyncFlow(&stubFetcher{resp: sampleResponse()}, repo, nil, nil, 0)

		ok := flow.SyncOnce(ctx)
		require.True(t, ok)
		require.Len(t, repo.upserted, 2)
		assert.Equal(t, "Коледино", repo.upserted[0].WarehouseName)
		assert.Equal(t, "Короба", repo.upserted[0].BoxType)
		assert.Zero(t, repo.deleteCalls)
	})

	t.Run("FetchErrorFails", func(t *testing.T) {
		repo := &stubTariffRepo{}
		flow := NewTariffSyncFlow(&stubFetcher{err: errors.New("boom")}, repo, nil, nil, 0)

		assert.False(t, flow.SyncOnce(ctx))
		assert.Empty(t, repo.upserted)
	})

	t.Run("NilPayloadFails", func(t *testing.T) {
		repo := &stubTariffRepo{}
		flow := NewTariffSyncFlow(&stubFetcher{}, repo, nil, nil, 0)

		assert.False(t, flow.SyncOnce(ctx))
		assert.Empty(t, repo.upserted)
	})

	t.Run("EmptyWarehouseListFails", func(t *testing.T) {
		resp := sampleResponse()
		resp.Response.Data.WarehouseList = []dto.WarehouseTariff{}
		repo := &stubTariffRepo{}
		flow := NewTariffSyncFlow(&stubFetcher{resp: resp}, repo, nil, nil, 0)

		assert.False(t, flow.SyncOnce(ctx))
	})

	t.Run("UpsertErrorFails", func(t *testing.T) {
		repo := &stubTariffRepo{upsertErr: errors.New("db down")}
		flow := NewTariffSyncFlow(&stubFetcher{resp: sampleResponse()}, repo, nil, nil, 0)

		assert.False(t, flow.SyncOnce(ctx))
	})

	t.Run("RetentionSweepRunsAfterPersist", func(t *testing.T) {
		repo := &stubTariffRepo{}
		flow := NewTariffSyncFlow(&stubFetcher{resp: sampleResponse()}, repo, nil, nil, 30)

		require.True(t, flow.SyncOnce(ctx))
		assert.Equal(t, 1, repo.deleteCalls)
		assert.Equal(t, 30, repo.deleteDays)
	})
}

func TestTransformResponse(t *testing.T) {
	asOf := time.Date(2026, 8, 30, 14, 45, 0, 0, time.UTC)

	t.Run("InvalidShapes", func(t *testing.T) {
		for _, resp := range []*dto.TariffsBoxResponse{
			nil,
			{},
			{Response: &dto.TariffsBoxEnvelope{}},
			{Response: &dto.TariffsBoxEnvelope{Data: &dto.TariffsBoxData{}}},
		} {
			tariffs, err := transformResponse(resp, asOf)
			assert.ErrorIs(t, err, ErrInvalidResponseShape)
			assert.Nil(t, tariffs)
		}
	})

	t.Run("FlattensWarehouses", func(t *testing.T) {
		tariffs, err := transformResponse(sampleResponse(), asOf)
		require.NoError(t, err)
		require.Len(t, tariffs, 2)

		first := tariffs[0]
		assert.Equal(t, utils.DateOnly(asOf), first.Date)
		assert.Equal(t, "Коледино", first.WarehouseName)
		assert.Equal(t, "Короба", first.BoxType)
		assert.InDelta(t, 160, first.Coefficient, 1e-9)
		assert.Equal(t, "48", first.DeliveryBase)
		assert.Equal(t, "11.2", first.DeliveryLiter)
		assert.Equal(t, "0.14", first.StorageBase)
		assert.Equal(t, "0.07", first.StorageLiter)
		assert.NotEmpty(t, first.RawData)

		require.NotNil(t, first.DtNextBox)
		assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), *first.DtNextBox)
		require.NotNil(t, first.DtTillMax)
		assert.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), *first.DtTillMax)
	})

	t.Run("CoefficientTakesMoreRestrictiveSide", func(t *testing.T) {
		tariffs, err := transformResponse(sampleResponse(), asOf)
		require.NoError(t, err)
		// Second warehouse: storage 130 beats delivery 125.
		assert.InDelta(t, 130, tariffs[1].Coefficient, 1e-9)
	})

	t.Run("BoxTypeFallback", func(t *testing.T) {
		tariffs, err := transformResponse(sampleResponse(), asOf)
		require.NoError(t, err)
		assert.Equal(t, models.BoxTypeFallback, tariffs[1].BoxType)
	})

	t.Run("ZeroedMissingMetrics", func(t *testing.T) {
		tariffs, err := transformResponse(sampleResponse(), asOf)
		require.NoError(t, err)
		assert.Equal(t, "0", tariffs[1].StorageBase)
		assert.Equal(t, "0", tariffs[1].StorageLiter)
	})

	t.Run("MalformedWindowMapsToNil", func(t *testing.T) {
		resp := sampleResponse()
		resp.Response.Data.DtNextBox = "not-a-date"
		resp.Response.Data.DtTillMax = ""

		tariffs, err := transformResponse(resp, asOf)
		require.NoError(t, err)
		assert.Nil(t, tariffs[0].DtNextBox)
		assert.Nil(t, tariffs[0].DtTillMax)
	})
}

func TestParseUpstreamTime(t *testing.T) {
	t.Run("RFC3339", func(t *testing.T) {
		got := parseUpstreamTime("2026-09-01T12:30:00Z")
		require.NotNil(t, got)
		assert.Equal(t, time.Date(2026, 9, 1, 12, 30, 0, 0, time.UTC), *got)
	})

	t.Run("BareDate", func(t *testing.T) {
		got := parseUpstreamTime("2026-09-01")
		require.NotNil(t, got)
		assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), *got)
	})

	t.Run("EmptyAndGarbage", func(t *testing.T) {
		assert.Nil(t, parseUpstreamTime(""))
		assert.Nil(t, parseUpstreamTime("soon"))
	})
}
