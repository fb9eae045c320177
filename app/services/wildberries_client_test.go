package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbtools/tariffs-keeper/utils"
)

const tariffsBody = `{
	"response": {
		"data": {
			"dtNextBox": "2026-09-01",
			"dtTillMax": "2026-09-15",
			"warehouseList": [
				{
					"warehouseName": "Коледино",
					"boxDeliveryCoefExpr": "160",
					"boxStorageCoefExpr": "115",
					"boxDeliveryBase": "48",
					"boxDeliveryLiter": "11,2",
					"boxStorageBase": "0,14",
					"boxStorageLiter": "0,07"
				}
			]
		}
	}
}`

func newTestClient(t *testing.T, baseURL, token string) *WildberriesClient {
	t.Helper()
	return NewWildberriesClient(baseURL, token, 5*time.Second, utils.DefaultMaxRetries, time.Millisecond, nil, nil)
}

func TestFetchTariffs(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			assert.Equal(t, utils.TariffsBoxPath, r.URL.Path)
			assert.Equal(t, utils.FormatDate(utils.UTCNow()), r.URL.Query().Get("date"))
			w.Write([]byte(tariffsBody))
		}))
		defer srv.Close()

		resp, err := newTestClient(t, srv.URL, "").FetchTariffs(ctx)
		require.NoError(t, err)
		require.NotNil(t, resp)
		require.NotNil(t, resp.Response)
		require.NotNil(t, resp.Response.Data)
		require.Len(t, resp.Response.Data.WarehouseList, 1)
		assert.Equal(t, "Коледино", resp.Response.Data.WarehouseList[0].WarehouseName)
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("BearerTokenSent", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			w.Write([]byte(tariffsBody))
		}))
		defer srv.Close()

		resp, err := newTestClient(t, srv.URL, "secret").FetchTariffs(ctx)
		require.NoError(t, err)
		assert.NotNil(t, resp)
	})

	t.Run("RetriesServerErrorsThenSucceeds", func(t *testing.T) {
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(tariffsBody))
		}))
		defer srv.Close()

		resp, err := newTestClient(t, srv.URL, "").FetchTariffs(ctx)
		require.NoError(t, err)
		assert.NotNil(t, resp)
		assert.Equal(t, int64(3), calls.Load())
	})

	t.Run("ExhaustedRetriesYieldNil", func(t *testing.T) {
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		resp, err := newTestClient(t, srv.URL, "").FetchTariffs(ctx)
		require.NoError(t, err)
		assert.Nil(t, resp)
		assert.Equal(t, int64(utils.DefaultMaxRetries), calls.Load())
	})

	t.Run("ClientErrorIsTerminal", func(t *testing.T) {
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		resp, err := newTestClient(t, srv.URL, "").FetchTariffs(ctx)
		require.NoError(t, err)
		assert.Nil(t, resp)
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("MalformedBodyRetried", func(t *testing.T) {
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Write([]byte("{not json"))
		}))
		defer srv.Close()

		resp, err := newTestClient(t, srv.URL, "").FetchTariffs(ctx)
		require.NoError(t, err)
		assert.Nil(t, resp)
		assert.Equal(t, int64(utils.DefaultMaxRetries), calls.Load())
	})

	t.Run("MissingEnvelopeRetried", func(t *testing.T) {
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Write([]byte(`{"unexpected": true}`))
		}))
		defer srv.Close()

		resp, err := newTestClient(t, srv.URL, "").FetchTariffs(ctx)
		require.NoError(t, err)
		assert.Nil(t, resp)
		assert.Equal(t, int64(utils.DefaultMaxRetries), calls.Load())
	})

	t.Run("NetworkFaultRetried", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // connection refused from here on

		resp, err := newTestClient(t, srv.URL, "").FetchTariffs(ctx)
		require.NoError(t, err)
		assert.Nil(t, resp)
	})

	t.Run("ContextCancelledBetweenRetries", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		cancelCtx, cancel := context.WithCancel(ctx)
		cancel()

		c := NewWildberriesClient(srv.URL, "", 5*time.Second, utils.DefaultMaxRetries, time.Minute, nil, nil)

		resp, err := c.FetchTariffs(cancelCtx)
		assert.Error(t, err)
		assert.Nil(t, resp)
	})
}
