package qualer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/wirecert-sync/internal/common"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "secret"}, nil)
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresToken(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "http://example"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestServiceRecords(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/assets/1235400/assetservicerecords", r.URL.Path)
		assert.Equal(t, "Api-Token secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[
			{"AssetId": 1235400, "AssetTag": "WS 1", "SerialNumber": "S1", "CustomOrderNumber": "CO-1",
			 "CertificateNumber": "C-1", "ServiceDate": "2024-03-01T00:00:00", "NextServiceDate": "2025-03-01T00:00:00", "Extra": true},
			{"AssetId": 1235400, "AssetTag": null, "SerialNumber": null, "CustomOrderNumber": null,
			 "CertificateNumber": null, "ServiceDate": null, "NextServiceDate": null}
		]`))
	})

	recs, err := c.ServiceRecords(context.Background(), 1235400)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, int64(1235400), recs[0].AssetID)
	assert.Equal(t, "WS 1", recs[0].AssetTag)
	assert.Equal(t, "CO-1", recs[0].CustomOrderNumber)
	require.NotNil(t, recs[0].ServiceDate)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *recs[0].ServiceDate)
	assert.Nil(t, recs[1].ServiceDate)
	assert.Empty(t, recs[1].AssetTag)
}

func TestServiceRecords_SchemaMismatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"AssetId": "not-a-number"}]`))
	})
	_, err := c.ServiceRecords(context.Background(), 1)
	require.Error(t, err)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeDecode, appErr.Code)
}

func TestWorkItemsAndDocuments(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/service/workitems":
			assert.Equal(t, "CO-7", r.URL.Query().Get("workItemNumber"))
			_, _ = w.Write([]byte(`[{"WorkItemNumber":"CO-7","ServiceOrderId":55,"AssetId":9},{"ServiceOrderId":56,"AssetId":null}]`))
		case "/api/service/workorders/55/documents":
			_, _ = w.Write([]byte(`[{"DocumentName":"WS9_cert.pdf","Guid":"g-1"}]`))
		case "/api/service/workorders/55/documents/g-1":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.7"))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	items, err := c.WorkItems(ctx, "CO-7")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(55), items[0].ServiceOrderID)
	assert.Equal(t, int64(9), items[0].AssetID)
	assert.Equal(t, "CO-7", items[1].WorkItemNumber)
	assert.Zero(t, items[1].AssetID)

	docs, err := c.Documents(ctx, 55)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "g-1", docs[0].GUID)
	assert.Equal(t, int64(55), docs[0].ServiceOrderID)

	pdf, err := c.Download(ctx, 55, "g-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), pdf)

	_, err = c.Download(ctx, 55, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAssets(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "CollectedAssets", r.URL.Query().Get("model_filter_type"))
		_, _ = w.Write([]byte(`[{"AssetId":1,"AssetName":"Wire set","AssetTag":"WS 1","SerialNumber":null}]`))
	})
	assets, err := c.Assets(context.Background(), "CollectedAssets")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "Wire set", assets[0].AssetName)
}

func TestCollectAssets(t *testing.T) {
	var got []int64
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/assets/collect", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Api-Token secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.CollectAssets(context.Background(), []int64{1235400, 2635568}))
	assert.Equal(t, []int64{1235400, 2635568}, got)
}

func TestCollectAssets_NothingToSend(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})
	require.NoError(t, c.CollectAssets(context.Background(), nil))
}

func TestCollectAssets_RemoteError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"Message":"unknown asset"}`))
	})
	err := c.CollectAssets(context.Background(), []int64{1})
	require.Error(t, err)
	assert.ErrorContains(t, err, "collect 1 assets")
}

func TestUnauthorizedStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"Message":"bad token"}`))
	})
	_, err := c.WorkItems(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	assert.ErrorContains(t, err, "bad token")
}
