package dwv_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	config "github.com/KairamCabral/Site-imobiliaria-pharos-sub004/configs"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers/dwv"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers/upstream"
	"github.com/stretchr/testify/require"
)

func newClient(srv *httptest.Server) *dwv.Client {
	return dwv.NewClient(
		config.DWVConfig{BaseURL: srv.URL, Token: "tok"},
		upstream.Config{Timeout: time.Second, RequestsPerSec: 1000, Burst: 100},
		nil, nil,
	)
}

func TestClient_List(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/properties", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.Equal(t, "3", r.URL.Query().Get("page"))
		require.Equal(t, "12", r.URL.Query().Get("limit"))
		require.Equal(t, "Itapema", r.URL.Query().Get("city"))
		require.Equal(t, "500000", r.URL.Query().Get("min_price"))
		require.Empty(t, r.URL.Query().Get("type"))
		_, _ = w.Write([]byte(`{"data":[{"id":1},{"id":2}],"total":26,"page":3,"limit":12}`))
	}))
	defer srv.Close()

	minPrice := 500000.0
	res, err := newClient(srv).ListProperties(context.Background(),
		property.Filters{City: "Itapema", MinPrice: &minPrice},
		property.Pagination{Page: 3, Limit: 12},
	)
	require.NoError(t, err)
	require.Equal(t, 26, res.Total)
	require.Equal(t, 3, res.Page)
	require.Len(t, res.Items, 2)
	require.Equal(t, "dwv", res.Items[1].Provider)
	require.JSONEq(t, `{"id":2}`, string(res.Items[1].Payload))
}

func TestClient_GetProperty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/properties/10":
			_, _ = w.Write([]byte(`{"data":{"id":10,"code":"C10"}}`))
		case "/v1/properties/11":
			_, _ = w.Write([]byte(`{"id":11,"code":"C11"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := newClient(srv)

	rec, err := c.GetProperty(context.Background(), "10")
	require.NoError(t, err)
	require.JSONEq(t, `{"id":10,"code":"C10"}`, string(rec.Payload))

	rec, err = c.GetProperty(context.Background(), "11")
	require.NoError(t, err)
	require.JSONEq(t, `{"id":11,"code":"C11"}`, string(rec.Payload))

	_, err = c.GetProperty(context.Background(), "404")
	require.ErrorIs(t, err, property.ErrNotFound)
}
