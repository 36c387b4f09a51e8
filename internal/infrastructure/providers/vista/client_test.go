package vista_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	config "github.com/KairamCabral/Site-imobiliaria-pharos-sub004/configs"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers/upstream"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers/vista"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
)

func newClient(srv *httptest.Server) *vista.Client {
	return vista.NewClient(
		config.VistaConfig{BaseURL: srv.URL + "/", APIKey: "secret"},
		upstream.Config{Timeout: time.Second, RequestsPerSec: 1000, Burst: 100, BreakerFailures: 2, BreakerOpenAfter: time.Minute},
		nil, nil,
	)
}

func TestClient_ListPreservesOrderAndReadsPaging(t *testing.T) {
	var pesquisa map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/imoveis/listar", r.URL.Path)
		require.Equal(t, "secret", r.URL.Query().Get("key"))
		require.Equal(t, "1", r.URL.Query().Get("showtotal"))
		require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("pesquisa")), &pesquisa))
		_, _ = w.Write([]byte(`{"Z9":{"Codigo":"Z9"},"A1":{"Codigo":"A1"},"M5":{"Codigo":"M5"},"total":"41","paginas":3,"pagina":2,"quantidade":20}`))
	}))
	defer srv.Close()

	minBeds := 2
	res, err := newClient(srv).ListProperties(context.Background(),
		property.Filters{City: "Itajaí", Type: property.TypeApartment, MinBedrooms: &minBeds},
		property.Pagination{Page: 2, Limit: 20},
	)
	require.NoError(t, err)

	require.Equal(t, 41, res.Total)
	require.Equal(t, 2, res.Page)
	require.Equal(t, 20, res.Limit)
	require.Len(t, res.Items, 3)
	var codes []string
	for _, item := range res.Items {
		require.Equal(t, "vista", item.Provider)
		var rec struct{ Codigo string }
		require.NoError(t, json.Unmarshal(item.Payload, &rec))
		codes = append(codes, rec.Codigo)
	}
	require.Equal(t, []string{"Z9", "A1", "M5"}, codes)

	filter := pesquisa["filter"].(map[string]any)
	require.Equal(t, "Itajaí", filter["Cidade"])
	require.Equal(t, "Apartamento", filter["Categoria"])
	require.Equal(t, []any{">=", float64(2)}, filter["Dormitorios"])
	require.Equal(t, map[string]any{"pagina": float64(2), "quantidade": float64(20)}, pesquisa["paginacao"])
}

func TestClient_ListEmptyArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	res, err := newClient(srv).ListProperties(context.Background(), property.Filters{}, property.Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Empty(t, res.Items)
	require.Equal(t, 0, res.Total)
	require.Equal(t, 1, res.Page)
}

func TestClient_GetProperty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/imoveis/detalhes", r.URL.Path)
		if r.URL.Query().Get("imovel") == "AP1" {
			_, _ = w.Write([]byte(`{"Codigo":"AP1","Categoria":"Casa"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":400,"message":"Imóvel não encontrado"}`))
	}))
	defer srv.Close()
	c := newClient(srv)

	rec, err := c.GetProperty(context.Background(), "AP1")
	require.NoError(t, err)
	require.Equal(t, "vista", rec.Provider)
	require.JSONEq(t, `{"Codigo":"AP1","Categoria":"Casa"}`, string(rec.Payload))

	_, err = c.GetProperty(context.Background(), "missing")
	require.ErrorIs(t, err, property.ErrNotFound)
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	c := newClient(srv)

	for i := 0; i < 2; i++ {
		_, err := c.ListProperties(context.Background(), property.Filters{}, property.Pagination{Page: 1, Limit: 10})
		var se *upstream.StatusError
		require.True(t, errors.As(err, &se))
		require.Equal(t, http.StatusBadGateway, se.StatusCode)
	}
	require.Equal(t, gobreaker.StateOpen, c.Upstream().BreakerState())

	_, err := c.ListProperties(context.Background(), property.Filters{}, property.Pagination{Page: 1, Limit: 10})
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.Equal(t, int32(2), hits.Load())
}
