package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/application/services"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/ports"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers/vista"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/test/mocks"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	items []ports.FeedItem
	err   error
}

func (r *recordingSink) Upsert(_ context.Context, item ports.FeedItem) error {
	if r.err != nil {
		return r.err
	}
	r.items = append(r.items, item)
	return nil
}

func pagedVista(total int) *mocks.PropertyProviderMock {
	return &mocks.PropertyProviderMock{
		NameValue: "vista",
		ListPropertiesFn: func(_ context.Context, _ property.Filters, p property.Pagination) (*ports.ListResult, error) {
			var items []ports.RawRecord
			for i := p.Offset(); i < total && i < p.Offset()+p.Limit; i++ {
				items = append(items, vistaRecord(fmt.Sprintf("V%d", i+1), "Itajaí"))
			}
			return &ports.ListResult{Items: items, Total: total, Page: p.Page, Limit: p.Limit}, nil
		},
	}
}

func TestFeedSync_WalksEveryPage(t *testing.T) {
	sink := &recordingSink{}
	registry := providers.NewRegistry(vista.NewNormalizer(nil, nil))
	svc := services.NewFeedSyncService(sink, registry, services.FeedSyncConfig{PageSize: 2}, nil, nil)
	source := pagedVista(5)

	report, err := svc.Sync(context.Background(), source)
	require.NoError(t, err)
	require.Equal(t, services.FeedSyncReport{Provider: "vista", Pages: 3, Stored: 5}, report)
	require.Equal(t, 3, source.ListCalls())

	require.Len(t, sink.items, 5)
	first := sink.items[0]
	require.Equal(t, "vista", first.Provider)
	require.Equal(t, "V1", first.ExternalID)
	require.Equal(t, "V1", first.Code)
	require.Equal(t, "Itajaí", first.City)
	require.Equal(t, "Centro", first.Neighborhood)
	require.False(t, first.UpdatedAt.IsZero())
	require.JSONEq(t, string(vistaRecord("V1", "Itajaí").Payload), string(first.Payload))
}

func TestFeedSync_SkipsBrokenRecordsAndHonoursMaxPages(t *testing.T) {
	sink := &recordingSink{}
	registry := providers.NewRegistry(vista.NewNormalizer(nil, nil))
	svc := services.NewFeedSyncService(sink, registry, services.FeedSyncConfig{PageSize: 3, MaxPages: 1}, nil, nil)
	source := &mocks.PropertyProviderMock{
		NameValue: "vista",
		ListPropertiesFn: func(context.Context, property.Filters, property.Pagination) (*ports.ListResult, error) {
			return &ports.ListResult{
				Items: []ports.RawRecord{
					vistaRecord("V1", "X"),
					{Provider: "vista", Payload: []byte(`{"Categoria":"Casa"}`)},
					vistaRecord("V3", "X"),
				},
				Total: 30,
			}, nil
		},
	}

	report, err := svc.Sync(context.Background(), source)
	require.NoError(t, err)
	require.Equal(t, 1, report.Pages)
	require.Equal(t, 2, report.Stored)
	require.Equal(t, 1, report.Skipped)
}

func TestFeedSync_Failures(t *testing.T) {
	registry := providers.NewRegistry(vista.NewNormalizer(nil, nil))

	failing := &mocks.PropertyProviderMock{
		NameValue: "dwv",
		ListPropertiesFn: func(context.Context, property.Filters, property.Pagination) (*ports.ListResult, error) {
			return nil, errors.New("401 unauthorized")
		},
	}
	_, err := services.NewFeedSyncService(&recordingSink{}, registry, services.FeedSyncConfig{}, nil, nil).Sync(context.Background(), failing)
	var pe *services.ProviderError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, "dwv", pe.Provider)

	dbDown := errors.New("connection refused")
	_, err = services.NewFeedSyncService(&recordingSink{err: dbDown}, registry, services.FeedSyncConfig{PageSize: 2}, nil, nil).Sync(context.Background(), pagedVista(1))
	require.ErrorIs(t, err, dbDown)
}
