package dwv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	config "github.com/KairamCabral/Site-imobiliaria-pharos-sub004/configs"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/ports"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/observability"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers/upstream"
	"github.com/sirupsen/logrus"
)

type listResponse struct {
	Data  []json.RawMessage `json:"data"`
	Total int               `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// Client talks to the DWV developments API.
type Client struct {
	baseURL string
	token   string
	http    *upstream.Client
}

// NewClient creates a DWV client.
func NewClient(cfg config.DWVConfig, transport upstream.Config, logger *logrus.Logger, metrics *observability.ProviderMetrics) *Client {
	transport.Name = ProviderName
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    upstream.New(transport, logger, metrics),
	}
}

func (c *Client) Name() string { return ProviderName }

// Upstream exposes the transport for health checks.
func (c *Client) Upstream() *upstream.Client { return c.http }

// ListProperties implements ports.PropertyProvider.
func (c *Client) ListProperties(ctx context.Context, filters property.Filters, pagination property.Pagination) (*ports.ListResult, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(pagination.Page))
	q.Set("limit", strconv.Itoa(pagination.Limit))
	setIf(q, "city", filters.City)
	setIf(q, "neighborhood", filters.Neighborhood)
	setIf(q, "state", filters.State)
	setIf(q, "type", string(filters.Type))
	setIf(q, "purpose", string(filters.Purpose))
	setIf(q, "status", string(filters.Status))
	setIf(q, "code", filters.Code)
	setIf(q, "search", filters.Query)
	if filters.MinPrice != nil {
		q.Set("min_price", strconv.FormatFloat(*filters.MinPrice, 'f', -1, 64))
	}
	if filters.MaxPrice != nil {
		q.Set("max_price", strconv.FormatFloat(*filters.MaxPrice, 'f', -1, 64))
	}
	if filters.MinBedrooms != nil {
		q.Set("min_bedrooms", strconv.Itoa(*filters.MinBedrooms))
	}
	if filters.MinArea != nil {
		q.Set("min_area", strconv.FormatFloat(*filters.MinArea, 'f', -1, 64))
	}

	body, err := c.http.Get(ctx, "list", c.baseURL+"/v1/properties?"+q.Encode(), c.headers())
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode dwv listing: %w", err)
	}

	res := &ports.ListResult{
		Items: make([]ports.RawRecord, 0, len(resp.Data)),
		Total: resp.Total,
		Page:  resp.Page,
		Limit: resp.Limit,
	}
	for _, item := range resp.Data {
		res.Items = append(res.Items, ports.RawRecord{Provider: ProviderName, Payload: item})
	}
	if res.Page == 0 {
		res.Page = pagination.Page
	}
	if res.Limit == 0 {
		res.Limit = pagination.Limit
	}
	return res, nil
}

// GetProperty implements ports.PropertyProvider.
func (c *Client) GetProperty(ctx context.Context, id string) (*ports.RawRecord, error) {
	body, err := c.http.Get(ctx, "detail", c.baseURL+"/v1/properties/"+url.PathEscape(id), c.headers())
	if err != nil {
		return nil, err
	}
	// Single resources may or may not be wrapped in {"data": ...}.
	var wrapped struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode dwv property: %w", err)
	}
	payload := json.RawMessage(body)
	if len(wrapped.Data) > 0 && string(wrapped.Data) != "null" {
		payload = wrapped.Data
	}
	return &ports.RawRecord{Provider: ProviderName, Payload: payload}, nil
}

func (c *Client) headers() http.Header {
	h := http.Header{}
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	return h
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

var _ ports.PropertyProvider = (*Client)(nil)
