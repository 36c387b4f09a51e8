package vista

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	config "github.com/KairamCabral/Site-imobiliaria-pharos-sub004/configs"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/ports"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/observability"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers/upstream"
	"github.com/sirupsen/logrus"
)

var listFields = []any{
	"Codigo", "Categoria", "Status", "Finalidade", "Situacao", "TituloSite", "Titulo", "DescricaoWeb",
	"Endereco", "Numero", "Complemento", "Bairro", "BairroComercial", "Cidade", "UF", "CEP",
	"Latitude", "Longitude", "ValorVenda", "ValorLocacao", "ValorCondominio", "ValorIptu",
	"AreaTotal", "AreaPrivativa", "AreaTerreno", "Dormitorios", "Suites", "TotalBanheiros",
	"BanheiroSocialQtd", "Vagas", "Mobiliado", "Caracteristicas", "InfraEstrutura", "FotoDestaque",
	"DataCadastro", "DataAtualizacao",
}

var detailFields = append(append([]any{}, listFields...),
	map[string][]string{"Foto": {"Foto", "FotoPequena", "Destaque", "Ordem", "Descricao"}},
	map[string][]string{"Corretor": {"Codigo", "Nome", "Fone", "Celular", "E-mail", "CRECI"}},
	map[string][]string{"Agencia": {"Codigo", "Nome"}},
)

// categoryLabels maps canonical types to the category names Vista filters on.
var categoryLabels = map[property.Type]string{
	property.TypeApartment:  "Apartamento",
	property.TypeHouse:      "Casa",
	property.TypePenthouse:  "Cobertura",
	property.TypeStudio:     "Studio",
	property.TypeLand:       "Terreno",
	property.TypeCommercial: "Sala Comercial",
	property.TypeFarm:       "Chácara",
}

var statusLabels = map[property.Status]string{
	property.StatusAvailable:   "Venda",
	property.StatusReserved:    "Reservado",
	property.StatusSold:        "Vendido",
	property.StatusRented:      "Alugado",
	property.StatusUnavailable: "Suspenso",
}

// Client talks to the Vista CRM REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *upstream.Client
}

// NewClient creates a Vista client.
func NewClient(cfg config.VistaConfig, transport upstream.Config, logger *logrus.Logger, metrics *observability.ProviderMetrics) *Client {
	transport.Name = ProviderName
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    upstream.New(transport, logger, metrics),
	}
}

func (c *Client) Name() string { return ProviderName }

// Upstream exposes the transport for health checks.
func (c *Client) Upstream() *upstream.Client { return c.http }

// ListProperties implements ports.PropertyProvider.
func (c *Client) ListProperties(ctx context.Context, filters property.Filters, pagination property.Pagination) (*ports.ListResult, error) {
	pesquisa, err := json.Marshal(map[string]any{
		"fields": listFields,
		"filter": buildFilter(filters),
		"order":  map[string]string{"DataAtualizacao": "desc"},
		"paginacao": map[string]int{
			"pagina":     pagination.Page,
			"quantidade": pagination.Limit,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode vista query: %w", err)
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("showtotal", "1")
	q.Set("pesquisa", string(pesquisa))

	body, err := c.http.Get(ctx, "list", c.baseURL+"/imoveis/listar?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	res, err := decodeList(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to decode vista listing: %w", err)
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
	pesquisa, err := json.Marshal(map[string]any{"fields": detailFields})
	if err != nil {
		return nil, fmt.Errorf("failed to encode vista query: %w", err)
	}
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("imovel", id)
	q.Set("pesquisa", string(pesquisa))

	body, err := c.http.Get(ctx, "detail", c.baseURL+"/imoveis/detalhes?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	// Vista answers unknown codes with 200 and an error object instead of a listing.
	var probe struct {
		Codigo any `json:"Codigo"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode vista detail: %w", err)
	}
	if probe.Codigo == nil {
		return nil, property.ErrNotFound
	}
	return &ports.RawRecord{Provider: ProviderName, Payload: json.RawMessage(body)}, nil
}

func buildFilter(f property.Filters) map[string]any {
	filter := map[string]any{}
	if f.City != "" {
		filter["Cidade"] = f.City
	}
	if f.Neighborhood != "" {
		filter["Bairro"] = f.Neighborhood
	}
	if f.State != "" {
		filter["UF"] = strings.ToUpper(f.State)
	}
	if label, ok := categoryLabels[f.Type]; ok {
		filter["Categoria"] = label
	}
	if label, ok := statusLabels[f.Status]; ok {
		filter["Status"] = label
	}
	if f.Code != "" {
		filter["Codigo"] = f.Code
	}
	if f.Query != "" {
		filter["TituloSite"] = []any{"like", f.Query}
	}

	priceField := "ValorVenda"
	switch f.Purpose {
	case property.PurposeRent:
		priceField = "ValorLocacao"
		filter["ValorLocacao"] = []any{">", 0}
	case property.PurposeSale:
		filter["ValorVenda"] = []any{">", 0}
	case property.PurposeSaleRent:
		filter["ValorVenda"] = []any{">", 0}
		filter["ValorLocacao"] = []any{">", 0}
	}
	switch {
	case f.MinPrice != nil && f.MaxPrice != nil:
		filter[priceField] = []any{*f.MinPrice, *f.MaxPrice}
	case f.MinPrice != nil:
		filter[priceField] = []any{">=", *f.MinPrice}
	case f.MaxPrice != nil:
		filter[priceField] = []any{"<=", *f.MaxPrice}
	}
	if f.MinBedrooms != nil {
		filter["Dormitorios"] = []any{">=", *f.MinBedrooms}
	}
	if f.MinArea != nil {
		filter["AreaPrivativa"] = []any{">=", *f.MinArea}
	}
	return filter
}

// decodeList streams the listing object so records keep the order Vista sent them in.
// The object mixes listing entries (keyed by code) with the paging keys.
func decodeList(r io.Reader) (*ports.ListResult, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	res := &ports.ListResult{Items: []ports.RawRecord{}}
	if d, ok := tok.(json.Delim); ok && d == '[' {
		// Empty result sets come back as [].
		return res, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("unexpected token %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)

		switch key {
		case "total", "paginas", "pagina", "quantidade":
			var n json.Number
			if err := dec.Decode(&n); err != nil {
				return nil, fmt.Errorf("bad %s: %w", key, err)
			}
			v, _ := n.Int64()
			switch key {
			case "total":
				res.Total = int(v)
			case "pagina":
				res.Page = int(v)
			case "quantidade":
				res.Limit = int(v)
			}
		default:
			var item json.RawMessage
			if err := dec.Decode(&item); err != nil {
				return nil, fmt.Errorf("bad listing %s: %w", key, err)
			}
			res.Items = append(res.Items, ports.RawRecord{Provider: ProviderName, Payload: item})
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if res.Total == 0 {
		res.Total = len(res.Items)
	}
	return res, nil
}

var _ ports.PropertyProvider = (*Client)(nil)
