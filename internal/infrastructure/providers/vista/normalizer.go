package vista

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/ports"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers/normalize"
	"github.com/sirupsen/logrus"
)

// ProviderName tags raw records produced by the Vista client.
const ProviderName = "vista"

// record is the flat CRM payload. Numbers usually arrive as strings.
type record struct {
	Codigo          any             `json:"Codigo"`
	Categoria       string          `json:"Categoria"`
	Status          string          `json:"Status"`
	Finalidade      string          `json:"Finalidade"`
	Situacao        string          `json:"Situacao"`
	TituloSite      string          `json:"TituloSite"`
	Titulo          string          `json:"Titulo"`
	DescricaoWeb    string          `json:"DescricaoWeb"`
	Descricao       string          `json:"Descricao"`
	Endereco        string          `json:"Endereco"`
	Numero          any             `json:"Numero"`
	Complemento     string          `json:"Complemento"`
	Bairro          string          `json:"Bairro"`
	BairroComercial string          `json:"BairroComercial"`
	Cidade          string          `json:"Cidade"`
	UF              string          `json:"UF"`
	CEP             any             `json:"CEP"`
	Latitude        any             `json:"Latitude"`
	Longitude       any             `json:"Longitude"`
	ValorVenda      any             `json:"ValorVenda"`
	ValorLocacao    any             `json:"ValorLocacao"`
	ValorCondominio any             `json:"ValorCondominio"`
	ValorIptu       any             `json:"ValorIptu"`
	AreaTotal       any             `json:"AreaTotal"`
	AreaPrivativa   any             `json:"AreaPrivativa"`
	AreaTerreno     any             `json:"AreaTerreno"`
	Dormitorios     any             `json:"Dormitorios"`
	Suites          any             `json:"Suites"`
	TotalBanheiros  any             `json:"TotalBanheiros"`
	BanheiroSocial  any             `json:"BanheiroSocialQtd"`
	Vagas           any             `json:"Vagas"`
	Mobiliado       any             `json:"Mobiliado"`
	Caracteristicas map[string]any  `json:"Caracteristicas"`
	InfraEstrutura  map[string]any  `json:"InfraEstrutura"`
	Foto            json.RawMessage `json:"Foto"`
	FotoDestaque    string          `json:"FotoDestaque"`
	Corretor        json.RawMessage `json:"Corretor"`
	Agencia         json.RawMessage `json:"Agencia"`
	DataCadastro    string          `json:"DataCadastro"`
	DataAtualizacao string          `json:"DataAtualizacao"`
}

type photo struct {
	Foto      string `json:"Foto"`
	Descricao string `json:"Descricao"`
	Destaque  any    `json:"Destaque"`
	Ordem     any    `json:"Ordem"`
}

type corretor struct {
	Codigo  any    `json:"Codigo"`
	Nome    string `json:"Nome"`
	Fone    string `json:"Fone"`
	Celular string `json:"Celular"`
	Email   string `json:"E-mail"`
	CRECI   string `json:"CRECI"`
}

type agencia struct {
	Codigo any    `json:"Codigo"`
	Nome   string `json:"Nome"`
}

// Normalizer maps Vista payloads onto property.Property.
type Normalizer struct {
	tables *normalize.Tables
	logger *logrus.Logger
}

// NewNormalizer creates a Vista normalizer. A nil tables uses the built-in mappings.
func NewNormalizer(tables *normalize.Tables, logger *logrus.Logger) *Normalizer {
	if tables == nil {
		tables = normalize.Default()
	}
	return &Normalizer{tables: tables, logger: logger}
}

func (n *Normalizer) Provider() string { return ProviderName }

// Normalize implements ports.Normalizer.
func (n *Normalizer) Normalize(raw json.RawMessage) (*property.Property, error) {
	var r record
	dropped, err := normalize.Decode(raw, &r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode vista record: %w", err)
	}
	if dropped != "" && n.logger != nil {
		n.logger.WithFields(logrus.Fields{
			"provider": ProviderName,
			"field":    dropped,
		}).Debug("ignoring field with unexpected type")
	}
	code := normalize.Text(r.Codigo)
	if code == "" {
		return nil, errors.New("vista record has no Codigo")
	}

	p := &property.Property{
		ID:                code,
		Code:              code,
		Provider:          ProviderName,
		Title:             normalize.FirstText(r.TituloSite, r.Titulo),
		Description:       normalize.FirstText(r.DescricaoWeb, r.Descricao),
		Type:              n.tables.Type(r.Categoria),
		Status:            n.tables.Status(r.Status),
		ConstructionStage: n.tables.Stage(r.Situacao),
		CreatedAt:         normalize.Time(r.DataCadastro),
		UpdatedAt:         normalize.Time(r.DataAtualizacao),
	}

	p.Address = n.tables.Address(property.Address{
		Street:       r.Endereco,
		Number:       normalize.Text(r.Numero),
		Complement:   r.Complemento,
		Neighborhood: normalize.FirstText(r.Bairro, r.BairroComercial),
		City:         r.Cidade,
		State:        r.UF,
		ZipCode:      normalize.Text(r.CEP),
		Coordinates:  normalize.Coordinates(r.Latitude, r.Longitude),
	})

	if p.Title == "" {
		p.Title = normalize.FallbackTitle(r.Categoria, p.Address.Neighborhood, code)
	}

	p.Pricing = property.Pricing{
		Sale:  n.corrected("ValorVenda", code, r.ValorVenda, normalize.SalePrice),
		Rent:  n.corrected("ValorLocacao", code, r.ValorLocacao, normalize.RecurringCharge),
		Condo: n.corrected("ValorCondominio", code, r.ValorCondominio, normalize.RecurringCharge),
		IPTU:  n.corrected("ValorIptu", code, r.ValorIptu, normalize.RecurringCharge),
	}
	if r.Finalidade != "" {
		p.Purpose = n.tables.Purpose(r.Finalidade)
	} else {
		p.Purpose = normalize.PurposeFromPrices(p.Pricing.Sale, p.Pricing.Rent)
	}

	bathrooms := normalize.Int(r.TotalBanheiros)
	if bathrooms == nil {
		bathrooms = normalize.Int(r.BanheiroSocial)
	}
	p.Specs = property.Specs{
		TotalArea:    n.corrected("AreaTotal", code, r.AreaTotal, normalize.BuiltArea),
		PrivateArea:  n.corrected("AreaPrivativa", code, r.AreaPrivativa, normalize.BuiltArea),
		LandArea:     normalize.Decimal(r.AreaTerreno),
		Bedrooms:     normalize.Int(r.Dormitorios),
		Suites:       normalize.Int(r.Suites),
		Bathrooms:    bathrooms,
		ParkingSpots: normalize.Int(r.Vagas),
	}

	tags := append(flagTags(r.Caracteristicas), flagTags(r.InfraEstrutura)...)
	if normalize.Truthy(r.Mobiliado) {
		tags = append(tags, "Mobiliado")
	}
	p.Features, p.Tags = n.tables.Features(tags)

	var featured []normalize.PhotoCandidate
	if r.FotoDestaque != "" {
		featured = append(featured, normalize.PhotoCandidate{URL: r.FotoDestaque, Featured: true})
	}
	p.Photos, p.GalleryMissing = normalize.Photos(featured, photoCandidates(r.Foto))

	p.Realtor = firstRealtor(r.Corretor)
	p.Agency = firstAgency(r.Agencia)
	p.Slug = normalize.Slug(p.Title, p.Address.Neighborhood, p.Code)
	return p, nil
}

// corrected parses and unit-corrects one field, logging when the correction changed the value.
func (n *Normalizer) corrected(field, code string, v any, fix func(*float64) *float64) *float64 {
	parsed := normalize.Number(v)
	out := fix(parsed)
	if n.logger != nil && parsed != nil && out != nil && normalize.Round2(*parsed) != *out {
		n.logger.WithFields(logrus.Fields{
			"provider": ProviderName,
			"code":     code,
			"field":    field,
			"raw":      *parsed,
			"value":    *out,
		}).Debug("unit correction applied")
	}
	return out
}

// flagTags returns the names of "Sim" flags, sorted for stable output.
func flagTags(m map[string]any) []string {
	var tags []string
	for name, v := range m {
		if normalize.Truthy(v) {
			tags = append(tags, name)
		}
	}
	sort.Strings(tags)
	return tags
}

// photoCandidates accepts Foto as either an object keyed by position or an array.
func photoCandidates(raw json.RawMessage) []normalize.PhotoCandidate {
	if len(raw) == 0 {
		return nil
	}
	var list []photo
	if _, err := normalize.Decode(raw, &list); err != nil {
		var byKey map[string]photo
		if _, err := normalize.Decode(raw, &byKey); err != nil {
			return nil
		}
		keys := make([]string, 0, len(byKey))
		for k := range byKey {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return numericLess(keys[i], keys[j]) })
		for _, k := range keys {
			list = append(list, byKey[k])
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		oi, oj := normalize.Int(list[i].Ordem), normalize.Int(list[j].Ordem)
		if oi == nil {
			return false
		}
		if oj == nil {
			return true
		}
		return *oi < *oj
	})

	out := make([]normalize.PhotoCandidate, 0, len(list))
	for _, ph := range list {
		out = append(out, normalize.PhotoCandidate{
			URL:      ph.Foto,
			Caption:  ph.Descricao,
			Featured: normalize.Truthy(ph.Destaque),
		})
	}
	return out
}

func numericLess(a, b string) bool {
	ia, errA := strconv.Atoi(a)
	ib, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return ia < ib
	}
	return a < b
}

// firstRealtor reads Corretor, which Vista sends as an object keyed by realtor code.
func firstRealtor(raw json.RawMessage) *property.Realtor {
	if len(raw) == 0 {
		return nil
	}
	var byKey map[string]corretor
	if _, err := normalize.Decode(raw, &byKey); err != nil || len(byKey) == 0 {
		return nil
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return numericLess(keys[i], keys[j]) })

	c := byKey[keys[0]]
	id := normalize.FirstText(c.Codigo, keys[0])
	if c.Nome == "" && id == "" {
		return nil
	}
	return &property.Realtor{
		ID:    id,
		Name:  normalize.Text(c.Nome),
		Phone: normalize.FirstText(c.Celular, c.Fone),
		Email: normalize.Text(c.Email),
		CRECI: normalize.Text(c.CRECI),
	}
}

func firstAgency(raw json.RawMessage) *property.Agency {
	if len(raw) == 0 {
		return nil
	}
	var byKey map[string]agencia
	if _, err := normalize.Decode(raw, &byKey); err != nil || len(byKey) == 0 {
		return nil
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return numericLess(keys[i], keys[j]) })
	a := byKey[keys[0]]
	return &property.Agency{ID: normalize.FirstText(a.Codigo, keys[0]), Name: normalize.Text(a.Nome)}
}

var _ ports.Normalizer = (*Normalizer)(nil)
