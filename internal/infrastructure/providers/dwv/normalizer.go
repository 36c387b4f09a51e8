package dwv

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/ports"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers/normalize"
	"github.com/sirupsen/logrus"
)

// ProviderName tags raw records produced by the DWV client.
const ProviderName = "dwv"

// record is a development-oriented payload: a unit inside a building, with the
// listing-level fields at the top.
type record struct {
	ID          any         `json:"id"`
	Code        any         `json:"code"`
	Reference   any         `json:"reference"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Type        string      `json:"type"`
	Status      string      `json:"status"`
	Purpose     string      `json:"purpose"`
	Stage       string      `json:"construction_stage"`
	Price       any         `json:"price"`
	RentPrice   any         `json:"rent_price"`
	CondoFee    any         `json:"condo_fee"`
	IPTU        any         `json:"iptu"`
	Address     *address    `json:"address"`
	Features    []string    `json:"features"`
	Unit        *unit       `json:"unit"`
	Building    *building   `json:"building"`
	ThirdParty  *thirdParty `json:"third_party"`
	Realtor     *realtor    `json:"realtor"`
	Agency      *agency     `json:"agency"`
	CreatedAt   string      `json:"created_at"`
	UpdatedAt   string      `json:"updated_at"`
}

type unit struct {
	Code          any               `json:"code"`
	Title         string            `json:"title"`
	Type          string            `json:"type"`
	Status        string            `json:"status"`
	Price         any               `json:"price"`
	RentPrice     any               `json:"rent_price"`
	CondoFee      any               `json:"condo_fee"`
	IPTU          any               `json:"iptu"`
	PrivateArea   any               `json:"private_area"`
	TotalArea     any               `json:"total_area"`
	LandArea      any               `json:"land_area"`
	Bedrooms      any               `json:"bedrooms"`
	Suites        any               `json:"suites"`
	Bathrooms     any               `json:"bathrooms"`
	ParkingSpaces any               `json:"parking_spaces"`
	Furnished     any               `json:"furnished"`
	Address       *address          `json:"address"`
	Features      []string          `json:"features"`
	Photos        []json.RawMessage `json:"photos"`
	Gallery       []json.RawMessage `json:"gallery"`
}

type building struct {
	Name     string            `json:"name"`
	Stage    string            `json:"construction_stage"`
	Address  *address          `json:"address"`
	Features []string          `json:"features"`
	Gallery  []json.RawMessage `json:"gallery"`
	Photos   []json.RawMessage `json:"photos"`
}

type thirdParty struct {
	Images []json.RawMessage `json:"images"`
}

type address struct {
	Street       string `json:"street"`
	Number       any    `json:"number"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      any    `json:"zip_code"`
	Latitude     any    `json:"latitude"`
	Longitude    any    `json:"longitude"`
}

type realtor struct {
	ID    any    `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	CRECI string `json:"creci"`
}

type agency struct {
	ID   any    `json:"id"`
	Name string `json:"name"`
}

// image accepts both {"url": ...} objects and bare URL strings.
type image struct {
	URL      string `json:"url"`
	Src      string `json:"src"`
	Caption  string `json:"caption"`
	Title    string `json:"title"`
	Featured bool   `json:"featured"`
	Cover    bool   `json:"cover"`
}

// Normalizer maps DWV payloads onto property.Property.
type Normalizer struct {
	tables *normalize.Tables
	logger *logrus.Logger
}

// NewNormalizer creates a DWV normalizer. A nil tables uses the built-in mappings.
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
		return nil, fmt.Errorf("failed to decode dwv record: %w", err)
	}
	if dropped != "" && n.logger != nil {
		n.logger.WithFields(logrus.Fields{
			"provider": ProviderName,
			"field":    dropped,
		}).Debug("ignoring field with unexpected type")
	}
	u := r.Unit
	if u == nil {
		u = &unit{}
	}
	b := r.Building
	if b == nil {
		b = &building{}
	}

	id := normalize.Text(r.ID)
	if id == "" {
		return nil, errors.New("dwv record has no id")
	}
	code := normalize.FirstText(r.Code, u.Code, r.Reference)
	if code == "" {
		return nil, fmt.Errorf("dwv record %s has no code", id)
	}

	p := &property.Property{
		ID:                id,
		Code:              code,
		Provider:          ProviderName,
		Title:             normalize.FirstText(r.Title, joinTitle(b.Name, u.Title)),
		Description:       normalize.Text(r.Description),
		Type:              n.tables.Type(normalize.FirstText(u.Type, r.Type)),
		Status:            n.tables.Status(normalize.FirstText(u.Status, r.Status)),
		ConstructionStage: n.tables.Stage(normalize.FirstText(r.Stage, b.Stage)),
		CreatedAt:         normalize.Time(r.CreatedAt),
		UpdatedAt:         normalize.Time(r.UpdatedAt),
	}

	p.Address = n.tables.Address(u.Address.toDomain(), b.Address.toDomain(), r.Address.toDomain())
	if p.Title == "" {
		p.Title = normalize.FallbackTitle(normalize.FirstText(u.Type, r.Type), p.Address.Neighborhood, code)
	}

	p.Pricing = property.Pricing{
		Sale:  n.corrected("price", id, first(u.Price, r.Price), normalize.SalePrice),
		Rent:  n.corrected("rent_price", id, first(u.RentPrice, r.RentPrice), normalize.RecurringCharge),
		Condo: n.corrected("condo_fee", id, first(u.CondoFee, r.CondoFee), normalize.RecurringCharge),
		IPTU:  n.corrected("iptu", id, first(u.IPTU, r.IPTU), normalize.RecurringCharge),
	}
	if r.Purpose != "" {
		p.Purpose = n.tables.Purpose(r.Purpose)
	} else {
		p.Purpose = normalize.PurposeFromPrices(p.Pricing.Sale, p.Pricing.Rent)
	}

	p.Specs = property.Specs{
		TotalArea:    n.corrected("total_area", id, u.TotalArea, normalize.BuiltArea),
		PrivateArea:  n.corrected("private_area", id, u.PrivateArea, normalize.BuiltArea),
		LandArea:     normalize.Decimal(u.LandArea),
		Bedrooms:     normalize.Int(u.Bedrooms),
		Suites:       normalize.Int(u.Suites),
		Bathrooms:    normalize.Int(u.Bathrooms),
		ParkingSpots: normalize.Int(u.ParkingSpaces),
	}

	tags := make([]string, 0, len(u.Features)+len(b.Features)+len(r.Features)+1)
	tags = append(tags, u.Features...)
	tags = append(tags, b.Features...)
	tags = append(tags, r.Features...)
	if normalize.Truthy(u.Furnished) {
		tags = append(tags, "Mobiliado")
	}
	p.Features, p.Tags = n.tables.Features(tags)

	var thirdPartyImages []json.RawMessage
	if r.ThirdParty != nil {
		thirdPartyImages = r.ThirdParty.Images
	}
	p.Photos, p.GalleryMissing = normalize.Photos(
		candidates(u.Photos),
		candidates(u.Gallery),
		candidates(b.Gallery),
		candidates(b.Photos),
		candidates(thirdPartyImages),
	)
	if p.GalleryMissing && n.logger != nil {
		n.logger.WithFields(logrus.Fields{
			"provider": ProviderName,
			"id":       id,
		}).Debug("listing has no photos in any gallery")
	}

	if r.Realtor != nil && (r.Realtor.Name != "" || normalize.Text(r.Realtor.ID) != "") {
		p.Realtor = &property.Realtor{
			ID:    normalize.Text(r.Realtor.ID),
			Name:  normalize.Text(r.Realtor.Name),
			Phone: normalize.Text(r.Realtor.Phone),
			Email: normalize.Text(r.Realtor.Email),
			CRECI: normalize.Text(r.Realtor.CRECI),
		}
	}
	if r.Agency != nil && (r.Agency.Name != "" || normalize.Text(r.Agency.ID) != "") {
		p.Agency = &property.Agency{ID: normalize.Text(r.Agency.ID), Name: normalize.Text(r.Agency.Name)}
	}

	p.Slug = normalize.Slug(p.Title, p.Address.Neighborhood, p.Code)
	return p, nil
}

func (n *Normalizer) corrected(field, id string, v any, fix func(*float64) *float64) *float64 {
	parsed := normalize.Number(v)
	out := fix(parsed)
	if n.logger != nil && parsed != nil && out != nil && normalize.Round2(*parsed) != *out {
		n.logger.WithFields(logrus.Fields{
			"provider": ProviderName,
			"id":       id,
			"field":    field,
			"raw":      *parsed,
			"value":    *out,
		}).Debug("unit correction applied")
	}
	return out
}

func (a *address) toDomain() property.Address {
	if a == nil {
		return property.Address{}
	}
	return property.Address{
		Street:       a.Street,
		Number:       normalize.Text(a.Number),
		Complement:   a.Complement,
		Neighborhood: a.Neighborhood,
		City:         a.City,
		State:        a.State,
		ZipCode:      normalize.Text(a.ZipCode),
		Coordinates:  normalize.Coordinates(a.Latitude, a.Longitude),
	}
}

// candidates decodes gallery entries; entries that are neither a string nor an object are skipped.
func candidates(entries []json.RawMessage) []normalize.PhotoCandidate {
	out := make([]normalize.PhotoCandidate, 0, len(entries))
	for _, raw := range entries {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			out = append(out, normalize.PhotoCandidate{URL: s})
			continue
		}
		var img image
		if _, err := normalize.Decode(raw, &img); err != nil {
			continue
		}
		out = append(out, normalize.PhotoCandidate{
			URL:      normalize.FirstText(img.URL, img.Src),
			Caption:  normalize.FirstText(img.Caption, img.Title),
			Featured: img.Featured || img.Cover,
		})
	}
	return out
}

// first returns the first value that parses as a number, or nil.
func first(vs ...any) any {
	for _, v := range vs {
		if normalize.Number(v) != nil {
			return v
		}
	}
	return nil
}

// joinTitle builds "Building - Unit", dropping whichever half is empty.
func joinTitle(buildingName, unitTitle string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(buildingName)+" - "+strings.TrimSpace(unitTitle), "- "))
}

var _ ports.Normalizer = (*Normalizer)(nil)
