package normalize_test

import (
	"testing"
	"time"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers/normalize"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func TestUnitCorrection(t *testing.T) {
	tests := []struct {
		name string
		fn   func(*float64) *float64
		in   *float64
		want *float64
	}{
		{"sale price in centavos", normalize.SalePrice, f64(250000000), f64(2500000)},
		{"sale price in reais", normalize.SalePrice, f64(2500000), f64(2500000)},
		{"sale price at threshold", normalize.SalePrice, f64(100000000), f64(100000000)},
		{"rent in centavos", normalize.RecurringCharge, f64(450000000 / 100), f64(45000)},
		{"rent in reais", normalize.RecurringCharge, f64(4500), f64(4500)},
		{"condo rounded", normalize.RecurringCharge, f64(1234.567), f64(1234.57)},
		{"area in cm2", normalize.BuiltArea, f64(12000), f64(120)},
		{"area in m2", normalize.BuiltArea, f64(120), f64(120)},
		{"nil stays nil", normalize.SalePrice, nil, nil},
		{"zero is absent", normalize.SalePrice, f64(0), nil},
		{"negative is absent", normalize.BuiltArea, f64(-3), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(tt.in)
			if tt.want == nil {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.InDelta(t, *tt.want, *got, 0.0001)
		})
	}
}

func TestNumber(t *testing.T) {
	tests := []struct {
		in   any
		want *float64
	}{
		{"1.250.000,00", f64(1250000)},
		{"1250000.50", f64(1250000.5)},
		{"R$ 900", f64(900)},
		{"R$ 1.200,50", f64(1200.5)},
		{"900.000", f64(900000)},
		{"85,5 m²", f64(85.5)},
		{"1,250,000", f64(1250000)},
		{float64(42), f64(42)},
		{"", nil},
		{"sob consulta", nil},
		{"0", nil},
		{"-10", nil},
		{nil, nil},
		{true, nil},
	}
	for _, tt := range tests {
		got := normalize.Number(tt.in)
		if tt.want == nil {
			require.Nil(t, got, "%v", tt.in)
			continue
		}
		require.NotNil(t, got, "%v", tt.in)
		require.InDelta(t, *tt.want, *got, 0.0001, "%v", tt.in)
	}

	n := normalize.Int("3")
	require.NotNil(t, n)
	require.Equal(t, 3, *n)
	require.Nil(t, normalize.Int("0"))
}

func TestPhotos_DedupAcrossSourcesInFirstSeenOrder(t *testing.T) {
	unit := []normalize.PhotoCandidate{{URL: "https://cdn/a.jpg"}, {URL: "https://cdn/b.jpg"}}
	building := []normalize.PhotoCandidate{{URL: "https://cdn/b.jpg"}, {URL: " https://cdn/c.jpg "}}
	thirdParty := []normalize.PhotoCandidate{{URL: "https://cdn/a.jpg"}, {URL: "https://cdn/d.jpg"}, {URL: ""}}

	photos, missing := normalize.Photos(unit, building, thirdParty)
	require.False(t, missing)

	urls := make([]string, len(photos))
	for i, p := range photos {
		urls[i] = p.URL
		require.Equal(t, i, p.Order)
	}
	require.Equal(t, []string{"https://cdn/a.jpg", "https://cdn/b.jpg", "https://cdn/c.jpg", "https://cdn/d.jpg"}, urls)
	require.True(t, photos[0].Featured)
}

func TestPhotos_FeaturedKeptAndGalleryMissing(t *testing.T) {
	photos, missing := normalize.Photos([]normalize.PhotoCandidate{{URL: "a"}, {URL: "b", Featured: true}, {URL: "c", Featured: true}})
	require.False(t, missing)
	require.False(t, photos[0].Featured)
	require.True(t, photos[1].Featured)
	require.False(t, photos[2].Featured)

	photos, missing = normalize.Photos(nil, []normalize.PhotoCandidate{{URL: "  "}})
	require.True(t, missing)
	require.Empty(t, photos)
}

func TestEnums(t *testing.T) {
	tb := normalize.Default()

	require.Equal(t, property.TypeApartment, tb.Type("Apartamento"))
	require.Equal(t, property.TypeApartment, tb.Type("APARTAMENTO_DUPLEX"))
	require.Equal(t, property.TypePenthouse, tb.Type("Cobertura"))
	require.Equal(t, property.TypeHouse, tb.Type("casa-em-condomínio"))
	require.Equal(t, property.TypeOther, tb.Type("hangar"))

	require.Equal(t, property.StatusSold, tb.Status("Vendido"))
	require.Equal(t, property.StatusAvailable, tb.Status(""))
	require.Equal(t, property.StatusAvailable, tb.Status("unexpected"))

	require.Equal(t, property.StageUnderConstruction, tb.Stage("Em Construção"))
	require.Equal(t, property.StagePreLaunch, tb.Stage("pre_lancamento"))
	require.Equal(t, property.StageUnknown, tb.Stage("???"))

	require.Equal(t, property.PurposeSaleRent, tb.Purpose("Venda e Aluguel"))
	require.Equal(t, property.PurposeRent, tb.Purpose("LOCAÇÃO"))

	require.Equal(t, "SC", tb.State("Santa Catarina"))
	require.Equal(t, "SP", tb.State("sp"))
	require.Equal(t, "", tb.State("Atlantis"))

	require.Equal(t, property.PurposeSaleRent, normalize.PurposeFromPrices(f64(1), f64(2)))
	require.Equal(t, property.PurposeRent, normalize.PurposeFromPrices(nil, f64(2)))
	require.Equal(t, property.PurposeSale, normalize.PurposeFromPrices(nil, nil))
}

func TestFeatures(t *testing.T) {
	f, tags := normalize.Default().Features([]string{
		"Mobiliado", "Semi-mobiliado", "Aceita Pet", "Piscina aquecida", "Vista para o mar",
		"Quadra de tênis", "Piscina aquecida", " ",
	})
	require.True(t, f.Furnished)
	require.True(t, f.SemiFurnished)
	require.True(t, f.PetFriendly)
	require.True(t, f.Pool)
	require.True(t, f.SeaView)
	require.False(t, f.Gym)
	require.Equal(t, []string{"Quadra de tênis"}, tags)

	f, _ = normalize.Default().Features([]string{"Semi mobiliado"})
	require.True(t, f.SemiFurnished)
	require.False(t, f.Furnished)
}

func TestAddressFallbackChain(t *testing.T) {
	tb := normalize.Default()
	unit := property.Address{Number: "1200", Complement: "Apto 301"}
	building := property.Address{
		Street:       "Av. Atlântica",
		Neighborhood: "Centro",
		City:         "Balneário Camboriú",
		State:        "Santa Catarina",
		ZipCode:      "88330000",
		Coordinates:  &property.Coordinates{Lat: -26.99, Lng: -48.63},
	}
	top := property.Address{Street: "Ignored", City: "Itajaí", State: "SC"}

	addr := tb.Address(unit, building, top)
	require.Equal(t, "Av. Atlântica", addr.Street)
	require.Equal(t, "1200", addr.Number)
	require.Equal(t, "Apto 301", addr.Complement)
	require.Equal(t, "Balneário Camboriú", addr.City)
	require.Equal(t, "SC", addr.State)
	require.Equal(t, "88330-000", addr.ZipCode)
	require.NotNil(t, addr.Coordinates)

	empty := tb.Address(property.Address{}, property.Address{})
	require.Equal(t, normalize.PlaceholderCity, empty.City)
	require.Equal(t, normalize.PlaceholderState, empty.State)
	require.Nil(t, empty.Coordinates)

	require.Nil(t, normalize.Coordinates("0", "0"))
	c := normalize.Coordinates("-27,5954", "-48.548")
	require.NotNil(t, c)
	require.InDelta(t, -48.548, c.Lng, 0.00001)
}

func TestSlug(t *testing.T) {
	require.Equal(t, "apartamento-3-suites-frente-mar-centro-ap0123", normalize.Slug("Apartamento 3 Suítes | Frente Mar!", "Centro", "AP0123"))
	require.Equal(t, "cobertura-barra-sul-co-55", normalize.Slug("  Cobertura ", "Barra Sul", "CO 55"))
	require.Equal(t, "x9", normalize.Slug("", "", "X9"))
	require.Equal(t, normalize.Slug("Casa", "Ação", "1"), normalize.Slug("Casa", "Acao", "1"))
}

func TestTextHelpers(t *testing.T) {
	require.Equal(t, "a b c", normalize.Text("  a \n b\tc "))
	require.Equal(t, "second", normalize.FirstText("", nil, " second ", "third"))
	require.True(t, normalize.Truthy("Sim"))
	require.True(t, normalize.Truthy("S"))
	require.False(t, normalize.Truthy("Nao"))
	require.False(t, normalize.Truthy(nil))

	ts := normalize.Time("2024-03-05 10:30:00")
	require.NotNil(t, ts)
	require.Equal(t, time.Date(2024, 3, 5, 13, 30, 0, 0, time.UTC), *ts)
	require.Nil(t, normalize.Time("0000-00-00 00:00:00"))
	require.Nil(t, normalize.Time("yesterday"))
}
