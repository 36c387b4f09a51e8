package property

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no active provider knows the requested listing.
var ErrNotFound = errors.New("property not found")

type Type string

const (
	TypeApartment  Type = "apartment"
	TypeHouse      Type = "house"
	TypePenthouse  Type = "penthouse"
	TypeStudio     Type = "studio"
	TypeLand       Type = "land"
	TypeCommercial Type = "commercial"
	TypeFarm       Type = "farm"
	TypeOther      Type = "other"
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusReserved    Status = "reserved"
	StatusSold        Status = "sold"
	StatusRented      Status = "rented"
	StatusUnavailable Status = "unavailable"
)

type Purpose string

const (
	PurposeSale     Purpose = "sale"
	PurposeRent     Purpose = "rent"
	PurposeSaleRent Purpose = "sale_rent"
)

type ConstructionStage string

const (
	StageReady             ConstructionStage = "ready"
	StageUnderConstruction ConstructionStage = "under_construction"
	StageLaunch            ConstructionStage = "launch"
	StagePreLaunch         ConstructionStage = "pre_launch"
	StageUnknown           ConstructionStage = "unknown"
)

// Property is the canonical listing shape every provider payload is normalized into.
// Numeric fields are nil when the upstream value is missing or unparseable.
type Property struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Provider    string `json:"provider"`

	Type              Type              `json:"type"`
	Status            Status            `json:"status"`
	Purpose           Purpose           `json:"purpose"`
	ConstructionStage ConstructionStage `json:"constructionStage"`

	Address  Address  `json:"address"`
	Pricing  Pricing  `json:"pricing"`
	Specs    Specs    `json:"specs"`
	Features Features `json:"features"`
	Tags     []string `json:"tags,omitempty"`

	Photos         []Photo `json:"photos"`
	GalleryMissing bool    `json:"galleryMissing"`

	Realtor *Realtor `json:"realtor,omitempty"`
	Agency  *Agency  `json:"agency,omitempty"`

	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`

	Slug string `json:"slug"`
}

type Address struct {
	Street       string       `json:"street,omitempty"`
	Number       string       `json:"number,omitempty"`
	Complement   string       `json:"complement,omitempty"`
	Neighborhood string       `json:"neighborhood,omitempty"`
	City         string       `json:"city"`
	State        string       `json:"state"`
	ZipCode      string       `json:"zipCode,omitempty"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Pricing amounts are in the major unit of BRL.
type Pricing struct {
	Sale  *float64 `json:"sale,omitempty"`
	Rent  *float64 `json:"rent,omitempty"`
	Condo *float64 `json:"condo,omitempty"`
	IPTU  *float64 `json:"iptu,omitempty"`
}

// Specs areas are in square metres.
type Specs struct {
	TotalArea    *float64 `json:"totalArea,omitempty"`
	PrivateArea  *float64 `json:"privateArea,omitempty"`
	LandArea     *float64 `json:"landArea,omitempty"`
	Bedrooms     *int     `json:"bedrooms,omitempty"`
	Suites       *int     `json:"suites,omitempty"`
	Bathrooms    *int     `json:"bathrooms,omitempty"`
	ParkingSpots *int     `json:"parkingSpots,omitempty"`
}

type Features struct {
	Furnished       bool `json:"furnished"`
	SemiFurnished   bool `json:"semiFurnished"`
	PetFriendly     bool `json:"petFriendly"`
	Pool            bool `json:"pool"`
	Gym             bool `json:"gym"`
	Barbecue        bool `json:"barbecue"`
	Elevator        bool `json:"elevator"`
	Balcony         bool `json:"balcony"`
	SeaView         bool `json:"seaView"`
	Concierge       bool `json:"concierge"`
	AirConditioning bool `json:"airConditioning"`
	PartyRoom       bool `json:"partyRoom"`
	Playground      bool `json:"playground"`
}

type Photo struct {
	URL      string `json:"url"`
	Caption  string `json:"caption,omitempty"`
	Order    int    `json:"order"`
	Featured bool   `json:"featured,omitempty"`
}

type Realtor struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
	CRECI string `json:"creci,omitempty"`
}

type Agency struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// PrimaryPrice returns the sale price, falling back to rent.
func (p *Property) PrimaryPrice() *float64 {
	if p.Pricing.Sale != nil {
		return p.Pricing.Sale
	}
	return p.Pricing.Rent
}
