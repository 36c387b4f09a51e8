package property

// Filters narrows a listing search. Zero values mean "no constraint".
type Filters struct {
	City         string   `json:"city,omitempty" query:"city"`
	Neighborhood string   `json:"neighborhood,omitempty" query:"neighborhood"`
	State        string   `json:"state,omitempty" query:"state" validate:"omitempty,len=2"`
	Type         Type     `json:"type,omitempty" query:"type" validate:"omitempty,oneof=apartment house penthouse studio land commercial farm other"`
	Purpose      Purpose  `json:"purpose,omitempty" query:"purpose" validate:"omitempty,oneof=sale rent sale_rent"`
	Status       Status   `json:"status,omitempty" query:"status" validate:"omitempty,oneof=available reserved sold rented unavailable"`
	MinPrice     *float64 `json:"minPrice,omitempty" query:"min_price" validate:"omitempty,gte=0"`
	MaxPrice     *float64 `json:"maxPrice,omitempty" query:"max_price" validate:"omitempty,gte=0"`
	MinBedrooms  *int     `json:"minBedrooms,omitempty" query:"min_bedrooms" validate:"omitempty,gte=0"`
	MinArea      *float64 `json:"minArea,omitempty" query:"min_area" validate:"omitempty,gte=0"`
	Query        string   `json:"q,omitempty" query:"q" validate:"omitempty,max=120"`
	Code         string   `json:"code,omitempty" query:"code"`
}

type Pagination struct {
	Page  int `json:"page" query:"page"`
	Limit int `json:"limit" query:"limit"`
}

// Offset is the zero-based index of the first item of the page.
func (p Pagination) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

type PageInfo struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPageInfo derives page counters from a total item count.
func NewPageInfo(p Pagination, total int) PageInfo {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return PageInfo{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    p.Page < pages,
		HasPrev:    p.Page > 1,
	}
}
