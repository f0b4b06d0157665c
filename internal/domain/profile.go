package domain

import "net/url"

// SearchForm is the structured search request distilled from a user profile.
// Optional numeric bounds are pointers so that absent values are omitted from
// the query rather than defaulted to zero.
type SearchForm struct {
	Region   string `json:"region,omitempty"`
	District string `json:"district,omitempty"`
	Suburb   string `json:"suburb,omitempty"`

	MinPrice     *int `json:"min_price,omitempty"`
	MaxPrice     *int `json:"max_price,omitempty"`
	MinBedrooms  *int `json:"min_bedrooms,omitempty"`
	MaxBedrooms  *int `json:"max_bedrooms,omitempty"`
	MinBathrooms *int `json:"min_bathrooms,omitempty"`
	MaxBathrooms *int `json:"max_bathrooms,omitempty"`
	MinCarparks  *int `json:"min_carparks,omitempty"`
	MaxCarparks  *int `json:"max_carparks,omitempty"`

	PropertyTypes []string `json:"property_types,omitempty"`
	SaleMethods   []string `json:"sales_methods,omitempty"`
}

// Clone returns a copy of the form that can be corrected without touching the
// original. Slices are copied; the int pointers are shared because corrections
// only ever replace them.
func (f *SearchForm) Clone() *SearchForm {
	c := *f
	c.PropertyTypes = append([]string(nil), f.PropertyTypes...)
	c.SaleMethods = append([]string(nil), f.SaleMethods...)
	return &c
}

// QueryParams is the flat parameter set submitted to the search endpoint.
// Values are scalars or comma-joined lists. Immutable once handed to the
// fetcher for a given attempt.
type QueryParams map[string]string

// Values converts the parameter set to url.Values. Encoding through
// url.Values keeps the serialized form deterministic (keys sort).
func (p QueryParams) Values() url.Values {
	v := url.Values{}
	for k, val := range p {
		v.Set(k, val)
	}
	return v
}

// Clone returns an independent copy of the parameter set
func (p QueryParams) Clone() QueryParams {
	c := make(QueryParams, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}
