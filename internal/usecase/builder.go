package usecase

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/PeterSaffarian/replit-propertyrecommender/internal/domain"
)

// Builder turns a structured search form into the flat query parameter set
// the listings search endpoint accepts. Location terms are resolved against
// the taxonomy fuzzily; categorical values are validated strictly against the
// metadata vocabularies.
type Builder struct {
	taxonomy      *Taxonomy
	propertyTypes []domain.VocabEntry
	saleMethods   []domain.VocabEntry
}

// NewBuilder creates a parameter builder over the given reference data
func NewBuilder(taxonomy *Taxonomy, propertyTypes, saleMethods []domain.VocabEntry) *Builder {
	return &Builder{
		taxonomy:      taxonomy,
		propertyTypes: propertyTypes,
		saleMethods:   saleMethods,
	}
}

// numericParams maps form bounds to their query parameter names. The form
// speaks min_x/max_x; the search endpoint speaks x_min/x_max.
var numericParams = []struct {
	key   string
	value func(f *domain.SearchForm) *int
}{
	{"price_min", func(f *domain.SearchForm) *int { return f.MinPrice }},
	{"price_max", func(f *domain.SearchForm) *int { return f.MaxPrice }},
	{"bedrooms_min", func(f *domain.SearchForm) *int { return f.MinBedrooms }},
	{"bedrooms_max", func(f *domain.SearchForm) *int { return f.MaxBedrooms }},
	{"bathrooms_min", func(f *domain.SearchForm) *int { return f.MinBathrooms }},
	{"bathrooms_max", func(f *domain.SearchForm) *int { return f.MaxBathrooms }},
	{"car_spaces_min", func(f *domain.SearchForm) *int { return f.MinCarparks }},
	{"car_spaces_max", func(f *domain.SearchForm) *int { return f.MaxCarparks }},
}

// Build resolves the form against the reference data and produces the query
// parameters plus the location match hints for that attempt.
//
// Location resolution is district-first: the district term is matched across
// every region's district list, the suburb term inside the matched district
// (falling back to a global scan), and the region term only when neither of
// the more specific terms resolved. Resolved ancestors are always
// back-filled, so a resolved suburb implies a resolved district and region in
// the returned hints.
//
// Unmappable categorical values fail the build with
// domain.ErrUnmappableValue. Unresolved location terms do not: the search
// simply runs wider.
func (b *Builder) Build(form *domain.SearchForm) (domain.QueryParams, domain.MatchHintSet, error) {
	hints := domain.MatchHintSet{
		Region:   domain.MatchHint{Input: form.Region},
		District: domain.MatchHint{Input: form.District},
		Suburb:   domain.MatchHint{Input: form.Suburb},
	}

	var (
		region   *domain.Region
		district *domain.District
		suburb   *domain.Suburb
	)

	// District first: the district term carries the most search value and
	// anchors the suburb lookup
	if form.District != "" {
		region, district = b.findDistrict(form.District)
	}

	if form.Suburb != "" {
		if district != nil {
			suburb = findSuburbIn(district, form.Suburb)
		}
		if suburb == nil {
			// Global scan; a hit here overrides whatever the district
			// term resolved to, since the suburb is the more specific term
			r, d, s := b.findSuburb(form.Suburb)
			if s != nil {
				region, district, suburb = r, d, s
			}
		}
	}

	// Region last, and only as a fallback: a resolved district or suburb
	// already pins the region via its ancestors
	if region == nil && district == nil && suburb == nil && form.Region != "" {
		region = b.findRegion(form.Region)
	}

	// Back-fill ancestors so the hint set is always internally consistent
	if suburb != nil && district == nil {
		if r, d, ok := b.taxonomy.OwnerOfSuburb(suburb.SuburbID); ok {
			region, district = &r, &d
		}
	}
	if district != nil && region == nil {
		if r, ok := b.taxonomy.OwnerOfDistrict(district.DistrictID); ok {
			region = &r
		}
	}

	if region != nil {
		hints.Region.Candidate = region.Name
		hints.Region.ResolvedID = region.LocalityID
	}
	if district != nil {
		hints.District.Candidate = district.Name
		hints.District.ResolvedID = district.DistrictID
	}
	if suburb != nil {
		hints.Suburb.Candidate = suburb.Name
		hints.Suburb.ResolvedID = suburb.SuburbID
	}

	params := domain.QueryParams{}

	// Most specific resolved level wins; the endpoint treats the three
	// location parameters independently
	if suburb != nil {
		params["suburb"] = strconv.Itoa(suburb.SuburbID)
	}
	if district != nil {
		params["district"] = strconv.Itoa(district.DistrictID)
	}
	if region != nil {
		params["region"] = strconv.Itoa(region.LocalityID)
	}
	if len(params) == 0 {
		log.Printf("[BUILDER] no location term resolved, searching nationwide")
	}

	for _, p := range numericParams {
		if v := p.value(form); v != nil {
			params[p.key] = strconv.Itoa(*v)
		}
	}

	if len(form.PropertyTypes) > 0 {
		joined, err := resolveVocab(form.PropertyTypes, b.propertyTypes, "property_type")
		if err != nil {
			return nil, hints, err
		}
		params["property_type"] = joined
	}

	if len(form.SaleMethods) > 0 {
		joined, err := resolveVocab(form.SaleMethods, b.saleMethods, "sale_method")
		if err != nil {
			return nil, hints, err
		}
		params["sale_method"] = joined
	}

	return params, hints, nil
}

// findDistrict resolves a district term across every region's district list.
// Candidates are flattened into a single list first so that the match tiers
// keep their precedence across region boundaries.
func (b *Builder) findDistrict(text string) (*domain.Region, *domain.District) {
	var (
		names     []string
		regions   []*domain.Region
		districts []*domain.District
	)
	for i := range b.taxonomy.regions {
		region := &b.taxonomy.regions[i]
		for j := range region.Districts {
			names = append(names, region.Districts[j].Name)
			regions = append(regions, region)
			districts = append(districts, &region.Districts[j])
		}
	}
	if idx, ok := ResolveName(text, names); ok {
		return regions[idx], districts[idx]
	}
	return nil, nil
}

// findSuburb resolves a suburb term across the whole taxonomy, returning its
// full ancestry. Flattened for the same tier-precedence reason as
// findDistrict.
func (b *Builder) findSuburb(text string) (*domain.Region, *domain.District, *domain.Suburb) {
	var (
		names     []string
		regions   []*domain.Region
		districts []*domain.District
		suburbs   []*domain.Suburb
	)
	for i := range b.taxonomy.regions {
		region := &b.taxonomy.regions[i]
		for j := range region.Districts {
			district := &region.Districts[j]
			for k := range district.Suburbs {
				names = append(names, district.Suburbs[k].Name)
				regions = append(regions, region)
				districts = append(districts, district)
				suburbs = append(suburbs, &district.Suburbs[k])
			}
		}
	}
	if idx, ok := ResolveName(text, names); ok {
		return regions[idx], districts[idx], suburbs[idx]
	}
	return nil, nil, nil
}

// findRegion resolves a region term against the region list
func (b *Builder) findRegion(text string) *domain.Region {
	names := make([]string, len(b.taxonomy.regions))
	for i, r := range b.taxonomy.regions {
		names[i] = r.Name
	}
	if idx, ok := ResolveName(text, names); ok {
		return &b.taxonomy.regions[idx]
	}
	return nil
}

// findSuburbIn resolves a suburb term inside a single district
func findSuburbIn(district *domain.District, text string) *domain.Suburb {
	names := make([]string, len(district.Suburbs))
	for i, s := range district.Suburbs {
		names[i] = s.Name
	}
	if idx, ok := ResolveName(text, names); ok {
		return &district.Suburbs[idx]
	}
	return nil
}

// resolveVocab maps each requested value onto a vocabulary key. Matching is
// exact-then-case-insensitive only; categorical values have no fuzzy tier
// because a wrong guess silently changes the search.
func resolveVocab(values []string, vocab []domain.VocabEntry, field string) (string, error) {
	resolved := make([]string, 0, len(values))
	for _, value := range values {
		key, ok := lookupVocab(value, vocab)
		if !ok {
			return "", fmt.Errorf("%w: %s %q", domain.ErrUnmappableValue, field, value)
		}
		resolved = append(resolved, key)
	}
	return strings.Join(resolved, ","), nil
}

func lookupVocab(value string, vocab []domain.VocabEntry) (string, bool) {
	for _, entry := range vocab {
		if entry.Key == value || entry.Value == value {
			return entry.Key, true
		}
	}
	lower := strings.ToLower(strings.TrimSpace(value))
	for _, entry := range vocab {
		if strings.ToLower(entry.Key) == lower || strings.ToLower(entry.Value) == lower {
			return entry.Key, true
		}
	}
	return "", false
}
