package usecase

import (
	"context"

	"github.com/PeterSaffarian/replit-propertyrecommender/internal/domain"
)

// Taxonomy is the in-memory location reference tree (region > district >
// suburb). It is loaded once per run and read-only afterwards, so lookups
// need no locking.
type Taxonomy struct {
	regions []domain.Region
}

// NewTaxonomy wraps an already-fetched region tree
func NewTaxonomy(regions []domain.Region) *Taxonomy {
	return &Taxonomy{regions: regions}
}

// LoadTaxonomy fetches the region tree from the metadata source
func LoadTaxonomy(ctx context.Context, src domain.MetadataSource, forceRefresh bool) (*Taxonomy, error) {
	regions, err := src.Regions(ctx, forceRefresh)
	if err != nil {
		return nil, err
	}
	return NewTaxonomy(regions), nil
}

// Regions returns the full region list
func (t *Taxonomy) Regions() []domain.Region {
	return t.regions
}

// OwnerOfDistrict walks the tree for the region containing the district id
func (t *Taxonomy) OwnerOfDistrict(districtID int) (domain.Region, bool) {
	for _, region := range t.regions {
		for _, district := range region.Districts {
			if district.DistrictID == districtID {
				return region, true
			}
		}
	}
	return domain.Region{}, false
}

// OwnerOfSuburb walks the tree for the region and district containing the
// suburb id
func (t *Taxonomy) OwnerOfSuburb(suburbID int) (domain.Region, domain.District, bool) {
	for _, region := range t.regions {
		for _, district := range region.Districts {
			for _, suburb := range district.Suburbs {
				if suburb.SuburbID == suburbID {
					return region, district, true
				}
			}
		}
	}
	return domain.Region{}, domain.District{}, false
}
